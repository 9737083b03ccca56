package viewer

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/tendril/growth"
)

const (
	controlsWidth  = 280
	controlsHeight = 300
	sliderWidth    = 180
	maxGrowthRate  = 5
	maxCooldownMs  = 10000
)

// Controls edits the runtime tick configuration with raygui widgets.
type Controls struct {
	x, y    float32
	visible bool
}

// NewControls creates a controls panel at the given screen position.
func NewControls(x, y float32) *Controls {
	return &Controls{x: x, y: y, visible: true}
}

// Toggle switches panel visibility.
func (c *Controls) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Contains reports whether the screen point lies over the visible panel.
func (c *Controls) Contains(mx, my float32) bool {
	return c.visible && mx >= c.x && mx <= c.x+controlsWidth && my >= c.y && my <= c.y+controlsHeight
}

// Draw renders the controls and returns the edited configuration and whether
// the user changed anything this frame.
func (c *Controls) Draw(cfg growth.TickConfig, paused bool) (next growth.TickConfig, changed, togglePause bool) {
	if !c.visible {
		return cfg, false, false
	}
	next = cfg

	rl.DrawRectangle(int32(c.x), int32(c.y), controlsWidth, controlsHeight, ColorPanelBg)
	rl.DrawRectangleLines(int32(c.x), int32(c.y), controlsWidth, controlsHeight, ColorPanelBorder)

	x := c.x + PanelPadding
	y := c.y + PanelPadding
	rl.DrawText("Growth Controls", int32(x), int32(y), 16, ColorHeaderText)
	y += 26

	rl.DrawText("Growth rate", int32(x), int32(y), 14, ColorTextDim)
	y += 18
	rate := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: sliderWidth, Height: 18}, "0", "5",
		float32(cfg.GrowthRate), 0, maxGrowthRate)
	rl.DrawText(fmt.Sprintf("%.2f", rate), int32(x+sliderWidth+30), int32(y+2), 14, ColorText)
	if float64(rate) != cfg.GrowthRate {
		next.GrowthRate = float64(rate)
	}
	y += 30

	next.AllowLateralBranching = gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 16, Height: 16},
		"Lateral branching", cfg.AllowLateralBranching)
	y += 26

	rl.DrawText("Lateral probability", int32(x), int32(y), 14, ColorTextDim)
	y += 18
	prob := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: sliderWidth, Height: 18}, "0", "1",
		float32(cfg.LateralBranchProbability), 0, 1)
	rl.DrawText(fmt.Sprintf("%.2f", prob), int32(x+sliderWidth+30), int32(y+2), 14, ColorText)
	if float64(prob) != cfg.LateralBranchProbability {
		next.LateralBranchProbability = float64(prob)
	}
	y += 30

	rl.DrawText("Lateral cooldown (ms)", int32(x), int32(y), 14, ColorTextDim)
	y += 18
	cooldown := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: sliderWidth, Height: 18}, "0", "10s",
		float32(cfg.LateralBranchCooldownMs), 0, maxCooldownMs)
	rl.DrawText(fmt.Sprintf("%d", int64(cooldown)), int32(x+sliderWidth+30), int32(y+2), 14, ColorText)
	next.LateralBranchCooldownMs = int64(cooldown)
	y += 30

	next.RenderingEnabled = gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 16, Height: 16},
		"Sync render scene", cfg.RenderingEnabled)
	y += 30

	label := "Pause"
	if paused {
		label = "Resume"
	}
	togglePause = gui.Button(rl.Rectangle{X: x, Y: y, Width: 120, Height: 28}, label)

	return next, next != cfg, togglePause
}
