package viewer

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/tendril/growth"
	"github.com/pthm-cable/tendril/inspector"
)

// Panel dimensions
const (
	PanelWidth   = 340
	PanelPadding = 10
	HeaderHeight = 30
	closeSize    = 20
)

// Panel colors
var (
	ColorPanelBg     = rl.Color{R: 30, G: 30, B: 35, A: 240}
	ColorPanelHeader = rl.Color{R: 45, G: 45, B: 55, A: 255}
	ColorPanelBorder = rl.Color{R: 70, G: 70, B: 80, A: 255}
	ColorHeaderText  = rl.Color{R: 255, G: 255, B: 255, A: 255}
	ColorCloseBtn    = rl.Color{R: 180, G: 80, B: 80, A: 255}
)

// Panel shows the fields of the selected particle.
type Panel struct {
	selected    growth.ID
	hasSelected bool
	panelX      int32
	panelY      int32
	height      int32
}

// NewPanel creates a panel anchored to the top right of the screen.
func NewPanel(screenWidth int32) *Panel {
	p := &Panel{}
	p.Resize(screenWidth)
	return p
}

// Resize re-anchors the panel after a window resize.
func (p *Panel) Resize(screenWidth int32) {
	p.panelX = screenWidth - PanelWidth - 10
	p.panelY = 10
}

// Select shows id in the panel.
func (p *Panel) Select(id growth.ID) {
	p.selected = id
	p.hasSelected = true
}

// Deselect clears the current selection.
func (p *Panel) Deselect() {
	p.hasSelected = false
}

// Selected returns the selected particle.
func (p *Panel) Selected() (growth.ID, bool) {
	return p.selected, p.hasSelected
}

// Contains reports whether the screen point lies over the visible panel.
// A click on the close button deselects.
func (p *Panel) Contains(mx, my float32) bool {
	if !p.hasSelected {
		return false
	}
	x, y := int32(mx), int32(my)
	closeX := p.panelX + PanelWidth - 25
	closeY := p.panelY + 5
	if x >= closeX && x <= closeX+closeSize && y >= closeY && y <= closeY+closeSize {
		if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
			p.Deselect()
		}
		return true
	}
	return x >= p.panelX && x <= p.panelX+PanelWidth && y >= p.panelY && y <= p.panelY+p.height
}

// Draw renders the panel for the selected particle.
func (p *Panel) Draw(f *growth.Forest, now int64) {
	if !p.hasSelected {
		return
	}
	if !f.Valid(p.selected) {
		p.Deselect()
		return
	}

	fields := inspector.ExtractFields(inspector.NewParticleInfo(f, p.selected, now))
	p.height = HeaderHeight + 2*PanelPadding + 18*int32(len(fields))

	rl.DrawRectangle(p.panelX, p.panelY, PanelWidth, p.height, ColorPanelBg)
	rl.DrawRectangleLinesEx(
		rl.Rectangle{X: float32(p.panelX), Y: float32(p.panelY), Width: PanelWidth, Height: float32(p.height)},
		1,
		ColorPanelBorder,
	)

	rl.DrawRectangle(p.panelX, p.panelY, PanelWidth, HeaderHeight, ColorPanelHeader)
	rl.DrawText(fmt.Sprintf("PARTICLE %d", p.selected), p.panelX+PanelPadding, p.panelY+7, 16, ColorHeaderText)

	closeX := p.panelX + PanelWidth - 25
	closeY := p.panelY + 5
	rl.DrawRectangle(closeX, closeY, closeSize, closeSize, ColorCloseBtn)
	rl.DrawText("X", closeX+6, closeY+3, 14, rl.White)

	x := p.panelX + PanelPadding
	y := p.panelY + HeaderHeight + PanelPadding
	for _, field := range fields {
		y += DrawField(x, y, field)
	}
}
