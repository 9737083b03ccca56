package viewer

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/tendril/inspector"
)

// Widget colors
var (
	ColorBarBg    = rl.Color{R: 40, G: 40, B: 40, A: 255}
	ColorBarFill  = rl.Color{R: 100, G: 180, B: 100, A: 255}
	ColorBarLow   = rl.Color{R: 180, G: 80, B: 80, A: 255}
	ColorText     = rl.Color{R: 220, G: 220, B: 220, A: 255}
	ColorTextDim  = rl.Color{R: 150, G: 150, B: 150, A: 255}
	ColorAxisX    = rl.Color{R: 230, G: 100, B: 100, A: 255}
	ColorAxisY    = rl.Color{R: 120, G: 210, B: 120, A: 255}
	ColorAxisZ    = rl.Color{R: 110, G: 150, B: 240, A: 255}
	ColorBoolOn   = rl.Color{R: 100, G: 200, B: 100, A: 255}
	ColorBoolOff  = rl.Color{R: 80, G: 80, B: 80, A: 255}
	ColorLabelDim = rl.Color{R: 110, G: 110, B: 120, A: 255}
)

// DrawLabel renders a text value.
func DrawLabel(x, y int32, name string, value interface{}, options map[string]string) int32 {
	text := inspector.FormatValue(value, options["fmt"])
	rl.DrawText(fmt.Sprintf("%s: %s", name, text), x, y, 14, ColorText)
	return 18
}

// DrawBar renders a horizontal progress bar.
func DrawBar(x, y int32, name string, value float32, options map[string]string) int32 {
	ratio := value / inspector.GetMax(options)
	ratio = min(max(ratio, 0), 1)

	barWidth := int32(120)
	barHeight := int32(14)

	rl.DrawText(name, x, y, 14, ColorTextDim)

	barX := x + 100
	rl.DrawRectangle(barX, y, barWidth, barHeight, ColorBarBg)

	fillColor := ColorBarFill
	if ratio < 0.3 {
		fillColor = ColorBarLow
	}
	rl.DrawRectangle(barX, y, int32(float32(barWidth)*ratio), barHeight, fillColor)

	rl.DrawText(fmt.Sprintf("%.2f", value), barX+barWidth+5, y, 14, ColorTextDim)
	return 18
}

// DrawVec renders a vector as three colored components.
func DrawVec(x, y int32, name string, v [3]float32, options map[string]string) int32 {
	elem := options["fmt"]
	if elem == "" {
		elem = "%.2f"
	}
	rl.DrawText(name, x, y, 14, ColorTextDim)

	cx := x + 100
	for i, c := range []rl.Color{ColorAxisX, ColorAxisY, ColorAxisZ} {
		text := fmt.Sprintf(elem, v[i])
		rl.DrawText(text, cx, y, 14, c)
		cx += rl.MeasureText(text, 14) + 8
	}
	return 18
}

// DrawBool renders an on/off indicator.
func DrawBool(x, y int32, name string, value bool) int32 {
	rl.DrawText(name, x, y, 14, ColorTextDim)

	indicatorX := x + 100
	indicatorSize := int32(14)

	color := ColorBoolOff
	text := "OFF"
	if value {
		color = ColorBoolOn
		text = "ON"
	}

	rl.DrawRectangle(indicatorX, y, indicatorSize, indicatorSize, color)
	rl.DrawText(text, indicatorX+indicatorSize+5, y, 14, color)
	return 18
}

// DrawField renders a field using its widget type and returns the height used.
func DrawField(x, y int32, field inspector.Field) int32 {
	switch field.Widget {
	case inspector.WidgetBar:
		if v, ok := inspector.GetFloatValue(field.Value); ok {
			return DrawBar(x, y, field.Name, v, field.Options)
		}
	case inspector.WidgetVec:
		if v, ok := inspector.GetVec(field.Value); ok {
			return DrawVec(x, y, field.Name, v, field.Options)
		}
	case inspector.WidgetBool:
		if v, ok := field.Value.(bool); ok {
			return DrawBool(x, y, field.Name, v)
		}
	}
	return DrawLabel(x, y, field.Name, field.Value, field.Options)
}
