// Terrain preview tool - interactive heightfield visualization with sliders.
//
// Usage: go run ./cmd/terrainpreview [-config path]
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/tendril/config"
	"github.com/pthm-cable/tendril/surface"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	gridSize     = 256
	panelWidth   = windowWidth - previewSize - 30
)

// slider describes one editable terrain parameter.
type slider struct {
	label    string
	min, max float32
	format   string
	get      func(*config.SurfaceConfig) float32
	set      func(*config.SurfaceConfig, float32)
}

var sliders = []slider{
	{"Amplitude (peak height of first octave)", 0, 6, "%.2f",
		func(s *config.SurfaceConfig) float32 { return float32(s.Amplitude) },
		func(s *config.SurfaceConfig, v float32) { s.Amplitude = float64(v) }},
	{"Frequency (base noise frequency)", 0.01, 0.4, "%.3f",
		func(s *config.SurfaceConfig) float32 { return float32(s.Frequency) },
		func(s *config.SurfaceConfig, v float32) { s.Frequency = float64(v) }},
	{"Octaves (detail level)", 1, 8, "%.0f",
		func(s *config.SurfaceConfig) float32 { return float32(s.Octaves) },
		func(s *config.SurfaceConfig, v float32) { s.Octaves = int(v) }},
	{"Persistence (amplitude multiplier)", 0.1, 0.9, "%.2f",
		func(s *config.SurfaceConfig) float32 { return float32(s.Persistence) },
		func(s *config.SurfaceConfig, v float32) { s.Persistence = float64(v) }},
	{"Lacunarity (frequency multiplier)", 1.5, 4, "%.2f",
		func(s *config.SurfaceConfig) float32 { return float32(s.Lacunarity) },
		func(s *config.SurfaceConfig, v float32) { s.Lacunarity = float64(v) }},
	{"Size (patch edge length)", 5, 120, "%.0f",
		func(s *config.SurfaceConfig) float32 { return float32(s.Size) },
		func(s *config.SurfaceConfig, v float32) { s.Size = float64(v) }},
}

func main() {
	configPath := flag.String("config", "", "Config YAML to start from (empty = defaults)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	initial := cfg.Surface
	params := initial
	var seed int64 = 1

	rl.InitWindow(windowWidth, windowHeight, "Terrain Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	heights := make([]float32, gridSize*gridSize)
	img := rl.GenImageColor(gridSize, gridSize, rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(texture)

	var lo, hi float32
	needsRegen := true

	for !rl.WindowShouldClose() {
		if needsRegen {
			lo, hi = sampleHeights(heights, params, seed)
			updateTexture(texture, heights, lo, hi)
			needsRegen = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		rl.DrawTexturePro(
			texture,
			rl.Rectangle{X: 0, Y: 0, Width: gridSize, Height: gridSize},
			rl.Rectangle{X: 10, Y: 10, Width: previewSize, Height: previewSize},
			rl.Vector2{X: 0, Y: 0},
			0,
			rl.White,
		)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)

		statsY := int32(previewSize + 25)
		rl.DrawText(fmt.Sprintf("Min: %.2f  Max: %.2f  Relief: %.2f", lo, hi, hi-lo), 15, statsY, 16, rl.DarkGray)
		rl.DrawText(fmt.Sprintf("Seed: %d", seed), 15, statsY+20, 16, rl.DarkGray)

		panelX := float32(previewSize + 20)
		panelY := float32(10)

		rl.DrawText("Terrain Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		for _, s := range sliders {
			rl.DrawText(s.label, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			cur := s.get(&params)
			next := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				fmt.Sprintf(s.format, s.min), fmt.Sprintf(s.format, s.max),
				cur, s.min, s.max,
			)
			rl.DrawText(fmt.Sprintf(s.format, cur), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			if next != cur {
				s.set(&params, next)
				needsRegen = true
			}
			panelY += 35
		}
		panelY += 10

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Random Seed") {
			seed = int64(rl.GetRandomValue(1, 99999))
			needsRegen = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = initial
			seed = 1
			needsRegen = true
		}
		panelY += 55

		snippet := surfaceYAML(params)
		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		rl.DrawText(snippet, int32(panelX), int32(panelY), 14, rl.Gray)

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(snippet)
		}

		rl.EndDrawing()
	}
}

// surfaceYAML renders params as the surface section of a config file.
func surfaceYAML(params config.SurfaceConfig) string {
	data, err := yaml.Marshal(map[string]config.SurfaceConfig{"surface": params})
	if err != nil {
		return err.Error()
	}
	return string(data)
}

// sampleHeights fills grid with terrain heights over the patch and returns
// their range. Only the analytic height is needed, so no mesh is built.
func sampleHeights(grid []float32, params config.SurfaceConfig, seed int64) (lo, hi float32) {
	tc := surface.TerrainConfig{
		Size:        params.Size,
		Resolution:  1,
		Amplitude:   params.Amplitude,
		Frequency:   params.Frequency,
		Octaves:     params.Octaves,
		Persistence: params.Persistence,
		Lacunarity:  params.Lacunarity,
		BaseHeight:  params.BaseHeight,
	}
	terrain := surface.NewTerrain(tc, seed)

	lo, hi = math.MaxFloat32, -math.MaxFloat32
	step := params.Size / gridSize
	origin := -params.Size / 2
	for j := 0; j < gridSize; j++ {
		z := origin + (float64(j)+0.5)*step
		for i := 0; i < gridSize; i++ {
			x := origin + (float64(i)+0.5)*step
			h := float32(terrain.Height(x, z))
			grid[j*gridSize+i] = h
			lo = min(lo, h)
			hi = max(hi, h)
		}
	}
	return lo, hi
}

// updateTexture colors the heightfield from low valleys to high ridges.
func updateTexture(texture rl.Texture2D, grid []float32, lo, hi float32) {
	span := hi - lo
	if span <= 0 {
		span = 1
	}
	pixels := make([]color.RGBA, len(grid))
	for i, h := range grid {
		v := (h - lo) / span
		var r, g, b uint8
		switch {
		case v < 0.3:
			// Deep soil to loam
			t := v / 0.3
			r = uint8(50 + t*40)
			g = uint8(40 + t*50)
			b = uint8(30 + t*20)
		case v < 0.7:
			// Loam to grass
			t := (v - 0.3) / 0.4
			r = uint8(90 - t*20)
			g = uint8(90 + t*70)
			b = uint8(50 + t*10)
		default:
			// Grass to rock
			t := (v - 0.7) / 0.3
			r = uint8(70 + t*120)
			g = uint8(160 + t*30)
			b = uint8(60 + t*130)
		}
		pixels[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	rl.UpdateTexture(texture, pixels)
}
