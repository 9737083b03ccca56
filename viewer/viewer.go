// Package viewer draws a growing garden with raylib and lets the user plant
// seeds, inspect particles and adjust growth at runtime.
package viewer

import (
	"fmt"
	"log/slog"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/tendril/camera"
	"github.com/pthm-cable/tendril/components"
	"github.com/pthm-cable/tendril/garden"
	"github.com/pthm-cable/tendril/growth"
	"github.com/pthm-cable/tendril/inspector"
	"github.com/pthm-cable/tendril/vecmath"
)

const (
	pickSlack     = 0.05 // extra world-space radius for picking thin segments
	orbitSpeed    = 0.005
	maxSpeed      = 20
	tubeSides     = 8
	dragThreshold = 3 // pixels of movement that turn a click into a drag
)

var (
	colorSky      = rl.Color{R: 24, G: 28, B: 34, A: 255}
	colorGround   = rl.Color{R: 92, G: 84, B: 62, A: 255}
	colorBark     = rl.Color{R: 120, G: 86, B: 58, A: 255}
	colorSibling  = rl.Color{R: 146, G: 112, B: 74, A: 255}
	colorLeaf     = rl.Color{R: 90, G: 170, B: 80, A: 220}
	colorSelected = rl.Yellow
)

// Viewer owns the window-side state for one garden.
type Viewer struct {
	garden   *garden.Garden
	cam      *camera.Camera
	panel    *Panel
	controls *Controls

	screenW, screenH int32
	paused           bool
	speed            int
	dragDist         float32
	status           string
}

// New creates a viewer for g sized to the current window.
func New(g *garden.Garden, screenW, screenH int32) *Viewer {
	w, h := float32(screenW), float32(screenH)
	cam := camera.New(w, h, mgl32.Vec3{}, 20)
	if m := g.Surface(); m != nil && m.Len() > 0 {
		// Home view frames the surface.
		cam.Frame(meshBounds(g))
		cam = camera.New(w, h, cam.Target, cam.Distance)
	}
	return &Viewer{
		garden:   g,
		cam:      cam,
		panel:    NewPanel(screenW),
		controls: NewControls(10, 90),
		screenW:  screenW,
		screenH:  screenH,
		speed:    1,
	}
}

func meshBounds(g *garden.Garden) (lo, hi mgl32.Vec3) {
	lo = mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi = lo.Mul(-1)
	for _, t := range g.Surface().Triangles() {
		for _, p := range []vecmath.Vec3{t.A, t.B, t.C} {
			q := components.Vec(p.X, p.Y, p.Z)
			for i := 0; i < 3; i++ {
				lo[i] = min(lo[i], q[i])
				hi[i] = max(hi[i], q[i])
			}
		}
	}
	return lo, hi
}

// Update processes input and advances the simulation.
func (v *Viewer) Update() {
	v.handleResize()
	v.handleKeys()
	v.handleMouse()

	if !v.paused {
		for i := 0; i < v.speed; i++ {
			v.garden.Step()
		}
	}
	v.garden.RecordFrame()
}

func (v *Viewer) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w, h := int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight())
	if w == v.screenW && h == v.screenH {
		return
	}
	v.screenW, v.screenH = w, h
	v.cam.Resize(float32(w), float32(h))
	v.panel.Resize(w)
}

func (v *Viewer) handleKeys() {
	if rl.IsKeyPressed(rl.KeySpace) {
		v.paused = !v.paused
	}
	if rl.IsKeyPressed(rl.KeyComma) && v.speed > 1 {
		v.speed--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && v.speed < maxSpeed {
		v.speed++
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		v.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyEscape) {
		v.panel.Deselect()
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		v.cam.Reset()
	}
	if rl.IsKeyPressed(rl.KeyF) {
		v.frameForest()
	}
	if rl.IsKeyPressed(rl.KeyS) {
		if path, err := v.garden.SaveSnapshot(""); err != nil {
			slog.Error("failed to save snapshot", "error", err)
			v.status = "snapshot failed"
		} else {
			v.status = "saved " + path
		}
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		v.cam.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		v.cam.ZoomBy(0.8)
	}
}

func (v *Viewer) handleMouse() {
	mouse := rl.GetMousePosition()
	delta := rl.GetMouseDelta()
	overUI := v.panel.Contains(mouse.X, mouse.Y) || v.controls.Contains(mouse.X, mouse.Y)

	if wheel := rl.GetMouseWheelMove(); wheel != 0 && !overUI {
		v.cam.ZoomBy(1 + wheel*0.1)
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		v.cam.Orbit(-delta.X*orbitSpeed, delta.Y*orbitSpeed)
	}
	if rl.IsMouseButtonDown(rl.MouseButtonMiddle) {
		v.cam.Pan(delta.X, delta.Y)
	}

	// Left button: click plants or selects, drag orbits.
	if rl.IsMouseButtonPressed(rl.MouseButtonLeft) {
		v.dragDist = 0
	}
	if rl.IsMouseButtonDown(rl.MouseButtonLeft) && !overUI {
		v.dragDist += float32(math.Abs(float64(delta.X)) + math.Abs(float64(delta.Y)))
		if v.dragDist > dragThreshold {
			v.cam.Orbit(-delta.X*orbitSpeed, delta.Y*orbitSpeed)
		}
	}
	if !rl.IsMouseButtonReleased(rl.MouseButtonLeft) || overUI || v.dragDist > dragThreshold {
		return
	}

	origin, dir := v.ray(mouse.X, mouse.Y)
	if rl.IsKeyDown(rl.KeyLeftShift) || rl.IsKeyDown(rl.KeyRightShift) {
		if id, ok := inspector.Pick(v.garden.Forest(), origin, dir, pickSlack); ok {
			v.panel.Select(id)
		} else {
			v.panel.Deselect()
		}
		return
	}
	if id, err := v.garden.PlantOnRay(origin, dir); err != nil {
		v.status = err.Error()
	} else {
		v.status = fmt.Sprintf("planted seed %d", id)
	}
}

func (v *Viewer) ray(sx, sy float32) (origin, dir vecmath.Vec3) {
	o, d := v.cam.ScreenRay(sx, sy)
	return vecmath.V3(float64(o[0]), float64(o[1]), float64(o[2])),
		vecmath.V3(float64(d[0]), float64(d[1]), float64(d[2]))
}

// frameForest points the camera at the bounding box of all particles.
func (v *Viewer) frameForest() {
	ps := v.garden.Forest().Particles()
	if len(ps) == 0 {
		return
	}
	lo := mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi := lo.Mul(-1)
	for i := range ps {
		for _, p := range []vecmath.Vec3{ps[i].Position, ps[i].Tip()} {
			q := components.Vec(p.X, p.Y, p.Z)
			for k := 0; k < 3; k++ {
				lo[k] = min(lo[k], q[k])
				hi[k] = max(hi[k], q[k])
			}
		}
	}
	v.cam.Frame(lo, hi)
}

// Draw renders the scene and the overlays.
func (v *Viewer) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(colorSky)

	rl.BeginMode3D(rl.Camera3D{
		Position:   toRL(v.cam.Eye()),
		Target:     toRL(v.cam.Target),
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       v.cam.FovY,
		Projection: rl.CameraPerspective,
	})
	v.drawSurface()
	v.drawForest()
	v.drawSelection()
	rl.EndMode3D()

	v.drawHUD()
	v.panel.Draw(v.garden.Forest(), v.garden.Now())

	cfg, changed, togglePause := v.controls.Draw(v.garden.TickConfig(), v.paused)
	if changed {
		v.garden.SetTickConfig(cfg)
	}
	if togglePause {
		v.paused = !v.paused
	}

	rl.EndDrawing()
}

func (v *Viewer) drawSurface() {
	m := v.garden.Surface()
	if m == nil {
		return
	}
	for _, t := range m.Triangles() {
		// Shade by slope so terrain relief reads without lighting.
		shade := float32(0.55 + 0.45*math.Max(0, t.Normal().Y))
		c := rl.Color{
			R: uint8(float32(colorGround.R) * shade),
			G: uint8(float32(colorGround.G) * shade),
			B: uint8(float32(colorGround.B) * shade),
			A: 255,
		}
		rl.DrawTriangle3D(vecRL(t.A), vecRL(t.B), vecRL(t.C), c)
	}
}

func (v *Viewer) drawForest() {
	sync := v.garden.MeshSync()
	sync.EachTube(func(t *components.Tube, _ *components.Instance, _ growth.ID) {
		c := colorBark
		if t.Kind == components.EdgeSibling {
			c = colorSibling
		}
		rl.DrawCylinderEx(toRL(t.Start), toRL(t.End), t.RadiusFrom, t.RadiusTo, tubeSides, c)
	})
	sync.EachFoliage(func(f *components.Foliage, _ *components.Instance, _ growth.ID) {
		rl.DrawSphereEx(toRL(f.Center), f.Size/2, 6, 6, colorLeaf)
	})
}

func (v *Viewer) drawSelection() {
	id, ok := v.panel.Selected()
	if !ok || !v.garden.Forest().Valid(id) {
		return
	}
	p := v.garden.Forest().Get(id)
	r := float32(p.Radius())*1.4 + 0.01
	rl.DrawCylinderWiresEx(vecRL(p.Position), vecRL(p.Tip()), r, r, tubeSides, colorSelected)
}

func (v *Viewer) drawHUD() {
	rep := v.garden.LastReport()
	f := v.garden.Forest()
	rl.DrawText("Tendril", 10, 10, 20, rl.White)
	rl.DrawText(fmt.Sprintf("Plants: %d | Particles: %d | Tubes: %d | Leaves: %d",
		len(f.Roots()), f.Len(), v.garden.MeshSync().TubeCount(), v.garden.MeshSync().FoliageCount()),
		10, 35, 16, rl.LightGray)
	rl.DrawText(fmt.Sprintf("Tick: %d | Speed: %dx | FPS: %d | Penetrating: %d",
		v.garden.Tick(), v.speed, rl.GetFPS(), rep.Penetrations),
		10, 55, 16, rl.LightGray)

	status := "Running"
	if v.paused {
		status = "PAUSED"
	}
	if v.status != "" {
		status += " | " + v.status
	}
	rl.DrawText(status, 10, 75, 14, rl.Yellow)

	rl.DrawText("[Click] plant  [Shift+Click] inspect  [Drag/RMB] orbit  [MMB] pan  [Wheel] zoom  [Space] pause  [,/.] speed  [F] frame  [S] snapshot  [Tab] controls",
		10, v.screenH-25, 14, rl.Gray)
}

func toRL(v mgl32.Vec3) rl.Vector3 {
	return rl.Vector3{X: v[0], Y: v[1], Z: v[2]}
}

func vecRL(v vecmath.Vec3) rl.Vector3 {
	return rl.Vector3{X: float32(v.X), Y: float32(v.Y), Z: float32(v.Z)}
}
