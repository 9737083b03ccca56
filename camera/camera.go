// Package camera provides an orbit camera for viewing the forest in 3D.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

var worldUp = mgl32.Vec3{0, 1, 0}

// Camera orbits a target point at a given distance. Yaw is measured about
// world +Y from +Z, pitch is the elevation above the horizontal plane.
type Camera struct {
	// Target is the orbit center in world coordinates
	Target mgl32.Vec3

	// Orbit angles in radians
	Yaw, Pitch float32

	// Distance from eye to target
	Distance float32

	// Vertical field of view in degrees, and clip planes
	FovY, Near, Far float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// Constraints
	MinDistance, MaxDistance float32
	MaxPitch                 float32

	home orbit
}

// orbit is the state Reset returns to.
type orbit struct {
	target     mgl32.Vec3
	yaw, pitch float32
	distance   float32
}

// New creates a camera looking at target from distance, raised 30 degrees.
func New(viewportW, viewportH float32, target mgl32.Vec3, distance float32) *Camera {
	c := &Camera{
		Target:      target,
		Yaw:         mgl32.DegToRad(30),
		Pitch:       mgl32.DegToRad(30),
		FovY:        45,
		Near:        0.05,
		Far:         500,
		ViewportW:   viewportW,
		ViewportH:   viewportH,
		MinDistance: 0.5,
		MaxDistance: 200,
		MaxPitch:    mgl32.DegToRad(89),
	}
	c.Distance = clamp(distance, c.MinDistance, c.MaxDistance)
	c.home = orbit{target: c.Target, yaw: c.Yaw, pitch: c.Pitch, distance: c.Distance}
	return c
}

// Eye returns the camera position.
func (c *Camera) Eye() mgl32.Vec3 {
	return c.Target.Add(c.Forward().Mul(-c.Distance))
}

// Forward returns the unit view direction, from eye toward target.
func (c *Camera) Forward() mgl32.Vec3 {
	cp := float32(math.Cos(float64(c.Pitch)))
	sp := float32(math.Sin(float64(c.Pitch)))
	sy := float32(math.Sin(float64(c.Yaw)))
	cy := float32(math.Cos(float64(c.Yaw)))
	// The eye sits on the +offset side, so forward is the negated offset.
	return mgl32.Vec3{-cp * sy, -sp, -cp * cy}
}

// Right returns the unit screen-right direction in world space.
func (c *Camera) Right() mgl32.Vec3 {
	return c.Forward().Cross(worldUp).Normalize()
}

// View returns the world-to-camera matrix.
func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye(), c.Target, worldUp)
}

// Projection returns the perspective projection matrix.
func (c *Camera) Projection() mgl32.Mat4 {
	aspect := float32(1)
	if c.ViewportH > 0 {
		aspect = c.ViewportW / c.ViewportH
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
}

// ViewProjection returns Projection * View.
func (c *Camera) ViewProjection() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}

// WorldToScreen converts a world point to screen pixels (origin top-left).
// visible is false for points behind the camera or outside the viewport.
func (c *Camera) WorldToScreen(p mgl32.Vec3) (sx, sy float32, visible bool) {
	clip := c.ViewProjection().Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	sx = (ndc.X() + 1) / 2 * c.ViewportW
	sy = (1 - ndc.Y()) / 2 * c.ViewportH
	visible = sx >= 0 && sx <= c.ViewportW && sy >= 0 && sy <= c.ViewportH && ndc.Z() <= 1
	return sx, sy, visible
}

// ScreenRay returns the world-space ray through screen pixel (sx, sy).
func (c *Camera) ScreenRay(sx, sy float32) (origin, dir mgl32.Vec3) {
	inv := c.ViewProjection().Inv()
	nx := sx/c.ViewportW*2 - 1
	ny := 1 - sy/c.ViewportH*2
	near := inv.Mul4x1(mgl32.Vec4{nx, ny, -1, 1})
	far := inv.Mul4x1(mgl32.Vec4{nx, ny, 1, 1})
	a := near.Vec3().Mul(1 / near.W())
	b := far.Vec3().Mul(1 / far.W())
	return a, b.Sub(a).Normalize()
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Orbit rotates the eye around the target. Pitch stops short of the poles.
func (c *Camera) Orbit(dYaw, dPitch float32) {
	c.Yaw = wrapAngle(c.Yaw + dYaw)
	c.Pitch = clamp(c.Pitch+dPitch, -c.MaxPitch, c.MaxPitch)
}

// Pan moves the target by the given delta in screen pixels, in the plane
// facing the camera. Panning speed scales with distance so the point under
// the cursor roughly tracks it.
func (c *Camera) Pan(dx, dy float32) {
	worldPerPixel := 2 * c.Distance * float32(math.Tan(float64(mgl32.DegToRad(c.FovY))/2)) / c.ViewportH
	right := c.Right()
	up := right.Cross(c.Forward())
	c.Target = c.Target.Add(right.Mul(-dx * worldPerPixel)).Add(up.Mul(dy * worldPerPixel))
}

// SetDistance sets the orbit distance, clamped to min/max.
func (c *Camera) SetDistance(d float32) {
	c.Distance = clamp(d, c.MinDistance, c.MaxDistance)
}

// ZoomBy divides the distance by factor; factors above 1 move closer.
func (c *Camera) ZoomBy(factor float32) {
	if factor <= 0 {
		return
	}
	c.SetDistance(c.Distance / factor)
}

// Frame re-targets the camera on a bounding box and backs off far enough to
// see all of it.
func (c *Camera) Frame(lo, hi mgl32.Vec3) {
	c.Target = lo.Add(hi).Mul(0.5)
	radius := hi.Sub(lo).Len() / 2
	half := mgl32.DegToRad(c.FovY) / 2
	c.SetDistance(radius / float32(math.Sin(float64(half))))
}

// Reset returns the camera to the position it was created with.
func (c *Camera) Reset() {
	c.Target = c.home.target
	c.Yaw = c.home.yaw
	c.Pitch = c.home.pitch
	c.Distance = c.home.distance
}

// wrapAngle wraps a to [-pi, pi].
func wrapAngle(a float32) float32 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
