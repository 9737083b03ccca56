// Package growth implements a forest of growing capsule segments. Each
// segment lengthens and thickens, is pulled back toward its rest shape by a
// local shape-matching solve, steers around an external surface, and spawns
// apical and lateral children.
//
// Everything here is single threaded and deterministic for a given seed.
// Nothing panics or returns errors: missing surface data and degenerate
// geometry fall back to neutral values.
package growth

import (
	"math"

	"github.com/pthm-cable/tendril/surface"
	"github.com/pthm-cable/tendril/vecmath"
)

// ID addresses a particle in its Forest.
type ID int32

// NoParent is the Parent of a seed.
const NoParent ID = -1

// Particle is one tapered capsule segment. Position is the segment base; the
// segment extends Dimensions.Z along its local +Z axis.
type Particle struct {
	ID ID

	Position          vecmath.Vec3
	RestPosition      vecmath.Vec3
	PredictedPosition vecmath.Vec3
	TargetPosition    vecmath.Vec3
	GoalPosition      vecmath.Vec3
	Velocity          vecmath.Vec3
	AngularVelocity   vecmath.Vec3

	Orientation    vecmath.Quat
	RotationMatrix vecmath.Mat3

	// X and Y are the radius, Z the length.
	Dimensions    vecmath.Vec3
	MaxDimensions vecmath.Vec3
	Mass          float64
	DepthWeight   float64

	Parent   ID
	Children []ID
	Depth    int

	IsSeed          bool
	IsLateralBranch bool
	HasApicalChild  bool

	BranchCount         int
	LastBranchTimestamp int64 // ms
	CreatedAt           int64 // ms

	GrowthBiasAxis     vecmath.Vec3
	GrowthBiasAngle    float64
	PreferredDirection vecmath.Vec3

	LastSurfaceNormal vecmath.Vec3
	HasSurfaceNormal  bool
	AnchorPoint       vecmath.Vec3
	HasAnchor         bool
	IsPenetrating     bool

	AnchorCache surface.QueryCache
	TipCache    surface.QueryCache

	fit groupFit
}

// Direction returns the unit growth direction (local +Z in world space).
func (p *Particle) Direction() vecmath.Vec3 {
	return p.RotationMatrix.MulVec(vecmath.UnitZ)
}

// Tip returns the end point of the segment.
func (p *Particle) Tip() vecmath.Vec3 {
	return p.Position.Add(p.Direction().MulScalar(p.Dimensions.Z))
}

// Radius returns the current segment radius.
func (p *Particle) Radius() float64 {
	return p.Dimensions.X
}

// LengthGrown reports whether the segment has reached its length cap.
func (p *Particle) LengthGrown() bool {
	return p.Dimensions.Z >= p.MaxDimensions.Z
}

// FullyGrown reports whether every dimension has reached its cap.
func (p *Particle) FullyGrown() bool {
	return p.Dimensions.X >= p.MaxDimensions.X &&
		p.Dimensions.Y >= p.MaxDimensions.Y &&
		p.Dimensions.Z >= p.MaxDimensions.Z
}

// State returns the growth state of the particle.
func (p *Particle) State() State {
	switch {
	case p.HasApicalChild:
		return StateApicalBranched
	case p.FullyGrown():
		return StateFullyGrown
	default:
		return StateGrowing
	}
}

// SetOrientation stores a normalized orientation and refreshes the cached
// rotation matrix.
func (p *Particle) SetOrientation(q vecmath.Quat) {
	p.Orientation = q.Normalize()
	p.RotationMatrix = p.Orientation.Mat3()
}

// rotate applies a world-space rotation to the orientation.
func (p *Particle) rotate(axis vecmath.Vec3, angle float64) {
	if math.Abs(angle) < vecmath.Epsilon {
		return
	}
	p.SetOrientation(vecmath.QuatAxisAngle(axis, angle).Mul(p.Orientation))
}

// sideAxis is a world-space axis perpendicular to the growth direction, used
// when a cross product degenerates.
func (p *Particle) sideAxis() vecmath.Vec3 {
	return p.RotationMatrix.MulVec(vecmath.UnitX)
}

// recomputeMass keeps Mass and DepthWeight consistent with Dimensions and
// Depth.
func (p *Particle) recomputeMass(params *Params) {
	r := p.Dimensions.X
	p.Mass = params.Density * math.Pi * r * r * p.Dimensions.Z
	p.DepthWeight = params.depthWeight(p.Depth)
}

// weight is the particle's contribution to group centers and covariances.
func (p *Particle) weight() float64 {
	return p.Mass * p.DepthWeight
}

// grow applies one tick of self-growth. It reports whether any dimension
// changed.
func (p *Particle) grow(params *Params, rate float64) bool {
	if rate <= 0 || p.FullyGrown() {
		return false
	}
	before := p.Dimensions
	dr := params.RadiusGrowth * rate
	dl := params.LengthGrowth * rate
	p.Dimensions.X = math.Min(p.Dimensions.X+dr, p.MaxDimensions.X)
	p.Dimensions.Y = math.Min(p.Dimensions.Y+dr, p.MaxDimensions.Y)
	p.Dimensions.Z = math.Min(p.Dimensions.Z+dl, p.MaxDimensions.Z)
	if p.Dimensions == before {
		return false
	}
	p.recomputeMass(params)
	return true
}

// updateAnchor re-queries the surface near the tip and folds the result into
// AnchorPoint and the smoothed surface normal. A miss leaves both untouched.
func (p *Particle) updateAnchor(params *Params, probe surface.Probe) {
	if p.FullyGrown() {
		p.AnchorCache.Widen(params.GrownQueryThreshold)
		p.TipCache.Widen(params.GrownQueryThreshold)
	}

	tip := p.Tip()
	tri, ok := p.AnchorCache.Query(probe, tip)
	if !ok {
		return
	}
	p.AnchorPoint = tri.ClosestPoint(tip)
	p.HasAnchor = true
	p.blendNormal(tri.Normal(), params.NormalSmoothing)
}

// blendNormal moves LastSurfaceNormal toward n. Near-opposite normals are
// ignored so the estimate does not flip between faces.
func (p *Particle) blendNormal(n vecmath.Vec3, t float64) {
	if !p.HasSurfaceNormal {
		p.LastSurfaceNormal = n
		p.HasSurfaceNormal = true
		return
	}
	if p.LastSurfaceNormal.Dot(n) <= -0.5 {
		return
	}
	p.LastSurfaceNormal = p.LastSurfaceNormal.Lerp(n, t).NormalOr(n)
}

// Predict advances the predicted position by explicit Euler. Seeds are
// immobile.
func (p *Particle) Predict(dt float64, gravity vecmath.Vec3) {
	if p.IsSeed {
		p.PredictedPosition = p.Position
		return
	}
	p.Velocity = p.Velocity.Add(gravity.MulScalar(dt))
	p.PredictedPosition = p.Position.Add(p.Velocity.MulScalar(dt))
}

// ApplyStiffness under-relaxes the goal toward the predicted position.
func (p *Particle) ApplyStiffness(stiffness float64) {
	k := vecmath.Clamp(stiffness, 0, 1)
	p.GoalPosition = p.PredictedPosition.Lerp(p.GoalPosition, k)
}

// IntegrationScheme commits the goal position and applies the group's
// rotation increment since the previous fit to the orientation.
func (p *Particle) IntegrationScheme(dt float64) {
	if p.IsSeed {
		p.Velocity = vecmath.Zero
		p.AngularVelocity = vecmath.Zero
		p.fit.prevRotation = p.fit.rotation
		return
	}
	if dt > 0 {
		p.Velocity = p.GoalPosition.Sub(p.Position).MulScalar(1 / dt)
	}
	p.Position = p.GoalPosition

	delta := vecmath.QuatFromMat3(p.fit.rotation.Mul(p.fit.prevRotation.Transpose()))
	p.fit.prevRotation = p.fit.rotation

	axis, angle := delta.AxisAngle()
	if angle < vecmath.Epsilon || dt <= 0 {
		p.AngularVelocity = vecmath.Zero
		return
	}
	p.SetOrientation(delta.Mul(p.Orientation))
	p.AngularVelocity = axis.MulScalar(angle / dt)
}
