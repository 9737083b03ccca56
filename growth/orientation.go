package growth

import (
	"math"

	"github.com/pthm-cable/tendril/surface"
	"github.com/pthm-cable/tendril/vecmath"
)

// SelfGrowth grows id by one tick at the given rate, keeps its group rest
// data current, and refreshes the surface anchor through the anchor cache.
func (f *Forest) SelfGrowth(id ID, rate float64, probe surface.Probe) {
	p := &f.particles[id]
	if p.grow(&f.Params, rate) {
		f.UpdateParticleGroupCentersOfMass(id)
	}
	p.updateAnchor(&f.Params, probe)
}

// Vs returns the unit anchor vector of id: from the tip toward AnchorPoint.
// When the anchor is practically at the tip it falls back to the parent's
// direction flattened against the last surface normal, or Up. ok is false
// while no surface has ever been found.
func (f *Forest) Vs(id ID) (vecmath.Vec3, bool) {
	v, _, ok := f.vs(id)
	return v, ok
}

func (f *Forest) vs(id ID) (dir vecmath.Vec3, dist float64, ok bool) {
	p := &f.particles[id]
	if !p.HasAnchor {
		return vecmath.Zero, 0, false
	}
	v := p.AnchorPoint.Sub(p.Tip())
	dist = v.Length()
	if dist >= f.Params.AnchorMinDistance && dist > vecmath.Epsilon {
		return v.MulScalar(1 / dist), dist, true
	}

	if p.Parent != NoParent {
		fallback := f.particles[p.Parent].Direction()
		if p.HasSurfaceNormal {
			fallback = fallback.ProjectOnPlane(p.LastSurfaceNormal)
		}
		if !fallback.IsZero() {
			return fallback.Normal(), dist, true
		}
	}
	return vecmath.Up, dist, true
}

// UpdatePreferredDirection blends PreferredDirection toward the growth
// direction turned by the particle's growth bias.
func (f *Forest) UpdatePreferredDirection(id ID, dt float64) {
	p := &f.particles[id]
	biased := vecmath.QuatAxisAngle(p.GrowthBiasAxis, p.GrowthBiasAngle).Rotate(p.Direction())
	t := vecmath.Clamp(f.Params.PreferredBlendRate*dt, 0, 1)
	p.PreferredDirection = p.PreferredDirection.Lerp(biased, t).NormalOr(biased)
}

// OrientationResult summarizes one PlantOrientation call.
type OrientationResult struct {
	Penetrating bool
	Corrections int
	Angle       float64 // total rotation applied
}

// PlantOrientation steers id for one tick. Seeds and segments with an
// apical child are left alone. Otherwise it runs, in order: a penetration
// check and correction, a turn toward the blend of the anchor vector, the
// surface normal and the preferred direction, a distance-attenuated turn
// toward attractor, and a second penetration pass.
//
// The rotations share one budget of Params.MaxStepAngle, so the orientation
// never turns further than that in a single call.
func (f *Forest) PlantOrientation(id ID, dt float64, attractor vecmath.Vec3, probe surface.Probe) OrientationResult {
	var res OrientationResult
	p := &f.particles[id]
	if p.IsSeed || p.HasApicalChild {
		return res
	}
	budget := f.Params.MaxStepAngle

	correct := func() {
		if !f.CheckPenetration(id, probe) {
			return
		}
		res.Penetrating = true
		if a := f.correctPenetration(id, probe, dt, budget); a > 0 {
			budget -= a
			res.Angle += a
			res.Corrections++
		}
	}

	correct()
	f.UpdatePreferredDirection(id, dt)

	if !p.IsPenetrating {
		desired := p.PreferredDirection.MulScalar(f.Params.PreferredWeight)
		if vs, dist, ok := f.vs(id); ok {
			w := f.Params.AnchorWeight
			if r := f.Params.AnchorRange; r > 0 {
				w *= r * r / (r*r + dist*dist)
			}
			desired = desired.Add(vs.MulScalar(w))
			if p.HasSurfaceNormal {
				desired = desired.Add(p.LastSurfaceNormal.MulScalar(f.Params.NormalWeight))
			}
		}
		budget -= turnToward(p, desired, f.Params.OrientationGain*dt, budget, func(theta float64) float64 {
			return 1 - math.Cos(theta)
		}, &res)

		if f.Params.AttractorStrength > 0 {
			to := attractor.Sub(p.Tip())
			d := to.Length()
			influence := f.Params.AttractorStrength / (1 + d*d)
			budget -= turnToward(p, to, influence*dt, budget, func(theta float64) float64 {
				return theta
			}, &res)
		}
	}

	correct()
	return res
}

// turnToward rotates p toward target by gain*shape(theta), never past the
// target and never more than budget. It returns the angle applied.
func turnToward(p *Particle, target vecmath.Vec3, gain, budget float64, shape func(theta float64) float64, res *OrientationResult) float64 {
	target = target.Normal()
	if target.IsZero() || budget <= 0 {
		return 0
	}
	dir := p.Direction()
	theta := dir.AngleTo(target)
	angle := min(gain*shape(theta), theta, budget)
	if angle < vecmath.Epsilon {
		return 0
	}
	p.rotate(vecmath.RotationAxis(dir, target, p.sideAxis()), angle)
	res.Angle += angle
	return angle
}
