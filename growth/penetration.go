package growth

import (
	"math"

	"github.com/pthm-cable/tendril/surface"
	"github.com/pthm-cable/tendril/vecmath"
)

// probePoint is the look-ahead point checked against the surface.
func (f *Forest) probePoint(p *Particle) vecmath.Vec3 {
	return p.Tip().Add(p.Direction().MulScalar(f.Params.ProbeDistance))
}

// CheckPenetration probes ahead of id's tip and sets IsPenetrating when the
// probe point is close to (or behind) the surface while the segment heads
// into it. A probe miss leaves the flag as it was.
func (f *Forest) CheckPenetration(id ID, probe surface.Probe) bool {
	p := &f.particles[id]
	point := f.probePoint(p)
	tri, ok := p.TipCache.Query(probe, point)
	if !ok {
		return p.IsPenetrating
	}

	n := tri.Normal()
	near := tri.DistanceSq(point) < f.Params.PenetrationDistance*f.Params.PenetrationDistance
	behind := tri.SignedDistance(point) < 0
	p.IsPenetrating = (near || behind) && p.Direction().Dot(n) < 0
	return p.IsPenetrating
}

// CorrectPenetration turns a penetrating segment toward the surface normal
// and returns the angle applied.
func (f *Forest) CorrectPenetration(id ID, probe surface.Probe, dt float64) float64 {
	return f.correctPenetration(id, probe, dt, math.Inf(1))
}

// correctPenetration rotates about dir x normal by an angle proportional to
// the angle of incidence, clamped to MaxCorrectionAngle and budget, then
// pulls PreferredDirection toward the corrected heading.
func (f *Forest) correctPenetration(id ID, probe surface.Probe, dt, budget float64) float64 {
	p := &f.particles[id]
	if !p.IsPenetrating || budget <= 0 {
		return 0
	}
	tri, ok := p.TipCache.Query(probe, f.probePoint(p))
	if !ok {
		return 0
	}

	n := tri.Normal()
	dir := p.Direction()
	incidence := math.Asin(vecmath.Clamp(-dir.Dot(n), 0, 1))
	angle := min(f.Params.CorrectionGain*incidence*dt, f.Params.MaxCorrectionAngle, budget)
	if angle <= 0 {
		return 0
	}
	p.rotate(vecmath.RotationAxis(dir, n, p.sideAxis()), angle)

	nudge := vecmath.Clamp(f.Params.PreferredNudge, 0, 1)
	p.PreferredDirection = p.PreferredDirection.Lerp(p.Direction(), nudge).NormalOr(p.Direction())
	return angle
}
