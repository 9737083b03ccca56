package inspector

import (
	"math"

	"github.com/pthm-cable/tendril/growth"
	"github.com/pthm-cable/tendril/vecmath"
)

// Pick returns the particle whose capsule the ray origin + t*dir passes
// nearest to its origin, within the capsule radius plus slack.
func Pick(f *growth.Forest, origin, dir vecmath.Vec3, slack float64) (growth.ID, bool) {
	dir = dir.Normal()
	if dir.IsZero() {
		return growth.NoParent, false
	}

	best := growth.NoParent
	bestT := math.Inf(1)
	particles := f.Particles()
	for i := range particles {
		p := &particles[i]
		dist, t := raySegment(origin, dir, p.Position, p.Tip())
		if dist > p.Radius()+slack {
			continue
		}
		if t < bestT {
			bestT = t
			best = p.ID
		}
	}
	return best, best != growth.NoParent
}

// raySegment returns the distance between a unit ray and segment ab, and the
// ray parameter of the closest point.
func raySegment(o, d, a, b vecmath.Vec3) (dist, t float64) {
	u := b.Sub(a)
	w := o.Sub(a)
	du := d.Dot(u)
	uu := u.Dot(u)
	dw := d.Dot(w)
	uw := u.Dot(w)

	var s float64
	if uu > vecmath.Epsilon {
		if den := uu - du*du; den > vecmath.Epsilon {
			s = vecmath.Clamp((uw-du*dw)/den, 0, 1)
		}
	}
	t = s*du - dw
	if t < 0 {
		t = 0
		if uu > vecmath.Epsilon {
			s = vecmath.Clamp(uw/uu, 0, 1)
		}
	}
	closest := w.Add(d.MulScalar(t)).Sub(u.MulScalar(s))
	return closest.Length(), t
}
