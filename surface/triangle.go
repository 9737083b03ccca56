// Package surface provides the surface probe contract consumed by the growth
// core, plus a triangle-mesh index that implements it.
package surface

import "github.com/pthm-cable/tendril/vecmath"

// Triangle is one face of a surface mesh. The winding A->B->C defines the
// outward normal.
type Triangle struct {
	A, B, C vecmath.Vec3
}

// Probe answers closest-triangle queries against an external surface.
// ok is false when no surface data is available.
type Probe interface {
	ClosestTriangle(p vecmath.Vec3) (tri Triangle, ok bool)
}

// Empty is a probe with no surface; every query misses.
type Empty struct{}

// ClosestTriangle always reports no result.
func (Empty) ClosestTriangle(vecmath.Vec3) (Triangle, bool) {
	return Triangle{}, false
}

// Normal returns the unit face normal, or Up for a degenerate triangle.
func (t Triangle) Normal() vecmath.Vec3 {
	return t.B.Sub(t.A).Cross(t.C.Sub(t.A)).NormalOr(vecmath.Up)
}

// Centroid returns the average of the three corners.
func (t Triangle) Centroid() vecmath.Vec3 {
	return t.A.Add(t.B).Add(t.C).MulScalar(1.0 / 3.0)
}

// ClosestPoint returns the point on the triangle nearest to p.
// It classifies p against the triangle's vertex, edge and face Voronoi regions.
func (t Triangle) ClosestPoint(p vecmath.Vec3) vecmath.Vec3 {
	a, b, c := t.A, t.B, t.C
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return a.Add(ab.MulScalar(v))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return a.Add(ac.MulScalar(w))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return b.Add(c.Sub(b).MulScalar(w))
	}

	denom := va + vb + vc
	if denom == 0 {
		return a
	}
	v := vb / denom
	w := vc / denom
	return a.Add(ab.MulScalar(v)).Add(ac.MulScalar(w))
}

// DistanceSq returns the squared distance from p to the triangle.
func (t Triangle) DistanceSq(p vecmath.Vec3) float64 {
	return t.ClosestPoint(p).Sub(p).LengthSq()
}

// SignedDistance returns the distance of p from the triangle's plane along
// its normal; negative values are behind the surface.
func (t Triangle) SignedDistance(p vecmath.Vec3) float64 {
	return p.Sub(t.A).Dot(t.Normal())
}

func (t Triangle) bounds() (lo, hi vecmath.Vec3) {
	lo = vecmath.Vec3{X: min(t.A.X, t.B.X, t.C.X), Y: min(t.A.Y, t.B.Y, t.C.Y), Z: min(t.A.Z, t.B.Z, t.C.Z)}
	hi = vecmath.Vec3{X: max(t.A.X, t.B.X, t.C.X), Y: max(t.A.Y, t.B.Y, t.C.Y), Z: max(t.A.Z, t.B.Z, t.C.Z)}
	return lo, hi
}
