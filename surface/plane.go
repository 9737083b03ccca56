package surface

import "github.com/pthm-cable/tendril/vecmath"

// NewPlane returns a square two-triangle surface of the given edge length,
// centered on center and facing along normal.
func NewPlane(center, normal vecmath.Vec3, size float64) *Mesh {
	n := normal.NormalOr(vecmath.Up)
	u := n.Perpendicular()
	v := n.Cross(u)
	h := size / 2

	corner := func(a, b float64) vecmath.Vec3 {
		return center.Add(u.MulScalar(a * h)).Add(v.MulScalar(b * h))
	}
	p00, p10 := corner(-1, -1), corner(1, -1)
	p11, p01 := corner(1, 1), corner(-1, 1)

	// u x v = n, so counter-clockwise in (u, v) faces along n.
	return NewMesh([]Triangle{
		{A: p00, B: p10, C: p11},
		{A: p00, B: p11, C: p01},
	})
}
