// Package vecmath is the small fixed-size linear algebra kernel used by the
// growth simulation: 3-vectors, quaternions, 3x3 and 4x4 matrices.
//
// Everything is float64 and value-typed. Operations that can degenerate
// (normalizing a zero vector, rotating about a zero axis) return a safe
// fallback instead of NaN.
package vecmath

import "math"

// Epsilon is the tolerance used to detect degenerate vectors and angles.
const Epsilon = 1e-9

// Vec3 is a 3D vector or point.
type Vec3 struct {
	X, Y, Z float64
}

// Common axes. Up is world up; the local growth axis of a segment is UnitZ.
var (
	Zero  = Vec3{}
	UnitX = Vec3{1, 0, 0}
	UnitY = Vec3{0, 1, 0}
	UnitZ = Vec3{0, 0, 1}
	Up    = UnitY
)

// V3 returns a new Vec3.
func V3(x, y, z float64) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// MulScalar returns v * s.
func (v Vec3) MulScalar(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Negate returns -v.
func (v Vec3) Negate() Vec3 {
	return Vec3{-v.X, -v.Y, -v.Z}
}

// Dot returns the dot product.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns the cross product v x o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// LengthSq returns the squared length.
func (v Vec3) LengthSq() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Length returns the Euclidean length.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.LengthSq())
}

// DistanceTo returns the distance between two points.
func (v Vec3) DistanceTo(o Vec3) float64 {
	return v.Sub(o).Length()
}

// Normal returns the unit vector in the direction of v, or Zero if v is degenerate.
func (v Vec3) Normal() Vec3 {
	l := v.Length()
	if l < Epsilon {
		return Zero
	}
	return v.MulScalar(1 / l)
}

// NormalOr returns the unit vector in the direction of v, or fallback if v is degenerate.
func (v Vec3) NormalOr(fallback Vec3) Vec3 {
	l := v.Length()
	if l < Epsilon {
		return fallback
	}
	return v.MulScalar(1 / l)
}

// IsZero reports whether v is shorter than Epsilon.
func (v Vec3) IsZero() bool {
	return v.LengthSq() < Epsilon*Epsilon
}

// IsFinite reports whether all components are finite numbers.
func (v Vec3) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}

// Lerp linearly interpolates from v to o by t.
func (v Vec3) Lerp(o Vec3, t float64) Vec3 {
	return Vec3{
		v.X + (o.X-v.X)*t,
		v.Y + (o.Y-v.Y)*t,
		v.Z + (o.Z-v.Z)*t,
	}
}

// ProjectOnPlane removes the component of v along the unit normal n.
func (v Vec3) ProjectOnPlane(n Vec3) Vec3 {
	return v.Sub(n.MulScalar(n.Dot(v)))
}

// AngleTo returns the unsigned angle between v and o in radians.
// Degenerate inputs yield 0.
func (v Vec3) AngleTo(o Vec3) float64 {
	d := v.Length() * o.Length()
	if d < Epsilon {
		return 0
	}
	return math.Acos(clamp(v.Dot(o)/d, -1, 1))
}

// Outer returns the outer product v ⊗ o, the matrix with entries v_i * o_j.
func (v Vec3) Outer(o Vec3) Mat3 {
	return Mat3{
		v.X * o.X, v.X * o.Y, v.X * o.Z,
		v.Y * o.X, v.Y * o.Y, v.Y * o.Z,
		v.Z * o.X, v.Z * o.Y, v.Z * o.Z,
	}
}

// Perpendicular returns a unit vector orthogonal to v.
// For a degenerate v it returns UnitX.
func (v Vec3) Perpendicular() Vec3 {
	if v.IsZero() {
		return UnitX
	}
	// Cross with the axis least aligned with v.
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	var other Vec3
	switch {
	case ax <= ay && ax <= az:
		other = UnitX
	case ay <= az:
		other = UnitY
	default:
		other = UnitZ
	}
	return v.Cross(other).NormalOr(UnitX)
}

// RotationAxis returns the normalized axis of the rotation taking a onto b,
// i.e. a x b. Parallel or antiparallel inputs fall back to fallback, or to a
// perpendicular of a when fallback is itself parallel to a.
func RotationAxis(a, b, fallback Vec3) Vec3 {
	axis := a.Cross(b)
	if !axis.IsZero() {
		return axis.Normal()
	}
	axis = fallback.ProjectOnPlane(a.NormalOr(UnitZ))
	if !axis.IsZero() {
		return axis.Normal()
	}
	return a.Perpendicular()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return clamp(v, lo, hi)
}
