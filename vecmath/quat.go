package vecmath

import "math"

// Quat is a rotation quaternion with vector part X,Y,Z and scalar part W.
type Quat struct {
	X, Y, Z, W float64
}

// IdentityQuat returns the identity rotation.
func IdentityQuat() Quat {
	return Quat{W: 1}
}

// QuatAxisAngle returns the rotation of angle radians about axis.
// A degenerate axis yields the identity.
func QuatAxisAngle(axis Vec3, angle float64) Quat {
	a := axis.Normal()
	if a.IsZero() {
		return IdentityQuat()
	}
	s := math.Sin(angle / 2)
	return Quat{X: a.X * s, Y: a.Y * s, Z: a.Z * s, W: math.Cos(angle / 2)}
}

// QuatFromUnitVectors returns the shortest rotation taking unit vector from onto to.
// Antiparallel inputs rotate by pi about an arbitrary perpendicular axis.
func QuatFromUnitVectors(from, to Vec3) Quat {
	r := from.Dot(to) + 1
	var v Vec3
	if r < Epsilon {
		r = 0
		if math.Abs(from.X) > math.Abs(from.Z) {
			v = Vec3{-from.Y, from.X, 0}
		} else {
			v = Vec3{0, -from.Z, from.Y}
		}
	} else {
		v = from.Cross(to)
	}
	return Quat{X: v.X, Y: v.Y, Z: v.Z, W: r}.Normalize()
}

// QuatFromDirection returns an orientation whose local +Z axis points along dir.
func QuatFromDirection(dir Vec3) Quat {
	return QuatFromUnitVectors(UnitZ, dir.NormalOr(UnitZ))
}

// LengthSq returns the squared norm.
func (q Quat) LengthSq() float64 {
	return q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W
}

// Normalize returns q scaled to unit length; a zero quaternion becomes identity.
func (q Quat) Normalize() Quat {
	l := math.Sqrt(q.LengthSq())
	if l < Epsilon {
		return IdentityQuat()
	}
	l = 1 / l
	return Quat{q.X * l, q.Y * l, q.Z * l, q.W * l}
}

// Conjugate returns the inverse of a unit quaternion.
func (q Quat) Conjugate() Quat {
	return Quat{-q.X, -q.Y, -q.Z, q.W}
}

// Dot returns the 4D dot product.
func (q Quat) Dot(o Quat) float64 {
	return q.X*o.X + q.Y*o.Y + q.Z*o.Z + q.W*o.W
}

// Mul returns q * o: the rotation o followed by q.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.X*o.W + q.W*o.X + q.Y*o.Z - q.Z*o.Y,
		Y: q.Y*o.W + q.W*o.Y + q.Z*o.X - q.X*o.Z,
		Z: q.Z*o.W + q.W*o.Z + q.X*o.Y - q.Y*o.X,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).MulScalar(2)
	return v.Add(t.MulScalar(q.W)).Add(u.Cross(t))
}

// Angle returns the rotation angle in [0, pi].
func (q Quat) Angle() float64 {
	w := clamp(math.Abs(q.W), 0, 1)
	return 2 * math.Acos(w)
}

// AxisAngle returns the rotation axis and angle. Rotations smaller than
// Epsilon report UnitX and 0.
func (q Quat) AxisAngle() (Vec3, float64) {
	if q.W < 0 {
		q = Quat{-q.X, -q.Y, -q.Z, -q.W}
	}
	angle := 2 * math.Acos(clamp(q.W, -1, 1))
	s := math.Sqrt(1 - q.W*q.W)
	if angle < Epsilon || s < Epsilon {
		return UnitX, 0
	}
	return Vec3{q.X / s, q.Y / s, q.Z / s}, angle
}

// AngleTo returns the angle of the rotation taking q to o.
func (q Quat) AngleTo(o Quat) float64 {
	return o.Mul(q.Conjugate()).Angle()
}

// Slerp spherically interpolates from q to o by t along the shortest arc.
func (q Quat) Slerp(o Quat, t float64) Quat {
	if t <= 0 {
		return q
	}
	if t >= 1 {
		return o
	}
	cosHalf := q.Dot(o)
	if cosHalf < 0 {
		o = Quat{-o.X, -o.Y, -o.Z, -o.W}
		cosHalf = -cosHalf
	}
	if cosHalf >= 1 {
		return q
	}
	sinSq := 1 - cosHalf*cosHalf
	if sinSq < 0.001 {
		s := 1 - t
		return Quat{
			s*q.X + t*o.X,
			s*q.Y + t*o.Y,
			s*q.Z + t*o.Z,
			s*q.W + t*o.W,
		}.Normalize()
	}
	sinHalf := math.Sqrt(sinSq)
	half := math.Atan2(sinHalf, cosHalf)
	a := math.Sin((1-t)*half) / sinHalf
	b := math.Sin(t*half) / sinHalf
	return Quat{
		q.X*a + o.X*b,
		q.Y*a + o.Y*b,
		q.Z*a + o.Z*b,
		q.W*a + o.W*b,
	}
}

// Mat3 returns the rotation matrix of a unit quaternion.
func (q Quat) Mat3() Mat3 {
	x, y, z, w := q.X, q.Y, q.Z, q.W
	return Mat3{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	}
}

// QuatFromMat3 converts a rotation matrix to a unit quaternion.
func QuatFromMat3(m Mat3) Quat {
	m00, m01, m02 := m[0], m[1], m[2]
	m10, m11, m12 := m[3], m[4], m[5]
	m20, m21, m22 := m[6], m[7], m[8]

	var q Quat
	trace := m00 + m11 + m22
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		q.W = 0.25 / s
		q.X = (m21 - m12) * s
		q.Y = (m02 - m20) * s
		q.Z = (m10 - m01) * s
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q.W = (m21 - m12) / s
		q.X = 0.25 * s
		q.Y = (m01 + m10) / s
		q.Z = (m02 + m20) / s
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q.W = (m02 - m20) / s
		q.X = (m01 + m10) / s
		q.Y = 0.25 * s
		q.Z = (m12 + m21) / s
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q.W = (m10 - m01) / s
		q.X = (m02 + m20) / s
		q.Y = (m12 + m21) / s
		q.Z = 0.25 * s
	}
	return q.Normalize()
}

// IsFinite reports whether all components are finite numbers.
func (q Quat) IsFinite() bool {
	return Vec3{q.X, q.Y, q.Z}.IsFinite() && !math.IsNaN(q.W) && !math.IsInf(q.W, 0)
}
