package vecmath

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Polar decomposition tuning.
const (
	polarMaxIterations = 32
	polarTolerance     = 1e-12
	// Relative determinant below which Newton iteration is not attempted.
	polarSingular = 1e-9
	// Frobenius norm below which the input is treated as the zero matrix.
	polarZeroNorm = 1e-12
)

// PolarMethod records how a rotation was extracted.
type PolarMethod uint8

const (
	PolarIdentity PolarMethod = iota // zero input
	PolarNewton                      // closed-form Newton iteration converged
	PolarSVD                         // singular or reflected input, solved by SVD
)

// String returns the method name.
func (p PolarMethod) String() string {
	switch p {
	case PolarNewton:
		return "newton"
	case PolarSVD:
		return "svd"
	default:
		return "identity"
	}
}

// Rotation returns the proper rotation closest to m in Frobenius norm (the
// orthonormal factor of its polar decomposition, with det forced to +1).
//
// Well-conditioned inputs are solved with the Newton iteration
// R_{k+1} = (R_k + R_k^{-T}) / 2. Singular, near-singular or reflecting
// inputs fall back to an SVD (R = U diag(1,1,det(UV^T)) V^T). A zero matrix
// yields the identity.
func (m Mat3) Rotation() (Mat3, PolarMethod) {
	norm := m.FrobeniusNorm()
	if norm < polarZeroNorm || !m.IsFinite() {
		return Identity3(), PolarIdentity
	}

	// Scale invariant singularity test: det scales with norm^3.
	det := m.Det()
	if det/(norm*norm*norm) > polarSingular {
		if r, ok := newtonPolar(m.MulScalar(1 / norm)); ok {
			return r, PolarNewton
		}
	}

	if r, ok := svdRotation(m); ok {
		return r, PolarSVD
	}
	return Identity3(), PolarIdentity
}

func newtonPolar(a Mat3) (Mat3, bool) {
	r := a
	for i := 0; i < polarMaxIterations; i++ {
		inv, ok := r.Inverse()
		if !ok {
			return Mat3{}, false
		}
		next := r.Add(inv.Transpose()).MulScalar(0.5)
		diff := next.Sub(r).FrobeniusNorm()
		r = next
		if diff < polarTolerance {
			break
		}
	}
	if !r.IsFinite() || r.Det() <= 0 {
		return Mat3{}, false
	}
	return r, true
}

func svdRotation(m Mat3) (Mat3, bool) {
	data := make([]float64, 9)
	copy(data, m[:])
	a := mat.NewDense(3, 3, data)

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return Mat3{}, false
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var r mat.Dense
	r.Mul(&u, v.T())
	if mat.Det(&r) < 0 {
		// Flip the axis of the smallest singular value to turn the
		// reflection into a rotation.
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		r.Mul(&u, v.T())
	}

	var out Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i*3+j] = r.At(i, j)
		}
	}
	if !out.IsFinite() || math.Abs(out.Det()-1) > 1e-6 {
		return Mat3{}, false
	}
	return out, true
}
