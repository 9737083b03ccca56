package growth

import "github.com/pthm-cable/tendril/vecmath"

// fitRegularization biases the covariance toward the previous fit by this
// fraction of its norm, so directions the group does not span (collinear
// chains, pairs) keep their last rotation instead of an arbitrary one.
const fitRegularization = 1e-6

// groupFit is the shape-matching state of the local group owned by one
// particle: the particle, its parent and its children.
type groupFit struct {
	center       vecmath.Vec3 // weighted center of the predicted positions
	restCenter   vecmath.Vec3 // weighted center of the rest positions
	restMoment   vecmath.Mat3 // sum of w q q^T over rest offsets q
	rotation     vecmath.Mat3
	prevRotation vecmath.Mat3
	method       vecmath.PolarMethod
}

func newGroupFit() groupFit {
	return groupFit{rotation: vecmath.Identity3(), prevRotation: vecmath.Identity3()}
}

// group calls fn for every member of id's local group, self first.
func (f *Forest) group(id ID, fn func(m *Particle)) {
	p := &f.particles[id]
	fn(p)
	if p.Parent != NoParent {
		fn(&f.particles[p.Parent])
	}
	for _, c := range p.Children {
		fn(&f.particles[c])
	}
}

// UpdateParticleGroupCentersOfMass recomputes the weighted centers of the
// predicted and rest positions of id's group, and the rest moment. A group
// with zero total weight falls back to unweighted means.
func (f *Forest) UpdateParticleGroupCentersOfMass(id ID) {
	var total, n float64
	var c, cr, plainC, plainCr vecmath.Vec3
	f.group(id, func(m *Particle) {
		w := m.weight()
		total += w
		n++
		c = c.Add(m.PredictedPosition.MulScalar(w))
		cr = cr.Add(m.RestPosition.MulScalar(w))
		plainC = plainC.Add(m.PredictedPosition)
		plainCr = plainCr.Add(m.RestPosition)
	})

	fit := &f.particles[id].fit
	if total > vecmath.Epsilon {
		fit.center = c.MulScalar(1 / total)
		fit.restCenter = cr.MulScalar(1 / total)
	} else {
		fit.center = plainC.MulScalar(1 / n)
		fit.restCenter = plainCr.MulScalar(1 / n)
	}

	var moment vecmath.Mat3
	f.group(id, func(m *Particle) {
		q := m.RestPosition.Sub(fit.restCenter)
		moment = moment.Add(q.Outer(q).MulScalar(m.weight()))
	})
	fit.restMoment = moment
}

// UpdateLeastSquareOptimalRotation fits the rotation that best maps the
// group's rest offsets onto its predicted offsets and returns it. A group
// with no spread yields the identity. A seed's group keeps the identity: the
// seed is rooted and anchors its children's rest pose.
func (f *Forest) UpdateLeastSquareOptimalRotation(id ID) vecmath.Mat3 {
	fit := &f.particles[id].fit
	if f.particles[id].IsSeed {
		fit.rotation, fit.method = vecmath.Identity3(), vecmath.PolarIdentity
		return fit.rotation
	}
	var cov vecmath.Mat3
	f.group(id, func(m *Particle) {
		x := m.PredictedPosition.Sub(fit.center)
		q := m.RestPosition.Sub(fit.restCenter)
		cov = cov.Add(x.Outer(q).MulScalar(m.weight()))
	})

	if norm := cov.FrobeniusNorm(); norm > 0 {
		cov = cov.Add(fit.prevRotation.MulScalar(norm * fitRegularization))
	}
	fit.rotation, fit.method = cov.Rotation()
	return fit.rotation
}

// UpdateTargetPosition returns where id's group fit places member: the
// member's rest offset rotated by the fit and moved to the group center.
func (f *Forest) UpdateTargetPosition(id, member ID) vecmath.Vec3 {
	fit := &f.particles[id].fit
	q := f.particles[member].RestPosition.Sub(fit.restCenter)
	return fit.rotation.MulVec(q).Add(fit.center)
}

// UpdateGoalPosition blends the targets proposed for id by every group it
// belongs to (its own, its parent's and its children's), weighted by each
// group owner. TargetPosition keeps the particle's own-group target.
func (f *Forest) UpdateGoalPosition(id ID) {
	p := &f.particles[id]
	p.TargetPosition = f.UpdateTargetPosition(id, id)

	var total float64
	var goal vecmath.Vec3
	f.group(id, func(owner *Particle) {
		w := owner.weight()
		total += w
		goal = goal.Add(f.UpdateTargetPosition(owner.ID, id).MulScalar(w))
	})
	if total > vecmath.Epsilon {
		p.GoalPosition = goal.MulScalar(1 / total)
	} else {
		p.GoalPosition = p.TargetPosition
	}
}

// FitMethod reports how the last rotation of id's group was extracted.
func (f *Forest) FitMethod(id ID) vecmath.PolarMethod {
	return f.particles[id].fit.method
}

// RestMoment returns the weighted second moment of id's group rest offsets.
func (f *Forest) RestMoment(id ID) vecmath.Mat3 {
	return f.particles[id].fit.restMoment
}
