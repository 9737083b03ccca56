package growth

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/tendril/vecmath"
)

// lateralDecay scales the acceptance chance per existing lateral branch.
const lateralDecay = 0.7

// SpawnEvent records one branch creation.
type SpawnEvent struct {
	Parent  ID
	Child   ID
	Lateral bool
	// PrevBranchTimestamp is the parent's LastBranchTimestamp before the
	// spawn; for lateral branches Time-PrevBranchTimestamp is the cooldown
	// actually waited.
	PrevBranchTimestamp int64
	Time                int64
}

// GrowApicalChild spawns the single child that continues id's axis from its
// tip. It declines when id is short of its length cap, already has an apical
// child, or the forest is full.
func (f *Forest) GrowApicalChild(id ID, now int64, rng *rand.Rand) (SpawnEvent, bool) {
	parent := &f.particles[id]
	if parent.HasApicalChild || !parent.LengthGrown() || f.atCapacity() {
		return SpawnEvent{}, false
	}

	twist := (rng.Float64()*2 - 1) * f.Params.ApicalTwistMax
	q := parent.Orientation.Mul(vecmath.QuatAxisAngle(vecmath.UnitZ, twist))
	ev := SpawnEvent{Parent: id, PrevBranchTimestamp: parent.LastBranchTimestamp, Time: now}

	ev.Child = f.spawn(id, parent.Tip(), q, f.Params.InitialRadius, f.Params.InitialLength, now, rng)
	f.particles[id].HasApicalChild = true
	return ev, true
}

// GrowLateralBranch tries to grow a side branch from id. Seeds, segments
// that are not fully grown, segments still cooling down from their last
// branch and segments at MaxBranchesPerSegment decline without side effects.
// Otherwise the branch is accepted with probability
// 0.7^BranchCount * BaseLateralChance.
func (f *Forest) GrowLateralBranch(id ID, now, cooldownMs int64, rng *rand.Rand) (SpawnEvent, bool) {
	if !f.lateralEligible(id, now, cooldownMs) {
		return SpawnEvent{}, false
	}
	parent := &f.particles[id]
	chance := math.Pow(lateralDecay, float64(parent.BranchCount)) * f.Params.BaseLateralChance
	if rng.Float64() >= chance {
		return SpawnEvent{}, false
	}

	// Cone direction in the parent frame: tilt off +Z, then spin about it.
	azimuth := rng.Float64() * 2 * math.Pi
	cone := f.Params.LateralConeMin + rng.Float64()*(f.Params.LateralConeMax-f.Params.LateralConeMin)
	local := vecmath.QuatAxisAngle(vecmath.UnitZ, azimuth).Mul(vecmath.QuatAxisAngle(vecmath.UnitX, cone))
	q := parent.Orientation.Mul(local)

	along := f.Params.LateralPositionMin + rng.Float64()*(1-f.Params.LateralPositionMin)
	pos := parent.Position.Add(parent.Direction().MulScalar(parent.Dimensions.Z * along))
	radius := parent.Radius() * f.Params.LateralRadiusScale
	length := parent.Dimensions.Z * f.Params.LateralLengthScale

	ev := SpawnEvent{Parent: id, Lateral: true, PrevBranchTimestamp: parent.LastBranchTimestamp, Time: now}
	ev.Child = f.spawn(id, pos, q, radius, length, now, rng)

	parent = &f.particles[id]
	parent.LastBranchTimestamp = now
	parent.BranchCount++
	f.particles[ev.Child].IsLateralBranch = true
	return ev, true
}

// lateralEligible checks every lateral precondition except the acceptance
// roll.
func (f *Forest) lateralEligible(id ID, now, cooldownMs int64) bool {
	p := &f.particles[id]
	switch {
	case p.IsSeed, !p.FullyGrown(), f.atCapacity():
		return false
	case now-p.LastBranchTimestamp < cooldownMs:
		return false
	case f.Params.MaxBranchesPerSegment > 0 && p.BranchCount >= f.Params.MaxBranchesPerSegment:
		return false
	}
	return true
}

// spawn appends a child of parentID at pos and links it. The child's rest
// position is pos carried back through the parent group's current fit, so
// the rest shape stays in one frame after the group has moved.
func (f *Forest) spawn(parentID ID, pos vecmath.Vec3, q vecmath.Quat, radius, length float64, now int64, rng *rand.Rand) ID {
	depth := f.particles[parentID].Depth + 1
	parentDir := f.particles[parentID].Direction()
	id := f.add(pos, q, parentID, depth, radius, length, now)

	parent := &f.particles[parentID]
	child := &f.particles[id]
	fit := &parent.fit
	child.RestPosition = fit.rotation.Transpose().MulVec(pos.Sub(fit.center)).Add(fit.restCenter)

	jitterAxis := parentDir.Perpendicular()
	jitterAxis = vecmath.QuatAxisAngle(parentDir, rng.Float64()*2*math.Pi).Rotate(jitterAxis)
	child.PreferredDirection = vecmath.QuatAxisAngle(jitterAxis, rng.Float64()*f.Params.DirectionJitter).Rotate(parentDir).Normal()

	child.GrowthBiasAxis = randomUnit(rng)
	child.GrowthBiasAngle = (rng.Float64()*2 - 1) * f.Params.BiasAngleMax

	parent.Children = append(parent.Children, id)
	f.UpdateParticleGroupCentersOfMass(id)
	f.UpdateParticleGroupCentersOfMass(parentID)
	return id
}

// randomUnit returns a uniformly distributed unit vector.
func randomUnit(rng *rand.Rand) vecmath.Vec3 {
	for {
		v := vecmath.V3(rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64())
		if !v.IsZero() {
			return v.Normal()
		}
	}
}
