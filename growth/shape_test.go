package growth

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/tendril/vecmath"
)

func TestDegenerateGroupYieldsIdentity(t *testing.T) {
	f := NewForest(DefaultParams())
	rng := rand.New(rand.NewSource(1))
	at := vecmath.V3(1, 2, 3)

	root := f.PlantSeed(at, pointUp)
	mid := f.spawn(root, at, pointUp, 0.02, 0.1, 0, rng)
	f.spawn(mid, at, pointUp, 0.02, 0.1, 0, rng)
	f.spawn(mid, at, pointUp, 0.03, 0.2, 0, rng)

	for i := 0; i < f.Len(); i++ {
		f.Get(ID(i)).Predict(dt, vecmath.Zero)
	}
	for i := 0; i < f.Len(); i++ {
		f.UpdateParticleGroupCentersOfMass(ID(i))
		r := f.UpdateLeastSquareOptimalRotation(ID(i))
		if r != vecmath.Identity3() {
			t.Errorf("particle %d: rotation %v, want identity", i, r)
		}
		if m := f.FitMethod(ID(i)); m != vecmath.PolarIdentity {
			t.Errorf("particle %d: method %v, want identity", i, m)
		}
	}

	f.UpdateGoalPosition(mid)
	goal := f.Get(mid).GoalPosition
	if !goal.IsFinite() || !vecNear(goal, at, 1e-12) {
		t.Errorf("goal = %v, want center of mass %v", goal, at)
	}
}

func TestRigidMotionIsRecovered(t *testing.T) {
	f := NewForest(DefaultParams())
	rng := rand.New(rand.NewSource(2))

	root := f.PlantSeed(vecmath.Zero, pointUp)
	mid := f.spawn(root, vecmath.V3(0, 1, 0), pointUp, 0.05, 1, 0, rng)
	f.spawn(mid, vecmath.V3(1, 1, 0), pointUp, 0.05, 1, 0, rng)
	f.spawn(mid, vecmath.V3(0, 1, 1), pointUp, 0.05, 1, 0, rng)
	// Unroot the group so all of it is free to move.
	f.Get(root).IsSeed = false

	rot := vecmath.QuatAxisAngle(vecmath.V3(1, 2, -1), 0.7)
	shift := vecmath.V3(0.5, -0.25, 2)
	for i := 0; i < f.Len(); i++ {
		p := f.Get(ID(i))
		p.PredictedPosition = rot.Rotate(p.RestPosition).Add(shift)
	}
	for i := 0; i < f.Len(); i++ {
		f.UpdateParticleGroupCentersOfMass(ID(i))
		f.UpdateLeastSquareOptimalRotation(ID(i))
	}

	r := f.UpdateLeastSquareOptimalRotation(mid)
	want := rot.Mat3()
	for i := range r {
		if math.Abs(r[i]-want[i]) > 1e-4 {
			t.Fatalf("fit rotation %v, want %v", r, want)
		}
	}

	// A rigid motion is already a perfect shape match.
	for i := 0; i < f.Len(); i++ {
		f.UpdateGoalPosition(ID(i))
		p := f.Get(ID(i))
		if !vecNear(p.GoalPosition, p.PredictedPosition, 1e-4) {
			t.Errorf("particle %d: goal %v, predicted %v", i, p.GoalPosition, p.PredictedPosition)
		}
	}
}

func TestShapeMatchingPullsBack(t *testing.T) {
	f := NewForest(DefaultParams())
	rng := rand.New(rand.NewSource(3))

	root := f.PlantSeed(vecmath.Zero, pointUp)
	f.Get(root).Dimensions = vecmath.V3(0.05, 0.05, 1)
	f.Get(root).recomputeMass(&f.Params)
	mid := f.spawn(root, vecmath.V3(0, 1, 0), pointUp, 0.05, 1, 0, rng)
	tip := f.spawn(mid, vecmath.V3(0, 2, 0), pointUp, 0.05, 1, 0, rng)

	// Kink the middle particle sideways.
	for i := 0; i < f.Len(); i++ {
		f.Get(ID(i)).PredictedPosition = f.Get(ID(i)).Position
	}
	f.Get(mid).PredictedPosition = vecmath.V3(0.3, 1, 0)

	for i := 0; i < f.Len(); i++ {
		f.UpdateParticleGroupCentersOfMass(ID(i))
		f.UpdateLeastSquareOptimalRotation(ID(i))
	}
	f.UpdateGoalPosition(mid)
	f.UpdateGoalPosition(tip)

	if g := f.Get(mid).GoalPosition; g.X >= 0.3 || g.X <= 0 {
		t.Errorf("kinked particle goal x = %v, want pulled back toward 0", g.X)
	}
	if m := f.RestMoment(mid); m.Trace() <= 0 {
		t.Errorf("rest moment trace = %v, want positive", m.Trace())
	}
}

func TestSeedGroupStaysUnrotated(t *testing.T) {
	f := NewForest(DefaultParams())
	rng := rand.New(rand.NewSource(4))
	root := f.PlantSeed(vecmath.Zero, pointUp)
	child := f.spawn(root, vecmath.V3(0, 1, 0), pointUp, 0.05, 1, 0, rng)

	// Swing the child over; the rooted group still fits the identity.
	f.Get(root).PredictedPosition = vecmath.Zero
	f.Get(child).PredictedPosition = vecmath.V3(1, 0, 0)
	f.UpdateParticleGroupCentersOfMass(root)
	if r := f.UpdateLeastSquareOptimalRotation(root); r != vecmath.Identity3() {
		t.Errorf("seed group rotation %v, want identity", r)
	}
}

func TestIntegrationFollowsGroupRotation(t *testing.T) {
	f := NewForest(DefaultParams())
	p := f.Get(f.PlantSeed(vecmath.Zero, pointUp))
	p.IsSeed = false

	step := vecmath.QuatAxisAngle(vecmath.UnitX, 0.05)
	p.fit.rotation = step.Mat3()
	p.GoalPosition = vecmath.V3(0, 0.1, 0)
	before := p.Orientation

	p.IntegrationScheme(dt)

	if got := before.AngleTo(p.Orientation); math.Abs(got-0.05) > 1e-9 {
		t.Errorf("orientation turned %v, want 0.05", got)
	}
	if w := p.AngularVelocity.Length(); math.Abs(w-0.05/dt) > 1e-6 {
		t.Errorf("angular speed %v, want %v", w, 0.05/dt)
	}
	if !vecNear(p.Velocity, vecmath.V3(0, 0.1/dt, 0), 1e-9) {
		t.Errorf("velocity %v", p.Velocity)
	}

	// No further rotation: angular velocity drops to zero.
	p.IntegrationScheme(dt)
	if !p.AngularVelocity.IsZero() {
		t.Errorf("angular velocity %v, want zero", p.AngularVelocity)
	}
}

func TestPredictAndStiffness(t *testing.T) {
	f := NewForest(DefaultParams())
	seed := f.Get(f.PlantSeed(vecmath.V3(1, 1, 1), pointUp))
	seed.Velocity = vecmath.V3(5, 0, 0)
	seed.Predict(dt, vecmath.V3(0, -9.8, 0))
	if seed.PredictedPosition != seed.Position {
		t.Errorf("seed moved to %v", seed.PredictedPosition)
	}

	p := Particle{Position: vecmath.Zero, Velocity: vecmath.V3(1, 0, 0)}
	p.Predict(0.5, vecmath.V3(0, -2, 0))
	if !vecNear(p.PredictedPosition, vecmath.V3(0.5, -0.5, 0), 1e-12) {
		t.Errorf("predicted %v", p.PredictedPosition)
	}

	p.GoalPosition = p.PredictedPosition.Add(vecmath.V3(0, 1, 0))
	p.ApplyStiffness(0.25)
	if !vecNear(p.GoalPosition, vecmath.V3(0.5, -0.25, 0), 1e-12) {
		t.Errorf("stiffened goal %v", p.GoalPosition)
	}
}
