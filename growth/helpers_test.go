package growth

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pthm-cable/tendril/surface"
	"github.com/pthm-cable/tendril/vecmath"
)

const dt = 1.0 / 60

var (
	pointUp   = vecmath.QuatFromDirection(vecmath.Up)
	pointDown = vecmath.QuatFromDirection(vecmath.Up.Negate())
)

func newTestStepper(probe surface.Probe, seed int64) *Stepper {
	return NewStepper(NewForest(DefaultParams()), probe, nil, rand.New(rand.NewSource(seed)))
}

func apicalOnly() TickConfig {
	cfg := DefaultTickConfig()
	cfg.AllowLateralBranching = false
	cfg.RenderingEnabled = false
	return cfg
}

func branchy() TickConfig {
	return TickConfig{
		GrowthRate:               1,
		AllowLateralBranching:    true,
		LateralBranchProbability: 1,
		LateralBranchCooldownMs:  500,
	}
}

// nullProbe never finds a surface and counts how often it was asked.
type nullProbe struct{ calls int }

func (n *nullProbe) ClosestTriangle(vecmath.Vec3) (surface.Triangle, bool) {
	n.calls++
	return surface.Triangle{}, false
}

func vecNear(a, b vecmath.Vec3, tol float64) bool {
	return a.Sub(b).Length() <= tol
}

func assertFinite(t *testing.T, f *Forest) {
	t.Helper()
	for i := range f.Particles() {
		p := f.Get(ID(i))
		if !p.Position.IsFinite() || !p.Orientation.IsFinite() || math.IsNaN(p.Mass) {
			t.Fatalf("particle %d has non-finite state: pos=%v q=%v mass=%v", i, p.Position, p.Orientation, p.Mass)
		}
	}
}

// grownParticle plants a seed with one fully grown apical child and returns
// the child.
func grownParticle(t *testing.T, f *Forest, rng *rand.Rand) ID {
	t.Helper()
	seed := f.PlantSeed(vecmath.Zero, pointUp)
	f.Get(seed).Dimensions = f.Get(seed).MaxDimensions
	ev, ok := f.GrowApicalChild(seed, 0, rng)
	if !ok {
		t.Fatal("apical child declined")
	}
	c := f.Get(ev.Child)
	c.Dimensions = c.MaxDimensions
	c.recomputeMass(&f.Params)
	return ev.Child
}
