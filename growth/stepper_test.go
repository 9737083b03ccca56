package growth

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/pthm-cable/tendril/surface"
	"github.com/pthm-cable/tendril/vecmath"
)

// invariantTracker checks the per-tick monotonicity properties.
type invariantTracker struct {
	apical   map[ID]bool
	branches map[ID]int
}

func newInvariantTracker() *invariantTracker {
	return &invariantTracker{apical: map[ID]bool{}, branches: map[ID]int{}}
}

func (it *invariantTracker) check(t *testing.T, tick int, f *Forest) {
	t.Helper()
	if err := f.Validate(); err != nil {
		t.Fatalf("tick %d: %v", tick, err)
	}
	for i := range f.Particles() {
		p := f.Get(ID(i))
		if it.apical[p.ID] && !p.HasApicalChild {
			t.Fatalf("tick %d: particle %d lost its apical flag", tick, i)
		}
		if p.BranchCount < it.branches[p.ID] {
			t.Fatalf("tick %d: particle %d branch count fell %d -> %d", tick, i, it.branches[p.ID], p.BranchCount)
		}
		it.apical[p.ID] = p.HasApicalChild
		it.branches[p.ID] = p.BranchCount

		apicalChildren := 0
		for _, c := range p.Children {
			if !f.Get(c).IsLateralBranch {
				apicalChildren++
			}
		}
		want := 0
		if p.HasApicalChild {
			want = 1
		}
		if apicalChildren != want {
			t.Fatalf("tick %d: particle %d has %d apical children, flag %v", tick, i, apicalChildren, p.HasApicalChild)
		}
	}
}

func TestForestInvariants(t *testing.T) {
	params := DefaultParams()
	params.MaxParticles = 300
	s := NewStepper(NewForest(params), surface.NewPlane(vecmath.Zero, vecmath.Up, 60), nil, rand.New(rand.NewSource(42)))
	s.Forest.PlantSeed(vecmath.Zero, pointUp)
	s.Forest.PlantSeed(vecmath.V3(3, 0, 0), vecmath.QuatFromDirection(vecmath.V3(1, 1, 0)))

	cfg := branchy()
	it := newInvariantTracker()
	laterals := 0
	for tick := 0; tick < 3000; tick++ {
		rep := s.Tick(cfg, dt)
		for _, ev := range rep.Spawns {
			if !ev.Lateral {
				continue
			}
			laterals++
			if ev.Time-ev.PrevBranchTimestamp < cfg.LateralBranchCooldownMs {
				t.Fatalf("lateral from %d after %d ms, cooldown %d", ev.Parent, ev.Time-ev.PrevBranchTimestamp, cfg.LateralBranchCooldownMs)
			}
		}
		it.check(t, tick, s.Forest)
	}
	if laterals == 0 {
		t.Error("no lateral branches in 3000 ticks")
	}
	assertFinite(t, s.Forest)
}

func TestZeroGrowthIdempotence(t *testing.T) {
	s := newTestStepper(surface.NewPlane(vecmath.Zero, vecmath.Up, 60), 42)
	s.Forest.PlantSeed(vecmath.Zero, pointUp)
	for i := 0; i < 600; i++ {
		s.Tick(branchy(), dt)
	}

	type state struct {
		dims, pos vecmath.Vec3
		branches  int
	}
	snapshot := func() []state {
		out := make([]state, s.Forest.Len())
		for i := range out {
			p := s.Forest.Get(ID(i))
			out[i] = state{p.Dimensions, p.Position, p.BranchCount}
		}
		return out
	}
	before := snapshot()

	cfg := branchy()
	cfg.GrowthRate = 0
	for i := 0; i < 500; i++ {
		if rep := s.Tick(cfg, dt); len(rep.Spawns) != 0 {
			t.Fatalf("tick %d spawned %d particles at zero growth", i, len(rep.Spawns))
		}
	}
	after := snapshot()

	if len(after) != len(before) {
		t.Fatalf("particle count %d -> %d", len(before), len(after))
	}
	for i := range before {
		if after[i].dims != before[i].dims || after[i].branches != before[i].branches {
			t.Errorf("particle %d: %+v -> %+v", i, before[i], after[i])
		}
		if !vecNear(after[i].pos, before[i].pos, 1e-9) {
			t.Errorf("particle %d moved %v -> %v", i, before[i].pos, after[i].pos)
		}
	}
}

func TestSeedOnlyZeroGrowth(t *testing.T) {
	s := newTestStepper(nil, 1)
	id := s.Forest.PlantSeed(vecmath.V3(1, 2, 3), pointUp)
	p0 := *s.Forest.Get(id)
	cfg := DefaultTickConfig()
	cfg.GrowthRate = 0
	for i := 0; i < 100; i++ {
		s.Tick(cfg, dt)
	}
	p := s.Forest.Get(id)
	if p.Dimensions != p0.Dimensions || p.Position != p0.Position || p.BranchCount != 0 || s.Forest.Len() != 1 {
		t.Errorf("seed changed at zero growth: %v %v", p.Dimensions, p.Position)
	}
}

// Scenario: a lone seed with lateral branching off grows one unbranched chain.
func TestSingleChain(t *testing.T) {
	s := newTestStepper(surface.Empty{}, 42)
	s.Forest.PlantSeed(vecmath.Zero, pointUp)

	apical := 0
	for i := 0; i < 1000; i++ {
		rep := s.Tick(apicalOnly(), dt)
		if rep.Lateral() != 0 {
			t.Fatal("lateral branch with lateral branching disabled")
		}
		apical += rep.Apical()
	}

	f := s.Forest
	if f.Len() != 1+apical {
		t.Errorf("%d particles, want 1 + %d apical extensions", f.Len(), apical)
	}
	if apical < 5 {
		t.Errorf("only %d apical extensions in 1000 ticks", apical)
	}
	for i := 0; i < f.Len(); i++ {
		p := f.Get(ID(i))
		if len(p.Children) > 1 {
			t.Errorf("particle %d has %d children", i, len(p.Children))
		}
		if i < f.Len()-1 {
			if !p.FullyGrown() {
				t.Errorf("particle %d of %d not fully grown: %v", i, f.Len(), p.Dimensions)
			}
			if len(p.Children) != 1 || p.Children[0] != ID(i+1) {
				t.Errorf("particle %d children %v, want [%d]", i, p.Children, i+1)
			}
		}
	}
	if err := f.Validate(); err != nil {
		t.Error(err)
	}
}

// Scenario: lateral branching on with zero probability matches the chain above.
func TestZeroLateralProbabilityMatchesChain(t *testing.T) {
	run := func(cfg TickConfig) *Forest {
		s := newTestStepper(surface.Empty{}, 42)
		s.Forest.PlantSeed(vecmath.Zero, pointUp)
		for i := 0; i < 1000; i++ {
			if rep := s.Tick(cfg, dt); rep.Lateral() != 0 {
				t.Fatal("lateral branch at zero probability")
			}
		}
		return s.Forest
	}

	cfg := apicalOnly()
	chain := run(cfg)
	cfg.AllowLateralBranching = true
	cfg.LateralBranchProbability = 0
	other := run(cfg)

	if chain.Len() != other.Len() {
		t.Fatalf("particle counts %d vs %d", chain.Len(), other.Len())
	}
	for i := 0; i < chain.Len(); i++ {
		a, b := chain.Get(ID(i)), other.Get(ID(i))
		if a.Position != b.Position || a.Dimensions != b.Dimensions || a.Orientation != b.Orientation {
			t.Errorf("particle %d differs", i)
		}
	}
}

// Scenario: a seed grows down toward a floor; the chain is turned away
// instead of running through it.
func TestPenetrationIsCorrected(t *testing.T) {
	const floorY = -1.5
	floor := surface.NewPlane(vecmath.V3(0, floorY, 0), vecmath.Up, 40)
	s := newTestStepper(floor, 42)
	s.Forest.PlantSeed(vecmath.Zero, pointDown)

	penetrations, corrections := 0, 0
	lowest := math.Inf(1)
	for i := 0; i < 1500; i++ {
		rep := s.Tick(apicalOnly(), dt)
		penetrations += rep.Penetrations
		corrections += rep.Corrections
		for j := 0; j < s.Forest.Len(); j++ {
			lowest = math.Min(lowest, s.Forest.Get(ID(j)).Tip().Y)
		}
	}

	if penetrations == 0 || corrections == 0 {
		t.Fatalf("penetrations=%d corrections=%d, want both > 0", penetrations, corrections)
	}
	if lowest < floorY-s.Forest.Params.MaxLength {
		t.Errorf("lowest tip %v ran through the floor at %v", lowest, floorY)
	}
	assertFinite(t, s.Forest)
}

// Scenario: with a probe that never answers, growth and branching continue
// and no surface term is ever applied.
func TestNullProbe(t *testing.T) {
	probe := &nullProbe{}
	s := newTestStepper(probe, 42)
	s.Forest.PlantSeed(vecmath.Zero, pointUp)

	// Anchor of every particle as it was when the particle appeared.
	anchors := []vecmath.Vec3{s.Forest.Get(0).AnchorPoint}
	rep := TickReport{}
	apical, lateral := 0, 0
	for i := 0; i < 1500; i++ {
		rep = s.Tick(branchy(), dt)
		apical += rep.Apical()
		lateral += rep.Lateral()
		if rep.Penetrations != 0 || rep.Corrections != 0 {
			t.Fatalf("tick %d: penetration reported without a surface", i)
		}
		for id := len(anchors); id < s.Forest.Len(); id++ {
			anchors = append(anchors, s.Forest.Get(ID(id)).AnchorPoint)
		}
	}
	if apical == 0 || lateral == 0 {
		t.Errorf("apical=%d lateral=%d, want growth to continue", apical, lateral)
	}
	if probe.calls == 0 {
		t.Error("probe never consulted")
	}

	f := s.Forest
	for i := 0; i < f.Len(); i++ {
		p := f.Get(ID(i))
		if p.HasAnchor || p.HasSurfaceNormal {
			t.Errorf("particle %d picked up surface data", i)
		}
		if !vecNear(p.AnchorPoint, anchors[i], 1e-12) {
			t.Errorf("particle %d anchor moved from %v to %v", i, anchors[i], p.AnchorPoint)
		}
		if _, ok := f.Vs(ID(i)); ok {
			t.Errorf("particle %d has an anchor vector", i)
		}
	}
}

type recordingSink struct {
	calls map[ID][]ParticleView
	count int
}

func (r *recordingSink) SyncPlant(plant ID, views []ParticleView) {
	if r.calls == nil {
		r.calls = map[ID][]ParticleView{}
	}
	r.calls[plant] = views
	r.count++
}

func TestRenderSync(t *testing.T) {
	sink := &recordingSink{}
	s := newTestStepper(nil, 3)
	s.Sink = sink
	a := s.Forest.PlantSeed(vecmath.Zero, pointUp)
	b := s.Forest.PlantSeed(vecmath.V3(5, 0, 0), pointUp)

	cfg := branchy()
	cfg.RenderingEnabled = false
	for i := 0; i < 300; i++ {
		s.Tick(cfg, dt)
	}
	if sink.count != 0 {
		t.Fatalf("sink called %d times with rendering disabled", sink.count)
	}

	cfg.RenderingEnabled = true
	s.Tick(cfg, dt)
	if sink.count != 2 {
		t.Fatalf("sink called %d times, want once per plant", sink.count)
	}

	total := 0
	for _, root := range []ID{a, b} {
		views := sink.calls[root]
		if len(views) == 0 || views[0].ID != root || views[0].Role != RoleSeed || !views[0].IsSeed {
			t.Fatalf("plant %d: first view %+v, want the seed", root, views)
		}
		seen := map[ID]bool{}
		for _, v := range views {
			if v.Parent != NoParent && !seen[v.Parent] {
				t.Errorf("plant %d: view %d precedes its parent", root, v.ID)
			}
			if s.Forest.Root(v.ID) != root {
				t.Errorf("view %d belongs to another plant", v.ID)
			}
			seen[v.ID] = true
		}
		total += len(views)
	}
	if total != s.Forest.Len() {
		t.Errorf("views cover %d of %d particles", total, s.Forest.Len())
	}
}

type phaseLog []string

func (p *phaseLog) StartPhase(name string) { *p = append(*p, name) }

func TestStepperClockAndPhases(t *testing.T) {
	var log phaseLog
	s := newTestStepper(nil, 1)
	s.Timer = &log
	s.Forest.PlantSeed(vecmath.Zero, pointUp)

	for i := 0; i < 120; i++ {
		s.Tick(DefaultTickConfig(), dt)
	}
	if s.Ticks() != 120 {
		t.Errorf("Ticks() = %d", s.Ticks())
	}
	if now := s.Now(); now < 1999 || now > 2000 {
		t.Errorf("Now() = %d ms after 2 s", now)
	}

	want := []string{PhaseGrowth, PhaseOrientation, PhaseBranching, PhaseApical, PhaseMeshSync}
	if !reflect.DeepEqual([]string(log[:5]), want) {
		t.Errorf("phases %v, want %v", log[:5], want)
	}

	s.Restore(10, 500)
	if s.Ticks() != 10 || s.Now() != 500 {
		t.Errorf("after Restore: ticks=%d now=%d", s.Ticks(), s.Now())
	}
}

func TestProbeCounters(t *testing.T) {
	s := newTestStepper(surface.NewPlane(vecmath.Zero, vecmath.Up, 20), 1)
	s.Forest.PlantSeed(vecmath.Zero, pointUp)
	queries, hits := 0, 0
	for i := 0; i < 200; i++ {
		rep := s.Tick(apicalOnly(), dt)
		queries += rep.ProbeQueries
		hits += rep.ProbeHits
	}
	if queries == 0 || hits == 0 {
		t.Errorf("queries=%d hits=%d, want both > 0", queries, hits)
	}
}

func TestRestoreForest(t *testing.T) {
	s := newTestStepper(nil, 5)
	s.Forest.PlantSeed(vecmath.Zero, pointUp)
	for i := 0; i < 800; i++ {
		s.Tick(branchy(), dt)
	}

	saved := append([]Particle(nil), s.Forest.Particles()...)
	f, err := RestoreForest(s.Forest.Params, saved)
	if err != nil {
		t.Fatal(err)
	}
	if f.Len() != s.Forest.Len() || !reflect.DeepEqual(f.Roots(), s.Forest.Roots()) {
		t.Fatalf("restored %d particles, %v roots", f.Len(), f.Roots())
	}
	for i := 0; i < f.Len(); i++ {
		if f.Get(ID(i)).Position != s.Forest.Get(ID(i)).Position {
			t.Errorf("particle %d position differs", i)
		}
	}

	saved[len(saved)-1].Parent = ID(len(saved) - 1)
	if _, err := RestoreForest(s.Forest.Params, saved); err == nil {
		t.Error("self-parented particle accepted")
	}
}
