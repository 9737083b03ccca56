package growth

import (
	"math/rand"

	"github.com/pthm-cable/tendril/surface"
)

// Phase names reported to a PhaseTimer, one per pass.
const (
	PhaseGrowth      = "growth"
	PhaseOrientation = "orientation"
	PhaseBranching   = "branching"
	PhaseApical      = "apical"
	PhaseMeshSync    = "mesh_sync"
)

// PhaseTimer is notified as each pass begins.
type PhaseTimer interface {
	StartPhase(phase string)
}

// TickReport describes what one tick did.
type TickReport struct {
	Tick         int64
	Now          int64 // ms, after the tick
	Particles    int
	Spawns       []SpawnEvent
	Penetrations int // particles found penetrating during orientation
	Corrections  int // penetration corrections applied
	ProbeQueries int // probe calls that reached the surface index
	ProbeHits    int // probe calls served from particle caches
}

// Apical returns the number of apical spawns in the report.
func (r *TickReport) Apical() int {
	n := 0
	for _, s := range r.Spawns {
		if !s.Lateral {
			n++
		}
	}
	return n
}

// Lateral returns the number of lateral spawns in the report.
func (r *TickReport) Lateral() int {
	return len(r.Spawns) - r.Apical()
}

// Stepper advances a forest one tick at a time. It owns the simulation
// clock and the random source used for branching.
type Stepper struct {
	Forest *Forest
	Probe  surface.Probe
	Sink   RenderSink
	Timer  PhaseTimer

	rng     *rand.Rand
	tick    int64
	elapsed float64 // seconds

	queries, hits int
}

// NewStepper wires a stepper. A nil probe behaves like surface.Empty and a
// nil rng is seeded with 1.
func NewStepper(forest *Forest, probe surface.Probe, sink RenderSink, rng *rand.Rand) *Stepper {
	if probe == nil {
		probe = surface.Empty{}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Stepper{Forest: forest, Probe: probe, Sink: sink, rng: rng}
}

// Now returns the simulation clock in milliseconds.
func (s *Stepper) Now() int64 {
	return int64(s.elapsed * 1000)
}

// Ticks returns the number of completed ticks.
func (s *Stepper) Ticks() int64 {
	return s.tick
}

// Restore sets the clock, e.g. after loading a snapshot.
func (s *Stepper) Restore(tick, nowMs int64) {
	s.tick = tick
	s.elapsed = float64(nowMs) / 1000
}

// Tick runs the five passes over the whole forest: self-growth,
// orientation, lateral branching, apical extension and render sync. Each
// pass iterates the particles that existed when it began, so children
// spawned this tick are first processed next tick.
func (s *Stepper) Tick(cfg TickConfig, dt float64) TickReport {
	f := s.Forest
	s.elapsed += dt
	s.tick++
	now := s.Now()
	rep := TickReport{Tick: s.tick}

	s.phase(PhaseGrowth)
	n := f.Len()
	for i := 0; i < n; i++ {
		f.SelfGrowth(ID(i), cfg.GrowthRate, s.Probe)
	}

	s.phase(PhaseOrientation)
	s.orient(dt, &rep)

	// Branching is growth: a zero rate pauses it along with self-growth.
	s.phase(PhaseBranching)
	if cfg.GrowthRate > 0 {
		if ev, ok := s.branchLateral(cfg, dt, now); ok {
			rep.Spawns = append(rep.Spawns, ev)
		}
	}

	s.phase(PhaseApical)
	if cfg.GrowthRate > 0 {
		n = f.Len()
		for i := 0; i < n; i++ {
			if ev, ok := f.GrowApicalChild(ID(i), now, s.rng); ok {
				rep.Spawns = append(rep.Spawns, ev)
			}
		}
	}

	s.phase(PhaseMeshSync)
	if cfg.RenderingEnabled && s.Sink != nil {
		for _, root := range f.Roots() {
			s.Sink.SyncPlant(root, f.PlantViews(root))
		}
	}

	s.countProbe(&rep)
	rep.Now = now
	rep.Particles = f.Len()
	return rep
}

// orient runs the shape-matching solve and then per-particle steering. Every
// sub-pass completes over the whole forest before the next starts, so fits
// read consistent predicted positions.
func (s *Stepper) orient(dt float64, rep *TickReport) {
	f := s.Forest
	n := f.Len()
	for i := 0; i < n; i++ {
		f.particles[i].Predict(dt, f.Params.Gravity)
	}
	for i := 0; i < n; i++ {
		f.UpdateParticleGroupCentersOfMass(ID(i))
		f.UpdateLeastSquareOptimalRotation(ID(i))
	}
	for i := 0; i < n; i++ {
		f.UpdateGoalPosition(ID(i))
		f.particles[i].ApplyStiffness(f.Params.Stiffness)
	}
	for i := 0; i < n; i++ {
		f.particles[i].IntegrationScheme(dt)
	}
	for i := 0; i < n; i++ {
		res := f.PlantOrientation(ID(i), dt, f.Params.Attractor, s.Probe)
		if res.Penetrating {
			rep.Penetrations++
		}
		rep.Corrections += res.Corrections
	}
}

// branchLateral rolls once for the tick and, on success, offers a lateral
// branch to one eligible particle picked uniformly.
func (s *Stepper) branchLateral(cfg TickConfig, dt float64, now int64) (SpawnEvent, bool) {
	if !cfg.AllowLateralBranching || cfg.LateralBranchProbability <= 0 {
		return SpawnEvent{}, false
	}
	if s.rng.Float64() >= cfg.LateralBranchProbability*dt {
		return SpawnEvent{}, false
	}

	f := s.Forest
	n := f.Len()
	var candidates []ID
	for i := 0; i < n; i++ {
		if f.lateralEligible(ID(i), now, cfg.LateralBranchCooldownMs) {
			candidates = append(candidates, ID(i))
		}
	}
	if len(candidates) == 0 {
		return SpawnEvent{}, false
	}
	id := candidates[s.rng.Intn(len(candidates))]
	return f.GrowLateralBranch(id, now, cfg.LateralBranchCooldownMs, s.rng)
}

func (s *Stepper) countProbe(rep *TickReport) {
	var queries, hits int
	for i := range s.Forest.particles {
		p := &s.Forest.particles[i]
		queries += p.AnchorCache.Queries + p.TipCache.Queries
		hits += p.AnchorCache.Hits + p.TipCache.Hits
	}
	rep.ProbeQueries = queries - s.queries
	rep.ProbeHits = hits - s.hits
	s.queries, s.hits = queries, hits
}

func (s *Stepper) phase(name string) {
	if s.Timer != nil {
		s.Timer.StartPhase(name)
	}
}
