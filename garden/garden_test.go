package garden

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/tendril/config"
	"github.com/pthm-cable/tendril/growth"
	"github.com/pthm-cable/tendril/telemetry"
	"github.com/pthm-cable/tendril/vecmath"
)

func testConfig(t *testing.T, kind string) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	cfg.Surface.Kind = kind
	cfg.Simulation.StepsPerUpdate = 1
	return cfg
}

func newGarden(t *testing.T, opts Options) *Garden {
	t.Helper()
	g, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(g.Unload)
	return g
}

// countSink records how often each plant was synced.
type countSink struct {
	calls  int
	plants map[growth.ID]int
}

func (c *countSink) SyncPlant(plant growth.ID, views []growth.ParticleView) {
	c.calls++
	if c.plants == nil {
		c.plants = make(map[growth.ID]int)
	}
	c.plants[plant] = len(views)
}

func TestNewPlantsSeedsOnPlane(t *testing.T) {
	g := newGarden(t, Options{Config: testConfig(t, "plane"), Seed: 7, Seeds: 4})

	roots := g.Forest().Roots()
	if len(roots) != 4 {
		t.Fatalf("expected 4 seeds, got %d", len(roots))
	}
	for _, id := range roots {
		p := g.Forest().Get(id)
		if math.Abs(p.Position.Y) > 1e-9 {
			t.Errorf("seed %d not on plane: y=%f", id, p.Position.Y)
		}
		if p.Direction().Sub(vecmath.Up).Length() > 1e-9 {
			t.Errorf("seed %d not along normal: %v", id, p.Direction())
		}
		if r := math.Hypot(p.Position.X, p.Position.Z); r > g.Config().Simulation.SeedSpread+1e-9 {
			t.Errorf("seed %d outside spread: r=%f", id, r)
		}
	}
	if g.Plants().Count() != 4 {
		t.Errorf("expected 4 tracked plants, got %d", g.Plants().Count())
	}
}

func TestNewOnTerrain(t *testing.T) {
	g := newGarden(t, Options{Config: testConfig(t, "terrain"), Seed: 3, Seeds: 2})

	if g.Surface() == nil || g.Surface().Len() == 0 {
		t.Fatal("expected a terrain mesh")
	}
	for _, id := range g.Forest().Roots() {
		p := g.Forest().Get(id)
		tri, ok := g.Surface().ClosestTriangle(p.Position)
		if !ok {
			t.Fatalf("no triangle near seed %d", id)
		}
		if d := math.Sqrt(tri.DistanceSq(p.Position)); d > 1e-6 {
			t.Errorf("seed %d is %f off the terrain", id, d)
		}
	}
}

func TestPlantAt(t *testing.T) {
	g := newGarden(t, Options{Config: testConfig(t, "plane"), Seed: 1, Seeds: 0})
	n := len(g.Forest().Roots())

	id, err := g.PlantAt(vecmath.V3(1, 5, -2))
	if err != nil {
		t.Fatalf("PlantAt: %v", err)
	}
	p := g.Forest().Get(id)
	if p.Position.Sub(vecmath.V3(1, 0, -2)).Length() > 1e-9 {
		t.Errorf("expected seed at (1, 0, -2), got %v", p.Position)
	}

	if _, err := g.PlantAt(vecmath.V3(500, 0, 500)); !errors.Is(err, ErrNoSurface) {
		t.Errorf("expected ErrNoSurface off the plane, got %v", err)
	}
	if got := len(g.Forest().Roots()); got != n+1 {
		t.Errorf("expected %d roots, got %d", n+1, got)
	}
}

func TestPlantOnRay(t *testing.T) {
	g := newGarden(t, Options{Config: testConfig(t, "plane"), Seed: 1})

	id, err := g.PlantOnRay(vecmath.V3(0, 10, 10), vecmath.V3(0, -1, -1))
	if err != nil {
		t.Fatalf("PlantOnRay: %v", err)
	}
	if p := g.Forest().Get(id); p.Position.Sub(vecmath.Zero).Length() > 1e-9 {
		t.Errorf("expected seed at origin, got %v", p.Position)
	}
	if _, err := g.PlantOnRay(vecmath.V3(0, 10, 0), vecmath.Up); !errors.Is(err, ErrNoSurface) {
		t.Errorf("expected miss upward, got %v", err)
	}
}

func TestNoSurface(t *testing.T) {
	g := newGarden(t, Options{Config: testConfig(t, "none"), Seed: 1, Seeds: 1})

	if g.Surface() != nil {
		t.Error("expected no surface mesh")
	}
	id, err := g.PlantAt(vecmath.V3(2, 3, 4))
	if err != nil {
		t.Fatalf("PlantAt: %v", err)
	}
	if p := g.Forest().Get(id); p.Position != vecmath.V3(2, 3, 4) {
		t.Errorf("expected seed at requested point, got %v", p.Position)
	}
	if _, err := g.PlantOnRay(vecmath.Zero, vecmath.Up.Negate()); !errors.Is(err, ErrNoSurface) {
		t.Errorf("expected ErrNoSurface, got %v", err)
	}

	for i := 0; i < 200; i++ {
		g.Step()
	}
	if err := g.Forest().Validate(); err != nil {
		t.Errorf("invalid forest: %v", err)
	}
}

func TestStepGrowsAndSyncs(t *testing.T) {
	sink := &countSink{}
	g := newGarden(t, Options{
		Config:         testConfig(t, "plane"),
		Seed:           5,
		Seeds:          2,
		StepsPerUpdate: 4,
		Sinks:          []growth.RenderSink{sink},
	})

	for i := 0; i < 100; i++ {
		g.Step()
	}
	if g.Tick() != 400 {
		t.Fatalf("expected 400 ticks, got %d", g.Tick())
	}
	if g.Forest().Len() <= 2 {
		t.Errorf("expected growth beyond the seeds, got %d particles", g.Forest().Len())
	}
	if sink.calls != 800 {
		t.Errorf("expected 800 syncs (2 plants x 400 ticks), got %d", sink.calls)
	}
	total := 0
	for _, n := range sink.plants {
		total += n
	}
	if total != g.Forest().Len() {
		t.Errorf("sink saw %d particles, forest has %d", total, g.Forest().Len())
	}
	if g.MeshSync().TubeCount() == 0 {
		t.Error("expected tubes in the mesh sync")
	}
	if g.LastReport().Tick != 400 {
		t.Errorf("expected last report for tick 400, got %d", g.LastReport().Tick)
	}
}

func TestSetTickConfig(t *testing.T) {
	g := newGarden(t, Options{Config: testConfig(t, "plane"), Seed: 2, Seeds: 2})

	g.SetTickConfig(growth.TickConfig{
		GrowthRate:               -1,
		LateralBranchProbability: 3,
		LateralBranchCooldownMs:  -5,
		AllowLateralBranching:    true,
	})
	cfg := g.TickConfig()
	if cfg.GrowthRate != 0 || cfg.LateralBranchProbability != 1 || cfg.LateralBranchCooldownMs != 0 {
		t.Errorf("expected clamped config, got %+v", cfg)
	}

	// Zero growth rate pauses growth and branching.
	before := g.Forest().Get(0).Dimensions
	for i := 0; i < 120; i++ {
		g.Step()
	}
	if g.Forest().Len() != 2 {
		t.Errorf("expected no spawns at rate 0, got %d particles", g.Forest().Len())
	}
	if g.Forest().Get(0).Dimensions != before {
		t.Error("expected dimensions unchanged at rate 0")
	}
}

func TestStatsCallback(t *testing.T) {
	cfg := testConfig(t, "plane")
	cfg.Telemetry.StatsWindow = 0.5

	var windows []telemetry.WindowStats
	g := newGarden(t, Options{
		Config:        cfg,
		Seed:          9,
		Seeds:         1,
		StatsCallback: func(s telemetry.WindowStats) { windows = append(windows, s) },
	})
	for i := 0; i < 90; i++ {
		g.Step()
	}

	if len(windows) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(windows))
	}
	for i, w := range windows {
		if w.WindowEndTick != int64(30*(i+1)) {
			t.Errorf("window %d ends at %d, want %d", i, w.WindowEndTick, 30*(i+1))
		}
		if w.Plants != 1 {
			t.Errorf("window %d: expected 1 plant, got %d", i, w.Plants)
		}
	}
}

func TestOutputFiles(t *testing.T) {
	cfg := testConfig(t, "plane")
	cfg.Telemetry.StatsWindow = 0.5
	dir := t.TempDir()

	g, err := New(Options{Config: cfg, Seed: 4, Seeds: 2, OutputDir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 60; i++ {
		g.Step()
	}
	g.Unload()

	for _, name := range []string{"config.yaml", "telemetry.csv", "perf.csv", "bookmarks.csv", "plants.csv"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("missing %s: %v", name, err)
			continue
		}
		if name != "bookmarks.csv" && info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestResume(t *testing.T) {
	cfg := testConfig(t, "plane")
	a := newGarden(t, Options{Config: cfg, Seed: 11, Seeds: 2})
	for i := 0; i < 150; i++ {
		a.Step()
	}

	snap := a.Snapshot()
	if snap.RNGDraws == 0 {
		t.Fatal("snapshot recorded no random draws")
	}
	b := newGarden(t, Options{Config: cfg, Seed: 11, Resume: snap})
	if b.rngSrc.Draws() != snap.RNGDraws {
		t.Errorf("resumed at draw %d, want %d", b.rngSrc.Draws(), snap.RNGDraws)
	}
	for i := 0; i < 10; i++ {
		if x, y := a.rng.Int63(), b.rng.Int63(); x != y {
			t.Fatalf("draw %d after resume: %d, uninterrupted %d", i, y, x)
		}
	}

	if b.Tick() != a.Tick() {
		t.Errorf("expected tick %d, got %d", a.Tick(), b.Tick())
	}
	if d := b.Now() - a.Now(); d < -1 || d > 1 {
		t.Errorf("expected clock near %dms, got %dms", a.Now(), b.Now())
	}
	if b.Forest().Len() != a.Forest().Len() {
		t.Errorf("expected %d particles, got %d", a.Forest().Len(), b.Forest().Len())
	}
	if len(b.Forest().Roots()) != 2 {
		t.Errorf("expected 2 roots, got %d", len(b.Forest().Roots()))
	}

	for i := 0; i < 100; i++ {
		b.Step()
	}
	if err := b.Forest().Validate(); err != nil {
		t.Errorf("invalid forest after resume: %v", err)
	}
}

func TestDeterministic(t *testing.T) {
	run := func() int {
		g := newGarden(t, Options{Config: testConfig(t, "terrain"), Seed: 21, Seeds: 3})
		for i := 0; i < 300; i++ {
			g.Step()
		}
		return g.Forest().Len()
	}
	if a, b := run(), run(); a != b {
		t.Errorf("same seed produced %d and %d particles", a, b)
	}
}
