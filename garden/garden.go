// Package garden ties a growing forest to its surface, render sinks and
// telemetry. It is the application layer shared by the viewer, the headless
// runner and the stream server.
package garden

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/pthm-cable/tendril/config"
	"github.com/pthm-cable/tendril/growth"
	"github.com/pthm-cable/tendril/render"
	"github.com/pthm-cable/tendril/surface"
	"github.com/pthm-cable/tendril/telemetry"
	"github.com/pthm-cable/tendril/vecmath"
)

// rayHeight is how far above a requested point PlantAt starts its downward
// ray when snapping to the surface.
const rayHeight = 1000.0

// ErrNoSurface is returned by PlantAt when the point lies outside the surface.
var ErrNoSurface = errors.New("garden: no surface below point")

// Options holds configuration for garden initialization.
type Options struct {
	Config         *config.Config // nil = embedded defaults
	Seed           int64
	Seeds          int // seeds planted at startup; 0 = use config
	LogStats       bool
	SnapshotDir    string
	OutputDir      string
	StepsPerUpdate int // 0 = use config

	// Sinks are notified after the built-in mesh sync.
	Sinks []growth.RenderSink

	// Resume starts from a saved forest instead of planting seeds.
	Resume *telemetry.Snapshot

	StatsCallback func(telemetry.WindowStats)
}

// Garden holds the complete simulation state.
type Garden struct {
	cfg     *config.Config
	rngSeed int64
	rngSrc  *growth.CountingSource
	rng     *rand.Rand

	forest  *growth.Forest
	stepper *growth.Stepper
	mesh    *surface.Mesh // nil when the surface kind is none
	sync    *render.MeshSync
	sinks   render.Multi

	tickCfg        growth.TickConfig
	dt             float64
	stepsPerUpdate int
	last           growth.TickReport

	// Telemetry
	perf          *telemetry.PerfCollector
	collector     *telemetry.Collector
	bookmarks     *telemetry.BookmarkDetector
	plants        *telemetry.PlantTracker
	output        *telemetry.OutputManager
	snapshotDir   string
	logStats      bool
	statsCallback func(telemetry.WindowStats)
}

// New builds the surface, wires the stepper to the render sinks and
// telemetry, and plants the initial seeds.
func New(opts Options) (*Garden, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(""); err != nil {
			return nil, err
		}
	}

	src := growth.NewCountingSource(opts.Seed)
	if opts.Resume != nil {
		src.Skip(opts.Resume.RNGDraws)
	}
	g := &Garden{
		cfg:            cfg,
		rngSeed:        opts.Seed,
		rngSrc:         src,
		rng:            rand.New(src),
		sync:           render.NewMeshSync(),
		tickCfg:        cfg.TickConfig(),
		dt:             cfg.Simulation.DT,
		stepsPerUpdate: cfg.Simulation.StepsPerUpdate,
		perf:           telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		collector:      telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Simulation.DT),
		bookmarks:      telemetry.NewBookmarkDetector(5),
		plants:         telemetry.NewPlantTracker(),
		snapshotDir:    opts.SnapshotDir,
		logStats:       opts.LogStats,
		statsCallback:  opts.StatsCallback,
	}
	if opts.StepsPerUpdate > 0 {
		g.stepsPerUpdate = opts.StepsPerUpdate
	}
	if g.stepsPerUpdate < 1 {
		g.stepsPerUpdate = 1
	}

	g.mesh = buildSurface(cfg, opts.Seed)
	var probe surface.Probe = surface.Empty{}
	if g.mesh != nil {
		probe = g.mesh
	}

	g.sinks = append(render.Multi{g.sync}, opts.Sinks...)

	if opts.Resume != nil {
		forest, err := opts.Resume.Forest()
		if err != nil {
			return nil, fmt.Errorf("resuming snapshot: %w", err)
		}
		g.forest = forest
		g.stepper = growth.NewStepper(forest, probe, g.sinks, g.rng)
		g.stepper.Restore(opts.Resume.Tick, opts.Resume.NowMs)
		g.tickCfg = opts.Resume.Runtime
		g.collector.Restart(opts.Resume.Tick)
		for _, root := range forest.Roots() {
			g.plants.Register(root, opts.Resume.Tick)
		}
	} else {
		g.forest = growth.NewForest(cfg.Params())
		g.stepper = growth.NewStepper(g.forest, probe, g.sinks, g.rng)
	}
	g.stepper.Timer = g.perf

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	g.output = output
	if err := g.output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	if opts.Resume == nil {
		n := cfg.Simulation.Seeds
		if opts.Seeds > 0 {
			n = opts.Seeds
		}
		g.plantInitial(n, cfg.Simulation.SeedSpread)
	}

	return g, nil
}

// buildSurface returns the configured surface mesh, or nil for none.
func buildSurface(cfg *config.Config, seed int64) *surface.Mesh {
	switch cfg.Surface.Kind {
	case "terrain":
		return surface.NewTerrain(cfg.Terrain(), seed).Mesh
	case "plane":
		return surface.NewPlane(vecmath.V3(0, cfg.Surface.BaseHeight, 0), vecmath.Up, cfg.Surface.Size)
	default:
		return nil
	}
}

// plantInitial scatters n seeds uniformly over a disc of the given radius.
func (g *Garden) plantInitial(n int, spread float64) {
	for i := 0; i < n; i++ {
		r := spread * math.Sqrt(g.rng.Float64())
		a := g.rng.Float64() * 2 * math.Pi
		p := vecmath.V3(r*math.Cos(a), 0, r*math.Sin(a))
		if _, err := g.PlantAt(p); err != nil {
			slog.Warn("seed not planted", "x", p.X, "z", p.Z, "error", err)
		}
	}
}

// PlantAt drops point onto the surface and plants a seed there, growing
// along the surface normal. Without a surface the seed is planted at point
// facing up.
func (g *Garden) PlantAt(point vecmath.Vec3) (growth.ID, error) {
	pos, normal := point, vecmath.Up
	if g.mesh != nil {
		origin := vecmath.V3(point.X, point.Y+rayHeight, point.Z)
		hit, tri, ok := g.mesh.Raycast(origin, vecmath.Up.Negate())
		if !ok {
			return growth.NoParent, ErrNoSurface
		}
		pos, normal = hit, tri.Normal()
	}
	return g.plant(pos, normal), nil
}

// PlantOnRay plants a seed where the ray first hits the surface.
func (g *Garden) PlantOnRay(origin, dir vecmath.Vec3) (growth.ID, error) {
	if g.mesh == nil {
		return growth.NoParent, ErrNoSurface
	}
	hit, tri, ok := g.mesh.Raycast(origin, dir)
	if !ok {
		return growth.NoParent, ErrNoSurface
	}
	return g.plant(hit, tri.Normal()), nil
}

func (g *Garden) plant(pos, normal vecmath.Vec3) growth.ID {
	id := g.forest.PlantSeed(pos, vecmath.QuatFromDirection(normal))
	g.plants.Register(id, g.stepper.Ticks())
	slog.Debug("seed planted", "plant", id, "x", pos.X, "y", pos.Y, "z", pos.Z)
	return id
}

// SetTickConfig replaces the runtime configuration used from the next tick.
func (g *Garden) SetTickConfig(cfg growth.TickConfig) {
	if cfg.GrowthRate < 0 {
		cfg.GrowthRate = 0
	}
	cfg.LateralBranchProbability = vecmath.Clamp(cfg.LateralBranchProbability, 0, 1)
	if cfg.LateralBranchCooldownMs < 0 {
		cfg.LateralBranchCooldownMs = 0
	}
	g.tickCfg = cfg
}

// TickConfig returns the runtime configuration in effect.
func (g *Garden) TickConfig() growth.TickConfig {
	return g.tickCfg
}

// Step runs StepsPerUpdate ticks.
func (g *Garden) Step() {
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.tickOnce()
	}
}

// tickOnce advances the simulation by one tick and feeds telemetry.
func (g *Garden) tickOnce() {
	g.perf.StartTick()
	g.last = g.stepper.Tick(g.tickCfg, g.dt)

	g.perf.StartPhase(telemetry.PhaseTelemetry)
	g.collector.Record(&g.last)
	g.plants.Record(g.forest, &g.last)
	g.flushTelemetry()
	g.perf.EndTick()
}

// Snapshot captures the current forest, clock and random stream position.
func (g *Garden) Snapshot() *telemetry.Snapshot {
	return telemetry.CaptureSnapshot(g.stepper, g.tickCfg, g.rngSeed, g.rngSrc.Draws())
}

// Unload writes the per-plant summary and closes output files.
func (g *Garden) Unload() {
	if err := g.output.WritePlants(g.plants.All()); err != nil {
		slog.Error("failed to write plants", "error", err)
	}
	if err := g.output.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}

// Tick returns the number of completed ticks.
func (g *Garden) Tick() int64 { return g.stepper.Ticks() }

// Now returns the simulation clock in milliseconds.
func (g *Garden) Now() int64 { return g.stepper.Now() }

// Forest returns the forest. It must not be modified.
func (g *Garden) Forest() *growth.Forest { return g.forest }

// Surface returns the surface mesh, or nil when there is none.
func (g *Garden) Surface() *surface.Mesh { return g.mesh }

// MeshSync returns the built-in render sink.
func (g *Garden) MeshSync() *render.MeshSync { return g.sync }

// LastReport returns the report of the most recent tick.
func (g *Garden) LastReport() growth.TickReport { return g.last }

// Perf returns the current performance statistics.
func (g *Garden) Perf() telemetry.PerfStats { return g.perf.Stats() }

// RecordFrame marks a rendered frame for FPS reporting.
func (g *Garden) RecordFrame() { g.perf.RecordFrame() }

// Plants returns per-plant statistics.
func (g *Garden) Plants() *telemetry.PlantTracker { return g.plants }

// Config returns the configuration the garden was built with.
func (g *Garden) Config() *config.Config { return g.cfg }
