// Package config provides configuration loading for the growth simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/tendril/growth"
	"github.com/pthm-cable/tendril/surface"
	"github.com/pthm-cable/tendril/vecmath"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen        ScreenConfig        `yaml:"screen"`
	Simulation    SimulationConfig    `yaml:"simulation"`
	Growth        GrowthConfig        `yaml:"growth"`
	Branching     BranchingConfig     `yaml:"branching"`
	Orientation   OrientationConfig   `yaml:"orientation"`
	ShapeMatching ShapeMatchingConfig `yaml:"shape_matching"`
	Probe         ProbeConfig         `yaml:"probe"`
	Runtime       RuntimeConfig       `yaml:"runtime"`
	Surface       SurfaceConfig       `yaml:"surface"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Stream        StreamConfig        `yaml:"stream"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// SimulationConfig holds the fixed-step loop settings.
type SimulationConfig struct {
	DT             float64 `yaml:"dt"`               // seconds per tick
	Seeds          int     `yaml:"seeds"`            // seeds planted at startup
	SeedSpread     float64 `yaml:"seed_spread"`      // radius of the planting disc
	StepsPerUpdate int     `yaml:"steps_per_update"` // ticks per rendered frame
}

// GrowthConfig holds segment growth parameters.
type GrowthConfig struct {
	RadiusGrowth      float64 `yaml:"radius_growth"` // per tick at growth rate 1
	LengthGrowth      float64 `yaml:"length_growth"` // per tick at growth rate 1
	InitialRadius     float64 `yaml:"initial_radius"`
	InitialLength     float64 `yaml:"initial_length"`
	MaxRadius         float64 `yaml:"max_radius"`
	MaxLength         float64 `yaml:"max_length"`
	RadiusTaper       float64 `yaml:"radius_taper"`        // radius cap multiplier per depth
	MinRadiusFraction float64 `yaml:"min_radius_fraction"` // floor for the tapered cap
	Density           float64 `yaml:"density"`
	DepthWeightDecay  float64 `yaml:"depth_weight_decay"`
	MaxParticles      int     `yaml:"max_particles"` // 0 = unlimited
}

// BranchingConfig holds apical and lateral branching parameters.
// Angles are in degrees.
type BranchingConfig struct {
	BaseLateralChance     float64 `yaml:"base_lateral_chance"`
	LateralConeMinDeg     float64 `yaml:"lateral_cone_min_deg"`
	LateralConeMaxDeg     float64 `yaml:"lateral_cone_max_deg"`
	LateralRadiusScale    float64 `yaml:"lateral_radius_scale"`
	LateralLengthScale    float64 `yaml:"lateral_length_scale"`
	LateralPositionMin    float64 `yaml:"lateral_position_min"`
	ApicalTwistMaxDeg     float64 `yaml:"apical_twist_max_deg"`
	MaxBranchesPerSegment int     `yaml:"max_branches_per_segment"`
}

// OrientationConfig holds steering and penetration parameters.
// Angles are in degrees, gains per second.
type OrientationConfig struct {
	MaxStepAngleDeg       float64    `yaml:"max_step_angle_deg"`
	Gain                  float64    `yaml:"gain"`
	PreferredWeight       float64    `yaml:"preferred_weight"`
	AnchorWeight          float64    `yaml:"anchor_weight"`
	NormalWeight          float64    `yaml:"normal_weight"`
	AnchorRange           float64    `yaml:"anchor_range"`
	AnchorMinDistance     float64    `yaml:"anchor_min_distance"`
	NormalSmoothing       float64    `yaml:"normal_smoothing"`
	PreferredBlendRate    float64    `yaml:"preferred_blend_rate"`
	BiasAngleMaxDeg       float64    `yaml:"bias_angle_max_deg"`
	DirectionJitterDeg    float64    `yaml:"direction_jitter_deg"`
	Attractor             [3]float64 `yaml:"attractor"`
	AttractorStrength     float64    `yaml:"attractor_strength"`
	ProbeDistance         float64    `yaml:"probe_distance"`
	PenetrationDistance   float64    `yaml:"penetration_distance"`
	CorrectionGain        float64    `yaml:"correction_gain"`
	MaxCorrectionAngleDeg float64    `yaml:"max_correction_angle_deg"`
	PreferredNudge        float64    `yaml:"preferred_nudge"`
}

// ShapeMatchingConfig holds elasticity parameters.
type ShapeMatchingConfig struct {
	Stiffness float64    `yaml:"stiffness"`
	Gravity   [3]float64 `yaml:"gravity"`
}

// ProbeConfig holds surface query cache thresholds.
type ProbeConfig struct {
	QueryThreshold      float64 `yaml:"query_threshold"`
	GrownQueryThreshold float64 `yaml:"grown_query_threshold"`
}

// RuntimeConfig holds the values that may change while running.
type RuntimeConfig struct {
	GrowthRate               float64 `yaml:"growth_rate"`
	AllowLateralBranching    bool    `yaml:"allow_lateral_branching"`
	LateralBranchProbability float64 `yaml:"lateral_branch_probability"`
	LateralBranchCooldownMs  int64   `yaml:"lateral_branch_cooldown_ms"`
	RenderingEnabled         bool    `yaml:"rendering_enabled"`
}

// SurfaceConfig selects and shapes the surface the forest grows on.
type SurfaceConfig struct {
	Kind        string  `yaml:"kind"` // terrain, plane or none
	Size        float64 `yaml:"size"`
	Resolution  int     `yaml:"resolution"`
	Amplitude   float64 `yaml:"amplitude"`
	Frequency   float64 `yaml:"frequency"`
	Octaves     int     `yaml:"octaves"`
	Persistence float64 `yaml:"persistence"`
	Lacunarity  float64 `yaml:"lacunarity"`
	BaseHeight  float64 `yaml:"base_height"`
}

// TelemetryConfig holds telemetry settings.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // seconds of simulated time per window
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// StreamConfig holds websocket streaming settings.
type StreamConfig struct {
	Addr         string `yaml:"addr"`
	SendBuffer   int    `yaml:"send_buffer"`   // frames queued per client
	PingInterval int    `yaml:"ping_interval"` // seconds
	CommandQueue int    `yaml:"command_queue"` // pending client commands
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	StatsWindowTicks int          // Telemetry.StatsWindow in ticks
	DT32             float32      // Simulation.DT as float32
	Attractor        vecmath.Vec3 // Orientation.Attractor
	Gravity          vecmath.Vec3 // ShapeMatching.Gravity
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

// validate rejects values the simulation cannot run with.
func (c *Config) validate() error {
	switch {
	case c.Simulation.DT <= 0:
		return fmt.Errorf("simulation.dt must be positive, got %v", c.Simulation.DT)
	case c.Growth.MaxRadius <= 0 || c.Growth.MaxLength <= 0:
		return fmt.Errorf("growth.max_radius and growth.max_length must be positive")
	case c.Runtime.GrowthRate < 0:
		return fmt.Errorf("runtime.growth_rate must be >= 0, got %v", c.Runtime.GrowthRate)
	case c.Runtime.LateralBranchProbability < 0 || c.Runtime.LateralBranchProbability > 1:
		return fmt.Errorf("runtime.lateral_branch_probability must be in [0, 1], got %v", c.Runtime.LateralBranchProbability)
	case c.ShapeMatching.Stiffness < 0 || c.ShapeMatching.Stiffness > 1:
		return fmt.Errorf("shape_matching.stiffness must be in [0, 1], got %v", c.ShapeMatching.Stiffness)
	}
	switch c.Surface.Kind {
	case "terrain", "plane", "none":
	default:
		return fmt.Errorf("surface.kind %q: want terrain, plane or none", c.Surface.Kind)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Simulation.DT)
	c.Derived.StatsWindowTicks = max(1, int(math.Round(c.Telemetry.StatsWindow/c.Simulation.DT)))
	a := c.Orientation.Attractor
	c.Derived.Attractor = vecmath.V3(a[0], a[1], a[2])
	g := c.ShapeMatching.Gravity
	c.Derived.Gravity = vecmath.V3(g[0], g[1], g[2])
}

func deg(d float64) float64 {
	return d * math.Pi / 180
}

// Params returns the growth model tuning.
func (c *Config) Params() growth.Params {
	g, b, o := c.Growth, c.Branching, c.Orientation
	return growth.Params{
		RadiusGrowth:      g.RadiusGrowth,
		LengthGrowth:      g.LengthGrowth,
		InitialRadius:     g.InitialRadius,
		InitialLength:     g.InitialLength,
		MaxRadius:         g.MaxRadius,
		MaxLength:         g.MaxLength,
		RadiusTaper:       g.RadiusTaper,
		MinRadiusFraction: g.MinRadiusFraction,
		Density:           g.Density,
		DepthWeightDecay:  g.DepthWeightDecay,

		Stiffness: c.ShapeMatching.Stiffness,
		Gravity:   c.Derived.Gravity,

		MaxStepAngle:       deg(o.MaxStepAngleDeg),
		OrientationGain:    o.Gain,
		PreferredWeight:    o.PreferredWeight,
		AnchorWeight:       o.AnchorWeight,
		NormalWeight:       o.NormalWeight,
		AnchorRange:        o.AnchorRange,
		AnchorMinDistance:  o.AnchorMinDistance,
		NormalSmoothing:    o.NormalSmoothing,
		PreferredBlendRate: o.PreferredBlendRate,
		BiasAngleMax:       deg(o.BiasAngleMaxDeg),
		DirectionJitter:    deg(o.DirectionJitterDeg),
		Attractor:          c.Derived.Attractor,
		AttractorStrength:  o.AttractorStrength,

		ProbeDistance:       o.ProbeDistance,
		PenetrationDistance: o.PenetrationDistance,
		CorrectionGain:      o.CorrectionGain,
		MaxCorrectionAngle:  deg(o.MaxCorrectionAngleDeg),
		PreferredNudge:      o.PreferredNudge,

		QueryThreshold:      c.Probe.QueryThreshold,
		GrownQueryThreshold: c.Probe.GrownQueryThreshold,

		BaseLateralChance:     b.BaseLateralChance,
		LateralConeMin:        deg(b.LateralConeMinDeg),
		LateralConeMax:        deg(b.LateralConeMaxDeg),
		LateralRadiusScale:    b.LateralRadiusScale,
		LateralLengthScale:    b.LateralLengthScale,
		LateralPositionMin:    b.LateralPositionMin,
		ApicalTwistMax:        deg(b.ApicalTwistMaxDeg),
		MaxBranchesPerSegment: b.MaxBranchesPerSegment,
		MaxParticles:          g.MaxParticles,
	}
}

// TickConfig returns the runtime configuration for the first tick.
func (c *Config) TickConfig() growth.TickConfig {
	r := c.Runtime
	return growth.TickConfig{
		GrowthRate:               r.GrowthRate,
		AllowLateralBranching:    r.AllowLateralBranching,
		LateralBranchProbability: r.LateralBranchProbability,
		LateralBranchCooldownMs:  r.LateralBranchCooldownMs,
		RenderingEnabled:         r.RenderingEnabled,
	}
}

// Terrain returns the heightfield configuration.
func (c *Config) Terrain() surface.TerrainConfig {
	s := c.Surface
	return surface.TerrainConfig{
		Size:        s.Size,
		Resolution:  s.Resolution,
		Amplitude:   s.Amplitude,
		Frequency:   s.Frequency,
		Octaves:     s.Octaves,
		Persistence: s.Persistence,
		Lacunarity:  s.Lacunarity,
		BaseHeight:  s.BaseHeight,
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
