package growth

import (
	"math"

	"github.com/pthm-cable/tendril/vecmath"
)

// Params holds the fixed tuning of the growth model. Unlike TickConfig it is
// not expected to change while a forest is running.
type Params struct {
	// Self-growth, per tick before the growth-rate multiplier.
	RadiusGrowth      float64
	LengthGrowth      float64
	InitialRadius     float64
	InitialLength     float64
	MaxRadius         float64
	MaxLength         float64
	RadiusTaper       float64 // radius cap multiplier per depth level
	MinRadiusFraction float64 // floor for the tapered cap, as a fraction of MaxRadius
	Density           float64
	DepthWeightDecay  float64

	// Shape matching.
	Stiffness float64 // fraction of the way from predicted to goal position
	Gravity   vecmath.Vec3

	// Orientation blending. Gains are per second.
	MaxStepAngle       float64 // radians per PlantOrientation call
	OrientationGain    float64
	PreferredWeight    float64
	AnchorWeight       float64
	NormalWeight       float64
	AnchorRange        float64 // anchor influence halves at this distance
	AnchorMinDistance  float64 // closer anchors are degenerate
	NormalSmoothing    float64 // blend factor toward a new surface normal
	PreferredBlendRate float64
	BiasAngleMax       float64
	DirectionJitter    float64 // radians of jitter on a new preferred direction
	Attractor          vecmath.Vec3
	AttractorStrength  float64

	// Penetration.
	ProbeDistance       float64
	PenetrationDistance float64
	CorrectionGain      float64
	MaxCorrectionAngle  float64
	PreferredNudge      float64

	// Probe caching.
	QueryThreshold      float64
	GrownQueryThreshold float64

	// Branching.
	BaseLateralChance     float64
	LateralConeMin        float64
	LateralConeMax        float64
	LateralRadiusScale    float64
	LateralLengthScale    float64
	LateralPositionMin    float64 // earliest attachment point, fraction of parent length
	ApicalTwistMax        float64
	MaxBranchesPerSegment int // 0 = unlimited
	MaxParticles          int // 0 = unlimited
}

// DefaultParams returns the stock tuning: a segment reaches full length in
// about 100 ticks and full radius slightly earlier.
func DefaultParams() Params {
	return Params{
		RadiusGrowth:      0.001,
		LengthGrowth:      0.01,
		InitialRadius:     0.01,
		InitialLength:     0.02,
		MaxRadius:         0.08,
		MaxLength:         1.0,
		RadiusTaper:       0.9,
		MinRadiusFraction: 0.2,
		Density:           1.0,
		DepthWeightDecay:  0.9,

		Stiffness: 0.8,

		MaxStepAngle:       0.1,
		OrientationGain:    6,
		PreferredWeight:    1,
		AnchorWeight:       0.6,
		NormalWeight:       0.4,
		AnchorRange:        1.5,
		AnchorMinDistance:  0.05,
		NormalSmoothing:    0.2,
		PreferredBlendRate: 0.5,
		BiasAngleMax:       0.3,
		DirectionJitter:    0.15,
		Attractor:          vecmath.V3(0, 20, 0),
		AttractorStrength:  40,

		ProbeDistance:       0.25,
		PenetrationDistance: 0.3,
		CorrectionGain:      12,
		MaxCorrectionAngle:  0.08,
		PreferredNudge:      0.5,

		QueryThreshold:      0.02,
		GrownQueryThreshold: 0.1,

		BaseLateralChance:     0.8,
		LateralConeMin:        math.Pi / 6,
		LateralConeMax:        math.Pi * 7 / 18,
		LateralRadiusScale:    0.5,
		LateralLengthScale:    0.1,
		LateralPositionMin:    0.3,
		ApicalTwistMax:        0.2,
		MaxBranchesPerSegment: 3,
	}
}

// radiusCap returns the maximum radius for a particle at depth.
func (p *Params) radiusCap(depth int) float64 {
	f := math.Pow(p.RadiusTaper, float64(depth))
	if f < p.MinRadiusFraction {
		f = p.MinRadiusFraction
	}
	return p.MaxRadius * f
}

// depthWeight returns decay^depth.
func (p *Params) depthWeight(depth int) float64 {
	return math.Pow(p.DepthWeightDecay, float64(depth))
}

// TickConfig is the runtime configuration read by one tick. Callers replace
// it between ticks; the stepper never mutates it.
type TickConfig struct {
	GrowthRate               float64 // multiplier >= 0
	AllowLateralBranching    bool
	LateralBranchProbability float64 // per second, 0..1
	LateralBranchCooldownMs  int64
	RenderingEnabled         bool
}

// DefaultTickConfig returns growth at normal speed with lateral branching on.
func DefaultTickConfig() TickConfig {
	return TickConfig{
		GrowthRate:               1,
		AllowLateralBranching:    true,
		LateralBranchProbability: 0.5,
		LateralBranchCooldownMs:  2000,
		RenderingEnabled:         true,
	}
}
