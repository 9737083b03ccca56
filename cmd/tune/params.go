package main

import (
	"github.com/pthm-cable/tendril/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Steering
			{Name: "orientation_gain", Path: "orientation.gain", Min: 1, Max: 20, Default: 6},
			{Name: "max_step_angle", Path: "orientation.max_step_angle_deg", Min: 1, Max: 15, Default: 6},
			{Name: "preferred_weight", Path: "orientation.preferred_weight", Min: 0.1, Max: 2, Default: 1},
			{Name: "anchor_weight", Path: "orientation.anchor_weight", Min: 0, Max: 2, Default: 0.6},
			{Name: "normal_weight", Path: "orientation.normal_weight", Min: 0, Max: 2, Default: 0.4},
			// Penetration response
			{Name: "correction_gain", Path: "orientation.correction_gain", Min: 2, Max: 30, Default: 12},
			{Name: "max_correction_angle", Path: "orientation.max_correction_angle_deg", Min: 1, Max: 10, Default: 4.5},
			// Elasticity
			{Name: "stiffness", Path: "shape_matching.stiffness", Min: 0.1, Max: 1, Default: 0.8},
			// Branching
			{Name: "lateral_chance", Path: "branching.base_lateral_chance", Min: 0, Max: 1, Default: 0.8},
			{Name: "lateral_cone_max", Path: "branching.lateral_cone_max_deg", Min: 35, Max: 85, Default: 70},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes parameter values into cfg. Order must match Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	c := pv.Clamp(values)
	o := &cfg.Orientation
	o.Gain = c[0]
	o.MaxStepAngleDeg = c[1]
	o.PreferredWeight = c[2]
	o.AnchorWeight = c[3]
	o.NormalWeight = c[4]
	o.CorrectionGain = c[5]
	o.MaxCorrectionAngleDeg = c[6]
	cfg.ShapeMatching.Stiffness = c[7]
	cfg.Branching.BaseLateralChance = c[8]
	// Keep the cone non-empty.
	cfg.Branching.LateralConeMaxDeg = max(c[9], cfg.Branching.LateralConeMinDeg)
}

// ExtractFromConfig reads the current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	o := cfg.Orientation
	return []float64{
		o.Gain,
		o.MaxStepAngleDeg,
		o.PreferredWeight,
		o.AnchorWeight,
		o.NormalWeight,
		o.CorrectionGain,
		o.MaxCorrectionAngleDeg,
		cfg.ShapeMatching.Stiffness,
		cfg.Branching.BaseLateralChance,
		cfg.Branching.LateralConeMaxDeg,
	}
}
