package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/tendril/config"
	"github.com/pthm-cable/tendril/telemetry"
)

func TestParamVectorRoundTrip(t *testing.T) {
	pv := NewParamVector()
	def := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(def))
	for i := range def {
		if math.Abs(back[i]-def[i]) > 1e-12 {
			t.Errorf("%s: got %v, want %v", pv.Specs[i].Name, back[i], def[i])
		}
	}
}

func TestDefaultsMatchConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	pv := NewParamVector()
	got := pv.ExtractFromConfig(cfg)
	if len(got) != pv.Dim() {
		t.Fatalf("extracted %d values, want %d", len(got), pv.Dim())
	}
	for i, spec := range pv.Specs {
		if got[i] != spec.Default {
			t.Errorf("%s: config has %v, spec default %v", spec.Path, got[i], spec.Default)
		}
	}
}

func TestApplyToConfigClamps(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	pv := NewParamVector()
	values := make([]float64, pv.Dim())
	for i := range values {
		values[i] = 1e6
	}
	pv.ApplyToConfig(cfg, values)

	got := pv.ExtractFromConfig(cfg)
	for i, spec := range pv.Specs {
		if got[i] != spec.Max {
			t.Errorf("%s: got %v, want max %v", spec.Path, got[i], spec.Max)
		}
	}
	if cfg.ShapeMatching.Stiffness > 1 {
		t.Errorf("stiffness %v escaped [0, 1]", cfg.ShapeMatching.Stiffness)
	}
}

func TestComputeQuality(t *testing.T) {
	fe := NewFitnessEvaluator(NewParamVector(), 10, []int64{1}, nil, 5)

	if q := fe.computeQuality(nil); q != 0 {
		t.Errorf("no windows: got %v, want 0", q)
	}

	clean := []telemetry.WindowStats{
		{Particles: 10},
		{Particles: 100, Laterals: 30, TipHeight: 10},
	}
	dirty := []telemetry.WindowStats{
		{Particles: 10},
		{Particles: 100, Laterals: 30, TipHeight: 10, Penetrations: 50},
	}
	qc, qd := fe.computeQuality(clean), fe.computeQuality(dirty)
	if qc <= qd {
		t.Errorf("clean forest scored %v, penetrating forest %v", qc, qd)
	}
	if qc <= 0 || qc > 1 {
		t.Errorf("quality %v outside (0, 1]", qc)
	}

	short := []telemetry.WindowStats{
		{Particles: 10},
		{Particles: 100, Laterals: 30, TipHeight: 1},
	}
	if fe.computeQuality(short) >= qc {
		t.Error("lower tips should score lower")
	}
}

func TestEvaluateRunsGardens(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Surface.Kind = "plane"
	cfg.Telemetry.StatsWindow = 0.5
	cfg.Simulation.Seeds = 2

	pv := NewParamVector()
	fe := NewFitnessEvaluator(pv, 120, []int64{1, 2}, cfg, 5)
	fitness := fe.Evaluate(pv.DefaultVector())
	if fitness > 0 || fitness < -1 {
		t.Errorf("fitness %v outside [-1, 0]", fitness)
	}
	if len(fe.BestStats()) == 0 {
		t.Error("best run recorded no windows")
	}
	if cfg.Orientation.Gain != 6 {
		t.Errorf("base config mutated: gain %v", cfg.Orientation.Gain)
	}
}
