package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/tendril/growth"
	"github.com/pthm-cable/tendril/surface"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Derived.StatsWindowTicks != 300 {
		t.Errorf("StatsWindowTicks = %d, want 300", cfg.Derived.StatsWindowTicks)
	}
	if cfg.Surface.Kind != "terrain" {
		t.Errorf("Surface.Kind = %q, want terrain", cfg.Surface.Kind)
	}
	if got := cfg.TickConfig(); got != growth.DefaultTickConfig() {
		t.Errorf("TickConfig = %+v, want %+v", got, growth.DefaultTickConfig())
	}

	want := surface.DefaultTerrainConfig()
	if got := cfg.Terrain(); got != want {
		t.Errorf("Terrain = %+v, want %+v", got, want)
	}
}

func TestParamsMatchGrowthDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.Params()
	want := growth.DefaultParams()

	scalars := []struct {
		name      string
		got, want float64
	}{
		{"RadiusGrowth", got.RadiusGrowth, want.RadiusGrowth},
		{"LengthGrowth", got.LengthGrowth, want.LengthGrowth},
		{"MaxRadius", got.MaxRadius, want.MaxRadius},
		{"MaxLength", got.MaxLength, want.MaxLength},
		{"Stiffness", got.Stiffness, want.Stiffness},
		{"OrientationGain", got.OrientationGain, want.OrientationGain},
		{"AnchorWeight", got.AnchorWeight, want.AnchorWeight},
		{"ProbeDistance", got.ProbeDistance, want.ProbeDistance},
		{"PenetrationDistance", got.PenetrationDistance, want.PenetrationDistance},
		{"BaseLateralChance", got.BaseLateralChance, want.BaseLateralChance},
		{"LateralConeMin", got.LateralConeMin, want.LateralConeMin},
		{"QueryThreshold", got.QueryThreshold, want.QueryThreshold},
	}
	for _, s := range scalars {
		if math.Abs(s.got-s.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", s.name, s.got, s.want)
		}
	}
	if got.Attractor != want.Attractor {
		t.Errorf("Attractor = %v, want %v", got.Attractor, want.Attractor)
	}
	if got.MaxBranchesPerSegment != want.MaxBranchesPerSegment {
		t.Errorf("MaxBranchesPerSegment = %d, want %d", got.MaxBranchesPerSegment, want.MaxBranchesPerSegment)
	}
}

func TestAnglesConvertedToRadians(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	p := cfg.Params()
	if math.Abs(p.MaxStepAngle-6*math.Pi/180) > 1e-12 {
		t.Errorf("MaxStepAngle = %v, want 6 degrees", p.MaxStepAngle)
	}
	if math.Abs(p.LateralConeMax-70*math.Pi/180) > 1e-12 {
		t.Errorf("LateralConeMax = %v, want 70 degrees", p.LateralConeMax)
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user.yaml")
	user := []byte("runtime:\n  growth_rate: 2.5\nshape_matching:\n  gravity: [0, -9.8, 0]\n")
	if err := os.WriteFile(path, user, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Runtime.GrowthRate != 2.5 {
		t.Errorf("GrowthRate = %v, want 2.5", cfg.Runtime.GrowthRate)
	}
	// Untouched sections keep their defaults.
	if !cfg.Runtime.AllowLateralBranching {
		t.Error("AllowLateralBranching lost its default")
	}
	if cfg.Growth.MaxLength != 1.0 {
		t.Errorf("MaxLength = %v, want default 1.0", cfg.Growth.MaxLength)
	}
	if cfg.Derived.Gravity.Y != -9.8 {
		t.Errorf("Derived.Gravity = %v, want Y -9.8", cfg.Derived.Gravity)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero dt", "simulation:\n  dt: 0\n"},
		{"negative growth rate", "runtime:\n  growth_rate: -1\n"},
		{"probability above one", "runtime:\n  lateral_branch_probability: 1.5\n"},
		{"stiffness above one", "shape_matching:\n  stiffness: 2\n"},
		{"unknown surface", "surface:\n  kind: lava\n"},
		{"malformed", "runtime: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load succeeded on a missing file")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Runtime.LateralBranchCooldownMs = 750
	cfg.Surface.Kind = "plane"

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Runtime.LateralBranchCooldownMs != 750 {
		t.Errorf("cooldown = %d, want 750", back.Runtime.LateralBranchCooldownMs)
	}
	if back.Surface.Kind != "plane" {
		t.Errorf("Surface.Kind = %q, want plane", back.Surface.Kind)
	}
}
