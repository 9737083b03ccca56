package stream

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/pthm-cable/tendril/growth"
	"github.com/pthm-cable/tendril/vecmath"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"plant", `{"type":"plant","point":[1,2,3]}`, ""},
		{"plant without point", `{"type":"plant"}`, "needs a point"},
		{"config rate", `{"type":"config","growth_rate":0.5}`, ""},
		{"config toggles", `{"type":"config","allow_lateral_branching":false,"rendering_enabled":true}`, ""},
		{"config empty", `{"type":"config"}`, "sets no fields"},
		{"config negative rate", `{"type":"config","growth_rate":-1}`, "growth_rate"},
		{"config probability", `{"type":"config","lateral_branch_probability":1.5}`, "lateral_branch_probability"},
		{"config cooldown", `{"type":"config","lateral_branch_cooldown_ms":-10}`, "cooldown"},
		{"unknown", `{"type":"explode"}`, "unknown command"},
		{"bad json", `{"type":`, "parsing command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCommand([]byte(tt.input))
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParsePlantPoint(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"type":"plant","point":[1.5,-2,3]}`))
	if err != nil {
		t.Fatal(err)
	}
	if *cmd.Point != [3]float64{1.5, -2, 3} {
		t.Errorf("expected point (1.5, -2, 3), got %v", *cmd.Point)
	}
}

func TestConfigPatchApply(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"type":"config","growth_rate":2,"lateral_branch_cooldown_ms":100}`))
	if err != nil {
		t.Fatal(err)
	}

	base := growth.DefaultTickConfig()
	got := cmd.Apply(base)

	if got.GrowthRate != 2 {
		t.Errorf("expected growth rate 2, got %f", got.GrowthRate)
	}
	if got.LateralBranchCooldownMs != 100 {
		t.Errorf("expected cooldown 100, got %d", got.LateralBranchCooldownMs)
	}
	// Untouched fields keep their values.
	if got.AllowLateralBranching != base.AllowLateralBranching ||
		got.LateralBranchProbability != base.LateralBranchProbability ||
		got.RenderingEnabled != base.RenderingEnabled {
		t.Errorf("unexpected changes: %+v", got)
	}
}

func TestEncodePlant(t *testing.T) {
	f := growth.NewForest(growth.DefaultParams())
	root := f.PlantSeed(vecmath.V3(1, 0, 2), vecmath.QuatFromDirection(vecmath.Up))

	data, err := EncodePlant(42, root, f.PlantViews(root))
	if err != nil {
		t.Fatal(err)
	}

	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decoding frame: %v", err)
	}
	if frame.Type != FramePlant || frame.Tick != 42 {
		t.Errorf("expected plant frame at tick 42, got %s at %d", frame.Type, frame.Tick)
	}
	if frame.Plant == nil || *frame.Plant != root {
		t.Errorf("expected plant %d, got %v", root, frame.Plant)
	}
	if len(frame.Particles) != 1 {
		t.Fatalf("expected 1 particle, got %d", len(frame.Particles))
	}
	p := frame.Particles[0]
	if p.Role != "seed" || p.Parent != growth.NoParent {
		t.Errorf("expected seed with no parent, got %s/%d", p.Role, p.Parent)
	}
	if p.Position != [3]float32{1, 0, 2} {
		t.Errorf("expected position (1, 0, 2), got %v", p.Position)
	}
	if p.Tip[1] <= 0 {
		t.Errorf("expected tip above base, got %v", p.Tip)
	}
	if !strings.Contains(string(data), `"rot":[`) {
		t.Errorf("expected compact rotation field in %s", data)
	}
}
