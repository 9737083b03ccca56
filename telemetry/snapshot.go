package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/tendril/growth"
	"github.com/pthm-cable/tendril/vecmath"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the complete forest state for inspection or resuming.
type Snapshot struct {
	Version int   `json:"version"`
	RNGSeed int64 `json:"rng_seed"`
	// RNGDraws is how far the seeded stream had advanced; skipping that
	// many draws on resume continues the run where it stopped.
	RNGDraws int64 `json:"rng_draws,omitempty"`

	Tick  int64 `json:"tick"`
	NowMs int64 `json:"now_ms"`

	Params    growth.Params     `json:"params"`
	Runtime   growth.TickConfig `json:"runtime"`
	Particles []ParticleState   `json:"particles"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// ParticleState holds one particle's persistent state. Solver scratch and
// probe caches are rebuilt on load.
type ParticleState struct {
	ID       growth.ID   `json:"id"`
	Parent   growth.ID   `json:"parent"`
	Children []growth.ID `json:"children,omitempty"`
	Depth    int         `json:"depth"`

	Position        vecmath.Vec3 `json:"position"`
	RestPosition    vecmath.Vec3 `json:"rest_position"`
	Velocity        vecmath.Vec3 `json:"velocity"`
	AngularVelocity vecmath.Vec3 `json:"angular_velocity"`
	Orientation     vecmath.Quat `json:"orientation"`

	Dimensions    vecmath.Vec3 `json:"dimensions"`
	MaxDimensions vecmath.Vec3 `json:"max_dimensions"`
	DepthWeight   float64      `json:"depth_weight"`

	IsSeed          bool `json:"seed,omitempty"`
	IsLateralBranch bool `json:"lateral,omitempty"`
	HasApicalChild  bool `json:"apical_child,omitempty"`

	BranchCount         int   `json:"branch_count"`
	LastBranchTimestamp int64 `json:"last_branch_ms"`
	CreatedAt           int64 `json:"created_ms"`

	GrowthBiasAxis     vecmath.Vec3 `json:"bias_axis"`
	GrowthBiasAngle    float64      `json:"bias_angle"`
	PreferredDirection vecmath.Vec3 `json:"preferred_direction"`

	LastSurfaceNormal vecmath.Vec3 `json:"surface_normal"`
	HasSurfaceNormal  bool         `json:"has_surface_normal,omitempty"`
	AnchorPoint       vecmath.Vec3 `json:"anchor"`
	HasAnchor         bool         `json:"has_anchor,omitempty"`
	IsPenetrating     bool         `json:"penetrating,omitempty"`
}

// CaptureParticle converts a live particle to its saved form.
func CaptureParticle(p *growth.Particle) ParticleState {
	return ParticleState{
		ID:                  p.ID,
		Parent:              p.Parent,
		Children:            append([]growth.ID(nil), p.Children...),
		Depth:               p.Depth,
		Position:            p.Position,
		RestPosition:        p.RestPosition,
		Velocity:            p.Velocity,
		AngularVelocity:     p.AngularVelocity,
		Orientation:         p.Orientation,
		Dimensions:          p.Dimensions,
		MaxDimensions:       p.MaxDimensions,
		DepthWeight:         p.DepthWeight,
		IsSeed:              p.IsSeed,
		IsLateralBranch:     p.IsLateralBranch,
		HasApicalChild:      p.HasApicalChild,
		BranchCount:         p.BranchCount,
		LastBranchTimestamp: p.LastBranchTimestamp,
		CreatedAt:           p.CreatedAt,
		GrowthBiasAxis:      p.GrowthBiasAxis,
		GrowthBiasAngle:     p.GrowthBiasAngle,
		PreferredDirection:  p.PreferredDirection,
		LastSurfaceNormal:   p.LastSurfaceNormal,
		HasSurfaceNormal:    p.HasSurfaceNormal,
		AnchorPoint:         p.AnchorPoint,
		HasAnchor:           p.HasAnchor,
		IsPenetrating:       p.IsPenetrating,
	}
}

// Particle converts the saved form back to a particle for growth.RestoreForest.
func (s *ParticleState) Particle() growth.Particle {
	return growth.Particle{
		ID:                  s.ID,
		Parent:              s.Parent,
		Children:            s.Children,
		Depth:               s.Depth,
		Position:            s.Position,
		RestPosition:        s.RestPosition,
		PredictedPosition:   s.Position,
		TargetPosition:      s.Position,
		GoalPosition:        s.Position,
		Velocity:            s.Velocity,
		AngularVelocity:     s.AngularVelocity,
		Orientation:         s.Orientation,
		Dimensions:          s.Dimensions,
		MaxDimensions:       s.MaxDimensions,
		DepthWeight:         s.DepthWeight,
		IsSeed:              s.IsSeed,
		IsLateralBranch:     s.IsLateralBranch,
		HasApicalChild:      s.HasApicalChild,
		BranchCount:         s.BranchCount,
		LastBranchTimestamp: s.LastBranchTimestamp,
		CreatedAt:           s.CreatedAt,
		GrowthBiasAxis:      s.GrowthBiasAxis,
		GrowthBiasAngle:     s.GrowthBiasAngle,
		PreferredDirection:  s.PreferredDirection,
		LastSurfaceNormal:   s.LastSurfaceNormal,
		HasSurfaceNormal:    s.HasSurfaceNormal,
		AnchorPoint:         s.AnchorPoint,
		HasAnchor:           s.HasAnchor,
		IsPenetrating:       s.IsPenetrating,
	}
}

// CaptureSnapshot records the stepper's forest and clock, and the random
// stream position as seed plus draws taken.
func CaptureSnapshot(s *growth.Stepper, cfg growth.TickConfig, seed, draws int64) *Snapshot {
	ps := s.Forest.Particles()
	snap := &Snapshot{
		Version:   SnapshotVersion,
		RNGSeed:   seed,
		RNGDraws:  draws,
		Tick:      s.Ticks(),
		NowMs:     s.Now(),
		Params:    s.Forest.Params,
		Runtime:   cfg,
		Particles: make([]ParticleState, len(ps)),
	}
	for i := range ps {
		snap.Particles[i] = CaptureParticle(&ps[i])
	}
	return snap
}

// Forest rebuilds the saved forest.
func (snap *Snapshot) Forest() (*growth.Forest, error) {
	saved := make([]growth.Particle, len(snap.Particles))
	for i := range snap.Particles {
		saved[i] = snap.Particles[i].Particle()
	}
	return growth.RestoreForest(snap.Params, saved)
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, snapshot.Bookmark.Type)
	}
	path := filepath.Join(dir, name+".json")

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
