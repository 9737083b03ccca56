package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/tendril/growth"
)

// Frame types sent to clients.
const (
	FrameHello = "hello"
	FramePlant = "plant"
	FrameError = "error"
)

// Command types accepted from clients.
const (
	CommandPlant  = "plant"
	CommandConfig = "config"
)

// Frame is one server-to-client message.
type Frame struct {
	Type      string         `json:"type"`
	Tick      int64          `json:"tick"`
	Plant     *growth.ID     `json:"plant,omitempty"`
	Particles []WireParticle `json:"particles,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// WireParticle is the compact client encoding of a particle view.
type WireParticle struct {
	ID       growth.ID  `json:"id"`
	Parent   growth.ID  `json:"parent"`
	Position [3]float32 `json:"pos"`
	Tip      [3]float32 `json:"tip"`
	Rotation [4]float32 `json:"rot"` // x, y, z, w
	Radius   float32    `json:"r"`
	Length   float32    `json:"len"`
	Depth    int        `json:"depth"`
	Role     string     `json:"role"`
	Grown    bool       `json:"grown,omitempty"`
}

// NewWireParticle converts a render view.
func NewWireParticle(v *growth.ParticleView) WireParticle {
	q := v.Orientation
	return WireParticle{
		ID:       v.ID,
		Parent:   v.Parent,
		Position: [3]float32{float32(v.Position.X), float32(v.Position.Y), float32(v.Position.Z)},
		Tip:      [3]float32{float32(v.Tip.X), float32(v.Tip.Y), float32(v.Tip.Z)},
		Rotation: [4]float32{float32(q.X), float32(q.Y), float32(q.Z), float32(q.W)},
		Radius:   float32(v.Dimensions.X),
		Length:   float32(v.Dimensions.Z),
		Depth:    v.Depth,
		Role:     v.Role.String(),
		Grown:    v.FullyGrown,
	}
}

// EncodePlant encodes one plant sync as a JSON frame.
func EncodePlant(tick int64, plant growth.ID, views []growth.ParticleView) ([]byte, error) {
	frame := Frame{
		Type:      FramePlant,
		Tick:      tick,
		Plant:     &plant,
		Particles: make([]WireParticle, len(views)),
	}
	for i := range views {
		frame.Particles[i] = NewWireParticle(&views[i])
	}
	return json.Marshal(frame)
}

func encodeSimple(typ string, tick int64, msg string) []byte {
	data, _ := json.Marshal(Frame{Type: typ, Tick: tick, Error: msg})
	return data
}

// ConfigPatch carries the runtime settings a client wants to change. Unset
// fields keep their current value.
type ConfigPatch struct {
	GrowthRate               *float64 `json:"growth_rate,omitempty"`
	AllowLateralBranching    *bool    `json:"allow_lateral_branching,omitempty"`
	LateralBranchProbability *float64 `json:"lateral_branch_probability,omitempty"`
	LateralBranchCooldownMs  *int64   `json:"lateral_branch_cooldown_ms,omitempty"`
	RenderingEnabled         *bool    `json:"rendering_enabled,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ConfigPatch) Empty() bool {
	return p.GrowthRate == nil && p.AllowLateralBranching == nil &&
		p.LateralBranchProbability == nil && p.LateralBranchCooldownMs == nil &&
		p.RenderingEnabled == nil
}

// Apply returns cfg with the patch applied.
func (p ConfigPatch) Apply(cfg growth.TickConfig) growth.TickConfig {
	if p.GrowthRate != nil {
		cfg.GrowthRate = *p.GrowthRate
	}
	if p.AllowLateralBranching != nil {
		cfg.AllowLateralBranching = *p.AllowLateralBranching
	}
	if p.LateralBranchProbability != nil {
		cfg.LateralBranchProbability = *p.LateralBranchProbability
	}
	if p.LateralBranchCooldownMs != nil {
		cfg.LateralBranchCooldownMs = *p.LateralBranchCooldownMs
	}
	if p.RenderingEnabled != nil {
		cfg.RenderingEnabled = *p.RenderingEnabled
	}
	return cfg
}

func (p ConfigPatch) validate() error {
	if p.Empty() {
		return errors.New("config command sets no fields")
	}
	if p.GrowthRate != nil && (*p.GrowthRate < 0 || math.IsNaN(*p.GrowthRate)) {
		return fmt.Errorf("growth_rate must be >= 0, got %v", *p.GrowthRate)
	}
	if v := p.LateralBranchProbability; v != nil && !(*v >= 0 && *v <= 1) {
		return fmt.Errorf("lateral_branch_probability must be in [0, 1], got %v", *v)
	}
	if p.LateralBranchCooldownMs != nil && *p.LateralBranchCooldownMs < 0 {
		return fmt.Errorf("lateral_branch_cooldown_ms must be >= 0, got %d", *p.LateralBranchCooldownMs)
	}
	return nil
}

// Command is one client-to-server message. Config fields sit at the top
// level next to the type.
type Command struct {
	Type  string      `json:"type"`
	Point *[3]float64 `json:"point,omitempty"`
	ConfigPatch
}

// ParseCommand decodes and validates a client message.
func ParseCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("parsing command: %w", err)
	}

	switch cmd.Type {
	case CommandPlant:
		if cmd.Point == nil {
			return Command{}, errors.New("plant command needs a point")
		}
		for _, c := range cmd.Point {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return Command{}, fmt.Errorf("plant point %v is not finite", *cmd.Point)
			}
		}
	case CommandConfig:
		if err := cmd.validate(); err != nil {
			return Command{}, err
		}
	default:
		return Command{}, fmt.Errorf("unknown command type %q", cmd.Type)
	}
	return cmd, nil
}
