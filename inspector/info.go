package inspector

import (
	"github.com/pthm-cable/tendril/growth"
	"github.com/pthm-cable/tendril/vecmath"
)

// ParticleInfo is the inspector's view of one particle.
type ParticleInfo struct {
	ID          growth.ID           `inspect:"label"`
	Parent      growth.ID           `inspect:"label"`
	Plant       growth.ID           `inspect:"label"`
	Role        growth.Role         `inspect:"label"`
	State       growth.State        `inspect:"label"`
	Depth       int                 `inspect:"label"`
	Children    int                 `inspect:"label"`
	Branches    int                 `inspect:"label"`
	Position    vecmath.Vec3        `inspect:"vec"`
	Direction   vecmath.Vec3        `inspect:"vec"`
	Orientation vecmath.Quat        `inspect:"label"`
	Radius      float64             `inspect:"label,fmt:%.3f"`
	Length      float64             `inspect:"label,fmt:%.3f"`
	RadiusGrown float64             `inspect:"bar"`
	LengthGrown float64             `inspect:"bar"`
	Mass        float64             `inspect:"label,fmt:%.4f"`
	Speed       float64             `inspect:"label,fmt:%.3f"`
	Fit         vecmath.PolarMethod `inspect:"label"`
	Anchor      vecmath.Vec3        `inspect:"vec"`
	HasAnchor   bool                `inspect:"bool"`
	Penetrating bool                `inspect:"bool"`
	AgeMs       int64               `inspect:"label,fmt:%dms"`
}

// NewParticleInfo gathers the displayed state of id at simulation time now.
func NewParticleInfo(f *growth.Forest, id growth.ID, now int64) ParticleInfo {
	p := f.Get(id)
	v := f.View(id)
	return ParticleInfo{
		ID:          p.ID,
		Parent:      p.Parent,
		Plant:       f.Root(id),
		Role:        v.Role,
		State:       p.State(),
		Depth:       p.Depth,
		Children:    len(p.Children),
		Branches:    p.BranchCount,
		Position:    p.Position,
		Direction:   v.Direction,
		Orientation: p.Orientation,
		Radius:      p.Radius(),
		Length:      p.Dimensions.Z,
		RadiusGrown: fraction(p.Dimensions.X, p.MaxDimensions.X),
		LengthGrown: fraction(p.Dimensions.Z, p.MaxDimensions.Z),
		Mass:        p.Mass,
		Speed:       p.Velocity.Length(),
		Fit:         f.FitMethod(id),
		Anchor:      p.AnchorPoint,
		HasAnchor:   p.HasAnchor,
		Penetrating: p.IsPenetrating,
		AgeMs:       now - p.CreatedAt,
	}
}

func fraction(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return v / max
}
