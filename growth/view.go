package growth

import (
	"slices"

	"github.com/pthm-cable/tendril/vecmath"
)

// Role is the way a particle came to exist.
type Role uint8

const (
	RoleSeed Role = iota
	RoleApical
	RoleLateral
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleApical:
		return "apical"
	case RoleLateral:
		return "lateral"
	default:
		return "seed"
	}
}

// MarshalText encodes the role by name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ParticleView is the read-only snapshot of a particle handed to render
// sinks. ID is stable for the life of the forest.
type ParticleView struct {
	ID          ID           `json:"id"`
	Parent      ID           `json:"parent"`
	Children    []ID         `json:"children,omitempty"`
	Position    vecmath.Vec3 `json:"position"`
	Tip         vecmath.Vec3 `json:"tip"`
	Dimensions  vecmath.Vec3 `json:"dimensions"`
	Orientation vecmath.Quat `json:"orientation"`
	Direction   vecmath.Vec3 `json:"direction"`
	Depth       int          `json:"depth"`
	IsSeed      bool         `json:"seed"`
	Role        Role         `json:"role"`
	FullyGrown  bool         `json:"fully_grown"`
}

// RenderSink receives the particles of one plant (one seed's tree) after
// every rendered tick. Views are ordered parents before children.
type RenderSink interface {
	SyncPlant(plant ID, views []ParticleView)
}

// View returns the render view of id.
func (f *Forest) View(id ID) ParticleView {
	p := &f.particles[id]
	role := RoleApical
	switch {
	case p.IsSeed:
		role = RoleSeed
	case p.IsLateralBranch:
		role = RoleLateral
	}
	return ParticleView{
		ID:          p.ID,
		Parent:      p.Parent,
		Children:    slices.Clone(p.Children),
		Position:    p.Position,
		Tip:         p.Tip(),
		Dimensions:  p.Dimensions,
		Orientation: p.Orientation,
		Direction:   p.Direction(),
		Depth:       p.Depth,
		IsSeed:      p.IsSeed,
		Role:        role,
		FullyGrown:  p.FullyGrown(),
	}
}

// PlantViews returns the views of every particle in the tree rooted at root,
// breadth first.
func (f *Forest) PlantViews(root ID) []ParticleView {
	views := make([]ParticleView, 0, 16)
	queue := []ID{root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		views = append(views, f.View(id))
		queue = append(queue, f.particles[id].Children...)
	}
	return views
}
