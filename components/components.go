// Package components defines the ECS components of the render scene built
// from a growing forest.
package components

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/tendril/growth"
)

// EdgeKind distinguishes the tubes drawn for a plant.
type EdgeKind uint8

const (
	EdgeParent   EdgeKind = iota // parent base to child base
	EdgeSibling                  // between consecutive children of one parent
	EdgeTerminal                 // base to tip of a childless segment
)

// String returns the edge kind name.
func (k EdgeKind) String() string {
	switch k {
	case EdgeSibling:
		return "sibling"
	case EdgeTerminal:
		return "terminal"
	default:
		return "parent"
	}
}

// Plant tags every scene entity with the seed of its tree.
type Plant struct {
	Root growth.ID `inspect:"label"`
}

// Tube is one tapered cylinder between two particles. For terminal edges To
// equals From and the tube runs to the segment tip.
type Tube struct {
	Kind       EdgeKind   `inspect:"label"`
	From, To   growth.ID  `inspect:"label"`
	Start, End mgl32.Vec3 `inspect:"skip"`
	RadiusFrom float32    `inspect:"label,fmt:%.3f"`
	RadiusTo   float32    `inspect:"label,fmt:%.3f"`
	Depth      int        `inspect:"label"`
}

// Length returns the tube's axis length.
func (t *Tube) Length() float32 {
	return t.End.Sub(t.Start).Len()
}

// Foliage is a leaf cluster placed on a fully grown, non-seed particle.
type Foliage struct {
	Particle  growth.ID  `inspect:"label"`
	Center    mgl32.Vec3 `inspect:"skip"`
	Direction mgl32.Vec3 `inspect:"skip"`
	Size      float32    `inspect:"label,fmt:%.2f"`
	Lateral   bool       `inspect:"bool"`
}

// Instance holds the GPU-ready model transform of a scene entity: unit
// geometry along +Z scaled, rotated and translated into place.
type Instance struct {
	Transform mgl32.Mat4 `inspect:"skip"`
	Version   uint64     `inspect:"label"` // sync pass that last wrote the entity
}

// Vec converts a growth-space vector to float32.
func Vec(x, y, z float64) mgl32.Vec3 {
	return mgl32.Vec3{float32(x), float32(y), float32(z)}
}
