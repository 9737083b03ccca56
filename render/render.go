// Package render turns forest render views into an ECS scene of tube and
// foliage instances that a drawing backend can walk each frame.
package render

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/tendril/components"
	"github.com/pthm-cable/tendril/growth"
	"github.com/pthm-cable/tendril/vecmath"
)

// Foliage sizing relative to the segment length.
const (
	foliageScale   = 0.35
	foliageMinSize = 0.05
)

var unitZ = mgl32.Vec3{0, 0, 1}

type edgeKey struct {
	kind     components.EdgeKind
	from, to growth.ID
}

// plantIndex is the set of scene entities owned by one plant.
type plantIndex struct {
	edges  map[edgeKey]ecs.Entity
	leaves map[growth.ID]ecs.Entity
}

func newPlantIndex() *plantIndex {
	return &plantIndex{
		edges:  make(map[edgeKey]ecs.Entity),
		leaves: make(map[growth.ID]ecs.Entity),
	}
}

// SyncCounts reports what the last sync pass changed.
type SyncCounts struct {
	Created int
	Updated int
	Removed int
}

// MeshSync implements growth.RenderSink. Scene entities are keyed by particle
// id, so a sync updates existing tubes in place and only creates or removes
// entities for edges that appeared or vanished.
type MeshSync struct {
	world *ecs.World

	tubeMap    *ecs.Map3[components.Tube, components.Instance, components.Plant]
	leafMap    *ecs.Map3[components.Foliage, components.Instance, components.Plant]
	tubeFilter *ecs.Filter3[components.Tube, components.Instance, components.Plant]
	leafFilter *ecs.Filter3[components.Foliage, components.Instance, components.Plant]

	plants  map[growth.ID]*plantIndex
	version uint64
	last    SyncCounts
	pass    map[growth.ID]struct{} // plants synced in the current pass
}

// NewMeshSync creates an empty scene.
func NewMeshSync() *MeshSync {
	world := ecs.NewWorld()
	return &MeshSync{
		world:      world,
		tubeMap:    ecs.NewMap3[components.Tube, components.Instance, components.Plant](world),
		leafMap:    ecs.NewMap3[components.Foliage, components.Instance, components.Plant](world),
		tubeFilter: ecs.NewFilter3[components.Tube, components.Instance, components.Plant](world),
		leafFilter: ecs.NewFilter3[components.Foliage, components.Instance, components.Plant](world),
		plants:     make(map[growth.ID]*plantIndex),
		pass:       make(map[growth.ID]struct{}),
	}
}

// SyncPlant rebuilds the scene entities of one plant from its views.
func (m *MeshSync) SyncPlant(plant growth.ID, views []growth.ParticleView) {
	m.version++
	// Syncing a plant twice starts a new pass.
	if _, seen := m.pass[plant]; seen {
		m.last = SyncCounts{}
		clear(m.pass)
	}
	m.pass[plant] = struct{}{}

	old := m.plants[plant]
	if old == nil {
		old = newPlantIndex()
	}
	next := newPlantIndex()

	byID := make(map[growth.ID]*growth.ParticleView, len(views))
	for i := range views {
		byID[views[i].ID] = &views[i]
	}

	for i := range views {
		v := &views[i]
		if len(v.Children) == 0 {
			m.upsertTube(plant, old, next, edgeKey{components.EdgeTerminal, v.ID, v.ID}, terminalTube(v))
		}
		var prev *growth.ParticleView
		for _, cid := range v.Children {
			c := byID[cid]
			if c == nil {
				continue
			}
			m.upsertTube(plant, old, next, edgeKey{components.EdgeParent, v.ID, c.ID}, edgeTube(components.EdgeParent, v, c))
			if prev != nil {
				m.upsertTube(plant, old, next, edgeKey{components.EdgeSibling, prev.ID, c.ID}, edgeTube(components.EdgeSibling, prev, c))
			}
			prev = c
		}
		if v.FullyGrown && !v.IsSeed {
			m.upsertLeaf(plant, old, next, v)
		}
	}

	for key, e := range old.edges {
		if _, ok := next.edges[key]; !ok {
			m.remove(e)
		}
	}
	for id, e := range old.leaves {
		if _, ok := next.leaves[id]; !ok {
			m.remove(e)
		}
	}
	m.plants[plant] = next
}

func (m *MeshSync) upsertTube(plant growth.ID, old, next *plantIndex, key edgeKey, tube components.Tube) {
	inst := components.Instance{Transform: tubeTransform(&tube), Version: m.version}
	if e, ok := old.edges[key]; ok && m.world.Alive(e) {
		t, in, _ := m.tubeMap.Get(e)
		*t = tube
		*in = inst
		next.edges[key] = e
		m.last.Updated++
		return
	}
	next.edges[key] = m.tubeMap.NewEntity(&tube, &inst, &components.Plant{Root: plant})
	m.last.Created++
}

func (m *MeshSync) upsertLeaf(plant growth.ID, old, next *plantIndex, v *growth.ParticleView) {
	leaf := foliageFor(v)
	inst := components.Instance{Transform: foliageTransform(v, leaf.Size), Version: m.version}
	if e, ok := old.leaves[v.ID]; ok && m.world.Alive(e) {
		f, in, _ := m.leafMap.Get(e)
		*f = leaf
		*in = inst
		next.leaves[v.ID] = e
		m.last.Updated++
		return
	}
	next.leaves[v.ID] = m.leafMap.NewEntity(&leaf, &inst, &components.Plant{Root: plant})
	m.last.Created++
}

func (m *MeshSync) remove(e ecs.Entity) {
	if m.world.Alive(e) {
		m.world.RemoveEntity(e)
		m.last.Removed++
	}
}

// RemovePlant deletes every entity of plant.
func (m *MeshSync) RemovePlant(plant growth.ID) {
	idx := m.plants[plant]
	if idx == nil {
		return
	}
	for _, e := range idx.edges {
		m.remove(e)
	}
	for _, e := range idx.leaves {
		m.remove(e)
	}
	delete(m.plants, plant)
}

// Reset empties the scene, e.g. before syncing a restored forest.
func (m *MeshSync) Reset() {
	for plant := range m.plants {
		m.RemovePlant(plant)
	}
}

// LastSync returns the changes summed over the current sync pass: the run of
// SyncPlant calls for distinct plants since a plant was last synced twice.
// The stepper syncs every root once per tick, so this covers one tick.
func (m *MeshSync) LastSync() SyncCounts {
	return m.last
}

// TubeCount returns the number of tube entities.
func (m *MeshSync) TubeCount() int {
	n := 0
	for _, idx := range m.plants {
		n += len(idx.edges)
	}
	return n
}

// FoliageCount returns the number of foliage entities.
func (m *MeshSync) FoliageCount() int {
	n := 0
	for _, idx := range m.plants {
		n += len(idx.leaves)
	}
	return n
}

// Tube returns the tube entity's component for an edge, if present.
func (m *MeshSync) Tube(plant growth.ID, kind components.EdgeKind, from, to growth.ID) (*components.Tube, bool) {
	idx := m.plants[plant]
	if idx == nil {
		return nil, false
	}
	e, ok := idx.edges[edgeKey{kind, from, to}]
	if !ok {
		return nil, false
	}
	t, _, _ := m.tubeMap.Get(e)
	return t, true
}

// EachTube calls fn for every tube in the scene.
func (m *MeshSync) EachTube(fn func(t *components.Tube, inst *components.Instance, plant growth.ID)) {
	query := m.tubeFilter.Query()
	for query.Next() {
		t, inst, p := query.Get()
		fn(t, inst, p.Root)
	}
}

// EachFoliage calls fn for every foliage element in the scene.
func (m *MeshSync) EachFoliage(fn func(f *components.Foliage, inst *components.Instance, plant growth.ID)) {
	query := m.leafFilter.Query()
	for query.Next() {
		f, inst, p := query.Get()
		fn(f, inst, p.Root)
	}
}

func terminalTube(v *growth.ParticleView) components.Tube {
	r := float32(v.Dimensions.X)
	return components.Tube{
		Kind:       components.EdgeTerminal,
		From:       v.ID,
		To:         v.ID,
		Start:      components.Vec(v.Position.X, v.Position.Y, v.Position.Z),
		End:        components.Vec(v.Tip.X, v.Tip.Y, v.Tip.Z),
		RadiusFrom: r,
		RadiusTo:   r * 0.5,
		Depth:      v.Depth,
	}
}

func edgeTube(kind components.EdgeKind, a, b *growth.ParticleView) components.Tube {
	return components.Tube{
		Kind:       kind,
		From:       a.ID,
		To:         b.ID,
		Start:      components.Vec(a.Position.X, a.Position.Y, a.Position.Z),
		End:        components.Vec(b.Position.X, b.Position.Y, b.Position.Z),
		RadiusFrom: float32(a.Dimensions.X),
		RadiusTo:   float32(b.Dimensions.X),
		Depth:      b.Depth,
	}
}

func foliageFor(v *growth.ParticleView) components.Foliage {
	size := max(foliageMinSize, v.Dimensions.Z*foliageScale)
	return components.Foliage{
		Particle:  v.ID,
		Center:    components.Vec(v.Tip.X, v.Tip.Y, v.Tip.Z),
		Direction: components.Vec(v.Direction.X, v.Direction.Y, v.Direction.Z),
		Size:      float32(size),
		Lateral:   v.Role == growth.RoleLateral,
	}
}

// tubeTransform maps a unit cylinder along +Z onto the tube.
func tubeTransform(t *components.Tube) mgl32.Mat4 {
	axis := t.End.Sub(t.Start)
	length := axis.Len()
	rot := mgl32.QuatIdent()
	if length > 1e-6 {
		rot = mgl32.QuatBetweenVectors(unitZ, axis.Mul(1/length))
	}
	r := max(t.RadiusFrom, t.RadiusTo)
	return mgl32.Translate3D(t.Start.X(), t.Start.Y(), t.Start.Z()).
		Mul4(rot.Mat4()).
		Mul4(mgl32.Scale3D(r, r, length))
}

// foliageTransform places unit leaf geometry at the tip, oriented like the
// particle.
func foliageTransform(v *growth.ParticleView, size float32) mgl32.Mat4 {
	s := float64(size)
	m := vecmath.Compose(v.Tip, v.Orientation, vecmath.V3(s, s, s))
	return mgl32.Mat4(m.ColumnMajor32())
}
