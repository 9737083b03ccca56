package growth

import (
	"fmt"
	"slices"

	"github.com/pthm-cable/tendril/surface"
	"github.com/pthm-cable/tendril/vecmath"
)

// State is the coarse growth state of a particle.
type State uint8

const (
	StateGrowing State = iota
	StateFullyGrown
	StateApicalBranched
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateFullyGrown:
		return "fully_grown"
	case StateApicalBranched:
		return "apical_branched"
	default:
		return "growing"
	}
}

// Forest owns every particle. Particles are addressed by ID and never
// removed, so IDs stay valid for the life of the forest.
type Forest struct {
	Params Params

	particles []Particle
	roots     []ID
}

// NewForest creates an empty forest.
func NewForest(params Params) *Forest {
	return &Forest{
		Params:    params,
		particles: make([]Particle, 0, 256),
	}
}

// Len returns the number of particles.
func (f *Forest) Len() int {
	return len(f.particles)
}

// Get returns the particle with the given id. The pointer is invalidated by
// the next spawn.
func (f *Forest) Get(id ID) *Particle {
	return &f.particles[id]
}

// Valid reports whether id addresses a particle.
func (f *Forest) Valid(id ID) bool {
	return id >= 0 && int(id) < len(f.particles)
}

// Roots returns the seed ids in planting order.
func (f *Forest) Roots() []ID {
	return f.roots
}

// Particles returns the arena. The caller must not append to it.
func (f *Forest) Particles() []Particle {
	return f.particles
}

// PlantSeed adds a root particle at point, growing along orientation's +Z.
func (f *Forest) PlantSeed(point vecmath.Vec3, orientation vecmath.Quat) ID {
	id := f.add(point, orientation, NoParent, 0, f.Params.InitialRadius, f.Params.InitialLength, 0)
	p := &f.particles[id]
	p.IsSeed = true
	p.PreferredDirection = p.Direction()
	p.GrowthBiasAxis = p.sideAxis()
	f.roots = append(f.roots, id)
	return id
}

// RestoreForest rebuilds a forest from saved particle state. Probe caches
// and shape-matching fits are not saved; they start fresh.
func RestoreForest(params Params, saved []Particle) (*Forest, error) {
	f := NewForest(params)
	for i, sp := range saved {
		if sp.ID != ID(i) {
			return nil, fmt.Errorf("restore forest: particle %d has id %d", i, sp.ID)
		}
		sp.Children = slices.Clone(sp.Children)
		sp.AnchorCache = surface.NewQueryCache(params.QueryThreshold)
		sp.TipCache = surface.NewQueryCache(params.QueryThreshold)
		if sp.FullyGrown() {
			sp.AnchorCache.Widen(params.GrownQueryThreshold)
			sp.TipCache.Widen(params.GrownQueryThreshold)
		}
		sp.fit = newGroupFit()
		sp.SetOrientation(sp.Orientation)
		sp.recomputeMass(&f.Params)
		f.particles = append(f.particles, sp)
		if sp.IsSeed {
			f.roots = append(f.roots, sp.ID)
		}
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("restore forest: %w", err)
	}
	for i := range f.particles {
		f.particles[i].PredictedPosition = f.particles[i].Position
		f.UpdateParticleGroupCentersOfMass(ID(i))
	}
	return f, nil
}

// add appends a particle and initializes everything derivable from its
// placement. Role flags and directions are left to the caller.
func (f *Forest) add(pos vecmath.Vec3, q vecmath.Quat, parent ID, depth int, radius, length float64, now int64) ID {
	id := ID(len(f.particles))
	maxR := f.Params.radiusCap(depth)
	f.particles = append(f.particles, Particle{
		ID:                  id,
		Position:            pos,
		RestPosition:        pos,
		PredictedPosition:   pos,
		TargetPosition:      pos,
		GoalPosition:        pos,
		Parent:              parent,
		Depth:               depth,
		MaxDimensions:       vecmath.V3(maxR, maxR, f.Params.MaxLength),
		AnchorPoint:         pos,
		LastBranchTimestamp: now,
		CreatedAt:           now,
		AnchorCache:         surface.NewQueryCache(f.Params.QueryThreshold),
		TipCache:            surface.NewQueryCache(f.Params.QueryThreshold),
		fit:                 newGroupFit(),
	})
	p := &f.particles[id]
	p.SetOrientation(q)
	r := min(radius, maxR)
	p.Dimensions = vecmath.V3(r, r, min(length, f.Params.MaxLength))
	p.recomputeMass(&f.Params)
	return id
}

// atCapacity reports whether MaxParticles forbids another spawn.
func (f *Forest) atCapacity() bool {
	return f.Params.MaxParticles > 0 && len(f.particles) >= f.Params.MaxParticles
}

// Root returns the seed at the top of id's tree.
func (f *Forest) Root(id ID) ID {
	for f.particles[id].Parent != NoParent {
		id = f.particles[id].Parent
	}
	return id
}

// Validate checks the structural invariants: parent links match children
// lists, depths follow parents, nothing exceeds its caps and no tree has a
// cycle.
func (f *Forest) Validate() error {
	n := len(f.particles)
	for i := range f.particles {
		p := &f.particles[i]
		if p.ID != ID(i) {
			return fmt.Errorf("particle %d: stored id %d", i, p.ID)
		}
		if p.IsSeed != (p.Parent == NoParent) {
			return fmt.Errorf("particle %d: seed flag %v with parent %d", i, p.IsSeed, p.Parent)
		}
		if p.Parent != NoParent {
			if !f.Valid(p.Parent) {
				return fmt.Errorf("particle %d: parent %d out of range", i, p.Parent)
			}
			parent := &f.particles[p.Parent]
			count := 0
			for _, c := range parent.Children {
				if c == p.ID {
					count++
				}
			}
			if count != 1 {
				return fmt.Errorf("particle %d: listed %d times by parent %d", i, count, p.Parent)
			}
			if p.Depth != parent.Depth+1 {
				return fmt.Errorf("particle %d: depth %d under parent depth %d", i, p.Depth, parent.Depth)
			}
		}
		for _, c := range p.Children {
			if !f.Valid(c) || f.particles[c].Parent != p.ID {
				return fmt.Errorf("particle %d: child %d does not point back", i, c)
			}
		}
		if p.Dimensions.X > p.MaxDimensions.X || p.Dimensions.Y > p.MaxDimensions.Y || p.Dimensions.Z > p.MaxDimensions.Z {
			return fmt.Errorf("particle %d: dimensions %v exceed %v", i, p.Dimensions, p.MaxDimensions)
		}
		if p.MaxDimensions.X > f.Params.MaxRadius || p.MaxDimensions.Z > f.Params.MaxLength {
			return fmt.Errorf("particle %d: caps %v exceed configured maxima", i, p.MaxDimensions)
		}

		// Walking up must reach a seed within n steps.
		steps, id := 0, p.ID
		for f.particles[id].Parent != NoParent {
			id = f.particles[id].Parent
			if steps++; steps > n {
				return fmt.Errorf("particle %d: cycle in ancestry", i)
			}
		}
	}
	return nil
}
