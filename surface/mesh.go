package surface

import (
	"math"
	"sort"

	"github.com/pthm-cable/tendril/vecmath"
)

// maxTrianglesPerLeaf is the threshold for splitting BVH nodes.
const maxTrianglesPerLeaf = 4

// bvhNode is one node of a bounding volume hierarchy: an AABB plus either two
// children or a leaf list of triangle indices.
type bvhNode struct {
	min, max    vecmath.Vec3
	left, right *bvhNode
	tris        []int32
}

// Mesh is a static triangle mesh indexed for closest-triangle queries.
// It is read-only after construction.
type Mesh struct {
	tris []Triangle
	root *bvhNode
}

// NewMesh builds a BVH over the given triangles. The slice is copied.
func NewMesh(tris []Triangle) *Mesh {
	m := &Mesh{tris: append([]Triangle(nil), tris...)}
	if len(m.tris) == 0 {
		return m
	}
	idx := make([]int32, len(m.tris))
	for i := range idx {
		idx[i] = int32(i)
	}
	m.root = m.build(idx)
	return m
}

func (m *Mesh) build(idx []int32) *bvhNode {
	node := &bvhNode{}
	node.min, node.max = m.bounds(idx)

	if len(idx) <= maxTrianglesPerLeaf {
		node.tris = idx
		return node
	}

	// Split along the longest axis at the median centroid.
	extent := node.max.Sub(node.min)
	axis := 0
	if extent.Y > extent.X && extent.Y > extent.Z {
		axis = 1
	} else if extent.Z > extent.X && extent.Z > extent.Y {
		axis = 2
	}
	sort.Slice(idx, func(i, j int) bool {
		return component(m.tris[idx[i]].Centroid(), axis) < component(m.tris[idx[j]].Centroid(), axis)
	})

	mid := len(idx) / 2
	node.left = m.build(idx[:mid])
	node.right = m.build(idx[mid:])
	return node
}

func (m *Mesh) bounds(idx []int32) (lo, hi vecmath.Vec3) {
	lo = vecmath.V3(math.Inf(1), math.Inf(1), math.Inf(1))
	hi = vecmath.V3(math.Inf(-1), math.Inf(-1), math.Inf(-1))
	for _, i := range idx {
		tlo, thi := m.tris[i].bounds()
		lo = vecmath.V3(math.Min(lo.X, tlo.X), math.Min(lo.Y, tlo.Y), math.Min(lo.Z, tlo.Z))
		hi = vecmath.V3(math.Max(hi.X, thi.X), math.Max(hi.Y, thi.Y), math.Max(hi.Z, thi.Z))
	}
	return lo, hi
}

func component(v vecmath.Vec3, axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// aabbDistanceSq returns the squared distance from p to the box, 0 inside.
func aabbDistanceSq(p, lo, hi vecmath.Vec3) float64 {
	dx := math.Max(0, math.Max(lo.X-p.X, p.X-hi.X))
	dy := math.Max(0, math.Max(lo.Y-p.Y, p.Y-hi.Y))
	dz := math.Max(0, math.Max(lo.Z-p.Z, p.Z-hi.Z))
	return dx*dx + dy*dy + dz*dz
}

// Len returns the number of triangles.
func (m *Mesh) Len() int {
	return len(m.tris)
}

// Triangles returns the mesh triangles. The caller must not modify them.
func (m *Mesh) Triangles() []Triangle {
	return m.tris
}

// ClosestTriangle returns the triangle nearest to p. It misses only when the
// mesh is empty.
func (m *Mesh) ClosestTriangle(p vecmath.Vec3) (Triangle, bool) {
	if m.root == nil {
		return Triangle{}, false
	}
	best := int32(-1)
	bestSq := math.Inf(1)
	m.closest(m.root, p, &best, &bestSq)
	if best < 0 {
		return Triangle{}, false
	}
	return m.tris[best], true
}

func (m *Mesh) closest(node *bvhNode, p vecmath.Vec3, best *int32, bestSq *float64) {
	if node == nil || aabbDistanceSq(p, node.min, node.max) > *bestSq {
		return
	}
	if node.tris != nil {
		for _, i := range node.tris {
			if d := m.tris[i].DistanceSq(p); d < *bestSq {
				*bestSq = d
				*best = i
			}
		}
		return
	}

	// Descend into the nearer child first for tighter pruning.
	first, second := node.left, node.right
	if aabbDistanceSq(p, second.min, second.max) < aabbDistanceSq(p, first.min, first.max) {
		first, second = second, first
	}
	m.closest(first, p, best, bestSq)
	m.closest(second, p, best, bestSq)
}

// Raycast returns the nearest intersection of the ray origin + t*dir (t >= 0)
// with the mesh, along with the hit triangle.
func (m *Mesh) Raycast(origin, dir vecmath.Vec3) (hit vecmath.Vec3, tri Triangle, ok bool) {
	dir = dir.Normal()
	if dir.IsZero() {
		return vecmath.Zero, Triangle{}, false
	}
	bestT := math.Inf(1)
	for _, t := range m.tris {
		if d, hitOK := rayTriangle(origin, dir, t); hitOK && d < bestT {
			bestT = d
			tri = t
			ok = true
		}
	}
	if !ok {
		return vecmath.Zero, Triangle{}, false
	}
	return origin.Add(dir.MulScalar(bestT)), tri, true
}

// rayTriangle is the Moller-Trumbore intersection test.
func rayTriangle(origin, dir vecmath.Vec3, t Triangle) (float64, bool) {
	e1 := t.B.Sub(t.A)
	e2 := t.C.Sub(t.A)
	pv := dir.Cross(e2)
	det := e1.Dot(pv)
	if math.Abs(det) < vecmath.Epsilon {
		return 0, false
	}
	inv := 1 / det
	tv := origin.Sub(t.A)
	u := tv.Dot(pv) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	qv := tv.Cross(e1)
	v := dir.Dot(qv) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	d := e2.Dot(qv) * inv
	if d < 0 {
		return 0, false
	}
	return d, true
}
