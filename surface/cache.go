package surface

import "github.com/pthm-cable/tendril/vecmath"

// QueryCache memoizes the last probe answer for one query site. A query is
// served from the cache while the query point stays within Threshold of the
// point that produced the cached result.
//
// Misses are cached too, so a probe with no surface is asked once per
// Threshold of travel.
type QueryCache struct {
	Threshold float64

	lastPosition vecmath.Vec3
	lastTriangle Triangle
	lastOK       bool
	valid        bool

	Queries int // probe calls made
	Hits    int // answers served from the cache
}

// NewQueryCache returns an empty cache with the given reuse distance.
func NewQueryCache(threshold float64) QueryCache {
	return QueryCache{Threshold: threshold}
}

// Query returns the closest triangle to p, consulting probe only when p moved
// farther than Threshold since the last real query. A nil probe always misses.
func (c *QueryCache) Query(probe Probe, p vecmath.Vec3) (Triangle, bool) {
	if c.valid && p.Sub(c.lastPosition).LengthSq() <= c.Threshold*c.Threshold {
		c.Hits++
		return c.lastTriangle, c.lastOK
	}
	c.Queries++
	var tri Triangle
	var ok bool
	if probe != nil {
		tri, ok = probe.ClosestTriangle(p)
	}
	c.lastPosition = p
	c.lastTriangle = tri
	c.lastOK = ok
	c.valid = true
	return tri, ok
}

// Widen raises the threshold to t. It never narrows it.
func (c *QueryCache) Widen(t float64) {
	if t > c.Threshold {
		c.Threshold = t
	}
}

// Invalidate forces the next Query through to the probe.
func (c *QueryCache) Invalidate() {
	c.valid = false
}

// LastPosition returns the point of the last real query and whether one was made.
func (c *QueryCache) LastPosition() (vecmath.Vec3, bool) {
	return c.lastPosition, c.valid
}
