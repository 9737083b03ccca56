package growth

import "math/rand"

// CountingSource is a rand.Source64 that counts how many values have been
// drawn, so a run can be resumed at the same point in its random stream:
// reseed with the same seed and Skip the recorded number of draws.
type CountingSource struct {
	src   rand.Source64
	draws int64
}

// NewCountingSource seeds a standard source.
func NewCountingSource(seed int64) *CountingSource {
	return &CountingSource{src: rand.NewSource(seed).(rand.Source64)}
}

func (c *CountingSource) Int63() int64 {
	c.draws++
	return c.src.Int63()
}

func (c *CountingSource) Uint64() uint64 {
	c.draws++
	return c.src.Uint64()
}

// Seed reseeds the source and resets the count.
func (c *CountingSource) Seed(seed int64) {
	c.src.Seed(seed)
	c.draws = 0
}

// Draws reports how many values have been drawn since seeding.
func (c *CountingSource) Draws() int64 {
	return c.draws
}

// Skip advances the stream by n draws.
func (c *CountingSource) Skip(n int64) {
	for ; n > 0; n-- {
		c.Int63()
	}
}
