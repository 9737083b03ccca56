package growth

import (
	"math/rand"
	"testing"
)

func TestCountingSourceResumesStream(t *testing.T) {
	src := NewCountingSource(77)
	r := rand.New(src)
	for i := 0; i < 50; i++ {
		r.Float64()
		r.Intn(13)
		r.Uint64()
	}
	if src.Draws() < 150 {
		t.Fatalf("draws = %d, want at least 150", src.Draws())
	}

	resumed := NewCountingSource(77)
	resumed.Skip(src.Draws())
	if resumed.Draws() != src.Draws() {
		t.Errorf("skip counted %d draws, want %d", resumed.Draws(), src.Draws())
	}
	r2 := rand.New(resumed)
	for i := 0; i < 20; i++ {
		if a, b := r.Float64(), r2.Float64(); a != b {
			t.Fatalf("draw %d: original %v, resumed %v", i, a, b)
		}
	}

	src.Seed(5)
	if src.Draws() != 0 {
		t.Errorf("draws after reseed = %d, want 0", src.Draws())
	}
}
