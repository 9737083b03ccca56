package surface

import (
	"math"

	"github.com/ojrac/opensimplex-go"

	"github.com/pthm-cable/tendril/vecmath"
)

// TerrainConfig describes a fractal heightfield in the XZ plane with Y up.
type TerrainConfig struct {
	Size        float64 // edge length of the square patch
	Resolution  int     // cells per edge
	Amplitude   float64 // peak height of the first octave
	Frequency   float64 // noise frequency of the first octave
	Octaves     int
	Persistence float64 // amplitude multiplier per octave
	Lacunarity  float64 // frequency multiplier per octave
	BaseHeight  float64
}

// DefaultTerrainConfig returns gentle rolling hills.
func DefaultTerrainConfig() TerrainConfig {
	return TerrainConfig{
		Size:        40,
		Resolution:  48,
		Amplitude:   1.5,
		Frequency:   0.08,
		Octaves:     4,
		Persistence: 0.5,
		Lacunarity:  2.0,
	}
}

// Terrain is a heightfield mesh sampled from OpenSimplex noise.
type Terrain struct {
	*Mesh
	cfg   TerrainConfig
	noise opensimplex.Noise
}

// NewTerrain samples the heightfield and indexes it. The same seed always
// produces the same surface.
func NewTerrain(cfg TerrainConfig, seed int64) *Terrain {
	if cfg.Resolution < 1 {
		cfg.Resolution = 1
	}
	if cfg.Octaves < 1 {
		cfg.Octaves = 1
	}
	t := &Terrain{cfg: cfg, noise: opensimplex.New(seed)}

	res := cfg.Resolution
	step := cfg.Size / float64(res)
	origin := -cfg.Size / 2

	verts := make([]vecmath.Vec3, (res+1)*(res+1))
	for j := 0; j <= res; j++ {
		for i := 0; i <= res; i++ {
			x := origin + float64(i)*step
			z := origin + float64(j)*step
			verts[j*(res+1)+i] = vecmath.V3(x, t.Height(x, z), z)
		}
	}

	tris := make([]Triangle, 0, res*res*2)
	for j := 0; j < res; j++ {
		for i := 0; i < res; i++ {
			a := verts[j*(res+1)+i]
			b := verts[j*(res+1)+i+1]
			c := verts[(j+1)*(res+1)+i]
			d := verts[(j+1)*(res+1)+i+1]
			// Wound so normals face +Y.
			tris = append(tris, Triangle{A: a, B: c, C: b}, Triangle{A: b, B: c, C: d})
		}
	}
	t.Mesh = NewMesh(tris)
	return t
}

// Height returns the analytic noise height at (x, z). Between grid vertices
// the mesh is a linear interpolation of this function.
func (t *Terrain) Height(x, z float64) float64 {
	amp := t.cfg.Amplitude
	freq := t.cfg.Frequency
	h := t.cfg.BaseHeight
	for o := 0; o < t.cfg.Octaves; o++ {
		h += amp * t.noise.Eval2(x*freq, z*freq)
		amp *= t.cfg.Persistence
		freq *= t.cfg.Lacunarity
	}
	return h
}

// Contains reports whether (x, z) lies over the patch.
func (t *Terrain) Contains(x, z float64) bool {
	h := t.cfg.Size / 2
	return math.Abs(x) <= h && math.Abs(z) <= h
}

// Config returns the configuration the terrain was built from.
func (t *Terrain) Config() TerrainConfig {
	return t.cfg
}
