package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/tendril/growth"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Forest shape at window end
	Particles  int `csv:"particles"`
	Plants     int `csv:"plants"`
	Growing    int `csv:"growing"`
	FullyGrown int `csv:"fully_grown"`
	Laterals   int `csv:"laterals"`

	// Events during window
	ApicalSpawns  int `csv:"apical_spawns"`
	LateralSpawns int `csv:"lateral_spawns"`
	Penetrations  int `csv:"penetrations"`
	Corrections   int `csv:"corrections"`

	// Surface probe traffic during window
	ProbeQueries int     `csv:"probe_queries"`
	ProbeHits    int     `csv:"probe_hits"`
	CacheHitRate float64 `csv:"cache_hit_rate"`

	// Depth distribution (sampled at window end)
	DepthMax  int     `csv:"depth_max"`
	DepthMean float64 `csv:"depth_mean"`
	DepthStd  float64 `csv:"depth_std"`

	// Radius distribution (sampled at window end)
	RadiusP10 float64 `csv:"radius_p10"`
	RadiusP50 float64 `csv:"radius_p50"`
	RadiusP90 float64 `csv:"radius_p90"`

	// Extent
	LengthTotal float64 `csv:"length_total"` // summed segment length
	TipHeight   float64 `csv:"tip_height"`   // highest tip above its seed
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeDistribution returns the mean and 10th/50th/90th percentiles.
func ComputeDistribution(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	mean = stat.Mean(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return mean, Percentile(sorted, 0.10), Percentile(sorted, 0.50), Percentile(sorted, 0.90)
}

// MeanStd returns the mean and sample standard deviation. The deviation of
// fewer than two values is 0.
func MeanStd(values []float64) (mean, std float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// ForestSample is the shape of a forest at one instant.
type ForestSample struct {
	Particles  int
	Plants     int
	Growing    int
	FullyGrown int
	Laterals   int

	Depths []float64
	Radii  []float64

	DepthMax    int
	LengthTotal float64
	TipHeight   float64
}

// SampleForest measures f.
func SampleForest(f *growth.Forest) ForestSample {
	ps := f.Particles()
	s := ForestSample{
		Particles: len(ps),
		Plants:    len(f.Roots()),
		Depths:    make([]float64, 0, len(ps)),
		Radii:     make([]float64, 0, len(ps)),
		TipHeight: math.Inf(-1),
	}
	for i := range ps {
		p := &ps[i]
		if p.FullyGrown() {
			s.FullyGrown++
		} else {
			s.Growing++
		}
		if p.IsLateralBranch {
			s.Laterals++
		}
		s.DepthMax = max(s.DepthMax, p.Depth)
		s.Depths = append(s.Depths, float64(p.Depth))
		s.Radii = append(s.Radii, p.Radius())
		s.LengthTotal += p.Dimensions.Z

		seed := &ps[f.Root(p.ID)]
		s.TipHeight = math.Max(s.TipHeight, p.Tip().Y-seed.Position.Y)
	}
	if len(ps) == 0 {
		s.TipHeight = 0
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("particles", s.Particles),
		slog.Int("plants", s.Plants),
		slog.Int("growing", s.Growing),
		slog.Int("fully_grown", s.FullyGrown),
		slog.Int("laterals", s.Laterals),
		slog.Int("apical_spawns", s.ApicalSpawns),
		slog.Int("lateral_spawns", s.LateralSpawns),
		slog.Int("penetrations", s.Penetrations),
		slog.Int("corrections", s.Corrections),
		slog.Int("probe_queries", s.ProbeQueries),
		slog.Int("probe_hits", s.ProbeHits),
		slog.Float64("cache_hit_rate", s.CacheHitRate),
		slog.Int("depth_max", s.DepthMax),
		slog.Float64("depth_mean", s.DepthMean),
		slog.Float64("depth_std", s.DepthStd),
		slog.Float64("radius_p10", s.RadiusP10),
		slog.Float64("radius_p50", s.RadiusP50),
		slog.Float64("radius_p90", s.RadiusP90),
		slog.Float64("length_total", s.LengthTotal),
		slog.Float64("tip_height", s.TipHeight),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"particles", s.Particles,
		"plants", s.Plants,
		"fully_grown", s.FullyGrown,
		"apical_spawns", s.ApicalSpawns,
		"lateral_spawns", s.LateralSpawns,
		"penetrations", s.Penetrations,
		"corrections", s.Corrections,
		"cache_hit_rate", s.CacheHitRate,
		"depth_max", s.DepthMax,
		"depth_mean", s.DepthMean,
		"radius_p50", s.RadiusP50,
		"tip_height", s.TipHeight,
	)
}
