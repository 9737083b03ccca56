package telemetry

import "github.com/pthm-cable/tendril/growth"

// Collector accumulates tick reports within time windows and produces
// WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int64
	dt                  float64

	// Current window tracking
	windowStartTick int64

	// Event counters for current window
	apicalSpawns  int
	lateralSpawns int
	penetrations  int
	corrections   int
	probeQueries  int
	probeHits     int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int64(windowDurationSec/dt + 0.5)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// Record adds one tick's events to the current window.
func (c *Collector) Record(rep *growth.TickReport) {
	apical := rep.Apical()
	c.apicalSpawns += apical
	c.lateralSpawns += len(rep.Spawns) - apical
	c.penetrations += rep.Penetrations
	c.corrections += rep.Corrections
	c.probeQueries += rep.ProbeQueries
	c.probeHits += rep.ProbeHits
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats from the window's events and a sample of the
// forest taken at currentTick, then resets counters for the next window.
func (c *Collector) Flush(currentTick int64, sample ForestSample) WindowStats {
	var hitRate float64
	if total := c.probeQueries + c.probeHits; total > 0 {
		hitRate = float64(c.probeHits) / float64(total)
	}

	depthMean, depthStd := MeanStd(sample.Depths)
	_, rP10, rP50, rP90 := ComputeDistribution(sample.Radii)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Particles:  sample.Particles,
		Plants:     sample.Plants,
		Growing:    sample.Growing,
		FullyGrown: sample.FullyGrown,
		Laterals:   sample.Laterals,

		ApicalSpawns:  c.apicalSpawns,
		LateralSpawns: c.lateralSpawns,
		Penetrations:  c.penetrations,
		Corrections:   c.corrections,

		ProbeQueries: c.probeQueries,
		ProbeHits:    c.probeHits,
		CacheHitRate: hitRate,

		DepthMax:  sample.DepthMax,
		DepthMean: depthMean,
		DepthStd:  depthStd,

		RadiusP10: rP10,
		RadiusP50: rP50,
		RadiusP90: rP90,

		LengthTotal: sample.LengthTotal,
		TipHeight:   sample.TipHeight,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.apicalSpawns = 0
	c.lateralSpawns = 0
	c.penetrations = 0
	c.corrections = 0
	c.probeQueries = 0
	c.probeHits = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowDurationTicks
}

// Restart begins a new window at tick, e.g. after restoring a snapshot.
func (c *Collector) Restart(tick int64) {
	c.windowStartTick = tick
}
