package telemetry

import (
	"log/slog"
	"sort"

	"github.com/pthm-cable/tendril/growth"
)

// PlantStats tracks one plant (one seed's tree) over its lifetime.
type PlantStats struct {
	Root        growth.ID `csv:"root" json:"root"`
	PlantedTick int64     `csv:"planted_tick" json:"planted_tick"`

	Particles     int   `csv:"particles" json:"particles"`
	ApicalSpawns  int   `csv:"apical_spawns" json:"apical_spawns"`
	LateralSpawns int   `csv:"lateral_spawns" json:"lateral_spawns"`
	LastSpawnTick int64 `csv:"last_spawn_tick" json:"last_spawn_tick"`
	MaxDepth      int   `csv:"max_depth" json:"max_depth"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s *PlantStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("root", int(s.Root)),
		slog.Int64("planted_tick", s.PlantedTick),
		slog.Int("particles", s.Particles),
		slog.Int("apical_spawns", s.ApicalSpawns),
		slog.Int("lateral_spawns", s.LateralSpawns),
		slog.Int("max_depth", s.MaxDepth),
	)
}

// PlantTracker manages per-plant statistics.
type PlantTracker struct {
	stats map[growth.ID]*PlantStats
}

// NewPlantTracker creates a new plant tracker.
func NewPlantTracker() *PlantTracker {
	return &PlantTracker{
		stats: make(map[growth.ID]*PlantStats),
	}
}

// Register starts tracking the plant rooted at root.
func (pt *PlantTracker) Register(root growth.ID, tick int64) {
	pt.stats[root] = &PlantStats{
		Root:          root,
		PlantedTick:   tick,
		Particles:     1,
		LastSpawnTick: tick,
	}
}

// Get returns the stats for a plant, or nil if not found.
func (pt *PlantTracker) Get(root growth.ID) *PlantStats {
	return pt.stats[root]
}

// Record attributes the spawns of one tick to their plants. Plants planted
// outside Register are picked up on their first spawn.
func (pt *PlantTracker) Record(f *growth.Forest, rep *growth.TickReport) {
	for _, ev := range rep.Spawns {
		root := f.Root(ev.Parent)
		s := pt.stats[root]
		if s == nil {
			pt.Register(root, rep.Tick)
			s = pt.stats[root]
		}
		s.Particles++
		if ev.Lateral {
			s.LateralSpawns++
		} else {
			s.ApicalSpawns++
		}
		s.LastSpawnTick = rep.Tick
		s.MaxDepth = max(s.MaxDepth, f.Get(ev.Child).Depth)
	}
}

// All returns all tracked stats ordered by root id.
func (pt *PlantTracker) All() []*PlantStats {
	out := make([]*PlantStats, 0, len(pt.stats))
	for _, s := range pt.stats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Root < out[j].Root })
	return out
}

// Count returns the number of tracked plants.
func (pt *PlantTracker) Count() int {
	return len(pt.stats)
}

// ActiveCount returns the number of plants that spawned within window ticks
// of tick.
func (pt *PlantTracker) ActiveCount(tick, window int64) int {
	n := 0
	for _, s := range pt.stats {
		if tick-s.LastSpawnTick <= window {
			n++
		}
	}
	return n
}
