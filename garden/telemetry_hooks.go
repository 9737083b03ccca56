package garden

import (
	"log/slog"

	"github.com/pthm-cable/tendril/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Garden) flushTelemetry() {
	tick := g.stepper.Ticks()
	if !g.collector.ShouldFlush(tick) {
		return
	}

	stats := g.collector.Flush(tick, telemetry.SampleForest(g.forest))
	perfStats := g.perf.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
		slog.Info("plants", "total", g.plants.Count(),
			"active", g.plants.ActiveCount(tick, g.collector.WindowDurationTicks()))
	}

	if err := g.output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := g.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range g.bookmarks.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if err := g.output.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		if g.snapshotDir != "" {
			g.saveSnapshot(&bm)
		}
	}
}

// saveSnapshot creates and saves a snapshot to disk.
func (g *Garden) saveSnapshot(bookmark *telemetry.Bookmark) {
	snapshot := g.Snapshot()
	snapshot.Bookmark = bookmark

	path, err := telemetry.SaveSnapshot(snapshot, g.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", snapshot.Tick)
}

// SaveSnapshot writes the current state to dir, falling back to the garden's
// snapshot directory and then ./snapshots. It returns the file path.
func (g *Garden) SaveSnapshot(dir string) (string, error) {
	if dir == "" {
		dir = g.snapshotDir
	}
	if dir == "" {
		dir = "snapshots"
	}
	return telemetry.SaveSnapshot(g.Snapshot(), dir)
}
