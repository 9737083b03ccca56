package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkGrowthBurst      BookmarkType = "growth_burst"
	BookmarkPenetrationSpike BookmarkType = "penetration_spike"
	BookmarkDepthMilestone   BookmarkType = "depth_milestone"
	BookmarkGrowthStalled    BookmarkType = "growth_stalled"
)

// depthMilestoneStep is the depth interval at which milestones trigger.
const depthMilestoneStep = 10

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        int64        `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in a growing forest.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	lastMilestone int  // highest depth milestone reported
	stalled       bool // a stall was reported and spawning has not resumed
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3 // minimum for a rolling average
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	for _, check := range []func(WindowStats) *Bookmark{
		bd.checkGrowthBurst,
		bd.checkPenetrationSpike,
		bd.checkDepthMilestone,
		bd.checkGrowthStalled,
	} {
		if b := check(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// average returns the mean of field over the history.
func (bd *BookmarkDetector) average(field func(WindowStats) int) float64 {
	history := bd.getHistory()
	if len(history) == 0 {
		return 0
	}
	var total int
	for _, h := range history {
		total += field(h)
	}
	return float64(total) / float64(len(history))
}

func spawns(s WindowStats) int { return s.ApicalSpawns + s.LateralSpawns }
func penetrations(s WindowStats) int { return s.Penetrations }

func (bd *BookmarkDetector) checkGrowthBurst(stats WindowStats) *Bookmark {
	if len(bd.getHistory()) < 3 {
		return nil
	}
	avg := bd.average(spawns)
	current := spawns(stats)
	if avg > 0 && float64(current) > avg*2.0 && current >= 5 {
		return &Bookmark{
			Type:        BookmarkGrowthBurst,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d spawns is %.1fx average (%.1f)", current, float64(current)/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkPenetrationSpike(stats WindowStats) *Bookmark {
	if len(bd.getHistory()) < 3 {
		return nil
	}
	avg := bd.average(penetrations)
	if avg > 0 && float64(stats.Penetrations) > avg*2.0 && stats.Penetrations >= 10 {
		return &Bookmark{
			Type:        BookmarkPenetrationSpike,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("%d penetrating samples is %.1fx average (%.1f)", stats.Penetrations, float64(stats.Penetrations)/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkDepthMilestone(stats WindowStats) *Bookmark {
	milestone := stats.DepthMax / depthMilestoneStep * depthMilestoneStep
	if milestone <= bd.lastMilestone {
		return nil
	}
	bd.lastMilestone = milestone
	return &Bookmark{
		Type:        BookmarkDepthMilestone,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Deepest chain reached %d segments", stats.DepthMax),
	}
}

// checkGrowthStalled fires once when a forest that used to spawn stops
// spawning with nothing left growing, typically at the particle cap.
func (bd *BookmarkDetector) checkGrowthStalled(stats WindowStats) *Bookmark {
	if spawns(stats) > 0 || stats.Growing > 0 {
		bd.stalled = false
		return nil
	}
	if bd.stalled || stats.Particles == 0 || bd.average(spawns) == 0 {
		return nil
	}
	bd.stalled = true
	return &Bookmark{
		Type:        BookmarkGrowthStalled,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("No spawns with %d particles fully grown", stats.Particles),
	}
}
