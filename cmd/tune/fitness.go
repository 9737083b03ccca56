package main

import (
	"log/slog"
	"math"
	"sync"

	"github.com/pthm-cable/tendril/config"
	"github.com/pthm-cable/tendril/garden"
	"github.com/pthm-cable/tendril/telemetry"
)

// FitnessEvaluator runs headless gardens and scores the forests they grow.
type FitnessEvaluator struct {
	params       *ParamVector
	maxTicks     int64
	seeds        []int64
	baseConfig   *config.Config
	targetHeight float64

	mu          sync.Mutex
	bestFitness float64
	bestStats   []telemetry.WindowStats
	lastQuality float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int64, seeds []int64, baseCfg *config.Config, targetHeight float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:       params,
		maxTicks:     maxTicks,
		seeds:        seeds,
		baseConfig:   baseCfg,
		targetHeight: targetHeight,
		bestFitness:  math.Inf(1),
	}
}

// BestStats returns the window stats of the best seed of the best evaluation.
func (fe *FitnessEvaluator) BestStats() []telemetry.WindowStats {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestStats
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

type seedResult struct {
	quality float64
	windows []telemetry.WindowStats
	err     error
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
// Fitness is the negated mean quality over all seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			windows, err := fe.runGarden(x, s)
			results[idx] = seedResult{
				quality: fe.computeQuality(windows),
				windows: windows,
				err:     err,
			}
		}(i, seed)
	}
	wg.Wait()

	var total float64
	best := -1
	for i, r := range results {
		if r.err != nil {
			slog.Warn("evaluation run failed", "seed", fe.seeds[i], "error", r.err)
			continue
		}
		total += r.quality
		if best < 0 || r.quality > results[best].quality {
			best = i
		}
	}
	quality := total / float64(len(fe.seeds))
	fitness := -quality

	fe.mu.Lock()
	if fitness < fe.bestFitness && best >= 0 {
		fe.bestFitness = fitness
		fe.bestStats = results[best].windows
	}
	fe.lastQuality = quality
	fe.mu.Unlock()

	return fitness
}

// runGarden grows one forest for maxTicks and returns its window stats.
func (fe *FitnessEvaluator) runGarden(x []float64, seed int64) ([]telemetry.WindowStats, error) {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)
	cfg.Runtime.RenderingEnabled = false

	var windows []telemetry.WindowStats
	g, err := garden.New(garden.Options{
		Config:         cfg,
		Seed:           seed,
		StepsPerUpdate: 1,
		StatsCallback: func(s telemetry.WindowStats) {
			windows = append(windows, s)
		},
	})
	if err != nil {
		return nil, err
	}
	defer g.Unload()

	for g.Tick() < fe.maxTicks {
		g.Step()
	}
	return windows, nil
}

// copyConfig returns a copy of the base config that runs may mutate.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}

// Quality component weights.
const (
	qualityWeightReach     = 0.45
	qualityWeightClearance = 0.35
	qualityWeightBranching = 0.20

	qualityWarmupWindows = 1   // skip first N windows
	targetLateralShare   = 0.3 // preferred share of lateral segments
	penetrationScale     = 0.05
)

// computeQuality scores a run in [0, 1]. Forests score well when their tips
// climb towards the target height, rarely dip into the surface, and carry a
// moderate share of lateral branches.
func (fe *FitnessEvaluator) computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]
	last := valid[len(valid)-1]

	reach := 0.0
	if fe.targetHeight > 0 {
		reach = 1 - math.Exp(-math.Max(0, last.TipHeight)/fe.targetHeight)
	}

	var clearanceSum float64
	var n int
	for _, w := range valid {
		if w.Particles == 0 {
			continue
		}
		rate := float64(w.Penetrations) / float64(w.Particles)
		clearanceSum += math.Exp(-rate / penetrationScale)
		n++
	}
	if n == 0 {
		return 0
	}
	clearance := clearanceSum / float64(n)

	branching := 0.0
	if last.Particles > 0 {
		share := float64(last.Laterals) / float64(last.Particles)
		branching = math.Exp(-math.Pow((share-targetLateralShare)/0.15, 2))
	}

	quality := qualityWeightReach*reach +
		qualityWeightClearance*clearance +
		qualityWeightBranching*branching
	return clamp01(quality)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}
