// Command growserver runs the growth simulation headless in real time and
// streams every plant to websocket clients on /ws.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/tendril/config"
	"github.com/pthm-cable/tendril/garden"
	"github.com/pthm-cable/tendril/growth"
	"github.com/pthm-cable/tendril/stream"
	"github.com/pthm-cable/tendril/telemetry"
	"github.com/pthm-cable/tendril/vecmath"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	addr := flag.String("addr", "", "Listen address (empty = use config)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	seeds := flag.Int("seeds", 0, "Seeds to plant at startup (0 = use config)")
	resume := flag.String("resume", "", "Snapshot file to resume from")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Stream.Addr = *addr
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	var snap *telemetry.Snapshot
	if *resume != "" {
		if snap, err = telemetry.LoadSnapshot(*resume); err != nil {
			slog.Error("failed to load snapshot", "error", err)
			os.Exit(1)
		}
		rngSeed = snap.RNGSeed
	}

	hub := stream.NewHub(stream.Options{
		SendBuffer:   cfg.Stream.SendBuffer,
		PingInterval: time.Duration(cfg.Stream.PingInterval) * time.Second,
		CommandQueue: cfg.Stream.CommandQueue,
	})

	g, err := garden.New(garden.Options{
		Config:         cfg,
		Seed:           rngSeed,
		Seeds:          *seeds,
		LogStats:       *logStats,
		SnapshotDir:    *snapshotDir,
		OutputDir:      *outputDir,
		StepsPerUpdate: 1,
		Sinks:          []growth.RenderSink{hub},
		Resume:         snap,
	})
	if err != nil {
		slog.Error("failed to create garden", "error", err)
		os.Exit(1)
	}
	defer g.Unload()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{Addr: cfg.Stream.Addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	slog.Info("starting growth server",
		"addr", cfg.Stream.Addr,
		"seed", rngSeed,
		"plants", len(g.Forest().Roots()),
		"tick", g.Tick(),
	)

	ticker := time.NewTicker(time.Duration(cfg.Simulation.DT * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("shutting down", "tick", g.Tick())
			hub.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("server shutdown failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			drainCommands(g, hub)
			hub.SetTick(g.Tick() + 1)
			g.Step()
		}
	}
}

// drainCommands applies every queued client command between ticks.
func drainCommands(g *garden.Garden, hub *stream.Hub) {
	for {
		select {
		case cmd := <-hub.Commands():
			applyCommand(g, cmd)
		default:
			return
		}
	}
}

func applyCommand(g *garden.Garden, cmd stream.Command) {
	switch cmd.Type {
	case stream.CommandPlant:
		p := cmd.Point
		id, err := g.PlantAt(vecmath.V3(p[0], p[1], p[2]))
		if err != nil {
			slog.Warn("plant command rejected", "point", *p, "error", err)
			return
		}
		slog.Info("seed planted", "plant", id, "tick", g.Tick())
	case stream.CommandConfig:
		g.SetTickConfig(cmd.Apply(g.TickConfig()))
		slog.Info("runtime config updated", "config", g.TickConfig())
	}
}
