// Command pantheon runs the religion, civilization and diplomacy engine
// behind an HTTP command API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"

	"github.com/talgya/pantheon/internal/api"
	"github.com/talgya/pantheon/internal/config"
	"github.com/talgya/pantheon/internal/engine"
	"github.com/talgya/pantheon/internal/persistence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Level(),
	}))
	slog.SetDefault(logger)
	slog.Info("Pantheon: religion and civilization engine")

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		os.MkdirAll(dir, 0755)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Load or Seed World State ─────────────────────────────────────
	w := engine.NewWorld(nil, nil)
	has, err := db.HasState()
	if err != nil {
		slog.Error("failed to inspect saved state", "error", err)
		os.Exit(1)
	}
	if has {
		slog.Info("found saved state, loading...")
		state, err := db.LoadState()
		if err != nil {
			slog.Error("failed to load state", "error", err)
			os.Exit(1)
		}
		w.Restore(state)
		slog.Info("world state restored",
			"tick", w.LastTick,
			"religions", len(w.Religions.List()),
			"civilizations", len(w.Civilizations.List()),
			"events", len(w.Events),
		)
	} else {
		slog.Info("no saved state found, starting an empty world")
		if err := db.SaveState(w.Snapshot()); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Engine ───────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Interval = cfg.TickInterval
	eng.SweepEvery = cfg.SweepEvery

	s := &saver{db: db}
	save := func(ctx context.Context) error {
		var state engine.State
		if err := eng.Do(ctx, func() error {
			state = w.Snapshot()
			return nil
		}); err != nil {
			return err
		}
		return s.save(state)
	}

	// ── Scheduled Saves ──────────────────────────────────────────────
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SaveSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := save(ctx); err != nil {
			slog.Error("scheduled save failed", "error", err)
		}
	}); err != nil {
		slog.Error("invalid save schedule", "schedule", cfg.SaveSchedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	// ── HTTP API ─────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("PANTHEON_ADMIN_KEY not set, admin endpoints will be disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Command and sweep notices share one delivery hook.
	apiServer := &api.Server{
		World:       w,
		Eng:         eng,
		Limiter:     api.NewRateLimiter(cfg.CommandRate, cfg.CommandBurst),
		Port:        cfg.APIPort,
		AdminKey:    cfg.AdminKey,
		CORSOrigins: cfg.CORSOrigins,
		Save:        save,
		Deliver:     api.LogNotices,
	}
	eng.Attach(w, apiServer.DeliverSweep)
	apiServer.Start(ctx)

	started := time.Now()
	fmt.Printf("\nPantheon is alive: %d religions, %d civilizations.\n",
		len(w.Religions.List()), len(w.Civilizations.List()))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
	if w.LastTick > 0 {
		fmt.Printf("Resuming from tick %s\n", humanize.Comma(int64(w.LastTick)))
	}
	fmt.Println("Running... (Ctrl+C to stop)")

	eng.Run(ctx)
	slog.Info("received signal, shutting down", "uptime", humanize.RelTime(started, time.Now(), "", ""))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	<-scheduler.Stop().Done()

	// The engine loop has exited; the world is only touched from here on.
	slog.Info("final save...")
	if err := s.save(w.Snapshot()); err != nil {
		slog.Error("final save failed", "error", err)
	}
	fmt.Println("Pantheon stopped. State saved.")
}

// saver serializes snapshot writes from the scheduler, admin endpoint and shutdown.
type saver struct {
	mu sync.Mutex
	db *persistence.DB
}

func (s *saver) save(state engine.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()
	if err := s.db.SaveState(state); err != nil {
		return err
	}
	slog.Info("state saved", "tick", state.Tick, "took", time.Since(start).Round(time.Millisecond))
	return nil
}
