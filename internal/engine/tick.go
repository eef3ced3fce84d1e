// Package engine runs the serial command loop and the world orchestration
// built on the registries.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
)

// ErrStopped is returned by Do once the engine loop has exited.
var ErrStopped = errors.New("engine stopped")

// Engine serializes every mutation: submitted commands and tick callbacks all
// run on the goroutine that called Run.
type Engine struct {
	Tick       uint64        // Current tick counter (monotonic, never resets)
	Interval   time.Duration // Tick interval (default 1 second)
	SweepEvery uint64        // Ticks between sweeps (default 60)

	// Callbacks run on the engine goroutine.
	OnTick  func(tick uint64) // Every tick
	OnSweep func(tick uint64) // Every SweepEvery ticks

	commands chan command
	stopped  chan struct{}
}

type command struct {
	fn   func() error
	done chan error
}

// NewEngine creates an engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		Interval:   time.Second,
		SweepEvery: 60,
		commands:   make(chan command),
		stopped:    make(chan struct{}),
	}
}

// Run processes commands and ticks until ctx is canceled.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.stopped)
	started := time.Now()
	slog.Info("engine started", "tick", e.Tick, "interval", e.Interval, "sweep_every", e.SweepEvery)

	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopped", "tick", e.Tick, "started", humanize.Time(started))
			return
		case cmd := <-e.commands:
			cmd.done <- cmd.fn()
		case <-ticker.C:
			e.step()
		}
	}
}

// Do runs fn on the engine goroutine and returns its error. It gives up when
// ctx is done or the engine has stopped; fn may still run if it was already
// accepted.
func (e *Engine) Do(ctx context.Context, fn func() error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case e.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrStopped
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// step advances the engine by one tick.
func (e *Engine) step() {
	e.Tick++
	if e.OnTick != nil {
		e.OnTick(e.Tick)
	}
	if e.SweepEvery > 0 && e.Tick%e.SweepEvery == 0 && e.OnSweep != nil {
		e.OnSweep(e.Tick)
	}
}

// Attach wires w to the engine: ticks advance w.LastTick and sweeps run w.Sweep.
// notify receives the notices each sweep produces and may be nil.
func (e *Engine) Attach(w *World, notify func(SweepReport)) {
	e.Tick = w.LastTick
	e.OnTick = func(tick uint64) { w.LastTick = tick }
	e.OnSweep = func(uint64) {
		report := w.Sweep()
		if notify != nil {
			notify(report)
		}
	}
}
