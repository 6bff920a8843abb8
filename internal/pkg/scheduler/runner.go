// Package scheduler repeats a comparison cycle on a timer and on demand.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// CycleFunc runs one cycle. Its context carries the cycle timeout.
type CycleFunc func(ctx context.Context) error

// Runner runs at most one cycle at a time. Triggers that arrive while a cycle is queued
// collapse into it.
type Runner struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	cycle    CycleFunc

	trigger chan struct{}

	mu        sync.Mutex
	running   bool
	cycles    int
	lastErr   error
	lastStart time.Time
}

func New(name string, interval, timeout time.Duration, cycle CycleFunc) *Runner {
	return &Runner{
		name:     name,
		interval: interval,
		timeout:  timeout,
		cycle:    cycle,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger queues a cycle without blocking. It returns false when one is already queued.
func (r *Runner) Trigger() bool {
	select {
	case r.trigger <- struct{}{}:
		slog.Info("Triggered new cycle", "runner", r.name)
		return true
	default:
		slog.Debug("Cycle already triggered, skipping duplicate trigger", "runner", r.name)
		return false
	}
}

// Status reports the number of finished cycles, whether a cycle is in progress and the
// error of the last cycle.
func (r *Runner) Status() (cycles int, running bool, lastErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cycles, r.running, r.lastErr
}

// Run blocks until ctx is done. The first cycle starts immediately; later ones follow
// every interval and on Trigger. An interval of 0 means triggers only.
func (r *Runner) Run(ctx context.Context) {
	r.logLoopStart()

	var tick <-chan time.Time
	if r.interval > 0 {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		tick = ticker.C
		r.Trigger()
	}

	for {
		select {
		case <-ctx.Done():
			cycles, _, _ := r.Status()
			slog.Info("Scheduler loop stopped", "runner", r.name, "total_cycles", cycles)
			return
		case <-tick:
			r.runCycle(ctx)
		case <-r.trigger:
			r.runCycle(ctx)
		}
	}
}

func (r *Runner) runCycle(ctx context.Context) {
	r.mu.Lock()
	r.running = true
	r.lastStart = time.Now()
	cycleID := r.cycles + 1
	r.mu.Unlock()

	if r.timeout > 0 {
		slog.Info("Starting cycle", "runner", r.name, "cycle_id", cycleID, "timeout", r.timeout)
	} else {
		slog.Info("Starting cycle", "runner", r.name, "cycle_id", cycleID, "timeout", "unlimited")
	}

	cycleCtx, cancel := cycleContext(ctx, r.timeout)
	err := r.cycle(cycleCtx)
	cancel()

	r.mu.Lock()
	duration := time.Since(r.lastStart)
	r.running = false
	r.cycles = cycleID
	r.lastErr = err
	r.mu.Unlock()

	if err != nil {
		slog.Error("Cycle failed", "runner", r.name, "cycle_id", cycleID, "duration", duration, "error", err)
		return
	}
	slog.Info("Cycle finished", "runner", r.name, "cycle_id", cycleID, "duration", duration, "duration_sec", duration.Seconds())
}

func (r *Runner) logLoopStart() {
	if r.interval > 0 {
		slog.Info("Scheduler loop started", "runner", r.name, "interval", r.interval)
	} else {
		slog.Info("Scheduler loop started", "runner", r.name, "interval", "on demand")
	}
}

func cycleContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}
