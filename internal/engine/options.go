package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/arbor/internal/commit"
	"github.com/roach88/arbor/internal/lane"
	"github.com/roach88/arbor/internal/metrics"
	"github.com/roach88/arbor/internal/store"
)

// DefaultFrameBudget is how long one Work call may render before yielding
// when the scheduler is deferred.
const DefaultFrameBudget = 5 * time.Millisecond

// TimeSource supplies wall time for expiration and frame budgets.
// Implemented by the system clock (production) and testutil.ManualClock (tests).
type TimeSource interface {
	Now() time.Time
}

type systemTime struct{}

func (systemTime) Now() time.Time { return time.Now() }

// Journal receives every applied commit. *store.Store implements it.
type Journal interface {
	WriteCommit(ctx context.Context, c store.Commit) error
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithCommitHook registers a hook called for every effect entry before and
// after mutation. Hooks run in registration order.
func WithCommitHook(h commit.Hook) EngineOption {
	return func(e *Engine) {
		e.hooks = append(e.hooks, h)
	}
}

// WithBoundaryHandler sets the error-reporting hook invoked when a boundary
// contains a description error. It runs on the worker, mid-pass.
func WithBoundaryHandler(fn func(*BoundaryError)) EngineOption {
	return func(e *Engine) {
		e.onBoundary = fn
	}
}

// WithJournal records every commit. Journal failures are logged and never
// fail the commit.
func WithJournal(j Journal) EngineOption {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithMetrics wires Prometheus collectors.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithScheduler sets the host scheduler. Default: InlineScheduler, which
// never yields.
func WithScheduler(s Scheduler) EngineOption {
	return func(e *Engine) {
		e.scheduler = s
	}
}

// WithTimeSource replaces the wall clock.
func WithTimeSource(ts TimeSource) EngineOption {
	return func(e *Engine) {
		e.now = ts
	}
}

// WithFrameBudget sets how long Work renders before yielding.
//
// Default: 5ms (DefaultFrameBudget).
// A zero budget yields after every unit of work.
func WithFrameBudget(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.budget = d
	}
}

// WithTimeouts sets the per-class expiration timeouts.
func WithTimeouts(t lane.Timeouts) EngineOption {
	return func(e *Engine) {
		e.timeouts = t
	}
}

// WithIDGenerator sets the commit ID generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithClock sets the logical clock. Used to continue seq numbering after a
// journaled run.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}
