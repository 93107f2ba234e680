package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/arbor/internal/commit"
	"github.com/roach88/arbor/internal/host"
	"github.com/roach88/arbor/internal/lane"
	"github.com/roach88/arbor/internal/metrics"
	"github.com/roach88/arbor/internal/tree"
	"github.com/roach88/arbor/internal/view"
)

// Engine reconciles submitted descriptions into a host tree.
//
// Submissions are queued from any goroutine. A single worker drains them,
// renders a work-in-progress tree in interruptible units, and commits it to
// the host in one uninterruptible step.
//
// Thread-safety model:
//   - Submit(), Render(), Stop(): safe from any goroutine
//   - Work(), Flush(), Snapshot(), Pending(): worker only; Work rejects
//     re-entry with ErrReentrantWork
//   - Run(): drives Work through the Scheduler; call it from one goroutine
//
// INVARIANTS:
//   - the host only ever observes committed trees, never a partial render
//   - the current tree is only written by commit (plus Lanes and Alternate
//     bookkeeping)
//   - within one lane, later submissions to a subtree win
type Engine struct {
	arena   *tree.Arena
	host    host.Host
	current tree.ID

	clock    *Clock
	queue    *submitQueue
	assignor *lane.Assignor
	applier  *commit.Applier

	// worker-owned
	lastSeq int64
	commits int64
	st      *renderState

	timeouts   lane.Timeouts
	now        TimeSource
	ids        IDGenerator
	scheduler  Scheduler
	budget     time.Duration
	hooks      []commit.Hook
	onBoundary func(*BoundaryError)
	journal    Journal
	metrics    *metrics.Metrics
	logger     *slog.Logger

	working   atomic.Bool
	scheduled atomic.Bool
}

// New creates an Engine that mounts into the host instance root.
//
// The current tree starts as a bare root with no children. Options can be
// passed to configure the engine (e.g., WithScheduler, WithJournal).
func New(h host.Host, root host.Handle, opts ...EngineOption) *Engine {
	e := &Engine{
		arena:     tree.NewArena(),
		host:      h,
		clock:     NewClock(),
		timeouts:  lane.DefaultTimeouts(),
		now:       systemTime{},
		ids:       UUIDv7Generator{},
		scheduler: InlineScheduler{},
		budget:    DefaultFrameBudget,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.queue = newSubmitQueue(e.clock)
	e.assignor = lane.NewAssignor(e.timeouts)
	e.applier = &commit.Applier{Host: h, Hooks: e.hooks, Logger: e.logger}

	e.current = e.arena.Create(tree.Kind{Name: view.RootKind}, "", nil)
	rn := e.arena.Get(e.current)
	rn.Handle = root
	rn.Desc = &view.Node{Kind: view.RootKind}
	return e
}

// Submit queues desc as the new description of the position at path.
// A nil desc deletes the position. Thread-safe: may be called from any
// goroutine, including commit hooks.
//
// Returns ErrEngineStopped after Stop.
func (e *Engine) Submit(path view.Path, desc *view.Node, p lane.Priority) error {
	_, ok := e.queue.Enqueue(submission{
		Path:        append(view.Path(nil), path...),
		Desc:        desc,
		Priority:    p,
		SubmittedAt: e.now.Now(),
	})
	if !ok {
		return ErrEngineStopped
	}
	return nil
}

// Render replaces the root's children.
func (e *Engine) Render(p lane.Priority, children ...*view.Node) error {
	return e.Submit(view.RootPath, view.Root(children...), p)
}

// Stop closes the submission queue. Run returns once it notices.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Snapshot renders the current tree. Worker only.
func (e *Engine) Snapshot() string {
	return e.arena.Snapshot(e.current)
}

// Pending returns the number of updates not yet committed or dropped,
// queued submissions included. Worker only.
func (e *Engine) Pending() int {
	return e.assignor.Len() + e.queue.Len()
}

// InProgress reports whether a pass has been started and not finished.
func (e *Engine) InProgress() bool {
	return e.st != nil
}

// Commits returns the number of commits applied so far.
func (e *Engine) Commits() int64 {
	return e.commits
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Run drives the work loop until ctx is cancelled or Stop is called.
//
// Every submission schedules a work step on the Scheduler. With a deferred
// scheduler each step performs one Work call and reschedules itself while
// work remains, so the host gets control back between frames. With an inline
// scheduler steps render to completion.
//
// ERROR HANDLING: a failed pass is logged and the loop continues; its
// updates have already been dropped.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting")
	e.kick(ctx, false)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			return ctx.Err()

		case _, ok := <-e.queue.Wait():
			if !ok {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
			e.kick(ctx, false)
		}
	}
}

func (e *Engine) kick(ctx context.Context, idle bool) {
	if !e.scheduled.CompareAndSwap(false, true) {
		return
	}
	e.scheduler.Schedule(func() { e.step(ctx) }, idle)
}

func (e *Engine) step(ctx context.Context) {
	for {
		e.scheduled.Store(false)

		p, err := e.Work(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil, IsReentrantError(err):
			return
		default:
			e.logger.Error("work failed", "lanes", p.Lanes.String(), "error", err)
		}
		if p.Outcome == OutcomeIdle {
			return
		}
		if e.scheduler.Deferred() {
			e.kick(ctx, lane.Highest(e.assignor.PendingLanes()) == lane.Idle)
			return
		}
	}
}
