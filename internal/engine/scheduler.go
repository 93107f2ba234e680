package engine

import (
	"context"
	"sync"
)

// Scheduler is the host's "run this soon" primitive.
//
// A deferred scheduler runs tasks later, which lets the work loop yield
// between units. A scheduler that is not deferred runs tasks inline; the
// engine then never yields mid-pass.
type Scheduler interface {
	// Schedule arranges for task to run. idle asks for it to run only when
	// nothing else is waiting; schedulers without an idle notion may ignore it.
	Schedule(task func(), idle bool)

	// Deferred reports whether Schedule returns before task runs.
	Deferred() bool
}

// InlineScheduler runs every task immediately on the caller's goroutine.
type InlineScheduler struct{}

// Schedule runs task now.
func (InlineScheduler) Schedule(task func(), _ bool) { task() }

// Deferred is false: the engine never yields with this scheduler.
func (InlineScheduler) Deferred() bool { return false }

// LoopScheduler runs tasks on the goroutine that calls Run. Normal tasks run
// in FIFO order; idle tasks run only when no normal task is waiting.
//
// Thread-safety: Schedule is safe from any goroutine.
type LoopScheduler struct {
	mu     sync.Mutex
	normal []func()
	idle   []func()
	signal chan struct{}
}

// NewLoopScheduler creates an empty scheduler. Call Run to drive it.
func NewLoopScheduler() *LoopScheduler {
	return &LoopScheduler{signal: make(chan struct{}, 1)}
}

// Schedule queues task.
func (s *LoopScheduler) Schedule(task func(), idle bool) {
	s.mu.Lock()
	if idle {
		s.idle = append(s.idle, task)
	} else {
		s.normal = append(s.normal, task)
	}
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// Deferred is true.
func (s *LoopScheduler) Deferred() bool { return true }

func (s *LoopScheduler) next() (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.normal) > 0 {
		task := s.normal[0]
		s.normal[0] = nil
		s.normal = s.normal[1:]
		return task, true
	}
	if len(s.idle) > 0 {
		task := s.idle[0]
		s.idle[0] = nil
		s.idle = s.idle[1:]
		return task, true
	}
	return nil, false
}

// RunPending runs queued tasks until none are left, including tasks they
// schedule. Returns the number of tasks run.
func (s *LoopScheduler) RunPending() int {
	n := 0
	for {
		task, ok := s.next()
		if !ok {
			return n
		}
		task()
		n++
	}
}

// Run executes tasks until ctx is cancelled.
func (s *LoopScheduler) Run(ctx context.Context) error {
	for {
		s.RunPending()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.signal:
		}
	}
}
