package testutil

import "sync"

// ManualScheduler is a deferred scheduler whose tasks run only when the
// test calls RunNext or RunPending.
//
// It implements engine.Scheduler. Because it is deferred, an engine using it
// yields when its frame budget runs out.
//
// Thread-safety: Schedule is safe from any goroutine.
type ManualScheduler struct {
	mu    sync.Mutex
	tasks []scheduled
}

type scheduled struct {
	task func()
	idle bool
}

// NewManualScheduler creates an empty scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule queues task.
func (s *ManualScheduler) Schedule(task func(), idle bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, scheduled{task: task, idle: idle})
}

// Deferred is true.
func (s *ManualScheduler) Deferred() bool { return true }

// Len returns the number of queued tasks.
func (s *ManualScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Idle reports whether the oldest queued task asked for idle time.
func (s *ManualScheduler) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks) > 0 && s.tasks[0].idle
}

// RunNext runs the oldest queued task. Returns false when none is queued.
func (s *ManualScheduler) RunNext() bool {
	s.mu.Lock()
	if len(s.tasks) == 0 {
		s.mu.Unlock()
		return false
	}
	next := s.tasks[0]
	s.tasks[0] = scheduled{}
	s.tasks = s.tasks[1:]
	s.mu.Unlock()

	next.task()
	return true
}

// RunPending runs tasks, including the ones they schedule, until none are
// left or limit tasks have run. Returns the number of tasks run.
func (s *ManualScheduler) RunPending(limit int) int {
	n := 0
	for n < limit && s.RunNext() {
		n++
	}
	return n
}
