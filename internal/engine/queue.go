package engine

import (
	"sync"
	"time"

	"github.com/roach88/arbor/internal/lane"
	"github.com/roach88/arbor/internal/view"
)

// submission is one Submit call waiting for the worker.
type submission struct {
	Seq         int64
	Path        view.Path
	Desc        *view.Node
	Priority    lane.Priority
	SubmittedAt time.Time
}

// submitQueue is the thread-safe ingress FIFO between Submit callers and the
// worker.
//
// Seq is stamped under the queue lock, so drained submissions are always in
// seq order. The queue uses a channel for signaling to enable context-aware
// waiting in Run.
type submitQueue struct {
	mu     sync.Mutex
	clock  *Clock
	items  []submission
	closed bool
	signal chan struct{} // buffered, size 1
}

func newSubmitQueue(clock *Clock) *submitQueue {
	return &submitQueue{
		clock:  clock,
		items:  make([]submission, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue stamps s with the next seq and appends it.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *submitQueue) Enqueue(s submission) (int64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, false
	}

	s.Seq = q.clock.Next()
	q.items = append(q.items, s)

	// non-blocking; the buffer of 1 coalesces signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return s.Seq, true
}

// Drain removes and returns everything queued, oldest first.
func (q *submitQueue) Drain() []submission {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = make([]submission, 0, cap(out))
	return out
}

// Wait returns a channel that signals when submissions may be available.
// The channel is closed by Close.
func (q *submitQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued submissions.
func (q *submitQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close was called.
func (q *submitQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more submissions will be accepted.
// Wakes any waiters by closing the signal channel.
func (q *submitQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
