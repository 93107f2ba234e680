package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start of a ManualClock.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// ManualClock is a thread-safe wall clock that only moves when told to.
//
// It implements engine.TimeSource, so tests control expiration and frame
// budgets exactly. With a non-zero step, every Now call advances the clock
// by step after reading it, which makes work appear to take time.
type ManualClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewManualClock creates a clock at Epoch.
func NewManualClock() *ManualClock {
	return &ManualClock{now: Epoch}
}

// Now returns the current time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// SetStep makes every Now call advance the clock by d. Zero disables it.
func (c *ManualClock) SetStep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = d
}

// Elapsed returns the time since Epoch without advancing the clock.
func (c *ManualClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(Epoch)
}
