package lane

import (
	"time"

	"github.com/roach88/arbor/internal/view"
)

// Update is one pending submission, stamped by the Assignor.
type Update struct {
	// Seq orders submissions; later submissions win for a subtree.
	Seq int64

	// Path addresses the position whose description is replaced.
	Path view.Path

	// Desc is the new description. nil deletes the position.
	Desc *view.Node

	// Lane is the single class lane of this update.
	Lane Lanes

	SubmittedAt time.Time

	// ExpiresAt is when the update's lane stops yielding. Zero means never.
	ExpiresAt time.Time
}

// Expired reports whether the update's expiration has passed at now.
func (u *Update) Expired(now time.Time) bool {
	return !u.ExpiresAt.IsZero() && !now.Before(u.ExpiresAt)
}

// Timeouts holds the expiration timeout of each class, indexed by Priority.
// A negative timeout never expires. A zero timeout expires on submission,
// which makes the class synchronous.
type Timeouts [NumLanes]time.Duration

// DefaultTimeouts returns the standard per-class timeouts.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		PriorityImmediate:       0,
		PriorityUserInteractive: 250 * time.Millisecond,
		PriorityNormal:          5 * time.Second,
		PriorityDeferred:        10 * time.Second,
		PriorityIdle:            30 * time.Second,
	}
}

// Assignor classifies incoming updates and tracks pending work per lane.
//
// Pending updates are held in submission order. Expiration is tracked per
// lane as the earliest expiration among that lane's pending updates; once a
// lane's expiration passes, Next always selects it and the pass that renders
// it never yields.
//
// Thread-safety: Assignor is not safe for concurrent use. The engine owns it
// from its single worker.
type Assignor struct {
	timeouts Timeouts
	pending  []*Update
	expired  Lanes
}

// NewAssignor creates an Assignor with the given timeouts.
func NewAssignor(t Timeouts) *Assignor {
	return &Assignor{timeouts: t}
}

// Timeouts returns the configured per-class timeouts.
func (a *Assignor) Timeouts() Timeouts {
	return a.timeouts
}

// Assign stamps an update with its lane and expiration and records it as pending.
func (a *Assignor) Assign(seq int64, path view.Path, desc *view.Node, p Priority, now time.Time) *Update {
	u := &Update{
		Seq:         seq,
		Path:        path,
		Desc:        desc,
		Lane:        p.Lane(),
		SubmittedAt: now,
	}
	if d := a.timeouts[PriorityOf(u.Lane)]; d >= 0 {
		u.ExpiresAt = now.Add(d)
	}
	a.pending = append(a.pending, u)
	return u
}

// PendingLanes returns the union of lanes with pending updates.
func (a *Assignor) PendingLanes() Lanes {
	var l Lanes
	for _, u := range a.pending {
		l |= u.Lane
	}
	return l
}

// MarkExpired recomputes the set of expired lanes at now and returns it.
func (a *Assignor) MarkExpired(now time.Time) Lanes {
	var l Lanes
	for _, u := range a.pending {
		if u.Expired(now) {
			l |= u.Lane
		}
	}
	a.expired = l
	return l
}

// ExpiredLanes returns the lanes found expired by the last MarkExpired.
func (a *Assignor) ExpiredLanes() Lanes {
	return a.expired
}

// ExpirationOf returns the earliest expiration among pending updates of
// lane. ok is false when the lane has no pending update that can expire.
func (a *Assignor) ExpirationOf(l Lanes) (at time.Time, ok bool) {
	for _, u := range a.pending {
		if u.Lane&l == 0 || u.ExpiresAt.IsZero() {
			continue
		}
		if !ok || u.ExpiresAt.Before(at) {
			at, ok = u.ExpiresAt, true
		}
	}
	return at, ok
}

// Next applies the selection rule at now: the most urgent pending lane plus
// every expired lane. Returns NoLanes when nothing is pending.
func (a *Assignor) Next(now time.Time) Lanes {
	pending := a.PendingLanes()
	if pending == NoLanes {
		a.expired = NoLanes
		return NoLanes
	}
	return Highest(pending) | a.MarkExpired(now)
}

// Included returns the pending updates in lanes with seq <= upTo, in
// submission order.
func (a *Assignor) Included(lanes Lanes, upTo int64) []*Update {
	var out []*Update
	for _, u := range a.pending {
		if u.Lane&lanes != 0 && u.Seq <= upTo {
			out = append(out, u)
		}
	}
	return out
}

// Finish removes the updates Included(lanes, upTo) would return, after they
// have been committed or dropped. Returns the removed updates.
func (a *Assignor) Finish(lanes Lanes, upTo int64) []*Update {
	var done []*Update
	kept := a.pending[:0]
	for _, u := range a.pending {
		if u.Lane&lanes != 0 && u.Seq <= upTo {
			done = append(done, u)
			continue
		}
		kept = append(kept, u)
	}
	for i := len(kept); i < len(a.pending); i++ {
		a.pending[i] = nil
	}
	a.pending = kept
	a.expired &= a.PendingLanes()
	return done
}

// Pending returns a copy of the pending updates in submission order.
func (a *Assignor) Pending() []*Update {
	out := make([]*Update, len(a.pending))
	copy(out, a.pending)
	return out
}

// Len returns the number of pending updates.
func (a *Assignor) Len() int {
	return len(a.pending)
}

// Drop discards the updates of a failed pass. It removes the same updates
// as Finish; the distinction is kept for callers and logs.
func (a *Assignor) Drop(lanes Lanes, upTo int64) []*Update {
	return a.Finish(lanes, upTo)
}
