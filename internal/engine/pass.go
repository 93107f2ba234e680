package engine

import (
	"fmt"
	"time"

	"github.com/roach88/arbor/internal/commit"
	"github.com/roach88/arbor/internal/lane"
)

// Outcome is how a Work call ended.
type Outcome int

const (
	// OutcomeIdle means nothing was pending.
	OutcomeIdle Outcome = iota

	// OutcomeYielded means the frame budget ran out mid-pass. The pass
	// resumes on the next Work call.
	OutcomeYielded

	// OutcomeCommitted means a pass finished and its tree is now current.
	OutcomeCommitted

	// OutcomeFailed means the pass ended in a RuntimeError and its updates
	// were dropped.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "idle"
	case OutcomeYielded:
		return "yielded"
	case OutcomeCommitted:
		return "committed"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// ParseOutcome accepts the String() names.
func ParseOutcome(s string) (Outcome, error) {
	for o := OutcomeIdle; o <= OutcomeFailed; o++ {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// Pass reports one Work call.
type Pass struct {
	Outcome Outcome

	// Lanes are the lanes of the pass the call worked on.
	Lanes lane.Lanes

	// Units is the number of units of work performed by this call.
	Units int

	// Restarts counts passes abandoned by this call for more urgent or
	// expired work.
	Restarts int

	// Sync is true when the pass rendered without yielding.
	Sync bool

	// Commit is set when Outcome is OutcomeCommitted.
	Commit *Commit

	// Errors are the description errors contained at boundaries in the
	// committed pass.
	Errors []*BoundaryError

	// HookErrors are the post-mutation hook failures of the commit.
	HookErrors []error
}

// Commit is one applied commit.
type Commit struct {
	ID string

	// Number is the commit's position in apply order, starting at 1.
	Number int64

	// Seq is the highest submission seq the pass considered.
	Seq int64

	Lanes     lane.Lanes
	Mutations []commit.Mutation

	// Released counts arena nodes freed with deleted subtrees.
	Released int
	Duration time.Duration
}
