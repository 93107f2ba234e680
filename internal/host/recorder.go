package host

import (
	"fmt"
	"strings"
	"sync"

	"github.com/roach88/arbor/internal/attr"
)

// Op names a host primitive.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpMove   Op = "move"
)

// Call is one recorded host call.
type Call struct {
	Op     Op
	Handle Handle
	Kind   string
	Attrs  attr.Map
	Patch  attr.Patch
	Pos    Position
	Err    error
}

// String renders a call as one trace line, e.g. `move 3 -> 1:before(4)@0`.
func (c Call) String() string {
	var s string
	switch c.Op {
	case OpCreate:
		s = fmt.Sprintf("create %d %s %s", c.Handle, c.Kind, attr.MustCanonical(c.Attrs))
	case OpUpdate:
		s = fmt.Sprintf("update %d set=%s removed=[%s]", c.Handle, attr.MustCanonical(c.Patch.Set), strings.Join(c.Patch.Removed, ","))
	case OpRemove:
		s = fmt.Sprintf("remove %d", c.Handle)
	case OpMove:
		s = fmt.Sprintf("move %d -> %s", c.Handle, c.Pos)
	default:
		s = string(c.Op)
	}
	if c.Err != nil {
		s += " !" + c.Err.Error()
	}
	return s
}

// FailFunc decides whether a call should fail. It sees the call before it
// reaches the wrapped host; a non-nil error is returned instead.
type FailFunc func(call Call, n int) error

// Recorder wraps a Host and records every call in order.
//
// Thread-safety: safe for concurrent use.
type Recorder struct {
	inner Host

	mu    sync.Mutex
	calls []Call
	fail  FailFunc
}

// NewRecorder wraps inner.
func NewRecorder(inner Host) *Recorder {
	return &Recorder{inner: inner}
}

// FailWhen installs a failure injector. n is the zero-based index of the call.
func (r *Recorder) FailWhen(f FailFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail = f
}

func (r *Recorder) record(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		c.Err = r.fail(c, len(r.calls))
	}
	r.calls = append(r.calls, c)
	return c.Err
}

func (r *Recorder) setLast(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[len(r.calls)-1] = c
}

// Create implements Host.
func (r *Recorder) Create(kind string, attrs attr.Map) (Handle, error) {
	c := Call{Op: OpCreate, Kind: kind, Attrs: attrs}
	if err := r.record(c); err != nil {
		return NoHandle, err
	}
	h, err := r.inner.Create(kind, attrs)
	c.Handle, c.Err = h, err
	r.setLast(c)
	return h, err
}

// Update implements Host.
func (r *Recorder) Update(h Handle, old, updated attr.Map) error {
	c := Call{Op: OpUpdate, Handle: h, Patch: attr.Diff(old, updated)}
	if err := r.record(c); err != nil {
		return err
	}
	return r.inner.Update(h, old, updated)
}

// Remove implements Host.
func (r *Recorder) Remove(h Handle) error {
	if err := r.record(Call{Op: OpRemove, Handle: h}); err != nil {
		return err
	}
	return r.inner.Remove(h)
}

// Move implements Host.
func (r *Recorder) Move(h Handle, pos Position) error {
	if err := r.record(Call{Op: OpMove, Handle: h, Pos: pos}); err != nil {
		return err
	}
	return r.inner.Move(h, pos)
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Reset forgets the recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Trace renders the recorded calls one per line.
func (r *Recorder) Trace() string {
	var b strings.Builder
	for _, c := range r.Calls() {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	return b.String()
}
