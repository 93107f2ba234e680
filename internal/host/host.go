// Package host defines the mutation primitives the commit engine drives and
// ships two implementations: Memory, an in-memory host tree, and Recorder,
// which wraps another host and records every call.
//
// The commit engine touches the real tree only through these four calls.
// A created instance is detached until it is placed with Move.
package host

import (
	"fmt"

	"github.com/roach88/arbor/internal/attr"
)

// Handle identifies one host instance. The zero Handle is never valid.
type Handle uint64

// NoHandle is the zero Handle.
const NoHandle Handle = 0

// Position says where an instance goes: inside Parent, immediately before
// Before, or appended when Before is NoHandle. Index is the instance's final
// index among Parent's children once the whole commit is applied; hosts that
// place by anchor may ignore it.
type Position struct {
	Parent Handle
	Before Handle
	Index  int
}

func (p Position) String() string {
	if p.Before == NoHandle {
		return fmt.Sprintf("%d:end@%d", p.Parent, p.Index)
	}
	return fmt.Sprintf("%d:before(%d)@%d", p.Parent, p.Before, p.Index)
}

// Host is the platform-specific mutation surface.
type Host interface {
	// Create makes a detached instance of kind with attrs.
	Create(kind string, attrs attr.Map) (Handle, error)

	// Update patches an instance's attributes from old to updated.
	Update(h Handle, old, updated attr.Map) error

	// Remove detaches an instance and releases what it owns.
	Remove(h Handle) error

	// Move places an instance at pos, detaching it from its current parent
	// first. Used both to insert created instances and to reorder.
	Move(h Handle, pos Position) error
}
