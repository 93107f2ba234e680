// Package tree holds the work nodes of the two tree generations in an arena.
//
// Nodes are addressed by ID, a stable index into the arena. The current and
// work-in-progress generations live in the same arena and share unchanged
// subtrees by ID; each position that exists in both generations links its two
// nodes through Alternate.
package tree

import (
	"strings"

	"github.com/roach88/arbor/internal/attr"
	"github.com/roach88/arbor/internal/host"
	"github.com/roach88/arbor/internal/lane"
	"github.com/roach88/arbor/internal/view"
)

// ID addresses a node in an Arena.
type ID int32

// Nil is the absent node.
const Nil ID = -1

// Kind says what a node represents.
type Kind struct {
	Name string

	// Composite nodes own no host instance.
	Composite bool
}

// KindOf returns the kind of a description.
func KindOf(d *view.Node) Kind {
	return Kind{Name: d.Kind, Composite: d.Composite}
}

func (k Kind) String() string {
	if k.Composite {
		return "<" + k.Name + ">"
	}
	return k.Name
}

// Effect is the set of changes a work-in-progress node carries into commit.
// Create and Delete never combine; Update and Move may.
type Effect uint8

const (
	None   Effect = 0
	Create Effect = 1 << 0
	Update Effect = 1 << 1
	Delete Effect = 1 << 2
	Move   Effect = 1 << 3
)

// Placement is the set of effects that require positioning in the host.
const Placement = Create | Move

// Has reports whether every flag of f is set.
func (e Effect) Has(f Effect) bool {
	return e&f == f && f != None
}

var effectNames = []struct {
	e    Effect
	name string
}{
	{Create, "create"},
	{Update, "update"},
	{Delete, "delete"},
	{Move, "move"},
}

// String renders "update|move" style names, or "none".
func (e Effect) String() string {
	if e == None {
		return "none"
	}
	var parts []string
	for _, n := range effectNames {
		if e&n.e != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Node is one position in a tree generation.
type Node struct {
	Kind Kind
	Key  string

	// Index is the slot of the node's description in its parent's child list,
	// nil slots included. Unkeyed nodes are identified by it.
	Index int

	Attrs attr.Map

	// Desc is the description the node was last reconciled from.
	Desc *view.Node

	// Seq is the submission seq of the update that supplied Desc, directly
	// or through an ancestor. 0 for the initial tree.
	Seq int64

	Parent      ID
	FirstChild  ID
	NextSibling ID

	// Alternate is the same position in the other generation.
	Alternate ID

	Effect Effect

	// SubtreeEffect is the union of the effects below the node, so commit
	// can skip clean subtrees.
	SubtreeEffect Effect

	// Deletions are old children of this node's alternate that have no
	// counterpart in the new child list.
	Deletions []ID

	// Lanes are the pending lanes affecting this node or its descendants.
	Lanes lane.Lanes

	// Handle is the host instance. NoHandle for composites and for created
	// nodes not yet committed.
	Handle host.Handle

	Boundary bool

	// Err is the description error contained at this boundary in the last
	// pass, if any.
	Err error
}

// Segment returns the node's identity among its siblings.
func (n *Node) Segment() view.Segment {
	if n.Key != "" {
		return view.KeySegment(n.Key)
	}
	return view.IndexSegment(n.Index)
}

// IsHost reports whether the node owns a host instance.
func (n *Node) IsHost() bool {
	return !n.Kind.Composite
}
