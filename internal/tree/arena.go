package tree

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/arbor/internal/attr"
)

// Arena stores nodes of both generations.
//
// Released IDs are recycled. Pointers returned by Get stay valid until the
// node is released.
//
// Thread-safety: not safe for concurrent use; owned by the engine's worker.
type Arena struct {
	nodes []*Node
	free  []ID
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

func (a *Arena) alloc(n *Node) ID {
	if k := len(a.free); k > 0 {
		id := a.free[k-1]
		a.free = a.free[:k-1]
		a.nodes[id] = n
		return id
	}
	a.nodes = append(a.nodes, n)
	return ID(len(a.nodes) - 1)
}

// Get returns the node for id. It panics on Nil or released IDs.
func (a *Arena) Get(id ID) *Node {
	if id < 0 || int(id) >= len(a.nodes) || a.nodes[id] == nil {
		panic(fmt.Sprintf("tree: invalid node id %d", id))
	}
	return a.nodes[id]
}

// Valid reports whether id addresses a live node.
func (a *Arena) Valid(id ID) bool {
	return id >= 0 && int(id) < len(a.nodes) && a.nodes[id] != nil
}

// Live returns the number of allocated nodes.
func (a *Arena) Live() int {
	return len(a.nodes) - len(a.free)
}

// Create allocates a detached node with no alternate.
func (a *Arena) Create(kind Kind, key string, attrs attr.Map) ID {
	return a.alloc(&Node{
		Kind:        kind,
		Key:         key,
		Attrs:       attrs,
		Parent:      Nil,
		FirstChild:  Nil,
		NextSibling: Nil,
		Alternate:   Nil,
	})
}

// CloneAsWorkInProgress returns the work-in-progress counterpart of current.
//
// The clone copies the current node's fields and shares its child list until
// the children are reconciled. When current already has an alternate that
// links back to it, that slot is reused instead of allocating. Only the
// current node's Alternate is written.
func (a *Arena) CloneAsWorkInProgress(current ID) ID {
	c := a.Get(current)
	wip := c.Alternate
	if !a.Valid(wip) || a.nodes[wip].Alternate != current {
		wip = a.alloc(&Node{})
	}
	w := a.nodes[wip]
	*w = Node{
		Kind:        c.Kind,
		Key:         c.Key,
		Index:       c.Index,
		Attrs:       c.Attrs,
		Desc:        c.Desc,
		Seq:         c.Seq,
		Parent:      c.Parent,
		FirstChild:  c.FirstChild,
		NextSibling: Nil,
		Alternate:   current,
		Lanes:       c.Lanes,
		Handle:      c.Handle,
		Boundary:    c.Boundary,
	}
	c.Alternate = wip
	return wip
}

// LinkChild inserts child into parent's list after prev, or first when prev
// is Nil.
func (a *Arena) LinkChild(parent, prev, child ID) {
	p, c := a.Get(parent), a.Get(child)
	c.Parent = parent
	if prev == Nil {
		c.NextSibling = p.FirstChild
		p.FirstChild = child
		return
	}
	pr := a.Get(prev)
	c.NextSibling = pr.NextSibling
	pr.NextSibling = child
}

// UnlinkChild removes child from parent's list. It reports whether child was
// found.
func (a *Arena) UnlinkChild(parent, child ID) bool {
	p := a.Get(parent)
	prev := Nil
	for id := p.FirstChild; id != Nil; id = a.Get(id).NextSibling {
		if id != child {
			prev = id
			continue
		}
		c := a.Get(id)
		if prev == Nil {
			p.FirstChild = c.NextSibling
		} else {
			a.Get(prev).NextSibling = c.NextSibling
		}
		c.Parent, c.NextSibling = Nil, Nil
		return true
	}
	return false
}

// Children returns the child list of id in order.
func (a *Arena) Children(id ID) []ID {
	var out []ID
	for c := a.Get(id).FirstChild; c != Nil; c = a.Get(c).NextSibling {
		out = append(out, c)
	}
	return out
}

// Release frees one node. A mutual alternate forgets it.
func (a *Arena) Release(id ID) {
	n := a.Get(id)
	if alt := n.Alternate; a.Valid(alt) && a.nodes[alt].Alternate == id {
		a.nodes[alt].Alternate = Nil
	}
	a.nodes[id] = nil
	a.free = append(a.free, id)
}

// ReleaseSubtree frees id, its descendants and their mutual alternates.
// Used for subtrees deleted at commit.
func (a *Arena) ReleaseSubtree(id ID) {
	for _, n := range a.PostOrder(id) {
		node := a.Get(n)
		if alt := node.Alternate; a.Valid(alt) && a.nodes[alt].Alternate == n {
			a.Release(alt)
		}
		a.Release(n)
	}
}

// Walk visits the subtree rooted at root in pre-order without recursion.
// Returning false from fn skips the node's children.
func (a *Arena) Walk(root ID, fn func(id ID, depth int) bool) {
	type frame struct {
		id    ID
		depth int
	}
	stack := []frame{{root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.id, f.depth) {
			continue
		}
		kids := a.Children(f.id)
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{kids[i], f.depth + 1})
		}
	}
}

// PostOrder returns the subtree rooted at root with every node after its
// children, children in list order.
func (a *Arena) PostOrder(root ID) []ID {
	var out []ID
	stack := []ID{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, id)
		for c := a.Get(id).FirstChild; c != Nil; c = a.Get(c).NextSibling {
			stack = append(stack, c)
		}
	}
	slices.Reverse(out)
	return out
}

// Snapshot renders the host-visible state of the subtree at root: structure,
// kinds, keys, indices, attributes, handles and effects. Lanes and alternates
// are scheduling bookkeeping and are left out.
func (a *Arena) Snapshot(root ID) string {
	var b strings.Builder
	a.Walk(root, func(id ID, depth int) bool {
		n := a.Get(id)
		fmt.Fprintf(&b, "%s%d %s", strings.Repeat("  ", depth), id, n.Kind)
		if n.Key != "" {
			fmt.Fprintf(&b, " key=%s", n.Key)
		}
		fmt.Fprintf(&b, " idx=%d h=%d attrs=%s", n.Index, n.Handle, attr.MustCanonical(n.Attrs))
		if n.Effect != None || n.SubtreeEffect != None || len(n.Deletions) > 0 {
			fmt.Fprintf(&b, " effect=%s sub=%s del=%v", n.Effect, n.SubtreeEffect, n.Deletions)
		}
		b.WriteByte('\n')
		return true
	})
	return b.String()
}

// BubbleEffects recomputes SubtreeEffect of id from its children. A node with
// pending Deletions counts as Delete for its ancestors.
func (a *Arena) BubbleEffects(id ID) {
	n := a.Get(id)
	var sub Effect
	for c := n.FirstChild; c != Nil; c = a.Get(c).NextSibling {
		child := a.Get(c)
		sub |= child.Effect | child.SubtreeEffect
	}
	if len(n.Deletions) > 0 {
		sub |= Delete
	}
	n.SubtreeEffect = sub
}

// Dirty reports whether commit has anything to do at or below id.
func (a *Arena) Dirty(id ID) bool {
	n := a.Get(id)
	return n.Effect != None || n.SubtreeEffect != None || len(n.Deletions) > 0
}
