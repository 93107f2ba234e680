// Package reconcile diffs one old child list against a new list of
// descriptions and builds the work-in-progress child list.
//
// The algorithm is a single O(n) pass, not a minimal tree edit:
//
//   - identity is the key when present, otherwise the slot index
//   - same identity and kind: the old node is cloned and tagged Update when
//     its attributes differ
//   - same identity, different kind: the old subtree is deleted and a new
//     node created
//   - old nodes with no new identity are deleted; new identities with no old
//     node are created
//   - a retained node is tagged Move when its rank among retained siblings
//     changed
//
// Unkeyed lists therefore pay for insertions before the end: every following
// sibling shifts identity and is updated in place. Callers needing cheap
// inserts supply keys.
package reconcile

import (
	"fmt"
	"slices"

	"github.com/roach88/arbor/internal/attr"
	"github.com/roach88/arbor/internal/tree"
	"github.com/roach88/arbor/internal/view"
)

// DescriptionError reports a malformed sibling list.
type DescriptionError struct {
	// Path is the parent whose child list is malformed. Filled in by the
	// caller that knows where the list sits.
	Path    view.Path
	Problem *view.Problem
}

func (e *DescriptionError) Error() string {
	return fmt.Sprintf("description error at %s: %s", e.Path, e.Problem.Error())
}

// Result summarizes one reconciled child list.
type Result struct {
	// Children is the new work-in-progress child list in order.
	Children []tree.ID

	// Created are freshly allocated nodes. They have no alternate and must be
	// released if the pass is abandoned.
	Created []tree.ID

	// Deleted are old (current) children scheduled for removal, also recorded
	// in the parent's Deletions.
	Deleted []tree.ID
}

type match struct {
	wip    tree.ID
	oldPos int
}

// Children reconciles the old list starting at oldFirst against descs and
// links the result under wipParent, replacing its child list. Old nodes are
// only read. A malformed list is rejected before anything is allocated.
//
// Update is tagged only when a retained node's attributes differ. An unkeyed
// front insert into n children therefore updates each shifted sibling whose
// attributes change, which is all n only when no two neighbours are equal.
func Children(a *tree.Arena, wipParent, oldFirst tree.ID, descs []*view.Node) (Result, error) {
	if p := view.CheckSiblings(descs); p != nil {
		return Result{}, &DescriptionError{Problem: p}
	}

	var olds []tree.ID
	byIdentity := make(map[view.Segment]int)
	for id := oldFirst; id != tree.Nil; id = a.Get(id).NextSibling {
		byIdentity[a.Get(id).Segment()] = len(olds)
		olds = append(olds, id)
	}
	used := make([]bool, len(olds))

	var res Result
	var matched []match
	for i, d := range descs {
		if d == nil {
			continue
		}
		pos, ok := byIdentity[view.Identity(d, i)]
		if ok {
			used[pos] = true
			old := a.Get(olds[pos])
			if old.Kind == tree.KindOf(d) {
				wip := a.CloneAsWorkInProgress(olds[pos])
				w := a.Get(wip)
				w.Index = i
				w.Desc = d
				w.Boundary = d.Boundary
				w.Attrs = d.Attrs
				if !attr.EqualMaps(old.Attrs, d.Attrs) {
					w.Effect |= tree.Update
				}
				res.Children = append(res.Children, wip)
				matched = append(matched, match{wip: wip, oldPos: pos})
				continue
			}
			res.Deleted = append(res.Deleted, olds[pos])
		}
		id := a.Create(tree.KindOf(d), d.Key, d.Attrs)
		n := a.Get(id)
		n.Index = i
		n.Desc = d
		n.Boundary = d.Boundary
		n.Effect = tree.Create
		res.Children = append(res.Children, id)
		res.Created = append(res.Created, id)
	}
	for pos, id := range olds {
		if !used[pos] {
			res.Deleted = append(res.Deleted, id)
		}
	}
	markMoves(a, matched)

	p := a.Get(wipParent)
	p.FirstChild = tree.Nil
	p.Deletions = res.Deleted
	prev := tree.Nil
	for _, id := range res.Children {
		a.LinkChild(wipParent, prev, id)
		prev = id
	}
	return res, nil
}

// markMoves tags retained nodes whose rank among retained siblings differs
// between the old and new orders. The untagged nodes keep their relative
// order, so commit can place everything else against them.
func markMoves(a *tree.Arena, matched []match) {
	order := make([]int, len(matched))
	for j, m := range matched {
		order[j] = m.oldPos
	}
	slices.Sort(order)
	for j, m := range matched {
		if order[j] != m.oldPos {
			a.Get(m.wip).Effect |= tree.Move
		}
	}
}
