// Package commit applies a completed work-in-progress tree to the host.
//
// Apply runs three sub-phases in one uninterruptible call:
//
//  1. pre-mutation hooks, whose failures are logged and ignored
//  2. mutation, in tree traversal order
//  3. post-mutation hooks, whose failures are collected
//
// Mutation order within one commit: a node's own effect, then the deletions
// recorded on it, then its children. Creates and updates therefore reach a
// parent before its children; a deleted subtree is removed children first.
//
// Placement is anchor based. A created or moved node is inserted before the
// host instance of the next sibling that stays in place this commit, found by
// descending into composites and climbing out of composite parents.
package commit

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/arbor/internal/attr"
	"github.com/roach88/arbor/internal/host"
	"github.com/roach88/arbor/internal/tree"
	"github.com/roach88/arbor/internal/view"
)

// Phase identifies a hook sub-phase.
type Phase int

const (
	PreMutation Phase = iota
	PostMutation
)

func (p Phase) String() string {
	switch p {
	case PreMutation:
		return "pre_mutation"
	case PostMutation:
		return "post_mutation"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// NodeInfo describes one entry of the effect list to hooks.
type NodeInfo struct {
	ID     tree.ID
	Kind   tree.Kind
	Key    string
	Path   view.Path
	Effect tree.Effect

	// Handle is NoHandle for composites, and for created nodes before
	// mutation.
	Handle host.Handle
	Attrs  attr.Map
}

// Hook observes the effect list. A created subtree is one entry at its top.
type Hook func(info NodeInfo, phase Phase) error

// Mutation is one applied change, as journaled and reported.
type Mutation struct {
	Effect tree.Effect
	Kind   string
	Key    string
	Path   view.Path
	Index  int
	Handle host.Handle
	Attrs  attr.Map
}

func (m Mutation) String() string {
	return fmt.Sprintf("%s %s %s", m.Effect, m.Kind, m.Path)
}

// HostError wraps a failed host call. The commit is partially applied: every
// mutation before the failing one reached the host and none after it did.
type HostError struct {
	Op      host.Op
	Path    view.Path
	Kind    string
	Applied int
	Err     error
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host %s failed at %s (%s) after %d mutations: %v", e.Op, e.Path, e.Kind, e.Applied, e.Err)
}

func (e *HostError) Unwrap() error {
	return e.Err
}

// IsHostError reports whether err is or wraps a HostError.
func IsHostError(err error) bool {
	var he *HostError
	return errors.As(err, &he)
}

// Result is what one commit did.
type Result struct {
	Mutations []Mutation

	// HookErrors are the post-mutation hook failures.
	HookErrors []error

	// Released counts arena nodes freed with deleted subtrees.
	Released int
}

// Applier commits work-in-progress trees to a host.
type Applier struct {
	Host   host.Host
	Hooks  []Hook
	Logger *slog.Logger
}

type entry struct {
	id     tree.ID
	effect tree.Effect
	path   view.Path

	// deleted entries address a current node removed with its subtree
	deleted bool
}

// Apply commits the tree rooted at root. On success the tree's effects are
// cleared and deleted subtrees are released from the arena; the caller then
// treats root as current. On a host failure Apply stops at once and returns a
// *HostError together with the mutations that were applied.
func (ap *Applier) Apply(a *tree.Arena, root tree.ID) (*Result, error) {
	logger := ap.Logger
	if logger == nil {
		logger = slog.Default()
	}
	entries := collect(a, root)
	res := &Result{}

	for _, e := range entries {
		info := ap.info(a, e)
		for _, hook := range ap.Hooks {
			if err := hook(info, PreMutation); err != nil {
				logger.Warn("pre-mutation hook failed", "path", e.path.String(), "effect", e.effect.String(), "error", err)
			}
		}
	}

	m := &mutator{a: a, host: ap.Host, res: res}
	for _, e := range entries {
		if err := m.apply(e); err != nil {
			return res, err
		}
	}

	for _, e := range entries {
		if e.deleted {
			continue
		}
		info := ap.info(a, e)
		for _, hook := range ap.Hooks {
			if err := hook(info, PostMutation); err != nil {
				logger.Warn("post-mutation hook failed", "path", e.path.String(), "effect", e.effect.String(), "error", err)
				res.HookErrors = append(res.HookErrors, err)
			}
		}
	}

	res.Released = finish(a, root)
	return res, nil
}

func (ap *Applier) info(a *tree.Arena, e entry) NodeInfo {
	n := a.Get(e.id)
	return NodeInfo{
		ID:     e.id,
		Kind:   n.Kind,
		Key:    n.Key,
		Path:   e.path,
		Effect: e.effect,
		Handle: n.Handle,
		Attrs:  n.Attrs,
	}
}

// collect lists the effect entries under root in commit order.
func collect(a *tree.Arena, root tree.ID) []entry {
	type frame struct {
		id   tree.ID
		path view.Path
	}
	var out []entry
	stack := []frame{{root, view.RootPath}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := a.Get(f.id)
		if f.id != root && n.Effect != tree.None {
			out = append(out, entry{id: f.id, effect: n.Effect, path: f.path})
			if n.Effect.Has(tree.Create) {
				// the whole fresh subtree is mounted with its top
				continue
			}
		}
		for _, d := range n.Deletions {
			out = append(out, entry{id: d, effect: tree.Delete, path: f.path.Child(a.Get(d).Segment()), deleted: true})
		}
		kids := a.Children(f.id)
		for i := len(kids) - 1; i >= 0; i-- {
			if a.Dirty(kids[i]) {
				stack = append(stack, frame{kids[i], f.path.Child(a.Get(kids[i]).Segment())})
			}
		}
	}
	return out
}

// finish clears effects below root, fixes parent links and releases deleted
// subtrees. Returns the number of released nodes.
func finish(a *tree.Arena, root tree.ID) int {
	before := a.Live()
	var dirty []tree.ID
	a.Walk(root, func(id tree.ID, _ int) bool {
		if !a.Dirty(id) {
			return false
		}
		dirty = append(dirty, id)
		return true
	})
	for _, id := range dirty {
		n := a.Get(id)
		for _, d := range n.Deletions {
			a.ReleaseSubtree(d)
		}
		n.Effect, n.SubtreeEffect, n.Deletions = tree.None, tree.None, nil
		for c := n.FirstChild; c != tree.Nil; c = a.Get(c).NextSibling {
			a.Get(c).Parent = id
		}
	}
	return before - a.Live()
}
