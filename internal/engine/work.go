package engine

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/roach88/arbor/internal/commit"
	"github.com/roach88/arbor/internal/lane"
	"github.com/roach88/arbor/internal/metrics"
	"github.com/roach88/arbor/internal/reconcile"
	"github.com/roach88/arbor/internal/store"
	"github.com/roach88/arbor/internal/tree"
	"github.com/roach88/arbor/internal/view"
)

// frame is a cursor position: a work-in-progress node, its path and the seq
// of the newest update that supplied its description, in this pass or an
// earlier commit.
type frame struct {
	id   tree.ID
	path view.Path
	seq  int64
}

// renderState is one pass in progress.
type renderState struct {
	lanes lane.Lanes
	upTo  int64
	sync  bool
	root  tree.ID

	// updates indexes the included updates by path string. Later submissions
	// overwrite earlier ones.
	updates map[string]*lane.Update

	// targets holds the parent path of every included update, so nodes with
	// no update below them skip the lookup.
	targets map[string]struct{}

	cursor *frame
	stack  []frame

	created  map[tree.ID]struct{}
	seqs     map[tree.ID]int64
	bailouts []tree.ID
	errors   []*BoundaryError
	units    int
}

// Work performs one scheduling pass, or resumes the pass in progress.
//
// With a deferred scheduler the pass yields when the frame budget runs out
// (OutcomeYielded) and the caller re-invokes Work later; ctx cancellation
// between units also leaves the pass resumable. Otherwise the pass renders to
// completion and commits.
//
// CRITICAL: Work must only be called from the worker. Calls from a commit
// hook or from a concurrent Work return ErrReentrantWork.
func (e *Engine) Work(ctx context.Context) (Pass, error) {
	if !e.working.CompareAndSwap(false, true) {
		return Pass{}, ErrReentrantWork
	}
	defer e.working.Store(false)

	var p Pass
	e.ingest()

	start := e.now.Now()
	if e.st != nil && e.interrupt(start) {
		p.Restarts++
	}
	if e.st == nil && !e.begin(start) {
		return p, nil
	}

	for e.st.cursor != nil {
		if err := ctx.Err(); err != nil {
			p.Lanes = e.st.lanes
			p.Outcome = OutcomeYielded
			return p, err
		}

		if err := e.performUnit(); err != nil {
			return e.failPass(p, err)
		}
		p.Units++

		if e.st.cursor == nil || e.st.sync {
			continue
		}

		if e.queue.Len() > 0 {
			e.ingest()
			now := e.now.Now()
			if e.interrupt(now) {
				p.Restarts++
				if !e.begin(now) {
					return p, nil
				}
				continue
			}
			if e.st.sync {
				continue
			}
		}

		if e.now.Now().Sub(start) >= e.budget {
			p.Outcome = OutcomeYielded
			p.Lanes = e.st.lanes
			e.metrics.ObservePass(metrics.OutcomeYielded)
			e.logger.Debug("pass yielded", "lanes", e.st.lanes.String(), "units", p.Units)
			return p, nil
		}
	}

	return e.commit(ctx, p)
}

// Flush runs passes until nothing is pending, resuming across yields.
// Returns the first pass error; later passes still run.
func (e *Engine) Flush(ctx context.Context) error {
	var first error
	for {
		p, err := e.Work(ctx)
		if err != nil {
			if ctx.Err() != nil || IsReentrantError(err) {
				return err
			}
			if first == nil {
				first = err
			}
		}
		if p.Outcome == OutcomeIdle {
			return first
		}
	}
}

// ingest moves queued submissions to the assignor and marks their lanes on
// the current tree.
func (e *Engine) ingest() {
	subs := e.queue.Drain()
	for _, s := range subs {
		u := e.assignor.Assign(s.Seq, s.Path, s.Desc, s.Priority, s.SubmittedAt)
		e.lastSeq = s.Seq
		e.markLanes(u.Path, u.Lane)
		e.logger.Debug("update queued", "seq", u.Seq, "path", u.Path.String(), "lane", u.Lane.String())
	}
	if len(subs) > 0 {
		e.metrics.SetPending(e.assignor.Len())
	}
}

// markLanes ORs l into every current node on path that exists. Lanes are
// scheduling bookkeeping, not host-visible state.
func (e *Engine) markLanes(path view.Path, l lane.Lanes) {
	id := e.current
	e.arena.Get(id).Lanes |= l
	for _, seg := range path {
		next := tree.Nil
		for c := e.arena.Get(id).FirstChild; c != tree.Nil; c = e.arena.Get(c).NextSibling {
			if e.arena.Get(c).Segment() == seg {
				next = c
				break
			}
		}
		if next == tree.Nil {
			return
		}
		id = next
		e.arena.Get(id).Lanes |= l
	}
}

// clearLanes removes l from the current tree, pruning at nodes that do not
// carry it.
func (e *Engine) clearLanes(l lane.Lanes) {
	e.arena.Walk(e.current, func(id tree.ID, _ int) bool {
		n := e.arena.Get(id)
		if !n.Lanes.Intersects(l) {
			return false
		}
		n.Lanes &^= l
		return true
	})
}

// settle clears the finished lanes and re-marks what is still pending.
func (e *Engine) settle(l lane.Lanes) {
	e.clearLanes(l)
	for _, u := range e.assignor.Pending() {
		e.markLanes(u.Path, u.Lane)
	}
	e.metrics.SetPending(e.assignor.Len())
}

// begin starts a pass for the lanes selected at now. Returns false when
// nothing is pending.
func (e *Engine) begin(now time.Time) bool {
	lanes := e.assignor.Next(now)
	if lanes == lane.NoLanes {
		return false
	}
	expired := e.assignor.ExpiredLanes()

	st := &renderState{
		lanes:   lanes,
		upTo:    e.lastSeq,
		sync:    !e.scheduler.Deferred() || lanes.Intersects(lane.Immediate) || lanes.Intersects(expired),
		updates: make(map[string]*lane.Update),
		targets: make(map[string]struct{}),
		created: make(map[tree.ID]struct{}),
		seqs:    make(map[tree.ID]int64),
	}
	for _, u := range e.assignor.Included(lanes, st.upTo) {
		st.updates[u.Path.String()] = u
		if !u.Path.IsRoot() {
			st.targets[u.Path.Parent().String()] = struct{}{}
		}
	}

	st.root = e.arena.CloneAsWorkInProgress(e.current)
	rootSeq := e.arena.Get(st.root).Seq
	if u, ok := st.updates[view.RootPath.String()]; ok && u.Seq > rootSeq {
		e.arena.Get(st.root).Desc = rootDescription(u.Desc)
		rootSeq = u.Seq
	}
	st.cursor = &frame{id: st.root, path: view.RootPath, seq: rootSeq}

	e.st = st
	e.logger.Debug("pass started", "lanes", lanes.String(), "up_to", st.upTo, "sync", st.sync, "updates", len(st.updates))
	return true
}

// rootDescription keeps the root's kind whatever was submitted for it.
func rootDescription(d *view.Node) *view.Node {
	if d == nil {
		return &view.Node{Kind: view.RootKind}
	}
	return &view.Node{Kind: view.RootKind, Children: d.Children}
}

// interrupt re-applies the selection rule against the pass in progress.
// Returns true when the pass was abandoned.
func (e *Engine) interrupt(now time.Time) bool {
	st := e.st
	next := e.assignor.Next(now)
	expired := e.assignor.ExpiredLanes()

	switch {
	case next.MoreUrgent(st.lanes):
		e.abandon("more urgent lanes pending: " + next.String())
		return true
	case expired&^st.lanes != lane.NoLanes:
		e.abandon("lanes expired: " + (expired &^ st.lanes).String())
		return true
	case !st.sync && expired.Intersects(st.lanes):
		st.sync = true
		e.logger.Debug("pass lanes expired; rendering without yielding", "lanes", st.lanes.String())
	}
	return false
}

// abandon discards the pass in progress. Only nodes created by the pass are
// released; clones stay as reusable alternates of their current nodes.
func (e *Engine) abandon(reason string) {
	st := e.st
	for id := range st.created {
		e.arena.Release(id)
	}
	e.st = nil
	e.metrics.ObservePass(metrics.OutcomeAbandoned)
	e.logger.Debug("pass abandoned", "lanes", st.lanes.String(), "reason", reason, "units", st.units)
}

// performUnit reconciles the node at the cursor and advances the cursor.
func (e *Engine) performUnit() error {
	st := e.st
	f := st.cursor
	st.units++
	e.metrics.AddUnits(1)
	e.arena.Get(f.id).Seq = f.seq

	descend, err := e.beginWork(f)
	if err != nil {
		var de *reconcile.DescriptionError
		if !errors.As(err, &de) {
			return err
		}
		de.Path = f.path
		if !e.contain(f, de) {
			return de
		}
		return nil
	}

	n := e.arena.Get(f.id)
	if descend && n.FirstChild != tree.Nil {
		st.stack = append(st.stack, *f)
		st.cursor = e.childFrame(&st.stack[len(st.stack)-1], n.FirstChild)
		return nil
	}
	e.completeUnit(f.id)
	return nil
}

// beginWork reconciles the children of the node at f. It reports whether
// the children need visiting; a bailed-out node keeps its current children.
func (e *Engine) beginWork(f *frame) (bool, error) {
	st := e.st
	n := e.arena.Get(f.id)

	oldFirst := tree.Nil
	var base []*view.Node
	var cur *tree.Node
	if n.Effect.Has(tree.Create) {
		base = n.Desc.Children
	} else {
		cur = e.arena.Get(n.Alternate)
		if n.Desc == cur.Desc && !n.Lanes.Intersects(st.lanes) {
			st.bailouts = append(st.bailouts, f.id)
			return false, nil
		}
		oldFirst = cur.FirstChild
		if n.Desc == cur.Desc {
			base = e.currentDescriptions(cur)
		} else {
			base = n.Desc.Children
		}
	}

	descs, seqs := e.substitute(f, base, cur)
	res, err := reconcile.Children(e.arena, f.id, oldFirst, descs)
	if err != nil {
		return false, err
	}
	for _, id := range res.Created {
		st.created[id] = struct{}{}
	}
	for _, id := range res.Children {
		if s, ok := seqs[e.arena.Get(id).Index]; ok {
			st.seqs[id] = s
		}
	}
	return true, nil
}

// currentDescriptions rebuilds a child description list from the current
// children, nil holes included, so unkeyed identities stay stable.
func (e *Engine) currentDescriptions(cur *tree.Node) []*view.Node {
	var out []*view.Node
	for c := cur.FirstChild; c != tree.Nil; c = e.arena.Get(c).NextSibling {
		n := e.arena.Get(c)
		for len(out) <= n.Index {
			out = append(out, nil)
		}
		out[n.Index] = n.Desc
	}
	return out
}

// substitute picks, for each child slot, the newest description: the one
// in base (supplied at f.seq), the current child's when a later commit
// supplied it, or an included update's when that is newer still. cur is the
// current counterpart of f, nil for created nodes. base is never written; it
// may belong to a submitted description.
func (e *Engine) substitute(f *frame, base []*view.Node, cur *tree.Node) ([]*view.Node, map[int]int64) {
	st := e.st
	_, targeted := st.targets[f.path.String()]
	if !targeted && cur == nil {
		return base, nil
	}
	current := e.currentChildren(cur)

	out := base
	var seqs map[int]int64
	for i, d := range base {
		seg := view.Identity(d, i)
		desc, seq := d, f.seq
		if c, ok := current[seg]; ok && d != nil && c.Seq > seq {
			desc, seq = c.Desc, c.Seq
		}
		if targeted {
			if u, ok := st.updates[f.path.Child(seg).String()]; ok && u.Seq > seq {
				desc, seq = u.Desc, u.Seq
			}
		}
		if desc == d {
			continue
		}
		if seqs == nil {
			out = slices.Clone(base)
			seqs = make(map[int]int64)
		}
		out[i] = desc
		seqs[i] = seq
	}
	return out, seqs
}

// currentChildren indexes the children of cur by identity.
func (e *Engine) currentChildren(cur *tree.Node) map[view.Segment]*tree.Node {
	if cur == nil || cur.FirstChild == tree.Nil {
		return nil
	}
	out := make(map[view.Segment]*tree.Node)
	for c := cur.FirstChild; c != tree.Nil; c = e.arena.Get(c).NextSibling {
		n := e.arena.Get(c)
		out[n.Segment()] = n
	}
	return out
}

func (e *Engine) childFrame(parent *frame, child tree.ID) *frame {
	seq := max(parent.seq, e.arena.Get(child).Seq)
	if s, ok := e.st.seqs[child]; ok {
		seq = max(seq, s)
	}
	return &frame{
		id:   child,
		path: parent.path.Child(e.arena.Get(child).Segment()),
		seq:  seq,
	}
}

// completeUnit bubbles effects from id upward until it finds a sibling to
// visit. The cursor becomes nil once the root completes.
func (e *Engine) completeUnit(id tree.ID) {
	st := e.st
	for {
		e.arena.BubbleEffects(id)
		if len(st.stack) == 0 {
			st.cursor = nil
			return
		}
		parent := &st.stack[len(st.stack)-1]
		if sib := e.arena.Get(id).NextSibling; sib != tree.Nil {
			st.cursor = e.childFrame(parent, sib)
			return
		}
		id = parent.id
		st.stack = st.stack[:len(st.stack)-1]
	}
}

// contain handles a description error at the nearest boundary at or above
// f. The boundary's work-in-progress subtree is discarded and it keeps its
// current children. Returns false when no boundary encloses f.
func (e *Engine) contain(f *frame, de *reconcile.DescriptionError) bool {
	st := e.st

	depth := -1
	var b frame
	if e.arena.Get(f.id).Boundary {
		b, depth = *f, len(st.stack)
	} else {
		for i := len(st.stack) - 1; i >= 0; i-- {
			if e.arena.Get(st.stack[i].id).Boundary {
				b, depth = st.stack[i], i
				break
			}
		}
	}
	if depth < 0 {
		return false
	}

	bn := e.arena.Get(b.id)
	if b.id != f.id {
		discarded := make(map[tree.ID]struct{})
		e.arena.Walk(b.id, func(id tree.ID, _ int) bool {
			if id == b.id {
				return true
			}
			discarded[id] = struct{}{}
			return e.reconciled(id)
		})
		for id := range discarded {
			if _, ok := st.created[id]; ok {
				e.arena.Release(id)
				delete(st.created, id)
			}
			delete(st.seqs, id)
		}
		st.bailouts = slices.DeleteFunc(st.bailouts, func(id tree.ID) bool {
			_, gone := discarded[id]
			return gone
		})
	}

	if bn.Effect.Has(tree.Create) {
		bn.FirstChild = tree.Nil
	} else {
		bn.FirstChild = e.arena.Get(bn.Alternate).FirstChild
		st.bailouts = append(st.bailouts, b.id)
	}
	bn.Deletions = nil
	bn.Err = de
	st.stack = st.stack[:depth]

	be := &BoundaryError{Boundary: b.path, Err: de}
	st.errors = append(st.errors, be)
	e.logger.Warn("description error contained", "boundary", b.path.String(), "path", de.Path.String(), "error", de)
	if e.onBoundary != nil {
		e.onBoundary(be)
	}

	e.completeUnit(b.id)
	return true
}

// reconciled reports whether the children of a work-in-progress node belong
// to this pass. A clone that was not visited still shares its current
// children.
func (e *Engine) reconciled(id tree.ID) bool {
	if _, ok := e.st.created[id]; ok {
		return true
	}
	n := e.arena.Get(id)
	return n.FirstChild != e.arena.Get(n.Alternate).FirstChild
}

// failPass drops the pass and its updates.
func (e *Engine) failPass(p Pass, err error) (Pass, error) {
	st := e.st
	var de *reconcile.DescriptionError
	var re *RuntimeError
	if !errors.As(err, &re) && errors.As(err, &de) {
		err = NewDescriptionError(st.lanes, de)
	}

	for id := range st.created {
		e.arena.Release(id)
	}
	e.st = nil
	dropped := e.assignor.Drop(st.lanes, st.upTo)
	e.settle(st.lanes)

	p.Outcome = OutcomeFailed
	p.Lanes = st.lanes
	p.Sync = st.sync
	e.metrics.ObservePass(metrics.OutcomeFailed)
	e.logger.Error("pass failed; updates dropped", "lanes", st.lanes.String(), "dropped", len(dropped), "error", err)
	return p, err
}

// commit applies the completed pass and makes its tree current.
func (e *Engine) commit(ctx context.Context, p Pass) (Pass, error) {
	st := e.st
	p.Lanes = st.lanes
	p.Sync = st.sync

	start := e.now.Now()
	res, err := e.applier.Apply(e.arena, st.root)
	if err != nil {
		path := view.RootPath
		var he *commit.HostError
		if errors.As(err, &he) {
			path = he.Path
		}
		return e.failPass(p, NewHostFailureError(st.lanes, path, err))
	}

	e.current = st.root
	for _, id := range st.bailouts {
		for c := e.arena.Get(id).FirstChild; c != tree.Nil; c = e.arena.Get(c).NextSibling {
			e.arena.Get(c).Parent = id
		}
	}
	e.st = nil
	e.assignor.Finish(st.lanes, st.upTo)
	e.settle(st.lanes)

	e.commits++
	c := &Commit{
		ID:        e.ids.Generate(),
		Number:    e.commits,
		Seq:       st.upTo,
		Lanes:     st.lanes,
		Mutations: res.Mutations,
		Released:  res.Released,
		Duration:  e.now.Now().Sub(start),
	}
	e.record(ctx, c)

	e.metrics.ObservePass(metrics.OutcomeCommitted)
	e.metrics.ObserveCommit(c.Duration)
	for _, m := range c.Mutations {
		for _, flag := range []tree.Effect{tree.Create, tree.Update, tree.Delete, tree.Move} {
			if m.Effect.Has(flag) {
				e.metrics.ObserveMutation(flag.String())
			}
		}
	}
	e.logger.Info("commit applied",
		"commit", c.ID,
		"number", c.Number,
		"lanes", c.Lanes.String(),
		"mutations", len(c.Mutations),
		"units", st.units,
		"released", c.Released,
		"contained", len(st.errors),
	)

	p.Outcome = OutcomeCommitted
	p.Commit = c
	p.Errors = st.errors
	p.HookErrors = res.HookErrors
	return p, nil
}

// record writes c to the journal. Failures are logged; the host already
// reflects the commit.
func (e *Engine) record(ctx context.Context, c *Commit) {
	if e.journal == nil {
		return
	}
	rec := store.Commit{
		ID:            c.ID,
		Number:        c.Number,
		Seq:           c.Seq,
		Lanes:         c.Lanes.String(),
		MutationCount: len(c.Mutations),
		Mutations:     make([]store.Mutation, len(c.Mutations)),
	}
	for i, m := range c.Mutations {
		rec.Mutations[i] = store.Mutation{
			Ord:    i,
			Effect: m.Effect.String(),
			Kind:   m.Kind,
			Key:    m.Key,
			Path:   m.Path.String(),
			Index:  m.Index,
			Attrs:  m.Attrs,
		}
	}
	if err := e.journal.WriteCommit(ctx, rec); err != nil {
		e.logger.Warn("journal write failed", "commit", c.ID, "error", err)
	}
}
