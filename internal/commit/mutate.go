package commit

import (
	"github.com/roach88/arbor/internal/host"
	"github.com/roach88/arbor/internal/tree"
)

type mutator struct {
	a    *tree.Arena
	host host.Host
	res  *Result
}

func (m *mutator) fail(op host.Op, e entry, err error) error {
	return &HostError{
		Op:      op,
		Path:    e.path,
		Kind:    m.a.Get(e.id).Kind.Name,
		Applied: len(m.res.Mutations),
		Err:     err,
	}
}

func (m *mutator) record(e entry) {
	n := m.a.Get(e.id)
	m.res.Mutations = append(m.res.Mutations, Mutation{
		Effect: e.effect,
		Kind:   n.Kind.Name,
		Key:    n.Key,
		Path:   e.path,
		Index:  n.Index,
		Handle: n.Handle,
		Attrs:  n.Attrs,
	})
}

func (m *mutator) apply(e entry) error {
	switch {
	case e.deleted:
		if err := m.remove(e); err != nil {
			return err
		}
	case e.effect.Has(tree.Create):
		if err := m.mount(e); err != nil {
			return err
		}
	default:
		n := m.a.Get(e.id)
		if e.effect.Has(tree.Update) && n.IsHost() {
			old := m.a.Get(n.Alternate).Attrs
			if err := m.host.Update(n.Handle, old, n.Attrs); err != nil {
				return m.fail(host.OpUpdate, e, err)
			}
		}
		if e.effect.Has(tree.Move) {
			if err := m.place(e, e.id); err != nil {
				return err
			}
		}
	}
	m.record(e)
	return nil
}

// remove detaches every host instance of a deleted subtree, children first.
func (m *mutator) remove(e entry) error {
	for _, id := range m.a.PostOrder(e.id) {
		n := m.a.Get(id)
		if !n.IsHost() || n.Handle == host.NoHandle {
			continue
		}
		if err := m.host.Remove(n.Handle); err != nil {
			return m.fail(host.OpRemove, e, err)
		}
	}
	return nil
}

// mount creates the host instances of a fresh subtree. Inner instances are
// appended to their fresh host parents; the top-level ones are placed.
func (m *mutator) mount(e entry) error {
	var err error
	m.a.Walk(e.id, func(id tree.ID, _ int) bool {
		if err != nil {
			return false
		}
		n := m.a.Get(id)
		if !n.IsHost() {
			return true
		}
		h, cerr := m.host.Create(n.Kind.Name, n.Attrs)
		if cerr != nil {
			err = m.fail(host.OpCreate, e, cerr)
			return false
		}
		n.Handle = h
		if p, inside := m.freshHostParent(e.id, id); inside {
			pos := host.Position{Parent: m.a.Get(p).Handle, Index: m.hostIndex(p, id)}
			if merr := m.host.Move(h, pos); merr != nil {
				err = m.fail(host.OpMove, e, merr)
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}
	return m.place(e, e.id)
}

// freshHostParent finds the host instance id attaches to inside the subtree
// rooted at top. inside is false for the subtree's top-level instances.
func (m *mutator) freshHostParent(top, id tree.ID) (tree.ID, bool) {
	if id == top {
		return tree.Nil, false
	}
	for p := m.a.Get(id).Parent; ; p = m.a.Get(p).Parent {
		if m.a.Get(p).IsHost() {
			return p, true
		}
		if p == top {
			return tree.Nil, false
		}
	}
}

// place positions the top-level host instances of id under its host parent,
// in order, before the anchor.
func (m *mutator) place(e entry, id tree.ID) error {
	hp := m.hostParent(id)
	before := m.anchor(id)
	parent := m.a.Get(hp).Handle
	for _, top := range m.hostTops(id) {
		h := m.a.Get(top).Handle
		if h == host.NoHandle {
			continue
		}
		pos := host.Position{Parent: parent, Before: before, Index: m.hostIndex(hp, top)}
		if err := m.host.Move(h, pos); err != nil {
			return m.fail(host.OpMove, e, err)
		}
	}
	return nil
}

func (m *mutator) hostParent(id tree.ID) tree.ID {
	p := m.a.Get(id).Parent
	for !m.a.Get(p).IsHost() {
		p = m.a.Get(p).Parent
	}
	return p
}

// hostTops returns id itself for a host node, otherwise its top-level host
// descendants in order.
func (m *mutator) hostTops(id tree.ID) []tree.ID {
	var out []tree.ID
	m.a.Walk(id, func(n tree.ID, _ int) bool {
		if m.a.Get(n).IsHost() {
			out = append(out, n)
			return false
		}
		return true
	})
	return out
}

// anchor returns the host instance that id's instances go before: the first
// instance after id that is not being placed in this commit. NoHandle means
// append.
func (m *mutator) anchor(id tree.ID) host.Handle {
	node := id
	for {
		for s := m.a.Get(node).NextSibling; s != tree.Nil; s = m.a.Get(s).NextSibling {
			if h := m.firstStable(s); h != host.NoHandle {
				return h
			}
		}
		p := m.a.Get(node).Parent
		if p == tree.Nil || m.a.Get(p).IsHost() {
			return host.NoHandle
		}
		node = p
	}
}

// firstStable returns the first host instance in id's subtree that stays in
// place.
func (m *mutator) firstStable(id tree.ID) host.Handle {
	found := host.NoHandle
	m.a.Walk(id, func(n tree.ID, _ int) bool {
		if found != host.NoHandle {
			return false
		}
		node := m.a.Get(n)
		if node.Effect&tree.Placement != 0 {
			return false
		}
		if node.IsHost() {
			found = node.Handle
			return false
		}
		return true
	})
	return found
}

// hostIndex is the final index of the host instance target among hp's host
// children.
func (m *mutator) hostIndex(hp, target tree.ID) int {
	count := 0
	done := false
	for c := m.a.Get(hp).FirstChild; c != tree.Nil && !done; c = m.a.Get(c).NextSibling {
		m.a.Walk(c, func(n tree.ID, _ int) bool {
			if done {
				return false
			}
			if n == target {
				done = true
				return false
			}
			if m.a.Get(n).IsHost() {
				count++
				return false
			}
			return true
		})
	}
	return count
}
