package host

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/roach88/arbor/internal/attr"
)

var (
	// ErrUnknownHandle is returned for handles the host never issued or already removed.
	ErrUnknownHandle = errors.New("host: unknown handle")

	// ErrBadPosition is returned when a Move target is inconsistent.
	ErrBadPosition = errors.New("host: bad position")
)

type element struct {
	kind     string
	attrs    attr.Map
	parent   Handle
	children []Handle
}

// Memory is an in-memory host tree. The root container is created by
// NewMemory and returned by Root.
//
// Thread-safety: all methods are safe for concurrent use, so tests can read
// the tree while a driver goroutine commits.
type Memory struct {
	mu    sync.Mutex
	next  Handle
	root  Handle
	elems map[Handle]*element
}

// NewMemory creates a host holding only an empty root container.
func NewMemory() *Memory {
	m := &Memory{elems: make(map[Handle]*element)}
	m.root = m.alloc("root", nil)
	return m
}

// Root returns the container handle the engine mounts into.
func (m *Memory) Root() Handle {
	return m.root
}

func (m *Memory) alloc(kind string, attrs attr.Map) Handle {
	m.next++
	m.elems[m.next] = &element{kind: kind, attrs: attrs}
	return m.next
}

// Create implements Host.
func (m *Memory) Create(kind string, attrs attr.Map) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alloc(kind, attrs.Clone()), nil
}

// Update implements Host.
func (m *Memory) Update(h Handle, old, updated attr.Map) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.elems[h]
	if !ok {
		return fmt.Errorf("update %d: %w", h, ErrUnknownHandle)
	}
	e.attrs = attr.Diff(old, updated).Apply(e.attrs)
	return nil
}

// Remove implements Host. The instance's remaining children are removed with it.
func (m *Memory) Remove(h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.elems[h]
	if !ok {
		return fmt.Errorf("remove %d: %w", h, ErrUnknownHandle)
	}
	if h == m.root {
		return fmt.Errorf("remove %d: cannot remove root: %w", h, ErrBadPosition)
	}
	m.detach(h, e)
	m.drop(h)
	return nil
}

func (m *Memory) drop(h Handle) {
	e := m.elems[h]
	for _, c := range e.children {
		m.drop(c)
	}
	delete(m.elems, h)
}

func (m *Memory) detach(h Handle, e *element) {
	if e.parent == NoHandle {
		return
	}
	p := m.elems[e.parent]
	if i := slices.Index(p.children, h); i >= 0 {
		p.children = slices.Delete(p.children, i, i+1)
	}
	e.parent = NoHandle
}

// Move implements Host. The instance is inserted before pos.Before when set,
// otherwise appended to pos.Parent.
func (m *Memory) Move(h Handle, pos Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.elems[h]
	if !ok {
		return fmt.Errorf("move %d: %w", h, ErrUnknownHandle)
	}
	p, ok := m.elems[pos.Parent]
	if !ok {
		return fmt.Errorf("move %d: parent %d: %w", h, pos.Parent, ErrUnknownHandle)
	}
	if pos.Before == h {
		return fmt.Errorf("move %d: anchor is the instance itself: %w", h, ErrBadPosition)
	}
	m.detach(h, e)
	at := len(p.children)
	if pos.Before != NoHandle {
		at = slices.Index(p.children, pos.Before)
		if at < 0 {
			return fmt.Errorf("move %d: anchor %d not in parent %d: %w", h, pos.Before, pos.Parent, ErrBadPosition)
		}
	}
	p.children = slices.Insert(p.children, at, h)
	e.parent = pos.Parent
	return nil
}

// Len returns the number of live instances including the root.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.elems)
}

// Attrs returns a copy of an instance's attributes.
func (m *Memory) Attrs(h Handle) (attr.Map, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.elems[h]
	if !ok {
		return nil, false
	}
	return e.attrs.Clone(), true
}

// Children returns the handles directly under h in order.
func (m *Memory) Children(h Handle) []Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.elems[h]
	if !ok {
		return nil
	}
	return slices.Clone(e.children)
}

// Render prints the tree under the root, one instance per line, indented two
// spaces per level: `kind {"canonical":"attrs"}`.
func (m *Memory) Render() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var b strings.Builder
	for _, c := range m.elems[m.root].children {
		m.render(&b, c, 0)
	}
	return b.String()
}

func (m *Memory) render(b *strings.Builder, h Handle, depth int) {
	e := m.elems[h]
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(e.kind)
	if len(e.attrs) > 0 {
		b.WriteByte(' ')
		b.WriteString(attr.MustCanonical(e.attrs))
	}
	b.WriteByte('\n')
	for _, c := range e.children {
		m.render(b, c, depth+1)
	}
}
