package view

import (
	"fmt"

	"github.com/roach88/arbor/internal/attr"
)

// RootKind is the kind of the container node every tree hangs from.
const RootKind = "#root"

// Node is one description in a view tree.
type Node struct {
	// Kind names what the node represents. Required.
	Kind string `yaml:"kind" json:"kind"`

	// Composite nodes own no host instance; their host descendants attach
	// to the nearest host ancestor.
	Composite bool `yaml:"composite,omitempty" json:"composite,omitempty"`

	// Key is an optional identity, unique among siblings.
	Key string `yaml:"key,omitempty" json:"key,omitempty"`

	// Boundary flags the node as an error boundary: description errors
	// found beneath it are contained here.
	Boundary bool `yaml:"boundary,omitempty" json:"boundary,omitempty"`

	Attrs    attr.Map `yaml:"-" json:"-"`
	Children []*Node  `yaml:"-" json:"-"`
}

// New builds a host-primitive description.
func New(kind string, attrs attr.Map, children ...*Node) *Node {
	return &Node{Kind: kind, Attrs: attrs, Children: children}
}

// Keyed builds a keyed host-primitive description.
func Keyed(kind, key string, attrs attr.Map, children ...*Node) *Node {
	return &Node{Kind: kind, Key: key, Attrs: attrs, Children: children}
}

// Group builds a composite description.
func Group(kind string, children ...*Node) *Node {
	return &Node{Kind: kind, Composite: true, Children: children}
}

// WithKey returns the node with Key set. Mutates and returns n for chaining.
func (n *Node) WithKey(key string) *Node {
	n.Key = key
	return n
}

// AsBoundary returns the node flagged as an error boundary.
func (n *Node) AsBoundary() *Node {
	n.Boundary = true
	return n
}

// Root returns a root container description holding children.
func Root(children ...*Node) *Node {
	return &Node{Kind: RootKind, Children: children}
}

// String renders a short identity for logs: kind, or kind#key.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Key != "" {
		return fmt.Sprintf("%s#%s", n.Kind, n.Key)
	}
	return n.Kind
}
