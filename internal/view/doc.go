// Package view defines the declarative description the engine consumes.
//
// A description is a tree of (kind, key, attributes, children). The engine
// never inspects how a description was produced: it may be built in Go,
// decoded from YAML by the harness, or compiled from CUE by the compiler
// package. A nil child is an absent slot; whatever occupied that position
// is deleted.
//
// Paths address positions in the persistent tree. Each segment is either a
// key (for keyed children) or a position index (for unkeyed children).
package view
