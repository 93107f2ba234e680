package view

import "fmt"

// ProblemCode categorizes malformed descriptions.
type ProblemCode string

const (
	// ProblemDuplicateKey indicates two siblings share a key.
	ProblemDuplicateKey ProblemCode = "DUPLICATE_KEY"

	// ProblemMissingKind indicates a description without a kind.
	ProblemMissingKind ProblemCode = "MISSING_KIND"

	// ProblemReservedKind indicates a child description using RootKind.
	ProblemReservedKind ProblemCode = "RESERVED_KIND"
)

// Problem describes one malformed entry in a sibling list.
type Problem struct {
	Code    ProblemCode
	Index   int
	Key     string
	Message string
}

func (p *Problem) Error() string {
	return fmt.Sprintf("%s: %s (index=%d)", p.Code, p.Message, p.Index)
}

// CheckSiblings validates one child list: kinds present and keys unique.
// Returns the first problem found, or nil.
func CheckSiblings(children []*Node) *Problem {
	var seen map[string]int
	for i, c := range children {
		if c == nil {
			continue
		}
		if c.Kind == "" {
			return &Problem{Code: ProblemMissingKind, Index: i, Key: c.Key, Message: "description has no kind"}
		}
		if c.Kind == RootKind {
			return &Problem{Code: ProblemReservedKind, Index: i, Key: c.Key, Message: fmt.Sprintf("kind %q is reserved", RootKind)}
		}
		if c.Key == "" {
			continue
		}
		if seen == nil {
			seen = make(map[string]int)
		}
		if first, dup := seen[c.Key]; dup {
			return &Problem{
				Code:    ProblemDuplicateKey,
				Index:   i,
				Key:     c.Key,
				Message: fmt.Sprintf("key %q already used at index %d", c.Key, first),
			}
		}
		seen[c.Key] = i
	}
	return nil
}

// ValidationError locates a Problem inside a description tree.
type ValidationError struct {
	Path    Path
	Problem *Problem
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Problem.Error())
}

// Validate checks every sibling list of the tree rooted at n, which sits at
// path. The engine performs the same checks lazily while reconciling; Validate
// is for tooling that wants all of it up front.
func Validate(n *Node, path Path) error {
	if n == nil {
		return nil
	}
	if p := CheckSiblings(n.Children); p != nil {
		return &ValidationError{Path: path, Problem: p}
	}
	for i, c := range n.Children {
		if c == nil {
			continue
		}
		if err := Validate(c, path.Child(Identity(c, i))); err != nil {
			return err
		}
	}
	return nil
}
