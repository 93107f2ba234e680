// Package compiler turns CUE view descriptions into view.Node trees.
//
// A description is a struct with the fields
//
//	kind:      string (required)
//	key:       string
//	composite: bool
//	boundary:  bool
//	attrs:     struct of string, int, bool, null, list and struct values
//	children:  list of descriptions; null leaves an empty slot
//
// Floats are rejected anywhere in attrs: attribute equality must be exact.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/arbor/internal/attr"
	"github.com/roach88/arbor/internal/view"
)

var knownFields = map[string]bool{
	"kind":      true,
	"key":       true,
	"composite": true,
	"boundary":  true,
	"attrs":     true,
	"children":  true,
}

// CompileView parses a CUE value into a description tree.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`view: { kind: "list", children: [...] }`)
//	n, err := CompileView(v.LookupPath(cue.ParsePath("view")))
func CompileView(v cue.Value) (*view.Node, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	return compileNode(v, "view")
}

func compileNode(v cue.Value, field string) (*view.Node, error) {
	if v.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("description must be a struct, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		if !knownFields[iter.Label()] {
			return nil, &CompileError{
				Field:   field + "." + iter.Label(),
				Message: "unknown description field",
				Pos:     iter.Value().Pos(),
			}
		}
	}

	n := &view.Node{}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return nil, &CompileError{
			Field:   field + ".kind",
			Message: "kind is required",
			Pos:     v.Pos(),
		}
	}
	if n.Kind, err = kindVal.String(); err != nil {
		return nil, formatCUEError(err)
	}

	if keyVal := v.LookupPath(cue.ParsePath("key")); keyVal.Exists() {
		if n.Key, err = keyVal.String(); err != nil {
			return nil, formatCUEError(err)
		}
	}
	if n.Composite, err = optionalBool(v, "composite"); err != nil {
		return nil, err
	}
	if n.Boundary, err = optionalBool(v, "boundary"); err != nil {
		return nil, err
	}

	if attrsVal := v.LookupPath(cue.ParsePath("attrs")); attrsVal.Exists() {
		m, err := compileValue(attrsVal, field+".attrs")
		if err != nil {
			return nil, err
		}
		attrs, ok := m.(attr.Map)
		if !ok {
			return nil, &CompileError{
				Field:   field + ".attrs",
				Message: "attrs must be a struct",
				Pos:     attrsVal.Pos(),
			}
		}
		n.Attrs = attrs
	}

	childrenVal := v.LookupPath(cue.ParsePath("children"))
	if !childrenVal.Exists() {
		return n, nil
	}
	list, err := childrenVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; list.Next(); i++ {
		cv := list.Value()
		if cv.IncompleteKind() == cue.NullKind {
			n.Children = append(n.Children, nil)
			continue
		}
		child, err := compileNode(cv, fmt.Sprintf("%s.children[%d]", field, i))
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

func optionalBool(v cue.Value, name string) (bool, error) {
	bv := v.LookupPath(cue.ParsePath(name))
	if !bv.Exists() {
		return false, nil
	}
	b, err := bv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// compileValue converts a concrete CUE value to an attribute value.
// Floats are forbidden - use int instead.
func compileValue(v cue.Value, field string) (attr.Value, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return attr.Null{}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return attr.String(s), nil
	case cue.IntKind:
		i, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return attr.Int(i), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return attr.Bool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := attr.List{}
		for i := 0; iter.Next(); i++ {
			ev, err := compileValue(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
			if err != nil {
				return nil, err
			}
			out = append(out, ev)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := attr.Map{}
		for iter.Next() {
			ev, err := compileValue(iter.Value(), field+"."+iter.Label())
			if err != nil {
				return nil, err
			}
			out[iter.Label()] = ev
		}
		return out, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   field,
			Message: "float values are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
