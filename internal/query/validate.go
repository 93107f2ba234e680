package query

import (
	"fmt"
	"sort"

	"github.com/roach88/arbor/internal/attr"
)

// Validate checks field names and value types. It reports every problem,
// not just the first.
//
// Rules:
//  1. Fields must be one of FieldNames()
//  2. Equals on text fields takes attr.String, on integer fields attr.Int;
//     flag fields are matched with HasFlag, never Equals
//  3. HasFlag only applies to flag fields (effect, lanes)
//  4. Prefix only applies to path
//
// Validate is a pure function with no side effects.
func Validate(p Predicate) []error {
	v := &validator{}
	v.validatePredicate(p)
	return v.errs
}

// FieldNames returns the filterable fields in sorted order.
func FieldNames() []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// validator accumulates errors during traversal.
type validator struct {
	errs []error
}

func (v *validator) addError(format string, args ...any) {
	v.errs = append(v.errs, fmt.Errorf(format, args...))
}

func (v *validator) lookup(field string) (column, bool) {
	col, ok := fields[field]
	if !ok {
		v.addError("unknown field %q (want one of %v)", field, FieldNames())
	}
	return col, ok
}

func (v *validator) validatePredicate(p Predicate) {
	if p == nil {
		return
	}

	switch pred := p.(type) {
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case HasFlag:
		v.validateHasFlag(pred)
	case *HasFlag:
		v.validateHasFlag(*pred)
	case Prefix:
		v.validatePrefix(pred)
	case *Prefix:
		v.validatePrefix(*pred)
	case And:
		v.validateAnd(pred)
	case *And:
		v.validateAnd(*pred)
	default:
		v.addError("unknown predicate type: %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	col, ok := v.lookup(eq.Field)
	if !ok {
		return
	}
	switch col.typ {
	case textColumn:
		if _, ok := eq.Value.(attr.String); !ok {
			v.addError("field %q compares to a string, got %T", eq.Field, eq.Value)
		}
	case intColumn:
		if _, ok := eq.Value.(attr.Int); !ok {
			v.addError("field %q compares to an integer, got %T", eq.Field, eq.Value)
		}
	case flagColumn:
		v.addError("field %q holds flags; match it with HasFlag", eq.Field)
	}
}

func (v *validator) validateHasFlag(hf HasFlag) {
	col, ok := v.lookup(hf.Field)
	if !ok {
		return
	}
	if col.typ != flagColumn {
		v.addError("field %q holds no flags", hf.Field)
	}
	if hf.Flag == "" {
		v.addError("field %q: empty flag", hf.Field)
	}
}

func (v *validator) validatePrefix(pr Prefix) {
	if _, ok := v.lookup(pr.Field); !ok {
		return
	}
	if pr.Field != "path" {
		v.addError("prefix match only applies to path, not %q", pr.Field)
	}
	if len(pr.Path) == 0 || pr.Path[0] != '/' {
		v.addError("prefix %q must start with /", pr.Path)
	}
}

func (v *validator) validateAnd(and And) {
	for _, sub := range and.Predicates {
		v.validatePredicate(sub)
	}
}
