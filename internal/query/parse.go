package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/arbor/internal/attr"
)

// Parse builds a conjunction from command-line filters:
//
//	effect=move      effect includes the move flag
//	lanes=idle       the commit rendered the idle lane
//	kind=item        exact match on a text field
//	number=3         exact match on an integer field
//	path^=/list      the path or anything below it
//
// No filters yields a nil predicate.
func Parse(exprs []string) (Predicate, error) {
	if len(exprs) == 0 {
		return nil, nil
	}

	and := And{Predicates: make([]Predicate, 0, len(exprs))}
	for _, expr := range exprs {
		p, err := parseOne(expr)
		if err != nil {
			return nil, err
		}
		and.Predicates = append(and.Predicates, p)
	}
	if errs := Validate(and); len(errs) > 0 {
		return nil, errs[0]
	}
	return and, nil
}

func parseOne(expr string) (Predicate, error) {
	if field, value, ok := strings.Cut(expr, "^="); ok {
		return Prefix{Field: strings.TrimSpace(field), Path: strings.TrimSpace(value)}, nil
	}

	field, value, ok := strings.Cut(expr, "=")
	if !ok {
		return nil, fmt.Errorf("filter %q: want field=value or path^=prefix", expr)
	}
	field = strings.TrimSpace(field)
	value = strings.TrimSpace(value)

	col, known := fields[field]
	if !known {
		return nil, fmt.Errorf("filter %q: unknown field %q (want one of %v)", expr, field, FieldNames())
	}
	switch col.typ {
	case flagColumn:
		return HasFlag{Field: field, Flag: value}, nil
	case intColumn:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %s must be an integer", expr, field)
		}
		return Equals{Field: field, Value: attr.Int(n)}, nil
	default:
		return Equals{Field: field, Value: attr.String(value)}, nil
	}
}
