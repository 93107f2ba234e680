package compiler

import (
	"fmt"

	"github.com/roach88/arbor/internal/view"
)

// Validation error codes (E200-E299)
const (
	ErrMissingKind    = "E201" // description has no kind
	ErrDuplicateKey   = "E202" // two siblings share a key
	ErrReservedKind   = "E203" // child uses the root kind
	ErrCompositeAttrs = "E204" // attrs on a composite are never applied
)

// ValidationError represents a description validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateView checks a whole description tree.
// Returns all errors found (does not fail-fast), in tree order.
func ValidateView(n *view.Node) []ValidationError {
	var errs []ValidationError
	if n == nil {
		return errs
	}
	if n.Kind == "" {
		errs = append(errs, ValidationError{Field: view.RootPath.String(), Message: "description has no kind", Code: ErrMissingKind})
	}
	return validateNode(n, view.RootPath, errs)
}

func validateNode(n *view.Node, path view.Path, errs []ValidationError) []ValidationError {
	if n.Composite && len(n.Attrs) > 0 {
		errs = append(errs, ValidationError{
			Field:   path.String(),
			Message: fmt.Sprintf("composite %q has attrs; composites own no host instance", n.Kind),
			Code:    ErrCompositeAttrs,
		})
	}

	seen := make(map[string]int)
	for i, c := range n.Children {
		if c == nil {
			continue
		}
		cp := path.Child(view.Identity(c, i))
		switch c.Kind {
		case "":
			errs = append(errs, ValidationError{Field: cp.String(), Message: "description has no kind", Code: ErrMissingKind})
		case view.RootKind:
			errs = append(errs, ValidationError{Field: cp.String(), Message: fmt.Sprintf("kind %q is reserved", view.RootKind), Code: ErrReservedKind})
		}
		if c.Key != "" {
			if first, dup := seen[c.Key]; dup {
				errs = append(errs, ValidationError{
					Field:   path.Child(view.IndexSegment(i)).String(),
					Message: fmt.Sprintf("key %q already used at index %d", c.Key, first),
					Code:    ErrDuplicateKey,
				})
			} else {
				seen[c.Key] = i
			}
		}
		errs = validateNode(c, cp, errs)
	}
	return errs
}
