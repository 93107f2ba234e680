package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/arbor/internal/attr"
	"github.com/roach88/arbor/internal/view"
)

func TestValidateViewValid(t *testing.T) {
	n := view.Root(
		view.Keyed("list", "l", nil,
			view.Keyed("item", "a", nil),
			view.Keyed("item", "b", nil),
		),
		nil,
		view.Group("section", view.New("text", nil)),
	)

	assert.Empty(t, ValidateView(n))
}

func TestValidateViewCollectsAllErrors(t *testing.T) {
	n := view.Root(
		view.Keyed("list", "l", nil,
			view.Keyed("item", "a", nil),
			view.Keyed("item", "a", nil),
			&view.Node{},
		),
		&view.Node{Kind: view.RootKind},
		&view.Node{Kind: "section", Composite: true, Attrs: attr.Map{"x": attr.Int(1)}},
	)

	errs := ValidateView(n)
	codes := make([]string, len(errs))
	fields := make([]string, len(errs))
	for i, e := range errs {
		codes[i] = e.Code
		fields[i] = e.Field
	}
	assert.Equal(t, []string{ErrDuplicateKey, ErrMissingKind, ErrReservedKind, ErrCompositeAttrs}, codes)
	assert.Equal(t, []string{"/l/#1", "/l/#2", "/#1", "/#2"}, fields)
}

func TestValidationErrorFormat(t *testing.T) {
	e := ValidationError{Field: "/l/#1", Message: "key \"a\" already used at index 0", Code: ErrDuplicateKey}
	assert.Equal(t, "[E202] /l/#1: key \"a\" already used at index 0", e.Error())
}
