package view

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/arbor/internal/attr"
)

func TestCheckSiblings(t *testing.T) {
	assert.Nil(t, CheckSiblings([]*Node{Keyed("i", "a", nil), nil, New("i", nil), Keyed("i", "b", nil)}))

	p := CheckSiblings([]*Node{Keyed("i", "a", nil), Keyed("i", "b", nil), Keyed("i", "a", nil)})
	require.NotNil(t, p)
	assert.Equal(t, ProblemDuplicateKey, p.Code)
	assert.Equal(t, 2, p.Index)
	assert.Equal(t, "a", p.Key)

	p = CheckSiblings([]*Node{{Key: "x"}})
	require.NotNil(t, p)
	assert.Equal(t, ProblemMissingKind, p.Code)

	p = CheckSiblings([]*Node{Root()})
	require.NotNil(t, p)
	assert.Equal(t, ProblemReservedKind, p.Code)
}

func TestValidateLocatesNestedProblem(t *testing.T) {
	tree := Root(
		Keyed("list", "l", nil,
			Keyed("item", "a", nil),
			Keyed("item", "a", nil),
		),
	)

	err := Validate(tree, RootPath)
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "/l", ve.Path.String())
	assert.Equal(t, ProblemDuplicateKey, ve.Problem.Code)
}

func TestNodeYAML(t *testing.T) {
	src := `
kind: list
key: l
boundary: true
attrs:
  title: Todo
  count: 2
children:
  - kind: item
    key: a
    attrs: {label: first}
  - null
  - kind: row
    composite: true
`
	var n Node
	require.NoError(t, yaml.Unmarshal([]byte(src), &n))

	assert.Equal(t, "list", n.Kind)
	assert.Equal(t, "l", n.Key)
	assert.True(t, n.Boundary)
	assert.True(t, attr.EqualMaps(attr.Map{"title": attr.String("Todo"), "count": attr.Int(2)}, n.Attrs))
	require.Len(t, n.Children, 3)
	assert.Equal(t, "item#a", n.Children[0].String())
	assert.Nil(t, n.Children[1])
	assert.True(t, n.Children[2].Composite)

	out, err := yaml.Marshal(&n)
	require.NoError(t, err)
	var back Node
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.True(t, attr.EqualMaps(n.Attrs, back.Attrs))
	assert.Len(t, back.Children, 3)
}

func TestNodeYAMLRejectsFloats(t *testing.T) {
	var n Node
	err := yaml.Unmarshal([]byte("kind: box\nattrs: {w: 1.5}\n"), &n)
	assert.Error(t, err)
}
