package attr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffOnlyChangedKeys(t *testing.T) {
	old := Map{"label": String("a"), "width": Int(4), "gone": Bool(true)}
	updated := Map{"label": String("b"), "width": Int(4), "fresh": Int(1)}

	p := Diff(old, updated)

	assert.Equal(t, Map{"label": String("b"), "fresh": Int(1)}, p.Set)
	assert.Equal(t, []string{"gone"}, p.Removed)
	assert.False(t, p.Empty())
}

func TestDiffIdentical(t *testing.T) {
	m := Map{"a": List{Int(1)}}
	assert.True(t, Diff(m, Map{"a": List{Int(1)}}).Empty())
	assert.True(t, Diff(nil, nil).Empty())
}

func TestPatchApply(t *testing.T) {
	old := Map{"a": Int(1), "b": Int(2)}
	updated := Map{"a": Int(9), "c": Int(3)}

	got := Diff(old, updated).Apply(old)

	assert.True(t, EqualMaps(updated, got))
	assert.Equal(t, Int(2), old["b"], "base must not be modified")
}

func TestHashStable(t *testing.T) {
	h1, err := Hash(Map{"a": Int(1), "b": String("x")})
	require.NoError(t, err)
	h2, err := Hash(Map{"b": String("x"), "a": Int(1)})
	require.NoError(t, err)
	h3, err := Hash(Map{"a": Int(2), "b": String("x")})
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}
