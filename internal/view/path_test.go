package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathStringRoundTrip(t *testing.T) {
	tests := []struct {
		in   string
		want Path
	}{
		{"/", RootPath},
		{"/list", Path{KeySegment("list")}},
		{"/list/#2", Path{KeySegment("list"), IndexSegment(2)}},
		{"/#0/a/#10", Path{IndexSegment(0), KeySegment("a"), IndexSegment(10)}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePath(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestParsePathErrors(t *testing.T) {
	for _, in := range []string{"list", "/a//b", "/#x", "/#-1"} {
		_, err := ParsePath(in)
		assert.Error(t, err, in)
	}
}

func TestPathChildDoesNotAlias(t *testing.T) {
	base := make(Path, 1, 4)
	base[0] = KeySegment("a")

	p1 := base.Child(KeySegment("x"))
	p2 := base.Child(KeySegment("y"))

	assert.Equal(t, "/a/x", p1.String())
	assert.Equal(t, "/a/y", p2.String())
	assert.Equal(t, "/a", p1.Parent().String())
	assert.True(t, RootPath.Parent().IsRoot())
}

func TestIdentity(t *testing.T) {
	assert.Equal(t, KeySegment("k"), Identity(Keyed("item", "k", nil), 3))
	assert.Equal(t, IndexSegment(3), Identity(New("item", nil), 3))
	assert.Equal(t, IndexSegment(1), Identity(nil, 1))
}
