package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arbor/internal/attr"
)

func build(a *Arena, kinds ...string) (ID, []ID) {
	root := a.Create(Kind{Name: "#root"}, "", nil)
	var kids []ID
	prev := Nil
	for i, k := range kinds {
		id := a.Create(Kind{Name: k}, "", attr.Map{"n": attr.Int(i)})
		a.Get(id).Index = i
		a.LinkChild(root, prev, id)
		prev = id
		kids = append(kids, id)
	}
	return root, kids
}

func TestLinkAndUnlink(t *testing.T) {
	a := NewArena()
	root, kids := build(a, "a", "b", "c")
	assert.Equal(t, kids, a.Children(root))

	require.True(t, a.UnlinkChild(root, kids[1]))
	assert.Equal(t, []ID{kids[0], kids[2]}, a.Children(root))
	assert.Equal(t, Nil, a.Get(kids[1]).Parent)

	a.LinkChild(root, Nil, kids[1])
	assert.Equal(t, []ID{kids[1], kids[0], kids[2]}, a.Children(root))
	assert.False(t, a.UnlinkChild(kids[0], kids[2]))
}

func TestCloneDoesNotTouchCurrent(t *testing.T) {
	a := NewArena()
	root, kids := build(a, "a", "b")
	before := a.Snapshot(root)

	wip := a.CloneAsWorkInProgress(root)
	w := a.Get(wip)
	assert.Equal(t, kids[0], w.FirstChild, "clone shares the child list")
	assert.Equal(t, root, w.Alternate)
	assert.Equal(t, wip, a.Get(root).Alternate)

	w.Effect = Update
	w.Attrs = attr.Map{"changed": attr.Bool(true)}
	w.FirstChild = Nil
	assert.Equal(t, before, a.Snapshot(root))
}

func TestCloneCarriesSupplyingSeq(t *testing.T) {
	a := NewArena()
	root, _ := build(a, "a")
	a.Get(root).Seq = 7

	wip := a.CloneAsWorkInProgress(root)
	assert.Equal(t, int64(7), a.Get(wip).Seq)
}

func TestCloneReusesMutualAlternate(t *testing.T) {
	a := NewArena()
	root, _ := build(a)
	wip := a.CloneAsWorkInProgress(root)
	live := a.Live()

	again := a.CloneAsWorkInProgress(root)
	assert.Equal(t, wip, again)
	assert.Equal(t, live, a.Live())

	// a released alternate is not reused
	a.Release(wip)
	assert.Equal(t, Nil, a.Get(root).Alternate)
	third := a.CloneAsWorkInProgress(root)
	assert.True(t, a.Valid(third))
	assert.Equal(t, root, a.Get(third).Alternate)
}

func TestReleaseSubtreeFreesAlternates(t *testing.T) {
	a := NewArena()
	root, kids := build(a, "a", "b")
	child := a.Create(Kind{Name: "leaf"}, "", nil)
	a.LinkChild(kids[0], Nil, child)
	a.CloneAsWorkInProgress(child)
	require.Equal(t, 5, a.Live())

	a.UnlinkChild(root, kids[0])
	a.ReleaseSubtree(kids[0])
	assert.Equal(t, 2, a.Live())
	assert.False(t, a.Valid(kids[0]))
	assert.False(t, a.Valid(child))

	// IDs are recycled
	id := a.Create(Kind{Name: "x"}, "", nil)
	assert.False(t, id >= 5)
}

func TestWalkAndPostOrder(t *testing.T) {
	a := NewArena()
	root, kids := build(a, "a", "b")
	leaf := a.Create(Kind{Name: "leaf"}, "", nil)
	a.LinkChild(kids[0], Nil, leaf)

	var pre []ID
	var depths []int
	a.Walk(root, func(id ID, depth int) bool {
		pre = append(pre, id)
		depths = append(depths, depth)
		return true
	})
	assert.Equal(t, []ID{root, kids[0], leaf, kids[1]}, pre)
	assert.Equal(t, []int{0, 1, 2, 1}, depths)

	assert.Equal(t, []ID{leaf, kids[0], kids[1], root}, a.PostOrder(root))

	var skipped []ID
	a.Walk(root, func(id ID, _ int) bool {
		skipped = append(skipped, id)
		return id != kids[0]
	})
	assert.Equal(t, []ID{root, kids[0], kids[1]}, skipped)
}

func TestEffectString(t *testing.T) {
	assert.Equal(t, "none", None.String())
	assert.Equal(t, "update|move", (Update | Move).String())
	assert.True(t, (Update | Move).Has(Move))
	assert.False(t, Create.Has(None))
	assert.Equal(t, "<list>", Kind{Name: "list", Composite: true}.String())
}

func TestGetPanicsOnReleased(t *testing.T) {
	a := NewArena()
	id := a.Create(Kind{Name: "x"}, "", nil)
	a.Release(id)
	assert.Panics(t, func() { a.Get(id) })
	assert.Panics(t, func() { a.Get(Nil) })
}
