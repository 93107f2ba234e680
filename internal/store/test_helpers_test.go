package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/arbor/internal/attr"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestCommit creates a commit with one create and one delete mutation.
func createTestCommit(id string, number, seq int64) Commit {
	return Commit{
		ID:     id,
		Number: number,
		Seq:    seq,
		Lanes:  "normal",
		Mutations: []Mutation{
			{Effect: "create", Kind: "item", Key: "a", Path: "/list/a", Index: 0, Attrs: attr.Map{"label": attr.String("a"), "n": attr.Int(1)}},
			{Effect: "delete", Kind: "item", Key: "b", Path: "/list/b", Index: 1},
		},
	}
}
