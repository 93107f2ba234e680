package store

import "github.com/roach88/arbor/internal/attr"

// Commit is one journaled commit.
type Commit struct {
	ID string

	// Number is the commit's position in apply order, starting at 1.
	Number int64

	// Seq is the highest submission seq the commit includes.
	Seq int64

	// Lanes names the lanes the commit rendered, e.g. "normal|idle".
	Lanes string

	MutationCount int

	// Mutations is filled by WriteCommit callers and ReadCommit; ReadCommits
	// leaves it nil.
	Mutations []Mutation
}

// Mutation is one journaled effect.
type Mutation struct {
	Ord    int
	Effect string
	Kind   string
	Key    string
	Path   string
	Index  int
	Attrs  attr.Map
}
