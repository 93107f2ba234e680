package query

import "github.com/roach88/arbor/internal/attr"

// Predicate is a filter over journaled mutations.
//
// This is a sealed interface - only types in this package implement it.
// The marker method enables exhaustive type switches in the compiler and
// validator.
//
// Predicate types:
//   - Equals: field = literal value
//   - HasFlag: a "|"-joined flag column contains one flag
//   - Prefix: a path column is at or below a path
//   - And: all predicates must be true
//
// OR predicates and subqueries are not supported.
type Predicate interface {
	predicateNode()
}

// Equals matches rows whose field equals a literal.
//
//	Equals{Field: "kind", Value: attr.String("item")}
//
// compiles to
//
//	m.kind = ?
//
// Text fields take attr.String, integer fields attr.Int.
type Equals struct {
	Field string
	Value attr.Value
}

func (Equals) predicateNode() {}

// HasFlag matches rows whose flag field includes Flag. Effects and lanes are
// stored joined with "|" (e.g. "update|move"), so
//
//	HasFlag{Field: "effect", Flag: "move"}
//
// matches both "move" and "update|move".
type HasFlag struct {
	Field string
	Flag  string
}

func (HasFlag) predicateNode() {}

// Prefix matches rows whose path is Path or lies below it. Prefix{"path", "/l"}
// matches "/l" and "/l/a" but not "/list".
type Prefix struct {
	Field string
	Path  string
}

func (Prefix) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Row is one mutation joined with its commit.
type Row struct {
	Number int64  `json:"number"`
	Commit string `json:"commit"`
	Lanes  string `json:"lanes"`
	Ord    int    `json:"ord"`
	Effect string `json:"effect"`
	Kind   string `json:"kind"`
	Key    string `json:"key,omitempty"`
	Path   string `json:"path"`
	Index  int    `json:"index"`

	// Attrs is the stored canonical JSON.
	Attrs string `json:"attrs"`
}

type columnType int

const (
	textColumn columnType = iota
	intColumn
	flagColumn
)

type column struct {
	name string
	typ  columnType
}

// fields maps filterable field names to SQL columns. Only these names are
// ever written into SQL text.
var fields = map[string]column{
	"commit": {"c.id", textColumn},
	"number": {"c.number", intColumn},
	"lanes":  {"c.lanes", flagColumn},
	"effect": {"m.effect", flagColumn},
	"kind":   {"m.kind", textColumn},
	"key":    {"m.key", textColumn},
	"path":   {"m.path", textColumn},
	"index":  {"m.idx", intColumn},
}
