// Package query filters the commit journal.
//
// A filter is a small predicate tree compiled to parameterized SQL over
// mutations joined with their commits:
//
//	[--where flags] → Parse → Predicate → Compile → SQL + params → Run
//
// Predicate is a sealed interface using the marker method pattern, so the
// compiler and validator switch exhaustively over Equals, HasFlag, Prefix and
// And. Field names are looked up in a fixed table; values are always bound
// as parameters, never written into the SQL text.
//
// CRITICAL: results are always in apply order (commit number, then mutation
// ordinal), the same order the host observed them.
package query
