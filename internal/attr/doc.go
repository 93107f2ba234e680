// Package attr provides the attribute values attached to work nodes.
//
// Attribute sets are plain maps of sealed Value types. They are compared
// structurally during reconciliation (an Update effect is produced only when
// Diff is non-empty) and serialized with MarshalCanonical wherever bytes must
// be stable: the commit journal, golden traces and hashes.
//
// Key constraints:
//   - NO float types; integers are int64
//   - Maps handed to the engine are never mutated after submission
package attr
