// Package store is the SQLite commit journal.
//
// Every applied commit is recorded with its mutations so a run can be
// inspected after the fact (`arbor trace`). The journal is append-only:
//   - commits: one row per commit, numbered in apply order
//   - mutations: one row per applied effect, ordered by ord within a commit
//
// Ordering uses the commit number and the submission seq, never timestamps.
// Attributes are stored as canonical JSON with a domain-separated hash so two
// journals of the same run compare byte for byte.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
