package store

import (
	"context"
	"fmt"

	"github.com/roach88/arbor/internal/attr"
)

// WriteCommit records a commit and its mutations in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - writing the same commit
// twice keeps the first copy.
func (s *Store) WriteCommit(ctx context.Context, c Commit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write commit: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO commits (id, number, seq, lanes, mutation_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, c.ID, c.Number, c.Seq, c.Lanes, len(c.Mutations))
	if err != nil {
		return fmt.Errorf("write commit %s: %w", c.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil
	}

	for i, m := range c.Mutations {
		attrsJSON, err := attr.MarshalCanonical(m.Attrs)
		if err != nil {
			return fmt.Errorf("write commit %s: mutation %d attrs: %w", c.ID, i, err)
		}
		hash, err := attr.Hash(m.Attrs)
		if err != nil {
			return fmt.Errorf("write commit %s: mutation %d hash: %w", c.ID, i, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO mutations (commit_id, ord, effect, kind, key, path, idx, attrs, attrs_hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, i, m.Effect, m.Kind, m.Key, m.Path, m.Index, string(attrsJSON), hash)
		if err != nil {
			return fmt.Errorf("write commit %s: mutation %d: %w", c.ID, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write commit %s: %w", c.ID, err)
	}
	return nil
}
