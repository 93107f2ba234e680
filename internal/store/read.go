package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/arbor/internal/attr"
)

// ReadCommits returns every journaled commit in apply order, without
// mutations.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ReadCommits(ctx context.Context) ([]Commit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, seq, lanes, mutation_count
		FROM commits
		ORDER BY number ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	commits := []Commit{}
	for rows.Next() {
		var c Commit
		if err := rows.Scan(&c.ID, &c.Number, &c.Seq, &c.Lanes, &c.MutationCount); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	return commits, nil
}

// ReadCommit returns one commit with its mutations. Returns ErrNotFound for
// unknown IDs.
func (s *Store) ReadCommit(ctx context.Context, id string) (Commit, error) {
	var c Commit
	err := s.db.QueryRowContext(ctx, `
		SELECT id, number, seq, lanes, mutation_count
		FROM commits
		WHERE id = ?
	`, id).Scan(&c.ID, &c.Number, &c.Seq, &c.Lanes, &c.MutationCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Commit{}, fmt.Errorf("commit %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Commit{}, fmt.Errorf("query commit %s: %w", id, err)
	}

	c.Mutations, err = s.ReadMutations(ctx, id)
	if err != nil {
		return Commit{}, err
	}
	return c, nil
}

// ReadMutations returns the mutations of a commit in apply order.
//
// Returns an empty slice (not nil) if the commit has none.
func (s *Store) ReadMutations(ctx context.Context, commitID string) ([]Mutation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ord, effect, kind, key, path, idx, attrs
		FROM mutations
		WHERE commit_id = ?
		ORDER BY ord ASC
	`, commitID)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	muts := []Mutation{}
	for rows.Next() {
		var m Mutation
		var attrsJSON string
		if err := rows.Scan(&m.Ord, &m.Effect, &m.Kind, &m.Key, &m.Path, &m.Index, &attrsJSON); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		m.Attrs, err = unmarshalAttrs(attrsJSON)
		if err != nil {
			return nil, fmt.Errorf("mutation %s/%d: %w", commitID, m.Ord, err)
		}
		muts = append(muts, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}
	return muts, nil
}

// unmarshalAttrs decodes stored canonical JSON. Numbers are decoded with
// UseNumber so integers round-trip exactly.
func unmarshalAttrs(s string) (attr.Map, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode attrs: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return attr.MapFromAny(raw)
}
