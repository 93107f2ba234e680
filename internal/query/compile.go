package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/arbor/internal/attr"
)

// selectMutations joins every mutation with its commit.
const selectMutations = `SELECT c.number, c.id, c.lanes, m.ord, m.effect, m.kind, m.key, m.path, m.idx, m.attrs ` +
	`FROM mutations m INNER JOIN commits c ON m.commit_id = c.id`

// orderBy is apply order: commit number, then mutation ordinal.
const orderBy = ` ORDER BY c.number ASC, m.ord ASC`

// Compile converts a predicate to parameterized SQL over the journal.
// A nil predicate selects every mutation.
//
// CRITICAL: values are never interpolated; field names come only from the
// fields table. Every query is ordered by commit number and ordinal.
func Compile(p Predicate) (string, []any, error) {
	if errs := Validate(p); len(errs) > 0 {
		return "", nil, fmt.Errorf("invalid filter: %w", errors.Join(errs...))
	}

	if p == nil {
		return selectMutations + orderBy, nil, nil
	}
	where, params, err := compilePredicate(p)
	if err != nil {
		return "", nil, err
	}
	return selectMutations + " WHERE " + where + orderBy, params, nil
}

func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		return compileEquals(pred)
	case *Equals:
		return compileEquals(*pred)
	case HasFlag:
		return compileHasFlag(pred), []any{"%|" + escapeLike(pred.Flag) + "|%"}, nil
	case *HasFlag:
		return compileHasFlag(*pred), []any{"%|" + escapeLike(pred.Flag) + "|%"}, nil
	case Prefix:
		return compilePrefix(pred)
	case *Prefix:
		return compilePrefix(*pred)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(eq Equals) (string, []any, error) {
	param, err := valueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %s: %w", eq.Field, err)
	}
	return fields[eq.Field].name + " = ?", []any{param}, nil
}

func compileHasFlag(hf HasFlag) string {
	return "('|' || " + fields[hf.Field].name + " || '|') LIKE ? ESCAPE '\\'"
}

// compilePrefix matches the path itself or anything below it. The root
// matches every path.
func compilePrefix(pr Prefix) (string, []any, error) {
	col := fields[pr.Field].name
	base := strings.TrimSuffix(pr.Path, "/")
	sql := fmt.Sprintf("(%s = ? OR %s LIKE ? ESCAPE '\\')", col, col)
	return sql, []any{base, escapeLike(base) + "/%"}, nil
}

func compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, ps, err := compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// escapeLike escapes LIKE wildcards so keys containing % or _ match
// literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func valueToParam(v attr.Value) (any, error) {
	switch val := v.(type) {
	case attr.String:
		return string(val), nil
	case attr.Int:
		return int64(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}

// Querier runs SQL against the journal. *store.Store implements it.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Run compiles p and returns the matching mutations in apply order.
//
// Returns an empty slice (not nil) when nothing matches.
func Run(ctx context.Context, q Querier, p Predicate) ([]Row, error) {
	stmt, params, err := Compile(p)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("query mutations: %w", err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Number, &r.Commit, &r.Lanes, &r.Ord, &r.Effect, &r.Kind, &r.Key, &r.Path, &r.Index, &r.Attrs); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mutations: %w", err)
	}
	return out, nil
}
