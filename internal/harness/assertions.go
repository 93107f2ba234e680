package harness

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/roach88/arbor/internal/engine"
	"github.com/roach88/arbor/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type      string   // Assertion type for categorization
	Expected  string   // Human-readable expected outcome
	Actual    string   // Human-readable actual outcome
	Mutations []string // Every committed mutation, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Mutations) > 0 {
		fmt.Fprintf(&buf, "\nCommitted mutations:\n")
		for i, m := range e.Mutations {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, m)
		}
	}

	return buf.String()
}

// assertHostTree compares the final host rendering. Surrounding blank lines
// are ignored; indentation is not.
func assertHostTree(result *Result, assertion Assertion) error {
	want := strings.Trim(assertion.Tree, "\n")
	got := strings.Trim(result.HostTree, "\n")
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:      AssertHostTree,
		Expected:  fmt.Sprintf("\n%s", indent(want)),
		Actual:    fmt.Sprintf("\n%s", indent(got)),
		Mutations: result.Mutations,
	}
}

func indent(s string) string {
	if s == "" {
		return "    (empty)"
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}

// assertMutationCount checks the number of committed mutations. With Effect
// set only mutations whose effect includes it count, so "move" also counts
// "update|move".
func assertMutationCount(result *Result, assertion Assertion) error {
	count := 0
	for _, m := range result.Mutations {
		if assertion.Effect == "" || hasEffect(m, assertion.Effect) {
			count++
		}
	}

	if count != assertion.Count {
		what := "mutations"
		if assertion.Effect != "" {
			what = assertion.Effect + " mutations"
		}
		return &AssertionError{
			Type:      AssertMutationCount,
			Expected:  fmt.Sprintf("%d %s", assertion.Count, what),
			Actual:    fmt.Sprintf("%d %s", count, what),
			Mutations: result.Mutations,
		}
	}
	return nil
}

func hasEffect(mutation, effect string) bool {
	flags, _, _ := strings.Cut(mutation, " ")
	for _, f := range strings.Split(flags, "|") {
		if f == effect {
			return true
		}
	}
	return false
}

// assertMutationOrder checks if mutations appear in the specified order.
// Mutations don't need to be consecutive (intervening mutations are allowed).
func assertMutationOrder(result *Result, assertion Assertion) error {
	pos := 0
	for i, want := range assertion.Mutations {
		found := false
		for pos < len(result.Mutations) {
			got := result.Mutations[pos]
			pos++
			if got == want {
				found = true
				break
			}
		}
		if !found {
			actual := fmt.Sprintf("missing mutation: %s", want)
			if i > 0 && contains(result.Mutations, want) {
				actual = fmt.Sprintf("%s is not after %s", want, assertion.Mutations[i-1])
			}
			return &AssertionError{
				Type:      AssertMutationOrder,
				Expected:  fmt.Sprintf("mutations in order: %v", assertion.Mutations),
				Actual:    actual,
				Mutations: result.Mutations,
			}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// assertPassOutcome checks the last pass of a step. A step without passes
// reports "idle".
func assertPassOutcome(result *Result, assertion Assertion) error {
	if assertion.Step >= len(result.Steps) {
		return fmt.Errorf("pass_outcome: step %d was not executed", assertion.Step)
	}
	s := &result.Steps[assertion.Step]

	outcome, lanes := engine.OutcomeIdle.String(), ""
	if p := s.LastPass(); p != nil {
		outcome, lanes = p.Outcome, p.Lanes
	}

	if outcome != assertion.Outcome || (assertion.Lanes != "" && lanes != assertion.Lanes) {
		expected := assertion.Outcome
		if assertion.Lanes != "" {
			expected += " lanes=" + assertion.Lanes
		}
		return &AssertionError{
			Type:      AssertPassOutcome,
			Expected:  fmt.Sprintf("step %d (%s): %s", assertion.Step, s.Step, expected),
			Actual:    fmt.Sprintf("%s lanes=%s", outcome, lanes),
			Mutations: result.Mutations,
		}
	}
	return nil
}

// assertJournal checks if a journal table contains expected values.
// Queries the table with parameterized SQL and validates
// expected values using subset semantics.
//
// Security: Table and column names are validated against a whitelist pattern
// to prevent SQL injection via identifier interpolation.
func assertJournal(ctx context.Context, st *store.Store, assertion Assertion) error {
	if assertion.Table == "" {
		return fmt.Errorf("journal assertion requires table name")
	}

	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.Query(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertJournal,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertJournal,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	// Check for multiple matching rows (would indicate ambiguous assertion)
	if rows.Next() {
		return &AssertionError{
			Type:     AssertJournal,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]interface{})
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	// Sorted so the first reported mismatch is stable
	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertJournal,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}

		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertJournal,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// buildWhereClause constructs parameterized WHERE clause from assertion.Where.
// Returns SQL fragment, arguments slice, and error. Keys are sorted for determinism.
func buildWhereClause(where map[string]interface{}) (string, []interface{}, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML-decoded value to a SQL-compatible value.
func toSQLValue(v interface{}) interface{} {
	switch val := v.(type) {
	case string, int, int64, bool:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]interface{}) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := make([]string, 0, len(where))
	for k := range where {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares expected and actual values from journal tables.
// Handles type coercion for SQLite values which may be returned as different types.
func stateValuesEqual(expected, actual interface{}) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	switch exp := expected.(type) {
	case string:
		switch a := actual.(type) {
		case string:
			return exp == a
		case []byte:
			return exp == string(a)
		}
		return false
	case int:
		if actualInt, ok := actual.(int64); ok {
			return int64(exp) == actualInt
		}
		if actualInt, ok := actual.(int); ok {
			return exp == actualInt
		}
		return false
	case int64:
		if actualInt, ok := actual.(int64); ok {
			return exp == actualInt
		}
		return false
	case bool:
		if actualBool, ok := actual.(bool); ok {
			return exp == actualBool
		}
		// SQLite stores booleans as integers
		if actualInt, ok := actual.(int64); ok {
			return exp == (actualInt != 0)
		}
		return false
	}

	return reflect.DeepEqual(expected, actual)
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for journal assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertHostTree:
			err = assertHostTree(result, assertion)
		case AssertMutationCount:
			err = assertMutationCount(result, assertion)
		case AssertMutationOrder:
			err = assertMutationOrder(result, assertion)
		case AssertPassOutcome:
			err = assertPassOutcome(result, assertion)
		case AssertJournal:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: journal requires database context", i)
			} else {
				err = assertJournal(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
