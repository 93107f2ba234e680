package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arbor/internal/attr"
	"github.com/roach88/arbor/internal/store"
)

func createJournal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arbor.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.WriteCommit(ctx, store.Commit{
		ID: "commit-1", Number: 1, Seq: 1, Lanes: "normal",
		Mutations: []store.Mutation{{Effect: "create", Kind: "list", Key: "l", Path: "/l"}},
	}))
	require.NoError(t, st.WriteCommit(ctx, store.Commit{
		ID: "commit-2", Number: 2, Seq: 4, Lanes: "user_interactive",
		Mutations: []store.Mutation{
			{Effect: "update|move", Kind: "item", Key: "b", Path: "/l/b", Attrs: attr.Map{"label": attr.String("B")}},
			{Effect: "delete", Kind: "item", Key: "c", Path: "/l/c", Index: 2},
		},
	}))
	return path
}

func decodeTrace(t *testing.T, out string) TraceResult {
	t.Helper()
	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestTraceAllCommits(t *testing.T) {
	db := createJournal(t)

	out, err := execute(t, "trace", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "commit 1 commit-1 seq=1 lanes=normal\n")
	assert.Contains(t, out, "commit 2 commit-2 seq=4 lanes=user_interactive\n")
	assert.Contains(t, out, "2 commit(s), 3 mutation(s)")
}

func TestTraceWhere(t *testing.T) {
	db := createJournal(t)

	out, err := execute(t, "trace", "--db", db, "--where", "effect=move", "--format", "json")
	require.NoError(t, err)
	res := decodeTrace(t, out)
	require.Len(t, res.Commits, 1)
	assert.Equal(t, "commit-2", res.Commits[0].ID)
	require.Len(t, res.Commits[0].Mutations, 1)
	assert.Equal(t, `{"label":"B"}`, res.Commits[0].Mutations[0].Attrs)
	assert.Equal(t, map[string]int{"update|move": 1}, res.Stats.ByEffect)

	out, err = execute(t, "trace", "--db", db, "--where", "path^=/l", "--where", "kind=item", "--format", "json")
	require.NoError(t, err)
	res = decodeTrace(t, out)
	assert.Equal(t, 2, res.Stats.Mutations)
}

func TestTraceSingleCommit(t *testing.T) {
	db := createJournal(t)

	out, err := execute(t, "trace", "--db", db, "--commit", "commit-1", "--format", "json")
	require.NoError(t, err)
	res := decodeTrace(t, out)
	require.Len(t, res.Commits, 1)
	assert.Equal(t, "/l", res.Commits[0].Mutations[0].Path)
	assert.Empty(t, res.Commits[0].Mutations[0].Attrs)

	_, err = execute(t, "trace", "--db", db, "--commit", "commit-9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "commit not found")
}

func TestTraceBadFilter(t *testing.T) {
	db := createJournal(t)

	_, err := execute(t, "trace", "--db", db, "--where", "colour=red")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unknown field")
}

func TestTraceMissingJournal(t *testing.T) {
	_, err := execute(t, "trace", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "journal not found")
}

func TestTraceRequiresDB(t *testing.T) {
	_, err := execute(t, "trace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "db" not set`)
}

func TestTraceEmptyJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "trace", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No commits found.")
}
