package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arbor/internal/harness"
)

const passingScenario = `
name: mount_one
description: mounts one item
steps:
  - submit: {path: /, view: {children: [{kind: item, key: a, attrs: {label: a}}]}}
  - flush: {expect: committed}
assertions:
  - type: host_tree
    tree: |
      item {"label":"a"}
`

const failingScenario = `
name: wrong_count
description: expects the wrong count
steps:
  - submit: {path: /, view: {children: [{kind: item}]}}
  - flush: {}
assertions:
  - {type: mutation_count, count: 2}
`

func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg")
}

func TestTestCommandMissingPath(t *testing.T) {
	_, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenario path not found")
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandPass(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"mount_one.yaml": passingScenario})

	out, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ mount_one")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandFailure(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"a_mount_one.yaml":   passingScenario,
		"b_wrong_count.yaml": failingScenario,
	})

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ mount_one")
	assert.Contains(t, out, "✗ wrong_count")
	assert.Contains(t, out, "mutation_count")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"a_mount_one.yaml":   passingScenario,
		"b_wrong_count.yaml": failingScenario,
	})

	out, err := execute(t, "test", dir, "--filter", "a_*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")

	_, err = execute(t, "test", dir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandJSON(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"a_mount_one.yaml":   passingScenario,
		"b_wrong_count.yaml": failingScenario,
	})

	out, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string              `json:"status"`
		Data   harness.SuiteResult `json:"data"`
		Error  *CLIError           `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.TotalScenarios)
	assert.Equal(t, 1, resp.Data.Failed)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "1 scenario(s) failed", resp.Error.Message)
}

func TestFilterScenarios(t *testing.T) {
	files := []string{"s/keyed_rotation.yaml", "s/keyed_swap.yml", "s/mount_list.yaml"}

	got, err := filterScenarios(files, "keyed_*")
	require.NoError(t, err)
	assert.Equal(t, []string{"s/keyed_rotation.yaml", "s/keyed_swap.yml"}, got)

	got, err = filterScenarios(files, "")
	require.NoError(t, err)
	assert.Equal(t, files, got)
}
