package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arbor/internal/attr"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	s := loadTestScenario(t, "abandon_for_urgent")

	assert.Equal(t, "abandon_for_urgent", s.Name)
	assert.Equal(t, "0s", s.FrameBudget)
	require.Len(t, s.Steps, 8)

	sub := s.Steps[2].Submit
	require.NotNil(t, sub)
	assert.Equal(t, "/l/b", sub.Path)
	assert.Equal(t, "deferred", sub.Priority)
	require.NotNil(t, sub.View)
	assert.Equal(t, "item", sub.View.Kind)
	assert.Equal(t, attr.String("slow"), sub.View.Attrs["label"])
	require.Len(t, sub.View.Children, 1)

	require.NotNil(t, s.Steps[3].Work)
	assert.Equal(t, "yielded", s.Steps[3].Work.Expect)
	require.Len(t, s.Assertions, 3)
	assert.Equal(t, AssertPassOutcome, s.Assertions[0].Type)
	assert.Equal(t, 6, s.Assertions[0].Step)
}

func TestLoadScenario_ResolvesCUEPaths(t *testing.T) {
	s := loadTestScenario(t, "cue_view")
	assert.Equal(t, filepath.Join("testdata", "scenarios", "views", "todo.cue"), s.Steps[0].Submit.CUE)
}

func TestLoadScenario_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: y\nstep: []\n",
			wantErr: "field step not found",
		},
		{
			name:    "missing name",
			content: "description: y\nsteps: [{flush: {}}]\nassertions: [{type: mutation_count}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing assertions",
			content: "name: x\ndescription: y\nsteps: [{flush: {}}]\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "two actions in one step",
			content: "name: x\ndescription: y\nsteps: [{flush: {}, advance: 1s}]\nassertions: [{type: mutation_count}]\n",
			wantErr: "exactly one of submit, advance, work, flush",
		},
		{
			name:    "submit without description",
			content: "name: x\ndescription: y\nsteps: [{submit: {path: /a}}]\nassertions: [{type: mutation_count}]\n",
			wantErr: "exactly one of view, cue, delete",
		},
		{
			name:    "bad path",
			content: "name: x\ndescription: y\nsteps: [{submit: {path: a, delete: true}}]\nassertions: [{type: mutation_count}]\n",
			wantErr: "must start with /",
		},
		{
			name:    "bad priority",
			content: "name: x\ndescription: y\nsteps: [{submit: {path: /a, delete: true, priority: asap}}]\nassertions: [{type: mutation_count}]\n",
			wantErr: "unknown priority",
		},
		{
			name:    "missing cue file",
			content: "name: x\ndescription: y\nsteps: [{submit: {path: /, cue: nope.cue}}]\nassertions: [{type: mutation_count}]\n",
			wantErr: "cue file not found",
		},
		{
			name:    "bad advance",
			content: "name: x\ndescription: y\nsteps: [{advance: soon}]\nassertions: [{type: mutation_count}]\n",
			wantErr: "steps[0].advance",
		},
		{
			name:    "bad expect",
			content: "name: x\ndescription: y\nsteps: [{work: {expect: done}}]\nassertions: [{type: mutation_count}]\n",
			wantErr: "unknown outcome",
		},
		{
			name:    "unknown assertion",
			content: "name: x\ndescription: y\nsteps: [{flush: {}}]\nassertions: [{type: trace_contains}]\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "pass_outcome step out of range",
			content: "name: x\ndescription: y\nsteps: [{flush: {}}]\nassertions: [{type: pass_outcome, step: 3, outcome: idle}]\n",
			wantErr: "out of range",
		},
		{
			name:    "journal without expect",
			content: "name: x\ndescription: y\nsteps: [{flush: {}}]\nassertions: [{type: journal, table: commits}]\n",
			wantErr: "expect is required for journal",
		},
		{
			name:    "float attr",
			content: "name: x\ndescription: y\nsteps: [{submit: {path: /, view: {kind: item, attrs: {w: 1.5}}}}]\nassertions: [{type: mutation_count}]\n",
			wantErr: "attrs",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, t.TempDir(), tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestRunSuite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_pass.yaml"), []byte(`
name: pass
description: mounts one item
steps:
  - submit: {path: /, view: {children: [{kind: item}]}}
  - flush: {}
assertions:
  - {type: mutation_count, count: 1}
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b_fail.yaml"), []byte(`
name: fail
description: expects the wrong count
steps:
  - submit: {path: /, view: {children: [{kind: item}]}}
  - flush: {}
assertions:
  - {type: mutation_count, count: 2}
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c_broken.yml"), []byte("name: [\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	res, err := RunSuite(context.Background(), []string{dir}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalScenarios)
	assert.Equal(t, 1, res.Passed)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Results, 3)
	assert.True(t, res.Results[0].Pass)
	assert.Equal(t, "fail", res.Results[1].Name)
	assert.Contains(t, res.Results[2].Errors[0], "failed to load scenario")
}

func TestRunSuite_MissingPath(t *testing.T) {
	_, err := RunSuite(context.Background(), []string{filepath.Join(t.TempDir(), "nope")}, discardLogger())
	var nf *ScenarioNotFoundError
	require.ErrorAs(t, err, &nf)
}
