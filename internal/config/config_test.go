package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/roach88/arbor/internal/engine"
	"github.com/roach88/arbor/internal/lane"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arbor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, Duration(engine.DefaultFrameBudget), cfg.FrameBudget)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
	assert.Equal(t, lane.DefaultTimeouts(), cfg.Timeouts())
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
frame_budget: 2ms
log_level: debug
journal: trace.db
lanes:
  user_interactive: 100ms
  idle: never
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Duration(2*time.Millisecond), cfg.FrameBudget)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.Equal(t, "trace.db", cfg.Journal)

	want := lane.DefaultTimeouts()
	want[lane.PriorityUserInteractive] = 100 * time.Millisecond
	want[lane.PriorityIdle] = -1
	assert.Equal(t, want, cfg.Timeouts())
	assert.Len(t, cfg.EngineOptions(), 2)
}

func TestLoadEmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown field", "frame_budgte: 1ms\n", "field frame_budgte not found"},
		{"bad duration", "frame_budget: soon\n", "invalid duration"},
		{"negative budget", "frame_budget: -1ms\n", "frame_budget must not be negative"},
		{"bad level", "log_level: loud\n", "unknown log_level"},
		{"unknown lane", "lanes:\n  urgent: 1s\n", "unknown priority"},
		{"immediate lane", "lanes:\n  immediate: 1s\n", "immediate work always expires"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDurationRoundTrip(t *testing.T) {
	out, err := yaml.Marshal(Config{FrameBudget: Duration(time.Millisecond), LogLevel: "info", Lanes: map[string]Duration{"idle": Never}})
	require.NoError(t, err)
	assert.Equal(t, "frame_budget: 1ms\nlog_level: info\nlanes:\n    idle: never\n", string(out))
}
