package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "arbor", cmd.Use)
	assert.Contains(t, cmd.Long, "priority lanes")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"test", "render", "trace", "validate"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "Command %s should exist", name)
			require.NotNil(t, sub)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestRenderCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	render, _, err := cmd.Find([]string{"render"})
	require.NoError(t, err)

	assert.Equal(t, "normal", render.Flags().Lookup("priority").DefValue)
	assert.Equal(t, "/", render.Flags().Lookup("path").DefValue)
	assert.NotNil(t, render.Flags().Lookup("db"))
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, "validate", "testdata/views/todo.cue", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestConfigLoadError(t *testing.T) {
	_, err := execute(t, "validate", "testdata/views/todo.cue", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoggerLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0644))

	opts := &RootOptions{Config: path}
	_, err := opts.Settings()
	require.NoError(t, err)

	ctx := context.Background()
	logger := opts.Logger(&bytes.Buffer{})
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))

	opts.Verbose = true
	assert.True(t, opts.Logger(&bytes.Buffer{}).Enabled(ctx, slog.LevelDebug))
}

func TestLoggerRenamesErrorKey(t *testing.T) {
	buf := &bytes.Buffer{}
	newLogger(buf, slog.LevelInfo).Warn("journal write failed", "error", errors.New("disk full"))

	assert.Contains(t, buf.String(), `err="disk full"`)
	assert.NotContains(t, buf.String(), "error=")
}
