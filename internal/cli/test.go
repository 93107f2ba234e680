package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arbor/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario filter (glob pattern on the file name)
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenario>...",
		Short: "Run reconciliation scenarios",
		Long: `Run YAML scenarios against a fresh engine.

Each argument is a scenario file or a directory of *.yaml and *.yml
scenarios. Every scenario runs over an in-memory host with a manual
clock, so results are deterministic.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (missing paths, bad filter)

Examples:
  arbor test ./scenarios
  arbor test ./scenarios --filter "keyed-*"
  arbor test ./scenarios/mount_list.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	if _, err := opts.Settings(); err != nil {
		return err
	}
	logger := opts.Logger(cmd.ErrOrStderr())

	files, err := harness.CollectScenarios(paths)
	if err != nil {
		var nf *harness.ScenarioNotFoundError
		if errors.As(err, &nf) {
			return NewExitError(ExitCommandError, fmt.Sprintf("scenario path not found: %s", nf.Path))
		}
		return WrapExitError(ExitCommandError, "failed to collect scenarios", err)
	}

	files, err = filterScenarios(files, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter pattern", err)
	}

	if len(files) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, &harness.SuiteResult{Results: []harness.ScenarioOutcome{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	result, err := harness.RunSuite(cmd.Context(), files, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario run interrupted", err)
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

// filterScenarios keeps files whose base name, without extension, matches
// pattern. An empty pattern keeps everything.
func filterScenarios(files []string, pattern string) ([]string, error) {
	if pattern == "" {
		return files, nil
	}
	var out []string
	for _, f := range files {
		base := filepath.Base(f)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		matched, err := filepath.Match(pattern, name)
		if err != nil {
			return nil, err
		}
		if matched {
			out = append(out, f)
		}
	}
	return out, nil
}

// outputTestJSON outputs the suite result as JSON.
func outputTestJSON(cmd *cobra.Command, result *harness.SuiteResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeGeneric,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the suite result as human-readable text.
func outputTestText(cmd *cobra.Command, result *harness.SuiteResult) error {
	w := cmd.OutOrStdout()

	for _, r := range result.Results {
		name := r.Name
		if name == "" {
			name = filepath.Base(r.Path)
		}
		if r.Pass {
			fmt.Fprintf(w, "✓ %s\n", name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", name)
		for _, e := range r.Errors {
			for _, line := range strings.Split(strings.TrimRight(e, "\n"), "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}

	fmt.Fprintf(w, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.TotalScenarios)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}
