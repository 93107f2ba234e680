package cli

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/arbor/internal/commit"
	"github.com/roach88/arbor/internal/compiler"
	"github.com/roach88/arbor/internal/engine"
	"github.com/roach88/arbor/internal/host"
	"github.com/roach88/arbor/internal/lane"
	"github.com/roach88/arbor/internal/metrics"
	"github.com/roach88/arbor/internal/store"
	"github.com/roach88/arbor/internal/view"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Database string // journal path; overrides the config's journal
	Path     string // position the description is submitted at
	Priority string
	Metrics  bool // include engine metrics in the output
}

// RenderCommit is one commit in the render output.
type RenderCommit struct {
	ID        string   `json:"id"`
	Number    int64    `json:"number"`
	Lanes     string   `json:"lanes"`
	Mutations []string `json:"mutations"`
}

// RenderResult holds the render output.
type RenderResult struct {
	Commits []RenderCommit     `json:"commits"`
	Calls   []string           `json:"calls"`
	Tree    string             `json:"tree"`
	Errors  []string           `json:"errors,omitempty"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <view.cue>",
		Short: "Render a CUE description into an in-memory host",
		Long: `Compile a CUE description, submit it to a fresh engine and flush.

Prints the host calls made by each commit and the resulting host tree.
Description errors contained at boundaries are reported; uncontained
errors fail the command. With --db (or journal in the config file) every
commit is journaled to SQLite for "arbor trace".

Examples:
  arbor render ./views/todo.cue
  arbor render ./views/todo.cue --priority user_interactive
  arbor render ./views/todo.cue --db ./arbor.db --metrics`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal")
	cmd.Flags().StringVar(&opts.Path, "path", "/", "position to submit the description at")
	cmd.Flags().StringVar(&opts.Priority, "priority", "normal", "submission priority")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "include engine metrics")

	return cmd
}

func runRender(opts *RenderOptions, file string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	cfg, err := opts.Settings()
	if err != nil {
		return err
	}
	logger := opts.Logger(cmd.ErrOrStderr())

	path, err := view.ParsePath(opts.Path)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid path", err)
	}
	priority, err := lane.ParsePriority(opts.Priority)
	if err != nil {
		_ = formatter.Error(ErrCodeBadPriority, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid priority", err)
	}

	desc, err := compiler.LoadViewFile(file)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to load view", err)
	}
	formatter.VerboseLog("Loaded %s", file)

	mem := host.NewMemory()
	rec := host.NewRecorder(mem)
	reg := prometheus.NewRegistry()

	engineOpts := append(cfg.EngineOptions(),
		engine.WithLogger(logger),
		engine.WithMetrics(metrics.New(reg)),
		engine.WithCommitHook(logHook(logger)),
	)

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Journal
	}
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer st.Close()
		engineOpts = append(engineOpts, engine.WithJournal(st))
		formatter.VerboseLog("Journaling to %s", dbPath)
	}

	eng := engine.New(rec, mem.Root(), engineOpts...)
	defer eng.Stop()

	if err := eng.Submit(path, desc, priority); err != nil {
		return WrapExitError(ExitFailure, "submit failed", err)
	}

	result := RenderResult{Commits: []RenderCommit{}}
	for {
		p, err := eng.Work(cmd.Context())
		if err != nil {
			result.Calls = callStrings(rec.Calls())
			result.Tree = mem.Render()
			_ = formatter.Error(ErrCodeRender, err.Error(), result)
			return WrapExitError(ExitFailure, "render failed", err)
		}
		if p.Outcome == engine.OutcomeIdle {
			break
		}
		for _, be := range p.Errors {
			result.Errors = append(result.Errors, be.Error())
		}
		if c := p.Commit; c != nil {
			rc := RenderCommit{ID: c.ID, Number: c.Number, Lanes: c.Lanes.String(), Mutations: []string{}}
			for _, m := range c.Mutations {
				rc.Mutations = append(rc.Mutations, m.String())
			}
			result.Commits = append(result.Commits, rc)
		}
	}
	result.Calls = callStrings(rec.Calls())
	result.Tree = mem.Render()

	if opts.Metrics {
		result.Metrics, err = gatherMetrics(reg)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to gather metrics", err)
		}
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputRenderText(cmd, result)
}

// logHook logs every committed node at debug level.
func logHook(logger *slog.Logger) commit.Hook {
	return func(info commit.NodeInfo, phase commit.Phase) error {
		if phase == commit.PostMutation {
			logger.Debug("node committed",
				"effect", info.Effect.String(),
				"kind", info.Kind.Name,
				"path", info.Path.String(),
				"handle", info.Handle)
		}
		return nil
	}
}

func callStrings(calls []host.Call) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// gatherMetrics flattens the registry into "name{label=value}" keys. Counters
// and gauges report their value, histograms their sample count.
func gatherMetrics(reg *prometheus.Registry) (map[string]float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			if labels := m.GetLabel(); len(labels) > 0 {
				parts := make([]string, len(labels))
				for i, l := range labels {
					parts[i] = fmt.Sprintf("%s=%s", l.GetName(), l.GetValue())
				}
				name += "{" + strings.Join(parts, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[name] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[name] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[name] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out, nil
}

// outputRenderText outputs the render result as human-readable text.
func outputRenderText(cmd *cobra.Command, result RenderResult) error {
	w := cmd.OutOrStdout()

	for _, c := range result.Commits {
		fmt.Fprintf(w, "commit %d %s lanes=%s\n", c.Number, c.ID, c.Lanes)
		for _, m := range c.Mutations {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "contained: %s\n", e)
	}
	if len(result.Calls) > 0 {
		fmt.Fprintln(w, "calls:")
		for _, c := range result.Calls {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
	fmt.Fprintln(w, "host:")
	for _, line := range strings.Split(strings.TrimRight(result.Tree, "\n"), "\n") {
		if line != "" {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	if len(result.Metrics) > 0 {
		fmt.Fprintln(w, "metrics:")
		names := make([]string, 0, len(result.Metrics))
		for n := range result.Metrics {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(w, "  %s %g\n", n, result.Metrics[n])
		}
	}
	return nil
}
