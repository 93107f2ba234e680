package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/arbor/internal/attr"
	"github.com/roach88/arbor/internal/query"
	"github.com/roach88/arbor/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Commit   string   // optional - show a single commit
	Where    []string // mutation filters, e.g. effect=move or path^=/list
}

// TraceMutation is one journaled mutation in the trace output.
type TraceMutation struct {
	Ord    int    `json:"ord"`
	Effect string `json:"effect"`
	Kind   string `json:"kind"`
	Key    string `json:"key,omitempty"`
	Path   string `json:"path"`
	Index  int    `json:"index"`
	Attrs  string `json:"attrs,omitempty"`
}

// TraceCommit is one journaled commit in the trace output.
type TraceCommit struct {
	ID        string          `json:"id"`
	Number    int64           `json:"number"`
	Seq       int64           `json:"seq"`
	Lanes     string          `json:"lanes"`
	Mutations []TraceMutation `json:"mutations"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Commits []TraceCommit `json:"commits"`
	Stats   TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the journal.
type TraceStats struct {
	Commits   int            `json:"commits"`
	Mutations int            `json:"mutations"`
	ByEffect  map[string]int `json:"by_effect"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show journaled commits",
		Long: `Show the commits recorded in a journal, in apply order.

Each commit lists its lanes and the mutations it applied to the host,
parents before children for creates and updates, children before
parents for deletions.

--where filters mutations; commits with no matching mutation are
omitted. Fields: commit, number, lanes, effect, kind, key, path, index.
effect and lanes match one flag of a combined value ("move" matches
"update|move").

Examples:
  arbor trace --db ./arbor.db
  arbor trace --db ./arbor.db --commit 0192f4c1-...
  arbor trace --db ./arbor.db --where effect=move --where path^=/list
  arbor trace --db ./arbor.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Commit, "commit", "", "show a single commit by ID")
	cmd.Flags().StringArrayVar(&opts.Where, "where", nil, "filter mutations (field=value or path^=prefix); repeatable")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()

	// store.Open creates missing files.
	if _, err := os.Stat(opts.Database); errors.Is(err, os.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	pred, err := query.Parse(opts.Where)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid filter", err)
	}
	if opts.Commit != "" {
		byID := query.Equals{Field: "commit", Value: attr.String(opts.Commit)}
		if pred == nil {
			pred = byID
		} else {
			pred = query.And{Predicates: []query.Predicate{pred, byID}}
		}
	}

	commits, err := st.ReadCommits(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read commits", err)
	}
	rows, err := query.Run(ctx, st, pred)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query mutations", err)
	}
	byCommit := make(map[string][]query.Row)
	for _, r := range rows {
		byCommit[r.Commit] = append(byCommit[r.Commit], r)
	}

	result := TraceResult{
		Commits: make([]TraceCommit, 0, len(commits)),
		Stats:   TraceStats{ByEffect: map[string]int{}},
	}
	found := opts.Commit == ""
	for _, c := range commits {
		if opts.Commit != "" && c.ID != opts.Commit {
			continue
		}
		found = true
		muts := byCommit[c.ID]
		if len(opts.Where) > 0 && len(muts) == 0 {
			continue
		}
		tc := TraceCommit{ID: c.ID, Number: c.Number, Seq: c.Seq, Lanes: c.Lanes, Mutations: make([]TraceMutation, 0, len(muts))}
		for _, m := range muts {
			tm := TraceMutation{Ord: m.Ord, Effect: m.Effect, Kind: m.Kind, Key: m.Key, Path: m.Path, Index: m.Index}
			if m.Attrs != "{}" {
				tm.Attrs = m.Attrs
			}
			tc.Mutations = append(tc.Mutations, tm)
			result.Stats.ByEffect[m.Effect]++
		}
		result.Stats.Mutations += len(muts)
		result.Commits = append(result.Commits, tc)
	}
	if !found {
		return NewExitError(ExitCommandError, fmt.Sprintf("commit not found: %s", opts.Commit))
	}
	result.Stats.Commits = len(result.Commits)

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(CLIResponse{Status: "ok", Data: result})
}

// outputTraceText outputs the trace result as human-readable text.
func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if len(result.Commits) == 0 {
		fmt.Fprintln(w, "No commits found.")
		return nil
	}

	for _, c := range result.Commits {
		fmt.Fprintf(w, "commit %d %s seq=%d lanes=%s\n", c.Number, c.ID, c.Seq, c.Lanes)
		for _, m := range c.Mutations {
			line := fmt.Sprintf("  %-16s %-10s %s", m.Effect, m.Kind, m.Path)
			if verbose && m.Attrs != "" {
				line += " " + m.Attrs
			}
			fmt.Fprintln(w, line)
		}
	}
	fmt.Fprintf(w, "\n%d commit(s), %d mutation(s)\n", result.Stats.Commits, result.Stats.Mutations)
	return nil
}
