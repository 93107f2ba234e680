package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/arbor/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // path to a YAML config file; empty uses defaults

	cfg *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the arbor CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "arbor",
		Short: "arbor - incremental tree reconciliation",
		Long: `Reconcile declarative tree descriptions into a host tree.

Descriptions are authored in CUE or inline in YAML scenarios. Work is
rendered in interruptible units on priority lanes and committed to the
host in one uninterruptible step.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			_, err := opts.Settings()
			return err
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to config file")

	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewRenderCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// Settings loads the config file once. Without --config the defaults apply.
func (o *RootOptions) Settings() (config.Config, error) {
	if o.cfg != nil {
		return *o.cfg, nil
	}
	cfg := config.Default()
	if o.Config != "" {
		var err error
		cfg, err = config.Load(o.Config)
		if err != nil {
			return cfg, WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}
	o.cfg = &cfg
	return cfg, nil
}

// Logger builds the command logger: text to w at the configured level, or
// debug with --verbose. The "error" key is written as "err".
func (o *RootOptions) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.cfg != nil {
		level = o.cfg.Level()
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return newLogger(w, level)
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
