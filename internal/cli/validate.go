package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/arbor/internal/compiler"
	"github.com/roach88/arbor/internal/view"
)

// ViewReport holds the validation errors of one description.
type ViewReport struct {
	Source string                     `json:"source"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool         `json:"valid"`
	Views []ViewReport `json:"views"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <view.cue|dir>...",
		Short: "Validate CUE descriptions without rendering",
		Long: `Compile CUE descriptions and check them without rendering.

A file argument is one description (its top-level "view" field, or the
whole file). A directory argument is a CUE package whose "views" struct
holds named descriptions.

Checks: every node has a kind, sibling keys are unique, no child uses
the root kind, and composites carry no attrs. All errors are reported,
not just the first.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result := ValidationResult{Valid: true, Views: []ViewReport{}}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("path not found: %s", p), nil)
			return WrapExitError(ExitCommandError, "invalid path", err)
		}

		if !info.IsDir() {
			formatter.VerboseLog("Validating %s", p)
			desc, err := compiler.LoadViewFile(p)
			result.Views = append(result.Views, report(p, desc, err))
			continue
		}

		views, err := compiler.LoadViewDir(p)
		if err != nil {
			result.Views = append(result.Views, report(p, nil, err))
			continue
		}
		for _, name := range compiler.ViewNames(views) {
			formatter.VerboseLog("Validating %s: views.%s", p, name)
			result.Views = append(result.Views, report(fmt.Sprintf("%s:views.%s", p, name), views[name], nil))
		}
	}

	var all []compiler.ValidationError
	for _, r := range result.Views {
		if len(r.Errors) > 0 {
			result.Valid = false
			for _, e := range r.Errors {
				e.Field = r.Source + ":" + e.Field
				all = append(all, e)
			}
		}
	}

	if !result.Valid {
		if opts.Format == "json" {
			_ = formatter.Error(ErrCodeInvalid, fmt.Sprintf("%d validation error(s)", len(all)), result)
		} else {
			w := cmd.OutOrStdout()
			for _, e := range all {
				fmt.Fprintf(w, "%s\n", e.Error())
			}
			fmt.Fprintf(w, "\n%d validation error(s)\n", len(all))
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d validation error(s)", len(all)))
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("%d view(s) valid", len(result.Views)))
}

// report validates one compiled description. A compile failure becomes a
// single ErrCodeLoadFailed entry.
func report(source string, desc *view.Node, loadErr error) ViewReport {
	r := ViewReport{Source: source}
	if loadErr != nil {
		e := compiler.ValidationError{Field: "load", Message: loadErr.Error(), Code: ErrCodeLoadFailed}
		var ce *compiler.CompileError
		if errors.As(loadErr, &ce) {
			e.Field = ce.Field
			e.Message = ce.Message
			if ce.Pos.IsValid() {
				e.Message = fmt.Sprintf("%s (line %d)", ce.Message, ce.Pos.Line())
			}
		}
		r.Errors = []compiler.ValidationError{e}
		return r
	}
	r.Errors = compiler.ValidateView(desc)
	return r
}
