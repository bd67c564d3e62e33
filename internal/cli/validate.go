package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/terminalops/internal/compiler"
)

// ValidationResult holds terminal configuration validation results.
type ValidationResult struct {
	Valid   bool                       `json:"valid"`
	Summary *TerminalSummary           `json:"summary,omitempty"`
	Errors  []compiler.ValidationError `json:"errors,omitempty"`
}

// TerminalSummary counts what a valid terminal configuration defines.
type TerminalSummary struct {
	Tanks          int      `json:"tanks"`
	Authorizations int      `json:"authorizations"`
	Infrastructure int      `json:"infrastructure"`
	Modalities     []string `json:"modalities"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [terminal-dir]",
		Short: "Validate the terminal configuration",
		Long: `Compile the terminal CUE files against the schema and run the
consistency checks (unknown tanks, duplicate authorizations, checklist markers).

The directory defaults to --terminal.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.Terminal
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	term, verrs, err := LoadTerminal(dir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error())
	}

	formatter.VerboseLog("Compiled terminal from %s", dir)

	if len(verrs) > 0 {
		return outputValidationErrors(formatter, verrs)
	}
	return outputValidateSuccess(formatter, summarize(term))
}

func summarize(t *compiler.Terminal) *TerminalSummary {
	s := &TerminalSummary{
		Tanks:          len(t.Config.Tanks),
		Authorizations: len(t.Spec.Authorizations),
		Infrastructure: len(t.Config.Infrastructure),
		Modalities:     []string{},
	}
	for m := range t.Spec.Checklists {
		s.Modalities = append(s.Modalities, m)
	}
	sort.Strings(s.Modalities)
	return s
}

func outputValidateSuccess(formatter *OutputFormatter, summary *TerminalSummary) error {
	custom := "default checklists"
	if len(summary.Modalities) > 0 {
		custom = "custom checklists for " + strings.Join(summary.Modalities, ", ")
	}
	text := fmt.Sprintf("✓ Terminal valid: %d tanks, %d authorizations, %d connection points, %s\n",
		summary.Tanks, summary.Authorizations, summary.Infrastructure, custom)
	return formatter.Success(ValidationResult{Valid: true, Summary: summary}, text)
}

// outputValidateError reports a load failure. Load failures are
// command-level errors (exit code 2).
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors lists every consistency error (exit code 1).
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.JSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s %s: %s\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
