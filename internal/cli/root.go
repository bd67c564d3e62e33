package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"
)

// Environment variables that supply flag defaults. cmd/terminalops loads a
// .env file into the environment before the command tree is built.
const (
	EnvDatabase = "TERMINALOPS_DB"
	EnvTerminal = "TERMINALOPS_TERMINAL"
	EnvFormat   = "TERMINALOPS_FORMAT"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string
	Terminal string

	// Gate refuses completions and rework while the plan has issues.
	Gate bool

	// MetricsTextfile, if set, receives the Prometheus text exposition of
	// the run's engine metrics on exit.
	MetricsTextfile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the terminalops CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "terminalops",
		Short: "Terminal operation lifecycle engine",
		Long: `Plan, validate and track vessel, truck and rail operations at a bulk
liquid terminal.

Operations, holds and the activity log live in a SQLite database. Tank,
authorization and checklist master data is read from a directory of CUE files.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", envOr(EnvFormat, "text"), "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", envOr(EnvDatabase, "terminalops.db"), "path to SQLite database")
	cmd.PersistentFlags().StringVar(&opts.Terminal, "terminal", envOr(EnvTerminal, "terminal"), "directory of terminal CUE files")
	cmd.PersistentFlags().BoolVar(&opts.Gate, "gate", false, "refuse step completions while the plan has validation issues")
	cmd.PersistentFlags().StringVar(&opts.MetricsTextfile, "metrics-textfile", "", "write engine metrics in Prometheus text format to this file")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewStepCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewProgressCommand(opts))
	cmd.AddCommand(NewBoardCommand(opts))
	cmd.AddCommand(NewActivityCommand(opts))
	cmd.AddCommand(NewHoldCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
