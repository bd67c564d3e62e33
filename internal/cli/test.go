package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/terminalops/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern)
	GoldenDir string // defaults to a "golden" directory next to the scenarios
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Replay lifecycle scenarios",
		Long: `Replay scenario files against an in-memory engine and check their
expectations, assertions and golden snapshots.

Each scenario names its own terminal directory; --db and --terminal are not
used. A scenario without a golden file is judged on its assertions alone.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  terminalops test ./testdata/scenarios
  terminalops test ./testdata/scenarios --filter "truck_*"
  terminalops test ./testdata/scenarios --update
  terminalops test ./testdata/scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "directory of golden files (default <scenarios-dir>/../golden)")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if !fileExists(dir) {
		msg := fmt.Sprintf("scenarios directory not found: %s", dir)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}
	if opts.GoldenDir == "" {
		opts.GoldenDir = filepath.Join(filepath.Dir(filepath.Clean(dir)), "golden")
	}

	files, err := findScenarioFiles(dir, opts.Filter)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}

	if len(files) == 0 {
		return formatter.Success(result, "No scenarios found.\n")
	}

	for _, file := range files {
		sr := runScenario(file, opts)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if formatter.JSON() {
		status := "ok"
		if result.Failed > 0 {
			status = "error"
		}
		if err := formatter.encode(CLIResponse{Status: status, Data: result}); err != nil {
			return err
		}
	} else {
		if err := formatter.Success(result, formatTestResult(result, opts.Update)); err != nil {
			return err
		}
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total))
	}
	return nil
}

// findScenarioFiles lists the scenario files in dir whose base name, without
// extension, matches filter.
func findScenarioFiles(dir, filter string) ([]string, error) {
	all, err := harness.DiscoverScenarios(dir)
	if err != nil {
		return nil, err
	}
	if filter == "" {
		return all, nil
	}

	var files []string
	for _, path := range all {
		base := filepath.Base(path)
		matched, err := filepath.Match(filter, strings.TrimSuffix(base, filepath.Ext(base)))
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			files = append(files, path)
		}
	}
	return files, nil
}

// runScenario loads, replays and judges one scenario file.
func runScenario(file string, opts *TestOptions) ScenarioResult {
	failed := func(name string, errs ...string) ScenarioResult {
		return ScenarioResult{Name: name, Pass: false, Errors: errs}
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return failed(filepath.Base(file), fmt.Sprintf("failed to load scenario: %v", err))
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return failed(scenario.Name, fmt.Sprintf("execution failed: %v", err))
	}

	snapshot, err := harness.MarshalSnapshot(scenario.Name, result)
	if err != nil {
		return failed(scenario.Name, fmt.Sprintf("failed to render snapshot: %v", err))
	}

	goldenPath := filepath.Join(opts.GoldenDir, scenario.Name+".golden")
	switch {
	case opts.Update:
		if err := os.MkdirAll(opts.GoldenDir, 0o755); err != nil {
			return failed(scenario.Name, fmt.Sprintf("failed to create golden directory: %v", err))
		}
		if err := os.WriteFile(goldenPath, snapshot, 0o644); err != nil {
			return failed(scenario.Name, fmt.Sprintf("failed to write golden file: %v", err))
		}
	case fileExists(goldenPath):
		golden, err := os.ReadFile(goldenPath)
		if err != nil {
			return failed(scenario.Name, fmt.Sprintf("failed to read golden file: %v", err))
		}
		if !bytes.Equal(golden, snapshot) {
			result.AddError("snapshot does not match golden file (run with --update to regenerate)")
		}
	}

	return ScenarioResult{Name: scenario.Name, Pass: result.Pass, Errors: result.Errors}
}

func formatTestResult(result TestResult, updated bool) string {
	var b strings.Builder
	for _, s := range result.Scenarios {
		switch {
		case !s.Pass:
			fmt.Fprintf(&b, "✗ %s\n", s.Name)
			for _, e := range s.Errors {
				fmt.Fprintf(&b, "  %s\n", e)
			}
		case updated:
			fmt.Fprintf(&b, "✓ %s (golden updated)\n", s.Name)
		default:
			fmt.Fprintf(&b, "✓ %s\n", s.Name)
		}
	}
	fmt.Fprintf(&b, "\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	return b.String()
}
