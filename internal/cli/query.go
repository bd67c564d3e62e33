package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/terminalops/internal/ledger"
	"github.com/roach88/terminalops/internal/progress"
	"github.com/roach88/terminalops/internal/validate"
)

// PlanIssue is a validation issue with its rendered message.
type PlanIssue struct {
	validate.Issue
	Message string `json:"message"`
}

// PlanResult is the JSON payload of the plan command.
type PlanResult struct {
	OperationID string      `json:"operation_id"`
	Valid       bool        `json:"valid"`
	Issues      []PlanIssue `json:"issues"`
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "plan <operation-id>",
		Short: "Validate an operation's plan against terminal state",
		Long: `Check an operation's transfers against tank authorizations, capacity,
stock, product compatibility and maintenance holds.

Exit code 1 when the plan has issues.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(rootOpts, lang, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "en", "BCP 47 language tag for number formatting in messages")
	return cmd
}

func runPlan(opts *RootOptions, lang, opID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	tag, err := language.Parse(lang)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("invalid language %q: %v", lang, err), nil)
		return WrapExitError(ExitCommandError, "invalid language", err)
	}
	printer := message.NewPrinter(tag)

	return withSession(cmd, opts, func(ctx context.Context, s *session) error {
		res, err := s.engine.Validate(ctx, opID)
		if err != nil {
			return engineFailure(formatter, err)
		}

		out := PlanResult{OperationID: opID, Valid: res.IsValid, Issues: make([]PlanIssue, len(res.Issues))}
		var text strings.Builder
		if res.IsValid {
			fmt.Fprintf(&text, "✓ %s plan is valid\n", opID)
		} else {
			fmt.Fprintf(&text, "✗ %s plan has %d issue(s)\n\n", opID, len(res.Issues))
		}
		for i, issue := range res.Issues {
			msg := issue.Render(printer)
			out.Issues[i] = PlanIssue{Issue: issue, Message: msg}
			fmt.Fprintf(&text, "  %-24s %s\n", issue.Code, msg)
		}

		if err := formatter.Success(out, text.String()); err != nil {
			return err
		}
		if !res.IsValid {
			return NewExitError(ExitFailure, fmt.Sprintf("plan has %d issue(s)", len(res.Issues)))
		}
		return nil
	})
}

// ProgressResult is the JSON payload of the progress command.
type ProgressResult struct {
	OperationID string            `json:"operation_id"`
	Badge       string            `json:"badge"`
	Progress    progress.Progress `json:"progress"`
	Steps       []ledger.StepView `json:"steps,omitempty"`
}

// NewProgressCommand creates the progress command.
func NewProgressCommand(rootOpts *RootOptions) *cobra.Command {
	var transfer string
	cmd := &cobra.Command{
		Use:   "progress <operation-id>",
		Short: "Show the weighted progress of an operation",
		Long: `Show the weighted progress of an operation across all its ledgers.
Pumping steps earn partial credit from transferred tonnage.

With --transfer the steps of that transfer's ledger are listed as well.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgress(rootOpts, transfer, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&transfer, "transfer", "", "also list the steps of this transfer")
	return cmd
}

func runProgress(opts *RootOptions, transfer, opID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	return withSession(cmd, opts, func(ctx context.Context, s *session) error {
		op, err := s.engine.Operation(ctx, opID)
		if err != nil {
			return engineFailure(formatter, err)
		}
		out := ProgressResult{
			OperationID: opID,
			Badge:       progress.Badge(op),
			Progress:    progress.Calculate(op),
		}
		if transfer != "" {
			if out.Steps, err = s.engine.Steps(ctx, opID, transfer, nil); err != nil {
				return engineFailure(formatter, err)
			}
		}

		text := fmt.Sprintf("%s  %s  %.1f%% (%d/%d steps, %.2f weighted)\n",
			opID, out.Badge, out.Progress.Percentage, out.Progress.StepsCompleted,
			out.Progress.TotalWeight, out.Progress.CompletedWeight)
		if transfer != "" {
			text += formatSteps(ledgerName(opID, transfer), out.Steps)
		}
		return formatter.Success(out, text)
	})
}

// NewBoardCommand creates the board command.
func NewBoardCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "List all operations in scheduling order",
		Long: `List every stored operation with its badge and progress. Active
operations come first, then Planned, Completed and Cancelled; each group is
ordered by ETA.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(rootOpts, cmd)
		},
	}
}

func runBoard(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	return withSession(cmd, opts, func(ctx context.Context, s *session) error {
		entries, err := s.engine.Board(ctx)
		if err != nil {
			return engineFailure(formatter, err)
		}

		var text strings.Builder
		if len(entries) == 0 {
			text.WriteString("No operations scheduled\n")
		}
		for _, e := range entries {
			fmt.Fprintf(&text, "%-16s %-7s %s  %-12s %5.1f%%\n",
				e.Operation.ID, e.Operation.Modality, e.Operation.ETA.Format("2006-01-02 15:04"),
				e.Badge, e.Progress.Percentage)
		}
		return formatter.Success(entries, text.String())
	})
}

// NewActivityCommand creates the activity command.
func NewActivityCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "activity <operation-id>",
		Short:         "Show the activity log of an operation",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runActivity(rootOpts, args[0], cmd)
		},
	}
}

func runActivity(opts *RootOptions, opID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	return withSession(cmd, opts, func(ctx context.Context, s *session) error {
		if _, err := s.engine.Operation(ctx, opID); err != nil {
			return engineFailure(formatter, err)
		}
		entries, err := s.engine.Activity(ctx, opID)
		if err != nil {
			return engineFailure(formatter, err)
		}

		var text strings.Builder
		if len(entries) == 0 {
			text.WriteString("No activity recorded\n")
		}
		for _, e := range entries {
			fmt.Fprintf(&text, "%4d %s %-8s %s", e.Seq, e.At.Format("2006-01-02 15:04:05"), e.Action, ledgerName(opID, e.TransferID))
			if e.Event != "" {
				fmt.Fprintf(&text, " %q", e.Event)
			}
			fmt.Fprintf(&text, " loop %d by %s", e.Loop, e.Actor)
			if e.Reason != "" {
				fmt.Fprintf(&text, " (%s)", e.Reason)
			}
			text.WriteString("\n")
		}
		return formatter.Success(entries, text.String())
	})
}
