package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/terminalops/internal/engine"
	"github.com/roach88/terminalops/internal/ledger"
	"github.com/roach88/terminalops/internal/model"
)

// StepOptions holds flags shared by the step subcommands.
type StepOptions struct {
	Transfer string
	Loop     int
	Actor    string
	Reason   string

	// PendingUndo previews an undo of this event in step list.
	PendingUndo string
}

// StepResult is the JSON payload of step complete, undo and rework.
type StepResult struct {
	Operation *model.Operation `json:"operation"`
	Loop      int              `json:"loop,omitempty"`
	Reset     []string         `json:"reset,omitempty"`
}

// NewStepCommand creates the step command group.
func NewStepCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Complete, undo and rework checklist steps",
		Long: `Drive the step ledgers of an operation.

--transfer selects a transfer ledger; without it the operation's shared
ledger (vessel operations only) is used. --loop 0 means the latest loop.`,
	}

	cmd.AddCommand(newStepCompleteCommand(rootOpts))
	cmd.AddCommand(newStepUndoCommand(rootOpts))
	cmd.AddCommand(newStepReworkCommand(rootOpts))
	cmd.AddCommand(newStepListCommand(rootOpts))

	return cmd
}

func addLedgerFlags(cmd *cobra.Command, opts *StepOptions) {
	cmd.Flags().StringVar(&opts.Transfer, "transfer", "", "transfer ID (empty selects the shared ledger)")
	cmd.Flags().IntVar(&opts.Loop, "loop", 0, "loop number (0 = latest)")
}

func addActorFlag(cmd *cobra.Command, opts *StepOptions) {
	cmd.Flags().StringVar(&opts.Actor, "actor", envOr("USER", "unknown"), "who performed the action")
}

func newStepCompleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StepOptions{}
	cmd := &cobra.Command{
		Use:   "complete <operation-id> <event>",
		Short: "Mark a step complete",
		Long: `Mark a step complete. Steps must be completed in checklist order.

Example:
  terminalops step complete TRK-0042 "Pumping Started" --transfer t1`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStepComplete(rootOpts, opts, args[0], args[1], cmd)
		},
	}
	addLedgerFlags(cmd, opts)
	addActorFlag(cmd, opts)
	return cmd
}

func runStepComplete(rootOpts *RootOptions, opts *StepOptions, opID, event string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)
	ref := engine.StepRef{OperationID: opID, TransferID: opts.Transfer, Event: event, Loop: opts.Loop}

	return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
		op, err := s.engine.CompleteStep(ctx, ref, opts.Actor)
		if err != nil {
			return engineFailure(formatter, err)
		}
		return formatter.Success(StepResult{Operation: op},
			fmt.Sprintf("✓ %s complete on %s\n", event, ledgerName(op.ID, opts.Transfer)))
	})
}

func newStepUndoCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StepOptions{}
	cmd := &cobra.Command{
		Use:   "undo <operation-id> <event>",
		Short: "Reset a completed step and every later step of its loop",
		Long: `Reset a completed step to Pending together with every later step of
the same loop. Only the latest loop can be undone.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStepUndo(rootOpts, opts, args[0], args[1], cmd)
		},
	}
	addLedgerFlags(cmd, opts)
	addActorFlag(cmd, opts)
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "why the step is being undone")
	return cmd
}

func runStepUndo(rootOpts *RootOptions, opts *StepOptions, opID, event string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)
	ref := engine.StepRef{OperationID: opID, TransferID: opts.Transfer, Event: event, Loop: opts.Loop}

	return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
		op, reset, err := s.engine.UndoStep(ctx, ref, opts.Actor, opts.Reason)
		if err != nil {
			return engineFailure(formatter, err)
		}
		return formatter.Success(StepResult{Operation: op, Reset: reset},
			fmt.Sprintf("✓ Reset %d step(s) on %s: %s\n", len(reset), ledgerName(op.ID, opts.Transfer), strings.Join(reset, ", ")))
	})
}

func newStepReworkCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StepOptions{}
	cmd := &cobra.Command{
		Use:   "rework <operation-id>",
		Short: "Start a rework loop",
		Long: `Append a fresh loop of the checklist after --loop (default: latest).
The base loop must have reached its rework gate step and is frozen afterwards.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStepRework(rootOpts, opts, args[0], cmd)
		},
	}
	addLedgerFlags(cmd, opts)
	addActorFlag(cmd, opts)
	cmd.Flags().StringVar(&opts.Reason, "reason", "", "why the transfer is being reworked")
	return cmd
}

func runStepRework(rootOpts *RootOptions, opts *StepOptions, opID string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
		op, loop, err := s.engine.StartReworkLoop(ctx, opID, opts.Transfer, opts.Loop, opts.Actor, opts.Reason)
		if err != nil {
			return engineFailure(formatter, err)
		}
		return formatter.Success(StepResult{Operation: op, Loop: loop},
			fmt.Sprintf("✓ Started loop %d on %s\n", loop, ledgerName(op.ID, opts.Transfer)))
	})
}

func newStepListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StepOptions{}
	cmd := &cobra.Command{
		Use:   "list <operation-id>",
		Short: "Show the steps of a ledger with their derived state",
		Long: `Show every step of a ledger, loop by loop, with its derived state
(Complete, Active, Blocked or Pending).

--pending-undo previews an undo of the named step in --loop without changing
the ledger.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStepList(rootOpts, opts, args[0], cmd)
		},
	}
	addLedgerFlags(cmd, opts)
	cmd.Flags().StringVar(&opts.PendingUndo, "pending-undo", "", "preview an undo of this step")
	return cmd
}

func runStepList(rootOpts *RootOptions, opts *StepOptions, opID string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
		var marker *ledger.PendingUndo
		if opts.PendingUndo != "" {
			loop := opts.Loop
			if loop == 0 {
				op, err := s.engine.Operation(ctx, opID)
				if err != nil {
					return engineFailure(formatter, err)
				}
				l, err := op.Ledger(opts.Transfer)
				if err != nil {
					return engineFailure(formatter, &engine.RuntimeError{Code: engine.ErrCodeUnknownLedger, Message: err.Error(), OperationID: opID})
				}
				loop = l.LatestLoop()
			}
			marker = &ledger.PendingUndo{Event: opts.PendingUndo, Loop: loop}
		}

		views, err := s.engine.Steps(ctx, opID, opts.Transfer, marker)
		if err != nil {
			return engineFailure(formatter, err)
		}
		return formatter.Success(views, formatSteps(ledgerName(opID, opts.Transfer), views))
	})
}

func ledgerName(opID, transferID string) string {
	if transferID == "" {
		return opID + " (shared)"
	}
	return opID + "/" + transferID
}

var stateGlyph = map[ledger.State]string{
	ledger.StateComplete: "✓",
	ledger.StateActive:   "▶",
	ledger.StateBlocked:  "·",
	ledger.StatePending:  "○",
}

func formatSteps(name string, views []ledger.StepView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", name)
	loop := 0
	for _, v := range views {
		if v.Loop != loop {
			loop = v.Loop
			fmt.Fprintf(&b, "  loop %d\n", loop)
		}
		fmt.Fprintf(&b, "    %s %-20s %s", stateGlyph[v.State], v.Event, v.State)
		if v.CompletedAt != nil {
			fmt.Fprintf(&b, "  %s by %s", v.CompletedAt.Format("2006-01-02 15:04"), v.CompletedBy)
		}
		b.WriteString("\n")
	}
	return b.String()
}
