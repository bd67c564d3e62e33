package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/terminalops/internal/model"
)

// HoldResult is the JSON payload of hold add and hold impact.
type HoldResult struct {
	Hold     model.Hold `json:"hold"`
	Affected []string   `json:"affected"`
}

// NewHoldCommand creates the hold command group.
func NewHoldCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hold",
		Short: "Manage maintenance holds",
		Long: `Maintenance holds take a connection point (and optionally one tank)
out of service for a window. Approved holds and holds with an active work
order block operations whose window overlaps.`,
	}

	cmd.AddCommand(newHoldAddCommand(rootOpts))
	cmd.AddCommand(newHoldImpactCommand(rootOpts))
	cmd.AddCommand(newHoldListCommand(rootOpts))

	return cmd
}

func newHoldAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "add <hold.yaml>",
		Short:         "Store holds and list the operations they affect",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHold(rootOpts, args[0], true, cmd)
		},
	}
}

func newHoldImpactCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "impact <hold.yaml>",
		Short: "List the operations proposed holds would affect, without storing them",
		Long: `List the Planned and Active operations a proposed hold would block.
The hold's status is ignored: impact is usually checked before approval.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHold(rootOpts, args[0], false, cmd)
		},
	}
}

func runHold(opts *RootOptions, path string, store bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	holds, err := readYAMLDocuments[model.Hold](path)
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read holds", err)
	}

	return withSession(cmd, opts, func(ctx context.Context, s *session) error {
		results := make([]HoldResult, 0, len(holds))
		var text strings.Builder
		for _, h := range holds {
			var affected []model.Operation
			var err error
			if store {
				affected, err = s.engine.AddHold(ctx, h)
			} else {
				affected, err = s.engine.HoldImpact(ctx, h)
			}
			if err != nil {
				return engineFailure(formatter, err)
			}

			r := HoldResult{Hold: h, Affected: make([]string, len(affected))}
			for i := range affected {
				r.Affected[i] = affected[i].ID
			}
			results = append(results, r)

			verb := "would affect"
			if store {
				fmt.Fprintf(&text, "✓ Stored hold %s on %s\n", h.ID, h.Resource)
				verb = "affects"
			}
			if len(r.Affected) == 0 {
				fmt.Fprintf(&text, "  %s %s no scheduled operations\n", h.ID, verb)
			} else {
				fmt.Fprintf(&text, "  %s %s: %s\n", h.ID, verb, strings.Join(r.Affected, ", "))
			}
		}
		return formatter.Success(results, text.String())
	})
}

func newHoldListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List stored holds",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			return withSession(cmd, rootOpts, func(ctx context.Context, s *session) error {
				holds, err := s.engine.Holds(ctx)
				if err != nil {
					return engineFailure(formatter, err)
				}
				var text strings.Builder
				if len(holds) == 0 {
					text.WriteString("No holds\n")
				}
				for _, h := range holds {
					fmt.Fprintf(&text, "%-12s %-10s %-10s %s → %s  %s\n", h.ID, h.Resource, h.Status,
						h.Start.Format("2006-01-02 15:04"), h.End.Format("2006-01-02 15:04"), h.Reason)
				}
				return formatter.Success(holds, text.String())
			})
		},
	}
}
