package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/terminalops/internal/model"
)

// readYAMLDocuments decodes every document in path into a T. Unknown fields
// are rejected.
func readYAMLDocuments[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("failed to read %s: %v", path, err), Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var out []T
	for {
		var v T
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("failed to parse %s: %v", path, err), Err: err}
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, &LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("%s contains no documents", path)}
	}
	return out, nil
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule <operation.yaml>",
		Short: "Store operations and seed their step ledgers",
		Long: `Read one or more operations (YAML documents separated by ---) and store
them. Every transfer without a ledger is seeded with loop 1 of its modality's
checklist. Re-scheduling an operation keeps the ledgers of transfers whose ID
is unchanged.

Example:
  terminalops schedule ./ops/mv-aurora.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runSchedule(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	ops, err := readYAMLDocuments[model.Operation](path)
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read operations", err)
	}

	return withSession(cmd, opts, func(ctx context.Context, s *session) error {
		var stored []*model.Operation
		var text strings.Builder
		for i := range ops {
			op, err := s.engine.Schedule(ctx, &ops[i])
			if err != nil {
				return engineFailure(formatter, err)
			}
			stored = append(stored, op)
			fmt.Fprintf(&text, "✓ Scheduled %s (%s, %s)\n", op.ID, op.Modality, op.Status)
		}
		return formatter.Success(stored, text.String())
	})
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <operation-id> <Planned|Active|Completed|Cancelled>",
		Short: "Set the lifecycle status of an operation",
		Args:  cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 1 {
				return statusNames(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, args[0], args[1], cmd)
		},
	}
}

var operationStatuses = []model.OperationStatus{
	model.StatusPlanned, model.StatusActive, model.StatusCompleted, model.StatusCancelled,
}

func statusNames() []string {
	names := make([]string, len(operationStatuses))
	for i, s := range operationStatuses {
		names[i] = string(s)
	}
	return names
}

func runStatus(opts *RootOptions, id, status string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	st := model.OperationStatus(status)
	if !slices.Contains(operationStatuses, st) {
		msg := fmt.Sprintf("unknown status %q: must be one of %v", status, statusNames())
		_ = formatter.Error(ErrCodeGeneric, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	return withSession(cmd, opts, func(ctx context.Context, s *session) error {
		op, err := s.engine.SetStatus(ctx, id, st)
		if err != nil {
			return engineFailure(formatter, err)
		}
		return formatter.Success(op, fmt.Sprintf("✓ %s is now %s\n", op.ID, op.Status))
	})
}
