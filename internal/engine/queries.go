package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/terminalops/internal/conflict"
	"github.com/roach88/terminalops/internal/ledger"
	"github.com/roach88/terminalops/internal/model"
	"github.com/roach88/terminalops/internal/progress"
	"github.com/roach88/terminalops/internal/validate"
)

// Operation returns the stored snapshot of operation id.
func (e *Engine) Operation(ctx context.Context, id string) (*model.Operation, error) {
	return e.load(ctx, id)
}

// Validate runs the plan validator on the stored operation.
func (e *Engine) Validate(ctx context.Context, id string) (_ validate.Result, err error) {
	defer e.observe(ctx, "validate", time.Now(), &err)

	op, err := e.load(ctx, id)
	if err != nil {
		return validate.Result{}, err
	}
	return e.validate(ctx, op)
}

// Progress computes the weighted progress of the stored operation.
func (e *Engine) Progress(ctx context.Context, id string) (progress.Progress, error) {
	op, err := e.load(ctx, id)
	if err != nil {
		return progress.Progress{}, err
	}
	return progress.Calculate(op), nil
}

// Steps projects one ledger of the stored operation for display. marker, if
// not nil, is the host's pending-undo marker.
func (e *Engine) Steps(ctx context.Context, id, transferID string, marker *ledger.PendingUndo) ([]ledger.StepView, error) {
	op, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	l, err := op.Ledger(transferID)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeUnknownLedger, Message: err.Error(), OperationID: id}
	}
	return l.Project(marker), nil
}

// Activity returns the activity log of operation id in seq order.
func (e *Engine) Activity(ctx context.Context, id string) ([]model.ActivityEntry, error) {
	return e.repo.ListActivity(ctx, id)
}

// HoldImpact returns the Planned or Active operations hold would block.
// The hold's own status is ignored: this is asked before it is approved.
func (e *Engine) HoldImpact(ctx context.Context, hold model.Hold) ([]model.Operation, error) {
	ops, err := e.repo.ListOperations(ctx)
	if err != nil {
		return nil, err
	}
	return conflict.AffectedOperations(hold, ops), nil
}

// AddHold stores hold and returns the operations it affects.
func (e *Engine) AddHold(ctx context.Context, hold model.Hold) (_ []model.Operation, err error) {
	defer e.observe(ctx, "add_hold", time.Now(), &err)

	if hold.ID == "" || hold.Resource == "" {
		return nil, &RuntimeError{Code: ErrCodeInvalidOperation, Message: "hold id and resource are required"}
	}
	if !hold.End.After(hold.Start) {
		return nil, &RuntimeError{Code: ErrCodeInvalidOperation, Message: fmt.Sprintf("hold %s ends before it starts", hold.ID)}
	}

	if err := e.repo.SaveHold(ctx, hold, e.clock.Next()); err != nil {
		return nil, fmt.Errorf("add hold %s: %w", hold.ID, err)
	}

	affected, err := e.HoldImpact(ctx, hold)
	if err != nil {
		return nil, err
	}
	if len(affected) > 0 {
		ids := make([]string, len(affected))
		for i := range affected {
			ids[i] = affected[i].ID
		}
		e.logger.Warn("hold affects scheduled operations",
			slog.String("hold", hold.ID),
			slog.String("resource", hold.Resource),
			slog.Any("operations", ids),
		)
	}
	return affected, nil
}

// Holds returns every stored hold.
func (e *Engine) Holds(ctx context.Context) ([]model.Hold, error) {
	return e.repo.ListHolds(ctx)
}

// Board returns every stored operation in scheduling order with its progress
// and badge.
func (e *Engine) Board(ctx context.Context) ([]progress.Entry, error) {
	ops, err := e.repo.ListOperations(ctx)
	if err != nil {
		return nil, err
	}
	return progress.SortForSchedule(ops), nil
}
