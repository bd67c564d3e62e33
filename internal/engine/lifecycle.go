package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/terminalops/internal/ledger"
	"github.com/roach88/terminalops/internal/model"
	"github.com/roach88/terminalops/internal/validate"
)

// StepRef addresses one step of one ledger.
type StepRef struct {
	OperationID string
	// TransferID selects a transfer ledger; empty selects the shared ledger.
	TransferID string
	Event      string
	// Loop 0 means the latest loop.
	Loop int
}

func (r StepRef) attrs() []any {
	return []any{
		slog.String("operation", r.OperationID),
		slog.String("transfer", r.TransferID),
		slog.String("event", r.Event),
		slog.Int("loop", r.Loop),
	}
}

// Schedule stores op, seeding a loop-1 ledger for every transfer (and the
// shared ledger, where the modality has one) that lacks one.
//
// When op replaces an already stored operation, ledgers of transfers that
// keep their ID are carried over, so re-planning never loses step history.
// An empty status keeps the stored one. Ledgers are not carried across a
// modality change. Supplied ledgers must follow the catalog checklist and
// the ordering invariant.
func (e *Engine) Schedule(ctx context.Context, op *model.Operation) (_ *model.Operation, err error) {
	defer e.observe(ctx, "schedule", time.Now(), &err)

	if op.ID == "" {
		return nil, &RuntimeError{Code: ErrCodeInvalidOperation, Message: "operation id is required"}
	}
	if !op.Modality.Valid() {
		return nil, &RuntimeError{
			Code:        ErrCodeInvalidOperation,
			Message:     fmt.Sprintf("unknown modality %q", op.Modality),
			OperationID: op.ID,
		}
	}

	unlock := e.lock(op.ID)
	defer unlock()

	next := op.Clone()
	prev, err := e.load(ctx, op.ID)
	switch {
	case err == nil:
		if next.Status == "" {
			next.Status = prev.Status
		}
		if prev.Modality == next.Modality {
			carryLedgers(prev, next)
		}
	case !IsNotFound(err):
		return nil, err
	}
	if next.Status == "" {
		next.Status = model.StatusPlanned
	}

	created, err := next.EnsureLedgers(e.catalog)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidOperation, Message: err.Error(), OperationID: op.ID}
	}
	if err := next.CheckLedgers(e.catalog); err != nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidOperation, Message: err.Error(), OperationID: op.ID}
	}

	if err := e.repo.SaveOperation(ctx, next, e.clock.Next()); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", op.ID, err)
	}

	e.logger.Info("operation scheduled",
		slog.String("operation", next.ID),
		slog.String("modality", string(next.Modality)),
		slog.String("status", string(next.Status)),
		slog.Int("ledgers_created", created),
	)
	return next, nil
}

// carryLedgers copies ledgers from prev into next where next has none. Both
// must share a modality.
func carryLedgers(prev, next *model.Operation) {
	if next.SharedLedger == nil {
		next.SharedLedger = prev.SharedLedger
	}
	for i := range next.TransferLines {
		for j := range next.TransferLines[i].Transfers {
			t := &next.TransferLines[i].Transfers[j]
			if t.Ledger != nil {
				continue
			}
			if old, ok := prev.Transfer(t.ID); ok {
				t.Ledger = old.Ledger
			}
		}
	}
}

// SetStatus changes the host-managed status of an operation.
func (e *Engine) SetStatus(ctx context.Context, id string, status model.OperationStatus) (_ *model.Operation, err error) {
	defer e.observe(ctx, "set_status", time.Now(), &err)

	unlock := e.lock(id)
	defer unlock()

	op, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	from := op.Status
	op.Status = status
	if err := e.repo.SaveOperation(ctx, op, e.clock.Next()); err != nil {
		return nil, fmt.Errorf("set status %s: %w", id, err)
	}

	e.logger.Info("operation status changed",
		slog.String("operation", id),
		slog.String("from", string(from)),
		slog.String("to", string(status)),
	)
	return op, nil
}

// CompleteStep marks ref Complete, recording actor and the wall-clock time.
// A Planned operation becomes Active on its first completed step.
func (e *Engine) CompleteStep(ctx context.Context, ref StepRef, actor string) (_ *model.Operation, err error) {
	defer e.observe(ctx, "complete_step", time.Now(), &err)
	ref.Event = normalizeStep(ref.Event)

	return e.mutate(ctx, ref, true, func(op *model.Operation, l *ledger.Ledger, loop int, at time.Time) (model.ActivityEntry, error) {
		if err := l.Complete(ref.Event, loop, actor, at); err != nil {
			return model.ActivityEntry{}, err
		}
		if op.Status == model.StatusPlanned {
			op.Status = model.StatusActive
			e.logger.Info("operation activated", slog.String("operation", op.ID))
		}
		return model.ActivityEntry{Action: model.ActionComplete, Event: ref.Event, Loop: loop, Actor: actor}, nil
	})
}

// UndoStep resets ref and every later step of its loop to Pending. Returns
// the steps that were Complete before the undo.
func (e *Engine) UndoStep(ctx context.Context, ref StepRef, actor, reason string) (_ *model.Operation, reset []string, err error) {
	defer e.observe(ctx, "undo_step", time.Now(), &err)
	ref.Event = normalizeStep(ref.Event)

	op, err := e.mutate(ctx, ref, false, func(_ *model.Operation, l *ledger.Ledger, loop int, _ time.Time) (model.ActivityEntry, error) {
		var uerr error
		reset, uerr = l.Undo(ref.Event, loop)
		if uerr != nil {
			return model.ActivityEntry{}, uerr
		}
		return model.ActivityEntry{Action: model.ActionUndo, Event: ref.Event, Loop: loop, Actor: actor, Reason: reason}, nil
	})
	return op, reset, err
}

// StartReworkLoop appends a fresh loop after baseLoop on the ledger selected
// by operationID and transferID. Returns the new loop number.
func (e *Engine) StartReworkLoop(ctx context.Context, operationID, transferID string, baseLoop int, actor, reason string) (_ *model.Operation, loop int, err error) {
	defer e.observe(ctx, "start_rework_loop", time.Now(), &err)

	ref := StepRef{OperationID: operationID, TransferID: transferID, Loop: baseLoop}
	op, err := e.mutate(ctx, ref, true, func(_ *model.Operation, l *ledger.Ledger, base int, _ time.Time) (model.ActivityEntry, error) {
		var rerr error
		loop, rerr = l.StartReworkLoop(base)
		if rerr != nil {
			return model.ActivityEntry{}, rerr
		}
		return model.ActivityEntry{Action: model.ActionRework, Loop: loop, Actor: actor, Reason: reason}, nil
	})
	return op, loop, err
}

// normalizeStep puts a step name in NFC. Checklist names are compared
// byte-wise and hosts may send decomposed forms.
func normalizeStep(event string) string {
	return norm.NFC.String(event)
}

type mutation func(op *model.Operation, l *ledger.Ledger, loop int, at time.Time) (model.ActivityEntry, error)

// mutate runs fn against a fresh snapshot of the operation under its lock
// and commits the result with one activity entry.
func (e *Engine) mutate(ctx context.Context, ref StepRef, gated bool, fn mutation) (*model.Operation, error) {
	unlock := e.lock(ref.OperationID)
	defer unlock()

	op, err := e.load(ctx, ref.OperationID)
	if err != nil {
		return nil, err
	}

	if gated && e.gate {
		res, err := e.validate(ctx, op)
		if err != nil {
			return nil, err
		}
		if !res.IsValid {
			e.logger.Warn("mutation refused by validation gate",
				append(ref.attrs(), slog.Any("issues", res.Codes()))...)
			return nil, newGateError(op.ID, res.Issues)
		}
	}

	l, err := op.Ledger(ref.TransferID)
	if err != nil {
		return nil, &RuntimeError{Code: ErrCodeUnknownLedger, Message: err.Error(), OperationID: op.ID}
	}

	loop := ref.Loop
	if loop == 0 {
		loop = l.LatestLoop()
	}

	at := e.now().UTC()
	entry, err := fn(op, l, loop, at)
	if err != nil {
		e.logger.Error("step sequencing rejected",
			append(ref.attrs(), slog.String("code", string(ledger.CodeOf(err))), slog.Any("error", err))...)
		return nil, err
	}

	seq := e.clock.Next()
	entry.ID = e.ids.Generate()
	entry.OperationID = op.ID
	entry.TransferID = ref.TransferID
	entry.At = at
	entry.Seq = seq

	if err := e.repo.Commit(ctx, op, seq, entry); err != nil {
		return nil, fmt.Errorf("commit %s: %w", entry.Action, err)
	}

	e.logger.Info("step "+string(entry.Action),
		slog.String("operation", op.ID),
		slog.String("transfer", entry.TransferID),
		slog.String("event", entry.Event),
		slog.Int("loop", entry.Loop),
		slog.String("actor", entry.Actor),
		slog.Int64("seq", seq),
	)
	return op, nil
}

// validate runs the plan validator against current config and holds.
func (e *Engine) validate(ctx context.Context, op *model.Operation) (validate.Result, error) {
	cfg, err := e.config.TerminalConfig(ctx)
	if err != nil {
		return validate.Result{}, fmt.Errorf("load terminal config: %w", err)
	}
	holds, err := e.repo.ListHolds(ctx)
	if err != nil {
		return validate.Result{}, err
	}

	res := validate.Validate(op, cfg, holds)
	e.metrics.ObserveValidation(ctx, res)
	return res, nil
}
