package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/terminalops/internal/model"
)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveOperation inserts or replaces an operation snapshot.
func (s *Store) SaveOperation(ctx context.Context, op *model.Operation, seq int64) error {
	return saveOperation(ctx, s.db, op, seq)
}

// SaveHold inserts or replaces a hold.
func (s *Store) SaveHold(ctx context.Context, h model.Hold, seq int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holds
		(id, resource, tank, start_time, end_time, status, work_order_status, reason, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			resource = excluded.resource,
			tank = excluded.tank,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			status = excluded.status,
			work_order_status = excluded.work_order_status,
			reason = excluded.reason,
			seq = excluded.seq
	`,
		h.ID,
		h.Resource,
		h.Tank,
		formatTime(h.Start),
		formatTime(h.End),
		string(h.Status),
		h.WorkOrderStatus,
		h.Reason,
		seq,
	)
	if err != nil {
		return fmt.Errorf("save hold: %w", err)
	}
	return nil
}

// Commit saves op and appends entries in one transaction, so the stored
// ledger and the activity log never disagree. Entries whose ID is already
// recorded are skipped.
func (s *Store) Commit(ctx context.Context, op *model.Operation, seq int64, entries ...model.ActivityEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit: begin: %w", err)
	}
	defer tx.Rollback()

	if err := saveOperation(ctx, tx, op, seq); err != nil {
		return err
	}
	for _, e := range entries {
		if err := appendActivity(ctx, tx, e); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func saveOperation(ctx context.Context, db execer, op *model.Operation, seq int64) error {
	body, err := marshalOperation(op)
	if err != nil {
		return fmt.Errorf("save operation: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO operations (id, modality, status, eta, body, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			modality = excluded.modality,
			status = excluded.status,
			eta = excluded.eta,
			body = excluded.body,
			seq = excluded.seq
	`,
		op.ID,
		string(op.Modality),
		string(op.Status),
		formatTime(op.ETA),
		body,
		seq,
	)
	if err != nil {
		return fmt.Errorf("save operation: %w", err)
	}
	return nil
}

// appendActivity ignores duplicate IDs. The referenced operation must exist.
func appendActivity(ctx context.Context, db execer, e model.ActivityEntry) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO activity
		(id, operation_id, transfer_id, action, event, loop, actor, reason, at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.OperationID,
		e.TransferID,
		string(e.Action),
		e.Event,
		e.Loop,
		e.Actor,
		e.Reason,
		formatTime(e.At),
		e.Seq,
	)
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}
