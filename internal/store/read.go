package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/terminalops/internal/model"
)

// LoadOperation returns the stored snapshot of operation id.
// Returns an error wrapping ErrNotFound if it does not exist.
func (s *Store) LoadOperation(ctx context.Context, id string) (*model.Operation, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM operations WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("operation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load operation: %w", err)
	}

	op, err := unmarshalOperation(body)
	if err != nil {
		return nil, err
	}
	return &op, nil
}

// ListOperations returns every stored operation.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ListOperations(ctx context.Context) ([]model.Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM operations
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	ops := []model.Operation{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		op, err := unmarshalOperation(body)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}

// ListHolds returns every stored hold, whatever its status.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ListHolds(ctx context.Context) ([]model.Hold, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, resource, tank, start_time, end_time, status, work_order_status, reason
		FROM holds
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query holds: %w", err)
	}
	defer rows.Close()

	holds := []model.Hold{}
	for rows.Next() {
		var (
			h          model.Hold
			start, end string
			status     string
		)
		if err := rows.Scan(&h.ID, &h.Resource, &h.Tank, &start, &end, &status, &h.WorkOrderStatus, &h.Reason); err != nil {
			return nil, fmt.Errorf("scan hold: %w", err)
		}
		if h.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		if h.End, err = parseTime(end); err != nil {
			return nil, err
		}
		h.Status = model.HoldStatus(status)
		holds = append(holds, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holds: %w", err)
	}
	return holds, nil
}

// ListActivity returns the activity log of one operation in seq order.
// Returns an empty slice (not nil) if none exist.
func (s *Store) ListActivity(ctx context.Context, operationID string) ([]model.ActivityEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, operation_id, transfer_id, action, event, loop, actor, reason, at, seq
		FROM activity
		WHERE operation_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, operationID)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	entries := []model.ActivityEntry{}
	for rows.Next() {
		var (
			e      model.ActivityEntry
			action string
			at     string
		)
		if err := rows.Scan(&e.ID, &e.OperationID, &e.TransferID, &action, &e.Event, &e.Loop, &e.Actor, &e.Reason, &at, &e.Seq); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if e.At, err = parseTime(at); err != nil {
			return nil, err
		}
		e.Action = model.Action(action)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return entries, nil
}

// MaxSeq returns the highest seq stored in any table, or 0 for an empty
// store. Pass it to engine.NewClockAt when reopening a database.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(
			COALESCE((SELECT MAX(seq) FROM operations), 0),
			COALESCE((SELECT MAX(seq) FROM holds), 0),
			COALESCE((SELECT MAX(seq) FROM activity), 0)
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq, nil
}
