package store

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/roach88/terminalops/internal/model"
)

func TestSaveOperation_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	op := createTestOperation("OP-1")
	if err := op.TransferLines[0].Transfers[0].Ledger.Complete("Arrived", 1, "alice", t0); err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}

	if err := s.SaveOperation(ctx, op, 1); err != nil {
		t.Fatalf("SaveOperation() failed: %v", err)
	}

	got, err := s.LoadOperation(ctx, "OP-1")
	if err != nil {
		t.Fatalf("LoadOperation() failed: %v", err)
	}
	if !reflect.DeepEqual(op, got) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, op)
	}
}

func TestSaveOperation_Upserts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	op := createTestOperation("OP-1")
	if err := s.SaveOperation(ctx, op, 1); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	op.Status = model.StatusCompleted
	if err := s.SaveOperation(ctx, op, 2); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	ops, err := s.ListOperations(ctx)
	if err != nil {
		t.Fatalf("ListOperations() failed: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("expected 1 operation, got %d", len(ops))
	}
	if ops[0].Status != model.StatusCompleted {
		t.Errorf("status = %s, want Completed", ops[0].Status)
	}
}

func TestLoadOperation_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.LoadOperation(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCommit_DuplicateActivityIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	op := createTestOperation("OP-1")
	e := createTestActivity("a1", "OP-1", 2)
	for i := 0; i < 2; i++ {
		if err := s.Commit(ctx, op, 2, e); err != nil {
			t.Fatalf("Commit() #%d failed: %v", i, err)
		}
	}

	entries, err := s.ListActivity(ctx, "OP-1")
	if err != nil {
		t.Fatalf("ListActivity() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after duplicate append, got %d", len(entries))
	}
	if !reflect.DeepEqual(e, entries[0]) {
		t.Errorf("entry mismatch:\n got %+v\nwant %+v", entries[0], e)
	}
}

func TestCommit_ActivityRequiresOperation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Commit(ctx, createTestOperation("OP-1"), 1, createTestActivity("a1", "ghost", 1))
	if err == nil {
		t.Fatal("expected foreign key violation for unknown operation")
	}
	if _, err := s.LoadOperation(ctx, "OP-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("operation should roll back with the failed entry, got %v", err)
	}
}

func TestCommit_RejectsUnknownAction(t *testing.T) {
	s := createTestStore(t)

	e := createTestActivity("a1", "OP-1", 2)
	e.Action = "delete"
	if err := s.Commit(context.Background(), createTestOperation("OP-1"), 2, e); err == nil {
		t.Fatal("expected CHECK constraint failure")
	}
}

func TestCommit_Atomic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	op := createTestOperation("OP-1")
	if err := s.Commit(ctx, op, 1, createTestActivity("a1", "OP-1", 1)); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}

	// Second entry violates the CHECK constraint, so the status change must
	// not land either.
	op.Status = model.StatusCompleted
	bad := createTestActivity("a2", "OP-1", 2)
	bad.Action = "bogus"
	if err := s.Commit(ctx, op, 2, createTestActivity("a3", "OP-1", 2), bad); err == nil {
		t.Fatal("expected Commit() to fail")
	}

	got, err := s.LoadOperation(ctx, "OP-1")
	if err != nil {
		t.Fatalf("LoadOperation() failed: %v", err)
	}
	if got.Status != model.StatusActive {
		t.Errorf("status = %s, rolled back commit leaked", got.Status)
	}

	entries, err := s.ListActivity(ctx, "OP-1")
	if err != nil {
		t.Fatalf("ListActivity() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 activity entry, got %d", len(entries))
	}
}

func TestSaveHold_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	h := model.Hold{
		ID:       "H1",
		Resource: "Bay 1",
		Tank:     "T2",
		Start:    t0,
		End:      t0.Add(2 * time.Hour),
		Status:   model.HoldApproved,
		Reason:   "Valve replacement",
	}
	if err := s.SaveHold(ctx, h, 1); err != nil {
		t.Fatalf("SaveHold() failed: %v", err)
	}

	h.WorkOrderStatus = model.WorkOrderClosed
	if err := s.SaveHold(ctx, h, 2); err != nil {
		t.Fatalf("SaveHold() update failed: %v", err)
	}

	holds, err := s.ListHolds(ctx)
	if err != nil {
		t.Fatalf("ListHolds() failed: %v", err)
	}
	if len(holds) != 1 {
		t.Fatalf("expected 1 hold, got %d", len(holds))
	}
	if !reflect.DeepEqual(h, holds[0]) {
		t.Errorf("hold mismatch:\n got %+v\nwant %+v", holds[0], h)
	}
}
