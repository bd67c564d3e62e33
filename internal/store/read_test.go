package store

import (
	"context"
	"testing"
	"time"

	"github.com/roach88/terminalops/internal/model"
)

func TestListOperations_Empty(t *testing.T) {
	s := createTestStore(t)

	ops, err := s.ListOperations(context.Background())
	if err != nil {
		t.Fatalf("ListOperations() failed: %v", err)
	}
	if ops == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestListOperations_DeterministicOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Same seq: ordered by id. Lower seq first regardless of insert order.
	saves := []struct {
		id  string
		seq int64
	}{
		{"OP-b", 5},
		{"OP-a", 5},
		{"OP-z", 1},
	}
	for _, sv := range saves {
		if err := s.SaveOperation(ctx, createTestOperation(sv.id), sv.seq); err != nil {
			t.Fatalf("SaveOperation(%s) failed: %v", sv.id, err)
		}
	}

	ops, err := s.ListOperations(ctx)
	if err != nil {
		t.Fatalf("ListOperations() failed: %v", err)
	}

	want := []string{"OP-z", "OP-a", "OP-b"}
	if len(ops) != len(want) {
		t.Fatalf("expected %d operations, got %d", len(want), len(ops))
	}
	for i, id := range want {
		if ops[i].ID != id {
			t.Errorf("ops[%d] = %s, want %s", i, ops[i].ID, id)
		}
	}
}

func TestListActivity_OrderedBySeqAndScopedToOperation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"OP-1", "OP-2"} {
		if err := s.SaveOperation(ctx, createTestOperation(id), 1); err != nil {
			t.Fatalf("SaveOperation(%s) failed: %v", id, err)
		}
	}

	entries := []model.ActivityEntry{
		createTestActivity("c", "OP-1", 3),
		createTestActivity("b", "OP-1", 2),
		createTestActivity("a", "OP-1", 3),
		createTestActivity("x", "OP-2", 1),
	}
	for _, e := range entries {
		if err := s.Commit(ctx, createTestOperation(e.OperationID), e.Seq, e); err != nil {
			t.Fatalf("Commit(%s) failed: %v", e.ID, err)
		}
	}

	got, err := s.ListActivity(ctx, "OP-1")
	if err != nil {
		t.Fatalf("ListActivity() failed: %v", err)
	}

	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("entries[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestListHolds_PreservesTimes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.FixedZone("AEST", 10*3600))
	h := model.Hold{ID: "H1", Resource: "Wharf 1", Start: start, End: start.Add(time.Hour), Status: model.HoldPending}
	if err := s.SaveHold(ctx, h, 1); err != nil {
		t.Fatalf("SaveHold() failed: %v", err)
	}

	holds, err := s.ListHolds(ctx)
	if err != nil {
		t.Fatalf("ListHolds() failed: %v", err)
	}
	if !holds[0].Start.Equal(start) {
		t.Errorf("start = %v, want instant %v", holds[0].Start, start)
	}
	if holds[0].Start.Location() != time.UTC {
		t.Errorf("expected times normalized to UTC, got %v", holds[0].Start.Location())
	}
}

func TestMaxSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.MaxSeq(ctx)
	if err != nil {
		t.Fatalf("MaxSeq() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("empty store: MaxSeq() = %d, want 0", seq)
	}

	if err := s.Commit(ctx, createTestOperation("OP-1"), 3, createTestActivity("a", "OP-1", 7)); err != nil {
		t.Fatalf("Commit() failed: %v", err)
	}
	h := model.Hold{ID: "H1", Resource: "Bay 1", Start: t0, End: t0.Add(time.Hour), Status: model.HoldApproved}
	if err := s.SaveHold(ctx, h, 5); err != nil {
		t.Fatalf("SaveHold() failed: %v", err)
	}

	seq, err = s.MaxSeq(ctx)
	if err != nil {
		t.Fatalf("MaxSeq() failed: %v", err)
	}
	if seq != 7 {
		t.Errorf("MaxSeq() = %d, want 7", seq)
	}
}
