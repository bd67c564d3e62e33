package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/terminalops/internal/checklist"
	"github.com/roach88/terminalops/internal/ledger"
	"github.com/roach88/terminalops/internal/model"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestOperation creates a truck operation with one seeded transfer ledger.
func createTestOperation(id string) *model.Operation {
	cl, _ := checklist.DefaultCatalog().Transfer(checklist.ModalityTruck)
	return &model.Operation{
		ID:            id,
		Modality:      checklist.ModalityTruck,
		Status:        model.StatusActive,
		ETA:           t0,
		DurationHours: 2,
		TransferLines: []model.TransferLine{{
			InfrastructureID: "Bay 1",
			Transfers: []model.Transfer{{
				ID:            id + "-t1",
				Customer:      "Acme",
				Product:       "Diesel",
				Direction:     "Tank to Truck",
				From:          "T2",
				PlannedTonnes: 30,
				Ledger:        ledger.New(cl),
			}},
		}},
	}
}

func createTestActivity(id, operationID string, seq int64) model.ActivityEntry {
	return model.ActivityEntry{
		ID:          id,
		OperationID: operationID,
		TransferID:  operationID + "-t1",
		Action:      model.ActionComplete,
		Event:       "Arrived",
		Loop:        1,
		Actor:       "op",
		At:          t0.Add(time.Duration(seq) * time.Minute),
		Seq:         seq,
	}
}
