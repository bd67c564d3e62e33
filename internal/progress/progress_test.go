package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/terminalops/internal/checklist"
	"github.com/roach88/terminalops/internal/ledger"
	"github.com/roach88/terminalops/internal/model"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func truckChecklist() checklist.Checklist {
	return checklist.Checklist{
		Steps:      []string{"Arrived", "On Bay", "Pumping Started", "Pumping Stopped", "Departed"},
		PumpStart:  "Pumping Started",
		PumpStop:   "Pumping Stopped",
		ReworkGate: "Pumping Stopped",
	}
}

func truckOp(planned, transferred float64) *model.Operation {
	return &model.Operation{
		ID:       "T-1",
		Modality: checklist.ModalityTruck,
		Status:   model.StatusActive,
		ETA:      t0,
		TransferLines: []model.TransferLine{{
			InfrastructureID: "Bay 1",
			Transfers: []model.Transfer{{
				ID:                     "t1",
				Direction:              "Tank to Truck",
				From:                   "T1",
				PlannedTonnes:          planned,
				TransferredTonnesSoFar: transferred,
				Ledger:                 ledger.New(truckChecklist()),
			}},
		}},
	}
}

func complete(t *testing.T, l *ledger.Ledger, steps ...string) {
	t.Helper()
	loop := l.LatestLoop()
	for _, s := range steps {
		require.NoError(t, l.Complete(s, loop, "op", t0))
	}
}

func ledgerOf(op *model.Operation) *ledger.Ledger {
	return op.TransferLines[0].Transfers[0].Ledger
}

func TestCalculate_BrandNewActiveIsZero(t *testing.T) {
	p := Calculate(truckOp(20, 0))

	assert.Equal(t, 5, p.TotalWeight)
	assert.Zero(t, p.CompletedWeight)
	assert.Zero(t, p.Percentage)
}

func TestCalculate_AllCompleteIsHundred(t *testing.T) {
	op := truckOp(20, 20)
	complete(t, ledgerOf(op), truckChecklist().Steps...)

	p := Calculate(op)
	assert.Equal(t, 5.0, p.CompletedWeight)
	assert.Equal(t, 5, p.StepsCompleted)
	assert.Equal(t, 100.0, p.Percentage)
}

func TestCalculate_UnseededTransferStillWeighs(t *testing.T) {
	op := truckOp(20, 20)
	complete(t, ledgerOf(op), truckChecklist().Steps...)
	op.TransferLines[0].Transfers = append(op.TransferLines[0].Transfers, model.Transfer{
		ID: "t2", Direction: "Tank to Truck", From: "T2", PlannedTonnes: 10,
	})

	p := Calculate(op)
	assert.Equal(t, 10, p.TotalWeight)
	assert.Equal(t, 5, p.StepsCompleted)
	assert.Equal(t, 50.0, p.Percentage)
}

func TestCalculate_FractionalPumpingCredit(t *testing.T) {
	op := truckOp(20, 5)
	complete(t, ledgerOf(op), "Arrived", "On Bay", "Pumping Started")

	p := Calculate(op)
	assert.InDelta(t, 2.25, p.CompletedWeight, 1e-9)
	assert.Equal(t, 3, p.StepsCompleted)
	assert.InDelta(t, 45.0, p.Percentage, 1e-9)
}

func TestCalculate_PumpStoppedRestoresUnitCredit(t *testing.T) {
	op := truckOp(20, 5)
	complete(t, ledgerOf(op), "Arrived", "On Bay", "Pumping Started", "Pumping Stopped")

	p := Calculate(op)
	assert.Equal(t, 4.0, p.CompletedWeight)
}

func TestCalculate_OverTransferIsCapped(t *testing.T) {
	op := truckOp(20, 35)
	complete(t, ledgerOf(op), "Arrived", "On Bay", "Pumping Started")

	p := Calculate(op)
	assert.Equal(t, 3.0, p.CompletedWeight)
	assert.LessOrEqual(t, p.Percentage, 100.0)
}

func TestCalculate_ZeroPlannedTonnesFullyCredited(t *testing.T) {
	op := truckOp(0, 0)
	complete(t, ledgerOf(op), "Arrived", "On Bay", "Pumping Started")

	p := Calculate(op)
	assert.Equal(t, 3.0, p.CompletedWeight)
	assert.InDelta(t, 60.0, p.Percentage, 1e-9)
}

func TestCalculate_LatestLoopOnly(t *testing.T) {
	op := truckOp(20, 20)
	l := ledgerOf(op)
	complete(t, l, "Arrived", "On Bay", "Pumping Started", "Pumping Stopped")
	_, err := l.StartReworkLoop(1)
	require.NoError(t, err)
	complete(t, l, "Arrived")

	p := Calculate(op)
	assert.Equal(t, 5, p.TotalWeight)
	assert.Equal(t, 1.0, p.CompletedWeight)
	assert.InDelta(t, 20.0, p.Percentage, 1e-9)
}

func TestCalculate_NonActiveIsBinary(t *testing.T) {
	op := truckOp(20, 10)
	complete(t, ledgerOf(op), "Arrived", "On Bay")

	op.Status = model.StatusPlanned
	assert.Zero(t, Calculate(op).Percentage)

	op.Status = model.StatusCancelled
	assert.Zero(t, Calculate(op).Percentage)

	op.Status = model.StatusCompleted
	p := Calculate(op)
	assert.Equal(t, 100.0, p.Percentage)
	assert.Equal(t, 5.0, p.CompletedWeight)
}

func TestCalculate_NoTransfersIsZero(t *testing.T) {
	op := &model.Operation{ID: "T-2", Modality: checklist.ModalityTruck, Status: model.StatusActive}

	p := Calculate(op)
	assert.Zero(t, p.TotalWeight)
	assert.Zero(t, p.Percentage)
}

func TestCalculate_VesselIncludesSharedLedger(t *testing.T) {
	cat := checklist.DefaultCatalog()
	op := &model.Operation{
		ID:       "V-1",
		Modality: checklist.ModalityVessel,
		Status:   model.StatusActive,
		TransferLines: []model.TransferLine{{
			InfrastructureID: "Wharf 1",
			Transfers:        []model.Transfer{{ID: "a", PlannedTonnes: 1000}, {ID: "b", PlannedTonnes: 500}},
		}},
	}
	_, err := op.EnsureLedgers(cat)
	require.NoError(t, err)
	complete(t, op.SharedLedger, "NOR Tendered", "All Fast")

	p := Calculate(op)
	assert.Equal(t, 6+5+5, p.TotalWeight)
	assert.Equal(t, 2.0, p.CompletedWeight)
	assert.InDelta(t, 12.5, p.Percentage, 1e-9)
}

// TestCalculate_Monotonic walks a transfer through its checklist and pumping
// and checks the percentage never decreases.
func TestCalculate_Monotonic(t *testing.T) {
	op := truckOp(40, 0)
	l := ledgerOf(op)
	last := -1.0

	check := func() {
		pct := Calculate(op).Percentage
		assert.GreaterOrEqual(t, pct, last)
		assert.LessOrEqual(t, pct, 100.0)
		last = pct
	}

	check()
	for _, step := range truckChecklist().Steps {
		complete(t, l, step)
		check()
		if step == "Pumping Started" {
			for tonnes := 0.0; tonnes <= 50; tonnes += 5 {
				op.TransferLines[0].Transfers[0].TransferredTonnesSoFar = tonnes
				check()
			}
		}
	}
	assert.Equal(t, 100.0, last)
}

func TestPumpFraction(t *testing.T) {
	assert.Equal(t, 1.0, PumpFraction(0, 0))
	assert.Equal(t, 0.5, PumpFraction(10, 20))
	assert.Equal(t, 1.0, PumpFraction(30, 20))
	assert.Equal(t, 0.0, PumpFraction(-3, 20))
}
