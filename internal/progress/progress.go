// Package progress turns step ledgers into a completion figure.
//
// Each step of the latest loop of every ledger weighs 1. A transfer whose
// pump-start step is complete while its pump-stop step is not earns
// transferred/planned (capped at 1) for the pump-start step instead of 1, so
// the figure follows the physical transfer rather than jumping when pumping
// begins.
package progress

import (
	"math"

	"github.com/roach88/terminalops/internal/ledger"
	"github.com/roach88/terminalops/internal/model"
)

// Progress is the completion figure of one operation.
type Progress struct {
	// CompletedWeight is the credited weight, possibly fractional.
	CompletedWeight float64 `json:"completed_weight"`

	// TotalWeight is the number of steps across all latest loops.
	TotalWeight int `json:"total_weight"`

	// StepsCompleted counts Complete steps without fractional credit.
	StepsCompleted int `json:"steps_completed"`

	// Percentage is in [0, 100].
	Percentage float64 `json:"percentage"`
}

// Calculate returns the progress of op.
//
// Only Active operations are measured step by step. Completed operations
// report 100%; Planned and Cancelled ones report 0%.
func Calculate(op *model.Operation) Progress {
	p := Progress{TotalWeight: totalWeight(op)}

	switch op.Status {
	case model.StatusCompleted:
		p.CompletedWeight = float64(p.TotalWeight)
		p.StepsCompleted = p.TotalWeight
		p.Percentage = 100
		return p
	case model.StatusActive:
	default:
		return p
	}

	if op.SharedLedger != nil {
		n := op.SharedLedger.CompletedCount(op.SharedLedger.LatestLoop())
		p.StepsCompleted += n
		p.CompletedWeight += float64(n)
	}
	for i := range op.TransferLines {
		for j := range op.TransferLines[i].Transfers {
			t := &op.TransferLines[i].Transfers[j]
			if t.Ledger == nil {
				continue
			}
			n := t.Ledger.CompletedCount(t.Ledger.LatestLoop())
			p.StepsCompleted += n
			p.CompletedWeight += TransferCredit(t)
		}
	}

	if p.TotalWeight > 0 {
		p.Percentage = math.Min(100, p.CompletedWeight/float64(p.TotalWeight)*100)
	}
	return p
}

// TransferCredit returns the weight credited to one transfer's latest loop.
func TransferCredit(t *model.Transfer) float64 {
	l := t.Ledger
	if l == nil {
		return 0
	}
	loop := l.LatestLoop()
	credit := float64(l.CompletedCount(loop))
	if Pumping(l) {
		credit += PumpFraction(t.TransferredTonnesSoFar, t.PlannedTonnes) - 1
	}
	return credit
}

// Pumping reports whether the latest loop is between pump start and stop.
func Pumping(l *ledger.Ledger) bool {
	cl := l.Checklist
	if cl.PumpStart == "" || cl.PumpStop == "" {
		return false
	}
	loop := l.LatestLoop()
	return l.IsComplete(cl.PumpStart, loop) && !l.IsComplete(cl.PumpStop, loop)
}

// PumpFraction is min(transferred/planned, 1), clamped at 0. A zero plan is
// fully credited once pumping has started.
func PumpFraction(transferred, planned float64) float64 {
	if planned <= 0 {
		return 1
	}
	f := transferred / planned
	switch {
	case f > 1 || math.IsNaN(f):
		return 1
	case f < 0:
		return 0
	}
	return f
}

// totalWeight sums the checklist lengths of every ledger. Transfers of one
// operation share a checklist, so a transfer not yet seeded weighs as much
// as its seeded siblings. With no seeded transfer at all it weighs nothing.
func totalWeight(op *model.Operation) int {
	total, unseeded, per := 0, 0, 0
	if op.SharedLedger != nil {
		total += op.SharedLedger.Checklist.Len()
	}
	for i := range op.TransferLines {
		for j := range op.TransferLines[i].Transfers {
			l := op.TransferLines[i].Transfers[j].Ledger
			if l == nil {
				unseeded++
				continue
			}
			per = l.Checklist.Len()
			total += per
		}
	}
	return total + unseeded*per
}
