package progress

import (
	"cmp"
	"slices"

	"github.com/roach88/terminalops/internal/model"
)

// Badge labels shown on scheduling boards.
const (
	BadgePlanned    = "Planned"
	BadgeNotStarted = "Not started"
	BadgeInProgress = "In progress"
	BadgePumping    = "Pumping"
	BadgeComplete   = "Complete"
	BadgeCancelled  = "Cancelled"
)

// Badge derives the status badge of op.
func Badge(op *model.Operation) string {
	switch op.Status {
	case model.StatusPlanned:
		return BadgePlanned
	case model.StatusCompleted:
		return BadgeComplete
	case model.StatusCancelled:
		return BadgeCancelled
	}

	for i := range op.TransferLines {
		for j := range op.TransferLines[i].Transfers {
			if l := op.TransferLines[i].Transfers[j].Ledger; l != nil && Pumping(l) {
				return BadgePumping
			}
		}
	}

	p := Calculate(op)
	switch {
	case p.StepsCompleted == 0:
		return BadgeNotStarted
	case p.TotalWeight > 0 && p.StepsCompleted == p.TotalWeight:
		return BadgeComplete
	}
	return BadgeInProgress
}

// Entry pairs an operation with its derived progress and badge.
type Entry struct {
	Operation model.Operation `json:"operation"`
	Progress  Progress        `json:"progress"`
	Badge     string          `json:"badge"`
}

var statusRank = map[model.OperationStatus]int{
	model.StatusActive:    0,
	model.StatusPlanned:   1,
	model.StatusCompleted: 2,
	model.StatusCancelled: 3,
}

// SortForSchedule returns ops in board order: Active, Planned, Completed,
// Cancelled; then by ETA; then furthest along first; then by ID.
func SortForSchedule(ops []model.Operation) []Entry {
	entries := make([]Entry, len(ops))
	for i := range ops {
		entries[i] = Entry{
			Operation: ops[i],
			Progress:  Calculate(&ops[i]),
			Badge:     Badge(&ops[i]),
		}
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(rank(a.Operation.Status), rank(b.Operation.Status)); c != 0 {
			return c
		}
		if c := a.Operation.ETA.Compare(b.Operation.ETA); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Progress.Percentage, a.Progress.Percentage); c != 0 {
			return c
		}
		return cmp.Compare(a.Operation.ID, b.Operation.ID)
	})
	return entries
}

func rank(s model.OperationStatus) int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return len(statusRank)
}
