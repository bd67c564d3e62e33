// Package conflict finds enforced holds that overlap an operation window.
//
// Two half-open intervals [a,b) and [c,d) overlap iff a < d && b > c.
// Back-to-back windows (b == c) never conflict.
//
// The same primitive answers both directions of the question: which holds
// block this operation (Conflicts), and which scheduled operations a new hold
// would invalidate (AffectedOperations).
package conflict

import (
	"slices"
	"time"

	"github.com/roach88/terminalops/internal/model"
)

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Conflicts returns the enforced holds on resource whose window overlaps
// [start,end). A hold scoped to a tank only conflicts when tanks contains it;
// a resource-wide hold conflicts regardless of tanks.
//
// Results keep the order of holds.
func Conflicts(resource string, tanks []string, start, end time.Time, holds []model.Hold) []model.Hold {
	var out []model.Hold
	for _, h := range holds {
		if matches(&h, resource, tanks, start, end) {
			out = append(out, h)
		}
	}
	return out
}

// AffectedOperations returns the Planned or Active operations the hold would
// block. An operation is affected when one of its transfer lines sits on the
// hold's resource, references the hold's tank (if any), and its window
// overlaps the hold.
//
// The hold's own approval status is not consulted: the question is asked
// while the hold is still being created.
func AffectedOperations(hold model.Hold, ops []model.Operation) []model.Operation {
	var out []model.Operation
	for i := range ops {
		op := &ops[i]
		if op.Status != model.StatusPlanned && op.Status != model.StatusActive {
			continue
		}
		start, end := op.Window()
		if !Overlaps(start, end, hold.Start, hold.End) {
			continue
		}
		for j := range op.TransferLines {
			line := &op.TransferLines[j]
			if line.InfrastructureID != hold.Resource {
				continue
			}
			if hold.Tank == "" || slices.Contains(line.Tanks(), hold.Tank) {
				out = append(out, *op)
				break
			}
		}
	}
	return out
}

func matches(h *model.Hold, resource string, tanks []string, start, end time.Time) bool {
	if !h.Enforced() || h.Resource != resource {
		return false
	}
	if !Overlaps(start, end, h.Start, h.End) {
		return false
	}
	return h.Tank == "" || slices.Contains(tanks, h.Tank)
}
