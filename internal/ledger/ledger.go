// Package ledger implements the Statement of Facts step ledger.
//
// A Ledger is an append-only sequence of StepRecords grouped by loop. Loop 1 is
// the original pass through the checklist; every rework appends a complete
// fresh copy of the checklist as the next loop. Records are never deleted.
//
// INVARIANTS:
//   - Within a loop, records appear in checklist order.
//   - A record at position i is Complete only if position i-1 in the same loop
//     is Complete.
//   - Only the latest loop accepts completions. Earlier loops are frozen.
//
// "Active" and "Blocked" are never stored. They are derived by Project and
// ActiveStep from the stored Pending/Complete status.
//
// The ledger does no locking. Callers own one *Ledger per in-flight edit and
// serialize mutations themselves.
package ledger

import (
	"fmt"
	"slices"
	"time"

	"github.com/roach88/terminalops/internal/checklist"
)

// Status is the stored status of a step record.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusComplete Status = "Complete"
)

// StepRecord is one step of one loop.
type StepRecord struct {
	Event       string     `json:"event" yaml:"event"`
	Loop        int        `json:"loop" yaml:"loop"`
	Status      Status     `json:"status" yaml:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	CompletedBy string     `json:"completed_by,omitempty" yaml:"completed_by,omitempty"`
}

// Complete reports whether the record is Complete.
func (r StepRecord) Complete() bool {
	return r.Status == StatusComplete
}

// Ledger is the step log of one transfer or of one operation's shared steps.
type Ledger struct {
	Checklist checklist.Checklist `json:"checklist" yaml:"checklist"`
	Records   []StepRecord        `json:"records" yaml:"records"`
}

// New returns a ledger seeded with loop 1, every step Pending.
func New(cl checklist.Checklist) *Ledger {
	l := &Ledger{Checklist: cl.Clone()}
	l.appendLoop(1)
	return l
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	out := &Ledger{
		Checklist: l.Checklist.Clone(),
		Records:   make([]StepRecord, len(l.Records)),
	}
	for i, r := range l.Records {
		if r.CompletedAt != nil {
			at := *r.CompletedAt
			r.CompletedAt = &at
		}
		out.Records[i] = r
	}
	return out
}

// LatestLoop returns the highest loop number present, or 0 for an empty ledger.
// This is the single definition of "the active loop" used across the engine.
func (l *Ledger) LatestLoop() int {
	latest := 0
	for _, r := range l.Records {
		if r.Loop > latest {
			latest = r.Loop
		}
	}
	return latest
}

// Loop returns a copy of the records of loop n in checklist order.
func (l *Ledger) Loop(n int) []StepRecord {
	idx := l.loopIndices(n)
	out := make([]StepRecord, len(idx))
	for i, j := range idx {
		out[i] = l.Records[j]
	}
	return out
}

// Record returns the record for event in loop n.
func (l *Ledger) Record(event string, loop int) (StepRecord, bool) {
	for _, r := range l.Records {
		if r.Loop == loop && r.Event == event {
			return r, true
		}
	}
	return StepRecord{}, false
}

// CompletedCount returns the number of Complete records in loop n.
func (l *Ledger) CompletedCount(n int) int {
	count := 0
	for _, r := range l.Records {
		if r.Loop == n && r.Complete() {
			count++
		}
	}
	return count
}

// IsComplete reports whether event is Complete in loop n.
func (l *Ledger) IsComplete(event string, loop int) bool {
	r, ok := l.Record(event, loop)
	return ok && r.Complete()
}

// Done reports whether every step of the latest loop is Complete.
func (l *Ledger) Done() bool {
	latest := l.LatestLoop()
	if latest == 0 {
		return false
	}
	idx := l.loopIndices(latest)
	return len(idx) > 0 && l.CompletedCount(latest) == len(idx)
}

// ActiveStep returns the step that may be completed next in the latest loop.
//
// The second result is false when every step is Complete, when the ledger is
// empty, or when the first Pending step is preceded by a Pending step (which
// the ordering invariant rules out).
func (l *Ledger) ActiveStep() (string, bool) {
	idx := l.loopIndices(l.LatestLoop())
	for pos, j := range idx {
		if l.Records[j].Complete() {
			continue
		}
		if pos == 0 || l.Records[idx[pos-1]].Complete() {
			return l.Records[j].Event, true
		}
		return "", false
	}
	return "", false
}

// Complete marks event in loop as Complete.
//
// Fails with ErrCodeOutOfOrder unless the step is currently Active, and with
// ErrCodeUnknownStep if the loop has no such step.
func (l *Ledger) Complete(event string, loop int, actor string, at time.Time) error {
	idx := l.loopIndices(loop)
	pos := l.position(idx, event)
	if pos < 0 {
		return newSequenceError(ErrCodeUnknownStep, event, loop, "step not found in loop")
	}

	if loop != l.LatestLoop() {
		return newSequenceError(ErrCodeOutOfOrder, event, loop, "loop %d is frozen by rework loop %d", loop, l.LatestLoop())
	}
	rec := &l.Records[idx[pos]]
	if rec.Complete() {
		return newSequenceError(ErrCodeOutOfOrder, event, loop, "step is already complete")
	}
	if pos > 0 && !l.Records[idx[pos-1]].Complete() {
		return newSequenceError(ErrCodeOutOfOrder, event, loop, "predecessor %q is not complete", l.Records[idx[pos-1]].Event)
	}

	at = at.UTC()
	rec.Status = StatusComplete
	rec.CompletedAt = &at
	rec.CompletedBy = actor
	return nil
}

// Undo reverts event in loop and every later step of the same loop to
// Pending, regardless of their individual status. It returns the names of the
// steps that were Complete before the reset, in checklist order.
//
// Fails with ErrCodeNotComplete if the step is not Complete and with
// ErrCodeLoopFrozen if the loop has been superseded by a rework loop.
func (l *Ledger) Undo(event string, loop int) ([]string, error) {
	idx := l.loopIndices(loop)
	pos := l.position(idx, event)
	if pos < 0 {
		return nil, newSequenceError(ErrCodeUnknownStep, event, loop, "step not found in loop")
	}
	if !l.Records[idx[pos]].Complete() {
		return nil, newSequenceError(ErrCodeNotComplete, event, loop, "only a complete step can be undone")
	}
	if loop != l.LatestLoop() {
		return nil, newSequenceError(ErrCodeLoopFrozen, event, loop, "loop %d is frozen by rework loop %d", loop, l.LatestLoop())
	}

	var reverted []string
	for _, j := range idx[pos:] {
		rec := &l.Records[j]
		if rec.Complete() {
			reverted = append(reverted, rec.Event)
		}
		rec.Status = StatusPending
		rec.CompletedAt = nil
		rec.CompletedBy = ""
	}
	return reverted, nil
}

// StartReworkLoop appends loop baseLoop+1 with every checklist step Pending
// and returns its number.
//
// baseLoop must be the latest loop and its rework gate must be Complete. The
// gate is Checklist.ReworkGate, or the last step when no gate is configured.
func (l *Ledger) StartReworkLoop(baseLoop int) (int, error) {
	latest := l.LatestLoop()
	switch {
	case baseLoop < 1 || baseLoop > latest:
		return 0, newSequenceError(ErrCodeUnknownLoop, "", baseLoop, "no such loop (latest is %d)", latest)
	case baseLoop < latest:
		return 0, newSequenceError(ErrCodeLoopAlreadyExists, "", baseLoop, "loop %d already exists", baseLoop+1)
	}

	gate := l.reworkGate()
	if !l.IsComplete(gate, baseLoop) {
		return 0, newSequenceError(ErrCodePredecessorIncomplete, gate, baseLoop, "rework requires %q to be complete", gate)
	}

	next := baseLoop + 1
	l.appendLoop(next)
	return next, nil
}

// CheckInvariant verifies the ordering invariant on every loop.
func (l *Ledger) CheckInvariant() error {
	loops := make(map[int]bool)
	for _, r := range l.Records {
		loops[r.Loop] = true
	}
	for loop := range loops {
		if loop < 1 {
			return fmt.Errorf("invalid loop number %d", loop)
		}
		idx := l.loopIndices(loop)
		for pos, j := range idx {
			rec := l.Records[j]
			if want := l.Checklist.Position(rec.Event); want != pos {
				return fmt.Errorf("loop %d: step %q at position %d, checklist position %d", loop, rec.Event, pos, want)
			}
			if pos > 0 && rec.Complete() && !l.Records[idx[pos-1]].Complete() {
				return fmt.Errorf("loop %d: step %q complete while %q is pending", loop, rec.Event, l.Records[idx[pos-1]].Event)
			}
		}
	}
	return nil
}

func (l *Ledger) reworkGate() string {
	if l.Checklist.ReworkGate != "" {
		return l.Checklist.ReworkGate
	}
	if n := l.Checklist.Len(); n > 0 {
		return l.Checklist.Steps[n-1]
	}
	return ""
}

func (l *Ledger) appendLoop(n int) {
	for _, step := range l.Checklist.Steps {
		l.Records = append(l.Records, StepRecord{Event: step, Loop: n, Status: StatusPending})
	}
}

// loopIndices returns the indices into Records of loop n, in stored order.
func (l *Ledger) loopIndices(n int) []int {
	var idx []int
	for i, r := range l.Records {
		if r.Loop == n {
			idx = append(idx, i)
		}
	}
	return idx
}

func (l *Ledger) position(idx []int, event string) int {
	return slices.IndexFunc(idx, func(j int) bool { return l.Records[j].Event == event })
}
