package ledger

import "time"

// State is the derived, display-only state of a step.
type State string

const (
	// StatePending is a not-yet-complete step in a frozen (pre-rework) loop.
	StatePending State = "Pending"
	// StateActive is the unique pending step whose predecessor is complete.
	StateActive State = "Active"
	// StateBlocked is a pending step whose predecessor is not complete.
	StateBlocked State = "Blocked"
	// StateComplete is a completed step.
	StateComplete State = "Complete"
)

// PendingUndo marks an undo the host has requested but not yet confirmed.
// It is owned by the host and never stored in the ledger.
type PendingUndo struct {
	Event string
	Loop  int
}

// StepView is one record together with its derived state.
type StepView struct {
	Event       string     `json:"event"`
	Loop        int        `json:"loop"`
	Position    int        `json:"position"`
	State       State      `json:"state"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CompletedBy string     `json:"completed_by,omitempty"`
}

// Project derives the state of every record, loop by loop.
//
// When marker is non-nil the marked step and every later step of its loop are
// treated as not complete, so the UI reflects an undo before it is confirmed.
func (l *Ledger) Project(marker *PendingUndo) []StepView {
	latest := l.LatestLoop()
	var views []StepView

	for loop := 1; loop <= latest; loop++ {
		idx := l.loopIndices(loop)
		undoFrom := len(idx)
		if marker != nil && marker.Loop == loop {
			if p := l.position(idx, marker.Event); p >= 0 {
				undoFrom = p
			}
		}

		prevComplete := true
		for pos, j := range idx {
			rec := l.Records[j]
			complete := rec.Complete() && pos < undoFrom

			v := StepView{Event: rec.Event, Loop: loop, Position: pos}
			switch {
			case complete:
				v.State = StateComplete
				v.CompletedAt = rec.CompletedAt
				v.CompletedBy = rec.CompletedBy
			case loop != latest:
				v.State = StatePending
			case prevComplete:
				v.State = StateActive
			default:
				v.State = StateBlocked
			}
			views = append(views, v)
			prevComplete = complete
		}
	}
	return views
}

// StateOf returns the derived state of event in loop.
func (l *Ledger) StateOf(event string, loop int) (State, bool) {
	for _, v := range l.Project(nil) {
		if v.Event == event && v.Loop == loop {
			return v.State, true
		}
	}
	return "", false
}
