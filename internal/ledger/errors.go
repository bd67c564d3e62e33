package ledger

import (
	"errors"
	"fmt"
)

// SequenceError is returned when a ledger mutation would violate the
// checklist ordering rules. The ledger is left untouched.
//
// Sequence errors are defects in the caller: a host that only enables the
// control for the Active step never sees one.
type SequenceError struct {
	// Code identifies the violated rule.
	Code SequenceErrorCode

	// Event is the step the caller targeted (empty for loop operations).
	Event string

	// Loop is the loop the caller targeted.
	Loop int

	// Message is a human-readable description.
	Message string
}

// SequenceErrorCode categorizes sequence errors.
type SequenceErrorCode string

const (
	// ErrCodeOutOfOrder indicates a completion of a step that is not Active.
	ErrCodeOutOfOrder SequenceErrorCode = "OUT_OF_ORDER"

	// ErrCodeNotComplete indicates an undo of a step that is not Complete.
	ErrCodeNotComplete SequenceErrorCode = "NOT_COMPLETE"

	// ErrCodeLoopAlreadyExists indicates the next loop has already been started.
	ErrCodeLoopAlreadyExists SequenceErrorCode = "LOOP_ALREADY_EXISTS"

	// ErrCodePredecessorIncomplete indicates the loop's rework gate is not Complete.
	ErrCodePredecessorIncomplete SequenceErrorCode = "PREDECESSOR_INCOMPLETE"

	// ErrCodeUnknownStep indicates the event is not part of the targeted loop.
	ErrCodeUnknownStep SequenceErrorCode = "UNKNOWN_STEP"

	// ErrCodeUnknownLoop indicates the targeted loop does not exist.
	ErrCodeUnknownLoop SequenceErrorCode = "UNKNOWN_LOOP"

	// ErrCodeLoopFrozen indicates an undo inside a loop superseded by rework.
	ErrCodeLoopFrozen SequenceErrorCode = "LOOP_FROZEN"
)

// Error implements the error interface.
func (e *SequenceError) Error() string {
	if e.Event != "" {
		return fmt.Sprintf("%s: %s (event=%q, loop=%d)", e.Code, e.Message, e.Event, e.Loop)
	}
	return fmt.Sprintf("%s: %s (loop=%d)", e.Code, e.Message, e.Loop)
}

// CodeOf returns the sequence error code carried by err, or "" if err is not
// (and does not wrap) a SequenceError.
func CodeOf(err error) SequenceErrorCode {
	var se *SequenceError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsOutOfOrder returns true if err is an out-of-order completion.
func IsOutOfOrder(err error) bool {
	return CodeOf(err) == ErrCodeOutOfOrder
}

// IsNotComplete returns true if err is an undo of a non-complete step.
func IsNotComplete(err error) bool {
	return CodeOf(err) == ErrCodeNotComplete
}

// IsLoopAlreadyExists returns true if err rejects a duplicate rework loop.
func IsLoopAlreadyExists(err error) bool {
	return CodeOf(err) == ErrCodeLoopAlreadyExists
}

// IsPredecessorIncomplete returns true if err rejects a premature rework loop.
func IsPredecessorIncomplete(err error) bool {
	return CodeOf(err) == ErrCodePredecessorIncomplete
}

func newSequenceError(code SequenceErrorCode, event string, loop int, format string, args ...any) *SequenceError {
	return &SequenceError{
		Code:    code,
		Event:   event,
		Loop:    loop,
		Message: fmt.Sprintf(format, args...),
	}
}
