package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/terminalops/internal/validate"
)

// RuntimeError is a request the engine refused before touching a ledger.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// OperationID identifies the affected operation.
	OperationID string

	// Issues carries the validation result for ErrCodeGateFailed.
	Issues []validate.Issue
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNotFound indicates the operation does not exist.
	ErrCodeNotFound RuntimeErrorCode = "NOT_FOUND"

	// ErrCodeUnknownLedger indicates the transfer (or shared ledger) does not exist.
	ErrCodeUnknownLedger RuntimeErrorCode = "UNKNOWN_LEDGER"

	// ErrCodeGateFailed indicates the plan failed validation and the
	// validation gate is on.
	ErrCodeGateFailed RuntimeErrorCode = "GATE_FAILED"

	// ErrCodeInvalidOperation indicates a malformed operation was scheduled.
	ErrCodeInvalidOperation RuntimeErrorCode = "INVALID_OPERATION"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.OperationID != "" {
		return fmt.Sprintf("%s: %s (operation=%s)", e.Code, e.Message, e.OperationID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the RuntimeErrorCode of err, or "" if err is not a RuntimeError.
func CodeOf(err error) RuntimeErrorCode {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsNotFound returns true if the operation did not exist.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsGateFailed returns true if the validation gate refused the mutation.
func IsGateFailed(err error) bool {
	return CodeOf(err) == ErrCodeGateFailed
}

func newNotFoundError(id string) *RuntimeError {
	return &RuntimeError{
		Code:        ErrCodeNotFound,
		Message:     "operation not found",
		OperationID: id,
	}
}

func newGateError(id string, issues []validate.Issue) *RuntimeError {
	return &RuntimeError{
		Code:        ErrCodeGateFailed,
		Message:     fmt.Sprintf("plan has %d validation issue(s)", len(issues)),
		OperationID: id,
		Issues:      issues,
	}
}
