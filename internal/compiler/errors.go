package compiler

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// ErrNoCUEFiles is returned by LoadDir when the directory holds no .cue files.
var ErrNoCUEFiles = errors.New("no CUE files found")

// CompileError is a schema or decoding failure, with a CUE position when one
// is known.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError converts the first of possibly many CUE errors into a
// CompileError carrying its path and position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	field := "cue"
	if path := first.Path(); len(path) > 0 {
		field = joinPath(path)
	}

	ce := &CompileError{Field: field, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}

func joinPath(path []string) string {
	out := path[0]
	for _, p := range path[1:] {
		out += "." + p
	}
	return out
}
