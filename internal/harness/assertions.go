package harness

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/terminalops/internal/engine"
	"github.com/roach88/terminalops/internal/ledger"
)

const percentageTolerance = 1e-6

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Subject  string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s (%s)\n", e.Type, e.Subject)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

func subject(a Assertion) string {
	parts := []string{a.Operation}
	if a.Transfer != "" {
		parts = append(parts, a.Transfer)
	}
	if a.Event != "" {
		parts = append(parts, a.Event)
	}
	if a.Loop != 0 {
		parts = append(parts, fmt.Sprintf("loop %d", a.Loop))
	}
	return strings.Join(parts, " / ")
}

func fail(a Assertion, expected, actual string) error {
	return &AssertionError{Type: a.Type, Subject: subject(a), Expected: expected, Actual: actual}
}

// assertActiveStep checks the Active step of the latest loop.
func assertActiveStep(ctx context.Context, eng *engine.Engine, a Assertion) error {
	views, err := eng.Steps(ctx, a.Operation, a.Transfer, nil)
	if err != nil {
		return fail(a, "readable ledger", err.Error())
	}
	active := ""
	for _, v := range views {
		if v.State == ledger.StateActive {
			active = v.Event
			break
		}
	}
	if active != a.Event {
		return fail(a, orNone(a.Event), orNone(active))
	}
	return nil
}

func orNone(event string) string {
	if event == "" {
		return "no active step"
	}
	return fmt.Sprintf("active step %q", event)
}

// assertStepState checks the derived state of one step. Loop 0 means the
// latest loop.
func assertStepState(ctx context.Context, eng *engine.Engine, a Assertion) error {
	views, err := eng.Steps(ctx, a.Operation, a.Transfer, nil)
	if err != nil {
		return fail(a, "readable ledger", err.Error())
	}
	loop := a.Loop
	if loop == 0 {
		for _, v := range views {
			loop = max(loop, v.Loop)
		}
	}
	for _, v := range views {
		if v.Event == a.Event && v.Loop == loop {
			if string(v.State) != a.State {
				return fail(a, a.State, string(v.State))
			}
			return nil
		}
	}
	return fail(a, a.State, "step not found")
}

func assertProgress(ctx context.Context, eng *engine.Engine, a Assertion) error {
	p, err := eng.Progress(ctx, a.Operation)
	if err != nil {
		return fail(a, "readable operation", err.Error())
	}
	if math.Abs(p.Percentage-*a.Percentage) > percentageTolerance {
		return fail(a, fmt.Sprintf("%.4f%%", *a.Percentage), fmt.Sprintf("%.4f%%", p.Percentage))
	}
	return nil
}

func assertValid(ctx context.Context, eng *engine.Engine, a Assertion) error {
	res, err := eng.Validate(ctx, a.Operation)
	if err != nil {
		return fail(a, "readable operation", err.Error())
	}
	if res.IsValid != *a.Valid {
		return fail(a, fmt.Sprintf("valid=%t", *a.Valid), fmt.Sprintf("valid=%t %v", res.IsValid, res.Messages()))
	}
	if a.Codes == nil {
		return nil
	}
	got := make([]string, len(res.Issues))
	for i, issue := range res.Issues {
		got[i] = string(issue.Code)
	}
	if !slices.Equal(got, a.Codes) {
		return fail(a, fmt.Sprintf("codes %v", a.Codes), fmt.Sprintf("codes %v", got))
	}
	return nil
}

func assertActivityCount(ctx context.Context, eng *engine.Engine, a Assertion) error {
	acts, err := eng.Activity(ctx, a.Operation)
	if err != nil {
		return fail(a, "readable activity", err.Error())
	}
	if len(acts) != *a.Count {
		return fail(a, fmt.Sprintf("%d entries", *a.Count), fmt.Sprintf("%d entries", len(acts)))
	}
	return nil
}

func assertStatus(ctx context.Context, eng *engine.Engine, a Assertion) error {
	op, err := eng.Operation(ctx, a.Operation)
	if err != nil {
		return fail(a, "readable operation", err.Error())
	}
	if op.Status != a.Status {
		return fail(a, string(a.Status), string(op.Status))
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the engine's final
// state. Returns one message per failed assertion.
func EvaluateAssertions(ctx context.Context, eng *engine.Engine, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertActiveStep:
			err = assertActiveStep(ctx, eng, a)
		case AssertStepState:
			err = assertStepState(ctx, eng, a)
		case AssertProgress:
			err = assertProgress(ctx, eng, a)
		case AssertValid:
			err = assertValid(ctx, eng, a)
		case AssertActivityCount:
			err = assertActivityCount(ctx, eng, a)
		case AssertStatus:
			err = assertStatus(ctx, eng, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
