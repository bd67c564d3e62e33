package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/terminalops/internal/compiler"
	"github.com/roach88/terminalops/internal/engine"
	"github.com/roach88/terminalops/internal/ledger"
	"github.com/roach88/terminalops/internal/store"
	"github.com/roach88/terminalops/internal/testutil"
)

// Epoch is the first wall-clock reading of every scenario run.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness holds the per-run engine and store.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each run gets a fresh in-memory database. Failed expectations and
// assertions are reported in Result.Errors; a returned error means the
// scenario could not be set up at all.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with engine logging sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	term, err := compiler.LoadDir(scenario.Terminal)
	if err != nil {
		return nil, fmt.Errorf("failed to load terminal: %w", err)
	}
	if verrs := compiler.Validate(term); len(verrs) > 0 {
		return nil, fmt.Errorf("invalid terminal: %w", verrs[0])
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	wall := testutil.NewStepClock(Epoch, time.Minute)
	eng := engine.New(st, engine.StaticConfig{Config: term.Config}, term.Catalog,
		engine.WithClock(engine.NewClock()),
		engine.WithIDGenerator(testutil.NewSequentialIDs("act")),
		engine.WithWallClock(wall.Now),
		engine.WithLogger(logger),
		engine.WithValidationGate(scenario.Gate),
	)

	h := &Harness{store: st, engine: eng, logger: logger}
	ctx := context.Background()

	if err := h.executeSetup(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	h.executeFlow(ctx, scenario.Flow, result)

	for _, msg := range EvaluateAssertions(ctx, eng, scenario.Assertions) {
		result.AddError(msg)
	}

	board, err := eng.Board(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read board: %w", err)
	}
	for _, e := range board {
		result.Operations = append(result.Operations, OperationSummary{
			ID:         e.Operation.ID,
			Status:     e.Operation.Status,
			Badge:      e.Badge,
			Percentage: e.Progress.Percentage,
		})
	}

	return result, nil
}

// executeSetup schedules the operations and adds the holds.
func (h *Harness) executeSetup(ctx context.Context, scenario *Scenario) error {
	for i := range scenario.Operations {
		if _, err := h.engine.Schedule(ctx, &scenario.Operations[i]); err != nil {
			return fmt.Errorf("operations[%d]: %w", i, err)
		}
	}
	for i, hold := range scenario.Holds {
		if _, err := h.engine.AddHold(ctx, hold); err != nil {
			return fmt.Errorf("holds[%d]: %w", i, err)
		}
	}
	return nil
}

// executeFlow replays every flow step and checks its expect clause.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) {
	for i, step := range flow {
		ev := TraceEvent{
			Step:      i,
			Action:    step.Action,
			Operation: step.Operation,
			Transfer:  step.Transfer,
			Event:     step.Event,
			Loop:      step.Loop,
		}

		actor := step.Actor
		if actor == "" {
			actor = "scenario"
		}
		ref := engine.StepRef{OperationID: step.Operation, TransferID: step.Transfer, Event: step.Event, Loop: step.Loop}

		var err error
		switch step.Action {
		case ActionComplete:
			_, err = h.engine.CompleteStep(ctx, ref, actor)
		case ActionUndo:
			_, ev.Reset, err = h.engine.UndoStep(ctx, ref, actor, step.Reason)
		case ActionRework:
			var loop int
			_, loop, err = h.engine.StartReworkLoop(ctx, step.Operation, step.Transfer, step.Loop, actor, step.Reason)
			if err == nil {
				ev.Loop = loop
			}
		case ActionStatus:
			_, err = h.engine.SetStatus(ctx, step.Operation, step.Status)
		}

		ev.Outcome = outcome(err)
		result.Trace = append(result.Trace, ev)

		for _, msg := range checkExpect(i, step, ev) {
			result.AddError(msg)
		}

		h.logger.Info("flow step replayed",
			"step", i,
			"action", step.Action,
			"operation", step.Operation,
			"outcome", ev.Outcome,
		)
	}
}

// outcome maps an engine error to its code.
func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := ledger.CodeOf(err); code != "" {
		return string(code)
	}
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	return err.Error()
}

func checkExpect(i int, step FlowStep, ev TraceEvent) []string {
	want := OutcomeOK
	if step.Expect != nil && step.Expect.Error != "" {
		want = step.Expect.Error
	}
	if ev.Outcome != want {
		return []string{fmt.Sprintf("flow[%d] %s %s: expected %s, got %s", i, step.Action, step.Event, want, ev.Outcome)}
	}
	if step.Expect == nil {
		return nil
	}

	var errs []string
	if step.Expect.Reset != nil && !slices.Equal(step.Expect.Reset, ev.Reset) {
		errs = append(errs, fmt.Sprintf("flow[%d] undo %s: expected reset %v, got %v", i, step.Event, step.Expect.Reset, ev.Reset))
	}
	if step.Expect.Loop != 0 && step.Expect.Loop != ev.Loop {
		errs = append(errs, fmt.Sprintf("flow[%d] rework: expected loop %d, got %d", i, step.Expect.Loop, ev.Loop))
	}
	return errs
}
