package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/terminalops/internal/engine"
	"github.com/roach88/terminalops/internal/ledger"
	"github.com/roach88/terminalops/internal/model"
)

const truckOperation = `id: TRK-1
modality: Truck
eta: 2026-01-01T06:00:00Z
duration_hours: 2
transfer_lines:
  - infrastructure_id: Bay 1
    transfers:
      - id: TRK-1-t1
        customer: Acme
        product: Diesel
        direction: Tank to Truck
        from: T2
        planned_tonnes: 30
`

const bayHold = `id: H1
resource: Bay 1
start: 2026-01-01T07:00:00Z
end: 2026-01-01T09:00:00Z
status: Approved
reason: Meter calibration
`

// cliEnv is a scratch database plus the input files the commands read.
type cliEnv struct {
	t   *testing.T
	dir string
	db  string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := &cliEnv{t: t, dir: dir, db: filepath.Join(dir, "ops.db")}
	env.write("op.yaml", truckOperation)
	env.write("hold.yaml", bayHold)
	return env
}

func (e *cliEnv) write(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (e *cliEnv) path(name string) string {
	return filepath.Join(e.dir, name)
}

// run executes one CLI invocation against the scratch database.
func (e *cliEnv) run(args ...string) (string, error) {
	e.t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--db", e.db, "--terminal", terminalDir}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func (e *cliEnv) runJSON(data any, args ...string) (jsonResponse, error) {
	e.t.Helper()
	out, err := e.run(append([]string{"--format", "json"}, args...)...)
	var resp jsonResponse
	require.NoError(e.t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	if data != nil && len(resp.Data) > 0 {
		require.NoError(e.t, json.Unmarshal(resp.Data, data))
	}
	return resp, err
}

func TestScheduleAndCompleteSteps(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("schedule", env.path("op.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Scheduled TRK-1 (Truck, Planned)")

	out, err = env.run("plan", "TRK-1")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ TRK-1 plan is valid")

	var step StepResult
	_, err = env.runJSON(&step, "step", "complete", "TRK-1", "Arrived", "--transfer", "TRK-1-t1", "--actor", "alice")
	require.NoError(t, err)
	require.NotNil(t, step.Operation)
	assert.Equal(t, model.StatusActive, step.Operation.Status)

	resp, err := env.runJSON(nil, "step", "complete", "TRK-1", "Departed", "--transfer", "TRK-1-t1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(ledger.ErrCodeOutOfOrder), resp.Error.Code)

	var views []ledger.StepView
	_, err = env.runJSON(&views, "step", "list", "TRK-1", "--transfer", "TRK-1-t1")
	require.NoError(t, err)
	require.Len(t, views, 5)
	assert.Equal(t, ledger.StateComplete, views[0].State)
	assert.Equal(t, "alice", views[0].CompletedBy)
	assert.Equal(t, ledger.StateActive, views[1].State)
	assert.Equal(t, ledger.StateBlocked, views[2].State)

	var prog ProgressResult
	_, err = env.runJSON(&prog, "progress", "TRK-1", "--transfer", "TRK-1-t1")
	require.NoError(t, err)
	assert.Equal(t, 1, prog.Progress.StepsCompleted)
	assert.Greater(t, prog.Progress.Percentage, 0.0)
	assert.Len(t, prog.Steps, 5)
}

func TestUndoAndActivityAcrossInvocations(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("schedule", env.path("op.yaml"))
	require.NoError(t, err)

	for _, event := range []string{"Arrived", "On Bay"} {
		_, err := env.run("step", "complete", "TRK-1", event, "--transfer", "TRK-1-t1", "--actor", "bob")
		require.NoError(t, err)
	}

	var undo StepResult
	_, err = env.runJSON(&undo, "step", "undo", "TRK-1", "Arrived", "--transfer", "TRK-1-t1", "--reason", "wrong truck")
	require.NoError(t, err)
	assert.Equal(t, []string{"Arrived", "On Bay"}, undo.Reset)

	var entries []model.ActivityEntry
	_, err = env.runJSON(&entries, "activity", "TRK-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, model.ActionComplete, entries[0].Action)
	assert.Equal(t, model.ActionUndo, entries[2].Action)
	assert.Equal(t, "wrong truck", entries[2].Reason)

	// Every invocation starts a new engine; seq must keep increasing.
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i].Seq, entries[i-1].Seq)
	}
}

func TestReworkLoop(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("schedule", env.path("op.yaml"))
	require.NoError(t, err)

	_, err = env.run("step", "rework", "TRK-1", "--transfer", "TRK-1-t1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	for _, event := range []string{"Arrived", "On Bay", "Pumping Started", "Pumping Stopped"} {
		_, err := env.run("step", "complete", "TRK-1", event, "--transfer", "TRK-1-t1")
		require.NoError(t, err)
	}

	var rework StepResult
	_, err = env.runJSON(&rework, "step", "rework", "TRK-1", "--transfer", "TRK-1-t1", "--reason", "contaminated sample")
	require.NoError(t, err)
	assert.Equal(t, 2, rework.Loop)

	out, err := env.run("step", "list", "TRK-1", "--transfer", "TRK-1-t1")
	require.NoError(t, err)
	assert.Contains(t, out, "loop 1")
	assert.Contains(t, out, "loop 2")
}

func TestHoldImpactAndGate(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run("schedule", env.path("op.yaml"))
	require.NoError(t, err)

	var impact []HoldResult
	_, err = env.runJSON(&impact, "hold", "impact", env.path("hold.yaml"))
	require.NoError(t, err)
	require.Len(t, impact, 1)
	assert.Equal(t, []string{"TRK-1"}, impact[0].Affected)

	var holds []model.Hold
	_, err = env.runJSON(&holds, "hold", "list")
	require.NoError(t, err)
	assert.Empty(t, holds, "impact must not store the hold")

	out, err := env.run("hold", "add", env.path("hold.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "H1 affects: TRK-1")

	var plan PlanResult
	_, err = env.runJSON(&plan, "plan", "TRK-1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.False(t, plan.Valid)
	require.Len(t, plan.Issues, 1)
	assert.Contains(t, plan.Issues[0].Message, "Meter calibration")

	resp, err := env.runJSON(nil, "--gate", "step", "complete", "TRK-1", "Arrived", "--transfer", "TRK-1-t1")
	require.Error(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(engine.ErrCodeGateFailed), resp.Error.Code)
	assert.NotNil(t, resp.Error.Details)

	_, err = env.run("step", "complete", "TRK-1", "Arrived", "--transfer", "TRK-1-t1")
	assert.NoError(t, err, "without --gate the completion is accepted")
}

func TestBoardAndStatus(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run("board")
	require.NoError(t, err)
	assert.Contains(t, out, "No operations scheduled")

	_, err = env.run("schedule", env.path("op.yaml"))
	require.NoError(t, err)

	out, err = env.run("status", "TRK-1", "Cancelled")
	require.NoError(t, err)
	assert.Contains(t, out, "TRK-1 is now Cancelled")

	out, err = env.run("board")
	require.NoError(t, err)
	assert.Contains(t, out, "TRK-1")
	assert.Contains(t, out, "Cancelled")

	_, err = env.run("status", "TRK-1", "Paused")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestMissingOperation(t *testing.T) {
	env := newCLIEnv(t)

	resp, err := env.runJSON(nil, "step", "complete", "NOPE", "Arrived", "--transfer", "t1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(engine.ErrCodeNotFound), resp.Error.Code)
}

func TestScheduleRejectsUnknownFields(t *testing.T) {
	env := newCLIEnv(t)
	path := env.write("bad.yaml", truckOperation+"berth: 4\n")

	out, err := env.run("schedule", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeReadFailed)
}

func TestMetricsTextfile(t *testing.T) {
	env := newCLIEnv(t)
	metrics := env.path("terminalops.prom")

	_, err := env.run("--metrics-textfile", metrics, "schedule", env.path("op.yaml"))
	require.NoError(t, err)
	_, err = env.run("--metrics-textfile", metrics, "plan", "TRK-1")
	require.NoError(t, err)

	data, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(data), `terminalops_engine_calls_total{operation="validate",result="success"} 1`)
	assert.Contains(t, string(data), `terminalops_validator_validations_total{valid="true"} 1`)
}

func TestCommandsFailOnBrokenTerminal(t *testing.T) {
	env := newCLIEnv(t)

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", env.db, "--terminal", t.TempDir(), "board"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeNoFiles)
}
