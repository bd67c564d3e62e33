package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/terminalops/internal/checklist"
	"github.com/roach88/terminalops/internal/model"
	"github.com/roach88/terminalops/internal/store"
	"github.com/roach88/terminalops/internal/testutil"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *model.TerminalConfig {
	cfg := model.NewTerminalConfig()
	cfg.Tanks["T1"] = model.TankState{Capacity: 1000, CurrentVolume: 900}
	cfg.Tanks["T2"] = model.TankState{Capacity: 5000, CurrentVolume: 1000}
	cfg.Authorize("Acme", "Diesel", "T1", "T2")
	cfg.Infrastructure["Bay 1"] = []string{"T2"}
	cfg.Infrastructure["Wharf 1"] = []string{"T1", "T2"}
	cfg.ProductGroups["Diesel"] = "Distillates"
	return cfg
}

type fixture struct {
	engine *Engine
	store  *store.Store
	clock  *testutil.StepClock
}

func newFixture(t *testing.T, cfg *model.TerminalConfig, opts ...EngineOption) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	wall := testutil.NewStepClock(t0, time.Minute)
	base := []EngineOption{
		WithIDGenerator(testutil.NewSequentialIDs("act")),
		WithWallClock(wall.Now),
		WithLogger(discardLogger()),
	}
	e := New(st, StaticConfig{Config: cfg}, checklist.DefaultCatalog(), append(base, opts...)...)
	return &fixture{engine: e, store: st, clock: wall}
}

// truckOp is a 30 t Diesel load from T2 at Bay 1, with no ledgers yet.
func truckOp(id string) *model.Operation {
	return &model.Operation{
		ID:            id,
		Modality:      checklist.ModalityTruck,
		ETA:           t0,
		DurationHours: 2,
		TransferLines: []model.TransferLine{{
			InfrastructureID: "Bay 1",
			Transfers: []model.Transfer{{
				ID:            id + "-t1",
				Customer:      "Acme",
				Product:       "Diesel",
				Direction:     "Tank to Truck",
				From:          "T2",
				PlannedTonnes: 30,
			}},
		}},
	}
}

func (f *fixture) schedule(t *testing.T, op *model.Operation) *model.Operation {
	t.Helper()
	got, err := f.engine.Schedule(context.Background(), op)
	require.NoError(t, err)
	return got
}

func (f *fixture) complete(t *testing.T, opID, transferID string, events ...string) *model.Operation {
	t.Helper()
	var op *model.Operation
	for _, ev := range events {
		var err error
		op, err = f.engine.CompleteStep(context.Background(), StepRef{OperationID: opID, TransferID: transferID, Event: ev}, "op")
		require.NoError(t, err, "complete %s", ev)
	}
	return op
}

func TestClock_Monotonic(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())

	resumed := NewClockAt(41)
	assert.Equal(t, int64(42), resumed.Next())
}

func TestClock_ThreadSafe(t *testing.T) {
	c := NewClock()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.Next()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1000), c.Current())
}

func TestFixedGenerator(t *testing.T) {
	gen := NewFixedGenerator("a", "b")
	assert.Equal(t, "a", gen.Generate())
	assert.Equal(t, "b", gen.Generate())
	assert.PanicsWithValue(t, "FixedGenerator: all IDs exhausted", func() { gen.Generate() })
}

func TestUUIDv7Generator(t *testing.T) {
	id := UUIDv7Generator{}.Generate()
	require.Len(t, id, 36)
	assert.Equal(t, byte('7'), id[14], "version nibble")
	assert.NotEqual(t, id, UUIDv7Generator{}.Generate())
}

func TestRuntimeError(t *testing.T) {
	err := newNotFoundError("OP-1")
	assert.Equal(t, "NOT_FOUND: operation not found (operation=OP-1)", err.Error())
	assert.True(t, IsNotFound(err))
	assert.False(t, IsGateFailed(err))

	bare := &RuntimeError{Code: ErrCodeInvalidOperation, Message: "bad"}
	assert.Equal(t, "INVALID_OPERATION: bad", bare.Error())
	assert.Equal(t, RuntimeErrorCode(""), CodeOf(assert.AnError))
}
