package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/terminalops/internal/checklist"
	"github.com/roach88/terminalops/internal/model"
	"github.com/roach88/terminalops/internal/store"
)

// Repository persists operations, holds and the activity log.
// Implemented by *store.Store.
type Repository interface {
	SaveOperation(ctx context.Context, op *model.Operation, seq int64) error
	LoadOperation(ctx context.Context, id string) (*model.Operation, error)
	ListOperations(ctx context.Context) ([]model.Operation, error)
	SaveHold(ctx context.Context, h model.Hold, seq int64) error
	ListHolds(ctx context.Context) ([]model.Hold, error)
	ListActivity(ctx context.Context, operationID string) ([]model.ActivityEntry, error)

	// Commit saves op and appends entries atomically.
	Commit(ctx context.Context, op *model.Operation, seq int64, entries ...model.ActivityEntry) error
}

// ConfigSource supplies the current terminal master data. It is consulted on
// every validation, so inventory changes are picked up without a restart.
type ConfigSource interface {
	TerminalConfig(ctx context.Context) (*model.TerminalConfig, error)
}

// StaticConfig is a ConfigSource that always returns the same snapshot.
type StaticConfig struct {
	Config *model.TerminalConfig
}

// TerminalConfig implements ConfigSource.
func (s StaticConfig) TerminalConfig(context.Context) (*model.TerminalConfig, error) {
	return s.Config, nil
}

// Engine applies lifecycle operations against a Repository.
// Safe for concurrent use.
type Engine struct {
	repo    Repository
	config  ConfigSource
	catalog *checklist.Catalog

	clock   *Clock
	ids     IDGenerator
	now     func() time.Time
	logger  *slog.Logger
	metrics MetricsRecorder
	gate    bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithClock sets the logical clock. Use NewClockAt to resume after the
// highest seq already in the repository.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the activity ID generator.
//
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithWallClock sets the source of completion timestamps.
//
// Default: time.Now.
func WithWallClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the structured logger.
//
// Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(m MetricsRecorder) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithValidationGate makes CompleteStep and StartReworkLoop refuse to run
// while the plan has validation issues. Undo is never gated.
func WithValidationGate(on bool) EngineOption {
	return func(e *Engine) {
		e.gate = on
	}
}

// New creates an Engine over repo. cat supplies the checklists new ledgers
// are seeded from.
func New(repo Repository, config ConfigSource, cat *checklist.Catalog, opts ...EngineOption) *Engine {
	e := &Engine{
		repo:    repo,
		config:  config,
		catalog: cat,
		clock:   NewClock(),
		ids:     UUIDv7Generator{},
		now:     time.Now,
		logger:  slog.Default(),
		metrics: noopMetrics{},
		locks:   make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Catalog returns the checklist catalog the engine seeds ledgers from.
func (e *Engine) Catalog() *checklist.Catalog {
	return e.catalog
}

// lock serializes mutations of one operation. Returns the unlock function.
func (e *Engine) lock(id string) func() {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// load fetches a fresh snapshot of operation id.
func (e *Engine) load(ctx context.Context, id string) (*model.Operation, error) {
	op, err := e.repo.LoadOperation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, newNotFoundError(id)
	}
	return op, err
}

// observe reports a call outcome. Use with defer and a named error result.
func (e *Engine) observe(ctx context.Context, operation string, start time.Time, err *error) {
	e.metrics.Observe(ctx, operation, *err == nil, time.Since(start))
}
