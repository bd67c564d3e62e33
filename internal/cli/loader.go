package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/terminalops/internal/compiler"
	"github.com/roach88/terminalops/internal/engine"
	"github.com/roach88/terminalops/internal/ledger"
	"github.com/roach88/terminalops/internal/store"
)

// Error code constants, unified across all CLI commands. Engine rejections
// are reported with their own codes (OUT_OF_ORDER, GATE_FAILED, ...).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeReadFailed  = "E002" // Input file unreadable or malformed
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load or schema failure
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeInvalid     = "E006" // Terminal configuration failed consistency checks
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeDatabase    = "E008" // Database open/read/write failure
)

// LoadError represents an error that occurred while loading the terminal.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadTerminal compiles the terminal CUE files in dir. Compile failures are
// mapped to LoadError codes; consistency errors are returned separately so
// callers can list them all.
func LoadTerminal(dir string) (*compiler.Terminal, []compiler.ValidationError, error) {
	term, err := compiler.LoadDir(dir)
	if err != nil {
		return nil, nil, convertLoadError(dir, err)
	}
	return term, compiler.Validate(term), nil
}

func convertLoadError(dir string, err error) *LoadError {
	var compileErr *compiler.CompileError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("terminal directory not found: %s", dir), Err: err}
	case errors.Is(err, compiler.ErrNoCUEFiles):
		return &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir), Err: err}
	case errors.As(err, &compileErr):
		return &LoadError{Code: ErrCodeLoadFailed, Message: compileErr.Error(), Err: err}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error(), Err: err}
}

// session is one command's view of the engine: the compiled terminal, the
// open database and the metrics registry.
type session struct {
	opts     *RootOptions
	terminal *compiler.Terminal
	store    *store.Store
	engine   *engine.Engine
	registry *prometheus.Registry
}

// openSession loads the terminal, opens the database and builds an engine
// whose logical clock resumes after the highest stored seq.
func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	term, verrs, err := LoadTerminal(opts.Terminal)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load terminal", err)
	}
	if len(verrs) > 0 {
		return nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("terminal configuration has %d error(s); run validate", len(verrs)), verrs[0])
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", &LoadError{Code: ErrCodeDatabase, Message: err.Error(), Err: err})
	}
	seq, err := st.MaxSeq(ctx)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to read database", &LoadError{Code: ErrCodeDatabase, Message: err.Error(), Err: err})
	}

	reg := prometheus.NewRegistry()
	eng := engine.New(st, engine.StaticConfig{Config: term.Config}, term.Catalog,
		engine.WithClock(engine.NewClockAt(seq)),
		engine.WithLogger(slog.Default()),
		engine.WithMetricsRecorder(engine.NewPrometheusRecorder(reg)),
		engine.WithValidationGate(opts.Gate),
	)

	slog.Debug("session opened", "db", opts.Database, "terminal", opts.Terminal, "seq", seq)
	return &session{opts: opts, terminal: term, store: st, engine: eng, registry: reg}, nil
}

// Close flushes metrics (if requested) and closes the database.
func (s *session) Close() error {
	var errs []error
	if s.opts.MetricsTextfile != "" {
		if err := prometheus.WriteToTextfile(s.opts.MetricsTextfile, s.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// withSession runs fn against an open session and closes it afterwards.
func withSession(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, s *session) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(ctx, opts)
	if err != nil {
		formatter := newFormatter(opts, cmd)
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return err
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			slog.Error("error closing session", "error", closeErr)
			if err == nil {
				err = WrapExitError(ExitCommandError, "failed to close session", closeErr)
			}
		}
	}()

	return fn(ctx, s)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// errorCode picks the most specific code carried by err.
func errorCode(err error) string {
	if code := ledger.CodeOf(err); code != "" {
		return string(code)
	}
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	var verr compiler.ValidationError
	if errors.As(err, &verr) {
		return verr.Code
	}
	return ErrCodeGeneric
}

// engineFailure reports an engine error and maps it to an exit code:
// missing operations and database failures are command errors, rejected
// requests are failures.
func engineFailure(f *OutputFormatter, err error) error {
	code := errorCode(err)
	var details any
	var re *engine.RuntimeError
	if errors.As(err, &re) && len(re.Issues) > 0 {
		details = re.Issues
	}
	_ = f.Error(code, err.Error(), details)

	if engine.IsNotFound(err) || code == ErrCodeGeneric {
		return WrapExitError(ExitCommandError, code, err)
	}
	return WrapExitError(ExitFailure, code, err)
}

// fileExists reports whether path names an existing file or directory.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
