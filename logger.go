package d3d11

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/d3d11/internal/cs"
	"github.com/gogpu/d3d11/internal/gpu"
	"github.com/gogpu/d3d11/shader"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for d3d11 and all its sub-packages.
// By default, d3d11 produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by d3d11:
//   - [slog.LevelDebug]: chunk hand-offs, flushes and submissions
//   - [slog.LevelInfo]: device creation and teardown
//   - [slog.LevelWarn]: dropped draws and ignored flags
//   - [slog.LevelError]: API misuse and fatal replay failures
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	d3d11.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	gpu.SetLogger(l)
	cs.SetLogger(l)
	shader.SetLogger(l)
}

// Logger returns the current logger used by d3d11.
// Packages layered on top of d3d11, such as interop/, call this to share the
// same logger configuration.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

func slogger() *slog.Logger { return loggerPtr.Load() }
