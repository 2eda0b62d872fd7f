package pmemfile

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with pmemfile-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithPath adds a path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// LogMap logs a create or open.
func (l *Logger) LogMap(op string, size int64, pmem bool, err error) {
	if err != nil {
		l.Error("mapping failed",
			"op", op,
			"error", err,
		)
		return
	}
	l.Debug("mapped",
		"op", op,
		"size", size,
		"pmem", pmem,
	)
}

// LogUnmap logs an unmap.
func (l *Logger) LogUnmap(size int64, err error) {
	if err != nil {
		l.Error("unmap failed",
			"size", size,
			"error", err,
		)
		return
	}
	l.Debug("unmapped", "size", size)
}

// LogCopyFailure logs a failed read, write or durability step.
func (l *Logger) LogCopyFailure(op string, off int64, n int, err error) {
	l.Error("copy failed",
		"op", op,
		"offset", off,
		"length", n,
		"error", err,
	)
}

// LogLeak logs a mapping reclaimed by the garbage collector without being closed.
func (l *Logger) LogLeak(size int64) {
	l.Warn("mapping was never closed; unmapped by garbage collector",
		"size", size,
	)
}
