// Package logger provides the process-wide structured logger. Trading
// sessions run unattended, so everything goes out as JSON on stdout where the
// supervisor collects it; stderr carries only the logger's own failures.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// levelEnv overrides the default info level, e.g. PULSE_LOG_LEVEL=debug.
const levelEnv = "PULSE_LOG_LEVEL"

// Logger wraps zap so callers depend on this package, not on zap directly.
type Logger struct {
	*zap.Logger
}

// NewLogger builds the production logger: JSON encoding, info level unless
// PULSE_LOG_LEVEL says otherwise.
func NewLogger() (*Logger, error) {
	level := zapcore.InfoLevel
	if raw := os.Getenv(levelEnv); raw != "" {
		if parsed, err := zapcore.ParseLevel(raw); err == nil {
			level = parsed
		}
	}

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(level)

	zapLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{Logger: zapLogger}, nil
}

// NewNopLogger creates a logger that discards all output. Intended for tests.
func NewNopLogger() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Sync flushes buffered entries. Safe on a zero-value Logger.
func (l *Logger) Sync() error {
	if l.Logger != nil {
		return l.Logger.Sync()
	}

	return nil
}
