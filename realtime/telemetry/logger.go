package telemetry

import (
	"io"
	"log/slog"
	"os"
)

// SlogLogger implements the realtime.Logger interface using log/slog.
type SlogLogger struct {
	logger *slog.Logger
}

// NewLogger creates a new structured logger that writes JSON to stdout.
func NewLogger() *SlogLogger {
	return NewLoggerTo(os.Stdout, slog.LevelInfo)
}

// NewLoggerTo creates a JSON logger writing to w at the given level.
func NewLoggerTo(w io.Writer, level slog.Level) *SlogLogger {
	return &SlogLogger{
		logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

// Slog returns the underlying *slog.Logger.
func (l *SlogLogger) Slog() *slog.Logger {
	return l.logger
}

// Info logs an informational message.
func (l *SlogLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, redactArgs(keysAndValues)...)
}

// Error logs an error message.
func (l *SlogLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	// We append the error to the keysAndValues
	args := append(redactArgs(keysAndValues), "error", err)
	l.logger.Error(msg, args...)
}

// redactArgs copies alternating key/value pairs, masking sensitive keys.
func redactArgs(keysAndValues []interface{}) []interface{} {
	out := make([]interface{}, len(keysAndValues))
	copy(out, keysAndValues)
	for i := 0; i+1 < len(out); i += 2 {
		if key, ok := out[i].(string); ok {
			out[i+1] = RedactValue(key, out[i+1])
		}
	}
	return out
}
