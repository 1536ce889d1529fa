// Package logging provides structured logging configuration using log/slog.
//
// Every pipeline run carries a run id in its context. Loggers obtained via
// FromContext include it, so all entries of one batch can be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const ctxKeyRunID contextKey = "run_id"

// Setup configures the global slog logger based on level and format.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	SetupWriter(os.Stdout, level, format)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewRunID returns a fresh identifier for one pipeline run.
func NewRunID() string {
	return uuid.NewString()
}

// ContextWithRunID stores the run id in ctx.
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ctxKeyRunID, runID)
}

// RunIDFromContext returns the run id stored in ctx, or "".
func RunIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRunID).(string); ok {
		return v
	}
	return ""
}

// FromContext returns the default logger, tagged with the run id when ctx has one.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if id := RunIDFromContext(ctx); id != "" {
		logger = logger.With("run_id", id)
	}
	return logger
}

// WithFields returns a logger with additional structured fields.
//
// Usage:
//
//	logger := logging.WithFields(ctx, "phase", "load", "collection", name)
//	logger.Info("load started")
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
