// Package logger configures the process-wide slog logger and provides the
// request-scoped helpers the rest of the service logs through.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// ContextKey is the type for context keys owned by this package.
type ContextKey string

// RequestIDKey carries the request id through the context.
const RequestIDKey ContextKey = "request_id"

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

var root *slog.Logger

// Init installs the process logger. Production emits JSON lines; anything
// else gets the text handler.
func Init(level string) {
	lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if os.Getenv("ENV") == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	root = slog.New(handler)
	slog.SetDefault(root)
}

func base() *slog.Logger {
	if root == nil {
		Init("info")
	}
	return root
}

// WithComponent returns a logger labeled with the owning component.
func WithComponent(component string) *slog.Logger {
	return base().With("component", component)
}

// WithRequestID returns a logger carrying the request id from ctx, when one
// is set.
func WithRequestID(ctx context.Context) *slog.Logger {
	if id, ok := ctx.Value(RequestIDKey).(string); ok && id != "" {
		return base().With("request_id", id)
	}
	return base()
}

func Info(msg string, args ...any)  { base().Info(msg, args...) }
func Warn(msg string, args ...any)  { base().Warn(msg, args...) }
func Error(msg string, args ...any) { base().Error(msg, args...) }

// InfoContext logs at info level with the request id from ctx attached.
func InfoContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).Info(msg, args...)
}

// WarnContext logs at warn level with the request id from ctx attached.
func WarnContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).Warn(msg, args...)
}

// ErrorContext logs at error level with the request id from ctx attached.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	WithRequestID(ctx).Error(msg, args...)
}
