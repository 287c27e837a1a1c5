// Package observability holds the Prometheus collectors, OpenTelemetry setup
// and the structured log helpers shared by repositories, the scheduler and the
// notification hub.
package observability

import (
	"context"
	"log/slog"
	"maps"
	"slices"
)

// Logger returns the process logger. middleware.ConfigureLogger installs it as
// the slog default, so request ids on ctx are attached here too.
func Logger() *slog.Logger {
	return slog.Default()
}

type correlationKey struct{}

// WithCorrelationID tags ctx so every helper in this file logs the id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func ExtractCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// fieldAttrs turns fields into attrs in key order so lines diff cleanly.
func fieldAttrs(ctx context.Context, base []any, fields map[string]interface{}) []any {
	if id := ExtractCorrelationID(ctx); id != "" {
		base = append(base, slog.String("correlation_id", id))
	}
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		base = append(base, slog.Any(k, fields[k]))
	}
	return base
}

// RepoLogger records writes against one table.
type RepoLogger struct {
	table string
}

func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{table: table}
}

func (l *RepoLogger) write(ctx context.Context, op string, fields map[string]interface{}) {
	Logger().InfoContext(ctx, l.table+" "+op,
		fieldAttrs(ctx, []any{slog.String("table", l.table), slog.String("operation", op)}, fields)...)
}

func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]interface{}) {
	l.write(ctx, "create", fields)
}

func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]interface{}) {
	l.write(ctx, "delete", fields)
}

func (l *RepoLogger) LogError(ctx context.Context, err error, op string) {
	Logger().ErrorContext(ctx, l.table+" "+op+" failed",
		fieldAttrs(ctx, []any{
			slog.String("table", l.table),
			slog.String("operation", op),
			slog.String("error", err.Error()),
		}, nil)...)
}

// WSLogger records the lifecycle of websocket connections on one hub.
type WSLogger struct {
	hub string
}

func NewWSLogger(hub string) *WSLogger {
	return &WSLogger{hub: hub}
}

func (l *WSLogger) LogConnect(ctx context.Context, userID uint) {
	Logger().InfoContext(ctx, "websocket connected",
		slog.String("hub", l.hub), slog.Uint64("user_id", uint64(userID)))
}

func (l *WSLogger) LogDisconnect(ctx context.Context, userID uint, reason string) {
	Logger().InfoContext(ctx, "websocket disconnected",
		slog.String("hub", l.hub), slog.Uint64("user_id", uint64(userID)), slog.String("reason", reason))
}

// LogError reports a failure tied to one user's connection or event.
func (l *WSLogger) LogError(ctx context.Context, userID uint, err error, event string) {
	Logger().WarnContext(ctx, "websocket error",
		slog.String("hub", l.hub),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("event", event),
		slog.String("error", err.Error()),
	)
}

// Async operation logs share one shape: operation, phase, correlation id, then
// the caller's fields. Phases are start, end, warn and error.

func logAsync(ctx context.Context, level slog.Level, msg, operation, phase string, err error, fields map[string]interface{}) {
	base := []any{slog.String("operation", operation), slog.String("phase", phase)}
	if err != nil {
		base = append(base, slog.String("error", err.Error()))
	}
	Logger().Log(ctx, level, msg, fieldAttrs(ctx, base, fields)...)
}

func LogAsyncOperationStart(ctx context.Context, operation string, fields map[string]interface{}) {
	logAsync(ctx, slog.LevelInfo, "async operation started", operation, "start", nil, fields)
}

func LogAsyncOperationEnd(ctx context.Context, operation string, fields map[string]interface{}) {
	logAsync(ctx, slog.LevelInfo, "async operation completed", operation, "end", nil, fields)
}

// LogAsyncOperationWarn is for work given up on for reasons a retry cannot fix.
func LogAsyncOperationWarn(ctx context.Context, operation string, err error, fields map[string]interface{}) {
	logAsync(ctx, slog.LevelWarn, "async operation dropped", operation, "warn", err, fields)
}

func LogAsyncOperationError(ctx context.Context, operation string, err error, fields map[string]interface{}) {
	logAsync(ctx, slog.LevelError, "async operation failed", operation, "error", err, fields)
}
