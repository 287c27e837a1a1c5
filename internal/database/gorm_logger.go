package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormLogger sends GORM output to the process slog logger. Only failures and
// queries slower than slow are logged unless the level is raised to Info.
type gormLogger struct {
	level logger.LogLevel
	slow  time.Duration
}

func newGormLogger(slow time.Duration) logger.Interface {
	return &gormLogger{level: logger.Warn, slow: slow}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *gormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.emit(ctx, logger.Info, slog.LevelInfo, fmt.Sprintf(msg, args...))
}

func (l *gormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.emit(ctx, logger.Warn, slog.LevelWarn, fmt.Sprintf(msg, args...))
}

func (l *gormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.emit(ctx, logger.Error, slog.LevelError, fmt.Sprintf(msg, args...))
}

func (l *gormLogger) emit(ctx context.Context, need logger.LogLevel, level slog.Level, msg string, attrs ...any) {
	if l.level >= need {
		slog.Default().Log(ctx, level, msg, attrs...)
	}
}

// Trace is called after every statement. Record-not-found is an expected
// outcome for lookups and is never logged.
func (l *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := l.slow > 0 && elapsed > l.slow

	var need logger.LogLevel
	var level slog.Level
	var msg string
	switch {
	case failed:
		need, level, msg = logger.Error, slog.LevelError, "query failed"
	case slow:
		need, level, msg = logger.Warn, slog.LevelWarn, "slow query"
	default:
		need, level, msg = logger.Info, slog.LevelDebug, "query"
	}
	if l.level < need {
		return
	}

	sql, rows := fc()
	attrs := []any{slog.String("sql", sql), slog.Int64("rows", rows), slog.Duration("elapsed", elapsed)}
	if failed {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	slog.Default().Log(ctx, level, msg, attrs...)
}
