// Package cache is the optional Redis layer: a cache-aside helper for post and
// profile reads, and the shared client used by the scheduler and notifier.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/marinaua13/social-media-api/internal/middleware"
	"github.com/marinaua13/social-media-api/internal/observability"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/codes"
)

var client *redis.Client

// instrumentHook traces single commands and counts failures. redis.Nil is a
// miss, not a failure.
type instrumentHook struct{}

func (instrumentHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (instrumentHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, span := observability.StartRedisSpan(ctx, cmd.Name(), commandKey(cmd))
		defer span.End()

		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues(cmd.Name()).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

func (instrumentHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

func commandKey(cmd redis.Cmder) string {
	if args := cmd.Args(); len(args) > 1 {
		if k, ok := args[1].(string); ok {
			return k
		}
	}
	return ""
}

// parseOptions accepts a redis:// or rediss:// URL or a bare host:port.
func parseOptions(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("empty redis address")
	}
	if strings.Contains(addr, "://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return opts, nil
	}
	return &redis.Options{Addr: addr}, nil
}

// InitRedis connects the package client. It returns nil, and leaves the
// package client nil, when the address is empty, invalid or unreachable; every
// caller then runs without Redis.
func InitRedis(addr string) *redis.Client {
	client = nil

	opts, err := parseOptions(addr)
	if err != nil {
		middleware.Logger.Warn("Redis disabled", slog.String("reason", err.Error()))
		return nil
	}

	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("Redis unreachable, continuing without it",
			slog.String("addr", opts.Addr),
			slog.String("error", err.Error()),
		)
		_ = rdb.Close()
		return nil
	}

	SetClient(rdb)
	middleware.Logger.Info("Redis connected", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))
	return rdb
}

// SetClient installs rdb as the package client. Tests point it at miniredis.
func SetClient(rdb *redis.Client) {
	if rdb != nil {
		rdb.AddHook(instrumentHook{})
	}
	client = rdb
}

func GetClient() *redis.Client {
	return client
}

// Close closes the package client, if any.
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}
