package middleware

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what happens to a request when Redis cannot be reached.
type FailPolicy int

const (
	FailOpen FailPolicy = iota
	FailClosed
)

var errNoStore = errors.New("rate limit store not configured")

// rateLimitEnabled reports whether APP_ENV asks for enforcement. Local and test
// runs are never throttled.
func rateLimitEnabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "development", "test", "stress":
		return false
	}
	return true
}

// CheckRateLimit counts one hit for id against resource in a fixed window and
// reports whether it is still within limit, plus the hits left.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, int, error) {
	if !rateLimitEnabled() {
		return true, limit, nil
	}
	if rdb == nil {
		return false, 0, errNoStore
	}

	key := "rl:" + resource + ":" + id
	hits, err := rdb.Incr(ctx, key).Result()
	if err == nil && hits == 1 {
		err = rdb.Expire(ctx, key, window).Err()
	}
	if err != nil {
		observability.RedisErrors.WithLabelValues("rate_limit").Inc()
		return false, 0, err
	}

	count := int(hits)
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= limit, remaining, nil
}

// RateLimit allows limit requests per window for each caller, keyed by user id
// once authenticated and by client IP before that. name scopes the counter;
// without it the request path is used. Redis outages let requests through.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		id := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
			id = "user:" + strconv.FormatUint(uint64(uid), 10)
		}
		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		allowed, remaining, err := CheckRateLimit(ctx, rdb, resource, id, limit, window)
		if err != nil {
			if policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(ctx, "rate limit store unavailable, failing closed",
				slog.String("resource", resource),
				slog.String("error", err.Error()),
			)
			return models.RespondWithError(c, fiber.StatusServiceUnavailable, &models.AppError{
				Code:    "RATE_LIMIT_UNAVAILABLE",
				Message: "rate limit unavailable",
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window.Seconds())))
			return models.RespondWithError(c, fiber.StatusTooManyRequests, &models.AppError{
				Code:    "RATE_LIMITED",
				Message: "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
