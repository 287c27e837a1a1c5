// Package bootstrap wires the process-wide runtime: database, Redis, and
// optional demo data.
package bootstrap

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/marinaua13/social-media-api/internal/cache"
	"github.com/marinaua13/social-media-api/internal/config"
	"github.com/marinaua13/social-media-api/internal/database"
	"github.com/marinaua13/social-media-api/internal/middleware"
	"github.com/marinaua13/social-media-api/internal/models"
	"github.com/marinaua13/social-media-api/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDemoData bool
}

// InitRuntime connects to the database and Redis and optionally seeds demo data.
// The Redis client is nil when Redis is unreachable.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb := cache.InitRedis(cfg.RedisURL)

	if opts.SeedDemoData {
		if err := SeedDemoData(cfg, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}
	return db, rdb, nil
}

// SeedDemoData fills an empty development database. Other environments and
// databases that already hold users are left alone.
func SeedDemoData(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") {
		middleware.Logger.Warn("demo data seeding skipped outside development", slog.String("env", cfg.Env))
		return nil
	}

	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	opts := seed.DefaultOptions()
	opts.FastHash = true
	sum, err := seed.NewSeeder(db, opts).Run()
	if err != nil {
		return err
	}
	middleware.Logger.Info("demo data seeded", slog.String("summary", sum.String()))
	return nil
}
