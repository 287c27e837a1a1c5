package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/marinaua13/social-media-api/internal/config"
	"github.com/marinaua13/social-media-api/internal/middleware"
	"github.com/marinaua13/social-media-api/internal/models"

	"gorm.io/gorm"
)

// Schema modes accepted by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// PersistentModels lists every table GORM AutoMigrate manages.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Follow{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
		&models.RevokedToken{},
	}
}

// SchemaPlan is what ApplySchema will do for a given config.
type SchemaPlan struct {
	Mode    string
	RunSQL  bool
	RunAuto bool
}

// PlanSchema resolves DB_SCHEMA_MODE against the environment. Hybrid runs SQL
// migrations everywhere and AutoMigrate only outside production; auto in
// production needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	deployed := isDeployedEnv(cfg.Env)

	switch mode {
	case SchemaModeSQL:
		return SchemaPlan{Mode: mode, RunSQL: true}, nil
	case SchemaModeHybrid:
		return SchemaPlan{Mode: mode, RunSQL: true, RunAuto: !deployed}, nil
	case SchemaModeAuto:
		if deployed && !cfg.DBAutoMigrateAllowDestructive {
			return SchemaPlan{}, fmt.Errorf("DB_SCHEMA_MODE=auto in %q requires DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return SchemaPlan{Mode: mode, RunAuto: true}, nil
	}
	return SchemaPlan{}, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
}

func isDeployedEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// ApplySchema brings the database up to date according to PlanSchema.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) (SchemaPlan, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return plan, err
	}

	if plan.RunSQL {
		migrator, err := NewMigrator(db)
		if err != nil {
			return plan, err
		}
		if _, err := migrator.Up(ctx); err != nil {
			return plan, err
		}
	}
	if plan.RunAuto {
		if plan.Mode == SchemaModeAuto && isDeployedEnv(cfg.Env) {
			middleware.Logger.WarnContext(ctx, "AutoMigrate enabled in a deployed environment", slog.String("env", cfg.Env))
		}
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return plan, fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return plan, nil
}

// SchemaStatus is a read-only report for the migrate status command.
type SchemaStatus struct {
	SchemaPlan
	Applied []int
	Pending []Migration
}

func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{SchemaPlan: plan}
	if !plan.RunSQL {
		return status, nil
	}

	migrator, err := NewMigrator(db)
	if err != nil {
		return nil, err
	}
	if status.Applied, err = migrator.Applied(ctx); err != nil {
		return nil, err
	}
	if status.Pending, err = migrator.Pending(ctx); err != nil {
		return nil, err
	}
	return status, nil
}
