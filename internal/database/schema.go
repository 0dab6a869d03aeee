package database

import (
	"context"
	"fmt"
	"log/slog"

	"mosaic/internal/config"
	"mosaic/internal/middleware"

	"gorm.io/gorm"
)

// DB_SCHEMA_MODE values.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus is what `migrate status` prints: the plan for this config and,
// when SQL migrations are part of it, which versions are applied or pending.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

// schemaPlan is the pair of steps ApplySchema runs for one config.
type schemaPlan struct {
	mode string
	sql  bool
	auto bool
}

// protectedEnv reports whether AutoMigrate is off limits. Shared environments
// only change shape through reviewed SQL.
func protectedEnv(cfg *config.Config) bool {
	return cfg.IsProduction() || cfg.Env == "staging" || cfg.Env == "stage"
}

func planSchema(cfg *config.Config) (schemaPlan, error) {
	plan := schemaPlan{mode: cfg.DBSchemaMode}
	if plan.mode == "" {
		plan.mode = SchemaModeHybrid
	}
	protected := protectedEnv(cfg)

	switch plan.mode {
	case SchemaModeSQL:
		plan.sql = true
	case SchemaModeAuto:
		if protected {
			return plan, fmt.Errorf("DB_SCHEMA_MODE=auto is not allowed in %q, use sql or hybrid", cfg.Env)
		}
		plan.auto = true
	case SchemaModeHybrid:
		plan.sql = true
		plan.auto = !protected
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.mode)
	}
	return plan, nil
}

// schemaPolicy is planSchema flattened for callers that only need the steps.
func schemaPolicy(cfg *config.Config) (runSQL, runAuto bool, err error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return false, false, err
	}
	return plan.sql, plan.auto, nil
}

// ApplySchema creates or updates the users, posts, comments, likes and follows
// tables. The embedded migrations run first; AutoMigrate then fills any drift
// between the SQL and the GORM models outside protected environments.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.sql {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.auto {
		return nil
	}

	models := PersistentModels()
	middleware.Logger.InfoContext(ctx, "auto-migrating models",
		slog.String("mode", plan.mode),
		slog.String("env", cfg.Env),
		slog.Int("models", len(models)),
	)
	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the plan for cfg without changing anything. A
// database carrying versions this binary does not embed is an error, the same
// one RunMigrations would return.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{
		Mode:               plan.mode,
		Environment:        cfg.Env,
		WillRunSQL:         plan.sql,
		WillRunAutoMigrate: plan.auto,
	}
	if !plan.sql {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	registered := GetMigrations()
	if err := validateAppliedVersions(applied, registered); err != nil {
		return nil, err
	}
	status.AppliedVersions = applied
	status.PendingMigrations = pendingMigrations(applied, registered)
	return status, nil
}

// pendingMigrations returns the registered migrations missing from applied,
// in registration order.
func pendingMigrations(applied []int, registered []Migration) []Migration {
	done := make(map[int]struct{}, len(applied))
	for _, v := range applied {
		done[v] = struct{}{}
	}
	var pending []Migration
	for _, m := range registered {
		if _, ok := done[m.Version]; !ok {
			pending = append(pending, m)
		}
	}
	return pending
}
