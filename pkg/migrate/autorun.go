package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/etchbroker/makelar-backend/pkg/config"
	"github.com/etchbroker/makelar-backend/pkg/db"
	"github.com/etchbroker/makelar-backend/pkg/db/models"
	"github.com/etchbroker/makelar-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.FeatureFlags.UseSQLite {
		logg.Warn(ctx, "sqlite mode: the Goose files target Postgres, syncing models instead")
		return SyncSQLite(client.DB())
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": DefaultDir}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running Goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "Goose migrations completed")
	return nil
}

// SyncSQLite creates the tables for local SQLite runs and adds the indexes
// the repositories rely on for conflict detection.
func SyncSQLite(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&models.Order{},
		&models.Quote{},
		&models.PaymentTransaction{},
		&models.PaymentAllocation{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	); err != nil {
		return fmt.Errorf("sqlite automigrate: %w", err)
	}
	for _, stmt := range []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_tenant_number ON orders (tenant_id, order_number)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_quotes_tenant_sequence ON quotes (tenant_id, sequence)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_quotes_active_pair ON quotes (tenant_id, order_id, vendor_id)
		  WHERE status IN ('open', 'sent', 'countered') AND deleted_at IS NULL`,
	} {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("sqlite index: %w", err)
		}
	}
	return nil
}
