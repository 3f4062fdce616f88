package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/watchlist-backend/pkg/config"
	"github.com/angelmondragon/watchlist-backend/pkg/db"
	"github.com/angelmondragon/watchlist-backend/pkg/db/models"
	"github.com/angelmondragon/watchlist-backend/pkg/logger"
	"gorm.io/gorm"
)

// MaybeRunDev prepares the schema at startup. SQLite databases are always
// synced from the models; Postgres runs goose migrations only in dev with the
// auto-migrate flag enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg.DB.IsSQLite() {
		logg.Info(logg.WithField(ctx, "dialect", client.Dialect()), "syncing sqlite schema from models")
		return AutoMigrate(client.DB().WithContext(ctx))
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
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

// AutoMigrate creates or updates the tables for every model.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(&models.User{}, &models.Movie{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
