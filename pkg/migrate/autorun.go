package migrate

import (
	"context"
	"fmt"

	"github.com/soledrop/soledrop-backend/pkg/config"
	"github.com/soledrop/soledrop-backend/pkg/db"
	"github.com/soledrop/soledrop-backend/pkg/db/models"
	"github.com/soledrop/soledrop-backend/pkg/logger"
)

// MaybeRunDev prepares the schema when running in dev with auto-migrate on.
// Postgres goes through goose; the SQLite dev database is built from the GORM
// models and seeded with the reference sizes.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": client.Dialect()})

	if client.Dialect() == config.DriverSQLite {
		logg.Info(ctx, "building sqlite schema (dev auto-run)")
		if err := models.AutoMigrate(client.DB()); err != nil {
			return err
		}
		if err := models.SeedSizings(client.DB()); err != nil {
			return fmt.Errorf("seeding sizings: %w", err)
		}
		logg.Info(ctx, "sqlite schema ready")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	runner, err := NewRunner(sqlDB, DefaultDir)
	if err != nil {
		return err
	}

	logg.Info(ctx, "running embedded goose migrations (dev auto-run)")
	applied, err := runner.Up(ctx)
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", applied), "goose migrations completed")
	return nil
}
