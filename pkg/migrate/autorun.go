package migrate

import (
	"context"
	"fmt"

	"github.com/commercive/commerce-sync/pkg/config"
	"github.com/commercive/commerce-sync/pkg/db"
	"github.com/commercive/commerce-sync/pkg/logger"
)

// MaybeRunDev applies pending migrations on boot in dev when AutoMigrate is set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	m, err := New(sqlDB, DefaultDir, cfg.DB.Driver)
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
	logg.Info(ctx, "applying migrations on boot")
	if err := m.Run(ctx, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "migrations applied")
	return nil
}
