package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/iamsyg/artisian-dashboard/migrations"
	"github.com/iamsyg/artisian-dashboard/pkg/database"
)

// Migrate applies pending schema migrations.
func Migrate(ctx context.Context, db database.DBTX, logger *slog.Logger) error {
	if err := database.RunMigrations(ctx, db, migrations.FS, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")
	return nil
}
