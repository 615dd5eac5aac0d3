package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/iamsyg/artisian-dashboard/internal/app"
	"github.com/iamsyg/artisian-dashboard/internal/config"
	"github.com/iamsyg/artisian-dashboard/pkg/logger"
)

// marketplace migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFiles...)
		if err != nil {
			return err
		}
		log := logger.New("marketplace", cfg.LogLevel)

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		// OpenDatabase migrates before handing back the pool.
		pool, err := app.OpenDatabase(ctx, cfg, log)
		if err != nil {
			return err
		}
		pool.Close()
		return nil
	},
}
