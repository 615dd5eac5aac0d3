package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iamsyg/artisian-dashboard/internal/app"
	"github.com/iamsyg/artisian-dashboard/internal/config"
	"github.com/iamsyg/artisian-dashboard/pkg/logger"
)

// marketplace serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(envFiles...)
		if err != nil {
			return err
		}

		log := logger.New("marketplace", cfg.LogLevel)
		log.Info("starting marketplace service",
			slog.String("environment", cfg.Environment),
			slog.Int("http_port", cfg.HTTPPort),
			slog.String("storage_driver", cfg.StorageDriver),
		)

		application, err := app.NewApp(cfg, log)
		if err != nil {
			log.Error("failed to initialize application", slog.String("error", err.Error()))
			return err
		}

		// Cancelled on SIGINT or SIGTERM.
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if err := application.Run(ctx); err != nil {
			log.Error("application error", slog.String("error", err.Error()))
			return err
		}

		log.Info("marketplace service stopped")
		return nil
	},
}
