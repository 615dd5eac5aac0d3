package app

import (
	"context"
	"log/slog"

	"github.com/iamsyg/artisian-dashboard/internal/config"
	"github.com/iamsyg/artisian-dashboard/internal/domain"
	"github.com/iamsyg/artisian-dashboard/internal/event"
	"github.com/iamsyg/artisian-dashboard/internal/gate"
	"github.com/iamsyg/artisian-dashboard/internal/repository/postgres"
	"github.com/iamsyg/artisian-dashboard/internal/service"
	pkgkafka "github.com/iamsyg/artisian-dashboard/pkg/kafka"
)

// SetSellerVerified flips the verification flag of the seller owned by
// userID. It is the operator path; no HTTP route exposes it.
func SetSellerVerified(ctx context.Context, cfg *config.Config, logger *slog.Logger, userID string, verified bool) (*domain.Seller, error) {
	pool, err := OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	producer := event.NewNopProducer(logger)
	if len(cfg.KafkaBrokers) > 0 {
		kp := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		defer func() { _ = kp.Close() }()
		producer = event.NewProducer(kp, logger)
	}

	sellers := postgres.NewSellerRepository(pool, cfg.StoreTimeout)
	svc := service.NewSellerService(sellers, gate.NewChecker(sellers, logger), nil, producer, logger)
	return svc.SetVerified(ctx, userID, verified)
}
