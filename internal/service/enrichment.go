package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iamsyg/artisian-dashboard/internal/event"
	"github.com/iamsyg/artisian-dashboard/internal/gate"
	"github.com/iamsyg/artisian-dashboard/internal/repository"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
)

// Describer produces a text description of an image.
type Describer interface {
	Describe(ctx context.Context, imageURL string) (string, error)
}

// EnrichmentService stores AI-generated descriptions on products.
type EnrichmentService struct {
	repo            repository.ProductRepository
	gate            *gate.Checker
	describer       Describer
	producer        *event.Producer
	logger          *slog.Logger
	verifyOwnership bool
}

// NewEnrichmentService creates a new enrichment service. With
// verifyOwnership the caller must own the product; otherwise any
// authenticated subject may enrich it.
func NewEnrichmentService(
	repo repository.ProductRepository,
	checker *gate.Checker,
	describer Describer,
	producer *event.Producer,
	logger *slog.Logger,
	verifyOwnership bool,
) *EnrichmentService {
	return &EnrichmentService{
		repo:            repo,
		gate:            checker,
		describer:       describer,
		producer:        producer,
		logger:          logger,
		verifyOwnership: verifyOwnership,
	}
}

// Enrich describes the image at imageURL and stores the result as the
// product's ai_description. A failed call leaves the product untouched.
func (s *EnrichmentService) Enrich(ctx context.Context, subject, productID, imageURL string) (string, error) {
	if subject == "" || !s.verifyOwnership {
		if _, err := s.gate.Check(ctx, subject, gate.ScopeAuthenticated, gate.Resource{}); err != nil {
			return "", err
		}
	}

	productID = strings.TrimSpace(productID)
	imageURL = strings.TrimSpace(imageURL)
	if productID == "" || imageURL == "" {
		return "", apperrors.Validation("product_id and image_url are required")
	}

	if s.verifyOwnership {
		if _, _, err := authorizeOwned(ctx, s.gate, s.repo, subject, productID); err != nil {
			return "", err
		}
	}

	description, err := s.describer.Describe(ctx, imageURL)
	if err != nil {
		return "", err
	}

	if _, err := s.repo.SetAIDescription(ctx, productID, description); err != nil {
		return "", fmt.Errorf("store ai description: %w", err)
	}

	if err := s.producer.PublishProductEnriched(ctx, productID, description); err != nil {
		s.logger.WarnContext(ctx, "failed to publish product.enriched event",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product enriched", slog.String("product_id", productID))
	return description, nil
}
