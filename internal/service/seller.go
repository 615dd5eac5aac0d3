package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iamsyg/artisian-dashboard/internal/domain"
	"github.com/iamsyg/artisian-dashboard/internal/event"
	"github.com/iamsyg/artisian-dashboard/internal/gate"
	"github.com/iamsyg/artisian-dashboard/internal/ingest"
	"github.com/iamsyg/artisian-dashboard/internal/repository"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
	"github.com/iamsyg/artisian-dashboard/pkg/slug"
)

const maxDisplayNameLength = 100

// SellerService manages seller registration and profiles.
type SellerService struct {
	repo     repository.SellerRepository
	gate     *gate.Checker
	pictures *ingest.Ingestor
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewSellerService creates a new seller service.
func NewSellerService(
	repo repository.SellerRepository,
	checker *gate.Checker,
	pictures *ingest.Ingestor,
	producer *event.Producer,
	logger *slog.Logger,
) *SellerService {
	return &SellerService{
		repo:     repo,
		gate:     checker,
		pictures: pictures,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// RegisterSellerInput holds the initial profile of a new seller.
type RegisterSellerInput struct {
	DisplayName string
	Description string
	Location    string
	Language    string
}

// UpdateProfileInput holds a profile edit. A nil Picture keeps the current one.
type UpdateProfileInput struct {
	DisplayName string
	Description string
	Location    string
	Language    string
	Picture     *Upload
}

// Register creates the unverified seller record of subject. Registering
// twice returns the existing record and created=false.
func (s *SellerService) Register(ctx context.Context, subject string, input *RegisterSellerInput) (*domain.Seller, bool, error) {
	if _, err := s.gate.Check(ctx, subject, gate.ScopeAuthenticated, gate.Resource{}); err != nil {
		return nil, false, err
	}

	name := strings.TrimSpace(input.DisplayName)
	if len([]rune(name)) > maxDisplayNameLength {
		return nil, false, apperrors.Validation(fmt.Sprintf("display_name must be at most %d characters", maxDisplayNameLength))
	}

	now := s.now().UTC()
	seller, created, err := s.repo.Register(ctx, &domain.Seller{
		ID:          uuid.New().String(),
		UserID:      subject,
		DisplayName: name,
		Description: strings.TrimSpace(input.Description),
		Location:    strings.TrimSpace(input.Location),
		Language:    strings.TrimSpace(input.Language),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, false, fmt.Errorf("register seller: %w", err)
	}

	if created {
		if err := s.producer.PublishSellerRegistered(ctx, seller); err != nil {
			s.logger.WarnContext(ctx, "failed to publish seller.registered event",
				slog.String("seller_id", seller.ID),
				slog.String("error", err.Error()),
			)
		}
		s.logger.InfoContext(ctx, "seller registered", slog.String("seller_id", seller.ID))
	}

	return seller, created, nil
}

// Me returns subject's own seller record.
func (s *SellerService) Me(ctx context.Context, subject string) (*domain.Seller, error) {
	return s.gate.Check(ctx, subject, gate.ScopeProfile, gate.Resource{})
}

// UpdateProfile edits subject's own profile. Verification is not required.
func (s *SellerService) UpdateProfile(ctx context.Context, subject string, input *UpdateProfileInput) (*domain.Seller, error) {
	seller, err := s.gate.Check(ctx, subject, gate.ScopeProfile, gate.Resource{})
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.DisplayName)
	if len([]rune(name)) > maxDisplayNameLength {
		return nil, apperrors.Validation(fmt.Sprintf("display_name must be at most %d characters", maxDisplayNameLength))
	}

	profile := domain.SellerProfile{
		DisplayName: name,
		Description: strings.TrimSpace(input.Description),
		Location:    strings.TrimSpace(input.Location),
		Language:    strings.TrimSpace(input.Language),
	}

	var stored *ingest.Stored
	if input.Picture != nil {
		stored, err = s.pictures.Ingest(ctx, ingest.Object{
			Key:          fmt.Sprintf("users/%s/%d-%s", subject, s.now().UnixMilli(), slug.FileName(input.Picture.Filename)),
			DeclaredType: input.Picture.ContentType,
			Data:         input.Picture.Data,
			Upsert:       true,
		})
		if err != nil {
			return nil, err
		}
		profile.ProfilePicture = &stored.URL
	}

	updated, err := s.repo.UpdateProfile(ctx, seller.ID, profile)
	if err != nil {
		if stored != nil {
			s.pictures.Remove(ctx, stored.Key)
		}
		return nil, fmt.Errorf("update seller profile: %w", err)
	}

	if err := s.producer.PublishSellerUpdated(ctx, updated); err != nil {
		s.logger.WarnContext(ctx, "failed to publish seller.updated event",
			slog.String("seller_id", updated.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "seller profile updated",
		slog.String("seller_id", updated.ID),
		slog.Bool("picture_replaced", stored != nil),
	)
	return updated, nil
}

// SetVerified sets the verification flag of the seller owned by userID. It
// is an operator action and bypasses the gate.
func (s *SellerService) SetVerified(ctx context.Context, userID string, verified bool) (*domain.Seller, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.Validation("user id is required")
	}

	seller, err := s.repo.SetVerified(ctx, userID, verified)
	if err != nil {
		return nil, fmt.Errorf("set seller verification: %w", err)
	}

	if err := s.producer.PublishSellerUpdated(ctx, seller); err != nil {
		s.logger.WarnContext(ctx, "failed to publish seller.updated event",
			slog.String("seller_id", seller.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "seller verification changed",
		slog.String("seller_id", seller.ID),
		slog.Bool("verified", verified),
	)
	return seller, nil
}
