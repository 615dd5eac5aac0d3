package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iamsyg/artisian-dashboard/internal/event"
	"github.com/iamsyg/artisian-dashboard/internal/repository"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
)

// IdentityAdmin removes identities from the authentication provider.
type IdentityAdmin interface {
	DeleteUser(ctx context.Context, userID string) error
}

// AccountService deletes user accounts.
type AccountService struct {
	identity     IdentityAdmin
	sellers      repository.SellerRepository
	producer     *event.Producer
	logger       *slog.Logger
	protectedUID string
}

// NewAccountService creates a new account service. protectedUID names an
// account that can never be deleted; empty disables the protection.
func NewAccountService(
	identity IdentityAdmin,
	sellers repository.SellerRepository,
	producer *event.Producer,
	logger *slog.Logger,
	protectedUID string,
) *AccountService {
	return &AccountService{
		identity:     identity,
		sellers:      sellers,
		producer:     producer,
		logger:       logger,
		protectedUID: protectedUID,
	}
}

// Delete removes the identity userID and then its seller record, whose
// products cascade. Subjects may only delete themselves.
func (s *AccountService) Delete(ctx context.Context, subject, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return apperrors.Validation("userId is required")
	}
	if s.protectedUID != "" && userID == s.protectedUID {
		s.logger.WarnContext(ctx, "refused to delete protected account", slog.String("user_id", userID))
		return apperrors.Forbidden("this account cannot be deleted")
	}
	if subject == "" {
		return apperrors.Unauthenticated("sign in to continue")
	}
	if subject != userID {
		return apperrors.Forbidden("you can only delete your own account")
	}

	if err := s.identity.DeleteUser(ctx, userID); err != nil {
		return apperrors.RemoteService("identity", err)
	}
	if err := s.sellers.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("delete seller: %w", err)
	}

	if err := s.producer.PublishAccountDeleted(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to publish account.deleted event",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "account deleted", slog.String("user_id", userID))
	return nil
}
