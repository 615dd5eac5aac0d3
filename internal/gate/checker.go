package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iamsyg/artisian-dashboard/internal/domain"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
)

var decisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gate_decisions_total",
		Help: "Authorization decisions by scope and outcome.",
	},
	[]string{"scope", "decision"},
)

// SellerLookup resolves the seller record of a subject. It returns an error
// wrapping apperrors.ErrNotFound when the subject has no seller record.
type SellerLookup interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Seller, error)
}

// Checker runs Authorize against a freshly loaded seller record.
type Checker struct {
	sellers SellerLookup
	logger  *slog.Logger
}

// NewChecker creates a Checker. The seller record is never cached.
func NewChecker(sellers SellerLookup, logger *slog.Logger) *Checker {
	return &Checker{sellers: sellers, logger: logger}
}

// Resource identifies the target of an owned-scope check.
type Resource struct {
	Kind     string
	ID       string
	SellerID string
}

// Check authorizes subject for scope. res is only consulted for ScopeOwned.
// On Allow it returns the acting seller, which is nil for ScopeAuthenticated.
func (c *Checker) Check(ctx context.Context, subject string, scope Scope, res Resource) (*domain.Seller, error) {
	req := Request{Subject: subject, Scope: scope, ResourceSellerID: res.SellerID}

	if subject != "" && scope != ScopeAuthenticated {
		seller, err := c.sellers.GetByUserID(ctx, subject)
		switch {
		case err == nil:
			req.Seller = seller
		case errors.Is(err, apperrors.ErrNotFound):
			// no seller record; Authorize reports NotASeller
		default:
			return nil, fmt.Errorf("load seller: %w", err)
		}
	}

	if err := c.decide(ctx, req, res); err != nil {
		return nil, err
	}
	return req.Seller, nil
}

// CheckOwner runs the owned-scope decision for a seller already returned by
// a ScopeCreate check. Callers gate first and load the resource second, so a
// missing resource is only reported to subjects that passed the gate.
func (c *Checker) CheckOwner(ctx context.Context, subject string, seller *domain.Seller, res Resource) error {
	return c.decide(ctx, Request{
		Subject:          subject,
		Seller:           seller,
		Scope:            ScopeOwned,
		ResourceSellerID: res.SellerID,
	}, res)
}

func (c *Checker) decide(ctx context.Context, req Request, res Resource) error {
	decision := Authorize(req)
	decisionsTotal.WithLabelValues(string(req.Scope), string(decision)).Inc()

	if decision != Allow {
		c.logger.InfoContext(ctx, "authorization denied",
			slog.String("subject_id", req.Subject),
			slog.String("scope", string(req.Scope)),
			slog.String("decision", string(decision)),
		)
	}
	return decisionError(decision, res)
}

func decisionError(d Decision, res Resource) error {
	switch d {
	case Allow:
		return nil
	case NotAuthenticated:
		return apperrors.Unauthenticated("sign in to continue")
	case NotASeller:
		return apperrors.NotASeller()
	case NotVerified:
		return apperrors.NotVerified()
	case NotOwner:
		return apperrors.NotOwner(res.Kind, res.ID)
	default:
		return apperrors.Forbidden("access denied")
	}
}
