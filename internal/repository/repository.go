package repository

import (
	"context"

	"github.com/iamsyg/artisian-dashboard/internal/domain"
)

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	SellerID *string
	Page     int
	PerPage  int
}

// AdUpdate holds the columns written when an advertisement is committed.
type AdUpdate struct {
	ImageURL      string
	Description   string
	AIDescription string
}

// ProductRepository defines product persistence. Owned writes are
// conditioned on the seller id and report NotOwner when the row exists
// under another seller, NotFound when it does not exist at all.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// UpdateOwned writes the editable fields, user_id and seller_id of
	// product, plus image_url when imageURL is non-nil. It returns the
	// stored row.
	UpdateOwned(ctx context.Context, product *domain.Product, imageURL *string) (*domain.Product, error)
	DeleteOwned(ctx context.Context, id, sellerID string) error
	ApplyAdOwned(ctx context.Context, id, sellerID string, ad AdUpdate) (*domain.Product, error)

	// SetAIDescription writes ai_description whoever owns the row.
	SetAIDescription(ctx context.Context, id, aiDescription string) (*domain.Product, error)
}

// SellerRepository defines seller persistence.
type SellerRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Seller, error)

	// Register inserts seller unless the subject already has a record, in
	// which case the existing record is returned with created=false.
	Register(ctx context.Context, seller *domain.Seller) (stored *domain.Seller, created bool, err error)
	UpdateProfile(ctx context.Context, id string, profile domain.SellerProfile) (*domain.Seller, error)
	SetVerified(ctx context.Context, userID string, verified bool) (*domain.Seller, error)

	// DeleteByUserID removes the seller; products cascade in the database.
	DeleteByUserID(ctx context.Context, userID string) error
}
