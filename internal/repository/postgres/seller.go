package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iamsyg/artisian-dashboard/internal/domain"
	"github.com/iamsyg/artisian-dashboard/internal/repository"
	"github.com/iamsyg/artisian-dashboard/pkg/database"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
)

const sellerColumns = `id, user_id, is_seller, display_name, profile_picture, description, location, language, created_at, updated_at`

// SellerRepository implements repository.SellerRepository using PostgreSQL.
type SellerRepository struct {
	store
}

var _ repository.SellerRepository = (*SellerRepository)(nil)

// NewSellerRepository creates a PostgreSQL-backed seller repository.
func NewSellerRepository(db database.DBTX, timeout time.Duration) *SellerRepository {
	return &SellerRepository{store: newStore(db, timeout)}
}

// GetByUserID returns the seller record of a subject.
func (r *SellerRepository) GetByUserID(ctx context.Context, userID string) (*domain.Seller, error) {
	const query = `SELECT ` + sellerColumns + ` FROM sellers WHERE user_id = $1`

	ctx, cancel := r.bound(ctx)
	defer cancel()

	s, err := scanSeller(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("seller", userID)
		}
		return nil, wrap("get seller", err)
	}
	return s, nil
}

// Register inserts s, or returns the subject's existing record.
func (r *SellerRepository) Register(ctx context.Context, s *domain.Seller) (_ *domain.Seller, _ bool, err error) {
	const query = `
		INSERT INTO sellers (` + sellerColumns + `)
		VALUES ($1, $2, FALSE, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING ` + sellerColumns

	ctx, cancel := r.bound(ctx)
	defer cancel()
	ctx, end := database.TraceQuery(ctx, "RegisterSeller", query)
	defer func() { end(err) }()

	stored, err := scanSeller(r.db.QueryRow(ctx, query,
		s.ID,
		s.UserID,
		s.DisplayName,
		s.ProfilePicture,
		s.Description,
		s.Location,
		s.Language,
		s.CreatedAt,
		s.UpdatedAt,
	))
	switch {
	case err == nil:
		return stored, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		existing, gerr := r.GetByUserID(ctx, s.UserID)
		if gerr != nil {
			return nil, false, gerr
		}
		return existing, false, nil
	default:
		return nil, false, wrap("insert seller", err)
	}
}

// UpdateProfile writes the editable profile of seller id. A nil
// ProfilePicture keeps the stored picture.
func (r *SellerRepository) UpdateProfile(ctx context.Context, id string, p domain.SellerProfile) (_ *domain.Seller, err error) {
	const query = `
		UPDATE sellers
		SET display_name = $2, description = $3, location = $4, language = $5,
		    profile_picture = COALESCE($6, profile_picture), updated_at = $7
		WHERE id = $1
		RETURNING ` + sellerColumns

	ctx, cancel := r.bound(ctx)
	defer cancel()
	ctx, end := database.TraceQuery(ctx, "UpdateSellerProfile", query)
	defer func() { end(err) }()

	s, err := scanSeller(r.db.QueryRow(ctx, query,
		id, p.DisplayName, p.Description, p.Location, p.Language, p.ProfilePicture, time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("seller", id)
		}
		return nil, wrap("update seller profile", err)
	}
	return s, nil
}

// SetVerified flips the verification flag of the subject's seller record.
func (r *SellerRepository) SetVerified(ctx context.Context, userID string, verified bool) (*domain.Seller, error) {
	const query = `
		UPDATE sellers SET is_seller = $2, updated_at = $3
		WHERE user_id = $1
		RETURNING ` + sellerColumns

	ctx, cancel := r.bound(ctx)
	defer cancel()

	s, err := scanSeller(r.db.QueryRow(ctx, query, userID, verified, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("seller", userID)
		}
		return nil, wrap("set seller verification", err)
	}
	return s, nil
}

// DeleteByUserID removes the subject's seller record. Deleting a subject
// without one is not an error.
func (r *SellerRepository) DeleteByUserID(ctx context.Context, userID string) (err error) {
	const query = `DELETE FROM sellers WHERE user_id = $1`

	ctx, cancel := r.bound(ctx)
	defer cancel()
	ctx, end := database.TraceQuery(ctx, "DeleteSeller", query)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, query, userID); err != nil {
		return wrap("delete seller", err)
	}
	return nil
}

func scanSeller(row pgx.Row) (*domain.Seller, error) {
	var s domain.Seller
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.IsSeller,
		&s.DisplayName,
		&s.ProfilePicture,
		&s.Description,
		&s.Location,
		&s.Language,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
