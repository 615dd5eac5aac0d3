package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iamsyg/artisian-dashboard/internal/domain"
	"github.com/iamsyg/artisian-dashboard/internal/repository"
	"github.com/iamsyg/artisian-dashboard/pkg/database"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
)

const productColumns = `id, user_id, seller_id, name, price, description, ai_description, image_url, language, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	store
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates a PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX, timeout time.Duration) *ProductRepository {
	return &ProductRepository{store: newStore(db, timeout)}
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	const query = `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	ctx, cancel := r.bound(ctx)
	defer cancel()
	ctx, end := database.TraceQuery(ctx, "CreateProduct", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.SellerID,
		p.Name,
		p.Price,
		p.Description,
		p.AIDescription,
		p.ImageURL,
		p.Language,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return apperrors.NotASeller()
		}
		return wrap("insert product", err)
	}
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	const query = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	ctx, cancel := r.bound(ctx)
	defer cancel()

	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, wrap("get product", err)
	}
	return p, nil
}

// List returns a page of products, newest first, with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.SellerID != nil {
		args = append(args, *filter.SellerID)
		conditions = append(conditions, fmt.Sprintf("seller_id = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)-1, len(args),
	)

	ctx, cancel := r.bound(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, wrap("list products", err)
	}
	defer rows.Close()

	var (
		products = []domain.Product{}
		total    int
	)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.SellerID,
			&p.Name,
			&p.Price,
			&p.Description,
			&p.AIDescription,
			&p.ImageURL,
			&p.Language,
			&p.CreatedAt,
			&p.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrap("iterate product rows", err)
	}
	return products, total, nil
}

// UpdateOwned rewrites the seller-editable columns of p, conditioned on
// p.SellerID still owning the row.
func (r *ProductRepository) UpdateOwned(ctx context.Context, p *domain.Product, imageURL *string) (_ *domain.Product, err error) {
	const query = `
		UPDATE products
		SET name = $3, price = $4, description = $5, language = $6,
		    user_id = $7, seller_id = $2, image_url = COALESCE($8, image_url), updated_at = $9
		WHERE id = $1 AND seller_id = $2
		RETURNING ` + productColumns

	ctx, cancel := r.bound(ctx)
	defer cancel()
	ctx, end := database.TraceQuery(ctx, "UpdateOwnedProduct", query)
	defer func() { end(err) }()

	updated, err := scanProduct(r.db.QueryRow(ctx, query,
		p.ID,
		p.SellerID,
		p.Name,
		p.Price,
		p.Description,
		p.Language,
		p.UserID,
		imageURL,
		time.Now().UTC(),
	))
	if err != nil {
		return nil, r.ownedWriteError(ctx, "update product", p.ID, err)
	}
	return updated, nil
}

// DeleteOwned removes the product if sellerID owns it.
func (r *ProductRepository) DeleteOwned(ctx context.Context, id, sellerID string) (err error) {
	const query = `DELETE FROM products WHERE id = $1 AND seller_id = $2`

	ctx, cancel := r.bound(ctx)
	defer cancel()
	ctx, end := database.TraceQuery(ctx, "DeleteOwnedProduct", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id, sellerID)
	if err != nil {
		return wrap("delete product", err)
	}
	if ct.RowsAffected() == 0 {
		return r.ownedWriteError(ctx, "delete product", id, pgx.ErrNoRows)
	}
	return nil
}

// ApplyAdOwned stores a committed advertisement image together with the
// descriptions it was generated from.
func (r *ProductRepository) ApplyAdOwned(ctx context.Context, id, sellerID string, ad repository.AdUpdate) (_ *domain.Product, err error) {
	const query = `
		UPDATE products
		SET image_url = $3, description = $4, ai_description = $5, updated_at = $6
		WHERE id = $1 AND seller_id = $2
		RETURNING ` + productColumns

	ctx, cancel := r.bound(ctx)
	defer cancel()
	ctx, end := database.TraceQuery(ctx, "ApplyAdOwned", query)
	defer func() { end(err) }()

	updated, err := scanProduct(r.db.QueryRow(ctx, query,
		id, sellerID, ad.ImageURL, ad.Description, ad.AIDescription, time.Now().UTC(),
	))
	if err != nil {
		return nil, r.ownedWriteError(ctx, "apply ad", id, err)
	}
	return updated, nil
}

// SetAIDescription stores the generated description of a product.
func (r *ProductRepository) SetAIDescription(ctx context.Context, id, aiDescription string) (*domain.Product, error) {
	const query = `
		UPDATE products SET ai_description = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + productColumns

	ctx, cancel := r.bound(ctx)
	defer cancel()

	updated, err := scanProduct(r.db.QueryRow(ctx, query, id, aiDescription, time.Now().UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, wrap("set ai description", err)
	}
	return updated, nil
}

// ownedWriteError turns a conditioned write that matched nothing into
// NotFound or NotOwner by probing for the row.
func (r *ProductRepository) ownedWriteError(ctx context.Context, op, id string, err error) error {
	if !errors.Is(err, pgx.ErrNoRows) {
		return wrap(op, err)
	}

	var exists bool
	if perr := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); perr != nil {
		return wrap(op+": probe", perr)
	}
	if exists {
		return apperrors.NotOwner("product", id)
	}
	return apperrors.NotFound("product", id)
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.SellerID,
		&p.Name,
		&p.Price,
		&p.Description,
		&p.AIDescription,
		&p.ImageURL,
		&p.Language,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
