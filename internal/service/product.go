package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
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

// Upload is a file received with a request.
type Upload struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// ProductService implements the product mutation pipeline.
type ProductService struct {
	repo     repository.ProductRepository
	gate     *gate.Checker
	images   *ingest.Ingestor
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewProductService creates a new product service.
func NewProductService(
	repo repository.ProductRepository,
	checker *gate.Checker,
	images *ingest.Ingestor,
	producer *event.Producer,
	logger *slog.Logger,
) *ProductService {
	return &ProductService{
		repo:     repo,
		gate:     checker,
		images:   images,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Fields domain.ProductFields
	Image  *Upload
}

// UpdateProductInput holds the parameters for updating a product.
type UpdateProductInput struct {
	ProductID string
	Fields    domain.ProductFields
	Image     *Upload
}

// Create lists a new product for subject's verified seller. The image, if
// any, is stored before the row that references it.
func (s *ProductService) Create(ctx context.Context, subject string, input *CreateProductInput) (*domain.Product, error) {
	seller, err := s.gate.Check(ctx, subject, gate.ScopeCreate, gate.Resource{Kind: "product"})
	if err != nil {
		return nil, err
	}

	fields := input.Fields
	if err := fields.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	now := s.now().UTC()
	var stored *ingest.Stored
	if input.Image != nil {
		name := slug.Generate(fields.Name)
		if name == "" {
			name = "product"
		}
		stored, err = s.images.Ingest(ctx, ingest.Object{
			KeyFunc: func(ext string) string {
				return fmt.Sprintf("products/%d-%s.%s", now.UnixMilli(), name, ext)
			},
			DeclaredType: input.Image.ContentType,
			Data:         input.Image.Data,
		})
		if err != nil {
			return nil, err
		}
	}

	product := &domain.Product{
		ID:          uuid.New().String(),
		UserID:      subject,
		SellerID:    seller.ID,
		Name:        fields.Name,
		Price:       domain.NewMoney(fields.Price),
		Description: fields.Description,
		Language:    fields.Language,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if stored != nil {
		product.ImageURL = &stored.URL
	}

	if err := s.repo.Create(ctx, product); err != nil {
		if stored != nil {
			s.images.Remove(ctx, stored.Key)
		}
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.WarnContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("seller_id", product.SellerID),
	)

	return product, nil
}

// Get retrieves a product by its ID.
func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// List returns a page of products and the total count.
func (s *ProductService) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

// Update rewrites a product owned by subject's seller. ai_description is
// left untouched; image_url only changes when a new image was stored.
func (s *ProductService) Update(ctx context.Context, subject string, input *UpdateProductInput) (*domain.Product, error) {
	seller, existing, err := authorizeOwned(ctx, s.gate, s.repo, subject, input.ProductID)
	if err != nil {
		return nil, err
	}

	fields := input.Fields
	if err := fields.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	var (
		stored   *ingest.Stored
		imageURL *string
	)
	if input.Image != nil {
		now := s.now().UTC()
		stored, err = s.images.Ingest(ctx, ingest.Object{
			KeyFunc: func(ext string) string {
				return fmt.Sprintf("products/%s-%d.%s", existing.ID, now.UnixMilli(), ext)
			},
			DeclaredType: input.Image.ContentType,
			Data:         input.Image.Data,
		})
		if err != nil {
			return nil, err
		}
		imageURL = &stored.URL
	}

	next := *existing
	next.UserID = subject
	next.SellerID = seller.ID
	next.Name = fields.Name
	next.Price = domain.NewMoney(fields.Price)
	next.Description = fields.Description
	next.Language = fields.Language

	updated, err := s.repo.UpdateOwned(ctx, &next, imageURL)
	if err != nil {
		if stored != nil {
			s.images.Remove(ctx, stored.Key)
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	if err := s.producer.PublishProductUpdated(ctx, updated); err != nil {
		s.logger.WarnContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", updated.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", updated.ID),
		slog.Bool("image_replaced", stored != nil),
	)

	return updated, nil
}

// Delete removes a product owned by subject's seller.
func (s *ProductService) Delete(ctx context.Context, subject, id string) error {
	seller, _, err := authorizeOwned(ctx, s.gate, s.repo, subject, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteOwned(ctx, id, seller.ID); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if err := s.producer.PublishProductDeleted(ctx, id, seller.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

type productLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

// authorizeOwned gates subject as a verified seller before the product is
// loaded, then checks that the seller owns it.
func authorizeOwned(ctx context.Context, checker *gate.Checker, products productLookup, subject, id string) (*domain.Seller, *domain.Product, error) {
	seller, err := checker.Check(ctx, subject, gate.ScopeCreate, gate.Resource{Kind: "product"})
	if err != nil {
		return nil, nil, err
	}

	product, err := products.GetByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get product by id: %w", err)
	}

	if err := checker.CheckOwner(ctx, subject, seller, gate.Resource{
		Kind:     "product",
		ID:       product.ID,
		SellerID: product.SellerID,
	}); err != nil {
		return nil, nil, err
	}
	return seller, product, nil
}
