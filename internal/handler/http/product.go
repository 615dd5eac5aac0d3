package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iamsyg/artisian-dashboard/internal/domain"
	"github.com/iamsyg/artisian-dashboard/internal/repository"
	"github.com/iamsyg/artisian-dashboard/internal/service"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
	"github.com/iamsyg/artisian-dashboard/pkg/httputil"
	"github.com/iamsyg/artisian-dashboard/pkg/middleware"
	"github.com/iamsyg/artisian-dashboard/pkg/pagination"
	"github.com/iamsyg/artisian-dashboard/pkg/validator"
)

// Enricher describes a product image and stores the result on the product.
type Enricher interface {
	Enrich(ctx context.Context, subject, productID, imageURL string) (string, error)
}

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service       *service.ProductService
	catalog       *service.CatalogService
	enricher      Enricher
	maxImageBytes int64
	logger        *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(
	svc *service.ProductService,
	catalog *service.CatalogService,
	enricher Enricher,
	maxImageBytes int64,
	logger *slog.Logger,
) *ProductHandler {
	return &ProductHandler{
		service:       svc,
		catalog:       catalog,
		enricher:      enricher,
		maxImageBytes: maxImageBytes,
		logger:        logger,
	}
}

// --- Request DTOs ---

// ProductRequest is the body of create and update, sent either as JSON or
// as multipart form fields next to an "image" file.
type ProductRequest struct {
	Name        string      `json:"name" validate:"required,max=200"`
	Price       json.Number `json:"price" validate:"required,money"`
	Description string      `json:"description" validate:"max=5000"`
	Language    *string     `json:"language" validate:"omitempty,max=35,bcp47_language_tag"`
}

func (req *ProductRequest) fields() (domain.ProductFields, error) {
	price, err := domain.ParsePrice(string(req.Price))
	if err != nil {
		return domain.ProductFields{}, apperrors.Validation(err.Error())
	}
	return domain.ProductFields{
		Name:        req.Name,
		Price:       price,
		Description: req.Description,
		Language:    req.Language,
	}, nil
}

// --- Response DTOs ---

// EnrichmentOutcome reports the description follow-up that runs after a new
// image was stored.
type EnrichmentOutcome struct {
	Status        string `json:"status"`
	AIDescription string `json:"ai_description,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ProductResponse is a product plus the outcome of its enrichment, if any.
type ProductResponse struct {
	domain.Product
	Enrichment *EnrichmentOutcome `json:"enrichment,omitempty"`
}

// --- Handlers ---

// ListProducts handles GET /api/v1/products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	filter := repository.ProductFilter{Page: params.Page, PerPage: params.PerPage}
	if v := strings.TrimSpace(r.URL.Query().Get("seller_id")); v != "" {
		filter.SellerID = &v
	}

	products, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.NewPaginatedResponse(products, total, params.Page, params.PerPage))
}

// GetProduct handles GET /api/v1/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.service.Get(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, product)
}

// CreateProduct handles POST /api/v1/products (JSON or multipart/form-data).
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	req, image, done, err := h.readProduct(w, r)
	defer done()
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	fields, err := req.fields()
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	subject := middleware.SubjectFromContext(r.Context())
	product, err := h.service.Create(r.Context(), subject, &service.CreateProductInput{Fields: fields, Image: image})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, h.withEnrichment(r.Context(), subject, product, image != nil))
}

// UpdateProduct handles PUT /api/v1/products/{id} (JSON or multipart/form-data).
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	req, image, done, err := h.readProduct(w, r)
	defer done()
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	fields, err := req.fields()
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	subject := middleware.SubjectFromContext(r.Context())
	product, err := h.service.Update(r.Context(), subject, &service.UpdateProductInput{
		ProductID: id.String(),
		Fields:    fields,
		Image:     image,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, h.withEnrichment(r.Context(), subject, product, image != nil))
}

// DeleteProduct handles DELETE /api/v1/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), middleware.SubjectFromContext(r.Context()), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ImportProducts handles POST /api/v1/products/import (multipart "file").
func (h *ProductHandler) ImportProducts(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r, h.maxImageBytes); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	file, done, err := formUpload(r, "file")
	defer done()
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if file == nil {
		httputil.WriteError(w, r, apperrors.Validation("file is required"), h.logger)
		return
	}

	result, err := h.catalog.Import(r.Context(), middleware.SubjectFromContext(r.Context()), file.Data)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, result)
}

// readProduct decodes the product fields and optional image of a create or
// update request.
func (h *ProductHandler) readProduct(w http.ResponseWriter, r *http.Request) (*ProductRequest, *service.Upload, func(), error) {
	noop := func() {}
	if !isMultipart(r) {
		var req ProductRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			return nil, nil, noop, err
		}
		return &req, nil, noop, nil
	}

	if err := parseMultipart(w, r, h.maxImageBytes); err != nil {
		return nil, nil, noop, err
	}
	req := &ProductRequest{
		Name:        r.FormValue("name"),
		Price:       json.Number(strings.TrimSpace(r.FormValue("price"))),
		Description: r.FormValue("description"),
	}
	if lang := strings.TrimSpace(r.FormValue("language")); lang != "" {
		req.Language = &lang
	}
	if err := validator.Validate(req); err != nil {
		return nil, nil, noop, err
	}

	image, done, err := formUpload(r, "image")
	if err != nil {
		return nil, nil, done, err
	}
	return req, image, done, nil
}

// withEnrichment describes a freshly stored image. A failure is reported in
// the response and never fails the request.
func (h *ProductHandler) withEnrichment(ctx context.Context, subject string, product *domain.Product, imageStored bool) ProductResponse {
	resp := ProductResponse{Product: *product}
	if !imageStored || product.ImageURL == nil || h.enricher == nil {
		return resp
	}

	description, err := h.enricher.Enrich(ctx, subject, product.ID, *product.ImageURL)
	if err != nil {
		h.logger.WarnContext(ctx, "image enrichment failed",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
		resp.Enrichment = &EnrichmentOutcome{Status: "failed", Error: enrichmentError(err)}
		return resp
	}

	resp.AIDescription = &description
	resp.Enrichment = &EnrichmentOutcome{Status: "ok", AIDescription: description}
	return resp
}

func enrichmentError(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "image description is unavailable"
}
