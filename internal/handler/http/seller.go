package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/iamsyg/artisian-dashboard/internal/service"
	"github.com/iamsyg/artisian-dashboard/pkg/httputil"
	"github.com/iamsyg/artisian-dashboard/pkg/middleware"
	"github.com/iamsyg/artisian-dashboard/pkg/validator"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SellerHandler handles seller registration and profile endpoints.
type SellerHandler struct {
	service       *service.SellerService
	catalog       *service.CatalogService
	maxImageBytes int64
	logger        *slog.Logger
}

// NewSellerHandler creates a new seller HTTP handler.
func NewSellerHandler(svc *service.SellerService, catalog *service.CatalogService, maxImageBytes int64, logger *slog.Logger) *SellerHandler {
	return &SellerHandler{
		service:       svc,
		catalog:       catalog,
		maxImageBytes: maxImageBytes,
		logger:        logger,
	}
}

// SellerProfileRequest carries the editable profile fields.
type SellerProfileRequest struct {
	DisplayName string `json:"display_name" form:"display_name" validate:"max=100"`
	Description string `json:"description" form:"description" validate:"max=2000"`
	Location    string `json:"location" form:"location" validate:"max=200"`
	Language    string `json:"language" form:"language" validate:"max=35"`
}

// Register handles POST /api/v1/sellers. It answers 201 for a new record and
// 200 when the subject was already registered.
func (h *SellerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req SellerProfileRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	seller, created, err := h.service.Register(r.Context(), middleware.SubjectFromContext(r.Context()), &service.RegisterSellerInput{
		DisplayName: req.DisplayName,
		Description: req.Description,
		Location:    req.Location,
		Language:    req.Language,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteData(w, status, seller)
}

// GetMe handles GET /api/v1/sellers/me
func (h *SellerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	seller, err := h.service.Me(r.Context(), middleware.SubjectFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, seller)
}

// UpdateMe handles PUT /api/v1/sellers/me (JSON or multipart/form-data with
// an optional "profile_picture" file).
func (h *SellerHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var (
		req     SellerProfileRequest
		picture *service.Upload
	)

	if isMultipart(r) {
		if err := parseMultipart(w, r, h.maxImageBytes); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		req = SellerProfileRequest{
			DisplayName: r.FormValue("display_name"),
			Description: r.FormValue("description"),
			Location:    r.FormValue("location"),
			Language:    r.FormValue("language"),
		}
		if err := validator.Validate(&req); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}

		upload, done, err := formUpload(r, "profile_picture")
		defer done()
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		picture = upload
	} else if err := decodeJSON(w, r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	seller, err := h.service.UpdateProfile(r.Context(), middleware.SubjectFromContext(r.Context()), &service.UpdateProfileInput{
		DisplayName: req.DisplayName,
		Description: req.Description,
		Location:    req.Location,
		Language:    req.Language,
		Picture:     picture,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, seller)
}

// ExportProducts handles GET /api/v1/sellers/me/products.xlsx
func (h *SellerHandler) ExportProducts(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.catalog.Export(r.Context(), middleware.SubjectFromContext(r.Context()), &buf); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="products.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
