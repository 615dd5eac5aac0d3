package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iamsyg/artisian-dashboard/internal/service"
	"github.com/iamsyg/artisian-dashboard/pkg/httputil"
	"github.com/iamsyg/artisian-dashboard/pkg/middleware"
)

// Preview response headers.
const (
	HeaderAdPreviewID      = "X-Ad-Preview-ID"
	HeaderAdPreviewExpires = "X-Ad-Preview-Expires-At"
)

// AdHandler handles the advertisement preview endpoints.
type AdHandler struct {
	workflow *service.AdWorkflow
	logger   *slog.Logger
}

// NewAdHandler creates a new ad HTTP handler.
func NewAdHandler(workflow *service.AdWorkflow, logger *slog.Logger) *AdHandler {
	return &AdHandler{workflow: workflow, logger: logger}
}

// AdPreviewRequest optionally overrides the texts the ad is generated from.
type AdPreviewRequest struct {
	Description   string `json:"description" validate:"max=5000"`
	AIDescription string `json:"ai_description" validate:"max=5000"`
}

// CreatePreview handles POST /api/v1/products/{id}/ad-previews. The image is
// returned as the response body; its id travels in X-Ad-Preview-ID.
func (h *AdHandler) CreatePreview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req AdPreviewRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	preview, err := h.workflow.Preview(r.Context(), middleware.SubjectFromContext(r.Context()), id.String(), service.AdPreviewInput{
		Description:   req.Description,
		AIDescription: req.AIDescription,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", preview.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(preview.Image)))
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set(HeaderAdPreviewID, preview.ID)
	w.Header().Set(HeaderAdPreviewExpires, preview.ExpiresAt.Format(time.RFC3339))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(preview.Image)
}

// GetStatus handles GET /api/v1/products/{id}/ad-previews/current
func (h *AdHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	status, err := h.workflow.Status(r.Context(), middleware.SubjectFromContext(r.Context()), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, status)
}

// CommitPreview handles POST /api/v1/products/{id}/ad-previews/{previewID}/commit
func (h *AdHandler) CommitPreview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	product, err := h.workflow.Commit(r.Context(), middleware.SubjectFromContext(r.Context()), id.String(), chi.URLParam(r, "previewID"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, product)
}

// DiscardPreview handles DELETE /api/v1/products/{id}/ad-previews/{previewID}
func (h *AdHandler) DiscardPreview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.workflow.Discard(r.Context(), middleware.SubjectFromContext(r.Context()), id.String(), chi.URLParam(r, "previewID")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
