package http

import (
	"log/slog"
	"net/http"

	"github.com/iamsyg/artisian-dashboard/pkg/httputil"
	"github.com/iamsyg/artisian-dashboard/pkg/middleware"
)

// EnrichmentHandler serves the standalone enrichment endpoint.
type EnrichmentHandler struct {
	enricher Enricher
	logger   *slog.Logger
}

// NewEnrichmentHandler creates a new enrichment HTTP handler.
func NewEnrichmentHandler(enricher Enricher, logger *slog.Logger) *EnrichmentHandler {
	return &EnrichmentHandler{enricher: enricher, logger: logger}
}

// EnrichRequest is the JSON request body for POST /api/v1/enrichments.
type EnrichRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	ImageURL  string `json:"image_url" validate:"required,url"`
}

// EnrichResponse reports the stored description.
type EnrichResponse struct {
	Success       bool   `json:"success"`
	ProductID     string `json:"product_id"`
	AIDescription string `json:"ai_description"`
}

// Enrich handles POST /api/v1/enrichments
func (h *EnrichmentHandler) Enrich(w http.ResponseWriter, r *http.Request) {
	var req EnrichRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	description, err := h.enricher.Enrich(r.Context(), middleware.SubjectFromContext(r.Context()), req.ProductID, req.ImageURL)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, EnrichResponse{
		Success:       true,
		ProductID:     req.ProductID,
		AIDescription: description,
	})
}
