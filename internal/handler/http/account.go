package http

import (
	"log/slog"
	"net/http"

	"github.com/iamsyg/artisian-dashboard/internal/service"
	"github.com/iamsyg/artisian-dashboard/pkg/httputil"
	"github.com/iamsyg/artisian-dashboard/pkg/middleware"
)

// AccountHandler handles account deletion.
type AccountHandler struct {
	service *service.AccountService
	logger  *slog.Logger
}

// NewAccountHandler creates a new account HTTP handler.
func NewAccountHandler(svc *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{service: svc, logger: logger}
}

// DeleteAccountRequest names the account to delete.
type DeleteAccountRequest struct {
	UserID string `json:"userId"`
}

// DeleteAccount handles POST /api/v1/account/delete
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	var req DeleteAccountRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), middleware.SubjectFromContext(r.Context()), req.UserID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]any{"success": true, "user_id": req.UserID})
}
