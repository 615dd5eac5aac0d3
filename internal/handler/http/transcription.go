package http

import (
	"log/slog"
	"net/http"

	"github.com/iamsyg/artisian-dashboard/internal/service"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
	"github.com/iamsyg/artisian-dashboard/pkg/httputil"
	"github.com/iamsyg/artisian-dashboard/pkg/middleware"
)

// TranscriptionHandler handles voice note transcription.
type TranscriptionHandler struct {
	service       *service.TranscriptionService
	maxAudioBytes int64
	logger        *slog.Logger
}

// NewTranscriptionHandler creates a new transcription HTTP handler.
func NewTranscriptionHandler(svc *service.TranscriptionService, maxAudioBytes int64, logger *slog.Logger) *TranscriptionHandler {
	return &TranscriptionHandler{service: svc, maxAudioBytes: maxAudioBytes, logger: logger}
}

// Transcribe handles POST /api/v1/transcriptions (multipart "audio" and
// optional "language_code").
func (h *TranscriptionHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if err := parseMultipart(w, r, h.maxAudioBytes); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	audio, done, err := formUpload(r, "audio")
	defer done()
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if audio == nil {
		httputil.WriteError(w, r, apperrors.Validation("audio file is required"), h.logger)
		return
	}

	out, err := h.service.Transcribe(r.Context(), middleware.SubjectFromContext(r.Context()), audio, r.FormValue("language_code"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, out)
}
