package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iamsyg/artisian-dashboard/internal/gate"
	"github.com/iamsyg/artisian-dashboard/internal/ingest"
)

// DefaultLanguageCode is used when a transcription request names none.
const DefaultLanguageCode = "en-US"

// Transcriber converts recorded speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioURL, languageCode string) (string, error)
}

// Transcription is the result of a transcription request.
type Transcription struct {
	AudioURL   string `json:"audio_url"`
	Transcript string `json:"transcript"`
}

// TranscriptionService stores a voice recording and transcribes it.
type TranscriptionService struct {
	gate        *gate.Checker
	audio       *ingest.Ingestor
	transcriber Transcriber
	logger      *slog.Logger
	now         func() time.Time
}

// NewTranscriptionService creates a new transcription service.
func NewTranscriptionService(checker *gate.Checker, audio *ingest.Ingestor, transcriber Transcriber, logger *slog.Logger) *TranscriptionService {
	return &TranscriptionService{
		gate:        checker,
		audio:       audio,
		transcriber: transcriber,
		logger:      logger,
		now:         time.Now,
	}
}

// Transcribe ingests the recording, then asks the speech service for its
// text. The recording stays stored when transcription fails.
func (s *TranscriptionService) Transcribe(ctx context.Context, subject string, recording *Upload, languageCode string) (*Transcription, error) {
	if _, err := s.gate.Check(ctx, subject, gate.ScopeAuthenticated, gate.Resource{}); err != nil {
		return nil, err
	}

	languageCode = strings.TrimSpace(languageCode)
	if languageCode == "" {
		languageCode = DefaultLanguageCode
	}

	stamp := s.now().UnixMilli()
	stored, err := s.audio.Ingest(ctx, ingest.Object{
		KeyFunc: func(ext string) string {
			return fmt.Sprintf("%s/%d-%s.%s", subject, stamp, uuid.New().String(), ext)
		},
		DeclaredType: recording.ContentType,
		Data:         recording.Data,
	})
	if err != nil {
		return nil, err
	}

	transcript, err := s.transcriber.Transcribe(ctx, stored.URL, languageCode)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "recording transcribed",
		slog.String("audio_key", stored.Key),
		slog.String("language_code", languageCode),
		slog.Int("transcript_length", len(transcript)),
	)
	return &Transcription{AudioURL: stored.URL, Transcript: transcript}, nil
}
