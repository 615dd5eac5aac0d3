// Package genai calls the external AI services: image description, ad image
// generation and speech-to-text.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
	"github.com/iamsyg/artisian-dashboard/pkg/httpclient"
)

// Service names, used in errors and metric labels.
const (
	ServiceDescription = "description"
	ServiceAdImage     = "ad_image"
	ServiceSpeech      = "speech"
)

const (
	maxJSONBody  = 1 << 20
	maxImageBody = 20 << 20
)

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "genai_requests_total",
		Help: "Calls to external AI services by outcome.",
	},
	[]string{"service", "outcome"},
)

// Config holds the endpoints and time budgets of the AI services.
type Config struct {
	DescribeURL    string
	AdImageURL     string
	SpeechURL      string
	Timeout        time.Duration
	AdImageTimeout time.Duration
}

// Doers carries one HTTP doer per service so that each can sit behind its
// own circuit breaker.
type Doers struct {
	Describe httpclient.Doer
	AdImage  httpclient.Doer
	Speech   httpclient.Doer
}

// Client talks to the AI services. It never retries.
type Client struct {
	cfg    Config
	doers  Doers
	logger *slog.Logger
}

// New creates a Client. Zero timeouts fall back to 30s and 60s.
func New(cfg Config, doers Doers, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.AdImageTimeout <= 0 {
		cfg.AdImageTimeout = 60 * time.Second
	}
	return &Client{cfg: cfg, doers: doers, logger: logger}
}

// Image is a generated picture.
type Image struct {
	Data        []byte
	ContentType string
}

// Describe asks the description service about the image at imageURL. When
// the response has no description field the raw body is returned instead.
func (c *Client) Describe(ctx context.Context, imageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := c.postJSON(ctx, c.doers.Describe, ServiceDescription, c.cfg.DescribeURL, map[string]string{
		"image_url": imageURL,
	})
	if err != nil {
		return "", c.fail(ctx, ServiceDescription, err)
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return "", c.fail(ctx, ServiceDescription, fmt.Errorf("decode response: %w", err))
	}
	requestsTotal.WithLabelValues(ServiceDescription, "ok").Inc()

	if d, ok := out["description"].(string); ok && d != "" {
		return d, nil
	}
	return strings.TrimSpace(string(body)), nil
}

// GenerateAdImage sends prompt as multipart field "prompt" and returns the
// image bytes. Every failure is reported as GenerationFailed.
func (c *Client) GenerateAdImage(ctx context.Context, prompt string) (*Image, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.AdImageTimeout)
	defer cancel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("prompt", prompt); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("write prompt field: %w", err))
	}
	if err := mw.Close(); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("close multipart body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AdImageURL, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("create ad image request: %w", err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "image/png")

	data, err := c.do(ctx, c.doers.AdImage, ServiceAdImage, req, maxImageBody)
	if err != nil {
		c.record(ctx, ServiceAdImage, err)
		return nil, apperrors.GenerationFailed(err)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		err := fmt.Errorf("generator returned %s, not an image", contentType)
		c.record(ctx, ServiceAdImage, err)
		return nil, apperrors.GenerationFailed(err)
	}

	requestsTotal.WithLabelValues(ServiceAdImage, "ok").Inc()
	return &Image{Data: data, ContentType: contentType}, nil
}

// Transcribe converts the audio at audioURL to text.
func (c *Client) Transcribe(ctx context.Context, audioURL, languageCode string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := c.postJSON(ctx, c.doers.Speech, ServiceSpeech, c.cfg.SpeechURL, map[string]string{
		"audio_url":     audioURL,
		"language_code": languageCode,
	})
	if err != nil {
		return "", c.fail(ctx, ServiceSpeech, err)
	}

	var out struct {
		Transcript *string `json:"transcript"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", c.fail(ctx, ServiceSpeech, fmt.Errorf("decode response: %w", err))
	}
	if out.Transcript == nil {
		return "", c.fail(ctx, ServiceSpeech, errors.New("response has no transcript"))
	}

	requestsTotal.WithLabelValues(ServiceSpeech, "ok").Inc()
	return *out.Transcript, nil
}

func (c *Client) postJSON(ctx context.Context, doer httpclient.Doer, service, url string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", service, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", service, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(ctx, doer, service, req, maxJSONBody)
}

func (c *Client) do(ctx context.Context, doer httpclient.Doer, service string, req *http.Request, limit int64) ([]byte, error) {
	if req.URL.Host == "" {
		return nil, fmt.Errorf("%s service URL is not configured", service)
	}

	resp, err := doer.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call %s service: %w", service, err)
	}
	defer resp.Body.Close()

	if !httpclient.IsSuccess(resp.StatusCode) {
		return nil, httpclient.ReadStatusError(resp, service)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", service, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s response exceeds %d bytes", service, limit)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s returned an empty body", service)
	}
	return data, nil
}

func (c *Client) fail(ctx context.Context, service string, err error) error {
	c.record(ctx, service, err)
	return apperrors.RemoteService(service, err)
}

func (c *Client) record(ctx context.Context, service string, err error) {
	outcome := "error"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case errors.Is(err, httpclient.ErrCircuitOpen):
		outcome = "circuit_open"
	}
	requestsTotal.WithLabelValues(service, outcome).Inc()

	c.logger.WarnContext(ctx, "ai service call failed",
		slog.String("service", service),
		slog.String("outcome", outcome),
		slog.String("error", err.Error()),
	)
}
