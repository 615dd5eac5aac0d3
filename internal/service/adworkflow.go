package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iamsyg/artisian-dashboard/internal/domain"
	"github.com/iamsyg/artisian-dashboard/internal/event"
	"github.com/iamsyg/artisian-dashboard/internal/gate"
	"github.com/iamsyg/artisian-dashboard/internal/genai"
	"github.com/iamsyg/artisian-dashboard/internal/ingest"
	"github.com/iamsyg/artisian-dashboard/internal/preview"
	"github.com/iamsyg/artisian-dashboard/internal/repository"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
)

var adTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ad_workflow_transitions_total",
		Help: "Ad workflow state transitions.",
	},
	[]string{"from", "to"},
)

// AdImageGenerator turns a prompt into an image.
type AdImageGenerator interface {
	GenerateAdImage(ctx context.Context, prompt string) (*genai.Image, error)
}

// AdPreviewInput carries the texts an ad is generated from. Blank values
// fall back to the product's stored description and ai_description.
type AdPreviewInput struct {
	Description   string
	AIDescription string
}

type adKey struct{ subject, product string }

// AdWorkflow generates advertisement images as previews and commits or
// discards them. Idle and PreviewReady are derived from the preview store;
// only in-flight states are held in memory.
type AdWorkflow struct {
	products  repository.ProductRepository
	gate      *gate.Checker
	previews  preview.Store
	generator AdImageGenerator
	images    *ingest.Ingestor
	producer  *event.Producer
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	inflight map[adKey]domain.AdState
}

// NewAdWorkflow creates an ad workflow whose previews live for ttl.
func NewAdWorkflow(
	products repository.ProductRepository,
	checker *gate.Checker,
	previews preview.Store,
	generator AdImageGenerator,
	images *ingest.Ingestor,
	producer *event.Producer,
	ttl time.Duration,
	logger *slog.Logger,
) *AdWorkflow {
	return &AdWorkflow{
		products:  products,
		gate:      checker,
		previews:  previews,
		generator: generator,
		images:    images,
		producer:  producer,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
		inflight:  make(map[adKey]domain.AdState),
	}
}

// Preview generates an ad image for the product and keeps it as the
// subject's pending preview. The product itself is never modified.
func (w *AdWorkflow) Preview(ctx context.Context, subject, productID string, input AdPreviewInput) (*domain.AdPreview, error) {
	if _, err := w.gate.Check(ctx, subject, gate.ScopeAuthenticated, gate.Resource{}); err != nil {
		return nil, err
	}

	product, err := w.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = strings.TrimSpace(product.Description)
	}
	aiDescription := strings.TrimSpace(input.AIDescription)
	if aiDescription == "" && product.AIDescription != nil {
		aiDescription = strings.TrimSpace(*product.AIDescription)
	}
	if description == "" || aiDescription == "" {
		return nil, apperrors.Validation("both the artisan description and the AI image description are required")
	}

	k := adKey{subject, productID}
	current, err := w.current(ctx, k)
	if err != nil {
		return nil, err
	}
	if err := w.begin(k, domain.AdPreviewRequested, current); err != nil {
		return nil, err
	}

	img, err := w.generator.GenerateAdImage(ctx, genai.AdPrompt(description, aiDescription))
	if err != nil {
		w.finish(k, domain.AdGenerationFailed, current != nil)
		return nil, err
	}

	now := w.now().UTC()
	p := &domain.AdPreview{
		ID:            uuid.New().String(),
		SubjectID:     subject,
		ProductID:     productID,
		Image:         img.Data,
		ContentType:   img.ContentType,
		Description:   description,
		AIDescription: aiDescription,
		CreatedAt:     now,
		ExpiresAt:     now.Add(w.ttl),
	}
	if err := w.previews.Put(ctx, p); err != nil {
		w.finish(k, domain.AdGenerationFailed, current != nil)
		return nil, fmt.Errorf("store ad preview: %w", err)
	}
	w.finish(k, domain.AdGenerated, true)

	w.logger.InfoContext(ctx, "ad preview generated",
		slog.String("product_id", productID),
		slog.String("preview_id", p.ID),
		slog.Int("bytes", len(p.Image)),
	)
	return p, nil
}

// Commit stores the pending preview as the product image. previewID must
// name the subject's current preview.
func (w *AdWorkflow) Commit(ctx context.Context, subject, productID, previewID string) (*domain.Product, error) {
	seller, _, err := authorizeOwned(ctx, w.gate, w.products, subject, productID)
	if err != nil {
		return nil, err
	}

	k := adKey{subject, productID}
	current, err := w.current(ctx, k)
	if err != nil {
		return nil, err
	}
	if current != nil && current.ID != previewID {
		return nil, apperrors.NotFound("ad preview", previewID)
	}
	if err := w.begin(k, domain.AdCommitRequested, current); err != nil {
		return nil, err
	}

	stored, err := w.images.Ingest(ctx, ingest.Object{
		KeyFunc: func(ext string) string {
			return fmt.Sprintf("products/%s-ad-%d-%s.%s", productID, w.now().UnixMilli(), randomSuffix(), ext)
		},
		Data:   bytes.NewReader(current.Image),
		Upsert: true,
	})
	if err != nil {
		w.finish(k, domain.AdCommitFailed, true)
		return nil, err
	}

	updated, err := w.products.ApplyAdOwned(ctx, productID, seller.ID, repository.AdUpdate{
		ImageURL:      stored.URL,
		Description:   current.Description,
		AIDescription: current.AIDescription,
	})
	if err != nil {
		w.images.Remove(ctx, stored.Key)
		w.finish(k, domain.AdCommitFailed, true)
		return nil, fmt.Errorf("apply ad image: %w", err)
	}

	if err := w.previews.Delete(ctx, subject, productID); err != nil {
		w.logger.WarnContext(ctx, "failed to drop committed ad preview",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}
	w.finish(k, domain.AdCommitted, false)

	if err := w.producer.PublishAdCommitted(ctx, event.AdCommittedData{
		ProductID: productID,
		SellerID:  seller.ID,
		PreviewID: previewID,
		ImageURL:  stored.URL,
	}); err != nil {
		w.logger.WarnContext(ctx, "failed to publish product.ad_committed event",
			slog.String("product_id", productID),
			slog.String("error", err.Error()),
		)
	}

	w.logger.InfoContext(ctx, "ad committed",
		slog.String("product_id", productID),
		slog.String("preview_id", previewID),
	)
	return updated, nil
}

// Discard drops the subject's pending preview. Discarding a preview that is
// gone or was already replaced is a no-op.
func (w *AdWorkflow) Discard(ctx context.Context, subject, productID, previewID string) error {
	if _, err := w.gate.Check(ctx, subject, gate.ScopeAuthenticated, gate.Resource{}); err != nil {
		return err
	}

	k := adKey{subject, productID}
	current, err := w.current(ctx, k)
	if err != nil {
		return err
	}
	if current == nil || current.ID != previewID {
		return nil
	}
	if err := w.begin(k, domain.AdDiscarded, current); err != nil {
		return err
	}
	if err := w.previews.Delete(ctx, subject, productID); err != nil {
		return fmt.Errorf("delete ad preview: %w", err)
	}
	return nil
}

// Status reports the workflow state of (subject, product).
func (w *AdWorkflow) Status(ctx context.Context, subject, productID string) (*domain.AdStatus, error) {
	if _, err := w.gate.Check(ctx, subject, gate.ScopeAuthenticated, gate.Resource{}); err != nil {
		return nil, err
	}

	k := adKey{subject, productID}
	current, err := w.current(ctx, k)
	if err != nil {
		return nil, err
	}

	status := &domain.AdStatus{ProductID: productID, State: domain.AdIdle, Preview: current}
	if current != nil {
		status.State = domain.AdPreviewReady
	}

	w.mu.Lock()
	if st, ok := w.inflight[k]; ok {
		status.State = st
	}
	w.mu.Unlock()

	return status, nil
}

// current loads the pending preview, or nil when the slot is empty.
func (w *AdWorkflow) current(ctx context.Context, k adKey) (*domain.AdPreview, error) {
	p, err := w.previews.Get(ctx, k.subject, k.product)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load ad preview: %w", err)
	}
	return p, nil
}

// begin applies ev to the key's state. Busy target states are recorded as
// in flight until finish.
func (w *AdWorkflow) begin(k adKey, ev domain.AdEvent, current *domain.AdPreview) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	from := domain.AdIdle
	if current != nil {
		from = domain.AdPreviewReady
	}
	if st, ok := w.inflight[k]; ok {
		from = st
	}

	to, err := from.Next(ev, current != nil)
	if err != nil {
		return apperrors.Conflict(conflictMessage(from))
	}

	adTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	if to.Busy() {
		w.inflight[k] = to
	} else {
		delete(w.inflight, k)
	}
	return nil
}

// finish completes an in-flight operation on the key.
func (w *AdWorkflow) finish(k adKey, ev domain.AdEvent, hasPreview bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	from, ok := w.inflight[k]
	if !ok {
		return
	}
	delete(w.inflight, k)

	to, err := from.Next(ev, hasPreview)
	if err != nil {
		w.logger.Error("ad workflow finished from unexpected state",
			slog.String("state", string(from)),
			slog.String("event", string(ev)),
		)
		return
	}
	adTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
}

func conflictMessage(from domain.AdState) string {
	switch from {
	case domain.AdPreviewing:
		return "an ad image is already being generated for this product"
	case domain.AdCommitting:
		return "an ad image is already being committed for this product"
	case domain.AdIdle:
		return "there is no ad preview for this product"
	default:
		return "the ad workflow cannot accept this request"
	}
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
