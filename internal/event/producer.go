package event

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/iamsyg/artisian-dashboard/internal/domain"
	pkgkafka "github.com/iamsyg/artisian-dashboard/pkg/kafka"
	"github.com/iamsyg/artisian-dashboard/pkg/logger"
)

// Event types. Each is published on the topic "marketplace." + type.
const (
	ProductCreated     = "product.created"
	ProductUpdated     = "product.updated"
	ProductDeleted     = "product.deleted"
	ProductEnriched    = "product.enriched"
	ProductAdCommitted = "product.ad_committed"
	SellerRegistered   = "seller.registered"
	SellerUpdated      = "seller.updated"
	AccountDeleted     = "account.deleted"
)

// Aggregate type constants.
const (
	AggregateTypeProduct = "product"
	AggregateTypeSeller  = "seller"
	AggregateTypeAccount = "account"
)

// SourceMarketplace identifies events originating from this service.
const SourceMarketplace = "marketplace"

// Topic returns the Kafka topic of an event type.
func Topic(eventType string) string {
	return "marketplace." + eventType
}

// ProductData is the payload of product.created and product.updated.
type ProductData struct {
	ID       string  `json:"id"`
	SellerID string  `json:"seller_id"`
	UserID   string  `json:"user_id"`
	Name     string  `json:"name"`
	Price    string  `json:"price"`
	ImageURL *string `json:"image_url,omitempty"`
	Language *string `json:"language,omitempty"`
}

// ProductDeletedData is the payload of product.deleted.
type ProductDeletedData struct {
	ID       string `json:"id"`
	SellerID string `json:"seller_id"`
}

// ProductEnrichedData is the payload of product.enriched.
type ProductEnrichedData struct {
	ID            string `json:"id"`
	AIDescription string `json:"ai_description"`
}

// AdCommittedData is the payload of product.ad_committed.
type AdCommittedData struct {
	ProductID string `json:"product_id"`
	SellerID  string `json:"seller_id"`
	PreviewID string `json:"preview_id"`
	ImageURL  string `json:"image_url"`
}

// SellerData is the payload of seller.registered and seller.updated.
type SellerData struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	IsSeller    bool   `json:"is_seller"`
}

// AccountDeletedData is the payload of account.deleted.
type AccountDeletedData struct {
	UserID string `json:"user_id"`
}

// Sink delivers an event envelope. *pkgkafka.Producer satisfies it.
type Sink interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

type nopSink struct{}

func (nopSink) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

// Producer publishes marketplace domain events.
type Producer struct {
	sink   Sink
	logger *slog.Logger
}

// NewProducer creates a producer writing to sink.
func NewProducer(sink Sink, logger *slog.Logger) *Producer {
	return &Producer{sink: sink, logger: logger}
}

// NewNopProducer creates a producer that drops every event, used when no
// brokers are configured.
func NewNopProducer(logger *slog.Logger) *Producer {
	return &Producer{sink: nopSink{}, logger: logger}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, ProductCreated, product.ID, AggregateTypeProduct, productData(product))
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, ProductUpdated, product.ID, AggregateTypeProduct, productData(product))
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id, sellerID string) error {
	return p.publish(ctx, ProductDeleted, id, AggregateTypeProduct, ProductDeletedData{ID: id, SellerID: sellerID})
}

// PublishProductEnriched publishes a product.enriched event.
func (p *Producer) PublishProductEnriched(ctx context.Context, id, aiDescription string) error {
	return p.publish(ctx, ProductEnriched, id, AggregateTypeProduct, ProductEnrichedData{ID: id, AIDescription: aiDescription})
}

// PublishAdCommitted publishes a product.ad_committed event.
func (p *Producer) PublishAdCommitted(ctx context.Context, data AdCommittedData) error {
	return p.publish(ctx, ProductAdCommitted, data.ProductID, AggregateTypeProduct, data)
}

// PublishSellerRegistered publishes a seller.registered event.
func (p *Producer) PublishSellerRegistered(ctx context.Context, s *domain.Seller) error {
	return p.publish(ctx, SellerRegistered, s.ID, AggregateTypeSeller, sellerData(s))
}

// PublishSellerUpdated publishes a seller.updated event.
func (p *Producer) PublishSellerUpdated(ctx context.Context, s *domain.Seller) error {
	return p.publish(ctx, SellerUpdated, s.ID, AggregateTypeSeller, sellerData(s))
}

// PublishAccountDeleted publishes an account.deleted event.
func (p *Producer) PublishAccountDeleted(ctx context.Context, userID string) error {
	return p.publish(ctx, AccountDeleted, userID, AggregateTypeAccount, AccountDeletedData{UserID: userID})
}

func (p *Producer) publish(ctx context.Context, eventType, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(eventType, aggregateID, aggregateType, SourceMarketplace, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx)).
		WithActor(logger.SubjectIDFromContext(ctx))
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		event.WithMetadata("trace_id", sc.TraceID().String())
	}

	if err := p.sink.Publish(ctx, Topic(eventType), event); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("event_type", eventType),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

func productData(p *domain.Product) ProductData {
	return ProductData{
		ID:       p.ID,
		SellerID: p.SellerID,
		UserID:   p.UserID,
		Name:     p.Name,
		Price:    p.Price.StringFixed(2),
		ImageURL: p.ImageURL,
		Language: p.Language,
	}
}

func sellerData(s *domain.Seller) SellerData {
	return SellerData{ID: s.ID, UserID: s.UserID, DisplayName: s.DisplayName, IsSeller: s.IsSeller}
}
