package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/estore/internal/domain"
	pkgkafka "github.com/utafrali/estore/pkg/kafka"
	"github.com/utafrali/estore/pkg/logger"
)

// Kafka topics for storefront domain events.
const (
	TopicProductCreated = "estore.product.created"
	TopicProductDeleted = "estore.product.deleted"
	TopicCartUpdated    = "estore.cart.updated"
	TopicCartCleared    = "estore.cart.cleared"
)

// Aggregate types.
const (
	AggregateTypeProduct = "product"
	AggregateTypeCart    = "cart"
)

// SourceStorefront identifies events emitted by this service.
const SourceStorefront = "estore"

// ProductCreatedData is the payload for a product.created event.
type ProductCreatedData struct {
	ID          string  `json:"id"`
	Slug        string  `json:"slug"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Featured    bool    `json:"featured"`
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	SessionID string          `json:"session_id"`
	Change    string          `json:"change"`
	ProductID string          `json:"product_id,omitempty"`
	Quantity  int             `json:"quantity,omitempty"`
	PromoCode string          `json:"promo_code,omitempty"`
	ItemCount int             `json:"item_count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Total     decimal.Decimal `json:"total"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	SessionID string `json:"session_id"`
}

// Publisher writes an event envelope to a topic. *pkgkafka.Producer
// implements it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront domain events. A Producer without a
// publisher drops events, which is how the service runs without Kafka.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer. publisher may be nil.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// Enabled reports whether events are actually sent.
func (p *Producer) Enabled() bool {
	return p != nil && p.publisher != nil
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if !p.Enabled() {
		return nil
	}

	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, product.ID, AggregateTypeProduct, ProductCreatedData{
		ID:          product.ID,
		Slug:        product.Slug,
		Name:        product.Name,
		Category:    product.Category,
		Subcategory: product.Subcategory,
		Price:       product.Price,
		Stock:       product.Stock,
		Featured:    product.Featured,
	})
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TopicProductDeleted, id, AggregateTypeProduct, ProductDeletedData{ID: id})
}

// PublishCartChange publishes the event matching a cart change: cart.cleared
// for a clear, cart.updated for everything else.
func (p *Producer) PublishCartChange(ctx context.Context, cart *domain.Cart, change domain.CartChange) error {
	if change.Kind == domain.ChangeCleared {
		return p.publish(ctx, TopicCartCleared, cart.SessionID, AggregateTypeCart, CartClearedData{SessionID: cart.SessionID})
	}

	summary := cart.OrderSummary()
	return p.publish(ctx, TopicCartUpdated, cart.SessionID, AggregateTypeCart, CartUpdatedData{
		SessionID: cart.SessionID,
		Change:    string(change.Kind),
		ProductID: change.ProductID,
		Quantity:  change.Quantity,
		PromoCode: change.PromoCode,
		ItemCount: cart.ItemCount(),
		Subtotal:  summary.Subtotal,
		Total:     summary.Total,
	})
}
