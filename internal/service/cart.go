package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/utafrali/estore/internal/domain"
	"github.com/utafrali/estore/internal/event"
	"github.com/utafrali/estore/internal/repository"
	apperrors "github.com/utafrali/estore/pkg/errors"
)

// maxCartWriteAttempts bounds how often a cart operation is replayed after
// losing a race with a concurrent write to the same session.
const maxCartWriteAttempts = 10

// CartService applies cart operations to the cart stored for a browser
// session. Each call loads the cart, applies one operation, saves it when it
// changed and publishes the resulting changes.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts repository.CartRepository, products repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		producer: producer,
		logger:   logger,
	}
}

// AddItemInput holds the parameters for adding a product to the cart.
type AddItemInput struct {
	ProductID string
	Quantity  int
	Color     string
	Size      string
}

// CartView is a cart together with its derived values.
type CartView struct {
	SessionID string              `json:"session_id"`
	Lines     []domain.CartLine   `json:"lines"`
	ItemCount int                 `json:"item_count"`
	PromoCode *domain.PromoCode   `json:"promo_code,omitempty"`
	Summary   domain.OrderSummary `json:"summary"`
}

func newCartView(c *domain.Cart) *CartView {
	return &CartView{
		SessionID: c.SessionID,
		Lines:     c.Lines(),
		ItemCount: c.ItemCount(),
		PromoCode: c.PromoCode(),
		Summary:   c.OrderSummary(),
	}
}

// GetCart returns the session's cart.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*CartView, error) {
	cart, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return newCartView(cart), nil
}

// AddItem adds a catalog product to the cart. The unit price and name come
// from the catalog, not from the caller.
func (s *CartService) AddItem(ctx context.Context, sessionID string, input *AddItemInput) (*CartView, error) {
	if input.Quantity < 1 {
		return nil, apperrors.InvalidInput("quantity must be at least 1")
	}
	if input.Quantity > domain.MaxLineQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", domain.MaxLineQuantity))
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("look up product: %w", err)
	}
	if !product.IsActive {
		return nil, apperrors.NotFound("product", input.ProductID)
	}

	var attrs *domain.LineAttributes
	if input.Color != "" || input.Size != "" {
		attrs = &domain.LineAttributes{Color: input.Color, Size: input.Size}
	}

	return s.mutate(ctx, sessionID, func(c *domain.Cart) error {
		if idx := c.FindLineIndex(product.ID); idx >= 0 && c.Lines()[idx].Quantity+input.Quantity > domain.MaxLineQuantity {
			return apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", domain.MaxLineQuantity))
		}
		c.AddItemWithAttributes(*product, input.Quantity, attrs)
		return nil
	})
}

// UpdateQuantity sets a line's quantity; a quantity below 1 removes it.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*CartView, error) {
	if quantity > domain.MaxLineQuantity {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", domain.MaxLineQuantity))
	}
	return s.mutate(ctx, sessionID, func(c *domain.Cart) error {
		c.UpdateQuantity(productID, quantity)
		return nil
	})
}

// RemoveItem removes a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (*CartView, error) {
	return s.mutate(ctx, sessionID, func(c *domain.Cart) error {
		c.RemoveItem(productID)
		return nil
	})
}

// Clear empties the cart and drops its promo code. The empty cart is still
// written with a new version so that stale writers keep losing the race.
func (s *CartService) Clear(ctx context.Context, sessionID string) (*CartView, error) {
	return s.mutate(ctx, sessionID, func(c *domain.Cart) error {
		c.Clear()
		return nil
	})
}

// ApplyPromoCode applies a promo code. An unknown code still clears the
// previously applied one before the error is returned.
func (s *CartService) ApplyPromoCode(ctx context.Context, sessionID, code string) (*CartView, error) {
	return s.mutate(ctx, sessionID, func(c *domain.Cart) error {
		if err := c.ApplyPromoCode(code); err != nil {
			if errors.Is(err, domain.ErrInvalidPromoCode) {
				return apperrors.InvalidInput("invalid promo code")
			}
			return err
		}
		return nil
	})
}

// ClearPromoCode removes the applied promo code.
func (s *CartService) ClearPromoCode(ctx context.Context, sessionID string) (*CartView, error) {
	return s.mutate(ctx, sessionID, func(c *domain.Cart) error {
		c.ClearPromoCode()
		return nil
	})
}

// mutate loads the cart, applies op and writes the result back with a version
// check. When another request wrote the cart in between, op is replayed on
// the fresh cart, up to maxCartWriteAttempts times.
func (s *CartService) mutate(ctx context.Context, sessionID string, op func(*domain.Cart) error) (*CartView, error) {
	for attempt := 1; attempt <= maxCartWriteAttempts; attempt++ {
		cart, err := s.carts.Get(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("get cart: %w", err)
		}
		expectedVersion := cart.Version

		var changes []domain.CartChange
		unsubscribe := cart.Subscribe(func(ch domain.CartChange) {
			changes = append(changes, ch)
		})
		opErr := op(cart)
		unsubscribe()

		if len(changes) > 0 {
			saved, err := s.carts.SaveIfVersion(ctx, cart, expectedVersion)
			if err != nil {
				return nil, fmt.Errorf("save cart: %w", err)
			}
			if !saved {
				s.logger.DebugContext(ctx, "cart write conflict, retrying",
					slog.Int("attempt", attempt),
					slog.Int("expected_version", expectedVersion),
				)
				continue
			}
			s.publishChanges(ctx, cart, changes)
		}

		if opErr != nil {
			return nil, opErr
		}
		return newCartView(cart), nil
	}

	s.logger.WarnContext(ctx, "cart write abandoned after repeated conflicts",
		slog.Int("attempts", maxCartWriteAttempts),
	)
	return nil, apperrors.Conflict("cart was modified concurrently, please retry")
}

func (s *CartService) publishChanges(ctx context.Context, cart *domain.Cart, changes []domain.CartChange) {
	for _, ch := range changes {
		if err := s.producer.PublishCartChange(ctx, cart, ch); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish cart event",
				slog.String("change", string(ch.Kind)),
				slog.String("error", err.Error()),
			)
		}
	}
	s.logger.DebugContext(ctx, "cart updated",
		slog.Int("changes", len(changes)),
		slog.Int("item_count", cart.ItemCount()),
		slog.Int("version", cart.Version),
	)
}
