package repository

import (
	"context"

	"github.com/utafrali/estore/internal/domain"
)

// ProductRepository defines the catalog store. Implementations report an
// unreachable store as apperrors.StoreUnavailable and any other query failure
// as apperrors.QueryFailed.
type ProductRepository interface {
	// Create inserts a new product into the store.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetBySlug retrieves a product by its URL-friendly slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// List returns one window of the products matching filter, ordered by
	// filter.Sort, along with the number of matches across all windows.
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)

	// Delete removes a product from the store by its identifier.
	Delete(ctx context.Context, id string) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// CartRepository persists one cart per browser session.
type CartRepository interface {
	// Get loads the session's cart. A session without a stored cart gets an
	// empty one.
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)

	// SaveIfVersion stores the cart and refreshes its expiry, but only when
	// the stored version still equals expectedVersion (0 for a cart that was
	// never stored). It returns false, nil when the version moved on.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error)
}

// SessionRepository stores signed-in sessions keyed by token.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
}
