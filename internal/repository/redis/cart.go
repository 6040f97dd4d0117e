package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/estore/internal/domain"
	"github.com/utafrali/estore/pkg/database"
	apperrors "github.com/utafrali/estore/pkg/errors"
)

const cartKeyPrefix = "cart:"

// errVersionMismatch aborts a cart write whose expected version is stale.
var errVersionMismatch = errors.New("cart version mismatch")

// CartRepository implements repository.CartRepository using Redis.
type CartRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewCartRepository creates a new Redis-backed cart repository. Every save
// refreshes the key's TTL, so carts of idle sessions expire.
func NewCartRepository(client redis.UniversalClient, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get loads the session's cart, or an empty cart when none is stored.
func (r *CartRepository) Get(ctx context.Context, sessionID string) (cart *domain.Cart, err error) {
	key := cartKeyPrefix + sessionID

	ctx, end := database.TraceCommand(ctx, "redis", "GET", "GET "+cartKeyPrefix+"*")
	defer func() { end(err) }()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.NewCart(sessionID), nil
		}
		return nil, apperrors.StoreUnavailable(fmt.Errorf("redis get cart: %w", err))
	}

	var state domain.CartState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	state.SessionID = sessionID

	return domain.RestoreCart(state), nil
}

// SaveIfVersion stores the cart only when the stored version still equals
// expectedVersion; a missing key counts as version 0. It reports false when
// another writer got there first. On success cart.Version is advanced.
func (r *CartRepository) SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (ok bool, err error) {
	key := cartKeyPrefix + cart.SessionID

	state := cart.Snapshot()
	state.Version = expectedVersion + 1
	data, err := json.Marshal(state)
	if err != nil {
		return false, fmt.Errorf("marshal cart: %w", err)
	}

	ctx, end := database.TraceCommand(ctx, "redis", "SET", "WATCH "+cartKeyPrefix+"* SET "+cartKeyPrefix+"*")
	defer func() { end(err) }()

	txf := func(tx *redis.Tx) error {
		current, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != expectedVersion {
			return errVersionMismatch
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}

	switch werr := r.client.Watch(ctx, txf, key); {
	case werr == nil:
		cart.Version = state.Version
		return true, nil
	case errors.Is(werr, errVersionMismatch), errors.Is(werr, redis.TxFailedErr):
		return false, nil
	case errors.As(werr, new(*decodeError)):
		return false, werr
	default:
		return false, apperrors.StoreUnavailable(fmt.Errorf("redis set cart: %w", werr))
	}
}

// storedVersion reads the version of the cart stored under key, 0 if none.
func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var head struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, &decodeError{err: err}
	}
	return head.Version, nil
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "unmarshal cart: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }
