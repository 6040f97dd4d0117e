package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/estore/internal/domain"
	apperrors "github.com/utafrali/estore/pkg/errors"
)

// BreakerConfig holds configuration for the catalog circuit breaker.
type BreakerConfig struct {
	// Name identifies this breaker in metrics and logs.
	Name string

	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32

	// Interval is the cyclic period of the closed state for clearing counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once this share of requests failed.
	FailureRatio float64

	// MinRequests is the minimum number of requests before the ratio is evaluated.
	MinRequests uint32
}

// DefaultBreakerConfig returns the defaults used for the catalog store.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "catalog-store",
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

var breakerState = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "store_circuit_breaker_state",
		Help: "Current state of the store circuit breaker (0=closed, 1=half-open, 2=open)",
	},
	[]string{"name"},
)

func init() {
	prometheus.MustRegister(breakerState)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// BreakerProductRepository guards a ProductRepository with a circuit breaker.
// Only unreachable-store errors count as failures; not-found results and
// rejected queries leave the breaker closed. While open, calls fail fast with
// apperrors.StoreUnavailable.
type BreakerProductRepository struct {
	next    ProductRepository
	breaker *gobreaker.CircuitBreaker[any]
}

// NewBreakerProductRepository wraps next with a circuit breaker.
func NewBreakerProductRepository(next ProductRepository, cfg BreakerConfig, logger *slog.Logger) *BreakerProductRepository {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, apperrors.ErrServiceUnavail)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			breakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}

	breakerState.WithLabelValues(cfg.Name).Set(0)

	return &BreakerProductRepository{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// State returns the current breaker state.
func (r *BreakerProductRepository) State() gobreaker.State {
	return r.breaker.State()
}

func guarded[T any](r *BreakerProductRepository, fn func() (T, error)) (T, error) {
	v, err := r.breaker.Execute(func() (any, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, apperrors.StoreUnavailable(err)
	}
	t, _ := v.(T)
	return t, err
}

type listResult struct {
	products []domain.Product
	total    int
}

func (r *BreakerProductRepository) Create(ctx context.Context, product *domain.Product) error {
	_, err := guarded(r, func() (struct{}, error) {
		return struct{}{}, r.next.Create(ctx, product)
	})
	return err
}

func (r *BreakerProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return guarded(r, func() (*domain.Product, error) {
		return r.next.GetByID(ctx, id)
	})
}

func (r *BreakerProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return guarded(r, func() (*domain.Product, error) {
		return r.next.GetBySlug(ctx, slug)
	})
}

func (r *BreakerProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	res, err := guarded(r, func() (listResult, error) {
		products, total, err := r.next.List(ctx, filter)
		return listResult{products: products, total: total}, err
	})
	return res.products, res.total, err
}

func (r *BreakerProductRepository) Delete(ctx context.Context, id string) error {
	_, err := guarded(r, func() (struct{}, error) {
		return struct{}{}, r.next.Delete(ctx, id)
	})
	return err
}

// Ping bypasses the breaker so readiness reflects the store itself.
func (r *BreakerProductRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}
