package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/utafrali/estore/internal/domain"
	apperrors "github.com/utafrali/estore/pkg/errors"
)

// ProductRepository is an in-process catalog store. It evaluates the same
// filters as the PostgreSQL store and is safe for concurrent use.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	slugs    map[string]string
	seq      int64
}

// NewProductRepository creates an empty in-memory catalog.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		products: make(map[string]domain.Product),
		slugs:    make(map[string]string),
	}
}

// Create stores a copy of the product and assigns its insertion sequence.
func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[p.ID]; ok {
		return apperrors.AlreadyExists("product", "id", p.ID)
	}
	if _, ok := r.slugs[p.Slug]; ok {
		return apperrors.AlreadyExists("product", "slug", p.Slug)
	}

	r.seq++
	p.Seq = r.seq
	r.products[p.ID] = *p
	r.slugs[p.Slug] = p.ID
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, apperrors.NotFound("product", id)
	}
	return &p, nil
}

// GetBySlug retrieves a product by its slug.
func (r *ProductRepository) GetBySlug(_ context.Context, slug string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.slugs[slug]
	if !ok {
		return nil, apperrors.NotFound("product", slug)
	}
	p := r.products[id]
	return &p, nil
}

// List filters, sorts and windows the catalog.
func (r *ProductRepository) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	r.mu.RLock()
	matched := make([]domain.Product, 0)
	for _, p := range r.products {
		if filter.Matches(&p) {
			matched = append(matched, p)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(matched, func(a, b domain.Product) int {
		return domain.CompareProducts(&a, &b, filter.Sort)
	})

	total := len(matched)
	if filter.Limit <= 0 {
		return matched, total, nil
	}

	offset := min(max(filter.Offset, 0), total)
	end := offset + min(filter.Limit, total-offset)

	return matched[offset:end], total, nil
}

// Delete removes a product by ID.
func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return apperrors.NotFound("product", id)
	}
	delete(r.products, id)
	delete(r.slugs, p.Slug)
	return nil
}

// Ping always succeeds.
func (r *ProductRepository) Ping(_ context.Context) error {
	return nil
}

// Seed loads products in order, skipping any whose id or slug is taken.
func (r *ProductRepository) Seed(ctx context.Context, products []domain.Product) int {
	n := 0
	for i := range products {
		p := products[i]
		if err := r.Create(ctx, &p); err == nil {
			n++
		}
	}
	return n
}
