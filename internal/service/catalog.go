package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/estore/internal/domain"
	"github.com/utafrali/estore/internal/event"
	"github.com/utafrali/estore/internal/repository"
	apperrors "github.com/utafrali/estore/pkg/errors"
	"github.com/utafrali/estore/pkg/slug"
)

// CatalogService implements product browsing and catalog administration.
type CatalogService struct {
	repo     repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name          string
	Description   string
	Price         float64
	OriginalPrice *float64
	Images        []string
	Category      string
	Subcategory   string
	Stock         int
	Featured      bool
	Colors        []domain.Color
	Sizes         []string
	Tags          []string
}

// ListProducts runs a listing query and assembles the page. Store failures
// are returned as-is so the caller can tell an unreachable store from a
// failed query.
func (s *CatalogService) ListProducts(ctx context.Context, q domain.ProductQuery) (*domain.ProductPage, error) {
	q = q.Normalize()

	items, total, err := s.repo.List(ctx, q.Filter())
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return domain.NewProductPage(items, q, total), nil
}

// FeaturedProducts returns every active featured product.
func (s *CatalogService) FeaturedProducts(ctx context.Context) ([]domain.Product, error) {
	items, _, err := s.repo.List(ctx, domain.FeaturedFilter())
	if err != nil {
		return nil, fmt.Errorf("list featured products: %w", err)
	}
	if items == nil {
		items = []domain.Product{}
	}
	return items, nil
}

// GetProduct looks a product up by UUID or, failing that, by slug. Inactive
// products are reported as not found.
func (s *CatalogService) GetProduct(ctx context.Context, idOrSlug string) (*domain.Product, error) {
	var (
		product *domain.Product
		err     error
	)
	if _, perr := uuid.Parse(idOrSlug); perr == nil {
		product, err = s.repo.GetByID(ctx, idOrSlug)
	} else {
		product, err = s.repo.GetBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	if !product.IsActive {
		return nil, apperrors.NotFound("product", idOrSlug)
	}
	return product, nil
}

// CreateProduct validates input, stores a new active product and publishes
// product.created. A slug collision is retried once with an id suffix.
func (s *CatalogService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if input.OriginalPrice != nil && *input.OriginalPrice < 0 {
		return nil, apperrors.InvalidInput("original price must not be negative")
	}
	if input.Stock < 0 {
		return nil, apperrors.InvalidInput("stock must not be negative")
	}
	if !domain.IsValidCategory(input.Category) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("category must be one of %s", strings.Join(domain.ValidCategories(), ", ")))
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:            uuid.New().String(),
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Price:         input.Price,
		OriginalPrice: input.OriginalPrice,
		Images:        input.Images,
		Category:      input.Category,
		Subcategory:   input.Subcategory,
		Stock:         input.Stock,
		Featured:      input.Featured,
		Colors:        input.Colors,
		Sizes:         input.Sizes,
		Tags:          input.Tags,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	product.Slug = slug.Generate(product.Name)

	err := s.repo.Create(ctx, product)
	if errors.Is(err, apperrors.ErrAlreadyExists) {
		product.Slug = slug.WithSuffix(product.Slug, product.ID)
		err = s.repo.Create(ctx, product)
	}
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

// DeleteProduct removes a product and publishes product.deleted.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if err := s.producer.PublishProductDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

// Seed inserts the given products in order, skipping any whose slug is
// already taken. It returns the number of products inserted.
func (s *CatalogService) Seed(ctx context.Context, products []domain.Product) (int, error) {
	inserted := 0
	base := time.Now().UTC()

	for i := range products {
		p := products[i]
		if p.Slug == "" {
			p.Slug = slug.Generate(p.Name)
		}

		_, err := s.repo.GetBySlug(ctx, p.Slug)
		if err == nil {
			continue
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return inserted, fmt.Errorf("seed product %q: %w", p.Slug, err)
		}

		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.CreatedAt.IsZero() {
			// Keep the listed order visible under the "newest" sort.
			p.CreatedAt = base.Add(-time.Duration(i) * time.Minute)
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}

		if err := s.repo.Create(ctx, &p); err != nil {
			if errors.Is(err, apperrors.ErrAlreadyExists) {
				continue
			}
			return inserted, fmt.Errorf("seed product %q: %w", p.Slug, err)
		}
		inserted++
	}

	if inserted > 0 {
		s.logger.InfoContext(ctx, "catalog seeded", slog.Int("products", inserted))
	}
	return inserted, nil
}

// Ping checks the catalog store.
func (s *CatalogService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
