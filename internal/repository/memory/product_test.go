package memory

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/estore/internal/domain"
	apperrors "github.com/utafrali/estore/pkg/errors"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestProduct(name, category string, price float64) domain.Product {
	return domain.Product{
		ID:          uuid.New().String(),
		Slug:        fmt.Sprintf("%s-%s", category, name),
		Name:        name,
		Description: "A " + category + " product",
		Price:       price,
		Category:    category,
		Subcategory: "general",
		Rating:      4,
		Stock:       10,
		IsActive:    true,
		CreatedAt:   baseTime,
		UpdatedAt:   baseTime,
	}
}

// fixture holds five electronics products plus two from other categories.
func fixture(t *testing.T) *ProductRepository {
	t.Helper()
	repo := NewProductRepository()
	products := []domain.Product{
		newTestProduct("speaker", domain.CategoryElectronics, 120),
		newTestProduct("cable", domain.CategoryElectronics, 9.99),
		newTestProduct("laptop", domain.CategoryElectronics, 1299),
		newTestProduct("mouse", domain.CategoryElectronics, 49.99),
		newTestProduct("monitor", domain.CategoryElectronics, 329),
		newTestProduct("scarf", domain.CategoryFashion, 35),
		newTestProduct("lamp", domain.CategoryHome, 75),
	}
	require.Equal(t, len(products), repo.Seed(context.Background(), products))
	return repo
}

func listPage(t *testing.T, repo *ProductRepository, q domain.ProductQuery) *domain.ProductPage {
	t.Helper()
	items, total, err := repo.List(context.Background(), q.Filter())
	require.NoError(t, err)
	return domain.NewProductPage(items, q, total)
}

func names(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

// --- List ---

func TestList_CategoryPriceOrderPaged(t *testing.T) {
	repo := fixture(t)
	q := domain.ProductQuery{
		Page:       1,
		PageSize:   2,
		Sort:       domain.SortPriceLowHigh,
		Categories: []string{domain.CategoryElectronics},
	}

	page := listPage(t, repo, q)

	require.Len(t, page.Items, 2)
	assert.LessOrEqual(t, page.Items[0].Price, page.Items[1].Price)
	assert.Equal(t, []string{"cable", "mouse"}, names(page.Items))
	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 3, page.PageCount)
	assert.Equal(t, 1, page.PageNumber)

	q.Page = 3
	page = listPage(t, repo, q)
	assert.Equal(t, []string{"laptop"}, names(page.Items))
}

func TestList_PageBeyondLastIsEmpty(t *testing.T) {
	repo := fixture(t)

	page := listPage(t, repo, domain.ProductQuery{Page: 9, PageSize: 2, Categories: []string{domain.CategoryElectronics}})

	assert.Empty(t, page.Items)
	assert.Equal(t, 5, page.TotalCount)
	assert.Equal(t, 3, page.PageCount)
}

func TestList_HugePageIsEmpty(t *testing.T) {
	repo := fixture(t)

	page := listPage(t, repo, domain.ProductQuery{Page: 1537228672809129302, PageSize: 12})
	assert.Empty(t, page.Items)
	assert.Equal(t, 1537228672809129302, page.PageNumber)

	items, total, err := repo.List(context.Background(), domain.ProductFilter{Limit: 12, Offset: math.MaxInt, ActiveOnly: true})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Positive(t, total)
}

func TestList_PriceBucketsUnion(t *testing.T) {
	repo := fixture(t)

	page := listPage(t, repo, domain.ProductQuery{
		PageSize:     50,
		Sort:         domain.SortPriceLowHigh,
		PriceBuckets: []domain.PriceBucket{domain.PriceUnder50, domain.PriceOver500},
	})

	assert.Equal(t, []string{"cable", "scarf", "mouse", "laptop"}, names(page.Items))
	for _, p := range page.Items {
		assert.True(t, p.Price < 50 || p.Price > 500, "%s priced %v is inside the excluded band", p.Name, p.Price)
	}
}

func TestList_NonexistentCategory(t *testing.T) {
	repo := fixture(t)

	page := listPage(t, repo, domain.ProductQuery{Categories: []string{"toys"}})

	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.TotalCount)
	assert.Equal(t, 0, page.PageCount)
}

func TestList_SearchAndPriceBothApply(t *testing.T) {
	repo := fixture(t)

	page := listPage(t, repo, domain.ProductQuery{
		Search:       "ELECTRONICS",
		PriceBuckets: []domain.PriceBucket{domain.Price100To200},
	})

	assert.Equal(t, []string{"speaker"}, names(page.Items))
}

func TestList_SkipsInactive(t *testing.T) {
	repo := NewProductRepository()
	hidden := newTestProduct("hidden", domain.CategoryHome, 10)
	hidden.IsActive = false
	repo.Seed(context.Background(), []domain.Product{hidden, newTestProduct("shown", domain.CategoryHome, 10)})

	page := listPage(t, repo, domain.ProductQuery{})

	assert.Equal(t, []string{"shown"}, names(page.Items))
}

func TestList_FeaturedDefaultOrderTiesByInsertion(t *testing.T) {
	repo := NewProductRepository()
	a := newTestProduct("a", domain.CategoryHome, 10)
	b := newTestProduct("b", domain.CategoryHome, 10)
	b.Featured = true
	c := newTestProduct("c", domain.CategoryHome, 10)
	d := newTestProduct("d", domain.CategoryHome, 10)
	d.CreatedAt = baseTime.Add(time.Hour)
	repo.Seed(context.Background(), []domain.Product{a, b, c, d})

	page := listPage(t, repo, domain.ProductQuery{})

	assert.Equal(t, []string{"b", "d", "a", "c"}, names(page.Items))
}

func TestList_FeaturedFilter(t *testing.T) {
	repo := NewProductRepository()
	a := newTestProduct("a", domain.CategoryHome, 10)
	b := newTestProduct("b", domain.CategoryHome, 10)
	b.Featured = true
	repo.Seed(context.Background(), []domain.Product{a, b})

	items, total, err := repo.List(context.Background(), domain.FeaturedFilter())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, []string{"b"}, names(items))
}

// --- CRUD ---

func TestCreate_DuplicateSlug(t *testing.T) {
	repo := NewProductRepository()
	p := newTestProduct("x", domain.CategoryHome, 1)
	require.NoError(t, repo.Create(context.Background(), &p))

	dup := newTestProduct("x", domain.CategoryHome, 1)
	err := repo.Create(context.Background(), &dup)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestGetAndDelete(t *testing.T) {
	repo := NewProductRepository()
	ctx := context.Background()
	p := newTestProduct("x", domain.CategoryHome, 1)
	require.NoError(t, repo.Create(ctx, &p))
	assert.Equal(t, int64(1), p.Seq)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)

	got, err = repo.GetBySlug(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.GetBySlug(ctx, p.Slug)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), apperrors.ErrNotFound)
	assert.NoError(t, repo.Ping(ctx))
}

func TestConcurrentReadsAndWrites(t *testing.T) {
	repo := fixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			p := newTestProduct(fmt.Sprintf("extra-%d", i), domain.CategoryBeauty, float64(i))
			assert.NoError(t, repo.Create(ctx, &p))
		}(i)
		go func() {
			defer wg.Done()
			_, _, err := repo.List(ctx, domain.ProductQuery{}.Filter())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, total, err := repo.List(ctx, domain.ProductQuery{Categories: []string{domain.CategoryBeauty}}.Filter())
	require.NoError(t, err)
	assert.Equal(t, 8, total)
}
