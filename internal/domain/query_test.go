package domain

import (
	"net/url"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

// ============================================================================
// Query Parsing Tests
// ============================================================================

func TestParseProductQuery_Defaults(t *testing.T) {
	q := ParseProductQuery(url.Values{})

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 12, q.PageSize)
	assert.Equal(t, SortFeatured, q.Sort)
	assert.Empty(t, q.Search)
	assert.Empty(t, q.Categories)
	assert.Empty(t, q.PriceBuckets)
	assert.Nil(t, q.MinRating)
}

func TestParseProductQuery_AllParameters(t *testing.T) {
	v, err := url.ParseQuery("page=2&limit=6&sort=price-high-low&search=+wireless+" +
		"&category=electronics,home&subcategory=audio&priceRange=under-50,over-500&rating=4")
	require.NoError(t, err)

	q := ParseProductQuery(v)

	assert.Equal(t, 2, q.Page)
	assert.Equal(t, 6, q.PageSize)
	assert.Equal(t, SortPriceHighLow, q.Sort)
	assert.Equal(t, "wireless", q.Search)
	assert.Equal(t, []string{"electronics", "home"}, q.Categories)
	assert.Equal(t, []string{"audio"}, q.Subcategories)
	assert.Equal(t, []PriceBucket{PriceUnder50, PriceOver500}, q.PriceBuckets)
	require.NotNil(t, q.MinRating)
	assert.Equal(t, 4, *q.MinRating)
}

func TestParseProductQuery_LenientFallbacks(t *testing.T) {
	v, err := url.ParseQuery("page=zero&limit=-1&sort=cheapest&priceRange=free,,50-100,50-100&rating=great&category=,fashion,")
	require.NoError(t, err)

	q := ParseProductQuery(v)

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 12, q.PageSize)
	assert.Equal(t, SortFeatured, q.Sort)
	assert.Equal(t, []PriceBucket{Price50To100}, q.PriceBuckets)
	assert.Equal(t, []string{"fashion"}, q.Categories)
	assert.Nil(t, q.MinRating)
}

func TestParseProductQuery_RatingTruncatesDecimals(t *testing.T) {
	q := ParseProductQuery(url.Values{"rating": {"3.7"}})
	require.NotNil(t, q.MinRating)
	assert.Equal(t, 3, *q.MinRating)

	q = ParseProductQuery(url.Values{"rating": {"-2"}})
	assert.Nil(t, q.MinRating)
}

func TestParseSortKey(t *testing.T) {
	for _, k := range ValidSortKeys() {
		assert.Equal(t, k, ParseSortKey(string(k)))
	}
	assert.Equal(t, SortFeatured, ParseSortKey(""))
	assert.Equal(t, SortFeatured, ParseSortKey("PRICE-LOW-HIGH"))
}

// ============================================================================
// Price Bucket Tests
// ============================================================================

func TestPriceBucket_Boundaries(t *testing.T) {
	tests := []struct {
		bucket PriceBucket
		price  float64
		want   bool
	}{
		{PriceUnder50, 0, true},
		{PriceUnder50, 49.99, true},
		{PriceUnder50, 50, false},
		{Price50To100, 50, true},
		{Price50To100, 100, true},
		{Price50To100, 100.01, false},
		{Price100To200, 100, true},
		{Price100To200, 200, true},
		{Price200To500, 500, true},
		{Price200To500, 199.99, false},
		{PriceOver500, 500, false},
		{PriceOver500, 500.01, true},
		{PriceOver500, 99999, true},
	}

	for _, tt := range tests {
		r, ok := tt.bucket.Range()
		require.True(t, ok)
		assert.Equal(t, tt.want, r.Contains(tt.price), "%s contains %v", tt.bucket, tt.price)
	}
}

func TestPriceBucket_Unknown(t *testing.T) {
	_, ok := PriceBucket("cheap").Range()
	assert.False(t, ok)
}

// ============================================================================
// Filter Translation Tests
// ============================================================================

func TestProductQuery_Filter(t *testing.T) {
	q := ProductQuery{
		Page:         3,
		PageSize:     5,
		Sort:         SortNewest,
		Search:       "lamp",
		Categories:   []string{"home"},
		PriceBuckets: []PriceBucket{PriceUnder50, PriceOver500},
		MinRating:    intPtr(4),
	}

	f := q.Filter()

	assert.Equal(t, "lamp", f.Search)
	assert.Equal(t, []string{"home"}, f.Categories)
	assert.Len(t, f.PriceRanges, 2)
	assert.Equal(t, 4, *f.MinRating)
	assert.True(t, f.ActiveOnly)
	assert.Equal(t, []SortField{{Column: SortColumnCreatedAt, Desc: true}}, f.Sort)
	assert.Equal(t, 10, f.Offset)
	assert.Equal(t, 5, f.Limit)
}

func TestProductQuery_Filter_NormalizesPaging(t *testing.T) {
	f := ProductQuery{Page: -1, PageSize: 0, Sort: "bogus"}.Filter()

	assert.Equal(t, 0, f.Offset)
	assert.Equal(t, 12, f.Limit)
	assert.Equal(t, SortFeatured.Fields(), f.Sort)
}

func TestSortKey_Fields_FeaturedDefault(t *testing.T) {
	assert.Equal(t, []SortField{
		{Column: SortColumnFeatured, Desc: true},
		{Column: SortColumnCreatedAt, Desc: true},
	}, SortKey("").Fields())
}

// ============================================================================
// Filter Matching Tests
// ============================================================================

func TestProductFilter_Matches(t *testing.T) {
	p := &Product{
		Name:        "Wireless Headphones",
		Description: "Noise cancelling over-ear",
		Price:       79.99,
		Category:    CategoryElectronics,
		Subcategory: "audio",
		Rating:      4.5,
		IsActive:    true,
	}
	under50, _ := PriceUnder50.Range()
	mid, _ := Price50To100.Range()

	tests := []struct {
		name   string
		filter ProductFilter
		want   bool
	}{
		{"empty filter", ProductFilter{}, true},
		{"search name case-insensitive", ProductFilter{Search: "WIRELESS"}, true},
		{"search description", ProductFilter{Search: "over-ear"}, true},
		{"search miss", ProductFilter{Search: "toaster"}, false},
		{"category hit", ProductFilter{Categories: []string{"home", "electronics"}}, true},
		{"category miss", ProductFilter{Categories: []string{"beauty"}}, false},
		{"subcategory miss", ProductFilter{Subcategories: []string{"phones"}}, false},
		{"price union hit", ProductFilter{PriceRanges: []PriceRange{under50, mid}}, true},
		{"price miss", ProductFilter{PriceRanges: []PriceRange{under50}}, false},
		{"rating hit", ProductFilter{MinRating: intPtr(4)}, true},
		{"rating miss", ProductFilter{MinRating: intPtr(5)}, false},
		{"search and price are both required", ProductFilter{Search: "headphones", PriceRanges: []PriceRange{under50}}, false},
		{"featured only", ProductFilter{FeaturedOnly: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(p))
		})
	}
}

func TestProductFilter_Matches_ActiveOnly(t *testing.T) {
	p := &Product{Name: "Retired", IsActive: false}
	assert.False(t, ProductFilter{ActiveOnly: true}.Matches(p))
	assert.True(t, ProductFilter{}.Matches(p))
}

// ============================================================================
// Ordering Tests
// ============================================================================

func TestCompareProducts(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	products := []Product{
		{ID: "a", Price: 30, Rating: 4, CreatedAt: base, Seq: 1},
		{ID: "b", Price: 10, Rating: 5, CreatedAt: base.Add(time.Hour), Featured: true, Seq: 2},
		{ID: "c", Price: 30, Rating: 3, CreatedAt: base.Add(2 * time.Hour), Seq: 3},
		{ID: "d", Price: 20, Rating: 4, CreatedAt: base.Add(-time.Hour), Featured: true, Seq: 4},
	}

	order := func(key SortKey) []string {
		sorted := slices.Clone(products)
		slices.SortStableFunc(sorted, func(x, y Product) int {
			return CompareProducts(&x, &y, key.Fields())
		})
		ids := make([]string, len(sorted))
		for i, p := range sorted {
			ids[i] = p.ID
		}
		return ids
	}

	assert.Equal(t, []string{"b", "d", "a", "c"}, order(SortPriceLowHigh))
	assert.Equal(t, []string{"a", "c", "d", "b"}, order(SortPriceHighLow))
	assert.Equal(t, []string{"c", "b", "a", "d"}, order(SortNewest))
	assert.Equal(t, []string{"b", "a", "d", "c"}, order(SortRating))
	assert.Equal(t, []string{"b", "d", "c", "a"}, order(SortFeatured))
}

// ============================================================================
// Page Tests
// ============================================================================

func TestNewProductPage(t *testing.T) {
	page := NewProductPage([]Product{{ID: "a"}, {ID: "b"}}, ProductQuery{Page: 1, PageSize: 2}, 5)

	assert.Len(t, page.Items, 2)
	assert.Equal(t, 1, page.PageNumber)
	assert.Equal(t, 3, page.PageCount)
	assert.Equal(t, 5, page.TotalCount)
}

func TestNewProductPage_NoMatches(t *testing.T) {
	page := NewProductPage(nil, ProductQuery{Page: 1, PageSize: 12}, 0)

	require.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.PageCount)
	assert.Equal(t, 0, page.TotalCount)
}

func TestCategories(t *testing.T) {
	assert.ElementsMatch(t, []string{"electronics", "fashion", "home", "beauty"}, ValidCategories())
	assert.True(t, IsValidCategory("home"))
	assert.False(t, IsValidCategory("Home"))
}
