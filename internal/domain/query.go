package domain

import (
	"cmp"
	"net/url"
	"strconv"
	"strings"

	"github.com/utafrali/estore/pkg/pagination"
)

// SortKey selects the ordering of a product listing.
type SortKey string

// Sort keys accepted by the listing endpoint.
const (
	SortFeatured     SortKey = "featured"
	SortPriceLowHigh SortKey = "price-low-high"
	SortPriceHighLow SortKey = "price-high-low"
	SortNewest       SortKey = "newest"
	SortRating       SortKey = "rating"
)

// ValidSortKeys returns every recognised sort key.
func ValidSortKeys() []SortKey {
	return []SortKey{SortFeatured, SortPriceLowHigh, SortPriceHighLow, SortNewest, SortRating}
}

// ParseSortKey maps a raw query value to a SortKey. Unknown or empty values
// fall back to SortFeatured.
func ParseSortKey(raw string) SortKey {
	for _, k := range ValidSortKeys() {
		if string(k) == raw {
			return k
		}
	}
	return SortFeatured
}

// SortColumn is a product attribute a listing can be ordered by.
type SortColumn string

const (
	SortColumnPrice     SortColumn = "price"
	SortColumnCreatedAt SortColumn = "created_at"
	SortColumnRating    SortColumn = "rating"
	SortColumnFeatured  SortColumn = "featured"
)

// SortField is one ORDER BY term.
type SortField struct {
	Column SortColumn
	Desc   bool
}

// Fields expands the key into ordered sort terms. Stores append their
// insertion order as the final tiebreak.
func (k SortKey) Fields() []SortField {
	switch k {
	case SortPriceLowHigh:
		return []SortField{{Column: SortColumnPrice}}
	case SortPriceHighLow:
		return []SortField{{Column: SortColumnPrice, Desc: true}}
	case SortNewest:
		return []SortField{{Column: SortColumnCreatedAt, Desc: true}}
	case SortRating:
		return []SortField{{Column: SortColumnRating, Desc: true}}
	default:
		return []SortField{
			{Column: SortColumnFeatured, Desc: true},
			{Column: SortColumnCreatedAt, Desc: true},
		}
	}
}

// PriceBucket names a fixed price range offered as a filter option.
type PriceBucket string

const (
	PriceUnder50  PriceBucket = "under-50"
	Price50To100  PriceBucket = "50-100"
	Price100To200 PriceBucket = "100-200"
	Price200To500 PriceBucket = "200-500"
	PriceOver500  PriceBucket = "over-500"
)

// PriceRange is a price interval. Bounded is false for open-ended ranges.
type PriceRange struct {
	Min          float64
	Max          float64
	MinExclusive bool
	MaxExclusive bool
	Bounded      bool
}

// Contains reports whether price lies inside the range.
func (r PriceRange) Contains(price float64) bool {
	if r.MinExclusive {
		if price <= r.Min {
			return false
		}
	} else if price < r.Min {
		return false
	}

	if !r.Bounded {
		return true
	}
	if r.MaxExclusive {
		return price < r.Max
	}
	return price <= r.Max
}

var priceBuckets = map[PriceBucket]PriceRange{
	PriceUnder50:  {Min: 0, Max: 50, MaxExclusive: true, Bounded: true},
	Price50To100:  {Min: 50, Max: 100, Bounded: true},
	Price100To200: {Min: 100, Max: 200, Bounded: true},
	Price200To500: {Min: 200, Max: 500, Bounded: true},
	PriceOver500:  {Min: 500, MinExclusive: true},
}

// Range returns the price interval of the bucket and whether the bucket is known.
func (b PriceBucket) Range() (PriceRange, bool) {
	r, ok := priceBuckets[b]
	return r, ok
}

// ProductQuery is the typed form of a product listing request.
type ProductQuery struct {
	Page          int
	PageSize      int
	Sort          SortKey
	Search        string
	Categories    []string
	Subcategories []string
	PriceBuckets  []PriceBucket
	MinRating     *int
}

// ParseProductQuery reads a listing request from URL query values. Nothing in
// it fails: unparsable page, limit or rating values, unknown sort keys and
// unknown bucket names are replaced by their defaults or dropped.
func ParseProductQuery(values url.Values) ProductQuery {
	p := pagination.FromValues(values)

	q := ProductQuery{
		Page:          p.Page,
		PageSize:      p.Limit,
		Sort:          ParseSortKey(values.Get("sort")),
		Search:        strings.TrimSpace(values.Get("search")),
		Categories:    splitList(values.Get("category")),
		Subcategories: splitList(values.Get("subcategory")),
	}

	for _, name := range splitList(values.Get("priceRange")) {
		b := PriceBucket(name)
		if _, ok := b.Range(); ok {
			q.PriceBuckets = append(q.PriceBuckets, b)
		}
	}

	if rating, ok := parseRating(values.Get("rating")); ok {
		q.MinRating = &rating
	}

	return q
}

// parseRating accepts integers and truncates decimals ("4.5" means 4).
func parseRating(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return v, v >= MinProductRating
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f >= MinProductRating {
		return int(f), true
	}
	return 0, false
}

// splitList splits a comma-separated value, dropping blanks and duplicates.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, dup := seen[part]; dup {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

// Normalize replaces out-of-range paging and sort values with defaults.
func (q ProductQuery) Normalize() ProductQuery {
	if q.Page < 1 {
		q.Page = pagination.DefaultPage
	}
	if q.PageSize < 1 {
		q.PageSize = pagination.DefaultLimit
	}
	q.Sort = ParseSortKey(string(q.Sort))
	return q
}

// ProductFilter is the store-independent form of a listing: predicates,
// ordering and the window to return. A zero Limit means no limit.
type ProductFilter struct {
	Search        string
	Categories    []string
	Subcategories []string
	PriceRanges   []PriceRange
	MinRating     *int
	ActiveOnly    bool
	FeaturedOnly  bool
	Sort          []SortField
	Offset        int
	Limit         int
}

// Filter translates the query into a ProductFilter. It is pure; the search
// group and the price group are ANDed together.
func (q ProductQuery) Filter() ProductFilter {
	q = q.Normalize()

	f := ProductFilter{
		Search:        q.Search,
		Categories:    q.Categories,
		Subcategories: q.Subcategories,
		MinRating:     q.MinRating,
		ActiveOnly:    true,
		Sort:          q.Sort.Fields(),
		Offset:        pagination.Params{Page: q.Page, Limit: q.PageSize}.Offset(),
		Limit:         q.PageSize,
	}
	for _, b := range q.PriceBuckets {
		if r, ok := b.Range(); ok {
			f.PriceRanges = append(f.PriceRanges, r)
		}
	}
	return f
}

// FeaturedFilter selects every active featured product in default order.
func FeaturedFilter() ProductFilter {
	return ProductFilter{
		ActiveOnly:   true,
		FeaturedOnly: true,
		Sort:         SortFeatured.Fields(),
	}
}

// Matches evaluates the filter predicates against a single product.
func (f ProductFilter) Matches(p *Product) bool {
	if f.ActiveOnly && !p.IsActive {
		return false
	}
	if f.FeaturedOnly && !p.Featured {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			return false
		}
	}
	if len(f.Categories) > 0 && !containsString(f.Categories, p.Category) {
		return false
	}
	if len(f.Subcategories) > 0 && !containsString(f.Subcategories, p.Subcategory) {
		return false
	}
	if len(f.PriceRanges) > 0 {
		inAny := false
		for _, r := range f.PriceRanges {
			if r.Contains(p.Price) {
				inAny = true
				break
			}
		}
		if !inAny {
			return false
		}
	}
	if f.MinRating != nil && p.Rating < float64(*f.MinRating) {
		return false
	}
	return true
}

// CompareProducts orders a and b by the given sort fields, then by insertion
// sequence. It returns a negative number when a sorts first.
func CompareProducts(a, b *Product, fields []SortField) int {
	for _, sf := range fields {
		var c int
		switch sf.Column {
		case SortColumnPrice:
			c = cmp.Compare(a.Price, b.Price)
		case SortColumnRating:
			c = cmp.Compare(a.Rating, b.Rating)
		case SortColumnCreatedAt:
			c = a.CreatedAt.Compare(b.CreatedAt)
		case SortColumnFeatured:
			c = cmp.Compare(boolRank(a.Featured), boolRank(b.Featured))
		}
		if sf.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return cmp.Compare(a.Seq, b.Seq)
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Items      []Product `json:"products"`
	PageNumber int       `json:"currentPage"`
	PageCount  int       `json:"totalPages"`
	TotalCount int       `json:"totalProducts"`
}

// NewProductPage assembles a page. A query with no matches yields an empty
// items list and a page count of 0.
func NewProductPage(items []Product, q ProductQuery, total int) *ProductPage {
	q = q.Normalize()
	if items == nil {
		items = []Product{}
	}
	return &ProductPage{
		Items:      items,
		PageNumber: q.Page,
		PageCount:  pagination.PageCount(total, q.PageSize),
		TotalCount: total,
	}
}
