package domain

import (
	"time"
)

// Product categories offered by the storefront.
const (
	CategoryElectronics = "electronics"
	CategoryFashion     = "fashion"
	CategoryHome        = "home"
	CategoryBeauty      = "beauty"
)

// Rating bounds.
const (
	MinProductRating = 0
	MaxProductRating = 5
)

// Product represents a product in the catalog.
type Product struct {
	ID            string    `json:"id"`
	Slug          string    `json:"slug"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	OriginalPrice *float64  `json:"originalPrice,omitempty"`
	Images        []string  `json:"images"`
	Category      string    `json:"category"`
	Subcategory   string    `json:"subcategory"`
	Rating        float64   `json:"rating"`
	Reviews       int       `json:"reviews"`
	Stock         int       `json:"stock"`
	Featured      bool      `json:"featured"`
	Colors        []Color   `json:"colors,omitempty"`
	Sizes         []string  `json:"sizes,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	// Seq is the store insertion sequence. It breaks ties between products
	// that compare equal under the requested sort.
	Seq int64 `json:"-"`
}

// Color is a selectable product color with its swatch code.
type Color struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// PrimaryImage returns the first image URL, or "" when the product has none.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool {
	return p.Stock > 0
}

// ValidCategories returns the set of valid product categories.
func ValidCategories() []string {
	return []string{CategoryElectronics, CategoryFashion, CategoryHome, CategoryBeauty}
}

// IsValidCategory checks whether the given string is a known category.
func IsValidCategory(category string) bool {
	for _, c := range ValidCategories() {
		if c == category {
			return true
		}
	}
	return false
}
