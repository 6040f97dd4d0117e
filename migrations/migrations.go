// Package migrations embeds the catalog schema and the demo catalog that a
// fresh store is seeded with.
package migrations

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/utafrali/estore/internal/domain"
)

// FS holds the SQL migrations, applied by database.RunMigrations.
//
//go:embed *.sql
var FS embed.FS

//go:embed seed/products.json
var seedProducts []byte

// SeedProducts returns the demo catalog.
func SeedProducts() ([]domain.Product, error) {
	var products []domain.Product
	if err := json.Unmarshal(seedProducts, &products); err != nil {
		return nil, fmt.Errorf("decode seed products: %w", err)
	}
	return products, nil
}
