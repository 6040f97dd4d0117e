package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/sync/errgroup"

	"github.com/utafrali/estore/internal/domain"
	"github.com/utafrali/estore/pkg/database"
	apperrors "github.com/utafrali/estore/pkg/errors"
)

const productColumns = `id, seq, slug, name, description, price, original_price, images, category, subcategory,
		rating, reviews, stock, featured, colors, sizes, tags, is_active, created_at, updated_at`

var sortColumns = map[domain.SortColumn]string{
	domain.SortColumnPrice:     "price",
	domain.SortColumnCreatedAt: "created_at",
	domain.SortColumnRating:    "rating",
	domain.SortColumnFeatured:  "featured",
}

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product. The store assigns its insertion sequence.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	colors := p.Colors
	if colors == nil {
		colors = []domain.Color{}
	}
	colorsJSON, err := json.Marshal(colors)
	if err != nil {
		return fmt.Errorf("marshal colors: %w", err)
	}

	query := `
		INSERT INTO products (id, slug, name, description, price, original_price, images, category, subcategory,
			rating, reviews, stock, featured, colors, sizes, tags, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING seq`

	ctx, end := database.TraceQuery(ctx, "CreateProduct", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query,
		p.ID,
		p.Slug,
		p.Name,
		p.Description,
		p.Price,
		p.OriginalPrice,
		nonNil(p.Images),
		p.Category,
		p.Subcategory,
		p.Rating,
		p.Reviews,
		p.Stock,
		p.Featured,
		colorsJSON,
		nonNil(p.Sizes),
		nonNil(p.Tags),
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return storeError("insert product", err)
	}

	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return r.getOne(ctx, "GetProductByID", query, id)
}

// GetBySlug retrieves a product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`
	return r.getOne(ctx, "GetProductBySlug", query, slug)
}

func (r *ProductRepository) getOne(ctx context.Context, op, query, key string) (p *domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	p, err = scanProduct(r.db.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", key)
		}
		return nil, storeError("get product", err)
	}
	return p, nil
}

// List runs the page query and the count query concurrently. A filter
// without a limit returns every match and skips the count.
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	where, args := buildWhere(filter)

	listQuery := fmt.Sprintf("SELECT %s FROM products %s ORDER BY %s", productColumns, where, buildOrderBy(filter.Sort))
	listArgs := args
	if filter.Limit > 0 {
		listQuery += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		listArgs = append(append([]any{}, args...), filter.Limit, filter.Offset)
	}

	if filter.Limit <= 0 {
		products, err := r.queryProducts(ctx, "ListProducts", listQuery, listArgs)
		if err != nil {
			return nil, 0, err
		}
		return products, len(products), nil
	}

	countQuery := "SELECT count(*) FROM products " + where

	var (
		products []domain.Product
		total    int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = r.queryProducts(gctx, "ListProducts", listQuery, listArgs)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = r.count(gctx, countQuery, args)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	if products == nil {
		products = []domain.Product{}
	}
	return products, total, nil
}

func (r *ProductRepository) queryProducts(ctx context.Context, op, query string, args []any) (products []domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError("list products", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, storeError("scan product row", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("iterate product rows", err)
	}

	return products, nil
}

func (r *ProductRepository) count(ctx context.Context, query string, args []any) (total int, err error) {
	ctx, end := database.TraceQuery(ctx, "CountProducts", query)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, storeError("count products", err)
	}
	return total, nil
}

// Delete removes a product by ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteProduct", query)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return storeError("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

// Ping runs a trivial statement against the store.
func (r *ProductRepository) Ping(ctx context.Context) (err error) {
	ctx, end := database.TraceQuery(ctx, "Ping", "SELECT 1")
	defer func() { end(err) }()

	var one int
	if err = r.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return storeError("ping", err)
	}
	return nil
}

// buildWhere renders the filter predicates as a parameterized WHERE clause.
// The search group and the price group are separate conjuncts.
func buildWhere(f domain.ProductFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if f.FeaturedOnly {
		conditions = append(conditions, "featured = TRUE")
	}

	if f.Search != "" {
		p := arg("%" + escapeLike(f.Search) + "%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", p, p))
	}

	if len(f.Categories) > 0 {
		conditions = append(conditions, "category = ANY("+arg(f.Categories)+")")
	}

	if len(f.Subcategories) > 0 {
		conditions = append(conditions, "subcategory = ANY("+arg(f.Subcategories)+")")
	}

	if len(f.PriceRanges) > 0 {
		ranges := make([]string, 0, len(f.PriceRanges))
		for _, pr := range f.PriceRanges {
			lower := ">="
			if pr.MinExclusive {
				lower = ">"
			}
			cond := fmt.Sprintf("price %s %s", lower, arg(pr.Min))
			if pr.Bounded {
				upper := "<="
				if pr.MaxExclusive {
					upper = "<"
				}
				cond += fmt.Sprintf(" AND price %s %s", upper, arg(pr.Max))
			}
			ranges = append(ranges, "("+cond+")")
		}
		conditions = append(conditions, "("+strings.Join(ranges, " OR ")+")")
	}

	if f.MinRating != nil {
		conditions = append(conditions, "rating >= "+arg(*f.MinRating))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// buildOrderBy renders the sort fields, ending with the insertion sequence.
func buildOrderBy(fields []domain.SortField) string {
	terms := make([]string, 0, len(fields)+1)
	for _, sf := range fields {
		col, ok := sortColumns[sf.Column]
		if !ok {
			continue
		}
		dir := "ASC"
		if sf.Desc {
			dir = "DESC"
		}
		terms = append(terms, col+" "+dir)
	}
	terms = append(terms, "seq ASC")
	return strings.Join(terms, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var (
		p          domain.Product
		colorsJSON []byte
	)

	if err := row.Scan(
		&p.ID,
		&p.Seq,
		&p.Slug,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.OriginalPrice,
		&p.Images,
		&p.Category,
		&p.Subcategory,
		&p.Rating,
		&p.Reviews,
		&p.Stock,
		&p.Featured,
		&colorsJSON,
		&p.Sizes,
		&p.Tags,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(colorsJSON) > 0 {
		if err := json.Unmarshal(colorsJSON, &p.Colors); err != nil {
			return nil, fmt.Errorf("unmarshal colors: %w", err)
		}
	}

	return &p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// storeError classifies a driver error as an unreachable store or a failed
// query.
func storeError(op string, err error) error {
	wrapped := fmt.Errorf("%s: %w", op, err)
	if database.IsConnectionError(err) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.StoreUnavailable(wrapped)
	}
	return apperrors.QueryFailed(wrapped)
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
