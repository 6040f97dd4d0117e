package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/estore/internal/domain"
	"github.com/utafrali/estore/internal/service"
	"github.com/utafrali/estore/pkg/httputil"
)

// ProductHandler handles HTTP requests for catalog endpoints.
type ProductHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.CatalogService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// ColorRequest is one color option of a product.
type ColorRequest struct {
	Name string `json:"name" validate:"required,max=50"`
	Code string `json:"code" validate:"required,max=20"`
}

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name          string         `json:"name" validate:"required,min=1,max=200"`
	Description   string         `json:"description" validate:"max=5000"`
	Price         float64        `json:"price" validate:"gte=0"`
	OriginalPrice *float64       `json:"originalPrice" validate:"omitempty,gte=0"`
	Images        []string       `json:"images" validate:"omitempty,dive,required"`
	Category      string         `json:"category" validate:"required,oneof=electronics fashion home beauty"`
	Subcategory   string         `json:"subcategory" validate:"max=100"`
	Stock         int            `json:"stock" validate:"gte=0"`
	Featured      bool           `json:"featured"`
	Colors        []ColorRequest `json:"colors" validate:"omitempty,dive"`
	Sizes         []string       `json:"sizes"`
	Tags          []string       `json:"tags"`
}

// --- Handlers ---

// ListProducts handles GET /api/v1/products. Malformed query parameters fall
// back to their defaults rather than failing the request. The page is written
// bare, {products, currentPage, totalPages, totalProducts}, without the data
// envelope the other endpoints use.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := domain.ParseProductQuery(r.URL.Query())

	page, err := h.service.ListProducts(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, page)
}

// FeaturedProducts handles GET /api/v1/products/featured
func (h *ProductHandler) FeaturedProducts(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.FeaturedProducts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: items})
}

// GetProduct handles GET /api/v1/products/{idOrSlug}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// CreateProduct handles POST /api/v1/admin/products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	colors := make([]domain.Color, 0, len(req.Colors))
	for _, c := range req.Colors {
		colors = append(colors, domain.Color{Name: c.Name, Code: c.Code})
	}

	product, err := h.service.CreateProduct(r.Context(), &service.CreateProductInput{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Images:        req.Images,
		Category:      req.Category,
		Subcategory:   req.Subcategory,
		Stock:         req.Stock,
		Featured:      req.Featured,
		Colors:        colors,
		Sizes:         req.Sizes,
		Tags:          req.Tags,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /api/v1/admin/products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id.String()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
