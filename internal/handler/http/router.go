package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/estore/internal/service"
	"github.com/utafrali/estore/pkg/health"
	"github.com/utafrali/estore/pkg/middleware"
)

// serviceName labels metrics and spans emitted by the router.
const serviceName = "estore"

// RouterConfig carries everything NewRouter needs.
type RouterConfig struct {
	Catalog *service.CatalogService
	Cart    *service.CartService
	Auth    *service.AuthService
	Health  *health.Handler
	Logger  *slog.Logger

	CORS    middleware.CORSConfig
	Session middleware.SessionConfig

	// SessionTTL is how long the token and userRole cookies live.
	SessionTTL    time.Duration
	SecureCookies bool

	LoginRatePerMinute int
	LoginRateBurst     int

	CatalogCacheMaxAge time.Duration
	PprofCIDRs         []string
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.Session(cfg.Session))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	productHandler := NewProductHandler(cfg.Catalog, logger)
	cartHandler := NewCartHandler(cfg.Cart, logger)
	authHandler := NewAuthHandler(cfg.Auth, logger, cfg.SessionTTL, cfg.SecureCookies)
	requireSession := middleware.Auth(sessionValidator(cfg.Auth))

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Use(middleware.CacheControl(cfg.CatalogCacheMaxAge))

		r.Get("/", productHandler.ListProducts)
		r.Get("/featured", productHandler.FeaturedProducts)
		r.Get("/{idOrSlug}", productHandler.GetProduct)
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(ContentTypeJSON)

		r.Get("/", cartHandler.GetCart)
		r.Delete("/", cartHandler.ClearCart)

		r.Post("/items", cartHandler.AddItem)
		r.Put("/items/{productId}", cartHandler.UpdateItemQuantity)
		r.Delete("/items/{productId}", cartHandler.RemoveItem)

		r.Post("/promo", cartHandler.ApplyPromoCode)
		r.Delete("/promo", cartHandler.ClearPromoCode)
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(ContentTypeJSON)

		r.With(middleware.RateLimit(cfg.LoginRatePerMinute, cfg.LoginRateBurst, logger)).
			Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
	})

	r.Route("/api/v1/account", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(requireSession)

		r.Get("/", authHandler.Account)
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(ContentTypeJSON)
		r.Use(requireSession)
		r.Use(middleware.RequireRole("admin"))

		r.Post("/products", productHandler.CreateProduct)
		r.Delete("/products/{id}", productHandler.DeleteProduct)
	})

	return r
}
