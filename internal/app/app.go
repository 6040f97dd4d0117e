package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/estore/internal/config"
	"github.com/utafrali/estore/internal/domain"
	"github.com/utafrali/estore/internal/event"
	handler "github.com/utafrali/estore/internal/handler/http"
	"github.com/utafrali/estore/internal/repository"
	"github.com/utafrali/estore/internal/repository/memory"
	"github.com/utafrali/estore/internal/repository/postgres"
	redisrepo "github.com/utafrali/estore/internal/repository/redis"
	"github.com/utafrali/estore/internal/service"
	"github.com/utafrali/estore/migrations"
	"github.com/utafrali/estore/pkg/database"
	"github.com/utafrali/estore/pkg/health"
	pkgkafka "github.com/utafrali/estore/pkg/kafka"
	"github.com/utafrali/estore/pkg/middleware"
	"github.com/utafrali/estore/pkg/tracing"
)

const serviceName = "estore"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTELEndpoint,
		SampleRate:   cfg.OTELSampleRate,
		Enabled:      cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)
	healthHandler := health.NewHandler()

	// Catalog store.
	products, err := a.newCatalogStore(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	// Redis for carts and sign-in sessions.
	rdb, err := database.NewRedisClient(ctx, cfg.Redis(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	logger.Info("connected to Redis",
		slog.String("addr", cfg.Redis().Addr()),
		slog.Int("db", cfg.RedisDB),
	)
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})

	// Kafka producer. A nil publisher turns domain events into no-ops.
	var publisher event.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			BatchSize:    100,
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
		}, logger)
		publisher = a.producer
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		logger.Info("kafka disabled, domain events will not be published")
	}
	eventProducer := event.NewProducer(publisher, logger)

	// Services.
	catalogService := service.NewCatalogService(products, eventProducer, logger)
	cartService := service.NewCartService(
		redisrepo.NewCartRepository(rdb, cfg.CartTTL()), products, eventProducer, logger,
	)
	authService := service.NewAuthService(
		redisrepo.NewSessionRepository(rdb), credentials(cfg), cfg.SessionTTL(), logger,
	)

	if cfg.SeedCatalog {
		if err := seedCatalog(ctx, catalogService); err != nil {
			return nil, err
		}
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins

	router := handler.NewRouter(handler.RouterConfig{
		Catalog: catalogService,
		Cart:    cartService,
		Auth:    authService,
		Health:  healthHandler,
		Logger:  logger,

		CORS: corsCfg,
		Session: middleware.SessionConfig{
			CookieName: cfg.SessionCookie,
			TTL:        cfg.CartTTL(),
			Secure:     cfg.SecureCookies,
		},

		SessionTTL:    cfg.SessionTTL(),
		SecureCookies: cfg.SecureCookies,

		LoginRatePerMinute: cfg.LoginRatePerMin,
		LoginRateBurst:     cfg.LoginRateBurst,

		CatalogCacheMaxAge: time.Duration(cfg.CatalogCacheSecs) * time.Second,
		PprofCIDRs:         cfg.PprofAllowedCIDRs,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ok = true
	return a, nil
}

// newCatalogStore builds the configured catalog store and registers its
// readiness check.
func (a *App) newCatalogStore(ctx context.Context, hh *health.Handler) (repository.ProductRepository, error) {
	if a.cfg.CatalogStore == config.CatalogStoreMemory {
		a.logger.Info("using in-memory catalog store")
		store := memory.NewProductRepository()
		hh.RegisterCritical("catalog", store.Ping)
		return store, nil
	}

	pool, err := database.NewPostgresPool(ctx, a.cfg.Postgres(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", a.cfg.PostgresHost),
		slog.String("database", a.cfg.PostgresDB),
	)

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, fmt.Errorf("register pool metrics: %w", err)
		}
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, err
	}

	breakerCfg := repository.DefaultBreakerConfig()
	breakerCfg.MinRequests = a.cfg.BreakerMinRequests
	breakerCfg.Timeout = a.cfg.BreakerOpenTimeout
	store := repository.NewBreakerProductRepository(postgres.NewProductRepository(pool), breakerCfg, a.logger)

	hh.RegisterCritical("catalog", store.Ping)
	return store, nil
}

func seedCatalog(ctx context.Context, catalog *service.CatalogService) error {
	products, err := migrations.SeedProducts()
	if err != nil {
		return err
	}
	if _, err := catalog.Seed(ctx, products); err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	return nil
}

func credentials(cfg *config.Config) []service.Credential {
	creds := []service.Credential{
		{Email: cfg.AdminEmail, Password: cfg.AdminPassword, Role: domain.RoleAdmin},
	}
	if cfg.UserEmail != "" && cfg.UserPassword != "" {
		creds = append(creds, service.Credential{Email: cfg.UserEmail, Password: cfg.UserPassword, Role: domain.RoleUser})
	}
	return creds
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.close()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.close()
	a.logger.Info("application shutdown complete")
	return nil
}

// close releases every client that was opened. It tolerates a partially
// built App.
func (a *App) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
		a.producer = nil
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
		a.rdb = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
		a.tracerShutdown = nil
	}
}
