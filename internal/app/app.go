package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/iamsyg/artisian-dashboard/internal/config"
	"github.com/iamsyg/artisian-dashboard/internal/event"
	"github.com/iamsyg/artisian-dashboard/internal/gate"
	"github.com/iamsyg/artisian-dashboard/internal/genai"
	handler "github.com/iamsyg/artisian-dashboard/internal/handler/http"
	"github.com/iamsyg/artisian-dashboard/internal/identity"
	"github.com/iamsyg/artisian-dashboard/internal/ingest"
	"github.com/iamsyg/artisian-dashboard/internal/preview"
	previewmemory "github.com/iamsyg/artisian-dashboard/internal/preview/memory"
	previewredis "github.com/iamsyg/artisian-dashboard/internal/preview/redis"
	"github.com/iamsyg/artisian-dashboard/internal/repository/postgres"
	"github.com/iamsyg/artisian-dashboard/internal/service"
	"github.com/iamsyg/artisian-dashboard/pkg/database"
	"github.com/iamsyg/artisian-dashboard/pkg/health"
	"github.com/iamsyg/artisian-dashboard/pkg/httpclient"
	pkgkafka "github.com/iamsyg/artisian-dashboard/pkg/kafka"
	"github.com/iamsyg/artisian-dashboard/pkg/tracing"
)

const (
	serviceName    = "marketplace"
	serviceVersion = "0.1.0"

	previewSweepInterval = time.Minute
)

// App wires together all dependencies and runs the marketplace service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	sweeper        *previewmemory.Store
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
	stop           context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.closeResources(context.Background())
		}
	}()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	pool, err := OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.pool = pool
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Configure slow query logging.
	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	previews, err := a.previewStore(ctx)
	if err != nil {
		return nil, err
	}

	eventProducer := a.eventProducer()

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Build the dependency graph.
	products := postgres.NewProductRepository(pool, cfg.StoreTimeout)
	sellers := postgres.NewSellerRepository(pool, cfg.StoreTimeout)
	checker := gate.NewChecker(sellers, logger)

	photos := ingest.New(objects.bucket(cfg.BucketProductPhotos), ingest.Image, cfg.MaxImageBytes, logger)
	pictures := ingest.New(objects.bucket(cfg.BucketProfilePictures), ingest.Image, cfg.MaxImageBytes, logger)
	recordings := ingest.New(objects.bucket(cfg.BucketAudioRecords), ingest.Audio, cfg.MaxAudioBytes, logger)

	ai := genai.New(genai.Config{
		DescribeURL:    cfg.AIDescribeURL,
		AdImageURL:     cfg.AIAdImageURL,
		SpeechURL:      cfg.AISpeechURL,
		Timeout:        cfg.AITimeout,
		AdImageTimeout: cfg.AIAdImageTimeout,
	}, genai.Doers{
		Describe: a.breaker("ai-describe", cfg.AITimeout),
		AdImage:  a.breaker("ai-ad-image", cfg.AIAdImageTimeout),
		Speech:   a.breaker("ai-speech", cfg.AITimeout),
	}, logger)

	identityAdmin := identity.NewAdminClient(cfg.IdentityAdminURL, cfg.IdentityServiceKey, a.breaker("identity-admin", cfg.AITimeout))

	productService := service.NewProductService(products, checker, photos, eventProducer, logger)
	svcs := handler.Services{
		Products:       productService,
		Catalog:        service.NewCatalogService(productService, checker, logger),
		Enrichment:     service.NewEnrichmentService(products, checker, ai, eventProducer, logger, cfg.EnrichVerifyOwnership),
		Ads:            service.NewAdWorkflow(products, checker, previews, ai, photos, eventProducer, cfg.AdPreviewTTL, logger),
		Sellers:        service.NewSellerService(sellers, checker, pictures, eventProducer, logger),
		Transcriptions: service.NewTranscriptionService(checker, recordings, ai, logger),
		Accounts:       service.NewAccountService(identityAdmin, sellers, eventProducer, logger, cfg.ProtectedUID),
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if a.rdb != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return a.rdb.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.Register("kafka", a.producer.Ping)
	}

	if cfg.IdentityJWTSecret == "" {
		logger.Warn("IDENTITY_JWT_SECRET is empty; every bearer token will be rejected")
	}

	// The router outlives NewApp's setup context.
	runCtx, stop := context.WithCancel(context.Background())
	a.stop = stop

	router := handler.NewRouter(runCtx, svcs, handler.RouterConfig{
		Verifier:           identity.NewVerifier(cfg.IdentityJWTSecret),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		PprofAllowedCIDRs:  cfg.PprofAllowedCIDRs,
		MaxImageBytes:      cfg.MaxImageBytes,
		MaxAudioBytes:      cfg.MaxAudioBytes,
		AIRateLimitRPS:     cfg.AIRateLimitRPS,
		AIRateLimitBurst:   cfg.AIRateLimitBurst,
		Media:              objects.media,
	}, healthHandler, logger)

	// Ad image generation may take up to AI_AD_IMAGE_TIMEOUT.
	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.AIAdImageTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ok = true
	return a, nil
}

// OpenDatabase connects to PostgreSQL and applies pending migrations.
func OpenDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (a *App) previewStore(ctx context.Context) (preview.Store, error) {
	if a.cfg.RedisAddr == "" {
		a.sweeper = previewmemory.New()
		a.logger.Info("ad previews kept in process memory")
		return a.sweeper, nil
	}

	rdb, err := database.NewRedisClient(ctx, database.RedisConfig{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPass,
		DB:       a.cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	a.logger.Info("connected to Redis",
		slog.String("addr", a.cfg.RedisAddr),
		slog.Int("db", a.cfg.RedisDB),
	)
	return previewredis.New(rdb), nil
}

func (a *App) eventProducer() *event.Producer {
	if len(a.cfg.KafkaBrokers) == 0 {
		a.logger.Info("KAFKA_BROKERS not set; domain events are not published")
		return event.NewNopProducer(a.logger)
	}
	a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(a.cfg.KafkaBrokers), a.logger)
	a.logger.Info("kafka producer initialized", slog.Any("brokers", a.cfg.KafkaBrokers))
	return event.NewProducer(a.producer, a.logger)
}

// breaker returns a pooled client behind its own circuit breaker.
func (a *App) breaker(name string, timeout time.Duration) httpclient.Doer {
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = timeout

	cbCfg := httpclient.DefaultCircuitBreakerConfig(name)
	cbCfg.ConsecutiveFailures = a.cfg.AIBreakerMaxFailures
	cbCfg.Timeout = a.cfg.AIBreakerTimeout

	return httpclient.NewCircuitBreakerClient(httpclient.New(httpCfg), cbCfg, a.logger)
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	if a.sweeper != nil {
		go a.sweeper.Run(ctx, previewSweepInterval)
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server, tracer,
// Kafka producer, Redis, PostgreSQL.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	a.closeResources(shutdownCtx)

	a.logger.Info("application shutdown complete")
	return nil
}

func (a *App) closeResources(ctx context.Context) {
	if a.stop != nil {
		a.stop()
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
