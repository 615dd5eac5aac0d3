package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iamsyg/artisian-dashboard/internal/service"
	"github.com/iamsyg/artisian-dashboard/pkg/health"
	"github.com/iamsyg/artisian-dashboard/pkg/middleware"
)

const serviceName = "marketplace"

// Services are the application services behind the routes.
type Services struct {
	Products       *service.ProductService
	Catalog        *service.CatalogService
	Enrichment     *service.EnrichmentService
	Ads            *service.AdWorkflow
	Sellers        *service.SellerService
	Transcriptions *service.TranscriptionService
	Accounts       *service.AccountService
}

// RouterConfig holds the HTTP-level settings.
type RouterConfig struct {
	Verifier           middleware.SubjectVerifier
	CORSAllowedOrigins []string
	PprofAllowedCIDRs  []string
	MaxImageBytes      int64
	MaxAudioBytes      int64
	AIRateLimitRPS     float64
	AIRateLimitBurst   int
	// Media serves stored objects under /media/{bucket}/*. Nil when objects
	// are served by the storage provider.
	Media http.Handler
}

// NewRouter creates a chi router with all marketplace routes registered.
// ctx bounds the rate limiter's background cleanup.
func NewRouter(
	ctx context.Context,
	svcs Services,
	cfg RouterConfig,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSAllowedOrigins)))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	if cfg.Media != nil {
		r.With(middleware.CacheControl(3600)).Get("/media/{bucket}/*", cfg.Media.ServeHTTP)
	}

	aiLimit := middleware.RateLimit(ctx, cfg.AIRateLimitRPS, cfg.AIRateLimitBurst, logger)

	productHandler := NewProductHandler(svcs.Products, svcs.Catalog, svcs.Enrichment, cfg.MaxImageBytes, logger)
	enrichmentHandler := NewEnrichmentHandler(svcs.Enrichment, logger)
	adHandler := NewAdHandler(svcs.Ads, logger)
	sellerHandler := NewSellerHandler(svcs.Sellers, svcs.Catalog, cfg.MaxImageBytes, logger)
	transcriptionHandler := NewTranscriptionHandler(svcs.Transcriptions, cfg.MaxAudioBytes, logger)
	accountHandler := NewAccountHandler(svcs.Accounts, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.Verifier, logger))
		r.Use(middleware.RequestLogger(logger))
		r.Use(middleware.ContentType("application/json", "multipart/form-data"))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.ListProducts)
			r.Post("/", productHandler.CreateProduct)
			r.Post("/import", productHandler.ImportProducts)
			r.Get("/{id}", productHandler.GetProduct)
			r.Put("/{id}", productHandler.UpdateProduct)
			r.Delete("/{id}", productHandler.DeleteProduct)

			r.Route("/{id}/ad-previews", func(r chi.Router) {
				r.With(aiLimit).Post("/", adHandler.CreatePreview)
				r.Get("/current", adHandler.GetStatus)
				r.Post("/{previewID}/commit", adHandler.CommitPreview)
				r.Delete("/{previewID}", adHandler.DiscardPreview)
			})
		})

		r.With(aiLimit).Post("/enrichments", enrichmentHandler.Enrich)
		r.With(aiLimit).Post("/transcriptions", transcriptionHandler.Transcribe)

		r.Route("/sellers", func(r chi.Router) {
			r.Post("/", sellerHandler.Register)
			r.Get("/me", sellerHandler.GetMe)
			r.Put("/me", sellerHandler.UpdateMe)
			r.Get("/me/products.xlsx", sellerHandler.ExportProducts)
		})

		r.Post("/account/delete", accountHandler.DeleteAccount)
	})

	return r
}
