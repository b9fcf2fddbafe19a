// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/hosteleo/go-invoice-backend/internal/config"
	"github.com/hosteleo/go-invoice-backend/internal/http/handlers"
	"github.com/hosteleo/go-invoice-backend/internal/http/middleware"
	"github.com/hosteleo/go-invoice-backend/internal/reconcile"
	"github.com/hosteleo/go-invoice-backend/internal/repo"
	"github.com/hosteleo/go-invoice-backend/internal/services"
	"github.com/hosteleo/go-invoice-backend/internal/storage"
)

// Dependencies carries the external collaborators the document pipeline
// needs. main constructs the real clients; tests inject fakes.
type Dependencies struct {
	// Store archives uploaded documents.
	Store storage.Store
	// OCR turns document bytes into structured text.
	OCR services.OCRProcessor
	// Extractor pulls invoice fields out of OCR text.
	Extractor services.FieldExtractor
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per tenant/IP, bypass on replay)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, deps Dependencies, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key", // project-specific sensitive header example
		},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit; uploads are the largest legitimate payload.
	r.Use(limitBody(cfg.MaxUploadBytes + 1<<20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		func(ctx context.Context, restaurantID, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, restaurantID, key, now)
			if err != nil || rec == nil {
				return false, nil
			}
			return true, nil
		},
	))

	// 8) Token-bucket rate limiter per tenant/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByTenantOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Restaurant-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Restaurant-ID", middleware.HeaderIdempotencyKey},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db/external clients
	catSvc := services.NewCatalogService(db)
	if cfg.FuzzyThreshold > 0 {
		catSvc.FuzzyThreshold = cfg.FuzzyThreshold
	}
	supSvc := &services.SupplierService{DB: db}

	docSvc := services.NewDocumentService(db, deps.Store, deps.OCR, deps.Extractor)
	docSvc.Catalog = catSvc
	docSvc.Suppliers = supSvc
	if cfg.MaxUploadBytes > 0 {
		docSvc.MaxUploadBytes = int(cfg.MaxUploadBytes)
	}
	if cfg.IdempotencyTTL > 0 {
		docSvc.IdempotencyTTL = cfg.IdempotencyTTL
	}

	reconSvc := services.NewReconciliationService(db)
	if cfg.OrphanTTL > 0 {
		reconSvc.OrphanDeadline = cfg.OrphanTTL
	}
	if rc := cfg.Reconcile; rc.AutoLinkThreshold > 0 {
		reconSvc.Engine = reconcile.NewEngine(reconcile.Config{
			AutoLinkThreshold:     rc.AutoLinkThreshold,
			SuggestThreshold:      rc.SuggestThreshold,
			ContentMatchThreshold: rc.ContentMatchThreshold,
			TemporalWindowDays:    rc.TemporalWindowDays,
			ContentWindowDays:     rc.ContentWindowDays,
			SweepWindowDays:       rc.SweepWindowDays,
		})
	}

	fbSvc := services.NewFeedbackService(db)

	h := handlers.New(docSvc, reconSvc, catSvc, supSvc, fbSvc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Documents (invoices)
		api.POST("/documents", h.UploadDocument)
		api.GET("/documents", h.ListDocuments)
		api.GET("/documents/:id", h.GetDocument)
		api.DELETE("/invoices/:id", h.DeleteInvoice)

		// Delivery notes
		api.POST("/delivery-notes", h.UploadDeliveryNote)
		api.GET("/delivery-notes", h.ListDeliveryNotes)

		// Reconciliation
		api.POST("/invoices/:id/reconcile", h.ReconcileInvoice)
		api.GET("/invoices/:id/links", h.ListLinks)
		api.POST("/invoices/:id/links/:linkID/confirm", h.ConfirmLink)
		api.POST("/invoices/:id/links/:linkID/reject", h.RejectLink)
		api.GET("/orphans", h.ListOrphans)

		// Catalog and suppliers
		api.GET("/catalog/products", h.ListProducts)
		api.GET("/catalog/products/:id", h.GetProduct)
		api.GET("/catalog/products/:id/prices", h.ProductPrices)
		api.GET("/suppliers", h.ListSuppliers)

		// Feedback
		api.PUT("/feedback/:dish/:ingredient", h.RecordFeedback)
		api.POST("/feedback/:dish/match", h.MatchIngredients)
		api.POST("/feedback/:dish/flush", h.FlushFeedback)

		// Dashboard aggregates
		api.GET("/stats/reconciliation", h.ReconciliationStats)
		api.GET("/stats/catalog", h.CatalogStats)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
