// Command server runs the invoice intelligence HTTP API.
//
// Startup order: environment, configuration, logging, tracing, database,
// external collaborators (document store, OCR, extraction model), routes,
// then the HTTP listener with graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/hosteleo/go-invoice-backend/internal/config"
	httpapi "github.com/hosteleo/go-invoice-backend/internal/http"
	"github.com/hosteleo/go-invoice-backend/internal/llm"
	"github.com/hosteleo/go-invoice-backend/internal/observability"
	"github.com/hosteleo/go-invoice-backend/internal/ocr"
	"github.com/hosteleo/go-invoice-backend/internal/repo"
	"github.com/hosteleo/go-invoice-backend/internal/services"
	"github.com/hosteleo/go-invoice-backend/internal/storage"
	"github.com/hosteleo/go-invoice-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(c); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Str("dsn", cfg.DBDSN).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	deps, err := buildDependencies(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("collaborator setup failed")
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	httpapi.RegisterRoutes(r, db, deps, cfg)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("server stopped")
}

// buildDependencies assembles the external collaborators from configuration.
// The document store falls back to the in-memory implementation when no GCS
// bucket is configured, which keeps local development self-contained. OCR and
// the extraction model have no such fallback: uploads fail with a clear error
// until their endpoints are configured.
func buildDependencies(ctx context.Context, cfg config.Config) (httpapi.Dependencies, error) {
	var deps httpapi.Dependencies

	if cfg.Storage.GCSBucket != "" {
		store, err := storage.NewGCSStore(ctx, cfg.Storage.GCSBucket, cfg.Storage.GCSCredentialsJSON)
		if err != nil {
			return deps, err
		}
		deps.Store = store
		log.Info().Str("bucket", cfg.Storage.GCSBucket).Msg("using GCS document store")
	} else {
		deps.Store = storage.NewMemoryStore()
		log.Warn().Msg("GCS_BUCKET not set, documents are stored in memory only")
	}

	if cfg.OCR.Endpoint != "" {
		ocrClient, err := ocr.NewClient(ocr.Config{
			Endpoint: cfg.OCR.Endpoint,
			APIKey:   cfg.OCR.APIKey,
			Timeout:  cfg.OCR.Timeout,
		})
		if err != nil {
			return deps, err
		}
		deps.OCR = ocrClient
	} else {
		deps.OCR = unconfiguredOCR{}
		log.Warn().Msg("OCR_ENDPOINT not set, document uploads will be rejected")
	}

	llmClient, err := llm.NewClient(llm.Config{
		Endpoint:    cfg.LLM.Endpoint,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		Temperature: float32(cfg.LLM.Temperature),
	})
	if err != nil {
		return deps, err
	}
	deps.Extractor = llmClient

	return deps, nil
}

// unconfiguredOCR stands in when no OCR endpoint is configured so that the
// rest of the API (catalog, reconciliation, feedback) stays usable.
type unconfiguredOCR struct{}

func (unconfiguredOCR) Process(context.Context, []byte, string) (*ocr.Document, error) {
	return nil, ocr.ErrUnavailable
}

var _ services.OCRProcessor = unconfiguredOCR{}
