// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database DSN, external service endpoints
// (OCR, extraction model, object storage), rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OCRConfig defines the connection to the document OCR service.
type OCRConfig struct {
	Endpoint string        // OCR_ENDPOINT (full URL of the processing route)
	APIKey   string        // OCR_API_KEY (bearer token, optional)
	Timeout  time.Duration // OCR_TIMEOUT
}

// LLMConfig defines the connection to the field-extraction model.
type LLMConfig struct {
	Endpoint    string  // LLM_ENDPOINT (OpenAI-compatible base URL)
	Model       string  // LLM_MODEL
	APIKey      string  // LLM_API_KEY (optional for local endpoints)
	Temperature float64 // LLM_TEMPERATURE (kept near zero for determinism)
}

// StorageConfig defines where uploaded documents are archived.
type StorageConfig struct {
	GCSBucket          string // GCS_BUCKET (empty selects the in-memory store)
	GCSCredentialsJSON string // GCS_CREDENTIALS_JSON (optional inline SA key)
}

// ReconcileConfig defines the reconciliation engine's confidence
// thresholds and search windows.
type ReconcileConfig struct {
	AutoLinkThreshold     float64 // RECONCILE_AUTOLINK_THRESHOLD in [0,1]
	SuggestThreshold      float64 // RECONCILE_SUGGEST_THRESHOLD in [0,1]
	ContentMatchThreshold float64 // RECONCILE_CONTENT_THRESHOLD in [0,1]
	TemporalWindowDays    int     // RECONCILE_TEMPORAL_WINDOW_DAYS
	ContentWindowDays     int     // RECONCILE_CONTENT_WINDOW_DAYS
	SweepWindowDays       int     // RECONCILE_SWEEP_WINDOW_DAYS
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-invoice-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// App
	DBDSN          string        // postgres key=value DSN or SQLite path
	MaxUploadBytes int64         // per-document upload cap in bytes
	FuzzyThreshold float64       // catalog fuzzy-match floor [0,1]
	OrphanTTL      time.Duration // how long unlinked documents wait before review

	// Reconciliation engine tuning
	Reconcile ReconcileConfig

	// External collaborators
	OCR     OCRConfig
	LLM     LLMConfig
	Storage StorageConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		DBDSN:          getenv("DB_DSN", "app.db"),
		MaxUploadBytes: int64(getint("MAX_UPLOAD_BYTES", 20<<20)),
		FuzzyThreshold: getfloat("FUZZY_THRESHOLD", 0.75),
		OrphanTTL:      getdur("ORPHAN_TTL", 7*24*time.Hour),

		// Reconciliation engine tuning
		Reconcile: ReconcileConfig{
			AutoLinkThreshold:     getfloat("RECONCILE_AUTOLINK_THRESHOLD", 0.90),
			SuggestThreshold:      getfloat("RECONCILE_SUGGEST_THRESHOLD", 0.70),
			ContentMatchThreshold: getfloat("RECONCILE_CONTENT_THRESHOLD", 0.75),
			TemporalWindowDays:    getint("RECONCILE_TEMPORAL_WINDOW_DAYS", 45),
			ContentWindowDays:     getint("RECONCILE_CONTENT_WINDOW_DAYS", 60),
			SweepWindowDays:       getint("RECONCILE_SWEEP_WINDOW_DAYS", 90),
		},

		// External collaborators
		OCR: OCRConfig{
			Endpoint: getenv("OCR_ENDPOINT", ""),
			APIKey:   getenv("OCR_API_KEY", ""),
			Timeout:  getdur("OCR_TIMEOUT", 120*time.Second),
		},
		LLM: LLMConfig{
			Endpoint:    getenv("LLM_ENDPOINT", "https://api.openai.com/v1"),
			Model:       getenv("LLM_MODEL", "gpt-4o-mini"),
			APIKey:      getenv("LLM_API_KEY", ""),
			Temperature: getfloat("LLM_TEMPERATURE", 0.0),
		},
		Storage: StorageConfig{
			GCSBucket:          getenv("GCS_BUCKET", ""),
			GCSCredentialsJSON: getenv("GCS_CREDENTIALS_JSON", ""),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-invoice-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBDSN) == "" {
		return cfg, errors.New("DB_DSN must not be empty")
	}
	if cfg.MaxUploadBytes <= 0 {
		return cfg, errors.New("MAX_UPLOAD_BYTES must be > 0")
	}
	if cfg.FuzzyThreshold < 0 || cfg.FuzzyThreshold > 1 {
		return cfg, errors.New("FUZZY_THRESHOLD must be between 0 and 1")
	}
	if cfg.OrphanTTL <= 0 {
		return cfg, errors.New("ORPHAN_TTL must be > 0")
	}
	for _, th := range []float64{cfg.Reconcile.AutoLinkThreshold, cfg.Reconcile.SuggestThreshold, cfg.Reconcile.ContentMatchThreshold} {
		if th < 0 || th > 1 {
			return cfg, errors.New("RECONCILE_* thresholds must be between 0 and 1")
		}
	}
	if cfg.Reconcile.SuggestThreshold > cfg.Reconcile.AutoLinkThreshold {
		return cfg, errors.New("RECONCILE_SUGGEST_THRESHOLD must not exceed RECONCILE_AUTOLINK_THRESHOLD")
	}
	if cfg.Reconcile.TemporalWindowDays <= 0 || cfg.Reconcile.ContentWindowDays <= 0 || cfg.Reconcile.SweepWindowDays <= 0 {
		return cfg, errors.New("RECONCILE_*_WINDOW_DAYS must be > 0")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return cfg, errors.New("LLM_TEMPERATURE must be in [0,2]")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	// if cfg.APIBasePath == "" || cfg.APIBasePath[0] != '/' {
	// 	return cfg, errors.New("API_BASE_PATH must start with '/'")
	// }

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
