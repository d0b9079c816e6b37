package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string // "development", "production", etc.

	// Server
	ServerAddr string
	BaseURL    string

	// Database
	DatabaseURL string

	// Shared cache, rate limiter and session storage
	RedisURL string // env: REDIS_URL, default: "" (in-process only)

	// TLS
	TLSEnabled  bool
	TLSCertFile string
	TLSKeyFile  string

	// OIDC
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string

	// Session
	SessionSecret string // Used for signing cookies (min 32 chars)

	// CORS
	CORSOrigins string // Comma-separated allowed origins

	// Rate limiting
	RateLimitMax int // Requests per minute per IP

	// Result cache
	CacheTTL        time.Duration
	CacheMaxEntries int

	// Aggregation planner
	AggregationMaxAge    time.Duration // Persisted windows older than this are recomputed
	AggregationPrecision int           // Decimal places for averages
	QueryPageSize        int           // Default observation page size
	ComputeTimeout       time.Duration

	// Scheduled rollups
	EnableRollups  bool
	RollupInterval time.Duration

	// YAML config file with projects and rollup targets
	ConfigFile string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Env:              getEnv("ENV", "development"),
		ServerAddr:       getEnv("SERVER_ADDR", ":3000"),
		BaseURL:          getEnv("BASE_URL", "http://localhost:3000"),
		DatabaseURL:      getEnv("DATABASE_URL", "postgres://localhost:5432/kwtrack?sslmode=disable"),
		RedisURL:         getEnv("REDIS_URL", ""),
		TLSEnabled:       getEnv("TLS_ENABLED", "") != "",
		TLSCertFile:      getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:       getEnv("TLS_KEY_FILE", ""),
		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:  getEnv("OIDC_REDIRECT_URL", "http://localhost:3000/auth/callback"),
		SessionSecret:    getEnv("SESSION_SECRET", "change-me-in-production-min-32-chars"),
		CORSOrigins:      getEnv("CORS_ORIGINS", ""),
		RateLimitMax:     getEnvInt("RATE_LIMIT_MAX", 100),

		CacheTTL:        getEnvDuration("CACHE_TTL", time.Hour),
		CacheMaxEntries: getEnvInt("CACHE_MAX_ENTRIES", 1024),

		AggregationMaxAge:    getEnvDuration("AGGREGATION_MAX_AGE", 6*time.Hour),
		AggregationPrecision: getEnvInt("AGGREGATION_PRECISION", 4),
		QueryPageSize:        getEnvInt("QUERY_PAGE_SIZE", 500),
		ComputeTimeout:       getEnvDuration("COMPUTE_TIMEOUT", 30*time.Second),

		EnableRollups:  getEnv("ENABLE_ROLLUPS", "") != "",
		RollupInterval: getEnvDuration("ROLLUP_INTERVAL", time.Hour),

		ConfigFile: getEnv("CONFIG_FILE", "config.yaml"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getEnvInt returns fallback when the variable is unset or not an integer.
func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

// getEnvDuration accepts Go duration strings such as "90s" or "6h".
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return fallback
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// IsOIDCEnabled returns true if an identity provider is configured.
func (c *Config) IsOIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}

// IsSharedCacheEnabled returns true if Redis backs the cache, limiter and sessions.
func (c *Config) IsSharedCacheEnabled() bool {
	return c.RedisURL != ""
}
