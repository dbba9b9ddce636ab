package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultCacheTTL bounds how stale the fleet and pilot views may be.
const DefaultCacheTTL = 30 * time.Second

// Config holds process configuration for the fleet server and tools.
type Config struct {
	// DatabaseURL is a postgres URL, or "sqlite:<path>" for local use.
	DatabaseURL string
	Port        string

	CacheTTL     time.Duration
	QueryTimeout time.Duration

	// ZonesFile is an optional YAML zone catalog; empty selects the embedded one.
	ZonesFile string

	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel   slog.Level
	DBLogLevel string
}

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is empty")
	ErrInvalidCacheTTL    = errors.New("CACHE_TTL must be positive")
	ErrInvalidTimeout     = errors.New("QUERY_TIMEOUT must be positive")
)

var defaultOrigins = []string{
	"http://localhost:5173",
	"http://localhost:8501",
}

// LoadFromEnv loads configuration from environment variables.
//
// Environment variables:
//   - DATABASE_URL: postgres connection URL or sqlite:<path> (required)
//   - PORT: HTTP port (default: 5050)
//   - CACHE_TTL: freshness window for cached views (default: 30s)
//   - QUERY_TIMEOUT: per-statement timeout (default: 5s)
//   - ZONES_FILE: restricted zone catalog in YAML (default: embedded Astana zones)
//   - CORS_ORIGINS: comma-separated origin allow-list
//   - RATE_LIMIT_RPS / RATE_LIMIT_BURST: request throttle (default: 50 / 100, 0 disables)
//   - LOG_LEVEL: debug|info|warn|error (default: info)
//   - DB_LOG_LEVEL: silent|error|warn|info (default: warn)
//
// Malformed values fall back to their defaults.
func LoadFromEnv() Config {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "5050"
	}

	origins := defaultOrigins
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		origins = splitList(raw)
	}

	dbLevel := strings.ToLower(strings.TrimSpace(os.Getenv("DB_LOG_LEVEL")))
	if dbLevel == "" {
		dbLevel = "warn"
	}

	return Config{
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Port:           port,
		CacheTTL:       durationEnv("CACHE_TTL", DefaultCacheTTL),
		QueryTimeout:   durationEnv("QUERY_TIMEOUT", 5*time.Second),
		ZonesFile:      strings.TrimSpace(os.Getenv("ZONES_FILE")),
		CORSOrigins:    origins,
		RateLimitRPS:   floatEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: intEnv("RATE_LIMIT_BURST", 100),
		LogLevel:       levelEnv("LOG_LEVEL", slog.LevelInfo),
		DBLogLevel:     dbLevel,
	}
}

// Validate checks the settings a server needs before it can start.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.CacheTTL <= 0 {
		return ErrInvalidCacheTTL
	}
	if c.QueryTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit must not be negative (rps=%v burst=%d)", c.RateLimitRPS, c.RateLimitBurst)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationEnv(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func floatEnv(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func intEnv(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func levelEnv(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		return def
	}
	return lvl
}
