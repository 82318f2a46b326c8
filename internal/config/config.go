// Package config loads client configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Remote API
	APIURL      string
	HTTPTimeout time.Duration

	// Local storage
	DBPath    string
	SecretKey string // empty: a key file is generated next to the database

	LogLevel string

	// Resilience
	MaxRetries         int
	InitialBackoff     time.Duration
	MaxJitter          time.Duration
	RetryNonIdempotent bool
	IdempotencyKeys    bool

	// Balances
	FetchConcurrency int

	// Observability
	MetricsAddr string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		APIURL:      strings.TrimRight(getEnv("SPLITWISER_API_URL", "http://localhost:8000"), "/"),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		DBPath:    getEnv("SPLITWISER_DB_PATH", "./data/splitwiser.db"),
		SecretKey: getEnv("SPLITWISER_SECRET_KEY", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		MaxRetries:         getEnvInt("MAX_RETRIES", 3),
		InitialBackoff:     getEnvDuration("INITIAL_BACKOFF", 300*time.Millisecond),
		MaxJitter:          getEnvDuration("MAX_JITTER", 100*time.Millisecond),
		RetryNonIdempotent: getEnvBool("RETRY_NON_IDEMPOTENT", false),
		IdempotencyKeys:    getEnvBool("IDEMPOTENCY_KEYS", false),

		FetchConcurrency: getEnvInt("FETCH_CONCURRENCY", 4),

		MetricsAddr: getEnv("METRICS_ADDR", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
