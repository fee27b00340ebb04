// Package config provides environment-driven configuration for kinship.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/persistorai/kinship/internal/ancestry"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	LogLevel    string
	DatabaseURL Secret
	DBMaxConns  int
	MetricsAddr string

	MaxDepth          int
	PathMaxDepth      int
	PathMaxResults    int
	PathMaxExpansions int
	MatrixMaxPersons  int
	Workers           int
	Convention        ancestry.Convention

	CacheMaxSize    int
	CacheTTL        time.Duration
	CacheTrackStats bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		DatabaseURL:     Secret(envOrDefault("DATABASE_URL", "")),
		MetricsAddr:     envOrDefault("KINSHIP_METRICS_ADDR", ""),
		CacheTrackStats: envOrDefault("KINSHIP_CACHE_TRACK_STATS", "true") == "true",
	}

	ints := []struct {
		key      string
		fallback string
		dst      *int
	}{
		{"DB_MAX_CONNS", "9", &cfg.DBMaxConns},
		{"KINSHIP_MAX_DEPTH", "24", &cfg.MaxDepth},
		{"KINSHIP_PATH_MAX_DEPTH", "8", &cfg.PathMaxDepth},
		{"KINSHIP_PATH_MAX_RESULTS", "64", &cfg.PathMaxResults},
		{"KINSHIP_PATH_MAX_EXPANSIONS", "50000", &cfg.PathMaxExpansions},
		{"KINSHIP_MATRIX_MAX_PERSONS", "200", &cfg.MatrixMaxPersons},
		{"KINSHIP_WORKERS", "0", &cfg.Workers},
		{"KINSHIP_CACHE_MAX_SIZE", "10000", &cfg.CacheMaxSize},
	}

	for _, f := range ints {
		v, err := strconv.Atoi(envOrDefault(f.key, f.fallback))
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer: %w", f.key, err)
		}

		*f.dst = v
	}

	ttl, err := time.ParseDuration(envOrDefault("KINSHIP_CACHE_TTL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("KINSHIP_CACHE_TTL must be a duration such as 10m: %w", err)
	}

	cfg.CacheTTL = ttl

	conv, err := ancestry.ParseConvention(envOrDefault("KINSHIP_DEGREE_CONVENTION", "civil"))
	if err != nil {
		return nil, fmt.Errorf("KINSHIP_DEGREE_CONVENTION: %w", err)
	}

	cfg.Convention = conv

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// HasDatabase reports whether a database URL is configured.
func (c *Config) HasDatabase() bool {
	return strings.TrimSpace(c.DatabaseURL.Value()) != ""
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
