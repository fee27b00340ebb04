package config

import (
	"fmt"
	"net"
	"net/url"

	"github.com/sirupsen/logrus"
)

func (c *Config) validate() error {
	if err := c.validateLogLevel(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateMetrics(); err != nil {
		return err
	}

	if err := c.validateLimits(); err != nil {
		return err
	}

	return c.validateCache()
}

func (c *Config) validateLogLevel() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}

	return nil
}

// validateDatabase checks DATABASE_URL when one is set; file-backed runs need none.
func (c *Config) validateDatabase() error {
	if !c.HasDatabase() {
		return nil
	}

	dbURL, err := url.Parse(c.DatabaseURL.Value())
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	if dbURL.Scheme != "postgres" && dbURL.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL scheme must be postgres:// or postgresql://")
	}

	if dbURL.Hostname() == "" {
		return fmt.Errorf("DATABASE_URL must include a host")
	}

	dbHost := dbURL.Hostname()
	if !isLoopback(dbHost) && dbURL.Query().Get("sslmode") == "disable" {
		return fmt.Errorf("DATABASE_URL sslmode=disable is not allowed for non-local host %q", dbHost)
	}

	if c.DBMaxConns < 2 || c.DBMaxConns > 100 {
		return fmt.Errorf("DB_MAX_CONNS must be between 2 and 100")
	}

	return nil
}

func (c *Config) validateMetrics() error {
	if c.MetricsAddr == "" {
		return nil
	}

	host, _, err := net.SplitHostPort(c.MetricsAddr)
	if err != nil {
		return fmt.Errorf("KINSHIP_METRICS_ADDR must be host:port: %w", err)
	}

	if host != "" && !isLoopback(host) && host != "0.0.0.0" && host != "::" {
		return fmt.Errorf("KINSHIP_METRICS_ADDR must bind a loopback address or 0.0.0.0/:: for containers (got %q)", host)
	}

	return nil
}

func (c *Config) validateLimits() error {
	checks := []struct {
		name     string
		value    int
		min, max int
	}{
		{"KINSHIP_MAX_DEPTH", c.MaxDepth, 1, 64},
		{"KINSHIP_PATH_MAX_DEPTH", c.PathMaxDepth, 1, 16},
		{"KINSHIP_PATH_MAX_RESULTS", c.PathMaxResults, 1, 10000},
		{"KINSHIP_PATH_MAX_EXPANSIONS", c.PathMaxExpansions, 100, 10000000},
		{"KINSHIP_MATRIX_MAX_PERSONS", c.MatrixMaxPersons, 2, 5000},
		{"KINSHIP_WORKERS", c.Workers, 0, 256},
	}

	for _, chk := range checks {
		if chk.value < chk.min || chk.value > chk.max {
			return fmt.Errorf("%s must be between %d and %d, got %d", chk.name, chk.min, chk.max, chk.value)
		}
	}

	return nil
}

func (c *Config) validateCache() error {
	if c.CacheMaxSize < 1 {
		return fmt.Errorf("KINSHIP_CACHE_MAX_SIZE must be positive")
	}

	if c.CacheTTL < 0 {
		return fmt.Errorf("KINSHIP_CACHE_TTL must not be negative")
	}

	return nil
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
