package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Save original env vars
	originalVars := map[string]string{
		"REDIS_URL":           os.Getenv("REDIS_URL"),
		"DB_NAME":             os.Getenv("DB_NAME"),
		"ORACLE_URLS":         os.Getenv("ORACLE_URLS"),
		"SWAP_ROUTER_URL":     os.Getenv("SWAP_ROUTER_URL"),
		"STABLE_MINT":         os.Getenv("STABLE_MINT"),
		"PRICE_TTL_SECS":      os.Getenv("PRICE_TTL_SECS"),
		"LENDING_POOL_ID":     os.Getenv("LENDING_POOL_ID"),
		"MIN_WORKERS":         os.Getenv("MIN_WORKERS"),
		"MAX_WORKERS":         os.Getenv("MAX_WORKERS"),
		"SWEEP_INTERVAL_SECS": os.Getenv("SWEEP_INTERVAL_SECS"),
		"LOG_LEVEL":           os.Getenv("LOG_LEVEL"),
		"METRICS_PORT":        os.Getenv("METRICS_PORT"),
	}

	// Restore env vars after test
	defer func() {
		for key, value := range originalVars {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	setRequired := func() {
		os.Setenv("DB_NAME", "crucible")
		os.Setenv("ORACLE_URLS", "http://localhost:8080, http://localhost:8090")
		os.Setenv("SWAP_ROUTER_URL", "http://localhost:8081")
		os.Setenv("STABLE_MINT", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	}

	t.Run("successful load with all required vars", func(t *testing.T) {
		setRequired()
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("PRICE_TTL_SECS", "30")
		os.Setenv("LENDING_POOL_ID", "7")
		os.Setenv("MIN_WORKERS", "2")
		os.Setenv("MAX_WORKERS", "10")
		os.Setenv("SWEEP_INTERVAL_SECS", "120")
		os.Setenv("LOG_LEVEL", "debug")
		os.Setenv("METRICS_PORT", "9090")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, "crucible", cfg.DBName)
		assert.Equal(t, []string{"http://localhost:8080", "http://localhost:8090"}, cfg.OracleURLs)
		assert.Equal(t, "http://localhost:8081", cfg.SwapRouterURL)
		assert.Equal(t, 30, cfg.PriceTTLSecs)
		assert.Equal(t, uint(7), cfg.LendingPoolID)
		assert.Equal(t, 2, cfg.MinWorkers)
		assert.Equal(t, 10, cfg.MaxWorkers)
		assert.Equal(t, 120, cfg.SweepIntervalSecs)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "9090", cfg.MetricsPort)
	})

	t.Run("missing required environment variables", func(t *testing.T) {
		setRequired()
		os.Unsetenv("DB_NAME")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "DB_NAME is required")
	})

	t.Run("missing oracle endpoints", func(t *testing.T) {
		setRequired()
		os.Unsetenv("ORACLE_URLS")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "at least one oracle endpoint is required")
	})

	t.Run("invalid worker configuration", func(t *testing.T) {
		setRequired()
		os.Setenv("MIN_WORKERS", "10")
		os.Setenv("MAX_WORKERS", "5") // Max less than min

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "MAX_WORKERS must be greater than or equal to MIN_WORKERS")
	})

	t.Run("invalid log level", func(t *testing.T) {
		setRequired()
		os.Setenv("MIN_WORKERS", "2")
		os.Setenv("MAX_WORKERS", "10")
		os.Setenv("LOG_LEVEL", "invalid")

		_, err := Load()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid LOG_LEVEL")
	})

	t.Run("defaults are applied", func(t *testing.T) {
		setRequired()
		os.Unsetenv("REDIS_URL")
		os.Unsetenv("PRICE_TTL_SECS")
		os.Unsetenv("LENDING_POOL_ID")
		os.Unsetenv("MIN_WORKERS")
		os.Unsetenv("MAX_WORKERS")
		os.Unsetenv("SWEEP_INTERVAL_SECS")
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("METRICS_PORT")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, 15, cfg.PriceTTLSecs)
		assert.Equal(t, uint(1), cfg.LendingPoolID)
		assert.Equal(t, 2, cfg.MinWorkers)
		assert.Equal(t, 16, cfg.MaxWorkers)
		assert.Equal(t, 60, cfg.SweepIntervalSecs)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "9100", cfg.MetricsPort)
	})
}
