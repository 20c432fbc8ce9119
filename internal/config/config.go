package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the crucible service
type Config struct {
	// Redis configuration
	RedisURL string

	// Database configuration
	DBName     string
	DBHost     string
	DBUser     string
	DBPassword string
	DBPort     string
	DBSSLMode  string

	// External endpoints
	OracleURLs    []string
	SwapRouterURL string

	// Oracle price cache
	PriceTTLSecs int

	// Lending pool the position manager borrows from
	LendingPoolID uint
	StableMint    string

	// Sweep worker configuration
	MinWorkers        int
	MaxWorkers        int
	SweepIntervalSecs int

	// Logging configuration
	LogLevel string

	// Metrics configuration
	MetricsPort string
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	cfg := Config{
		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379"),
		DBName:        getEnv("DB_NAME", ""),
		DBHost:        getEnv("DB_HOST", ""),
		DBUser:        getEnv("DB_USER", ""),
		DBPassword:    getEnv("DB_PASSWORD", ""),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBSSLMode:     getEnv("DB_SSL_MODE", "disable"),
		SwapRouterURL: getEnv("SWAP_ROUTER_URL", ""),
		StableMint:    getEnv("STABLE_MINT", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		MetricsPort:   getEnv("METRICS_PORT", "9100"),
	}

	// Parse oracle endpoints
	oracleURLsStr := getEnv("ORACLE_URLS", "")
	if oracleURLsStr != "" {
		cfg.OracleURLs = strings.Split(oracleURLsStr, ",")
		for i, endpoint := range cfg.OracleURLs {
			cfg.OracleURLs[i] = strings.TrimSpace(endpoint)
		}
	}

	var err error
	cfg.PriceTTLSecs, err = parseIntEnv("PRICE_TTL_SECS", 15)
	if err != nil {
		return cfg, fmt.Errorf("invalid PRICE_TTL_SECS: %w", err)
	}

	poolID, err := parseIntEnv("LENDING_POOL_ID", 1)
	if err != nil {
		return cfg, fmt.Errorf("invalid LENDING_POOL_ID: %w", err)
	}
	cfg.LendingPoolID = uint(poolID)

	cfg.MinWorkers, err = parseIntEnv("MIN_WORKERS", 2)
	if err != nil {
		return cfg, fmt.Errorf("invalid MIN_WORKERS: %w", err)
	}

	cfg.MaxWorkers, err = parseIntEnv("MAX_WORKERS", 16)
	if err != nil {
		return cfg, fmt.Errorf("invalid MAX_WORKERS: %w", err)
	}

	cfg.SweepIntervalSecs, err = parseIntEnv("SWEEP_INTERVAL_SECS", 60)
	if err != nil {
		return cfg, fmt.Errorf("invalid SWEEP_INTERVAL_SECS: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks that the configuration is valid
func (c Config) validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.DBName == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if len(c.OracleURLs) == 0 {
		return fmt.Errorf("at least one oracle endpoint is required in ORACLE_URLS")
	}

	if c.SwapRouterURL == "" {
		return fmt.Errorf("SWAP_ROUTER_URL is required")
	}

	if c.StableMint == "" {
		return fmt.Errorf("STABLE_MINT is required")
	}

	if c.PriceTTLSecs < 1 {
		return fmt.Errorf("PRICE_TTL_SECS must be at least 1")
	}

	if c.MinWorkers < 1 {
		return fmt.Errorf("MIN_WORKERS must be at least 1")
	}

	if c.MaxWorkers < c.MinWorkers {
		return fmt.Errorf("MAX_WORKERS must be greater than or equal to MIN_WORKERS")
	}

	if c.SweepIntervalSecs < 1 {
		return fmt.Errorf("SWEEP_INTERVAL_SECS must be at least 1")
	}

	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid LOG_LEVEL: %s (must be one of: trace, debug, info, warn, error, fatal, panic)", c.LogLevel)
	}

	return nil
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an integer environment variable with a default value
func parseIntEnv(key string, defaultValue int) (int, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(str)
}
