// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the discovery service.
type Config struct {
	Port        string
	StoreDriver string // "postgres" (default) or "memory"
	DatabaseURL string
	RedisURL    string

	CacheTTLSeconds         int // result cache TTL
	HistoryLookbackDays     int // behavioral history window
	HistoryMaxRecords       int // behavioral history cap
	BlobResyncIntervalHours int // search-blob resync cron interval
}

// Load reads .env (if present) and the environment, returning a validated
// Config. DATABASE_URL and REDIS_URL are required unless STORE_DRIVER is
// "memory".
func Load() (*Config, error) {
	_ = godotenv.Load() // absent .env is fine

	cfg := &Config{
		Port:                    getenv("DISCOVERY_PORT", "8083"),
		StoreDriver:             getenv("STORE_DRIVER", "postgres"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		RedisURL:                os.Getenv("REDIS_URL"),
		CacheTTLSeconds:         600,
		HistoryLookbackDays:     90,
		HistoryMaxRecords:       50,
		BlobResyncIntervalHours: 6,
	}

	switch cfg.StoreDriver {
	case "memory":
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required")
		}
	default:
		return nil, fmt.Errorf("STORE_DRIVER must be \"postgres\" or \"memory\", got %q", cfg.StoreDriver)
	}

	var err error
	if cfg.CacheTTLSeconds, err = intenv("CACHE_TTL_SECONDS", cfg.CacheTTLSeconds); err != nil {
		return nil, err
	}
	if cfg.HistoryLookbackDays, err = intenv("HISTORY_LOOKBACK_DAYS", cfg.HistoryLookbackDays); err != nil {
		return nil, err
	}
	if cfg.HistoryMaxRecords, err = intenv("HISTORY_MAX_RECORDS", cfg.HistoryMaxRecords); err != nil {
		return nil, err
	}
	if cfg.BlobResyncIntervalHours, err = intenv("BLOB_RESYNC_INTERVAL_HOURS", cfg.BlobResyncIntervalHours); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intenv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return v, nil
}
