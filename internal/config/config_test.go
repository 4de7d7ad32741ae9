package config_test

import (
	"testing"

	"github.com/wannasleep66/vibe-barter-sub001/internal/config"
)

func TestLoad_MemoryDriverNeedsNoURLs(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8083" || cfg.CacheTTLSeconds != 600 {
		t.Errorf("defaults = %+v, want port 8083 and 600s TTL", cfg)
	}
}

func TestLoad_PostgresDriverRequiresURLs(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected missing DATABASE_URL to fail Load")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/discovery")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected missing REDIS_URL to fail Load")
	}
}

func TestLoad_RejectsUnknownDriverAndBadInts(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected unknown STORE_DRIVER to fail Load")
	}

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CACHE_TTL_SECONDS", "soon")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected non-numeric CACHE_TTL_SECONDS to fail Load")
	}
}
