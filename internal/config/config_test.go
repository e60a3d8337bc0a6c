package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"API_ADDR", "S3_USE_SSL", "CRUCIBLE_SESSION_TTL_SECONDS", "CRUCIBLE_UPLOAD_CONCURRENCY"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Addr != ":8787" {
		t.Fatalf("Addr = %q", cfg.Addr)
	}
	if cfg.S3UseSSL {
		t.Fatal("expected S3UseSSL default false")
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Fatalf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.UploadConcurrency != 3 {
		t.Fatalf("UploadConcurrency = %d", cfg.UploadConcurrency)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("CRUCIBLE_CACHE_TTL_SECONDS", "30")
	t.Setenv("CRUCIBLE_UPLOAD_CONCURRENCY", "not-a-number")

	cfg := Load()
	if !cfg.S3UseSSL {
		t.Fatal("expected S3UseSSL true")
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Fatalf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.UploadConcurrency != 3 {
		t.Fatalf("bad int should fall back, got %d", cfg.UploadConcurrency)
	}
}
