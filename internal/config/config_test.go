package config

import (
	"context"
	"errors"
	"testing"

	"epicdash/internal/storage"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"DATA_DIR", "PORT", "CORS_ALLOWED_ORIGINS", "RATE_LIMIT_BURST",
		"RATE_LIMIT_REQUESTS_PER_SEC", "ARTIFACT_PW", "PICKLE_PW", "S3_REGION", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.DataDir != "dsc_data" {
		t.Errorf("Expected DataDir dsc_data, got %s", cfg.DataDir)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected Port 8080, got %s", cfg.Port)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != "*" {
		t.Errorf("Expected [*] origins, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitPerSec != 10 || cfg.RateLimitBurst != 20 {
		t.Errorf("Unexpected rate limit defaults: %v/%d", cfg.RateLimitPerSec, cfg.RateLimitBurst)
	}
	if cfg.S3Region != "us-east-1" {
		t.Errorf("Expected default region, got %s", cfg.S3Region)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")
	t.Setenv("RATE_LIMIT_REQUESTS_PER_SEC", "2.5")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Errorf("Expected Port 9000, got %s", cfg.Port)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://b.test" {
		t.Errorf("Unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitBurst != 20 {
		t.Errorf("Expected invalid burst to fall back to 20, got %d", cfg.RateLimitBurst)
	}
	if cfg.RateLimitPerSec != 2.5 {
		t.Errorf("Expected 2.5 req/s, got %v", cfg.RateLimitPerSec)
	}
}

func TestSecret(t *testing.T) {
	tests := []struct {
		name     string
		artifact string
		pickle   string
		want     string
		wantErr  bool
	}{
		{"artifact password", "a", "", "a", false},
		{"legacy fallback", "", "p", "p", false},
		{"artifact wins", "a", "p", "a", false},
		{"missing", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ARTIFACT_PW", tt.artifact)
			t.Setenv("PICKLE_PW", tt.pickle)

			got, err := Load().Secret()
			if tt.wantErr {
				if !errors.Is(err, storage.ErrMissingSecret) {
					t.Errorf("Expected ErrMissingSecret, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("Secret() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestVault(t *testing.T) {
	t.Setenv("S3_BUCKET", "")

	cfg := Load()
	cfg.Password = ""
	if _, err := cfg.Vault(context.Background()); !errors.Is(err, storage.ErrMissingSecret) {
		t.Errorf("Expected ErrMissingSecret, got %v", err)
	}

	cfg.Password = "pw"
	cfg.DataDir = t.TempDir()
	vault, err := cfg.Vault(context.Background())
	if err != nil {
		t.Fatalf("Vault: %v", err)
	}
	if _, ok := vault.Source().(*storage.LocalSource); !ok {
		t.Errorf("Expected a local source without S3_BUCKET, got %T", vault.Source())
	}
}
