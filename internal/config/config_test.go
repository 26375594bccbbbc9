package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("RATE_TTL_SECONDS", "")
	t.Setenv("RATE_CURRENCY", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("port = %q, want 8080", cfg.Port)
	}
	if cfg.RateTTLSeconds != 300 {
		t.Fatalf("rate ttl = %d, want 300", cfg.RateTTLSeconds)
	}
	if cfg.RateCurrency != "USD" {
		t.Fatalf("rate currency = %q, want USD", cfg.RateCurrency)
	}
}

func TestLoadRejectsBadTTL(t *testing.T) {
	t.Setenv("RATE_TTL_SECONDS", "-5")
	if cfg := Load(); cfg.RateTTLSeconds != 300 {
		t.Fatalf("rate ttl = %d, want fallback 300", cfg.RateTTLSeconds)
	}
}
