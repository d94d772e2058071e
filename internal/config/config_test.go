package config

import (
	"testing"
	"time"
)

func TestLoadRequiresSecretAndUpstream(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("UPSTREAM_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is unset")
	}

	t.Setenv("JWT_SECRET", "secret")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when UPSTREAM_URL is unset")
	}

	t.Setenv("UPSTREAM_URL", "http://upstream:9000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CookieName != "session_token" {
		t.Fatalf("unexpected default cookie name %q", cfg.CookieName)
	}
	if cfg.SessionTTL != 30*24*time.Hour {
		t.Fatalf("unexpected default session ttl %s", cfg.SessionTTL)
	}
	if cfg.OTPCodeLength != 6 || cfg.OTPMaxAttempts != 5 {
		t.Fatalf("unexpected otp defaults: %+v", cfg)
	}
}

func TestLoadOverridesAndValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("UPSTREAM_URL", "http://upstream:9000")
	t.Setenv("SESSION_TTL", "24h")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("SESSION_TTL override ignored: %s", cfg.SessionTTL)
	}
	if cfg.OTPMaxAttempts != 3 {
		t.Fatalf("OTP_MAX_ATTEMPTS override ignored: %d", cfg.OTPMaxAttempts)
	}

	t.Setenv("OTP_TTL", "not-a-duration")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed OTP_TTL")
	}
}

func TestAddress(t *testing.T) {
	if got := (Config{Port: "8080"}).Address(); got != ":8080" {
		t.Fatalf("expected :8080, got %q", got)
	}
	if got := (Config{Port: ":9090"}).Address(); got != ":9090" {
		t.Fatalf("expected :9090, got %q", got)
	}
}
