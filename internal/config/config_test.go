package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("GIN_MODE", "")
	t.Setenv("BCRYPT_COST", "")
	t.Setenv("SESSION_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.BcryptCost != 10 {
		t.Fatalf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.SessionIdleTimeout() != 30*time.Minute {
		t.Fatalf("unexpected idle timeout: %v", cfg.SessionIdleTimeout())
	}
	if cfg.SessionMaxLifetime() != 12*time.Hour {
		t.Fatalf("unexpected max lifetime: %v", cfg.SessionMaxLifetime())
	}
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("LOGIN_MAX_ATTEMPTS", "many")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LoginMaxAttempts != 5 {
		t.Fatalf("LoginMaxAttempts = %d, want 5", cfg.LoginMaxAttempts)
	}
}

func TestValidateBcryptCost(t *testing.T) {
	t.Setenv("BCRYPT_COST", "2")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "BCRYPT_COST") {
		t.Fatalf("expected BCRYPT_COST error, got %v", err)
	}
}

func TestValidateReleaseRequiresSecret(t *testing.T) {
	cfg := &Config{
		GinMode:          "release",
		BcryptCost:       10,
		DatabasePath:     "x.db",
		LoginMaxAttempts: 5,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing SESSION_SECRET")
	}

	cfg.SessionSecret = "short"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for short SESSION_SECRET")
	}

	cfg.SessionSecret = strings.Repeat("s", 32)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
