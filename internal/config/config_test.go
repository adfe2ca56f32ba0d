package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if cfg.DBPath != ":memory:" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.SessionBackend != "memory" {
		t.Errorf("SessionBackend = %q", cfg.SessionBackend)
	}
	if cfg.ContextTurns != 4 || cfg.SearchLimit != 5 {
		t.Errorf("ContextTurns=%d SearchLimit=%d", cfg.ContextTurns, cfg.SearchLimit)
	}
	if cfg.BackendTimeout != 60*time.Second {
		t.Errorf("BackendTimeout = %v", cfg.BackendTimeout)
	}
	if cfg.SessionTTL != 0 {
		t.Errorf("SessionTTL = %v, want 0", cfg.SessionTTL)
	}
	if !cfg.IsDevelopment() {
		t.Error("wildcard frontend should count as development")
	}
}

func TestLoadNormalizesEmptyFrontendURL(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("FRONTEND_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.FrontendURL != "*" {
		t.Errorf("FrontendURL = %q, want *", cfg.FrontendURL)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing GROQ_API_KEY")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("PORT", "9001")
	t.Setenv("SESSION_BACKEND", "SQLITE")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("BACKEND_TIMEOUT", "15s")
	t.Setenv("LIVE_MAX_SESSIONS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9001" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.SessionBackend != "sqlite" {
		t.Errorf("SessionBackend = %q", cfg.SessionBackend)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.BackendTimeout != 15*time.Second {
		t.Errorf("BackendTimeout = %v", cfg.BackendTimeout)
	}
	if cfg.LiveMaxSessions != 7 {
		t.Errorf("LiveMaxSessions = %d", cfg.LiveMaxSessions)
	}
}

func TestValidateRejectsUnknownSessionBackend(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("SESSION_BACKEND", "redis")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown session backend")
	}
}

func TestGetEnvDurationFallsBackOnGarbage(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT", "not-a-duration")
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendTimeout != 60*time.Second {
		t.Errorf("BackendTimeout = %v, want default", cfg.BackendTimeout)
	}
}
