package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"SERVER_PORT", "PG_POOL_MAX", "SESSION_IDLE_TIMEOUT", "APP_ENV", "LOG_DIR"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTP.Port != defaultPort {
		t.Errorf("port = %d, want %d", cfg.HTTP.Port, defaultPort)
	}
	if cfg.Pool.MaxConns != 10 || cfg.Pool.IdleTimeout != 30*time.Second || cfg.Pool.ConnectTimeout != 2*time.Second {
		t.Errorf("unexpected pool defaults %+v", cfg.Pool)
	}
	if cfg.Session.CookieName != "ageviewer.sid" {
		t.Errorf("cookie = %q", cfg.Session.CookieName)
	}
	if cfg.Logging.Production {
		t.Errorf("expected development logging by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("PG_POOL_MAX", "3")
	t.Setenv("SESSION_IDLE_TIMEOUT", "5m")
	t.Setenv("APP_ENV", "Production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.HTTP.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.HTTP.Port)
	}
	if cfg.Pool.MaxConns != 3 {
		t.Errorf("pool max = %d, want 3", cfg.Pool.MaxConns)
	}
	if cfg.Session.IdleTimeout != 5*time.Minute {
		t.Errorf("session idle = %v, want 5m", cfg.Session.IdleTimeout)
	}
	if !cfg.Logging.Production {
		t.Errorf("expected production logging")
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("SERVER_PORT", "70000")
	if _, err := Load(); err == nil {
		t.Fatalf("expected out of range port error")
	}

	t.Setenv("SERVER_PORT", "")
	t.Setenv("PG_CONNECT_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected invalid duration error")
	}
}
