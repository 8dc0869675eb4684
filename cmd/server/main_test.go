package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/apache/age-viewer/backend/internal/config"
)

func TestParseAllowedOrigins(t *testing.T) {
	got := parseAllowedOrigins(" http://a.example , ,http://b.example")
	if len(got) != 2 || got[0] != "http://a.example" || got[1] != "http://b.example" {
		t.Fatalf("unexpected origins %v", got)
	}
	if parseAllowedOrigins("") != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestApplyFlagsOnlyOverridesChanged(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--port", "8080", "--static-dir", "/srv/viewer"}); err != nil {
		t.Fatalf("ParseFlags returned error: %v", err)
	}
	cfg := config.Config{
		HTTP:    config.HTTPConfig{Host: "0.0.0.0", Port: 3001},
		Logging: config.LoggingConfig{Dir: "/var/log/viewer"},
	}
	f := flags{port: 8080, staticDir: "/srv/viewer"}
	applyFlags(cmd, &cfg, f)

	if cfg.HTTP.Port != 8080 || cfg.HTTP.StaticDir != "/srv/viewer" {
		t.Fatalf("flags not applied: %+v", cfg.HTTP)
	}
	if cfg.HTTP.Host != "0.0.0.0" || cfg.Logging.Dir != "/var/log/viewer" {
		t.Fatalf("unset flags overrode config: %+v", cfg)
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if strings.TrimSpace(out.String()) != version {
		t.Fatalf("expected %q, got %q", version, out.String())
	}
}
