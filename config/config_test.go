package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Raman-Maurya/mystartup-sub001/config"
)

// ============================================================================
// Test: loading and precedence
// ============================================================================

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("addr: got %q, want :8080", cfg.HTTP.Addr)
	}
	if cfg.HTTP.RateLimitRPS != 10 || cfg.HTTP.RateBurst != 20 {
		t.Errorf("rate limits: got %v/%d", cfg.HTTP.RateLimitRPS, cfg.HTTP.RateBurst)
	}
	if cfg.Market.NATSURL != "nats://localhost:4222" {
		t.Errorf("nats url: got %q", cfg.Market.NATSURL)
	}
	if cfg.Market.Subject != "market.prices.>" {
		t.Errorf("subject: got %q", cfg.Market.Subject)
	}
	if cfg.SweepInterval() != 5*time.Second {
		t.Errorf("sweep interval: got %s, want 5s", cfg.SweepInterval())
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level: got %q, want info", cfg.Log.Level)
	}
	if cfg.Storage.DSN != "" {
		t.Errorf("dsn should default to empty (in-memory): got %q", cfg.Storage.DSN)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
http:
  addr: ":9090"
  rate_limit_rps: 50
storage:
  dsn: "postgres://localhost/contests"
scheduler:
  interval_seconds: 30
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("addr: got %q, want :9090", cfg.HTTP.Addr)
	}
	if cfg.HTTP.RateLimitRPS != 50 {
		t.Errorf("rps: got %v, want 50", cfg.HTTP.RateLimitRPS)
	}
	if cfg.Storage.DSN != "postgres://localhost/contests" {
		t.Errorf("dsn: got %q", cfg.Storage.DSN)
	}
	if cfg.SweepInterval() != 30*time.Second {
		t.Errorf("sweep interval: got %s, want 30s", cfg.SweepInterval())
	}
	// Unset keys still fall back.
	if cfg.HTTP.RateBurst != 20 {
		t.Errorf("burst default: got %d, want 20", cfg.HTTP.RateBurst)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("http:\n  addr: \":9090\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONTEST_HTTP_ADDR", ":7070")
	t.Setenv("CONTEST_SWEEP_INTERVAL_SECONDS", "60")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Errorf("env must beat file: got %q, want :7070", cfg.HTTP.Addr)
	}
	if cfg.SweepInterval() != time.Minute {
		t.Errorf("sweep interval: got %s, want 1m", cfg.SweepInterval())
	}
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("http: [not: a: map"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := config.Load(path); err == nil {
		t.Fatal("malformed yaml should error")
	}
}
