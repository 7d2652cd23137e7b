package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.CommandPrefix != "." || cfg.Port != "8080" || cfg.SQLitePath != "skyrush.db" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.OpTimeout != 5*time.Second {
		t.Errorf("OpTimeout = %s, want 5s", cfg.OpTimeout)
	}
	if cfg.UsePostgres() {
		t.Error("postgres selected without DATABASE_URL")
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/skyrush")
	t.Setenv("OP_TIMEOUT", "750ms")
	t.Setenv("RATE_LIMIT_BURST", "10")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cfg.UsePostgres() {
		t.Error("expected postgres backend")
	}
	if cfg.OpTimeout != 750*time.Millisecond || cfg.RateLimitBurst != 10 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"bad duration", "OP_TIMEOUT", "soon", "parse env:"},
		{"zero timeout", "OP_TIMEOUT", "0s", "OP_TIMEOUT"},
		{"negative rate", "RATE_LIMIT_PER_SEC", "-1", "rate limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Parse()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("COMMAND_PREFIX=!\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("COMMAND_PREFIX", "")
	os.Unsetenv("COMMAND_PREFIX")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CommandPrefix != "!" {
		t.Errorf("CommandPrefix = %q, want !", cfg.CommandPrefix)
	}
	os.Unsetenv("COMMAND_PREFIX")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}
