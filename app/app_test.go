package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"skyrush/config"
	"skyrush/games/tower"
	"skyrush/utils"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		CommandPrefix:   ".",
		SQLitePath:      filepath.Join(t.TempDir(), "skyrush.db"),
		Port:            "0",
		OpTimeout:       time.Second,
		RateLimitPerSec: 2,
		RateLimitBurst:  4,
	}
}

func TestStatus(t *testing.T) {
	s := NewStatus()
	if s.Get() != "starting" {
		t.Errorf("initial status = %q", s.Get())
	}
	s.Set("online")
	if s.Get() != "online" {
		t.Errorf("status = %q, want online", s.Get())
	}
}

func TestNewBackendSQLite(t *testing.T) {
	ctx := context.Background()
	backend, cleanup, err := NewBackend(ctx, testConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	defer cleanup()

	if backend.Driver != "sqlite" {
		t.Errorf("driver = %s, want sqlite", backend.Driver)
	}

	engine := NewEngine(backend, zap.NewNop())
	if err := backend.Store.Credit(ctx, "u", decimal.NewFromInt(50)); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	snap, err := engine.Start(ctx, "u", decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if snap.Status != tower.StatusChoosing {
		t.Errorf("status = %s", snap.Status)
	}
	if got, _ := backend.Store.Balance(ctx, "u"); !got.Equal(decimal.NewFromInt(30)) {
		t.Errorf("balance = %s, want 30", got)
	}
}

func TestNewLimiterLocal(t *testing.T) {
	limiter, cleanup, err := NewLimiter(context.Background(), testConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("NewLimiter: %v", err)
	}
	defer cleanup()
	if _, ok := limiter.(*utils.LocalLimiter); !ok {
		t.Errorf("limiter = %T, want *utils.LocalLimiter", limiter)
	}
}

func TestInitializeAppWithoutToken(t *testing.T) {
	app, cleanup, err := InitializeApp(context.Background(), testConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("InitializeApp: %v", err)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for app.status.Get() != "no_token" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if app.status.Get() != "no_token" {
		t.Errorf("status = %q, want no_token", app.status.Get())
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
