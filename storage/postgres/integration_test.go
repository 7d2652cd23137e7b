//go:build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"skyrush/games/tower"
)

// Run with: SKYRUSH_TEST_DATABASE_URL=postgres://... go test -tags integration ./storage/postgres
func openIntegrationStore(t *testing.T) (*Store, *tower.Engine) {
	t.Helper()
	url := os.Getenv("SKYRUSH_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("SKYRUSH_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := Connect(ctx, url, zap.NewNop())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(pool.Close)
	txManager, err := NewTxManager(pool)
	if err != nil {
		t.Fatalf("NewTxManager: %v", err)
	}
	store := New(pool)
	return store, tower.NewEngine(store, store, txManager, zap.NewNop(), tower.WithRand(tower.NewRand(17)))
}

// freshUser keeps runs against a shared database from seeing each other's rows.
func freshUser(t *testing.T) string {
	t.Helper()
	return "it-" + uuid.NewString()
}

func TestIntegrationLedger(t *testing.T) {
	store, _ := openIntegrationStore(t)
	ctx := context.Background()
	user := freshUser(t)

	if err := store.Debit(ctx, user, decimal.NewFromInt(1)); !errors.Is(err, tower.ErrInsufficientFunds) {
		t.Errorf("debit on unknown user error = %v", err)
	}
	if err := store.Credit(ctx, user, decimal.RequireFromString("10.25")); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := store.Debit(ctx, user, decimal.RequireFromString("10.26")); !errors.Is(err, tower.ErrInsufficientFunds) {
		t.Errorf("overdraw error = %v", err)
	}
	if err := store.Debit(ctx, user, decimal.RequireFromString("0.25")); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if got, _ := store.Balance(ctx, user); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("balance = %s, want 10", got)
	}
}

func TestIntegrationCashoutReturning(t *testing.T) {
	store, engine := openIntegrationStore(t)
	ctx := context.Background()
	user := freshUser(t)
	if err := store.Credit(ctx, user, decimal.NewFromInt(100)); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	snap, err := engine.Start(ctx, user, decimal.RequireFromString("12.34"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	id := snap.SessionID
	if _, err := engine.ChooseDifficulty(ctx, id, user, tower.Easy); err != nil {
		t.Fatalf("ChooseDifficulty: %v", err)
	}
	sess, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	col := 0
	for !sess.Board[0][col] {
		col++
	}
	if _, err := engine.PickTile(ctx, id, user, 0, col); err != nil {
		t.Fatalf("PickTile: %v", err)
	}

	// a cashout that expects an older row must not match the RETURNING update
	if _, err := store.RecordCashout(ctx, id, 0, tower.RevealedRows{0}.Complete()); !errors.Is(err, tower.ErrConflict) {
		t.Errorf("stale cashout error = %v, want conflict", err)
	}

	snap, err = engine.Cashout(ctx, id, user)
	if err != nil {
		t.Fatalf("Cashout: %v", err)
	}
	want := tower.Payout(decimal.RequireFromString("12.34"), tower.MultiplierFor(tower.Easy, 1))
	if !snap.Winnings.Equal(want) {
		t.Errorf("winnings = %s, want %s", snap.Winnings, want)
	}
	if got, _ := store.Balance(ctx, user); !got.Equal(decimal.RequireFromString("87.66").Add(want)) {
		t.Errorf("balance = %s", got)
	}
	if _, err := engine.Cashout(ctx, id, user); !errors.Is(err, tower.ErrConflict) {
		t.Errorf("second cashout error = %v, want conflict", err)
	}
}
