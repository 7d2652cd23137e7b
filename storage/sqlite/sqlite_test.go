package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"skyrush/games/tower"
)

func openTestStore(t *testing.T) (*Store, *tower.Engine) {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})
	txManager, err := NewTxManager(db)
	if err != nil {
		t.Fatalf("NewTxManager: %v", err)
	}
	store := New(db)
	return store, tower.NewEngine(store, store, txManager, zap.NewNop(), tower.WithRand(tower.NewRand(5)))
}

func TestLedger(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	if err := store.Debit(ctx, "u1", decimal.NewFromInt(1)); !errors.Is(err, tower.ErrInsufficientFunds) {
		t.Errorf("debit on unknown user error = %v", err)
	}
	if err := store.Credit(ctx, "u1", decimal.RequireFromString("10.50")); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := store.Credit(ctx, "u1", decimal.RequireFromString("0.25")); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if err := store.Debit(ctx, "u1", decimal.NewFromInt(20)); !errors.Is(err, tower.ErrInsufficientFunds) {
		t.Errorf("overdraw error = %v", err)
	}
	if err := store.Debit(ctx, "u1", decimal.RequireFromString("0.75")); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	got, err := store.Balance(ctx, "u1")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("balance = %s, want 10", got)
	}
	if got, _ := store.Balance(ctx, "nobody"); !got.IsZero() {
		t.Errorf("unknown user balance = %s", got)
	}
}

func TestAccounts(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	for user, pts := range map[string]int64{"a": 5, "b": 50, "c": 20} {
		if err := store.Credit(ctx, user, decimal.NewFromInt(pts)); err != nil {
			t.Fatalf("Credit: %v", err)
		}
	}
	if err := store.SetLevel(ctx, "c", 7); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	if err := store.SetLevel(ctx, "d", 3); err != nil {
		t.Fatalf("SetLevel new user: %v", err)
	}

	top, err := store.Leaderboard(ctx, 3)
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(top) != 3 || top[0].UserID != "b" || top[1].UserID != "c" || top[2].UserID != "a" {
		t.Fatalf("leaderboard order = %+v", top)
	}
	if top[1].Level != 7 || !top[1].Points.Equal(decimal.NewFromInt(20)) {
		t.Errorf("set level clobbered account: %+v", top[1])
	}

	acc, err := store.GetAccount(ctx, "d")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if acc.Level != 3 || !acc.Points.IsZero() {
		t.Errorf("account d = %+v", acc)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	created := time.UnixMilli(1700000000123)

	sess, err := store.Create(ctx, "owner", decimal.RequireFromString("12.34"), created)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != tower.StatusChoosing || got.Board != nil || len(got.Revealed) != 0 {
		t.Errorf("fresh session = %+v", got)
	}
	if !got.Bet.Equal(decimal.RequireFromString("12.34")) || !got.Multiplier.Equal(decimal.NewFromInt(1)) {
		t.Errorf("bet %s multiplier %s", got.Bet, got.Multiplier)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, created)
	}

	board := tower.GenerateBoard(tower.Hard, tower.NewRand(11))
	if err := store.SetDifficultyAndActivate(ctx, sess.ID, tower.Hard, board); err != nil {
		t.Fatalf("SetDifficultyAndActivate: %v", err)
	}
	if err := store.SetDifficultyAndActivate(ctx, sess.ID, tower.Easy, board); !errors.Is(err, tower.ErrConflict) {
		t.Errorf("second activation error = %v", err)
	}
	got, err = store.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Board == nil || *got.Board != board || got.Difficulty != tower.Hard {
		t.Errorf("board or difficulty not persisted")
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, tower.ErrNotFound) {
		t.Errorf("missing session error = %v", err)
	}
}

func TestEngineOnSQLite(t *testing.T) {
	store, engine := openTestStore(t)
	ctx := context.Background()
	if err := store.Credit(ctx, "p", decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("Credit: %v", err)
	}

	snap, err := engine.Start(ctx, "p", decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	id := snap.SessionID
	if _, err := engine.ChooseDifficulty(ctx, id, "p", tower.Medium); err != nil {
		t.Fatalf("ChooseDifficulty: %v", err)
	}
	for row := 0; row < 2; row++ {
		sess, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		col := 0
		for !sess.Board[row][col] {
			col++
		}
		if _, err := engine.PickTile(ctx, id, "p", row, col); err != nil {
			t.Fatalf("PickTile row %d: %v", row, err)
		}
	}

	snap, err = engine.Cashout(ctx, id, "p")
	if err != nil {
		t.Fatalf("Cashout: %v", err)
	}
	if !snap.Winnings.Equal(decimal.NewFromInt(182)) {
		t.Errorf("winnings = %s, want 182", snap.Winnings)
	}
	got, _ := store.Balance(ctx, "p")
	if !got.Equal(decimal.NewFromInt(1082)) {
		t.Errorf("balance = %s, want 1082", got)
	}
	if _, err := engine.Cashout(ctx, id, "p"); !errors.Is(err, tower.ErrConflict) {
		t.Errorf("second cashout error = %v", err)
	}

	stored, _ := store.Get(ctx, id)
	if stored.Status != tower.StatusCashedOut || len(stored.Revealed) != tower.Rows {
		t.Errorf("stored session after cashout: %s %v", stored.Status, stored.Revealed)
	}
}

func TestStartRollsBackOnInsufficientFunds(t *testing.T) {
	store, engine := openTestStore(t)
	ctx := context.Background()
	if err := store.Credit(ctx, "q", decimal.NewFromInt(10)); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if _, err := engine.Start(ctx, "q", decimal.NewFromInt(11)); !errors.Is(err, tower.ErrInsufficientFunds) {
		t.Fatalf("Start error = %v", err)
	}
	var n int
	if err := store.sqlDB.QueryRow("SELECT COUNT(*) FROM tower_games").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("%d sessions created despite failed debit", n)
	}
}
