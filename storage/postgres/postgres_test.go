package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"skyrush/games/tower"
)

func TestDebitError(t *testing.T) {
	check := fmt.Errorf("exec: %w", &pgconn.PgError{Code: checkViolation, ConstraintName: "users_points_cents_check"})
	if err := debitError("u1", check); !errors.Is(err, tower.ErrInsufficientFunds) {
		t.Errorf("check violation = %v, want insufficient funds", err)
	}

	unique := &pgconn.PgError{Code: "23505"}
	if err := debitError("u1", unique); tower.KindOf(err) != tower.KindPersistence {
		t.Errorf("unique violation kind = %s, want persistence", tower.KindOf(err))
	}
	if err := debitError("u1", errors.New("conn reset")); !errors.Is(err, tower.ErrPersistence) {
		t.Errorf("driver error = %v, want persistence", err)
	}
}
