package tower

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SessionStore persists Tower sessions. Every write is conditional on the stored
// status (and row, where relevant) and returns ErrConflict when the condition fails,
// so of two racing writers exactly one wins.
type SessionStore interface {
	Create(ctx context.Context, ownerID string, bet decimal.Decimal, createdAt time.Time) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	// SetDifficultyAndActivate moves a choosing session to active with its board.
	SetDifficultyAndActivate(ctx context.Context, id string, d Difficulty, board Board) error
	// RecordReveal stores the outcome of the pick at row. It requires status active
	// and current_row == row, then sets current_row to row+1.
	RecordReveal(ctx context.Context, id string, row int, revealed RevealedRows, multiplier decimal.Decimal, status Status) error
	// RecordCashout closes an active session still at expectedRow and returns the winnings.
	RecordCashout(ctx context.Context, id string, expectedRow int, revealed RevealedRows) (decimal.Decimal, error)
}

// Ledger is the only way balances change.
type Ledger interface {
	// Debit fails with ErrInsufficientFunds unless the balance covers amount.
	// Unknown users hold zero.
	Debit(ctx context.Context, userID string, amount decimal.Decimal) error
	// Credit creates the account on first use.
	Credit(ctx context.Context, userID string, amount decimal.Decimal) error
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
}
