package tower

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle position of a session.
type Status string

const (
	StatusChoosing  Status = "choosing"
	StatusActive    Status = "active"
	StatusLost      Status = "lost"
	StatusCashedOut Status = "cashed_out"
)

// Terminal reports whether the session accepts no further input.
func (s Status) Terminal() bool {
	return s == StatusLost || s == StatusCashedOut
}

// Session is the persisted state of one Tower game.
type Session struct {
	ID         string
	OwnerID    string
	Bet        decimal.Decimal
	Difficulty Difficulty
	Board      *Board
	Revealed   RevealedRows
	CurrentRow int
	Multiplier decimal.Decimal
	Status     Status
	CreatedAt  time.Time
}

// NewSession returns a session in the choosing state.
func NewSession(id, ownerID string, bet decimal.Decimal, createdAt time.Time) Session {
	return Session{
		ID:         id,
		OwnerID:    ownerID,
		Bet:        bet,
		Revealed:   RevealedRows{},
		Multiplier: one,
		Status:     StatusChoosing,
		CreatedAt:  createdAt,
	}
}

// Cell is what a player may know about one tile.
type Cell int

const (
	CellHidden Cell = iota
	CellSafe
	CellUnsafe
)

// RowView is one row of a Snapshot.
type RowView struct {
	Revealed bool
	Cells    [Columns]Cell
}

// Snapshot is the read-only view handed to renderers and the gateway. While the game
// is running it carries tile safety only for rows that were already revealed.
type Snapshot struct {
	SessionID      string
	OwnerID        string
	Bet            decimal.Decimal
	Difficulty     Difficulty
	Status         Status
	CurrentRow     int
	Multiplier     decimal.Decimal
	NextMultiplier decimal.Decimal
	Winnings       decimal.Decimal
	Rows           [Rows]RowView
}

// Snapshot derives the player-facing view of s.
func (s Session) Snapshot() Snapshot {
	snap := Snapshot{
		SessionID:  s.ID,
		OwnerID:    s.OwnerID,
		Bet:        s.Bet,
		Difficulty: s.Difficulty,
		Status:     s.Status,
		CurrentRow: s.CurrentRow,
		Multiplier: s.Multiplier,
	}
	if s.Status == StatusActive && s.CurrentRow < Rows {
		snap.NextMultiplier = MultiplierFor(s.Difficulty, s.CurrentRow+1)
	}
	if s.Status == StatusCashedOut {
		snap.Winnings = Payout(s.Bet, s.Multiplier)
	}
	if s.Board == nil {
		return snap
	}
	for r := 0; r < Rows; r++ {
		if !s.Status.Terminal() && !s.Revealed.Contains(r) {
			continue
		}
		view := RowView{Revealed: true}
		for c := 0; c < Columns; c++ {
			if s.Board[r][c] {
				view.Cells[c] = CellSafe
			} else {
				view.Cells[c] = CellUnsafe
			}
		}
		snap.Rows[r] = view
	}
	return snap
}

// CanCashout reports whether the game is running. Cashing out before the first
// pick returns the stake at x1.00.
func (s Snapshot) CanCashout() bool {
	return s.Status == StatusActive
}

// Profit is winnings minus stake. A lost game returns the negated stake.
func (s Snapshot) Profit() decimal.Decimal {
	switch s.Status {
	case StatusCashedOut:
		return s.Winnings.Sub(s.Bet)
	case StatusLost:
		return s.Bet.Neg()
	default:
		return decimal.Zero
	}
}
