package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a Discord user's point balance. Rows are created lazily and never deleted.
type Account struct {
	UserID    string          `json:"user_id"`
	Points    decimal.Decimal `json:"points"`
	Level     int             `json:"level"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewAccount returns the zero-balance level 1 account every user starts from.
func NewAccount(userID string, now time.Time) Account {
	return Account{UserID: userID, Points: decimal.Zero, Level: 1, CreatedAt: now}
}

// Rank is the title shown next to a level
type Rank struct {
	Name  string
	Icon  string
	Level int
	Color int
}

var ranks = []Rank{
	{"Novice", "🥉", 1, 0xcd7f32},
	{"Apprentice", "🥈", 5, 0xc0c0c0},
	{"Gambler", "🥇", 10, 0xffd700},
	{"High Roller", "💰", 20, 0x22a7f0},
	{"Sky Baron", "🌤️", 35, 0x9b59b6},
	{"Legend", "🌟", 50, 0xf1c40f},
}

// GetRank returns the highest rank whose level the account has reached
func (a Account) GetRank() Rank {
	current := ranks[0]
	for _, r := range ranks {
		if a.Level >= r.Level {
			current = r
		}
	}
	return current
}

// PointsFromCents converts the integer column representation back to points.
func PointsFromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// PointsToCents converts points to whole cents, rounding half away from zero.
func PointsToCents(points decimal.Decimal) int64 {
	return points.Shift(2).Round(0).IntPart()
}
