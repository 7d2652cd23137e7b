package tower

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Difficulty selects how many tiles per row are safe and how fast the multiplier grows.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists the playable tiers in button order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

type tuning struct {
	safeTiles int
	base      decimal.Decimal
	ceiling   decimal.Decimal
}

var tunings = map[Difficulty]tuning{
	Easy:   {safeTiles: 3, base: decimal.RequireFromString("1.25"), ceiling: decimal.NewFromInt(14)},
	Medium: {safeTiles: 2, base: decimal.RequireFromString("1.35"), ceiling: decimal.NewFromInt(30)},
	Hard:   {safeTiles: 1, base: decimal.RequireFromString("1.5"), ceiling: decimal.NewFromInt(50)},
}

// ParseDifficulty accepts a tier name in any case.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: unknown difficulty %q", ErrInvalidArgument, s)
	}
	return d, nil
}

func (d Difficulty) Valid() bool {
	_, ok := tunings[d]
	return ok
}

// SafeTiles is the number of safe columns in every row, 0 for an unknown tier.
func (d Difficulty) SafeTiles() int {
	return tunings[d].safeTiles
}

// Ceiling is the highest multiplier the tier can pay.
func (d Difficulty) Ceiling() decimal.Decimal {
	return tunings[d].ceiling
}

// Label is the capitalized name shown on buttons and embeds.
func (d Difficulty) Label() string {
	if d == "" {
		return "Not chosen"
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}
