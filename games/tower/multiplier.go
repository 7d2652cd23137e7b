package tower

import "github.com/shopspring/decimal"

var one = decimal.NewFromInt(1)

// MultiplierFor returns the payout factor after row rows are cleared: base^row rounded
// to cents and capped at the tier ceiling. Depth 0 and unknown tiers pay 1.00.
func MultiplierFor(d Difficulty, row int) decimal.Decimal {
	t, ok := tunings[d]
	if !ok || row <= 0 {
		return one
	}
	m := one
	for i := 0; i < row; i++ {
		m = m.Mul(t.base)
	}
	m = m.Round(2)
	if m.GreaterThan(t.ceiling) {
		return t.ceiling
	}
	return m
}

// Payout is the credited amount for a stake at a multiplier.
func Payout(bet, multiplier decimal.Decimal) decimal.Decimal {
	return bet.Mul(multiplier).Round(2)
}
