package tower

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestMultiplierFor(t *testing.T) {
	tests := []struct {
		difficulty Difficulty
		row        int
		want       string
	}{
		{Easy, 0, "1"},
		{Easy, 1, "1.25"},
		{Easy, 2, "1.56"},
		{Easy, 9, "7.45"},
		{Medium, 1, "1.35"},
		{Medium, 2, "1.82"},
		{Medium, 9, "14.89"},
		{Hard, 1, "1.5"},
		{Hard, 3, "3.38"},
		{Hard, 9, "38.44"},
		{Hard, 10, "50"},
		{Easy, 20, "14"},
		{Medium, 15, "30"},
	}
	for _, tt := range tests {
		got := MultiplierFor(tt.difficulty, tt.row)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("MultiplierFor(%s, %d) = %s, want %s", tt.difficulty, tt.row, got, tt.want)
		}
	}
}

func TestMultiplierMonotonicAndCapped(t *testing.T) {
	for _, d := range Difficulties {
		prev := MultiplierFor(d, 0)
		for row := 1; row <= 30; row++ {
			m := MultiplierFor(d, row)
			if m.LessThan(prev) {
				t.Errorf("%s: row %d multiplier %s below previous %s", d, row, m, prev)
			}
			if m.GreaterThan(d.Ceiling()) {
				t.Errorf("%s: row %d multiplier %s above ceiling %s", d, row, m, d.Ceiling())
			}
			if again := MultiplierFor(d, row); !again.Equal(m) {
				t.Errorf("%s: row %d not deterministic", d, row)
			}
			prev = m
		}
	}
}

func TestPayout(t *testing.T) {
	got := Payout(decimal.NewFromInt(100), decimal.RequireFromString("1.82"))
	if !got.Equal(decimal.NewFromInt(182)) {
		t.Errorf("Payout = %s, want 182", got)
	}
	got = Payout(decimal.RequireFromString("0.05"), decimal.RequireFromString("1.25"))
	if !got.Equal(decimal.RequireFromString("0.06")) {
		t.Errorf("Payout = %s, want 0.06", got)
	}
}
