package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatPoints(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0", "0.00"},
		{"182", "182.00"},
		{"1082.5", "1,082.50"},
		{"1234567.891", "1,234,567.89"},
		{"-2500", "-2,500.00"},
	}
	for _, tt := range tests {
		if got := FormatPoints(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("FormatPoints(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFormatProfit(t *testing.T) {
	if got := FormatProfit(decimal.NewFromInt(82)); got != "+82.00" {
		t.Errorf("Expected +82.00, got %s", got)
	}
	if got := FormatProfit(decimal.NewFromInt(-100)); got != "-100.00" {
		t.Errorf("Expected -100.00, got %s", got)
	}
}
