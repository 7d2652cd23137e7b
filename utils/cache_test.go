package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"skyrush/models"
)

func TestLeaderboardCache(t *testing.T) {
	now := time.Unix(1700000000, 0)
	cache := NewLeaderboardCache(30 * time.Second)
	cache.now = func() time.Time { return now }

	if _, ok := cache.Get(10); ok {
		t.Fatal("Expected empty cache to miss")
	}

	board := []models.Account{{UserID: "a", Points: decimal.NewFromInt(5)}}
	cache.Set(10, board)
	board[0].UserID = "mutated"

	got, ok := cache.Get(10)
	if !ok || len(got) != 1 || got[0].UserID != "a" {
		t.Fatalf("Get = %v, %v", got, ok)
	}
	got[0].UserID = "mutated"
	if again, _ := cache.Get(10); again[0].UserID != "a" {
		t.Error("Expected cache to hand out copies")
	}

	if _, ok := cache.Get(5); ok {
		t.Error("Expected a different limit to miss")
	}

	now = now.Add(31 * time.Second)
	if _, ok := cache.Get(10); ok {
		t.Error("Expected expired entry to miss")
	}

	cache.Set(10, board)
	cache.Invalidate()
	if _, ok := cache.Get(10); ok {
		t.Error("Expected invalidated cache to miss")
	}
}
