package render

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"skyrush/games/tower"
)

func TestTowerImage(t *testing.T) {
	sess := tower.NewSession("id", "owner", decimal.NewFromInt(25), time.Now())
	board := tower.GenerateBoard(tower.Easy, tower.NewRand(1))
	sess.Difficulty = tower.Easy
	sess.Board = &board
	sess.Status = tower.StatusActive

	tests := []struct {
		name   string
		mutate func(*tower.Session)
	}{
		{"active", func(*tower.Session) {}},
		{"lost", func(s *tower.Session) {
			s.Status = tower.StatusLost
			s.Multiplier = decimal.Zero
			s.Revealed = s.Revealed.Complete()
		}},
		{"cleared", func(s *tower.Session) {
			s.CurrentRow = tower.Rows
			s.Revealed = tower.RevealedRows{}.Complete()
		}},
	}
	wantW, wantH := Size()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sess
			tt.mutate(&s)
			raw, err := Tower(s.Snapshot(), "tester")
			if err != nil {
				t.Fatalf("Tower: %v", err)
			}
			img, err := png.Decode(bytes.NewReader(raw))
			if err != nil {
				t.Fatalf("png.Decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() != wantW || b.Dy() != wantH {
				t.Errorf("image is %dx%d, want %dx%d", b.Dx(), b.Dy(), wantW, wantH)
			}
		})
	}
}

func TestFooter(t *testing.T) {
	snap := tower.Snapshot{Status: tower.StatusChoosing}
	if got := footer(snap); got != "Pick a difficulty to begin" {
		t.Errorf("choosing footer = %q", got)
	}
	snap = tower.Snapshot{
		Status:     tower.StatusCashedOut,
		Multiplier: decimal.RequireFromString("1.82"),
		Winnings:   decimal.NewFromInt(182),
	}
	if got := footer(snap); got != "Cashed out x1.82 for 182.00" {
		t.Errorf("cashout footer = %q", got)
	}
}
