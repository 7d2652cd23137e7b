package tower

import (
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	Rows    = 9
	Columns = 4
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Board holds the safety of every tile. true means safe.
type Board [Rows][Columns]bool

// GenerateBoard marks the first SafeTiles() entries of a fresh column permutation safe, row by row.
func GenerateBoard(d Difficulty, rng *rand.Rand) Board {
	var b Board
	safe := d.SafeTiles()
	for r := 0; r < Rows; r++ {
		perm := rng.Perm(Columns)
		for _, c := range perm[:safe] {
			b[r][c] = true
		}
	}
	return b
}

// SafeCount returns how many safe tiles row r holds.
func (b *Board) SafeCount(r int) int {
	n := 0
	for _, safe := range b[r] {
		if safe {
			n++
		}
	}
	return n
}

// EncodeBoard renders the board for the tiles column. A nil board encodes as "[]".
func EncodeBoard(b *Board) (string, error) {
	if b == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(b)
	if err != nil {
		return "", fmt.Errorf("failed to encode board: %w", err)
	}
	return string(raw), nil
}

// DecodeBoard is the inverse of EncodeBoard.
func DecodeBoard(s string) (*Board, error) {
	var rows [][]bool
	if err := json.Unmarshal([]byte(s), &rows); err != nil {
		return nil, fmt.Errorf("failed to decode board: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) != Rows {
		return nil, fmt.Errorf("failed to decode board: got %d rows", len(rows))
	}
	var b Board
	for r, row := range rows {
		if len(row) != Columns {
			return nil, fmt.Errorf("failed to decode board: row %d has %d columns", r, len(row))
		}
		copy(b[r][:], row)
	}
	return &b, nil
}

// RevealedRows is an ordered set of disclosed row indices.
type RevealedRows []int

func (rr RevealedRows) Contains(row int) bool {
	return slices.Contains(rr, row)
}

// With returns a copy that also holds row. The receiver is not modified.
func (rr RevealedRows) With(row int) RevealedRows {
	if rr.Contains(row) {
		return slices.Clone(rr)
	}
	out := make(RevealedRows, 0, len(rr)+1)
	out = append(out, rr...)
	return append(out, row)
}

// Complete returns rr followed by every row it does not hold yet, in order.
func (rr RevealedRows) Complete() RevealedRows {
	out := slices.Clone(rr)
	for r := 0; r < Rows; r++ {
		if !out.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}

func EncodeRevealed(rr RevealedRows) (string, error) {
	if rr == nil {
		rr = RevealedRows{}
	}
	raw, err := json.Marshal(rr)
	if err != nil {
		return "", fmt.Errorf("failed to encode revealed rows: %w", err)
	}
	return string(raw), nil
}

func DecodeRevealed(s string) (RevealedRows, error) {
	rr := RevealedRows{}
	if err := json.Unmarshal([]byte(s), &rr); err != nil {
		return nil, fmt.Errorf("failed to decode revealed rows: %w", err)
	}
	return rr, nil
}

// lockedSource is a rand.Source64 safe for concurrent use.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// NewRand returns a generator that can be shared between goroutines.
func NewRand(seed int64) *rand.Rand {
	return rand.New(&lockedSource{src: rand.NewSource(seed).(rand.Source64)})
}

func defaultRand() *rand.Rand {
	return NewRand(time.Now().UnixNano())
}
