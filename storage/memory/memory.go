// Package memory keeps sessions and balances in process memory. It backs the
// engine tests and local runs without a database.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"skyrush/games/tower"
	"skyrush/models"
)

type txKey struct{}

// Store implements tower.SessionStore, tower.Ledger, the account queries and a
// trm.Manager whose transactions restore the previous state on error.
type Store struct {
	mu       sync.Mutex
	sessions map[string]tower.Session
	accounts map[string]models.Account
	faults   map[string]error
	now      func() time.Time
}

var (
	_ tower.SessionStore = (*Store)(nil)
	_ tower.Ledger       = (*Store)(nil)
	_ trm.Manager        = (*Store)(nil)
)

func New() *Store {
	return &Store{
		sessions: make(map[string]tower.Session),
		accounts: make(map[string]models.Account),
		faults:   make(map[string]error),
		now:      time.Now,
	}
}

// FailNext makes the next call of op return err. Ops are the method names.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

func (s *Store) fault(op string) error {
	err, ok := s.faults[op]
	if !ok {
		return nil
	}
	delete(s.faults, op)
	return tower.Persistence(op, err)
}

// Do runs fn while holding the store. Nested calls join the outer transaction.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := maps.Clone(s.sessions)
	accounts := maps.Clone(s.accounts)
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.sessions = sessions
		s.accounts = accounts
		return err
	}
	return nil
}

func (s *Store) DoWithSettings(ctx context.Context, _ trm.Settings, fn func(ctx context.Context) error) error {
	return s.Do(ctx, fn)
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// exclusive runs fn under the store lock unless the caller's transaction already holds it.
func (s *Store) exclusive(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return tower.Persistence("memory", err)
	}
	if s.inTx(ctx) {
		return fn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

func (s *Store) Create(ctx context.Context, ownerID string, bet decimal.Decimal, createdAt time.Time) (tower.Session, error) {
	var sess tower.Session
	err := s.exclusive(ctx, func() error {
		if err := s.fault("Create"); err != nil {
			return err
		}
		sess = tower.NewSession(uuid.NewString(), ownerID, bet, createdAt)
		s.sessions[sess.ID] = sess
		return nil
	})
	return sess, err
}

func (s *Store) Get(ctx context.Context, id string) (tower.Session, error) {
	var sess tower.Session
	err := s.exclusive(ctx, func() error {
		if err := s.fault("Get"); err != nil {
			return err
		}
		found, ok := s.sessions[id]
		if !ok {
			return fmt.Errorf("session %s: %w", id, tower.ErrNotFound)
		}
		sess = cloneSession(found)
		return nil
	})
	return sess, err
}

func (s *Store) SetDifficultyAndActivate(ctx context.Context, id string, d tower.Difficulty, board tower.Board) error {
	return s.exclusive(ctx, func() error {
		if err := s.fault("SetDifficultyAndActivate"); err != nil {
			return err
		}
		sess, ok := s.sessions[id]
		if !ok {
			return fmt.Errorf("session %s: %w", id, tower.ErrNotFound)
		}
		if sess.Status != tower.StatusChoosing {
			return tower.StaleWrite("set difficulty")
		}
		sess.Difficulty = d
		sess.Board = &board
		sess.Status = tower.StatusActive
		s.sessions[id] = sess
		return nil
	})
}

func (s *Store) RecordReveal(ctx context.Context, id string, row int, revealed tower.RevealedRows, multiplier decimal.Decimal, status tower.Status) error {
	return s.exclusive(ctx, func() error {
		if err := s.fault("RecordReveal"); err != nil {
			return err
		}
		sess, ok := s.sessions[id]
		if !ok {
			return fmt.Errorf("session %s: %w", id, tower.ErrNotFound)
		}
		if sess.Status != tower.StatusActive || sess.CurrentRow != row {
			return tower.StaleWrite("record reveal")
		}
		sess.Revealed = append(tower.RevealedRows(nil), revealed...)
		sess.CurrentRow = row + 1
		sess.Multiplier = multiplier
		sess.Status = status
		s.sessions[id] = sess
		return nil
	})
}

func (s *Store) RecordCashout(ctx context.Context, id string, expectedRow int, revealed tower.RevealedRows) (decimal.Decimal, error) {
	var winnings decimal.Decimal
	err := s.exclusive(ctx, func() error {
		if err := s.fault("RecordCashout"); err != nil {
			return err
		}
		sess, ok := s.sessions[id]
		if !ok {
			return fmt.Errorf("session %s: %w", id, tower.ErrNotFound)
		}
		if sess.Status != tower.StatusActive || sess.CurrentRow != expectedRow {
			return tower.StaleWrite("record cashout")
		}
		sess.Revealed = append(tower.RevealedRows(nil), revealed...)
		sess.Status = tower.StatusCashedOut
		s.sessions[id] = sess
		winnings = tower.Payout(sess.Bet, sess.Multiplier)
		return nil
	})
	return winnings, err
}

func (s *Store) Debit(ctx context.Context, userID string, amount decimal.Decimal) error {
	return s.exclusive(ctx, func() error {
		if err := s.fault("Debit"); err != nil {
			return err
		}
		acc, ok := s.accounts[userID]
		if !ok || acc.Points.LessThan(amount) {
			return fmt.Errorf("debit %s: %w", userID, tower.ErrInsufficientFunds)
		}
		acc.Points = acc.Points.Sub(amount)
		s.accounts[userID] = acc
		return nil
	})
}

func (s *Store) Credit(ctx context.Context, userID string, amount decimal.Decimal) error {
	return s.exclusive(ctx, func() error {
		if err := s.fault("Credit"); err != nil {
			return err
		}
		acc := s.account(userID)
		acc.Points = acc.Points.Add(amount)
		s.accounts[userID] = acc
		return nil
	})
}

func (s *Store) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var points decimal.Decimal
	err := s.exclusive(ctx, func() error {
		points = s.accounts[userID].Points
		return nil
	})
	return points, err
}

// GetAccount returns the account, or a zero-balance level 1 account for unknown users.
func (s *Store) GetAccount(ctx context.Context, userID string) (models.Account, error) {
	var acc models.Account
	err := s.exclusive(ctx, func() error {
		if found, ok := s.accounts[userID]; ok {
			acc = found
			return nil
		}
		acc = models.NewAccount(userID, s.now())
		return nil
	})
	return acc, err
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]models.Account, error) {
	var out []models.Account
	err := s.exclusive(ctx, func() error {
		for _, acc := range s.accounts {
			out = append(out, acc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if cmp := out[i].Points.Cmp(out[j].Points); cmp != 0 {
			return cmp > 0
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) SetLevel(ctx context.Context, userID string, level int) error {
	return s.exclusive(ctx, func() error {
		acc := s.account(userID)
		acc.Level = level
		s.accounts[userID] = acc
		return nil
	})
}

// account returns the stored account or a fresh one. Callers hold the lock.
func (s *Store) account(userID string) models.Account {
	if acc, ok := s.accounts[userID]; ok {
		return acc
	}
	return models.NewAccount(userID, s.now())
}

func cloneSession(sess tower.Session) tower.Session {
	sess.Revealed = append(tower.RevealedRows{}, sess.Revealed...)
	if sess.Board != nil {
		b := *sess.Board
		sess.Board = &b
	}
	return sess
}
