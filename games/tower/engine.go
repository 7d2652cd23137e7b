package tower

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine runs the Tower state machine on top of a SessionStore and a Ledger.
// Operations that move money run inside one transaction of txManager.
type Engine struct {
	sessions  SessionStore
	ledger    Ledger
	txManager trm.Manager
	rng       *rand.Rand
	now       func() time.Time
	locks     *sessionLocks
	logger    *zap.Logger
}

type Option func(*Engine)

// WithRand replaces the board generator's random source.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(sessions SessionStore, ledger Ledger, txManager trm.Manager, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		sessions:  sessions,
		ledger:    ledger,
		txManager: txManager,
		rng:       defaultRand(),
		now:       time.Now,
		locks:     newSessionLocks(),
		logger:    logger.Named("tower"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidateBet requires a positive stake with at most two decimal places.
func ValidateBet(bet decimal.Decimal) error {
	if bet.Sign() <= 0 {
		return fmt.Errorf("%w: bet must be positive", ErrInvalidArgument)
	}
	if !bet.Equal(bet.Round(2)) {
		return fmt.Errorf("%w: bet has more than two decimals", ErrInvalidArgument)
	}
	return nil
}

// Start debits the stake and opens a session waiting for a difficulty. Both
// writes commit together or not at all.
func (e *Engine) Start(ctx context.Context, userID string, bet decimal.Decimal) (Snapshot, error) {
	if err := ValidateBet(bet); err != nil {
		return Snapshot{}, err
	}

	var sess Session
	err := e.txManager.Do(ctx, func(ctx context.Context) error {
		if err := e.ledger.Debit(ctx, userID, bet); err != nil {
			return err
		}
		created, err := e.sessions.Create(ctx, userID, bet, e.now())
		if err != nil {
			return err
		}
		sess = created
		return nil
	})
	if err != nil {
		e.logFailure("start", "", userID, err)
		return Snapshot{}, err
	}

	e.logger.Info("tower started",
		zap.String("session_id", sess.ID),
		zap.String("user_id", userID),
		zap.String("bet", bet.StringFixed(2)),
	)
	return sess.Snapshot(), nil
}

// ChooseDifficulty generates the board and activates the session.
func (e *Engine) ChooseDifficulty(ctx context.Context, id, requesterID string, d Difficulty) (Snapshot, error) {
	if !d.Valid() {
		return Snapshot{}, fmt.Errorf("%w: unknown difficulty %q", ErrInvalidArgument, d)
	}
	unlock, err := e.locks.lock(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	defer unlock()

	sess, err := e.load(ctx, id, requesterID)
	if err != nil {
		return Snapshot{}, err
	}
	status, err := transition(ctx, sess.Status, EventChoose)
	if err != nil {
		return Snapshot{}, err
	}

	board := GenerateBoard(d, e.rng)
	if err := e.sessions.SetDifficultyAndActivate(ctx, id, d, board); err != nil {
		e.logFailure("choose_difficulty", id, requesterID, err)
		return Snapshot{}, err
	}

	sess.Difficulty = d
	sess.Board = &board
	sess.Status = status
	e.logger.Debug("tower difficulty chosen", zap.String("session_id", id), zap.String("difficulty", string(d)))
	return sess.Snapshot(), nil
}

// PickTile resolves column on the session's current row. The row argument is only
// accepted when it matches the stored current row.
func (e *Engine) PickTile(ctx context.Context, id, requesterID string, row, column int) (Snapshot, error) {
	if column < 0 || column >= Columns {
		return Snapshot{}, fmt.Errorf("%w: column %d out of range", ErrInvalidArgument, column)
	}
	unlock, err := e.locks.lock(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	defer unlock()

	sess, err := e.load(ctx, id, requesterID)
	if err != nil {
		return Snapshot{}, err
	}
	if _, err := transition(ctx, sess.Status, EventAdvance); err != nil {
		return Snapshot{}, err
	}
	switch {
	case sess.CurrentRow >= Rows:
		return Snapshot{}, conflictf(ReasonTowerCleared)
	case sess.Revealed.Contains(row):
		return Snapshot{}, conflictf(ReasonRowRevealed)
	case row != sess.CurrentRow:
		return Snapshot{}, conflictf(ReasonWrongRow)
	case sess.Board == nil:
		return Snapshot{}, Persistence("pick_tile", fmt.Errorf("active session %s has no board", id))
	case sess.Board.SafeCount(row) != sess.Difficulty.SafeTiles():
		return Snapshot{}, Persistence("pick_tile", fmt.Errorf("session %s row %d does not match %s", id, row, sess.Difficulty))
	}

	revealed := sess.Revealed.With(row)
	multiplier := MultiplierFor(sess.Difficulty, row+1)
	event := EventAdvance
	if !sess.Board[row][column] {
		revealed = revealed.Complete()
		multiplier = decimal.Zero
		event = EventLose
	}
	status, err := transition(ctx, sess.Status, event)
	if err != nil {
		return Snapshot{}, err
	}

	if err := e.sessions.RecordReveal(ctx, id, row, revealed, multiplier, status); err != nil {
		e.logFailure("pick_tile", id, requesterID, err)
		return Snapshot{}, err
	}

	sess.Revealed = revealed
	sess.CurrentRow = row + 1
	sess.Multiplier = multiplier
	sess.Status = status
	if status == StatusLost {
		e.logger.Info("tower lost",
			zap.String("session_id", id),
			zap.Int("row", row),
			zap.String("bet", sess.Bet.StringFixed(2)),
		)
	}
	return sess.Snapshot(), nil
}

// Cashout pays bet × multiplier to the owner and closes the session. The credit and
// the terminal write share one transaction; on failure the session stays active.
func (e *Engine) Cashout(ctx context.Context, id, requesterID string) (Snapshot, error) {
	unlock, err := e.locks.lock(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	defer unlock()

	sess, err := e.load(ctx, id, requesterID)
	if err != nil {
		return Snapshot{}, err
	}
	status, err := transition(ctx, sess.Status, EventCashout)
	if err != nil {
		return Snapshot{}, err
	}

	revealed := sess.Revealed.Complete()
	var winnings decimal.Decimal
	err = e.txManager.Do(ctx, func(ctx context.Context) error {
		w, err := e.sessions.RecordCashout(ctx, id, sess.CurrentRow, revealed)
		if err != nil {
			return err
		}
		if err := e.ledger.Credit(ctx, sess.OwnerID, w); err != nil {
			return err
		}
		winnings = w
		return nil
	})
	if err != nil {
		e.logFailure("cashout", id, requesterID, err)
		return Snapshot{}, err
	}

	sess.Revealed = revealed
	sess.Status = status
	e.logger.Info("tower cashed out",
		zap.String("session_id", id),
		zap.String("user_id", sess.OwnerID),
		zap.String("multiplier", sess.Multiplier.StringFixed(2)),
		zap.String("winnings", winnings.StringFixed(2)),
	)
	return sess.Snapshot(), nil
}

// Snapshot returns the owner's current view without changing anything. The gateway
// uses it to redraw a board whose message fell behind the stored state.
func (e *Engine) Snapshot(ctx context.Context, id, requesterID string) (Snapshot, error) {
	sess, err := e.load(ctx, id, requesterID)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func (e *Engine) load(ctx context.Context, id, requesterID string) (Session, error) {
	sess, err := e.sessions.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if sess.OwnerID != requesterID {
		return Session{}, ErrForbidden
	}
	return sess, nil
}

// logFailure keeps expected rejections at debug and store failures at error.
func (e *Engine) logFailure(op, id, userID string, err error) {
	kind := KindOf(err)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("session_id", id),
		zap.String("user_id", userID),
		zap.Stringer("kind", kind),
		zap.Error(err),
	}
	if kind == KindPersistence {
		e.logger.Error("tower operation failed", fields...)
		return
	}
	e.logger.Debug("tower operation rejected", fields...)
}
