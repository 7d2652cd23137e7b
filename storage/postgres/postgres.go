// Package postgres stores Tower sessions and balances in PostgreSQL through pgx.
// Every statement picks up the transaction from ctx when one is open.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"skyrush/games/tower"
	"skyrush/models"
	"skyrush/storage"
)

const checkViolation = "23514"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id      TEXT PRIMARY KEY,
	points_cents BIGINT NOT NULL DEFAULT 0 CHECK (points_cents >= 0),
	level        INTEGER NOT NULL DEFAULT 1,
	created_at   BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS tower_games (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	bet_cents        BIGINT NOT NULL CHECK (bet_cents > 0),
	mode             TEXT NOT NULL DEFAULT '',
	tiles            TEXT NOT NULL DEFAULT '[]',
	revealed_rows    TEXT NOT NULL DEFAULT '[]',
	current_row      INTEGER NOT NULL DEFAULT 0,
	multiplier_cents BIGINT NOT NULL DEFAULT 100,
	status           TEXT NOT NULL,
	created_at       BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_points ON users (points_cents DESC);
CREATE INDEX IF NOT EXISTS idx_tower_games_user ON tower_games (user_id, created_at DESC);
`

// Connect opens a tuned pool and makes sure the tables exist.
func Connect(ctx context.Context, databaseURL string, logger *zap.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 30
	config.MinConns = 4
	config.MaxConnLifetime = 45 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second
	config.ConnConfig.RuntimeParams = map[string]string{
		"application_name":                    "skyrush-bot",
		"timezone":                            "UTC",
		"statement_timeout":                   "10s",
		"idle_in_transaction_session_timeout": "30s",
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	logger.Info("postgres connected", zap.Int32("max_conns", config.MaxConns))
	return pool, nil
}

// NewTxManager returns a manager whose transactions the Store joins through ctx.
func NewTxManager(pool *pgxpool.Pool) (trm.Manager, error) {
	m, err := manager.New(trmpgx.NewDefaultFactory(pool))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction manager: %w", err)
	}
	return m, nil
}

type Store struct {
	pool    *pgxpool.Pool
	getter  *trmpgx.CtxGetter
	queries storage.Queries
	now     func() time.Time
}

var (
	_ tower.SessionStore = (*Store)(nil)
	_ tower.Ledger       = (*Store)(nil)
)

func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:    pool,
		getter:  trmpgx.DefaultCtxGetter,
		queries: storage.NewQueries(sq.Dollar),
		now:     time.Now,
	}
}

func (s *Store) db(ctx context.Context) trmpgx.Tr {
	return s.getter.DefaultTrOrDB(ctx, s.pool)
}

func (s *Store) Create(ctx context.Context, ownerID string, bet decimal.Decimal, createdAt time.Time) (tower.Session, error) {
	sess := tower.NewSession(uuid.NewString(), ownerID, bet, createdAt)
	query, args, err := s.queries.InsertGame(sess)
	if err != nil {
		return tower.Session{}, tower.Persistence("create session", err)
	}
	if _, err := s.db(ctx).Exec(ctx, query, args...); err != nil {
		return tower.Session{}, tower.Persistence("create session", err)
	}
	return sess, nil
}

func (s *Store) Get(ctx context.Context, id string) (tower.Session, error) {
	query, args, err := s.queries.SelectGame(id)
	if err != nil {
		return tower.Session{}, tower.Persistence("get session", err)
	}
	sess, err := storage.ScanGame(s.db(ctx).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return tower.Session{}, fmt.Errorf("session %s: %w", id, tower.ErrNotFound)
	}
	if err != nil {
		return tower.Session{}, tower.Persistence("get session", err)
	}
	return sess, nil
}

func (s *Store) SetDifficultyAndActivate(ctx context.Context, id string, d tower.Difficulty, board tower.Board) error {
	query, args, err := s.queries.ActivateGame(id, d, board)
	if err != nil {
		return tower.Persistence("set difficulty", err)
	}
	return s.execConditional(ctx, "set difficulty", query, args)
}

func (s *Store) RecordReveal(ctx context.Context, id string, row int, revealed tower.RevealedRows, multiplier decimal.Decimal, status tower.Status) error {
	query, args, err := s.queries.RecordReveal(id, row, revealed, multiplier, status)
	if err != nil {
		return tower.Persistence("record reveal", err)
	}
	return s.execConditional(ctx, "record reveal", query, args)
}

func (s *Store) RecordCashout(ctx context.Context, id string, expectedRow int, revealed tower.RevealedRows) (decimal.Decimal, error) {
	query, args, err := s.queries.RecordCashout(id, expectedRow, revealed)
	if err != nil {
		return decimal.Zero, tower.Persistence("record cashout", err)
	}
	var betCents, multCents int64
	err = s.db(ctx).QueryRow(ctx, query, args...).Scan(&betCents, &multCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, tower.StaleWrite("record cashout")
	}
	if err != nil {
		return decimal.Zero, tower.Persistence("record cashout", err)
	}
	return storage.Winnings(betCents, multCents), nil
}

func (s *Store) Debit(ctx context.Context, userID string, amount decimal.Decimal) error {
	query, args, err := s.queries.Debit(userID, models.PointsToCents(amount))
	if err != nil {
		return tower.Persistence("debit", err)
	}
	tag, err := s.db(ctx).Exec(ctx, query, args...)
	if err != nil {
		return debitError(userID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("debit %s: %w", userID, tower.ErrInsufficientFunds)
	}
	return nil
}

// debitError maps the points_cents >= 0 check onto ErrInsufficientFunds.
func debitError(userID string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == checkViolation {
		return fmt.Errorf("debit %s: %w", userID, tower.ErrInsufficientFunds)
	}
	return tower.Persistence("debit", err)
}

func (s *Store) Credit(ctx context.Context, userID string, amount decimal.Decimal) error {
	query, args, err := s.queries.Credit(userID, models.PointsToCents(amount), s.now())
	if err != nil {
		return tower.Persistence("credit", err)
	}
	if _, err := s.db(ctx).Exec(ctx, query, args...); err != nil {
		return tower.Persistence("credit", err)
	}
	return nil
}

func (s *Store) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	acc, err := s.GetAccount(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return acc.Points, nil
}

// GetAccount returns a zero-balance account for users without a row.
func (s *Store) GetAccount(ctx context.Context, userID string) (models.Account, error) {
	query, args, err := s.queries.SelectAccount(userID)
	if err != nil {
		return models.Account{}, tower.Persistence("get account", err)
	}
	acc, err := storage.ScanAccount(s.db(ctx).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewAccount(userID, s.now()), nil
	}
	if err != nil {
		return models.Account{}, tower.Persistence("get account", err)
	}
	return acc, nil
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]models.Account, error) {
	query, args, err := s.queries.Leaderboard(limit)
	if err != nil {
		return nil, tower.Persistence("leaderboard", err)
	}
	rows, err := s.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, tower.Persistence("leaderboard", err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		acc, err := storage.ScanAccount(rows)
		if err != nil {
			return nil, tower.Persistence("leaderboard", err)
		}
		out = append(out, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, tower.Persistence("leaderboard", err)
	}
	return out, nil
}

func (s *Store) SetLevel(ctx context.Context, userID string, level int) error {
	query, args, err := s.queries.SetLevel(userID, level, s.now())
	if err != nil {
		return tower.Persistence("set level", err)
	}
	if _, err := s.db(ctx).Exec(ctx, query, args...); err != nil {
		return tower.Persistence("set level", err)
	}
	return nil
}

func (s *Store) execConditional(ctx context.Context, op, query string, args []any) error {
	tag, err := s.db(ctx).Exec(ctx, query, args...)
	if err != nil {
		return tower.Persistence(op, err)
	}
	if tag.RowsAffected() == 0 {
		return tower.StaleWrite(op)
	}
	return nil
}
