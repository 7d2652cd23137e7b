// Package sqlite is the single-file backend used when no DATABASE_URL is set.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"skyrush/games/tower"
	"skyrush/models"
	"skyrush/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	user_id      TEXT PRIMARY KEY,
	points_cents INTEGER NOT NULL DEFAULT 0 CHECK (points_cents >= 0),
	level        INTEGER NOT NULL DEFAULT 1,
	created_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tower_games (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	bet_cents        INTEGER NOT NULL CHECK (bet_cents > 0),
	mode             TEXT NOT NULL DEFAULT '',
	tiles            TEXT NOT NULL DEFAULT '[]',
	revealed_rows    TEXT NOT NULL DEFAULT '[]',
	current_row      INTEGER NOT NULL DEFAULT 0,
	multiplier_cents INTEGER NOT NULL DEFAULT 100,
	status           TEXT NOT NULL,
	created_at       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_users_points ON users (points_cents DESC);
CREATE INDEX IF NOT EXISTS idx_tower_games_user ON tower_games (user_id, created_at DESC);
`

// Open opens the database at path and creates the tables. ":memory:" is accepted.
func Open(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path)
	}
	dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer at a time; also keeps ":memory:" on a single database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return db, nil
}

func NewTxManager(db *sql.DB) (trm.Manager, error) {
	m, err := manager.New(trmsql.NewDefaultFactory(db))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction manager: %w", err)
	}
	return m, nil
}

type Store struct {
	sqlDB   *sql.DB
	getter  *trmsql.CtxGetter
	queries storage.Queries
	now     func() time.Time
}

var (
	_ tower.SessionStore = (*Store)(nil)
	_ tower.Ledger       = (*Store)(nil)
)

func New(db *sql.DB) *Store {
	return &Store{
		sqlDB:   db,
		getter:  trmsql.DefaultCtxGetter,
		queries: storage.NewQueries(sq.Question),
		now:     time.Now,
	}
}

func (s *Store) db(ctx context.Context) trmsql.Tr {
	return s.getter.DefaultTrOrDB(ctx, s.sqlDB)
}

func (s *Store) Create(ctx context.Context, ownerID string, bet decimal.Decimal, createdAt time.Time) (tower.Session, error) {
	sess := tower.NewSession(uuid.NewString(), ownerID, bet, createdAt)
	query, args, err := s.queries.InsertGame(sess)
	if err != nil {
		return tower.Session{}, tower.Persistence("create session", err)
	}
	if _, err := s.db(ctx).ExecContext(ctx, query, args...); err != nil {
		return tower.Session{}, tower.Persistence("create session", err)
	}
	return sess, nil
}

func (s *Store) Get(ctx context.Context, id string) (tower.Session, error) {
	query, args, err := s.queries.SelectGame(id)
	if err != nil {
		return tower.Session{}, tower.Persistence("get session", err)
	}
	sess, err := storage.ScanGame(s.db(ctx).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
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
	err = s.db(ctx).QueryRowContext(ctx, query, args...).Scan(&betCents, &multCents)
	if errors.Is(err, sql.ErrNoRows) {
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
	res, err := s.db(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		var sqliteErr *msqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_CHECK {
			return fmt.Errorf("debit %s: %w", userID, tower.ErrInsufficientFunds)
		}
		return tower.Persistence("debit", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return tower.Persistence("debit", err)
	}
	if n == 0 {
		return fmt.Errorf("debit %s: %w", userID, tower.ErrInsufficientFunds)
	}
	return nil
}

func (s *Store) Credit(ctx context.Context, userID string, amount decimal.Decimal) error {
	query, args, err := s.queries.Credit(userID, models.PointsToCents(amount), s.now())
	if err != nil {
		return tower.Persistence("credit", err)
	}
	if _, err := s.db(ctx).ExecContext(ctx, query, args...); err != nil {
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

func (s *Store) GetAccount(ctx context.Context, userID string) (models.Account, error) {
	query, args, err := s.queries.SelectAccount(userID)
	if err != nil {
		return models.Account{}, tower.Persistence("get account", err)
	}
	acc, err := storage.ScanAccount(s.db(ctx).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
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
	rows, err := s.db(ctx).QueryContext(ctx, query, args...)
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
	if _, err := s.db(ctx).ExecContext(ctx, query, args...); err != nil {
		return tower.Persistence("set level", err)
	}
	return nil
}

func (s *Store) execConditional(ctx context.Context, op, query string, args []any) error {
	res, err := s.db(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return tower.Persistence(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return tower.Persistence(op, err)
	}
	if n == 0 {
		return tower.StaleWrite(op)
	}
	return nil
}
