// Package storage holds the SQL shared by the Postgres and SQLite backends. Both
// keep money as integer cents and the board as JSON text.
package storage

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"skyrush/games/tower"
	"skyrush/models"
)

const (
	TableGames = "tower_games"
	TableUsers = "users"

	colID          = "id"
	colUserID      = "user_id"
	colBetCents    = "bet_cents"
	colMode        = "mode"
	colTiles       = "tiles"
	colRevealed    = "revealed_rows"
	colCurrentRow  = "current_row"
	colMultiplier  = "multiplier_cents"
	colStatus      = "status"
	colCreatedAt   = "created_at"
	colPointsCents = "points_cents"
	colLevel       = "level"
)

var gameColumns = []string{
	colID, colUserID, colBetCents, colMode, colTiles, colRevealed,
	colCurrentRow, colMultiplier, colStatus, colCreatedAt,
}

var accountColumns = []string{colUserID, colPointsCents, colLevel, colCreatedAt}

// Scanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

// Queries builds statements for one placeholder dialect.
type Queries struct {
	sb sq.StatementBuilderType
}

func NewQueries(ph sq.PlaceholderFormat) Queries {
	return Queries{sb: sq.StatementBuilder.PlaceholderFormat(ph)}
}

func (q Queries) InsertGame(s tower.Session) (string, []any, error) {
	return q.sb.Insert(TableGames).
		Columns(gameColumns...).
		Values(
			s.ID, s.OwnerID, models.PointsToCents(s.Bet), string(s.Difficulty), "[]", "[]",
			s.CurrentRow, models.PointsToCents(s.Multiplier), string(s.Status), s.CreatedAt.UnixMilli(),
		).
		ToSql()
}

func (q Queries) SelectGame(id string) (string, []any, error) {
	return q.sb.Select(gameColumns...).From(TableGames).Where(sq.Eq{colID: id}).ToSql()
}

func (q Queries) ActivateGame(id string, d tower.Difficulty, board tower.Board) (string, []any, error) {
	tiles, err := tower.EncodeBoard(&board)
	if err != nil {
		return "", nil, err
	}
	return q.sb.Update(TableGames).
		Set(colMode, string(d)).
		Set(colTiles, tiles).
		Set(colStatus, string(tower.StatusActive)).
		Where(sq.Eq{colID: id, colStatus: string(tower.StatusChoosing)}).
		ToSql()
}

func (q Queries) RecordReveal(id string, row int, revealed tower.RevealedRows, multiplier decimal.Decimal, status tower.Status) (string, []any, error) {
	rr, err := tower.EncodeRevealed(revealed)
	if err != nil {
		return "", nil, err
	}
	return q.sb.Update(TableGames).
		Set(colRevealed, rr).
		Set(colCurrentRow, row+1).
		Set(colMultiplier, models.PointsToCents(multiplier)).
		Set(colStatus, string(status)).
		Where(sq.Eq{colID: id, colStatus: string(tower.StatusActive), colCurrentRow: row}).
		ToSql()
}

// RecordCashout returns bet and multiplier of the closed row so the caller can compute winnings.
func (q Queries) RecordCashout(id string, expectedRow int, revealed tower.RevealedRows) (string, []any, error) {
	rr, err := tower.EncodeRevealed(revealed)
	if err != nil {
		return "", nil, err
	}
	return q.sb.Update(TableGames).
		Set(colRevealed, rr).
		Set(colStatus, string(tower.StatusCashedOut)).
		Where(sq.Eq{colID: id, colStatus: string(tower.StatusActive), colCurrentRow: expectedRow}).
		Suffix("RETURNING " + colBetCents + ", " + colMultiplier).
		ToSql()
}

// Debit only matches when the balance covers the amount.
func (q Queries) Debit(userID string, cents int64) (string, []any, error) {
	return q.sb.Update(TableUsers).
		Set(colPointsCents, sq.Expr(colPointsCents+" - ?", cents)).
		Where(sq.Eq{colUserID: userID}).
		Where(sq.GtOrEq{colPointsCents: cents}).
		ToSql()
}

func (q Queries) Credit(userID string, cents int64, now time.Time) (string, []any, error) {
	return q.sb.Insert(TableUsers).
		Columns(accountColumns...).
		Values(userID, cents, 1, now.UnixMilli()).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s = %s.%s + excluded.%s",
			colUserID, colPointsCents, TableUsers, colPointsCents, colPointsCents)).
		ToSql()
}

func (q Queries) SetLevel(userID string, level int, now time.Time) (string, []any, error) {
	return q.sb.Insert(TableUsers).
		Columns(accountColumns...).
		Values(userID, 0, level, now.UnixMilli()).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s = excluded.%s", colUserID, colLevel, colLevel)).
		ToSql()
}

func (q Queries) SelectAccount(userID string) (string, []any, error) {
	return q.sb.Select(accountColumns...).From(TableUsers).Where(sq.Eq{colUserID: userID}).ToSql()
}

func (q Queries) Leaderboard(limit int) (string, []any, error) {
	return q.sb.Select(accountColumns...).
		From(TableUsers).
		OrderBy(colPointsCents+" DESC", colUserID+" ASC").
		Limit(uint64(limit)).
		ToSql()
}

// ScanGame reads one row selected with SelectGame.
func ScanGame(row Scanner) (tower.Session, error) {
	var (
		s                     tower.Session
		betCents, multCents   int64
		mode, tiles, revealed string
		status                string
		createdAt             int64
	)
	if err := row.Scan(&s.ID, &s.OwnerID, &betCents, &mode, &tiles, &revealed,
		&s.CurrentRow, &multCents, &status, &createdAt); err != nil {
		return tower.Session{}, err
	}
	board, err := tower.DecodeBoard(tiles)
	if err != nil {
		return tower.Session{}, err
	}
	rr, err := tower.DecodeRevealed(revealed)
	if err != nil {
		return tower.Session{}, err
	}
	s.Bet = models.PointsFromCents(betCents)
	s.Multiplier = models.PointsFromCents(multCents)
	s.Difficulty = tower.Difficulty(mode)
	s.Board = board
	s.Revealed = rr
	s.Status = tower.Status(status)
	s.CreatedAt = time.UnixMilli(createdAt)
	return s, nil
}

// ScanAccount reads one row selected with SelectAccount or Leaderboard.
func ScanAccount(row Scanner) (models.Account, error) {
	var (
		acc       models.Account
		cents     int64
		createdAt int64
	)
	if err := row.Scan(&acc.UserID, &cents, &acc.Level, &createdAt); err != nil {
		return models.Account{}, err
	}
	acc.Points = models.PointsFromCents(cents)
	acc.CreatedAt = time.UnixMilli(createdAt)
	return acc, nil
}

// Winnings converts the RETURNING columns of RecordCashout.
func Winnings(betCents, multiplierCents int64) decimal.Decimal {
	return tower.Payout(models.PointsFromCents(betCents), models.PointsFromCents(multiplierCents))
}
