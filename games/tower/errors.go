package tower

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("tower game not found")
	ErrForbidden         = errors.New("tower game belongs to another player")
	ErrConflict          = errors.New("tower game state conflict")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrPersistence       = errors.New("tower persistence failure")
	ErrInvalidArgument   = errors.New("invalid tower argument")
)

// Kind classifies an engine error for the reply sent back to the player.
type Kind int

const (
	KindOK Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindInsufficientFunds
	KindInvalidArgument
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "persistence"
	}
}

// KindOf maps err onto the taxonomy. Anything unrecognized counts as a persistence failure.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindOK
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrInsufficientFunds):
		return KindInsufficientFunds
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	default:
		return KindPersistence
	}
}

// Persistence wraps a driver error so callers can match ErrPersistence while keeping the cause.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// Conflict reasons.
const (
	ReasonAlreadyChosen = "already chosen"
	ReasonNotChosen     = "difficulty not chosen"
	ReasonGameOver      = "game over"
	ReasonRowRevealed   = "row already revealed"
	ReasonWrongRow      = "wrong row"
	ReasonTowerCleared  = "tower cleared"
	ReasonStale         = "stale state"
)

// ConflictReason returns the reason carried by a ConflictError, or "".
func ConflictReason(err error) string {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ""
}

// conflictf builds an ErrConflict with a reason the gateway can show.
func conflictf(format string, args ...any) error {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// StaleWrite is returned by stores when a conditional update matched no row.
func StaleWrite(op string) error {
	return fmt.Errorf("%s: %w", op, conflictf(ReasonStale))
}

// ConflictError carries the short reason for a rejected transition.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return "tower game state conflict: " + e.Reason }

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }
