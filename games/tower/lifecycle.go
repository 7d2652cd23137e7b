package tower

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// Lifecycle events.
const (
	EventChoose  = "choose"
	EventLose    = "lose"
	EventCashout = "cashout"
	EventAdvance = "advance"
)

var lifecycleEvents = fsm.Events{
	{Name: EventChoose, Src: []string{string(StatusChoosing)}, Dst: string(StatusActive)},
	{Name: EventAdvance, Src: []string{string(StatusActive)}, Dst: string(StatusActive)},
	{Name: EventLose, Src: []string{string(StatusActive)}, Dst: string(StatusLost)},
	{Name: EventCashout, Src: []string{string(StatusActive)}, Dst: string(StatusCashedOut)},
}

// transition fires event on a machine positioned at from and returns the status it lands on.
// Illegal events come back as a ConflictError naming the reason.
func transition(ctx context.Context, from Status, event string) (Status, error) {
	machine := fsm.NewFSM(string(from), lifecycleEvents, fsm.Callbacks{})
	err := machine.Event(ctx, event)
	var (
		noop    fsm.NoTransitionError
		invalid fsm.InvalidEventError
	)
	switch {
	case err == nil, errors.As(err, &noop):
		return Status(machine.Current()), nil
	case errors.As(err, &invalid):
		return from, rejection(from, event)
	default:
		return from, Persistence("transition "+event, err)
	}
}

func rejection(s Status, event string) error {
	switch {
	case s.Terminal():
		return conflictf(ReasonGameOver)
	case event == EventChoose:
		return conflictf(ReasonAlreadyChosen)
	default:
		return conflictf(ReasonNotChosen)
	}
}
