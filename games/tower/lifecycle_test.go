package tower

import (
	"context"
	"testing"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		from   Status
		event  string
		want   Status
		reason string
	}{
		{StatusChoosing, EventChoose, StatusActive, ""},
		{StatusActive, EventAdvance, StatusActive, ""},
		{StatusActive, EventLose, StatusLost, ""},
		{StatusActive, EventCashout, StatusCashedOut, ""},
		{StatusActive, EventChoose, StatusActive, ReasonAlreadyChosen},
		{StatusChoosing, EventAdvance, StatusChoosing, ReasonNotChosen},
		{StatusChoosing, EventCashout, StatusChoosing, ReasonNotChosen},
		{StatusLost, EventCashout, StatusLost, ReasonGameOver},
		{StatusCashedOut, EventAdvance, StatusCashedOut, ReasonGameOver},
	}
	for _, tt := range tests {
		got, err := transition(context.Background(), tt.from, tt.event)
		if got != tt.want {
			t.Errorf("%s --%s--> %s, want %s", tt.from, tt.event, got, tt.want)
		}
		if ConflictReason(err) != tt.reason {
			t.Errorf("%s --%s--> error %v, want reason %q", tt.from, tt.event, err, tt.reason)
		}
	}
}
