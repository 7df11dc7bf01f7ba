package orders

import (
	"fmt"

	apperrors "github.com/jrsteele09/go-bankid-auth/internal/errors"
)

// State is the lifecycle state of one authentication order.
type State int

const (
	StateInitiated State = iota
	StatePending
	StateCompleted
	StateTimedOut
	StateCancelled
	StateUnauthorized
	StateFailed
)

var stateNames = map[State]string{
	StateInitiated:    "initiated",
	StatePending:      "pending",
	StateCompleted:    "completed",
	StateTimedOut:     "timed_out",
	StateCancelled:    "cancelled",
	StateUnauthorized: "unauthorized",
	StateFailed:       "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// IsTerminal reports whether no further transition is allowed out of s.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateTimedOut, StateCancelled, StateUnauthorized, StateFailed:
		return true
	}
	return false
}

func (s State) MarshalText() ([]byte, error) {
	if _, ok := stateNames[s]; !ok {
		return nil, fmt.Errorf("unknown state %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", string(text))
}

// CanTransition reports whether moving from s to next is allowed.
// Pending to Pending is allowed and is a no-op.
func (s State) CanTransition(next State) bool {
	if s.IsTerminal() {
		return false
	}
	switch next {
	case StateInitiated:
		return s == StateInitiated
	case StatePending:
		return true
	default:
		return next.IsTerminal()
	}
}

// Session is the client side view of one in-flight order.
type Session struct {
	OrderRef string
	State    State
}

// Transition moves the session to next, or returns ErrInvalidTransition.
func (s *Session) Transition(next State) error {
	if !s.State.CanTransition(next) {
		return apperrors.Wrapf(apperrors.ErrInvalidTransition, "order %s: %s -> %s", s.OrderRef, s.State, next)
	}
	s.State = next
	return nil
}
