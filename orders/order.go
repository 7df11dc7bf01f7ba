package orders

import (
	"time"

	apperrors "github.com/jrsteele09/go-bankid-auth/internal/errors"
)

// Identity is the verified end user returned by a completed order.
type Identity struct {
	PersonalNumber string `json:"personalNumber"`
	Name           string `json:"name"`
	GivenName      string `json:"givenName"`
	Surname        string `json:"surname"`
}

// Order is the backend record of one authentication attempt at the relying party API.
type Order struct {
	OrderRef       string    `json:"orderRef"`
	AutoStartToken string    `json:"autoStartToken"`
	QRStartToken   string    `json:"qrStartToken"`
	QRStartSecret  string    `json:"qrStartSecret"`
	EndUserIP      string    `json:"endUserIp"`
	StartedAt      time.Time `json:"startedAt"`
	State          State     `json:"state"`
	HintCode       string    `json:"hintCode,omitempty"`

	Identity       *Identity `json:"identity,omitempty"`
	Token          string    `json:"token,omitempty"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt,omitempty"`
}

// Transition moves the order to next, or returns ErrInvalidTransition.
func (o *Order) Transition(next State) error {
	if !o.State.CanTransition(next) {
		return apperrors.Wrapf(apperrors.ErrInvalidTransition, "order %s: %s -> %s", o.OrderRef, o.State, next)
	}
	o.State = next
	return nil
}

// Session returns the client side view of the order.
func (o Order) Session() Session {
	return Session{OrderRef: o.OrderRef, State: o.State}
}

func (o Order) clone() Order {
	c := o
	if o.Identity != nil {
		identity := *o.Identity
		c.Identity = &identity
	}
	return c
}
