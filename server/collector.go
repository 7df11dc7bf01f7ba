package server

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-bankid-auth/bankid"
	apperrors "github.com/jrsteele09/go-bankid-auth/internal/errors"
	"github.com/jrsteele09/go-bankid-auth/internal/poll"
	"github.com/jrsteele09/go-bankid-auth/orders"
	"github.com/jrsteele09/go-bankid-auth/token"
	"github.com/rs/zerolog/log"
)

type CollectorOptions struct {
	Interval time.Duration
	// MaxTicks is the collect budget of one order. Zero means unlimited.
	MaxTicks int
}

// Collector polls the relying party for every started order and records the result.
type Collector struct {
	ctx    context.Context
	rp     bankid.RelyingParty
	orders orders.Repo
	tokens *token.Issuer
	opts   CollectorOptions
	wg     sync.WaitGroup
}

// NewCollector creates a Collector whose loops end when ctx is cancelled.
func NewCollector(ctx context.Context, rp bankid.RelyingParty, repo orders.Repo, tokens *token.Issuer, opts CollectorOptions) *Collector {
	return &Collector{
		ctx:    ctx,
		rp:     rp,
		orders: repo,
		tokens: tokens,
		opts:   opts,
	}
}

// Start begins collecting orderRef in the background. The first collect happens after one interval.
func (c *Collector) Start(orderRef string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(orderRef)
	}()
}

// Wait blocks until every loop has returned
func (c *Collector) Wait() {
	c.wg.Wait()
}

func (c *Collector) run(orderRef string) {
	reason := poll.Run(c.ctx, poll.Options{Interval: c.opts.Interval, MaxTicks: c.opts.MaxTicks}, func(ctx context.Context, _ int) bool {
		return c.tick(ctx, orderRef)
	})

	switch reason {
	case poll.ReasonExhausted:
		log.Info().Str("order_ref", orderRef).Int("ticks", c.opts.MaxTicks).Msg("Collect budget exhausted")
		c.settle(orderRef, orders.StateTimedOut, bankid.HintExpiredTransaction)
	case poll.ReasonStopped:
		log.Debug().Str("order_ref", orderRef).Msg("Collector stopped")
	}
}

// tick performs one collect. It returns true once nothing is left to collect.
func (c *Collector) tick(ctx context.Context, orderRef string) bool {
	order, err := c.orders.Get(ctx, orderRef)
	if apperrors.Is(err, apperrors.ErrOrderNotFound) {
		return true
	}
	if err != nil {
		log.Err(err).Str("order_ref", orderRef).Msg("Failed to load order")
		return false
	}
	if order.State.IsTerminal() {
		return true
	}

	res, err := c.rp.Collect(ctx, orderRef)
	if err != nil {
		log.Err(err).Str("order_ref", orderRef).Msg("Collect failed")
		return false
	}

	switch res.Status {
	case bankid.StatusPending:
		c.pending(ctx, orderRef, res.HintCode)
		return false

	case bankid.StatusComplete:
		c.complete(ctx, orderRef, res)
		return true

	case bankid.StatusFailed:
		state := failedState(res.HintCode)
		log.Info().
			Str("order_ref", orderRef).
			Str("hint_code", res.HintCode).
			Str("user_message", bankid.UserMessage(res.Status, res.HintCode)).
			Str("state", state.String()).
			Msg("Order failed")
		c.settle(orderRef, state, res.HintCode)
		return true
	}

	log.Warn().Str("order_ref", orderRef).Str("status", res.Status).Msg("Unknown collect status")
	return false
}

func (c *Collector) pending(ctx context.Context, orderRef, hintCode string) {
	_, err := c.orders.Update(ctx, orderRef, func(o *orders.Order) error {
		if err := o.Transition(orders.StatePending); err != nil {
			return err
		}
		o.HintCode = hintCode
		return nil
	})
	if err != nil && !apperrors.Is(err, apperrors.ErrInvalidTransition) {
		log.Err(err).Str("order_ref", orderRef).Msg("Failed to record hint code")
	}
}

func (c *Collector) complete(ctx context.Context, orderRef string, res bankid.CollectResponse) {
	if res.CompletionData == nil {
		log.Error().Str("order_ref", orderRef).Msg("Completed order has no completion data")
		c.settle(orderRef, orders.StateFailed, "")
		return
	}
	user := res.CompletionData.User

	pnr, err := bankid.NormalizePersonalNumber(user.PersonalNumber)
	if err != nil {
		log.Err(err).Str("order_ref", orderRef).Msg("Completed order has an invalid personal number")
		c.settle(orderRef, orders.StateFailed, "")
		return
	}

	identity := orders.Identity{
		PersonalNumber: pnr,
		Name:           user.Name,
		GivenName:      user.GivenName,
		Surname:        user.Surname,
	}
	signed, expiresAt, err := c.tokens.Issue(orderRef, identity)
	if err != nil {
		log.Err(err).Str("order_ref", orderRef).Msg("Failed to issue token")
		c.settle(orderRef, orders.StateFailed, "")
		return
	}

	_, err = c.orders.Update(ctx, orderRef, func(o *orders.Order) error {
		if err := o.Transition(orders.StateCompleted); err != nil {
			return err
		}
		o.HintCode = ""
		o.Identity = &identity
		o.Token = signed
		o.TokenExpiresAt = expiresAt
		return nil
	})
	if err != nil {
		log.Err(err).Str("order_ref", orderRef).Msg("Failed to record completion")
		return
	}
	log.Info().Str("order_ref", orderRef).Msg("Order completed")
}

// settle moves the order to a terminal state. An order that is already terminal is left alone.
func (c *Collector) settle(orderRef string, state orders.State, hintCode string) {
	// The loop context may already be done on shutdown; the final write still goes through.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), 5*time.Second)
	defer cancel()

	_, err := c.orders.Update(ctx, orderRef, func(o *orders.Order) error {
		if err := o.Transition(state); err != nil {
			return err
		}
		o.HintCode = hintCode
		return nil
	})
	switch {
	case err == nil:
	case apperrors.Is(err, apperrors.ErrInvalidTransition), apperrors.Is(err, apperrors.ErrOrderNotFound):
		log.Debug().Err(err).Str("order_ref", orderRef).Msg("Order already settled")
	default:
		log.Err(err).Str("order_ref", orderRef).Str("state", state.String()).Msg("Failed to settle order")
	}
}

func failedState(hintCode string) orders.State {
	switch hintCode {
	case bankid.HintExpiredTransaction:
		return orders.StateTimedOut
	case bankid.HintUserCancel, bankid.HintCancelled:
		return orders.StateCancelled
	}
	return orders.StateUnauthorized
}
