// Package authflow drives a BankID login from the client side. A Coordinator starts
// orders at the login backend and runs the QR and collect pollers against them.
package authflow

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-bankid-auth/internal/errors"
	"github.com/jrsteele09/go-bankid-auth/internal/poll"
	"github.com/jrsteele09/go-bankid-auth/loginapi"
	"github.com/jrsteele09/go-bankid-auth/orders"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultAppScheme       = "bankid"
	DefaultQRInterval      = time.Second
	DefaultCollectInterval = time.Second
)

// tracked is one order session together with its active pollers.
type tracked struct {
	session orders.Session
	qr      *Handle
	collect *Handle
}

// Coordinator owns order sessions and their pollers.
type Coordinator struct {
	requester Requester
	resolver  IPResolver
	launcher  Launcher
	codes     CodeStore

	appScheme        string
	qrInterval       time.Duration
	collectInterval  time.Duration
	immediateCollect bool

	mu       sync.Mutex
	sessions map[string]*tracked
}

// Option defines a function type to modify the Coordinator instance.
type Option func(*Coordinator)

// WithLauncher sets the capability used to open the identification app
func WithLauncher(l Launcher) Option {
	return func(c *Coordinator) {
		c.launcher = l
	}
}

// WithCodeStore sets where QR images are turned into displayable codes
func WithCodeStore(s CodeStore) Option {
	return func(c *Coordinator) {
		c.codes = s
	}
}

// WithAppScheme sets the URI scheme of the identification app
func WithAppScheme(scheme string) Option {
	return func(c *Coordinator) {
		c.appScheme = scheme
	}
}

// WithQRInterval sets the wait between QR ticks
func WithQRInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		c.qrInterval = d
	}
}

// WithCollectInterval sets the wait between collect ticks
func WithCollectInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		c.collectInterval = d
	}
}

// WithImmediateCollect makes the collect poller fire its first tick without waiting one interval
func WithImmediateCollect(immediate bool) Option {
	return func(c *Coordinator) {
		c.immediateCollect = immediate
	}
}

// New creates a Coordinator. requester and resolver are required.
func New(requester Requester, resolver IPResolver, options ...Option) (*Coordinator, error) {
	if requester == nil {
		return nil, errors.New("[authflow New] requester is required")
	}
	if resolver == nil {
		return nil, errors.New("[authflow New] IP resolver is required")
	}

	c := &Coordinator{
		requester:       requester,
		resolver:        resolver,
		codes:           DataURIStore{},
		appScheme:       DefaultAppScheme,
		qrInterval:      DefaultQRInterval,
		collectInterval: DefaultCollectInterval,
		sessions:        make(map[string]*tracked),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// StartSession starts a new order for this device's public address and returns its reference.
// When launchApp is set the identification app is opened with the order's auto start token.
// Every failure wraps ErrStartFailed and leaves no session behind.
func (c *Coordinator) StartSession(ctx context.Context, launchApp bool) (string, error) {
	endUserIP, err := c.resolver.PublicIP(ctx)
	if err != nil {
		return "", errors.Wrapf(apperrors.ErrStartFailed, "[StartSession] resolve public ip: %v", err)
	}

	res, err := c.requester.Do(ctx, loginapi.EndpointStart, loginapi.StartRequest{EndUserIP: endUserIP})
	if err != nil {
		return "", errors.Wrapf(apperrors.ErrStartFailed, "[StartSession] %v", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", errors.Wrapf(apperrors.ErrStartFailed, "[StartSession] status %d", res.StatusCode)
	}

	var started loginapi.StartResponse
	if err := json.Unmarshal(res.Body, &started); err != nil {
		return "", errors.Wrapf(apperrors.ErrStartFailed, "[StartSession] decode: %v", err)
	}
	if started.OrderRef == "" {
		return "", errors.Wrap(apperrors.ErrStartFailed, "[StartSession] empty orderRef")
	}

	if launchApp {
		if c.launcher == nil {
			log.Warn().Str("order_ref", started.OrderRef).Msg("App launch requested but no launcher configured")
		} else {
			c.launcher.Launch(AppLaunchURI(c.appScheme, started.AutoStartToken))
		}
	}

	c.mu.Lock()
	c.sessions[started.OrderRef] = &tracked{
		session: orders.Session{OrderRef: started.OrderRef, State: orders.StateInitiated},
	}
	c.mu.Unlock()

	log.Info().Str("order_ref", started.OrderRef).Bool("launch_app", launchApp).Msg("Order started")
	return started.OrderRef, nil
}

// CancelSession asks the backend to cancel the order. It is best effort: failures are
// logged, never returned, and active pollers are left running. The session only moves to
// Cancelled when the backend confirms it; a 409 means the order already settled another way.
func (c *Coordinator) CancelSession(ctx context.Context, orderRef string) {
	res, err := c.requester.Do(ctx, loginapi.EndpointCancel, loginapi.OrderRequest{OrderRef: orderRef})
	if err != nil {
		log.Err(err).Str("order_ref", orderRef).Msg("Failed to cancel order")
		return
	}
	if res.StatusCode == http.StatusConflict {
		// Already settled at the backend; the pollers report how.
		log.Info().Str("order_ref", orderRef).Msg("Order already settled, cancel ignored")
		return
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		log.Error().Str("order_ref", orderRef).Int("status", res.StatusCode).Msg("Failed to cancel order")
		return
	}

	log.Info().Str("order_ref", orderRef).Msg("Order cancelled")
	c.settle(orderRef, orders.StateCancelled)
	c.releaseIfIdle(orderRef)
}

// StartPollingResult polls collect until the order settles. This is the status-only
// flow with no QR display.
func (c *Coordinator) StartPollingResult(ctx context.Context, orderRef string, callbacks ResultCallbacks) (*Handle, error) {
	h, err := c.register(orderRef, pollerCollect)
	if err != nil {
		return nil, err
	}

	opts := poll.Options{Interval: c.collectInterval, Immediate: c.immediateCollect}
	tick := func(reqCtx context.Context) (Outcome, bool) {
		return c.collectTick(reqCtx, orderRef)
	}
	go c.run(ctx, h, opts, tick, callbacks, nil)
	return h, nil
}

// StartPollingQRCode polls qrcode, handing each fresh code to OnNewCode, until the order settles.
// The first tick fires immediately.
func (c *Coordinator) StartPollingQRCode(ctx context.Context, orderRef string, callbacks QRCallbacks) (*Handle, error) {
	h, err := c.register(orderRef, pollerQR)
	if err != nil {
		return nil, err
	}

	q := &qrPoller{coordinator: c, handle: h, onNewCode: callbacks.OnNewCode}
	opts := poll.Options{Interval: c.qrInterval, Immediate: true}
	go c.run(ctx, h, opts, q.tick, callbacks.ResultCallbacks, q.releaseCurrent)
	return h, nil
}

// StopPolling stops the loop behind h. It is safe to call more than once.
func (c *Coordinator) StopPolling(h *Handle) {
	if h == nil {
		return
	}
	h.Stop()
}

// Session returns a snapshot of a tracked order session.
func (c *Coordinator) Session(orderRef string) (orders.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.sessions[orderRef]
	if !ok {
		return orders.Session{}, false
	}
	return t.session, true
}

// register claims the poller slot of the given kind for orderRef.
func (c *Coordinator) register(orderRef string, kind pollerKind) (*Handle, error) {
	if orderRef == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidRequest, "orderRef is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.sessions[orderRef]
	if !ok {
		t = &tracked{session: orders.Session{OrderRef: orderRef, State: orders.StateInitiated}}
		c.sessions[orderRef] = t
	}
	if t.session.State.IsTerminal() {
		return nil, errors.Wrapf(apperrors.ErrInvalidTransition, "order %s is already %s", orderRef, t.session.State)
	}

	slot := &t.qr
	if kind == pollerCollect {
		slot = &t.collect
	}
	if *slot != nil {
		return nil, errors.Wrapf(apperrors.ErrPollerActive, "%s poller for %s", kind, orderRef)
	}

	h := newHandle(orderRef, kind)
	*slot = h
	return h, nil
}

// run drives one poller until it settles or is stopped. reqCtx is used for requests only,
// so stopping the handle never aborts a request already sent.
func (c *Coordinator) run(
	reqCtx context.Context,
	h *Handle,
	opts poll.Options,
	tick func(context.Context) (Outcome, bool),
	callbacks ResultCallbacks,
	cleanup func(),
) {
	loopCtx, cancel := context.WithCancel(h.loopCtx)
	defer cancel()
	go func() {
		select {
		case <-reqCtx.Done():
			h.Stop()
		case <-loopCtx.Done():
		}
	}()

	// An ended request context is a stop, whichever of the watcher or the request notices first.
	cancelled := func() bool {
		return h.stopped() || reqCtx.Err() != nil
	}

	var final *Outcome
	poll.Run(loopCtx, opts, func(context.Context, int) bool {
		outcome, done := tick(reqCtx)
		if cancelled() {
			return true
		}
		if done {
			final = &outcome
		}
		return done
	})

	outcome := Outcome{Kind: OutcomeStopped, OrderRef: h.orderRef}
	if final != nil && !cancelled() {
		outcome = *final
	}
	h.active.Store(false)

	if cleanup != nil {
		cleanup()
	}
	if state, ok := outcome.Kind.state(); ok {
		c.settle(h.orderRef, state)
	}
	c.unregister(h)
	c.logOutcome(h, outcome)

	if outcome.Kind != OutcomeStopped {
		callbacks.deliver(outcome)
	}
	h.finish(outcome)
}

// markPending records that the backend reported the order as in progress.
func (c *Coordinator) markPending(orderRef string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.sessions[orderRef]; ok && !t.session.State.IsTerminal() {
		_ = t.session.Transition(orders.StatePending)
	}
}

// settle moves the session to a terminal state. The first terminal state wins.
func (c *Coordinator) settle(orderRef string, state orders.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.sessions[orderRef]
	if !ok {
		return
	}
	if err := t.session.Transition(state); err != nil {
		log.Debug().Err(err).Str("order_ref", orderRef).Msg("Ignoring state change")
	}
}

func (c *Coordinator) unregister(h *Handle) {
	c.mu.Lock()
	if t, ok := c.sessions[h.orderRef]; ok {
		if t.qr == h {
			t.qr = nil
		}
		if t.collect == h {
			t.collect = nil
		}
	}
	c.mu.Unlock()
	c.releaseIfIdle(h.orderRef)
}

// releaseIfIdle forgets a session once it is terminal and no poller is running for it.
func (c *Coordinator) releaseIfIdle(orderRef string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.sessions[orderRef]
	if ok && t.session.State.IsTerminal() && t.qr == nil && t.collect == nil {
		delete(c.sessions, orderRef)
	}
}

func (c *Coordinator) logOutcome(h *Handle, o Outcome) {
	switch o.Kind {
	case OutcomeUnauthorized:
		log.Warn().Str("order_ref", o.OrderRef).Str("poller", h.kind.String()).Str("hint_code", o.HintCode).Msg("Authentication failed")
	case OutcomeFailed:
		log.Error().Err(o.Err).Str("order_ref", o.OrderRef).Str("poller", h.kind.String()).Int("status", o.StatusCode).Msg("Polling failed")
	default:
		log.Debug().Str("order_ref", o.OrderRef).Str("poller", h.kind.String()).Str("outcome", o.Kind.String()).Msg("Polling ended")
	}
}
