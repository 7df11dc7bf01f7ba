package authflow

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-bankid-auth/orders"
	"github.com/pkg/errors"
)

// OutcomeKind is how a polling loop ended.
type OutcomeKind int

const (
	OutcomeCompleted OutcomeKind = iota + 1
	OutcomeTimedOut
	OutcomeUnauthorized
	OutcomeFailed
	// OutcomeStopped means the caller stopped the handle or its context ended.
	OutcomeStopped
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeFailed:
		return "failed"
	case OutcomeStopped:
		return "stopped"
	}
	return "unknown"
}

// state maps an outcome to the session state it settles in. Stopped settles nothing.
func (k OutcomeKind) state() (orders.State, bool) {
	switch k {
	case OutcomeCompleted:
		return orders.StateCompleted, true
	case OutcomeTimedOut:
		return orders.StateTimedOut, true
	case OutcomeUnauthorized:
		return orders.StateUnauthorized, true
	case OutcomeFailed:
		return orders.StateFailed, true
	}
	return orders.StateInitiated, false
}

// Outcome is the terminal result of a polling loop.
type Outcome struct {
	Kind       OutcomeKind
	OrderRef   string
	StatusCode int
	HintCode   string
	// Payload is the body of the response that ended the loop, unmodified.
	Payload []byte
	Err     error
}

// Decode unmarshals the JSON payload into v.
func (o Outcome) Decode(v any) error {
	if len(o.Payload) == 0 {
		return errors.Errorf("[Outcome Decode] %s outcome for %s has no payload", o.Kind, o.OrderRef)
	}
	return json.Unmarshal(o.Payload, v)
}

// ResultCallbacks receive terminal outcomes. They run on the poller's goroutine.
type ResultCallbacks struct {
	OnComplete func(Outcome)
	OnTimeout  func(Outcome)
	// OnFailure receives Unauthorized and Failed outcomes.
	OnFailure func(Outcome)
}

func (cb ResultCallbacks) deliver(o Outcome) {
	var fn func(Outcome)
	switch o.Kind {
	case OutcomeCompleted:
		fn = cb.OnComplete
	case OutcomeTimedOut:
		fn = cb.OnTimeout
	case OutcomeUnauthorized, OutcomeFailed:
		fn = cb.OnFailure
	}
	if fn != nil {
		fn(o)
	}
}

// QRCallbacks add code rotation to ResultCallbacks.
type QRCallbacks struct {
	ResultCallbacks
	// OnNewCode receives each fresh code. The previous code is already released.
	OnNewCode func(Code)
}

type pollerKind int

const (
	pollerQR pollerKind = iota
	pollerCollect
)

func (k pollerKind) String() string {
	if k == pollerQR {
		return "qrcode"
	}
	return "collect"
}

// Handle controls one polling loop. It is owned by whoever started the loop.
type Handle struct {
	id       string
	orderRef string
	kind     pollerKind

	loopCtx context.Context
	cancel  context.CancelFunc
	active  atomic.Bool
	done    chan struct{}

	mu      sync.Mutex
	outcome Outcome
}

func newHandle(orderRef string, kind pollerKind) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		id:       uuid.NewString(),
		orderRef: orderRef,
		kind:     kind,
		loopCtx:  ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	h.active.Store(true)
	return h
}

func (h *Handle) ID() string       { return h.id }
func (h *Handle) OrderRef() string { return h.orderRef }

// Stop ends the loop. A request already in flight is not aborted but its response is ignored.
func (h *Handle) Stop() {
	h.cancel()
}

// Active reports whether the loop may still schedule ticks.
func (h *Handle) Active() bool {
	return h.active.Load()
}

// Done is closed once the loop has ended and its callbacks have returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the loop ends or ctx is done.
func (h *Handle) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-h.done:
		o, _ := h.Outcome()
		return o, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Outcome returns the terminal outcome once the loop has ended.
func (h *Handle) Outcome() (Outcome, bool) {
	select {
	case <-h.done:
	default:
		return Outcome{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcome, true
}

func (h *Handle) stopped() bool {
	return h.loopCtx.Err() != nil
}

func (h *Handle) finish(o Outcome) {
	h.active.Store(false)
	h.mu.Lock()
	h.outcome = o
	h.mu.Unlock()
	h.cancel()
	close(h.done)
}
