package authflow

import (
	"context"
	"net/http"

	apperrors "github.com/jrsteele09/go-bankid-auth/internal/errors"
	"github.com/jrsteele09/go-bankid-auth/loginapi"
	"github.com/pkg/errors"
)

// qrPoller fetches a fresh QR code per tick. It holds at most one live code.
type qrPoller struct {
	coordinator *Coordinator
	handle      *Handle
	onNewCode   func(Code)
	current     *Code
}

func (q *qrPoller) tick(ctx context.Context) (Outcome, bool) {
	c := q.coordinator
	orderRef := q.handle.orderRef

	res, err := c.requester.Do(ctx, loginapi.EndpointQRCode, loginapi.OrderRequest{OrderRef: orderRef})
	if q.handle.stopped() || ctx.Err() != nil {
		return Outcome{}, true
	}
	if err != nil {
		return Outcome{
			Kind:     OutcomeFailed,
			OrderRef: orderRef,
			Err:      errors.Wrapf(apperrors.ErrPollingFailed, "qrcode: %v", err),
		}, true
	}

	outcome := Outcome{
		OrderRef:   orderRef,
		StatusCode: res.StatusCode,
		HintCode:   res.HintCode,
		Payload:    res.Body,
	}

	switch res.StatusCode {
	case http.StatusAccepted:
		c.markPending(orderRef)
		if err := q.rotate(res.Body); err != nil {
			outcome.Kind = OutcomeFailed
			outcome.Payload = nil
			outcome.Err = errors.Wrapf(apperrors.ErrPollingFailed, "qrcode: store code: %v", err)
			return outcome, true
		}
		return outcome, false

	case http.StatusNoContent:
		outcome.Kind = OutcomeTimedOut
		return outcome, true

	case http.StatusUnauthorized:
		outcome.Kind = OutcomeUnauthorized
		outcome.Err = apperrors.ErrUnauthorized
		return outcome, true

	case http.StatusOK:
		// No more QR ticks from here on; one collect call fetches the completion data.
		q.handle.active.Store(false)
		res, err := c.requester.Do(ctx, loginapi.EndpointCollect, loginapi.OrderRequest{OrderRef: orderRef})
		if q.handle.stopped() || ctx.Err() != nil {
			return Outcome{}, true
		}
		final, done := classifyCollect(orderRef, res, err)
		if !done {
			final.Kind = OutcomeFailed
			final.Err = errors.Wrap(apperrors.ErrPollingFailed, "collect still pending after qrcode reported completion")
		}
		return final, true

	default:
		outcome.Kind = OutcomeFailed
		outcome.Err = errors.Wrapf(apperrors.ErrPollingFailed, "qrcode: unexpected status %d", res.StatusCode)
		return outcome, true
	}
}

// rotate releases the current code before creating its successor.
func (q *qrPoller) rotate(png []byte) error {
	q.releaseCurrent()

	code, err := q.coordinator.codes.Create(png)
	if err != nil {
		return err
	}
	q.current = &code

	if q.onNewCode != nil {
		q.onNewCode(code)
	}
	return nil
}

func (q *qrPoller) releaseCurrent() {
	if q.current == nil {
		return
	}
	q.coordinator.codes.Release(*q.current)
	q.current = nil
}
