package authflow

import (
	"context"
	"net/http"

	apperrors "github.com/jrsteele09/go-bankid-auth/internal/errors"
	"github.com/jrsteele09/go-bankid-auth/loginapi"
	"github.com/pkg/errors"
)

// classifyCollect maps a collect response to an outcome. done is false while the order is pending.
func classifyCollect(orderRef string, res *Response, err error) (Outcome, bool) {
	if err != nil {
		return Outcome{
			Kind:     OutcomeFailed,
			OrderRef: orderRef,
			Err:      errors.Wrapf(apperrors.ErrPollingFailed, "collect: %v", err),
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
		return outcome, false
	case http.StatusOK:
		outcome.Kind = OutcomeCompleted
	case http.StatusNoContent:
		outcome.Kind = OutcomeTimedOut
	case http.StatusUnauthorized:
		outcome.Kind = OutcomeUnauthorized
		outcome.Err = apperrors.ErrUnauthorized
	default:
		outcome.Kind = OutcomeFailed
		outcome.Err = errors.Wrapf(apperrors.ErrPollingFailed, "collect: unexpected status %d", res.StatusCode)
	}
	return outcome, true
}

// collectTick issues one collect call.
func (c *Coordinator) collectTick(ctx context.Context, orderRef string) (Outcome, bool) {
	res, err := c.requester.Do(ctx, loginapi.EndpointCollect, loginapi.OrderRequest{OrderRef: orderRef})
	if ctx.Err() != nil {
		return Outcome{}, true
	}
	outcome, done := classifyCollect(orderRef, res, err)
	if !done {
		c.markPending(orderRef)
	}
	return outcome, done
}
