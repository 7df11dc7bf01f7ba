package server_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-bankid-auth/bankid"
	"github.com/jrsteele09/go-bankid-auth/bankid/fakerp"
	"github.com/jrsteele09/go-bankid-auth/loginapi"
	"github.com/jrsteele09/go-bankid-auth/orders"
	"github.com/jrsteele09/go-bankid-auth/server"
	"github.com/stretchr/testify/require"
)

var neverCompletes = fakerp.Script{PendingCollects: 1 << 20, PendingHint: bankid.HintOutstandingTransaction}

func TestStartValidation(t *testing.T) {
	b := newBackend(t, fakerp.New(neverCompletes))

	res, err := b.srv.Client().Post(b.srv.URL+server.RouteBankIDStart, "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	require.Equal(t, http.StatusBadRequest, b.post(t, loginapi.EndpointStart, loginapi.StartRequest{}).StatusCode)
	require.Equal(t, http.StatusBadRequest, b.post(t, loginapi.EndpointStart, loginapi.StartRequest{EndUserIP: "localhost"}).StatusCode)

	b.rp.FailAuth(errors.New("maintenance"))
	res = b.post(t, loginapi.EndpointStart, loginapi.StartRequest{EndUserIP: "1.2.3.4"})
	require.Equal(t, http.StatusBadGateway, res.StatusCode)
	var body loginapi.ErrorResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.NotEmpty(t, body.Message)
}

func TestStartStoresPendingOrder(t *testing.T) {
	b := newBackend(t, fakerp.New(neverCompletes))
	started := b.start(t)
	require.NotEmpty(t, started.AutoStartToken)

	order, err := b.orders.Get(t.Context(), started.OrderRef)
	require.NoError(t, err)
	require.Equal(t, orders.StatePending, order.State)
	require.Equal(t, "194.168.2.25", order.EndUserIP)
	require.NotEmpty(t, order.QRStartSecret)
}

func TestQRCodeWhilePending(t *testing.T) {
	b := newBackend(t, fakerp.New(neverCompletes))
	started := b.start(t)

	res := b.post(t, loginapi.EndpointQRCode, loginapi.OrderRequest{OrderRef: started.OrderRef})
	require.Equal(t, http.StatusAccepted, res.StatusCode)
	require.Equal(t, "image/png", res.Header.Get("Content-Type"))
	png, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	require.Eventually(t, func() bool {
		return b.post(t, loginapi.EndpointCollect, loginapi.OrderRequest{OrderRef: started.OrderRef}).
			Header.Get(loginapi.HeaderHintCode) == bankid.HintOutstandingTransaction
	}, time.Second, testCollectInterval)
}

func TestQRCodeAnimatesWithElapsedTime(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var elapsed atomic.Int64
	now := func() time.Time { return base.Add(time.Duration(elapsed.Load())) }
	b := newBackend(t, fakerp.New(neverCompletes), withServerOption(server.WithNowFunc(now)))
	started := b.start(t)

	read := func() []byte {
		res := b.post(t, loginapi.EndpointQRCode, loginapi.OrderRequest{OrderRef: started.OrderRef})
		require.Equal(t, http.StatusAccepted, res.StatusCode)
		png, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		return png
	}

	first := read()
	require.Equal(t, first, read(), "same second, same code")

	elapsed.Store(int64(1500 * time.Millisecond))
	require.NotEqual(t, first, read())
}

func TestCompletedOrder(t *testing.T) {
	b := newBackend(t, fakerp.New(fakerp.DefaultScript))
	started := b.start(t)

	res := b.waitStatus(t, loginapi.EndpointCollect, started.OrderRef, http.StatusOK)
	var completion loginapi.Completion
	require.NoError(t, json.NewDecoder(res.Body).Decode(&completion))
	require.Equal(t, started.OrderRef, completion.OrderRef)
	require.Equal(t, "199001011234", completion.PersonalNumber)
	require.Equal(t, "Anna", completion.GivenName)
	require.False(t, completion.ExpiresAt.IsZero())

	claims, err := b.tokens.Parse(completion.Token)
	require.NoError(t, err)
	require.Equal(t, "199001011234", claims.Subject)
	require.Equal(t, started.OrderRef, claims.OrderRef)

	res = b.post(t, loginapi.EndpointQRCode, loginapi.OrderRequest{OrderRef: started.OrderRef})
	require.Equal(t, http.StatusOK, res.StatusCode)

	require.Equal(t, fakerp.DefaultScript.PendingCollects+1, b.rp.Collects(started.OrderRef), "collector stops once complete")
}

func TestCompletionNormalisesPersonalNumber(t *testing.T) {
	script := fakerp.DefaultScript
	script.PendingCollects = 0
	script.User.PersonalNumber = "900101-1234"
	b := newBackend(t, fakerp.New(script))
	started := b.start(t)

	res := b.waitStatus(t, loginapi.EndpointCollect, started.OrderRef, http.StatusOK)
	var completion loginapi.Completion
	require.NoError(t, json.NewDecoder(res.Body).Decode(&completion))
	require.Equal(t, "199001011234", completion.PersonalNumber)
}

func TestCompletionWithInvalidPersonalNumberFails(t *testing.T) {
	script := fakerp.DefaultScript
	script.PendingCollects = 0
	script.User.PersonalNumber = "not-a-number"
	b := newBackend(t, fakerp.New(script))
	started := b.start(t)

	b.waitStatus(t, loginapi.EndpointCollect, started.OrderRef, http.StatusInternalServerError)
	res := b.post(t, loginapi.EndpointQRCode, loginapi.OrderRequest{OrderRef: started.OrderRef})
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)
}

func TestFailedOrders(t *testing.T) {
	tests := []struct {
		hint   string
		status int
		state  orders.State
	}{
		{hint: bankid.HintExpiredTransaction, status: http.StatusNoContent, state: orders.StateTimedOut},
		{hint: bankid.HintUserCancel, status: http.StatusNoContent, state: orders.StateCancelled},
		{hint: bankid.HintCancelled, status: http.StatusNoContent, state: orders.StateCancelled},
		{hint: bankid.HintCertificateErr, status: http.StatusUnauthorized, state: orders.StateUnauthorized},
		{hint: bankid.HintStartFailed, status: http.StatusUnauthorized, state: orders.StateUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.hint, func(t *testing.T) {
			b := newBackend(t, fakerp.New(fakerp.Script{PendingCollects: 1, Status: bankid.StatusFailed, HintCode: tt.hint}))
			started := b.start(t)

			res := b.waitStatus(t, loginapi.EndpointCollect, started.OrderRef, tt.status)
			require.Equal(t, tt.hint, res.Header.Get(loginapi.HeaderHintCode))

			res = b.post(t, loginapi.EndpointQRCode, loginapi.OrderRequest{OrderRef: started.OrderRef})
			require.Equal(t, tt.status, res.StatusCode)

			order, err := b.orders.Get(t.Context(), started.OrderRef)
			require.NoError(t, err)
			require.Equal(t, tt.state, order.State)
		})
	}
}

func TestCollectBudgetExhausted(t *testing.T) {
	b := newBackend(t, fakerp.New(neverCompletes), withMaxTicks(3))
	started := b.start(t)

	res := b.waitStatus(t, loginapi.EndpointQRCode, started.OrderRef, http.StatusNoContent)
	require.Equal(t, bankid.HintExpiredTransaction, res.Header.Get(loginapi.HeaderHintCode))
	require.Equal(t, 3, b.rp.Collects(started.OrderRef))
}

func TestCancel(t *testing.T) {
	b := newBackend(t, fakerp.New(neverCompletes))
	started := b.start(t)

	res := b.post(t, loginapi.EndpointCancel, loginapi.OrderRequest{OrderRef: started.OrderRef})
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, []string{started.OrderRef}, b.rp.Cancelled())

	res = b.post(t, loginapi.EndpointQRCode, loginapi.OrderRequest{OrderRef: started.OrderRef})
	require.Equal(t, http.StatusNoContent, res.StatusCode)
	require.Equal(t, bankid.HintCancelled, res.Header.Get(loginapi.HeaderHintCode))

	res = b.post(t, loginapi.EndpointCollect, loginapi.OrderRequest{OrderRef: started.OrderRef})
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	// A second cancel is accepted and does not reach the relying party again
	res = b.post(t, loginapi.EndpointCancel, loginapi.OrderRequest{OrderRef: started.OrderRef})
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Len(t, b.rp.Cancelled(), 1)
}

func TestCancelCompletedOrderConflicts(t *testing.T) {
	b := newBackend(t, fakerp.New(fakerp.DefaultScript))
	started := b.start(t)
	b.waitStatus(t, loginapi.EndpointCollect, started.OrderRef, http.StatusOK)

	res := b.post(t, loginapi.EndpointCancel, loginapi.OrderRequest{OrderRef: started.OrderRef})
	require.Equal(t, http.StatusConflict, res.StatusCode)
	var body loginapi.ErrorResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.Contains(t, body.Message, "completed")
	require.Empty(t, b.rp.Cancelled())

	order, err := b.orders.Get(t.Context(), started.OrderRef)
	require.NoError(t, err)
	require.Equal(t, orders.StateCompleted, order.State)
}

func TestCancelledOrderIsNotResurrected(t *testing.T) {
	script := fakerp.DefaultScript
	script.PendingCollects = 20
	b := newBackend(t, fakerp.New(script))
	started := b.start(t)

	require.Equal(t, http.StatusOK, b.post(t, loginapi.EndpointCancel, loginapi.OrderRequest{OrderRef: started.OrderRef}).StatusCode)

	time.Sleep(10 * testCollectInterval)
	order, err := b.orders.Get(t.Context(), started.OrderRef)
	require.NoError(t, err)
	require.Equal(t, orders.StateCancelled, order.State)
	require.Empty(t, order.Token)
}

func TestUnknownOrders(t *testing.T) {
	b := newBackend(t, fakerp.New(neverCompletes))

	for _, endpoint := range []loginapi.Endpoint{loginapi.EndpointQRCode, loginapi.EndpointCollect, loginapi.EndpointCancel} {
		t.Run(string(endpoint), func(t *testing.T) {
			require.Equal(t, http.StatusNotFound, b.post(t, endpoint, loginapi.OrderRequest{OrderRef: "missing"}).StatusCode)
			require.Equal(t, http.StatusBadRequest, b.post(t, endpoint, loginapi.OrderRequest{}).StatusCode)
		})
	}
}
