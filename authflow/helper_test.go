package authflow_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-bankid-auth/authflow"
	"github.com/jrsteele09/go-bankid-auth/loginapi"
	"github.com/stretchr/testify/require"
)

const testInterval = 10 * time.Millisecond

type scripted struct {
	res *authflow.Response
	err error
}

func respond(status int, body string) scripted {
	return scripted{res: &authflow.Response{StatusCode: status, Body: []byte(body)}}
}

func respondJSON(t *testing.T, status int, v any) scripted {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return scripted{res: &authflow.Response{StatusCode: status, ContentType: "application/json", Body: body}}
}

func fail(err error) scripted {
	return scripted{err: err}
}

type call struct {
	endpoint loginapi.Endpoint
	body     any
}

// fakeRequester replays scripted responses per endpoint. The last response of a script repeats.
type fakeRequester struct {
	mu      sync.Mutex
	scripts map[loginapi.Endpoint][]scripted
	calls   []call
	onCall  func(endpoint loginapi.Endpoint)
}

func newFakeRequester() *fakeRequester {
	return &fakeRequester{scripts: make(map[loginapi.Endpoint][]scripted)}
}

func (f *fakeRequester) script(endpoint loginapi.Endpoint, responses ...scripted) *fakeRequester {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[endpoint] = append(f.scripts[endpoint], responses...)
	return f
}

func (f *fakeRequester) Do(_ context.Context, endpoint loginapi.Endpoint, body any) (*authflow.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{endpoint: endpoint, body: body})
	hook := f.onCall
	queue := f.scripts[endpoint]
	var next scripted
	switch {
	case len(queue) == 0:
		next = fail(fmt.Errorf("no script for %s", endpoint))
	case len(queue) == 1:
		next = queue[0]
	default:
		next = queue[0]
		f.scripts[endpoint] = queue[1:]
	}
	f.mu.Unlock()

	if hook != nil {
		hook(endpoint)
	}
	return next.res, next.err
}

func (f *fakeRequester) endpoints() []loginapi.Endpoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	endpoints := make([]loginapi.Endpoint, 0, len(f.calls))
	for _, c := range f.calls {
		endpoints = append(endpoints, c.endpoint)
	}
	return endpoints
}

func (f *fakeRequester) count(endpoint loginapi.Endpoint) int {
	n := 0
	for _, e := range f.endpoints() {
		if e == endpoint {
			n++
		}
	}
	return n
}

// recordingStore hands out sequential code IDs and records create/release order.
type recordingStore struct {
	mu     sync.Mutex
	n      int
	events []string
	err    error
}

func (s *recordingStore) Create(png []byte) (authflow.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return authflow.Code{}, s.err
	}
	s.n++
	id := fmt.Sprintf("c%d", s.n)
	s.events = append(s.events, "create:"+id)
	return authflow.Code{ID: id, URI: "mem://" + id + "/" + string(png)}, nil
}

func (s *recordingStore) Release(code authflow.Code) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, "release:"+code.ID)
}

func (s *recordingStore) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// callbackRecorder collects every callback invocation.
type callbackRecorder struct {
	mu        sync.Mutex
	codes     []authflow.Code
	completed []authflow.Outcome
	timedOut  []authflow.Outcome
	failures  []authflow.Outcome
}

func (r *callbackRecorder) result() authflow.ResultCallbacks {
	return authflow.ResultCallbacks{
		OnComplete: func(o authflow.Outcome) { r.mu.Lock(); r.completed = append(r.completed, o); r.mu.Unlock() },
		OnTimeout:  func(o authflow.Outcome) { r.mu.Lock(); r.timedOut = append(r.timedOut, o); r.mu.Unlock() },
		OnFailure:  func(o authflow.Outcome) { r.mu.Lock(); r.failures = append(r.failures, o); r.mu.Unlock() },
	}
}

func (r *callbackRecorder) qr() authflow.QRCallbacks {
	return authflow.QRCallbacks{
		ResultCallbacks: r.result(),
		OnNewCode:       func(c authflow.Code) { r.mu.Lock(); r.codes = append(r.codes, c); r.mu.Unlock() },
	}
}

func (r *callbackRecorder) snapshot() (codes []authflow.Code, completed, timedOut, failures []authflow.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(codes, r.codes...),
		append(completed, r.completed...),
		append(timedOut, r.timedOut...),
		append(failures, r.failures...)
}

func newCoordinator(t *testing.T, requester authflow.Requester, options ...authflow.Option) *authflow.Coordinator {
	t.Helper()
	opts := append([]authflow.Option{
		authflow.WithQRInterval(testInterval),
		authflow.WithCollectInterval(testInterval),
	}, options...)
	c, err := authflow.New(requester, authflow.StaticIP("1.2.3.4"), opts...)
	require.NoError(t, err)
	return c
}

func waitOutcome(t *testing.T, h *authflow.Handle) authflow.Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	o, err := h.Wait(ctx)
	require.NoError(t, err, "poller did not finish")
	return o
}
