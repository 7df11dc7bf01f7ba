package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/jrsteele09/go-bankid-auth/bankid/fakerp"
	"github.com/jrsteele09/go-bankid-auth/internal/config"
	"github.com/jrsteele09/go-bankid-auth/loginapi"
	"github.com/jrsteele09/go-bankid-auth/orders"
	"github.com/jrsteele09/go-bankid-auth/server"
	"github.com/jrsteele09/go-bankid-auth/token"
	"github.com/stretchr/testify/require"
)

const testCollectInterval = 5 * time.Millisecond

type testConfig struct {
	config.Config
	maxTicks int
}

func (testConfig) GetEnv() string                    { return "TEST" }
func (testConfig) GetCollectInterval() time.Duration { return testCollectInterval }
func (c testConfig) GetCollectMaxTicks() int         { return c.maxTicks }
func (testConfig) GetTrustedProxies() config.TrustedProxies {
	return config.TrustedProxies{netip.MustParsePrefix("10.0.0.0/8")}
}
func (testConfig) GetAllowedOrigins() config.AllowedOrigins {
	return config.AllowedOrigins{"http://app.test": struct{}{}}
}

type backend struct {
	srv    *httptest.Server
	server *server.Server
	rp     *fakerp.RelyingParty
	orders orders.Repo
	tokens *token.Issuer
}

type backendOption func(*backendSetup)

type backendSetup struct {
	maxTicks int
	options  []server.Option
}

func withMaxTicks(n int) backendOption {
	return func(b *backendSetup) { b.maxTicks = n }
}

func withServerOption(opt server.Option) backendOption {
	return func(b *backendSetup) { b.options = append(b.options, opt) }
}

func newBackend(t *testing.T, rp *fakerp.RelyingParty, opts ...backendOption) *backend {
	t.Helper()
	setup := &backendSetup{maxTicks: 200}
	for _, opt := range opts {
		opt(setup)
	}

	signer, err := token.NewHMACSigner("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	b := &backend{
		rp:     rp,
		orders: orders.NewInMemoryRepo(time.Minute),
		tokens: token.NewIssuer(signer),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s, err := server.New(ctx, testConfig{Config: config.New(), maxTicks: setup.maxTicks},
		server.Deps{Orders: b.orders, RP: rp, Tokens: b.tokens}, setup.options...)
	require.NoError(t, err)
	b.server = s
	b.srv = httptest.NewServer(s)

	t.Cleanup(func() {
		cancel()
		b.srv.Close()
		s.Wait()
	})
	return b
}

func (b *backend) post(t *testing.T, endpoint loginapi.Endpoint, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	res, err := b.srv.Client().Post(b.srv.URL+string(endpoint), "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func (b *backend) start(t *testing.T) loginapi.StartResponse {
	t.Helper()
	res := b.post(t, loginapi.EndpointStart, loginapi.StartRequest{EndUserIP: "194.168.2.25"})
	require.Equal(t, http.StatusOK, res.StatusCode)
	var started loginapi.StartResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&started))
	require.NotEmpty(t, started.OrderRef)
	return started
}

// waitStatus polls endpoint until it answers with status
func (b *backend) waitStatus(t *testing.T, endpoint loginapi.Endpoint, orderRef string, status int) *http.Response {
	t.Helper()
	var res *http.Response
	require.Eventually(t, func() bool {
		res = b.post(t, endpoint, loginapi.OrderRequest{OrderRef: orderRef})
		return res.StatusCode == status
	}, 2*time.Second, testCollectInterval)
	return res
}
