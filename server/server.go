package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-bankid-auth/bankid"
	"github.com/jrsteele09/go-bankid-auth/internal/config"
	"github.com/jrsteele09/go-bankid-auth/orders"
	"github.com/jrsteele09/go-bankid-auth/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Deps are the collaborators the login backend is built from
type Deps struct {
	Orders orders.Repo
	RP     bankid.RelyingParty
	Tokens *token.Issuer
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	orders    orders.Repo
	rp        bankid.RelyingParty
	tokens    *token.Issuer
	collector *Collector
	nowFunc   func() time.Time

	trustedProxies config.TrustedProxies
}

type Option func(*Server)

// WithNowFunc replaces the clock used to age QR codes
func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = now
	}
}

// New builds the login backend. Collector loops run under ctx and end when it is cancelled.
func New(ctx context.Context, config config.Config, deps Deps, options ...Option) (*Server, error) {
	if deps.Orders == nil || deps.RP == nil || deps.Tokens == nil {
		return nil, errors.New("[Server New] orders, relying party and token issuer are required")
	}

	s := &Server{
		env:     config.GetEnv(),
		mux:     http.NewServeMux(),
		config:  config,
		orders:  deps.Orders,
		rp:      deps.RP,
		tokens:  deps.Tokens,
		nowFunc: time.Now,

		trustedProxies: config.GetTrustedProxies(),
	}
	for _, opt := range options {
		opt(s)
	}
	s.collector = NewCollector(ctx, deps.RP, deps.Orders, deps.Tokens, CollectorOptions{
		Interval: config.GetCollectInterval(),
		MaxTicks: config.GetCollectMaxTicks(),
	})

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Wait blocks until every collector loop has returned
func (s *Server) Wait() {
	s.collector.Wait()
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func logError(method, path, error string) {
	log.Error().Msgf("[%-19s] %s %s", colourMethod(method), path, Red+error+ResetColor)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
