package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-bankid-auth/bankid"
	"github.com/jrsteele09/go-bankid-auth/bankid/fakerp"
	"github.com/jrsteele09/go-bankid-auth/internal/config"
	"github.com/jrsteele09/go-bankid-auth/internal/logging"
	"github.com/jrsteele09/go-bankid-auth/orders"
	"github.com/jrsteele09/go-bankid-auth/server"
	"github.com/jrsteele09/go-bankid-auth/token"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logging.Setup(c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	repo, closeRepo, err := newOrderRepo(ctx, c)
	if err != nil {
		return err
	}
	defer closeRepo()

	rp, err := newRelyingParty(c)
	if err != nil {
		return err
	}

	tokens, err := newTokenIssuer(c)
	if err != nil {
		return err
	}

	s, err := server.New(ctx, c, server.Deps{Orders: repo, RP: rp, Tokens: tokens})
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: s, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		returnError = err
	case <-waitForStopSignal():
	}

	stop()
	if err := shutdown(httpServer); err != nil && returnError == nil {
		returnError = err
	}
	s.Wait()
	return returnError
}

func newOrderRepo(ctx context.Context, c config.StoreConfig) (orders.Repo, func(), error) {
	switch c.GetStore() {
	case config.StoreMemory:
		log.Info().Dur("ttl", c.GetOrderTTL()).Msg("Using in-memory order store")
		return orders.NewInMemoryRepo(c.GetOrderTTL()), func() {}, nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     c.GetRedisAddr(),
			Password: c.GetRedisPassword(),
			DB:       c.GetRedisDB(),
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", c.GetRedisAddr(), err)
		}
		log.Info().Str("addr", c.GetRedisAddr()).Dur("ttl", c.GetOrderTTL()).Msg("Using redis order store")
		return orders.NewRedisRepo(client, "", c.GetOrderTTL()), func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE %q", c.GetStore())
}

func newRelyingParty(c config.BankIDConfig) (bankid.RelyingParty, error) {
	if c.GetBankIDFake() {
		log.Warn().Msg("Using the fake relying party, no real identification happens")
		return fakerp.New(fakerp.DefaultScript), nil
	}

	tlsConfig, err := bankid.LoadTLSConfig(bankid.TLSOptions{
		CertPath:     c.GetBankIDCertPath(),
		CertPassword: c.GetBankIDCertPassword(),
		CAPath:       c.GetBankIDCAPath(),
		ServerName:   c.GetBankIDServerName(),
		Insecure:     c.GetBankIDInsecure(),
	})
	if err != nil {
		return nil, err
	}
	return bankid.New(bankid.Config{BaseURL: c.GetBankIDBaseURL(), TLS: tlsConfig})
}

func newTokenIssuer(c config.Config) (*token.Issuer, error) {
	secret := c.GetTokenSecret()
	if secret == "" {
		if c.GetEnv() != "DEV" {
			return nil, errors.New("TOKEN_SECRET is required outside DEV")
		}
		random := make([]byte, 32)
		if _, err := rand.Read(random); err != nil {
			return nil, err
		}
		secret = hex.EncodeToString(random)
		log.Warn().Msg("TOKEN_SECRET not set, tokens are signed with a random secret")
	}

	signer, err := token.NewHMACSigner(secret)
	if err != nil {
		return nil, err
	}
	return token.NewIssuer(signer, token.WithIssuer(c.GetTokenIssuer()), token.WithExpiry(c.GetTokenExpiry())), nil
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
