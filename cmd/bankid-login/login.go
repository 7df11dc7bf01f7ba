package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/jrsteele09/go-bankid-auth/authflow"
	"github.com/jrsteele09/go-bankid-auth/internal/config"
	"github.com/jrsteele09/go-bankid-auth/loginapi"
	"github.com/jrsteele09/go-bankid-auth/qrstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// qrCodeTTL bounds how long an unreleased code stays served.
const qrCodeTTL = time.Minute

type loginFlags struct {
	launchApp  bool
	statusOnly bool
	qrDir      string
	qrAddr     string
	timeout    time.Duration
}

func loginCmd(cfg config.ClientConfig, global *globalFlags) *cobra.Command {
	flags := &loginFlags{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Identify with BankID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var options []authflow.Option
			if flags.launchApp {
				options = append(options, authflow.WithLauncher(authflow.BrowserLauncher{}))
			}
			if flags.qrDir != "" {
				store, err := qrstore.NewFileStore(flags.qrDir)
				if err != nil {
					return err
				}
				options = append(options, authflow.WithCodeStore(store))
			}
			if flags.qrAddr != "" {
				store, stop, err := serveQRCodes(flags.qrAddr)
				if err != nil {
					return err
				}
				defer stop()
				options = append(options, authflow.WithCodeStore(store))
			}

			c, err := global.coordinator(options...)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), flags.timeout)
			defer cancel()
			return login(ctx, c, flags, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&flags.launchApp, "launch-app", false, "open the identification app on this device")
	cmd.Flags().BoolVar(&flags.statusOnly, "status-only", false, "poll for the result without showing QR codes")
	cmd.Flags().StringVar(&flags.qrDir, "qr-dir", "", "write each QR code as a PNG into this directory")
	cmd.Flags().StringVar(&flags.qrAddr, "qr-addr", "", "serve the current QR code over HTTP on this address (e.g. 127.0.0.1:8765)")
	cmd.MarkFlagsMutuallyExclusive("qr-dir", "qr-addr")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", cfg.GetLoginTimeout(), "give up and cancel the order after this long")
	return cmd
}

// serveQRCodes serves live codes from memory at http://<addr>/qr/<id> until stop is called.
func serveQRCodes(addr string) (*qrstore.MemoryStore, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "listen %s", addr)
	}
	store := qrstore.NewMemoryStore("http://"+ln.Addr().String()+"/qr/", qrCodeTTL)

	mux := http.NewServeMux()
	mux.Handle("GET /qr/{id}", store)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Str("addr", addr).Msg("QR code server stopped")
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return store, stop, nil
}

func login(ctx context.Context, c *authflow.Coordinator, flags *loginFlags, out io.Writer) error {
	orderRef, err := c.StartSession(ctx, flags.launchApp)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Order %s started\n", orderRef)

	var h *authflow.Handle
	if flags.statusOnly {
		h, err = c.StartPollingResult(ctx, orderRef, authflow.ResultCallbacks{})
	} else {
		h, err = c.StartPollingQRCode(ctx, orderRef, authflow.QRCallbacks{
			OnNewCode: func(code authflow.Code) {
				_, _ = fmt.Fprintf(out, "Scan QR code: %s\n", code.URI)
			},
		})
	}
	if err != nil {
		return err
	}

	<-h.Done()
	outcome, _ := h.Outcome()
	return report(ctx, c, outcome, out)
}

func report(ctx context.Context, c *authflow.Coordinator, o authflow.Outcome, out io.Writer) error {
	switch o.Kind {
	case authflow.OutcomeCompleted:
		var completion loginapi.Completion
		if err := o.Decode(&completion); err != nil {
			return errors.Wrap(err, "decode completion")
		}
		_, _ = fmt.Fprintf(out, "Identified %s (%s)\n", completion.Name, completion.PersonalNumber)
		_, _ = fmt.Fprintf(out, "Token: %s\n", completion.Token)
		return nil

	case authflow.OutcomeTimedOut:
		return errors.Errorf("order %s ended without identification (%s)", o.OrderRef, hint(o))

	case authflow.OutcomeUnauthorized:
		return errors.Errorf("order %s was rejected (%s)", o.OrderRef, hint(o))

	case authflow.OutcomeStopped:
		// Use a fresh context, the login context is what ended.
		cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		c.CancelSession(cancelCtx, o.OrderRef)
		log.Info().Str("order_ref", o.OrderRef).Msg("Login aborted")
		return errors.Errorf("order %s aborted: %v", o.OrderRef, context.Cause(ctx))
	}
	if o.Err == nil {
		return errors.Errorf("order %s failed with status %d", o.OrderRef, o.StatusCode)
	}
	return errors.Wrapf(o.Err, "order %s failed", o.OrderRef)
}

func hint(o authflow.Outcome) string {
	if o.HintCode == "" {
		return "no hint"
	}
	return o.HintCode
}
