package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrsteele09/go-bankid-auth/authflow"
	"github.com/jrsteele09/go-bankid-auth/internal/config"
	"github.com/jrsteele09/go-bankid-auth/internal/logging"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	server   string
	ipURL    string
	ip       string
	scheme   string
	logLevel string
	interval time.Duration
}

func rootCmd(cfg config.ClientConfig) *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:           "bankid-login",
		Short:         "BankID login client",
		Long:          "Starts a BankID login at the login backend, shows the QR code and waits for the result.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logging.Setup(cfg.GetEnv(), flags.logLevel)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.server, "server", cfg.GetLoginServerURL(), "login backend base URL")
	cmd.PersistentFlags().StringVar(&flags.ipURL, "ip-url", cfg.GetIPLookupURL(), "public IP lookup URL (empty uses "+authflow.DefaultIPLookupURL+")")
	cmd.PersistentFlags().StringVar(&flags.ip, "ip", "", "use this end user IP instead of looking it up")
	cmd.PersistentFlags().StringVar(&flags.scheme, "scheme", cfg.GetAppScheme(), "identification app URI scheme")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", cfg.GetLogLevel(), "log level (debug, info, warn, error)")
	cmd.PersistentFlags().DurationVar(&flags.interval, "interval", cfg.GetPollInterval(), "poll interval")

	cmd.AddCommand(
		loginCmd(cfg, flags),
		cancelCmd(flags),
	)
	return cmd
}

func (f *globalFlags) coordinator(options ...authflow.Option) (*authflow.Coordinator, error) {
	var resolver authflow.IPResolver = authflow.HTTPIPResolver{URL: f.ipURL}
	if f.ip != "" {
		resolver = authflow.StaticIP(f.ip)
	}

	options = append([]authflow.Option{
		authflow.WithAppScheme(f.scheme),
		authflow.WithQRInterval(f.interval),
		authflow.WithCollectInterval(f.interval),
	}, options...)
	return authflow.New(authflow.NewHTTPRequester(f.server, nil), resolver, options...)
}

func execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd(config.NewClientConfig()).ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

func main() {
	if err := execute(); err != nil {
		os.Exit(1)
	}
}
