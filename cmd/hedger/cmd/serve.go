package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/hedger/api"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the backend over HTTP",
		Long: `Serve the configured backend on the JSON API used by remote clients.
With a local store the list and history routes are served too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.open()
			if err != nil {
				return err
			}
			defer b.Close()

			cfg := &api.Config{Host: a.cfg.Server.Host, Port: a.cfg.Server.Port, Metrics: a.cfg.Metrics.Enabled}
			if host != "" {
				cfg.Host = host
			}
			if port != 0 {
				cfg.Port = port
			}

			var journal api.Journal
			if b.st != nil {
				journal = b.st
			}
			srv, err := api.NewServer(b.api, journal, a.log.Named("api"), cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.log.Error("shutdown", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "override server.host")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server.port")
	return cmd
}
