package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pathwayhr/pathway/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the JSON API on the configured listen address.

Authentication uses the static bearer tokens from the config file. The
server shuts down gracefully on SIGINT/SIGTERM, letting in-flight
requests finish.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		listen, _ := cmd.Flags().GetString("listen")
		if listen == "" {
			listen = a.cfg.Server.Listen
		}

		identity := web.NewIdentity(a.cfg.Tokens)
		server := web.NewServer(a.programs, a.processes, a.blocks, a.roles, a.audit, identity, a.logger)

		errc := make(chan error, 1)
		go func() {
			if err := server.Start(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
		a.logger.Info("listening on %s (store backend: %s)", listen, a.cfg.Store.Backend)

		select {
		case err := <-errc:
			return fmt.Errorf("server: %w", err)
		case <-ctx.Done():
		}

		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "Listen address (overrides config)")
}
