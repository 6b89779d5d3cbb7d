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
	"go.uber.org/zap"

	"github.com/webgrade/webgrade/internal/config"
	"github.com/webgrade/webgrade/internal/server"
)

func serveCmd() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Webgrade API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env := config.New()
			logger, err := envLogger(env)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			srv, err := server.New(server.Config{
				ListenAddr: listenAddr,
				Env:        env,
				Logger:     logger,
			})
			if err != nil {
				return fmt.Errorf("build server: %w", err)
			}
			defer srv.Close()

			httpServer := srv.HTTPServer()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("server listening", zap.String("addr", httpServer.Addr))
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address (default from WEBGRADE_LISTEN_ADDR or :8787)")
	return cmd
}
