package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yonatangross/hookwarden/internal/api"
)

// newServeCmd runs the engine as an HTTP daemon with config hot reload.
func newServeCmd(cfgPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine as a long-lived HTTP daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := buildEngine(*cfgPath)
			if err != nil {
				return err
			}
			defer eng.close()

			if err := eng.cfg.Watch(); err != nil {
				eng.logger.Warn("config hot reload unavailable", zap.Error(err))
			}
			defer eng.cfg.Unwatch()

			srv := &http.Server{
				Addr:         addr,
				Handler:      api.NewRouter(eng.newDeps()),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				eng.logger.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				eng.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				eng.logger.Error("http server shutdown error", zap.Error(err))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8787", "listen address")
	return cmd
}
