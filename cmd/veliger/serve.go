package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cebimar/veliger/internal/config"
	"github.com/cebimar/veliger/internal/engine"
	"github.com/cebimar/veliger/internal/httpapi"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editing API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
	cmd.Flags().String("bind", config.DefaultBind, "HTTP listen address")
	cmd.Flags().String("auth-mode", string(config.AuthNone), "Authentication mode (none, apikey)")
	bindLocalFlag(cmd, "http.bind", "bind")
	bindLocalFlag(cmd, "auth.mode", "auth-mode")
	return cmd
}

func runServer(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var apiKeys *httpapi.APIKeyStore
	if a.cfg.AuthMode == config.AuthAPIKey {
		apiKeys, err = httpapi.LoadAPIKeys(a.cfg.APIKeysFile)
		if err != nil {
			a.logger.Error("failed to load api keys", zap.Error(err))
			return err
		}
	}

	live := engine.NewLiveEditor(a.engine, a.cfg.EditDebounce, nil)
	defer live.Stop()

	router := httpapi.NewRouter(httpapi.Options{
		Config:   a.cfg,
		Catalog:  a.engine,
		Stager:   live,
		Ready:    a.ready,
		APIKeys:  apiKeys,
		Gatherer: a.registry,
		Logger:   a.logger.Named("http"),
	})
	srv := &http.Server{Addr: a.cfg.Bind, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", a.cfg.Bind))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.logger.Error("server error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	a.logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	live.Flush()
	if err := a.engine.Snapshot(shutdownCtx); err != nil {
		a.logger.Error("final snapshot failed", zap.Error(err))
	}
	return nil
}
