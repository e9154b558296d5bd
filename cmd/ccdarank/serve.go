package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ccdarank/internal/metrics"
	chitransport "github.com/kailas-cloud/ccdarank/internal/transport/chi"
	"github.com/kailas-cloud/ccdarank/internal/usecase/health"
	"github.com/kailas-cloud/ccdarank/internal/usecase/selection"
	"github.com/kailas-cloud/ccdarank/internal/version"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var (
		source string
		port   int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ranked score table over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, o)
			if err != nil {
				return err
			}
			defer func() { _ = a.logger.Sync() }()
			if cmd.Flags().Changed("source") {
				a.cfg.HTTP.Source = source
			}
			if cmd.Flags().Changed("port") {
				a.cfg.HTTP.Port = port
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Result source: file or redis (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	logger := a.logger
	logger.Info("Starting ccdarank API server",
		zap.String("version", version.Version),
		zap.String("source", a.cfg.HTTP.Source),
		zap.Int("port", a.cfg.HTTP.Port),
	)

	src, store, err := a.resultSource(ctx, a.cfg.HTTP.Source)
	if err != nil {
		return err
	}
	var pinger health.DBPinger
	if store != nil {
		defer store.Close()
		pinger = store
		logger.Info("Connected to database")
	}

	metrics.RegisterHTTPMetrics()
	server := chitransport.NewServer(
		selection.New(src, selection.WithMaxLimit(a.cfg.HTTP.MaxPageSize)),
		health.New(src, pinger),
		logger,
	)

	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(a.cfg.Auth.APIKeys),
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
