package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rajasatyajit/apikey-authorizer/config"
	"github.com/rajasatyajit/apikey-authorizer/internal/api"
	"github.com/rajasatyajit/apikey-authorizer/internal/logger"
	"github.com/rajasatyajit/apikey-authorizer/internal/metrics"
	middlewares "github.com/rajasatyajit/apikey-authorizer/internal/middleware"
)

// maxEventBytes bounds POST /v1/authorize bodies
const maxEventBytes = 1 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve authorizations over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		return serve(ctx, a)
	},
}

func newRouter(a *app) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(a.cfg.Server.ReadTimeout))
	r.Use(middlewares.Security)
	r.Use(middlewares.MaxBody(maxEventBytes))

	api.NewHandler(a.service, Version, BuildTime, GitCommit).RegisterRoutes(r)
	return r
}

// serve runs the API and metrics servers until ctx is cancelled or one fails
func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	g, ctx := errgroup.WithContext(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newRouter(a),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	g.Go(func() error {
		logger.Info("Starting HTTP server", "address", addr)
		return listen(srv)
	})

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = newMetricsServer(cfg.Metrics)
		g.Go(func() error {
			logger.Info("Starting metrics server", "address", metricsSrv.Addr, "path", cfg.Metrics.Path)
			return listen(metricsSrv)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if metricsSrv != nil {
			err = errors.Join(err, metricsSrv.Shutdown(shutdownCtx))
		}
		if err != nil {
			logger.Error("Server forced to shutdown", "error", err)
		}
		return err
	})

	err := g.Wait()
	logger.Info("Server exited")
	return err
}

func newMetricsServer(cfg config.MetricsConfig) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler())
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func listen(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	return nil
}
