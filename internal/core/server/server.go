// Package server wires the chi router and runs the HTTP service.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geovine/spectral-cache/internal/core/config"
	"github.com/geovine/spectral-cache/internal/core/health"
	"github.com/geovine/spectral-cache/internal/core/middleware"
	"github.com/geovine/spectral-cache/internal/core/router"
	"github.com/geovine/spectral-cache/internal/index"
	"github.com/geovine/spectral-cache/internal/retrieval"
)

// Run serves until ctx is cancelled, then shuts down gracefully. ready may
// be nil when invalidation is disabled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, handler router.ComputeHandler, fetch retrieval.Interface, reg *index.Registry, ready health.ReadinessReporter) error {
	r := chi.NewRouter()
	r.Use(middleware.Recover())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(ready))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/indices", router.HandleIndices(reg))
	r.Get("/compute", router.HandleCompute(logger, handler))
	r.Get("/change", router.HandleChange(logger, handler))
	r.Get("/flood", router.HandleFlood(logger, fetch))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
