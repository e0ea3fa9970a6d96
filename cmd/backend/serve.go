package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/gateway"
	"github.com/imcaffiene/webinar-platform/internal/jobs"
	"github.com/imcaffiene/webinar-platform/internal/pipeline"
	"github.com/imcaffiene/webinar-platform/internal/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

var withWorker bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the webhook gateway and meeting API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, injector := bootstrap()
		defer shutdownInjector(injector)

		gw := mustInvoke[*gateway.Gateway](injector, "gateway")
		repo := mustInvoke[repository.Repository](injector, "repository")
		reg := mustInvoke[*prometheus.Registry](injector, "metrics registry")

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// the in-process queue only has a consumer inside this process
		runWorker := withWorker || !cfg.UsesNATS()
		workerDone := make(chan error, 1)
		if runWorker {
			consumer := mustInvoke[jobs.Consumer](injector, "job consumer")
			runner := mustInvoke[*pipeline.Runner](injector, "pipeline runner")
			go func() {
				slog.Info("pipeline consumer started")
				workerDone <- consumer.Run(ctx, runner.Handle)
			}()
		}

		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           gateway.NewHTTPHandler(gw, repo, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
			ReadHeaderTimeout: readHeaderTimeout,
		}
		serveErr := make(chan error, 1)
		go func() {
			slog.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		var runErr error
		select {
		case <-ctx.Done():
			slog.Info("shutting down")
		case err := <-serveErr:
			runErr = err
			slog.Error("HTTP server failed", "error", err)
		}
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
		slog.Info("HTTP server stopped")

		if runWorker {
			if err := <-workerDone; err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("pipeline consumer stopped with error", "error", err)
			}
			slog.Info("pipeline consumer stopped")
		}
		return runErr
	},
}

func init() {
	serveCmd.Flags().BoolVar(&withWorker, "with-worker", false, "also run the pipeline consumer in this process")
}
