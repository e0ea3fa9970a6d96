package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/imcaffiene/webinar-platform/internal/jobs"
	"github.com/imcaffiene/webinar-platform/internal/pipeline"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the transcript summarization consumer against NATS JetStream",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, injector := bootstrap()
		defer shutdownInjector(injector)

		if !cfg.UsesNATS() {
			return fmt.Errorf("worker requires NATS_URL; use serve to run the in-process queue")
		}

		consumer := mustInvoke[jobs.Consumer](injector, "job consumer")
		runner := mustInvoke[*pipeline.Runner](injector, "pipeline runner")

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		slog.Info("pipeline consumer started", "stream", cfg.NATSStream)
		if err := consumer.Run(ctx, runner.Handle); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("pipeline consumer: %w", err)
		}
		slog.Info("pipeline consumer stopped")
		return nil
	},
}
