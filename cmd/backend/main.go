package main

import (
	"log/slog"
	"os"

	archiveimpl "github.com/imcaffiene/webinar-platform/external/archive"
	configloader "github.com/imcaffiene/webinar-platform/external/config"
	discordimpl "github.com/imcaffiene/webinar-platform/external/discord"
	jobsimpl "github.com/imcaffiene/webinar-platform/external/jobs"
	llmimpl "github.com/imcaffiene/webinar-platform/external/llm"
	platformimpl "github.com/imcaffiene/webinar-platform/external/platform"
	repositoryimpl "github.com/imcaffiene/webinar-platform/external/repository"
	stepcacheimpl "github.com/imcaffiene/webinar-platform/external/stepcache"
	webhookimpl "github.com/imcaffiene/webinar-platform/external/webhook"
	"github.com/imcaffiene/webinar-platform/internal/config"
	"github.com/imcaffiene/webinar-platform/internal/gateway"
	"github.com/imcaffiene/webinar-platform/internal/metrics"
	"github.com/imcaffiene/webinar-platform/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "backend <command>",
	Short:         "Meeting lifecycle backend: webhook gateway and summarization worker",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func bootstrap() (*config.Config, do.Injector) {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "nats", cfg.UsesNATS())

	slog.Info("startup: building dependency graph")
	return cfg, setupDI(cfg)
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	do.ProvideValue(injector, reg)
	do.ProvideValue(injector, metrics.New(reg))

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	stepcacheimpl.RegisterDI(injector)
	jobsimpl.RegisterDI(injector)
	llmimpl.RegisterDI(injector)
	platformimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	discordimpl.RegisterDI(injector)
	archiveimpl.RegisterDI(injector)
	gateway.RegisterDI(injector)
	pipeline.RegisterDI(injector)

	return injector
}

func mustInvoke[T any](injector do.Injector, what string) T {
	v, err := do.Invoke[T](injector)
	if err != nil {
		slog.Error("failed to resolve "+what, "error", err)
		os.Exit(1)
	}
	return v
}
