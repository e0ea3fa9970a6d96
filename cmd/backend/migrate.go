package main

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, injector := bootstrap()
		defer shutdownInjector(injector)

		// the pool provider applies migrations before handing out the pool
		if _, err := do.Invoke[*pgxpool.Pool](injector); err != nil {
			return err
		}
		slog.Info("database schema is up to date")
		return nil
	},
}

func shutdownInjector(injector do.Injector) {
	injector.Shutdown()
	slog.Info("shutdown complete")
}
