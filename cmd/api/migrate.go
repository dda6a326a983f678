package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/richharbor/access-service/internal/config"
	"github.com/richharbor/access-service/internal/observability"
	"github.com/richharbor/access-service/internal/persistence"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Postgres.DSN == "" {
				return errors.New("POSTGRES_DSN is required")
			}
			logger, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			return persistence.RunMigrations(cmd.Context(), cfg.Postgres.DSN, logger)
		},
	}
}
