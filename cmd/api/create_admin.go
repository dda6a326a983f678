package main

import (
	"errors"
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/richharbor/access-service/internal/config"
	"github.com/richharbor/access-service/internal/observability"
	"github.com/richharbor/access-service/internal/persistence"
	"github.com/richharbor/access-service/internal/service"
)

const (
	adminNameFlag     = "name"
	adminEmailFlag    = "email"
	adminPasswordFlag = "password"
	adminRoleFlag     = "role"
)

var createAdminFlags = map[string]cobraflags.Flag{
	adminNameFlag: &cobraflags.StringFlag{
		Name:  adminNameFlag,
		Value: "",
		Usage: "Display name of the admin",
	},
	adminEmailFlag: &cobraflags.StringFlag{
		Name:  adminEmailFlag,
		Value: "",
		Usage: "Login email (required)",
	},
	adminPasswordFlag: &cobraflags.StringFlag{
		Name:  adminPasswordFlag,
		Value: "",
		Usage: "Initial password (required)",
	},
	adminRoleFlag: &cobraflags.StringFlag{
		Name:  adminRoleFlag,
		Value: "superadmin",
		Usage: "Admin role granting review permissions",
	},
}

func newCreateAdminCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Provision a reviewer account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			email := createAdminFlags[adminEmailFlag].GetString()
			password := createAdminFlags[adminPasswordFlag].GetString()
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}

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

			ctx := cmd.Context()
			pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
			if err != nil {
				return err
			}
			defer pg.Close()

			authService := service.NewAuthService(cfg.Auth, pg.Store(logger))
			admin, err := authService.CreateAdmin(ctx,
				createAdminFlags[adminNameFlag].GetString(), email, password,
				createAdminFlags[adminRoleFlag].GetString())
			if err != nil {
				return err
			}
			logger.Info("admin created", zap.String("admin_id", admin.ID), zap.String("email", admin.Email))
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, createAdminFlags)
	return cmd
}
