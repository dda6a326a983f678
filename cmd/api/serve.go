package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/richharbor/access-service/internal/api/http"
	"github.com/richharbor/access-service/internal/api/http/handlers"
	"github.com/richharbor/access-service/internal/auth"
	"github.com/richharbor/access-service/internal/config"
	"github.com/richharbor/access-service/internal/events"
	"github.com/richharbor/access-service/internal/notify"
	"github.com/richharbor/access-service/internal/observability"
	"github.com/richharbor/access-service/internal/persistence"
	"github.com/richharbor/access-service/internal/ratelimit"
	"github.com/richharbor/access-service/internal/service"
	"github.com/richharbor/access-service/internal/validation"
	"github.com/richharbor/access-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, cfg.Postgres.DSN, logger); err != nil {
			return err
		}
	}
	store := pg.Store(logger)

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	schemas, err := validation.NewRegistry(cfg.Workflow.SchemaDir)
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}
	dispatcher := events.NewInMemoryDispatcher(logger)

	senders, err := notify.NewSenders(ctx, cfg.Notification, logger)
	if err != nil {
		return fmt.Errorf("init notifications: %w", err)
	}
	worker.StartNotificationWorker(service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:    dispatcher,
		Senders:       senders,
		Users:         store.Users(),
		Logger:        logger,
		PublicBaseURL: cfg.App.PublicBaseURL,
	}), logger)

	authService := service.NewAuthService(cfg.Auth, store)
	resolver := service.NewRoleResolver(store)
	upgrades := service.NewRoleUpgradeService(service.RoleUpgradeDependencies{
		Store:               store,
		Schemas:             schemas,
		Dispatcher:          dispatcher,
		Metrics:             metrics,
		Logger:              logger,
		Ladder:              cfg.Workflow.UpgradeLadder,
		MinResubmitInterval: cfg.Workflow.MinResubmitInterval,
	})
	onboarding := service.NewOnboardingService(service.OnboardingDependencies{
		Store:               store,
		Schemas:             schemas,
		Dispatcher:          dispatcher,
		Metrics:             metrics,
		Logger:              logger,
		RequiredSteps:       cfg.Workflow.RequiredOnboardingSteps,
		Ladder:              cfg.Workflow.UpgradeLadder,
		MinResubmitInterval: cfg.Workflow.MinResubmitInterval,
	})

	checks := []handlers.DependencyCheck{{Name: "store", Pinger: store}}
	routes := httptransport.RouteConfig{
		Users:          handlers.NewUsersHandler(authService, resolver),
		Admins:         handlers.NewAdminsHandler(authService),
		RoleUpgrades:   handlers.NewRoleUpgradeHandler(upgrades),
		Onboarding:     handlers.NewOnboardingHandler(onboarding),
		Franchises:     handlers.NewFranchiseHandler(service.NewFranchiseService(store)),
		Roles:          handlers.NewRolesHandler(service.NewRoleService(store)),
		Leads:          handlers.NewLeadsHandler(service.NewLeadService(store, logger)),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store),
		Capabilities:   resolver,
		Metrics:        metrics.Handler(),
	}
	if cfg.RateLimit.Enabled {
		checks = append(checks, handlers.DependencyCheck{Name: "redis", Pinger: redis})
		limiterCfg := ratelimit.MiddlewareConfig{FailOpen: cfg.RateLimit.FailOpen, Logger: logger, Metrics: metrics}
		routes.GlobalLimiter = ratelimit.Middleware(
			ratelimit.NewLimiter(redis.Client, "global", cfg.RateLimit.GlobalPoints, cfg.RateLimit.Window), limiterCfg)
		authCfg := limiterCfg
		authCfg.Message = "too many authentication attempts, please try again later"
		routes.AuthLimiter = ratelimit.Middleware(
			ratelimit.NewLimiter(redis.Client, "auth", cfg.RateLimit.AuthPoints, cfg.RateLimit.Window), authCfg)
	}
	routes.Health = handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks...)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, routes)

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("fiber listen: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return app.ShutdownWithTimeout(shutdownTimeout)
}
