package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/richharbor/access-service/internal/api/http/handlers"
	"github.com/richharbor/access-service/internal/auth"
	"github.com/richharbor/access-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Admins         *handlers.AdminsHandler
	RoleUpgrades   *handlers.RoleUpgradeHandler
	Onboarding     *handlers.OnboardingHandler
	Franchises     *handlers.FranchiseHandler
	Roles          *handlers.RolesHandler
	Leads          *handlers.LeadsHandler
	AuthMiddleware *auth.AuthMiddleware
	// Capabilities resolves user capabilities for the lead routes.
	Capabilities auth.CapabilityChecker
	// Metrics is served on /metrics when set.
	Metrics nethttp.Handler
	// GlobalLimiter and AuthLimiter are optional.
	GlobalLimiter fiber.Handler
	AuthLimiter   fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	if cfg.GlobalLimiter != nil {
		app.Use(cfg.GlobalLimiter)
	}

	authGroup := app.Group("/auth")
	if cfg.AuthLimiter != nil {
		authGroup.Use(cfg.AuthLimiter)
	}
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)
	authGroup.Post("/admins/login", cfg.Admins.Login)

	// email links carry no bearer token
	app.Get("/v1/onboarding/verify", cfg.Onboarding.Verify)

	v1 := app.Group("/v1", cfg.AuthMiddleware.Handle, auth.RequireUser())
	v1.Get("/me/roles", cfg.Users.MyRoles)
	v1.Post("/role-upgrade-request", cfg.RoleUpgrades.Submit)
	v1.Get("/role-upgrade-request", cfg.RoleUpgrades.Status)
	v1.Post("/onboarding", cfg.Onboarding.Start)
	v1.Post("/leads", auth.RequireCapability(cfg.Capabilities, domain.CapabilityLeads, domain.LevelWrite), cfg.Leads.Create)
	v1.Get("/leads", auth.RequireCapability(cfg.Capabilities, domain.CapabilityLeads, domain.LevelRead), cfg.Leads.List)
	v1.Get("/leads/:id", auth.RequireCapability(cfg.Capabilities, domain.CapabilityLeads, domain.LevelRead), cfg.Leads.Get)
	v1.Get("/onboarding", cfg.Onboarding.Latest)
	v1.Post("/onboarding/steps/:step", cfg.Onboarding.Step)
	v1.Post("/onboarding/submit", cfg.Onboarding.Submit)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle)

	upgrades := admin.Group("/role-upgrade-requests", auth.RequireAdminPermission(domain.CapabilityReviewRoleUpgrades))
	upgrades.Get("/", cfg.RoleUpgrades.List)
	upgrades.Get("/:id", cfg.RoleUpgrades.Get)
	upgrades.Put("/:id/review", cfg.RoleUpgrades.Review)

	applications := admin.Group("/onboarding-applications", auth.RequireAdminPermission(domain.CapabilityReviewOnboarding))
	applications.Get("/", cfg.Onboarding.List)
	applications.Get("/stats", cfg.Onboarding.Stats)
	applications.Post("/bulk-review", cfg.Onboarding.BulkReview)
	applications.Get("/:id", cfg.Onboarding.Get)
	applications.Put("/:id/review", cfg.Onboarding.Review)

	franchises := admin.Group("/franchises", auth.RequireAdminPermission(domain.CapabilityManageFranchises))
	franchises.Post("/", cfg.Franchises.Create)
	franchises.Get("/", cfg.Franchises.List)
	franchises.Get("/:id", cfg.Franchises.Get)
	franchises.Patch("/:id/status", cfg.Franchises.ChangeStatus)

	roles := admin.Group("/roles", auth.RequireAdminPermission(domain.CapabilityManageRoles))
	roles.Post("/", cfg.Roles.Create)
	roles.Get("/", cfg.Roles.List)
	roles.Patch("/:id/status", cfg.Roles.SetActive)

	admin.Get("/users/:id/roles", auth.RequireAdminPermission(domain.CapabilityViewUsers), cfg.Users.UserRoles)
}
