package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/richharbor/access-service/internal/api/http/handlers"
	"github.com/richharbor/access-service/internal/auth"
	"github.com/richharbor/access-service/internal/config"
	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/events"
	"github.com/richharbor/access-service/internal/ratelimit"
	"github.com/richharbor/access-service/internal/repository/memory"
	"github.com/richharbor/access-service/internal/service"
	"github.com/richharbor/access-service/internal/validation"
)

const (
	adminEmail    = "reviewer@example.com"
	adminPassword = "reviewer-pass"
)

type testServer struct {
	app   *fiber.App
	store *memory.Store
	roles map[string]*domain.Role
}

func newTestServer(t *testing.T, configure ...func(*RouteConfig)) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	store := memory.New()

	roles := map[string]*domain.Role{}
	for _, name := range []string{"customer", "referral_partner", "partner"} {
		perms := domain.Permissions{"portfolio.view": domain.LevelRead}
		if name != "customer" {
			perms[domain.CapabilityLeads] = domain.LevelWrite
		}
		role := &domain.Role{Name: name, IsActive: true, Permissions: perms}
		require.NoError(t, store.Roles().Create(ctx, role))
		roles[name] = role
	}
	require.NoError(t, store.Admins().CreateRole(ctx, &domain.AdminRole{
		Name: "reviewer",
		Permissions: domain.Permissions{
			domain.CapabilityReviewRoleUpgrades: domain.LevelFull,
			domain.CapabilityReviewOnboarding:   domain.LevelFull,
			domain.CapabilityManageFranchises:   domain.LevelFull,
			domain.CapabilityManageRoles:        domain.LevelFull,
			domain.CapabilityViewUsers:          domain.LevelRead,
		},
	}))

	authService := service.NewAuthService(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, BcryptCost: 4}, store)
	_, err := authService.CreateAdmin(ctx, "Reviewer", adminEmail, adminPassword, "reviewer")
	require.NoError(t, err)

	schemas, err := validation.NewRegistry("")
	require.NoError(t, err)
	dispatcher := events.NewInMemoryDispatcher(logger)

	upgrades := service.NewRoleUpgradeService(service.RoleUpgradeDependencies{
		Store:               store,
		Schemas:             schemas,
		Dispatcher:          dispatcher,
		Logger:              logger,
		MinResubmitInterval: time.Hour,
	})
	onboarding := service.NewOnboardingService(service.OnboardingDependencies{
		Store:               store,
		Schemas:             schemas,
		Dispatcher:          dispatcher,
		Logger:              logger,
		RequiredSteps:       []int{1},
		MinResubmitInterval: time.Hour,
	})
	resolver := service.NewRoleResolver(store)

	cfg := RouteConfig{
		Health:         handlers.NewHealthHandler("access-service", "test", handlers.DependencyCheck{Name: "store", Pinger: store}),
		Users:          handlers.NewUsersHandler(authService, resolver),
		Admins:         handlers.NewAdminsHandler(authService),
		RoleUpgrades:   handlers.NewRoleUpgradeHandler(upgrades),
		Onboarding:     handlers.NewOnboardingHandler(onboarding),
		Franchises:     handlers.NewFranchiseHandler(service.NewFranchiseService(store)),
		Roles:          handlers.NewRolesHandler(service.NewRoleService(store)),
		Leads:          handlers.NewLeadsHandler(service.NewLeadService(store, logger)),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store),
		Capabilities:   resolver,
	}
	for _, fn := range configure {
		fn(&cfg)
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, nil)})
	RegisterMiddlewares(app, logger, nil, 0)
	RegisterRoutes(app, cfg)
	return &testServer{app: app, store: store, roles: roles}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (s *testServer) registerUser(t *testing.T, email string) string {
	t.Helper()
	status, body := s.do(t, "POST", "/auth/users/register", "", map[string]any{
		"name":     "Ana",
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	return body["data"].(map[string]any)["auth"].(map[string]any)["token"].(string)
}

func (s *testServer) adminToken(t *testing.T) string {
	t.Helper()
	status, body := s.do(t, "POST", "/auth/admins/login", "", map[string]any{
		"email":    adminEmail,
		"password": adminPassword,
	})
	require.Equal(t, fiber.StatusOK, status, body)
	return body["data"].(map[string]any)["auth"].(map[string]any)["token"].(string)
}

func errorCode(body map[string]any) string {
	envelope, ok := body["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := envelope["code"].(string)
	return code
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, "GET", "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = srv.do(t, "GET", "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["dependencies"].(map[string]any)["store"])
}

func TestRoleUpgradeOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	userToken := srv.registerUser(t, "ana@example.com")

	status, body := srv.do(t, "POST", "/v1/role-upgrade-request", userToken, map[string]any{
		"requested_role": "referral_partner",
		"business_data":  map[string]any{"activityStatus": "active"},
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	created := body["data"].(map[string]any)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "customer", created["current_role"])

	status, body = srv.do(t, "POST", "/v1/role-upgrade-request", userToken, map[string]any{
		"requested_role": "referral_partner",
	})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "DUPLICATE_REQUEST", errorCode(body))

	adminToken := srv.adminToken(t)
	status, body = srv.do(t, "GET", "/admin/role-upgrade-requests?status=pending", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	require.Len(t, body["data"], 1)

	status, body = srv.do(t, "PUT", "/admin/role-upgrade-requests/"+created["id"].(string)+"/review", adminToken, map[string]any{
		"action":      "approve",
		"admin_notes": "welcome",
	})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "approved", body["data"].(map[string]any)["status"])

	status, body = srv.do(t, "PUT", "/admin/role-upgrade-requests/"+created["id"].(string)+"/review", adminToken, map[string]any{
		"action": "reject",
	})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE", errorCode(body))

	status, body = srv.do(t, "GET", "/v1/me/roles", userToken, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	primary := body["data"].(map[string]any)["primary_role"].(map[string]any)
	assert.Equal(t, "referral_partner", primary["name"])

	status, body = srv.do(t, "GET", "/v1/role-upgrade-request", userToken, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "referral_partner", body["data"].(map[string]any)["current_role"])
}

func TestReviewUnknownRequest(t *testing.T) {
	srv := newTestServer(t)
	adminToken := srv.adminToken(t)

	status, body := srv.do(t, "PUT", "/admin/role-upgrade-requests/missing/review", adminToken, map[string]any{"action": "approve"})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestAdminRoutesAreGuarded(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, "GET", "/admin/onboarding-applications", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	userToken := srv.registerUser(t, "bob@example.com")
	status, body = srv.do(t, "GET", "/admin/onboarding-applications", userToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	adminToken := srv.adminToken(t)
	status, _ = srv.do(t, "GET", "/v1/me/roles", adminToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestAdminReadsUserRolesWithViewLevel(t *testing.T) {
	srv := newTestServer(t)
	userToken := srv.registerUser(t, "dana@example.com")

	status, body := srv.do(t, "GET", "/v1/me/roles", userToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	userID := body["data"].(map[string]any)["user_id"].(string)

	status, body = srv.do(t, "GET", "/admin/users/"+userID+"/roles", srv.adminToken(t), nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, userID, body["data"].(map[string]any)["user_id"])
}

func TestPhoneOnlyUserCanLogIn(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, "POST", "/auth/users/register", "", map[string]any{
		"name":     "Dev",
		"phone":    "+919812345678",
		"password": "password123",
	})
	require.Equal(t, fiber.StatusCreated, status, body)

	status, body = srv.do(t, "POST", "/auth/users/login", "", map[string]any{
		"phone":    "+919812345678",
		"password": "password123",
	})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.NotEmpty(t, body["data"].(map[string]any)["auth"].(map[string]any)["token"])

	status, body = srv.do(t, "POST", "/auth/users/login", "", map[string]any{"password": "password123"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))
}

func TestLeadRoutesRequireCapability(t *testing.T) {
	srv := newTestServer(t)
	userToken := srv.registerUser(t, "lee@example.com")
	lead := map[string]any{
		"product_type": "unlisted_shares",
		"lead_type":    "cold",
		"name":         "Prospect",
		"phone":        "+919800000000",
	}

	status, body := srv.do(t, "POST", "/v1/leads", userToken, lead)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", errorCode(body))

	status, body = srv.do(t, "POST", "/v1/role-upgrade-request", userToken, map[string]any{
		"requested_role": "referral_partner",
		"business_data":  map[string]any{"activityStatus": "active"},
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	requestID := body["data"].(map[string]any)["id"].(string)
	status, body = srv.do(t, "PUT", "/admin/role-upgrade-requests/"+requestID+"/review", srv.adminToken(t), map[string]any{"action": "approve"})
	require.Equal(t, fiber.StatusOK, status, body)

	// cold leads need consent
	status, body = srv.do(t, "POST", "/v1/leads", userToken, lead)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_REQUEST", errorCode(body))

	lead["consent_confirmed"] = true
	status, body = srv.do(t, "POST", "/v1/leads", userToken, lead)
	require.Equal(t, fiber.StatusCreated, status, body)
	created := body["data"].(map[string]any)
	assert.Equal(t, "new", created["status"])
	assert.Equal(t, "Up to 25% payout", created["expected_payout"])

	status, body = srv.do(t, "GET", "/v1/leads", userToken, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Len(t, body["data"], 1)

	otherToken := srv.registerUser(t, "other@example.com")
	status, _ = srv.do(t, "GET", "/v1/leads/"+created["id"].(string), otherToken, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, body = srv.do(t, "GET", "/v1/leads/"+created["id"].(string), userToken, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, created["id"], body["data"].(map[string]any)["id"])
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, "POST", "/auth/users/register", "", map[string]any{"name": "Ana"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(body))

	fields := body["error"].(map[string]any)["details"].(map[string]any)["fields"].(map[string]any)
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "email")
}

func TestOnboardingOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	userToken := srv.registerUser(t, "cara@example.com")

	status, body := srv.do(t, "POST", "/v1/onboarding", userToken, map[string]any{
		"requested_role_id": srv.roles["partner"].ID,
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	appID := body["data"].(map[string]any)["id"].(string)

	status, body = srv.do(t, "POST", "/v1/onboarding/steps/2", userToken, map[string]any{"step_data": map[string]any{}})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "OUT_OF_ORDER_STEP", errorCode(body))

	status, body = srv.do(t, "POST", "/v1/onboarding/steps/1", userToken, map[string]any{
		"step_data": map[string]any{"fullName": "Cara Doe"},
	})
	require.Equal(t, fiber.StatusOK, status, body)

	status, body = srv.do(t, "POST", "/v1/onboarding/submit", userToken, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	submitted := body["data"].(map[string]any)
	assert.Equal(t, "pending", submitted["status"])
	assert.NotContains(t, submitted, "approval_token")

	app, err := srv.store.Onboarding().GetByID(context.Background(), appID)
	require.NoError(t, err)
	require.NotNil(t, app.ApprovalToken)

	status, body = srv.do(t, "GET", "/v1/onboarding/verify?token="+*app.ApprovalToken, "", nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, true, body["data"].(map[string]any)["email_verified"])

	status, _ = srv.do(t, "GET", "/v1/onboarding/verify?token="+*app.ApprovalToken, "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	adminToken := srv.adminToken(t)
	status, body = srv.do(t, "GET", "/admin/onboarding-applications/stats", adminToken, nil)
	require.Equal(t, fiber.StatusOK, status, body)
	assert.EqualValues(t, 1, body["data"].(map[string]any)["counts"].(map[string]any)["pending"])

	status, body = srv.do(t, "POST", "/admin/onboarding-applications/bulk-review", adminToken, map[string]any{
		"ids":    []string{appID},
		"action": "approve",
	})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.EqualValues(t, 1, body["meta"].(map[string]any)["updated"])
}

func TestFranchiseAdministration(t *testing.T) {
	srv := newTestServer(t)
	adminToken := srv.adminToken(t)

	status, body := srv.do(t, "POST", "/admin/franchises", adminToken, map[string]any{"name": "North", "subdomain": "North"})
	require.Equal(t, fiber.StatusCreated, status, body)
	franchise := body["data"].(map[string]any)
	assert.Equal(t, "north", franchise["subdomain"])
	assert.Equal(t, "pending", franchise["status"])

	status, body = srv.do(t, "POST", "/admin/franchises", adminToken, map[string]any{"name": "North", "subdomain": "other"})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(body))

	status, body = srv.do(t, "PATCH", "/admin/franchises/"+franchise["id"].(string)+"/status", adminToken, map[string]any{"status": "active"})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, "active", body["data"].(map[string]any)["status"])

	status, body = srv.do(t, "POST", "/admin/roles", adminToken, map[string]any{
		"name":         "desk_manager",
		"permissions":  []string{"leads.manage"},
		"franchise_id": franchise["id"],
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, "full", body["data"].(map[string]any)["permissions"].(map[string]any)["leads.manage"])
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	srv := newTestServer(t)

	status, body := srv.do(t, "GET", "/nope", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))
}

func TestAuthRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	srv := newTestServer(t, func(cfg *RouteConfig) {
		cfg.AuthLimiter = ratelimit.Middleware(ratelimit.NewLimiter(client, "auth", 2, time.Minute), ratelimit.MiddlewareConfig{})
	})

	login := map[string]any{"email": "nobody@example.com", "password": "wrong-password"}
	for i := 0; i < 2; i++ {
		status, _ := srv.do(t, "POST", "/auth/users/login", "", login)
		assert.Equal(t, fiber.StatusUnauthorized, status)
	}
	status, body := srv.do(t, "POST", "/auth/users/login", "", login)
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", errorCode(body))

	status, _ = srv.do(t, "GET", "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
}
