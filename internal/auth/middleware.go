package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	SubjectType domain.SubjectType
	FranchiseID *string
	User        *domain.User
	Admin       *domain.Admin
	// AdminPermissions is loaded from the admin's role.
	AdminPermissions domain.Permissions
}

// SubjectID returns the id of whichever subject is set.
func (p *Principal) SubjectID() string {
	switch {
	case p.User != nil:
		return p.User.ID
	case p.Admin != nil:
		return p.Admin.ID
	}
	return ""
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens *TokenManager
	repos  repository.Repositories
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, repos repository.Repositories) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, repos: repos}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	ctx := c.UserContext()
	principal := &Principal{SubjectType: claims.Subject, FranchiseID: claims.FranchiseID}

	switch claims.Subject {
	case domain.SubjectTypeUser:
		user, err := m.repos.Users().GetByID(ctx, claims.SubjectID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewUnauthorized("user not found")
			}
			return apperrors.MapError(err)
		}
		if !user.IsActive {
			return apperrors.NewUnauthorized("user is inactive")
		}
		principal.User = user
	case domain.SubjectTypeAdmin:
		admin, err := m.repos.Admins().GetByID(ctx, claims.SubjectID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewUnauthorized("admin not found")
			}
			return apperrors.MapError(err)
		}
		if !admin.IsActive {
			return apperrors.NewUnauthorized("admin is inactive")
		}
		principal.Admin = admin
		principal.AdminPermissions = domain.Permissions{}
		if admin.RoleID != nil {
			role, err := m.repos.Admins().GetRole(ctx, *admin.RoleID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return apperrors.MapError(err)
			}
			if role != nil {
				principal.AdminPermissions = role.Permissions
			}
		}
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
