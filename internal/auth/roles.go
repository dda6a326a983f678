package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/richharbor/access-service/internal/domain"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

// CapabilityChecker answers capability questions for users.
type CapabilityChecker interface {
	HasCapability(ctx context.Context, userID string, franchiseID *string, capability string, min domain.PermissionLevel) (bool, error)
}

// RequireUser ensures a platform user is authenticated.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeUser || principal.User == nil {
			return apperrors.NewForbidden("user required")
		}
		return c.Next()
	}
}

// RequireAdminPermission ensures the admin's role grants every listed
// capability: read for safe methods, write otherwise.
func RequireAdminPermission(capabilities ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeAdmin || principal.Admin == nil {
			return apperrors.NewForbidden("admin required")
		}
		level := domain.LevelWrite
		if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead {
			level = domain.LevelRead
		}
		for _, capability := range capabilities {
			if !principal.AdminPermissions.Allows(capability, level) {
				return apperrors.NewForbidden("missing permission " + capability)
			}
		}
		return c.Next()
	}
}

// RequireCapability checks a user capability through role resolution in the
// franchise scope carried by the token.
func RequireCapability(checker CapabilityChecker, capability string, level domain.PermissionLevel) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil {
			return apperrors.NewForbidden("user required")
		}
		allowed, err := checker.HasCapability(c.UserContext(), principal.User.ID, principal.FranchiseID, capability, level)
		if err != nil {
			return err
		}
		if !allowed {
			return apperrors.NewForbidden("missing capability " + capability)
		}
		return c.Next()
	}
}
