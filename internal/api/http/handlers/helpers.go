package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/richharbor/access-service/internal/api/dto"
	"github.com/richharbor/access-service/internal/auth"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// bindJSON parses the body into req and runs its validation tags.
func bindJSON(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewInvalidRequest("invalid payload", nil)
	}
	return dto.Validate(req)
}

func currentPrincipal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

func currentUserID(c *fiber.Ctx) (string, error) {
	principal, err := currentPrincipal(c)
	if err != nil {
		return "", err
	}
	if principal.User == nil {
		return "", apperrors.NewForbidden("user required")
	}
	return principal.User.ID, nil
}

func currentAdminID(c *fiber.Ctx) (string, error) {
	principal, err := currentPrincipal(c)
	if err != nil {
		return "", err
	}
	if principal.Admin == nil {
		return "", apperrors.NewForbidden("admin required")
	}
	return principal.Admin.ID, nil
}

// optionalQuery returns nil for a missing or blank query value.
func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

// pagination reads page/page_size and returns limit, offset and the page.
func pagination(c *fiber.Ctx) (limit, offset, page int) {
	page = parseInt(c.Query("page"), 1)
	if page < 1 {
		page = 1
	}
	limit = parseInt(c.Query("page_size"), defaultPageSize)
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, (page - 1) * limit, page
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}
