package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/richharbor/access-service/internal/api/dto"
	"github.com/richharbor/access-service/internal/service"
)

// UsersHandler exposes auth and role endpoints for end-users.
type UsersHandler struct {
	auth     *service.AuthService
	resolver *service.RoleResolver
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, resolver *service.RoleResolver) *UsersHandler {
	return &UsersHandler{auth: authService, resolver: resolver}
}

// Register handles POST /auth/users/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.RegisterUser(c.UserContext(), service.RegisterInput{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Password:    req.Password,
		FranchiseID: req.FranchiseID,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(user),
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Login handles POST /auth/users/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.LoginUser(c.UserContext(), service.LoginInput{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": userResponse(user),
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// MyRoles handles GET /v1/me/roles. The scope defaults to the token's franchise.
func (h *UsersHandler) MyRoles(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	scope := principal.FranchiseID
	if q := optionalQuery(c, "franchise_id"); q != nil {
		scope = q
	}

	resolved, err := h.resolver.ResolveRoles(c.UserContext(), userID, scope)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": resolvedRolesResponse(resolved)})
}

// UserRoles handles GET /admin/users/:id/roles.
func (h *UsersHandler) UserRoles(c *fiber.Ctx) error {
	resolved, err := h.resolver.ResolveRoles(c.UserContext(), c.Params("id"), optionalQuery(c, "franchise_id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": resolvedRolesResponse(resolved)})
}
