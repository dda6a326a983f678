package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/richharbor/access-service/internal/api/dto"
	"github.com/richharbor/access-service/internal/service"
)

// AdminsHandler exposes admin authentication.
type AdminsHandler struct {
	auth *service.AuthService
}

// NewAdminsHandler constructs handler.
func NewAdminsHandler(authService *service.AuthService) *AdminsHandler {
	return &AdminsHandler{auth: authService}
}

// Login handles POST /auth/admins/login.
func (h *AdminsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	admin, token, exp, err := h.auth.LoginAdmin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"admin": adminResponse(admin),
			"auth":  dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}
