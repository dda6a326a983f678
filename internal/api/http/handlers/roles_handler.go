package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/richharbor/access-service/internal/api/dto"
	"github.com/richharbor/access-service/internal/service"
)

// RolesHandler manages role definitions.
type RolesHandler struct {
	roles *service.RoleService
}

// NewRolesHandler constructs handler.
func NewRolesHandler(roles *service.RoleService) *RolesHandler {
	return &RolesHandler{roles: roles}
}

// Create handles POST /admin/roles.
func (h *RolesHandler) Create(c *fiber.Ctx) error {
	adminID, err := currentAdminID(c)
	if err != nil {
		return err
	}
	var req dto.CreateRoleRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	role, err := h.roles.Create(c.UserContext(), service.RoleInput{
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		FranchiseID: req.FranchiseID,
		CreatedBy:   &adminID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": roleResponse(role)})
}

// List handles GET /admin/roles?franchise_id=&include_global=.
func (h *RolesHandler) List(c *fiber.Ctx) error {
	includeGlobal := c.QueryBool("include_global", true)
	list, err := h.roles.List(c.UserContext(), optionalQuery(c, "franchise_id"), includeGlobal)
	if err != nil {
		return err
	}
	out := make([]dto.RoleResponse, 0, len(list))
	for i := range list {
		out = append(out, roleResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// SetActive handles PATCH /admin/roles/:id/status.
func (h *RolesHandler) SetActive(c *fiber.Ctx) error {
	var req dto.RoleStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	role, err := h.roles.SetActive(c.UserContext(), c.Params("id"), *req.IsActive)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": roleResponse(role)})
}
