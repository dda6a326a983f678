package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/richharbor/access-service/internal/api/dto"
	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/service"
)

// FranchiseHandler manages tenants.
type FranchiseHandler struct {
	franchises *service.FranchiseService
}

// NewFranchiseHandler constructs handler.
func NewFranchiseHandler(franchises *service.FranchiseService) *FranchiseHandler {
	return &FranchiseHandler{franchises: franchises}
}

// Create handles POST /admin/franchises.
func (h *FranchiseHandler) Create(c *fiber.Ctx) error {
	adminID, err := currentAdminID(c)
	if err != nil {
		return err
	}
	var req dto.CreateFranchiseRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	franchise, err := h.franchises.Create(c.UserContext(), req.Name, req.Subdomain, &adminID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": franchiseResponse(franchise)})
}

// List handles GET /admin/franchises.
func (h *FranchiseHandler) List(c *fiber.Ctx) error {
	var status *domain.FranchiseStatus
	if raw := optionalQuery(c, "status"); raw != nil {
		s := domain.FranchiseStatus(*raw)
		status = &s
	}
	list, err := h.franchises.List(c.UserContext(), status)
	if err != nil {
		return err
	}
	out := make([]dto.FranchiseResponse, 0, len(list))
	for i := range list {
		out = append(out, franchiseResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /admin/franchises/:id.
func (h *FranchiseHandler) Get(c *fiber.Ctx) error {
	franchise, err := h.franchises.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": franchiseResponse(franchise)})
}

// ChangeStatus handles PATCH /admin/franchises/:id/status.
func (h *FranchiseHandler) ChangeStatus(c *fiber.Ctx) error {
	var req dto.FranchiseStatusRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	franchise, err := h.franchises.ChangeStatus(c.UserContext(), c.Params("id"), domain.FranchiseStatus(req.Status))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": franchiseResponse(franchise)})
}
