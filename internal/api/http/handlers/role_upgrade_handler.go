package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/richharbor/access-service/internal/api/dto"
	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/service"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

// RoleUpgradeHandler serves the role upgrade workflow to users and reviewers.
type RoleUpgradeHandler struct {
	upgrades *service.RoleUpgradeService
}

// NewRoleUpgradeHandler constructs handler.
func NewRoleUpgradeHandler(upgrades *service.RoleUpgradeService) *RoleUpgradeHandler {
	return &RoleUpgradeHandler{upgrades: upgrades}
}

// Submit handles POST /v1/role-upgrade-request.
func (h *RoleUpgradeHandler) Submit(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.RoleUpgradeRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	created, err := h.upgrades.Submit(c.UserContext(), userID, service.RoleUpgradeInput{
		CurrentRole:   domain.PrimaryRole(req.CurrentRole),
		RequestedRole: domain.PrimaryRole(req.RequestedRole),
		BusinessData:  req.BusinessData,
		Reason:        req.Reason,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": roleUpgradeResponse(created)})
}

// Status handles GET /v1/role-upgrade-request.
func (h *RoleUpgradeHandler) Status(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	status, err := h.upgrades.Status(c.UserContext(), userID)
	if err != nil {
		return err
	}

	resp := dto.RoleUpgradeStatusResponse{
		CurrentRole:    status.CurrentRole,
		CanRequest:     status.CanRequest,
		CooldownEndsAt: status.CooldownEndsAt,
	}
	if status.Latest != nil {
		latest := roleUpgradeResponse(status.Latest)
		resp.Latest = &latest
	}
	return c.JSON(fiber.Map{"data": resp})
}

// List handles GET /admin/role-upgrade-requests.
func (h *RoleUpgradeHandler) List(c *fiber.Ctx) error {
	status, err := parseUpgradeStatus(c)
	if err != nil {
		return err
	}
	limit, offset, page := pagination(c)

	list, err := h.upgrades.List(c.UserContext(), status, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": roleUpgradeList(list),
		"meta": fiber.Map{"page": page, "page_size": limit},
	})
}

// Get handles GET /admin/role-upgrade-requests/:id.
func (h *RoleUpgradeHandler) Get(c *fiber.Ctx) error {
	req, err := h.upgrades.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": roleUpgradeResponse(req)})
}

// Review handles PUT /admin/role-upgrade-requests/:id/review.
func (h *RoleUpgradeHandler) Review(c *fiber.Ctx) error {
	adminID, err := currentAdminID(c)
	if err != nil {
		return err
	}
	var req dto.RoleUpgradeReviewRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	reviewed, err := h.upgrades.Review(c.UserContext(), c.Params("id"), req.Action, adminID, req.AdminNotes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": roleUpgradeResponse(reviewed)})
}

func parseUpgradeStatus(c *fiber.Ctx) (*domain.UpgradeStatus, error) {
	raw := optionalQuery(c, "status")
	if raw == nil {
		return nil, nil
	}
	status := domain.UpgradeStatus(*raw)
	switch status {
	case domain.UpgradeStatusPending, domain.UpgradeStatusApproved, domain.UpgradeStatusRejected:
		return &status, nil
	}
	return nil, apperrors.NewInvalidRequest("unknown status filter", map[string]any{"status": *raw})
}
