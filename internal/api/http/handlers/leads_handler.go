package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/richharbor/access-service/internal/api/dto"
	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/service"
)

// LeadsHandler exposes a user's own leads.
type LeadsHandler struct {
	leads *service.LeadService
}

// NewLeadsHandler constructs handler.
func NewLeadsHandler(leads *service.LeadService) *LeadsHandler {
	return &LeadsHandler{leads: leads}
}

// Create handles POST /v1/leads. The lead is scoped to the token's franchise.
func (h *LeadsHandler) Create(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.CreateLeadRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	lead, err := h.leads.Create(c.UserContext(), userID, principal.FranchiseID, service.LeadInput{
		ProductType:       req.ProductType,
		LeadType:          domain.LeadType(req.LeadType),
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		City:              req.City,
		Requirement:       req.Requirement,
		ProductDetails:    req.ProductDetails,
		ConsentConfirmed:  req.ConsentConfirmed,
		ConvertToReferral: req.ConvertToReferral,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": leadResponse(lead)})
}

// List handles GET /v1/leads.
func (h *LeadsHandler) List(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	limit, offset, _ := pagination(c)
	list, err := h.leads.ListMine(c.UserContext(), userID, limit, offset)
	if err != nil {
		return err
	}
	out := make([]dto.LeadResponse, 0, len(list))
	for i := range list {
		out = append(out, leadResponse(&list[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get handles GET /v1/leads/:id.
func (h *LeadsHandler) Get(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	lead, err := h.leads.GetMine(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": leadResponse(lead)})
}
