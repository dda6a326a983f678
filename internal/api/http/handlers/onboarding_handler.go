package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/richharbor/access-service/internal/api/dto"
	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/service"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

// OnboardingHandler serves the onboarding application workflow.
type OnboardingHandler struct {
	onboarding *service.OnboardingService
}

// NewOnboardingHandler constructs handler.
func NewOnboardingHandler(onboarding *service.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{onboarding: onboarding}
}

// Start handles POST /v1/onboarding.
func (h *OnboardingHandler) Start(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.StartOnboardingRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	app, err := h.onboarding.Start(c.UserContext(), userID, req.RequestedRoleID, req.FranchiseID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": onboardingResponse(app)})
}

// Latest handles GET /v1/onboarding.
func (h *OnboardingHandler) Latest(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	app, err := h.onboarding.Latest(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": onboardingResponse(app)})
}

// Step handles POST /v1/onboarding/steps/:step against the caller's latest
// application.
func (h *OnboardingHandler) Step(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	step, err := strconv.Atoi(c.Params("step"))
	if err != nil || step < 1 {
		return apperrors.NewInvalidRequest("step must be a positive integer", map[string]any{"step": c.Params("step")})
	}
	var req dto.OnboardingStepRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	latest, err := h.onboarding.Latest(ctx, userID)
	if err != nil {
		return err
	}
	app, err := h.onboarding.AdvanceStep(ctx, latest.ID, userID, step, req.StepData, req.Documents)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": onboardingResponse(app)})
}

// Submit handles POST /v1/onboarding/submit.
func (h *OnboardingHandler) Submit(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	latest, err := h.onboarding.Latest(ctx, userID)
	if err != nil {
		return err
	}
	app, err := h.onboarding.Submit(ctx, latest.ID, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": onboardingResponse(app)})
}

// Verify handles GET /v1/onboarding/verify?token=. It is reachable without a
// bearer token since the link is delivered by email.
func (h *OnboardingHandler) Verify(c *fiber.Ctx) error {
	user, err := h.onboarding.ConsumeApprovalToken(c.UserContext(), c.Query("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"user_id":        user.ID,
		"email_verified": user.EmailVerified,
	}})
}

// List handles GET /admin/onboarding-applications.
func (h *OnboardingHandler) List(c *fiber.Ctx) error {
	status, err := parseOnboardingStatus(c)
	if err != nil {
		return err
	}
	limit, offset, page := pagination(c)

	list, total, err := h.onboarding.List(c.UserContext(), status, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": onboardingList(list),
		"meta": dto.PageMeta{Page: page, PageSize: limit, Total: total},
	})
}

// Stats handles GET /admin/onboarding-applications/stats.
func (h *OnboardingHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.onboarding.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.OnboardingStatsResponse{Counts: stats.Counts, Total: stats.Total}})
}

// Get handles GET /admin/onboarding-applications/:id.
func (h *OnboardingHandler) Get(c *fiber.Ctx) error {
	app, err := h.onboarding.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": onboardingResponse(app)})
}

// Review handles PUT /admin/onboarding-applications/:id/review.
func (h *OnboardingHandler) Review(c *fiber.Ctx) error {
	adminID, err := currentAdminID(c)
	if err != nil {
		return err
	}
	var req dto.OnboardingReviewRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	app, err := h.onboarding.Review(c.UserContext(), c.Params("id"), req.Action, adminID, req.ReviewNotes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": onboardingResponse(app)})
}

// BulkReview handles POST /admin/onboarding-applications/bulk-review.
func (h *OnboardingHandler) BulkReview(c *fiber.Ctx) error {
	adminID, err := currentAdminID(c)
	if err != nil {
		return err
	}
	var req dto.OnboardingBulkReviewRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	reviewed, err := h.onboarding.BulkReview(c.UserContext(), req.IDs, req.Action, adminID, req.ReviewNotes)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": onboardingList(reviewed),
		"meta": fiber.Map{"updated": len(reviewed)},
	})
}

func parseOnboardingStatus(c *fiber.Ctx) (*domain.OnboardingStatus, error) {
	raw := optionalQuery(c, "status")
	if raw == nil {
		return nil, nil
	}
	for _, status := range domain.AllOnboardingStatuses {
		if string(status) == *raw {
			return &status, nil
		}
	}
	return nil, apperrors.NewInvalidRequest("unknown status filter", map[string]any{"status": *raw})
}
