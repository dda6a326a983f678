package dto

import (
	"time"

	"github.com/richharbor/access-service/internal/domain"
)

// RoleUpgradeRequest payload for POST /v1/role-upgrade-request.
type RoleUpgradeRequest struct {
	CurrentRole   string         `json:"current_role" validate:"omitempty,max=32"`
	RequestedRole string         `json:"requested_role" validate:"required,max=32"`
	BusinessData  map[string]any `json:"business_data"`
	Reason        *string        `json:"reason" validate:"omitempty,max=1000"`
}

// RoleUpgradeReviewRequest payload for the admin review endpoint.
type RoleUpgradeReviewRequest struct {
	Action     string  `json:"action" validate:"required"`
	AdminNotes *string `json:"admin_notes" validate:"omitempty,max=2000"`
}

// RoleUpgradeResponse represents a role upgrade request.
type RoleUpgradeResponse struct {
	ID            string               `json:"id"`
	UserID        string               `json:"user_id"`
	CurrentRole   domain.PrimaryRole   `json:"current_role"`
	RequestedRole domain.PrimaryRole   `json:"requested_role"`
	Status        domain.UpgradeStatus `json:"status"`
	BusinessData  map[string]any       `json:"business_data"`
	Reason        *string              `json:"reason"`
	ReviewedBy    *string              `json:"reviewed_by"`
	ReviewedAt    *time.Time           `json:"reviewed_at"`
	AdminNotes    *string              `json:"admin_notes"`
	FranchiseID   *string              `json:"franchise_id"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// RoleUpgradeStatusResponse answers GET /v1/role-upgrade-request.
type RoleUpgradeStatusResponse struct {
	CurrentRole    domain.PrimaryRole   `json:"current_role"`
	Latest         *RoleUpgradeResponse `json:"latest"`
	CanRequest     bool                 `json:"can_request"`
	CooldownEndsAt *time.Time           `json:"cooldown_ends_at"`
}

// StartOnboardingRequest payload for POST /v1/onboarding.
type StartOnboardingRequest struct {
	RequestedRoleID string  `json:"requested_role_id" validate:"required,uuid"`
	FranchiseID     *string `json:"franchise_id" validate:"omitempty,uuid"`
}

// OnboardingStepRequest payload for POST /v1/onboarding/steps/:step.
type OnboardingStepRequest struct {
	StepData  map[string]any `json:"step_data"`
	Documents map[string]any `json:"documents"`
}

// OnboardingReviewRequest payload for the admin review endpoint.
type OnboardingReviewRequest struct {
	Action      string  `json:"action" validate:"required"`
	ReviewNotes *string `json:"review_notes" validate:"omitempty,max=2000"`
}

// OnboardingBulkReviewRequest payload for bulk review.
type OnboardingBulkReviewRequest struct {
	IDs         []string `json:"ids" validate:"required,min=1,max=100,dive,required"`
	Action      string   `json:"action" validate:"required"`
	ReviewNotes *string  `json:"review_notes" validate:"omitempty,max=2000"`
}

// OnboardingResponse represents an application. The approval token is never
// exposed.
type OnboardingResponse struct {
	ID              string                  `json:"id"`
	UserID          string                  `json:"user_id"`
	RequestedRoleID string                  `json:"requested_role_id"`
	FranchiseID     *string                 `json:"franchise_id"`
	CurrentStep     int                     `json:"current_step"`
	CompletedSteps  []int                   `json:"completed_steps"`
	FormData        map[string]any          `json:"form_data"`
	Documents       map[string]any          `json:"documents"`
	Status          domain.OnboardingStatus `json:"status"`
	ReviewedBy      *string                 `json:"reviewed_by"`
	ReviewedAt      *time.Time              `json:"reviewed_at"`
	ReviewNotes     *string                 `json:"review_notes"`
	SubmittedAt     *time.Time              `json:"submitted_at"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// OnboardingStatsResponse counts applications per status.
type OnboardingStatsResponse struct {
	Counts map[domain.OnboardingStatus]int `json:"counts"`
	Total  int                             `json:"total"`
}

// PageMeta describes a paginated listing.
type PageMeta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// CreateLeadRequest payload for POST /v1/leads.
type CreateLeadRequest struct {
	ProductType       string         `json:"product_type" validate:"required,max=64"`
	LeadType          string         `json:"lead_type" validate:"required,oneof=self partner referral cold"`
	Name              string         `json:"name" validate:"required,max=120"`
	Email             *string        `json:"email" validate:"omitempty,email"`
	Phone             *string        `json:"phone" validate:"omitempty,min=6,max=20"`
	City              *string        `json:"city" validate:"omitempty,max=120"`
	Requirement       *string        `json:"requirement" validate:"omitempty,max=2000"`
	ProductDetails    map[string]any `json:"product_details"`
	ConsentConfirmed  bool           `json:"consent_confirmed"`
	ConvertToReferral bool           `json:"convert_to_referral"`
}

// LeadResponse represents a lead to its owner.
type LeadResponse struct {
	ID                string          `json:"id"`
	FranchiseID       *string         `json:"franchise_id"`
	ProductType       string          `json:"product_type"`
	LeadType          domain.LeadType `json:"lead_type"`
	Status            string          `json:"status"`
	IncentiveType     string          `json:"incentive_type"`
	IncentiveStatus   string          `json:"incentive_status"`
	ExpectedPayout    *string         `json:"expected_payout"`
	Name              string          `json:"name"`
	Email             *string         `json:"email"`
	Phone             *string         `json:"phone"`
	City              *string         `json:"city"`
	Requirement       *string         `json:"requirement"`
	ProductDetails    map[string]any  `json:"product_details"`
	ConsentConfirmed  bool            `json:"consent_confirmed"`
	ConvertToReferral bool            `json:"convert_to_referral"`
	CreatedAt         time.Time       `json:"created_at"`
}
