package domain

// SubjectType differentiates user vs admin tokens.
type SubjectType string

const (
	SubjectTypeUser  SubjectType = "USER"
	SubjectTypeAdmin SubjectType = "ADMIN"
)

// Admin capabilities gating the review API.
const (
	CapabilityReviewRoleUpgrades = "role_upgrades.review"
	CapabilityReviewOnboarding   = "onboarding.review"
	CapabilityManageFranchises   = "franchises.manage"
	CapabilityManageRoles        = "roles.manage"
	CapabilityViewUsers          = "users.view"
)
