package domain

import (
	"strings"
	"time"
)

// UpgradeStatus enumerates role upgrade request states.
type UpgradeStatus string

const (
	UpgradeStatusPending  UpgradeStatus = "pending"
	UpgradeStatusApproved UpgradeStatus = "approved"
	UpgradeStatusRejected UpgradeStatus = "rejected"
)

// ReviewAction is an admin decision.
type ReviewAction string

const (
	ReviewApprove ReviewAction = "approve"
	ReviewReject  ReviewAction = "reject"
)

// ParseReviewAction normalizes an action string. ok is false for anything
// other than approve or reject.
func ParseReviewAction(raw string) (ReviewAction, bool) {
	switch ReviewAction(strings.ToLower(strings.TrimSpace(raw))) {
	case ReviewApprove:
		return ReviewApprove, true
	case ReviewReject:
		return ReviewReject, true
	}
	return "", false
}

// RoleUpgradeRequest asks for a change of primary role. Terminal states are final.
type RoleUpgradeRequest struct {
	ID                   string
	UserID               string
	CurrentRole          PrimaryRole
	RequestedRole        PrimaryRole
	Status               UpgradeStatus
	BusinessData         map[string]any
	Reason               *string
	ReviewedBy           *string
	ReviewedAt           *time.Time
	AdminNotes           *string
	LastUpgradeRequestAt time.Time
	FranchiseID          *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsPending reports whether the request awaits review.
func (r *RoleUpgradeRequest) IsPending() bool {
	return r.Status == UpgradeStatusPending
}
