package events

import (
	"time"

	"github.com/richharbor/access-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRoleUpgradeSubmitted  EventType = "role_upgrade.submitted"
	EventRoleUpgradeApproved   EventType = "role_upgrade.approved"
	EventRoleUpgradeRejected   EventType = "role_upgrade.rejected"
	EventOnboardingSubmitted   EventType = "onboarding.submitted"
	EventOnboardingApproved    EventType = "onboarding.approved"
	EventOnboardingRejected    EventType = "onboarding.rejected"
	EventOnboardingTokenIssued EventType = "onboarding.token_issued"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	UserID  *string            `json:"user_id,omitempty"`
	AdminID *string            `json:"admin_id,omitempty"`
}

// UserActor builds an actor for a user.
func UserActor(userID string) Actor {
	return Actor{Type: domain.SubjectTypeUser, UserID: &userID}
}

// AdminActor builds an actor for an admin reviewer.
func AdminActor(adminID string) Actor {
	return Actor{Type: domain.SubjectTypeAdmin, AdminID: &adminID}
}

// Event represents a domain event emitted after a committed workflow change.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID string    `json:"subject_id"`
	UserID    string    `json:"user_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// RoleUpgradePayload describes an upgrade request change.
type RoleUpgradePayload struct {
	CurrentRole   domain.PrimaryRole   `json:"current_role"`
	RequestedRole domain.PrimaryRole   `json:"requested_role"`
	Status        domain.UpgradeStatus `json:"status"`
	AdminNotes    *string              `json:"admin_notes,omitempty"`
}

// OnboardingPayload describes an onboarding application change.
type OnboardingPayload struct {
	RequestedRoleID string                  `json:"requested_role_id"`
	RoleName        string                  `json:"role_name"`
	Status          domain.OnboardingStatus `json:"status"`
	ReviewNotes     *string                 `json:"review_notes,omitempty"`
}

// TokenIssuedPayload carries the one-time approval token to the notifier.
type TokenIssuedPayload struct {
	Token string `json:"-"`
}
