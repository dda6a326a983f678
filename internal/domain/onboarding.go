package domain

import (
	"sort"
	"time"
)

// OnboardingStatus enumerates application states.
type OnboardingStatus string

const (
	OnboardingDraft    OnboardingStatus = "draft"
	OnboardingPending  OnboardingStatus = "pending"
	OnboardingApproved OnboardingStatus = "approved"
	OnboardingRejected OnboardingStatus = "rejected"
)

// AllOnboardingStatuses lists every status, in lifecycle order.
var AllOnboardingStatuses = []OnboardingStatus{
	OnboardingDraft, OnboardingPending, OnboardingApproved, OnboardingRejected,
}

// OnboardingApplication is a multi-step application for a ladder role.
type OnboardingApplication struct {
	ID              string
	UserID          string
	RequestedRoleID string
	FranchiseID     *string
	CurrentStep     int
	CompletedSteps  []int
	FormData        map[string]any
	Documents       map[string]any
	Status          OnboardingStatus
	ReviewedBy      *string
	ReviewedAt      *time.Time
	ReviewNotes     *string
	ApprovalToken   *string
	SubmittedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsOpen reports whether the application still blocks other role changes.
func (a *OnboardingApplication) IsOpen() bool {
	return a.Status == OnboardingDraft || a.Status == OnboardingPending
}

// HasCompleted reports whether step is in the completed set.
func (a *OnboardingApplication) HasCompleted(step int) bool {
	for _, s := range a.CompletedSteps {
		if s == step {
			return true
		}
	}
	return false
}

// CompleteStep records step, merges its data and advances the cursor.
func (a *OnboardingApplication) CompleteStep(step int, stepData, documents map[string]any) {
	a.CompletedSteps = append(a.CompletedSteps, step)
	sort.Ints(a.CompletedSteps)
	if a.FormData == nil {
		a.FormData = map[string]any{}
	}
	for k, v := range stepData {
		a.FormData[k] = v
	}
	if len(documents) > 0 {
		if a.Documents == nil {
			a.Documents = map[string]any{}
		}
		for k, v := range documents {
			a.Documents[k] = v
		}
	}
	a.CurrentStep = step + 1
}

// MissingSteps returns the required steps not yet completed, ascending.
func (a *OnboardingApplication) MissingSteps(required []int) []int {
	missing := []int{}
	for _, step := range required {
		if !a.HasCompleted(step) {
			missing = append(missing, step)
		}
	}
	sort.Ints(missing)
	return missing
}

// OnboardingStats counts applications per status.
type OnboardingStats struct {
	Counts map[OnboardingStatus]int
	Total  int
}
