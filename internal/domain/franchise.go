package domain

import "time"

// FranchiseStatus enumerates tenant lifecycle states.
type FranchiseStatus string

const (
	FranchiseStatusPending   FranchiseStatus = "pending"
	FranchiseStatusActive    FranchiseStatus = "active"
	FranchiseStatusSuspended FranchiseStatus = "suspended"
)

// Franchise is a tenant. A nil franchise id on other entities means platform-global.
type Franchise struct {
	ID        string
	Name      string
	Subdomain string
	Status    FranchiseStatus
	CreatedBy *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var franchiseTransitions = map[FranchiseStatus][]FranchiseStatus{
	FranchiseStatusPending:   {FranchiseStatusActive, FranchiseStatusSuspended},
	FranchiseStatusActive:    {FranchiseStatusSuspended},
	FranchiseStatusSuspended: {FranchiseStatusActive},
}

// CanTransition reports whether the franchise may move to next.
func (f *Franchise) CanTransition(next FranchiseStatus) bool {
	for _, allowed := range franchiseTransitions[f.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// SameScope compares two optional franchise ids.
func SameScope(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
