package domain

import "time"

// PrimaryRole is the coarse role label stored on a user.
type PrimaryRole string

const (
	RoleCustomer        PrimaryRole = "customer"
	RoleReferralPartner PrimaryRole = "referral_partner"
	RolePartner         PrimaryRole = "partner"
	RoleAdmin           PrimaryRole = "admin"
)

// Valid reports whether r is a known primary role.
func (r PrimaryRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleReferralPartner, RolePartner, RoleAdmin:
		return true
	}
	return false
}

// KYCStatus tracks identity verification.
type KYCStatus string

const (
	KYCPending  KYCStatus = "pending"
	KYCVerified KYCStatus = "verified"
	KYCRejected KYCStatus = "rejected"
)

// User is a platform account. Users are never hard-deleted.
type User struct {
	ID                   string
	Name                 string
	Email                *string
	Phone                *string
	PasswordHash         string
	PrimaryRole          PrimaryRole
	FranchiseID          *string
	IsActive             bool
	KYCStatus            KYCStatus
	WalletBalanceMinor   int64
	EmailVerified        bool
	LastUpgradeRequestAt *time.Time
	ProfileData          map[string]any
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Deactivate clears the active flag.
func (u *User) Deactivate() {
	u.IsActive = false
}

// ContactEmail returns the email or an empty string.
func (u *User) ContactEmail() string {
	if u.Email == nil {
		return ""
	}
	return *u.Email
}

// MergeProfile shallow-merges data into the profile, later keys winning.
func (u *User) MergeProfile(data map[string]any) {
	if len(data) == 0 {
		return
	}
	if u.ProfileData == nil {
		u.ProfileData = make(map[string]any, len(data))
	}
	for k, v := range data {
		u.ProfileData[k] = v
	}
}

// Ladder orders the primary roles a user may request, lowest first.
type Ladder []PrimaryRole

// DefaultLadder is customer < referral_partner < partner. Admin is never requestable.
var DefaultLadder = Ladder{RoleCustomer, RoleReferralPartner, RolePartner}

// Rank returns the position of r, or -1 when r is not on the ladder.
func (l Ladder) Rank(r PrimaryRole) int {
	for i, role := range l {
		if role == r {
			return i
		}
	}
	return -1
}

// IsUpgrade reports whether to sits strictly above from.
func (l Ladder) IsUpgrade(from, to PrimaryRole) bool {
	fromRank, toRank := l.Rank(from), l.Rank(to)
	if fromRank < 0 || toRank < 0 {
		return false
	}
	return toRank > fromRank
}

// Top returns the highest rung.
func (l Ladder) Top() PrimaryRole {
	if len(l) == 0 {
		return ""
	}
	return l[len(l)-1]
}
