package dto

import (
	"time"

	"github.com/richharbor/access-service/internal/domain"
)

// UserResponse is the public view of a user.
type UserResponse struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Email              *string            `json:"email"`
	Phone              *string            `json:"phone"`
	PrimaryRole        domain.PrimaryRole `json:"primary_role"`
	FranchiseID        *string            `json:"franchise_id"`
	IsActive           bool               `json:"is_active"`
	KYCStatus          domain.KYCStatus   `json:"kyc_status"`
	EmailVerified      bool               `json:"email_verified"`
	WalletBalanceMinor int64              `json:"wallet_balance_minor"`
	CreatedAt          time.Time          `json:"created_at"`
}

// AdminResponse is the public view of an admin.
type AdminResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	RoleID    *string    `json:"role_id"`
	LastLogin *time.Time `json:"last_login"`
}

// ActiveRoleResponse is one contributing role in a resolution.
type ActiveRoleResponse struct {
	UserRoleID  string    `json:"user_role_id"`
	RoleID      string    `json:"role_id"`
	Name        string    `json:"name"`
	FranchiseID *string   `json:"franchise_id"`
	IsPrimary   bool      `json:"is_primary"`
	AssignedAt  time.Time `json:"assigned_at"`
}

// ResolvedRolesResponse is the effective role set of a user.
type ResolvedRolesResponse struct {
	UserID      string               `json:"user_id"`
	FranchiseID *string              `json:"franchise_id"`
	PrimaryRole *ActiveRoleResponse  `json:"primary_role"`
	ActiveRoles []ActiveRoleResponse `json:"active_roles"`
	Permissions domain.Permissions   `json:"permissions"`
}
