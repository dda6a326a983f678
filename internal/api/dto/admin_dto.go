package dto

import (
	"time"

	"github.com/richharbor/access-service/internal/domain"
)

// CreateFranchiseRequest payload.
type CreateFranchiseRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	Subdomain string `json:"subdomain" validate:"required,max=63"`
}

// FranchiseStatusRequest payload.
type FranchiseStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending active suspended"`
}

// FranchiseResponse represents a franchise.
type FranchiseResponse struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Subdomain string                 `json:"subdomain"`
	Status    domain.FranchiseStatus `json:"status"`
	CreatedBy *string                `json:"created_by"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// CreateRoleRequest payload. Permissions accept an array of capability names
// or an object of booleans or level names.
type CreateRoleRequest struct {
	Name        string             `json:"name" validate:"required,max=64"`
	Description string             `json:"description" validate:"max=500"`
	Permissions domain.Permissions `json:"permissions"`
	FranchiseID *string            `json:"franchise_id" validate:"omitempty,uuid"`
}

// RoleStatusRequest payload.
type RoleStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// RoleResponse represents a role.
type RoleResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Permissions domain.Permissions `json:"permissions"`
	IsActive    bool               `json:"is_active"`
	FranchiseID *string            `json:"franchise_id"`
	CreatedBy   *string            `json:"created_by"`
	CreatedAt   time.Time          `json:"created_at"`
}
