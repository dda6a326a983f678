package domain

import "time"

// Admin is a platform reviewer.
type Admin struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	RoleID       *string
	IsActive     bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AdminRole carries the permission map that gates admin endpoints.
type AdminRole struct {
	ID          string
	Name        string
	Description string
	Permissions Permissions
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
