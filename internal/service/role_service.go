package service

import (
	"context"
	"strings"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

// RoleService administers roles.
type RoleService struct {
	roles      repository.RoleRepository
	franchises repository.FranchiseRepository
}

// RoleInput describes a new role.
type RoleInput struct {
	Name        string
	Description string
	Permissions domain.Permissions
	FranchiseID *string
	CreatedBy   *string
}

// NewRoleService constructs the service.
func NewRoleService(repos repository.Repositories) *RoleService {
	return &RoleService{roles: repos.Roles(), franchises: repos.Franchises()}
}

// Create adds an active role. Names are unique per franchise scope.
func (s *RoleService) Create(ctx context.Context, input RoleInput) (*domain.Role, error) {
	name := strings.ToLower(strings.TrimSpace(input.Name))
	if name == "" {
		return nil, apperrors.NewInvalidRequest("name is required", nil)
	}
	if input.FranchiseID != nil {
		if _, err := s.franchises.GetByID(ctx, *input.FranchiseID); err != nil {
			return nil, storeError(err, "franchise", map[string]any{"franchise_id": *input.FranchiseID})
		}
	}

	permissions := input.Permissions
	if permissions == nil {
		permissions = domain.Permissions{}
	}
	role := &domain.Role{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Permissions: permissions,
		IsActive:    true,
		FranchiseID: input.FranchiseID,
		CreatedBy:   input.CreatedBy,
	}
	if err := s.roles.Create(ctx, role); err != nil {
		if repository.IsConstraint(err, repository.ConstraintRoleNameScope) {
			return nil, apperrors.NewConflict("role name already exists in scope", map[string]any{"name": name})
		}
		return nil, storeError(err, "role", nil)
	}
	return role, nil
}

// List returns roles of a scope, optionally with the global roles.
func (s *RoleService) List(ctx context.Context, franchiseID *string, includeGlobal bool) ([]domain.Role, error) {
	list, err := s.roles.List(ctx, repository.RoleFilter{FranchiseID: franchiseID, IncludeGlobal: includeGlobal})
	if err != nil {
		return nil, storeError(err, "role", nil)
	}
	return list, nil
}

// SetActive enables or disables a role. Disabled roles stop contributing to
// role resolution and cannot be granted.
func (s *RoleService) SetActive(ctx context.Context, id string, active bool) (*domain.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "role", map[string]any{"role_id": id})
	}
	role.IsActive = active
	if err := s.roles.Update(ctx, role); err != nil {
		return nil, storeError(err, "role", map[string]any{"role_id": id})
	}
	return role, nil
}
