package service

import (
	"context"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

// RoleResolver computes a user's effective roles and permissions. It is the
// only place capability checks are answered.
type RoleResolver struct {
	repos repository.Repositories
}

// NewRoleResolver builds the resolver.
func NewRoleResolver(repos repository.Repositories) *RoleResolver {
	return &RoleResolver{repos: repos}
}

// ResolveRoles returns the active roles of userID in the franchise scope
// (nil = global). Roles assigned globally apply in every scope.
func (r *RoleResolver) ResolveRoles(ctx context.Context, userID string, franchiseID *string) (*domain.ResolvedRoles, error) {
	return resolveRoles(ctx, r.repos, userID, franchiseID)
}

// HasCapability reports whether the user holds capability at min level or
// above in the scope.
func (r *RoleResolver) HasCapability(ctx context.Context, userID string, franchiseID *string, capability string, min domain.PermissionLevel) (bool, error) {
	resolved, err := r.ResolveRoles(ctx, userID, franchiseID)
	if err != nil {
		return false, err
	}
	return resolved.Permissions.Allows(capability, min), nil
}

func resolveRoles(ctx context.Context, repos repository.Repositories, userID string, franchiseID *string) (*domain.ResolvedRoles, error) {
	user, err := repos.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user", map[string]any{"user_id": userID})
	}
	if !user.IsActive {
		return nil, apperrors.NewInvalidState("user is inactive", map[string]any{"user_id": userID})
	}

	assignments, err := repos.UserRoles().ListActiveAssignments(ctx, userID, franchiseID)
	if err != nil {
		return nil, storeError(err, "user role", nil)
	}

	resolved := &domain.ResolvedRoles{
		UserID:      userID,
		FranchiseID: franchiseID,
		ActiveRoles: []domain.ActiveRole{},
		Permissions: domain.Permissions{},
	}
	// assignments arrive newest first
	for _, a := range assignments {
		if !a.Role.IsActive {
			continue
		}
		active := domain.ActiveRole{
			UserRoleID:  a.ID,
			RoleID:      a.RoleID,
			Name:        a.Role.Name,
			FranchiseID: a.FranchiseID,
			IsPrimary:   a.IsPrimary,
			AssignedAt:  a.AssignedAt,
		}
		resolved.ActiveRoles = append(resolved.ActiveRoles, active)
		resolved.Permissions.Merge(a.Role.Permissions)
		if a.IsPrimary && resolved.PrimaryRole == nil {
			primary := active
			resolved.PrimaryRole = &primary
		}
	}
	return resolved, nil
}
