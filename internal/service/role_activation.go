package service

import (
	"context"
	"time"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

type activation struct {
	UserID      string
	Role        *domain.Role
	FranchiseID *string
	AssignedBy  *string
	At          time.Time
}

// activatePrimaryRole makes a.Role the user's only active primary role in the
// target scope. Primary rows in the same scope or the global scope are
// retired (inactive, not primary) before the target row is reactivated or
// created, so the one-active-primary index never sees two rows at once.
func activatePrimaryRole(ctx context.Context, repos repository.Repositories, a activation) (*domain.UserRole, error) {
	rows, err := repos.UserRoles().ListByUser(ctx, a.UserID)
	if err != nil {
		return nil, storeError(err, "user role", nil)
	}

	var target *domain.UserRole
	for i := range rows {
		row := &rows[i]
		isTarget := row.RoleID == a.Role.ID && domain.SameScope(row.FranchiseID, a.FranchiseID)
		if isTarget && target == nil {
			target = row
			continue
		}
		if !row.IsActive || !row.IsPrimary {
			continue
		}
		if row.FranchiseID != nil && !domain.SameScope(row.FranchiseID, a.FranchiseID) {
			continue
		}
		row.IsActive = false
		row.IsPrimary = false
		if err := repos.UserRoles().Update(ctx, row); err != nil {
			return nil, storeError(err, "user role", map[string]any{"user_role_id": row.ID})
		}
	}

	if target != nil {
		target.IsActive = true
		target.IsPrimary = true
		target.AssignedAt = a.At
		target.AssignedBy = a.AssignedBy
		if err := repos.UserRoles().Update(ctx, target); err != nil {
			return nil, storeError(err, "user role", map[string]any{"user_role_id": target.ID})
		}
		return target, nil
	}

	created := &domain.UserRole{
		UserID:      a.UserID,
		RoleID:      a.Role.ID,
		IsActive:    true,
		IsPrimary:   true,
		FranchiseID: a.FranchiseID,
		AssignedAt:  a.At,
		AssignedBy:  a.AssignedBy,
	}
	if err := repos.UserRoles().Create(ctx, created); err != nil {
		return nil, storeError(err, "user role", map[string]any{"role_id": a.Role.ID})
	}
	return created, nil
}

// provisionedRole finds an active role by name, preferring the franchise
// scoped row over the global one.
func provisionedRole(ctx context.Context, repos repository.Repositories, name string, franchiseID *string) (*domain.Role, error) {
	details := map[string]any{"role": name, "reason": "role must be pre-provisioned"}
	if franchiseID != nil {
		role, err := repos.Roles().FindByName(ctx, name, franchiseID)
		if err == nil && role.IsActive {
			return role, nil
		}
		if err != nil && !notFound(err) {
			return nil, storeError(err, "role", details)
		}
	}
	role, err := repos.Roles().FindByName(ctx, name, nil)
	if err != nil {
		return nil, storeError(err, "role", details)
	}
	if !role.IsActive {
		return nil, apperrors.NewNotFound("role", details)
	}
	return role, nil
}
