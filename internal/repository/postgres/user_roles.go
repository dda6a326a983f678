package postgres

import (
	"context"

	"github.com/richharbor/access-service/internal/domain"
)

type userRoleRepository struct {
	db DBTX
}

func (r *userRoleRepository) Create(ctx context.Context, userRole *domain.UserRole) error {
	const query = `
        INSERT INTO user_roles (user_id, role_id, is_active, is_primary, franchise_id, assigned_at, assigned_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		userRole.UserID,
		userRole.RoleID,
		userRole.IsActive,
		userRole.IsPrimary,
		userRole.FranchiseID,
		userRole.AssignedAt,
		userRole.AssignedBy,
	).Scan(&userRole.ID, &userRole.CreatedAt, &userRole.UpdatedAt)
	return translate(err)
}

func (r *userRoleRepository) Update(ctx context.Context, userRole *domain.UserRole) error {
	const query = `
        UPDATE user_roles SET is_active=$1, is_primary=$2, franchise_id=$3, assigned_at=$4, assigned_by=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		userRole.IsActive,
		userRole.IsPrimary,
		userRole.FranchiseID,
		userRole.AssignedAt,
		userRole.AssignedBy,
		userRole.ID,
	).Scan(&userRole.UpdatedAt)
	return translate(err)
}

func (r *userRoleRepository) ListByUser(ctx context.Context, userID string) ([]domain.UserRole, error) {
	const query = `
        SELECT id, user_id, role_id, is_active, is_primary, franchise_id, assigned_at, assigned_by, created_at, updated_at
        FROM user_roles WHERE user_id=$1
        ORDER BY assigned_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.UserRole
	for rows.Next() {
		var ur domain.UserRole
		if err := rows.Scan(
			&ur.ID,
			&ur.UserID,
			&ur.RoleID,
			&ur.IsActive,
			&ur.IsPrimary,
			&ur.FranchiseID,
			&ur.AssignedAt,
			&ur.AssignedBy,
			&ur.CreatedAt,
			&ur.UpdatedAt,
		); err != nil {
			return nil, translate(err)
		}
		result = append(result, ur)
	}
	return result, translate(rows.Err())
}

func (r *userRoleRepository) ListActiveAssignments(ctx context.Context, userID string, franchiseID *string) ([]domain.RoleAssignment, error) {
	const query = `
        SELECT ur.id, ur.user_id, ur.role_id, ur.is_active, ur.is_primary, ur.franchise_id,
               ur.assigned_at, ur.assigned_by, ur.created_at, ur.updated_at,
               r.id, r.name, r.description, r.permissions, r.is_active, r.franchise_id,
               r.created_by, r.created_at, r.updated_at
        FROM user_roles ur
        JOIN roles r ON r.id = ur.role_id
        WHERE ur.user_id=$1 AND ur.is_active
          AND (ur.franchise_id IS NULL OR ur.franchise_id IS NOT DISTINCT FROM $2::uuid)
        ORDER BY ur.assigned_at DESC`

	rows, err := r.db.Query(ctx, query, userID, franchiseID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.RoleAssignment
	for rows.Next() {
		var a domain.RoleAssignment
		var description *string
		if err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.RoleID,
			&a.IsActive,
			&a.IsPrimary,
			&a.FranchiseID,
			&a.AssignedAt,
			&a.AssignedBy,
			&a.CreatedAt,
			&a.UpdatedAt,
			&a.Role.ID,
			&a.Role.Name,
			&description,
			&a.Role.Permissions,
			&a.Role.IsActive,
			&a.Role.FranchiseID,
			&a.Role.CreatedBy,
			&a.Role.CreatedAt,
			&a.Role.UpdatedAt,
		); err != nil {
			return nil, translate(err)
		}
		if description != nil {
			a.Role.Description = *description
		}
		result = append(result, a)
	}
	return result, translate(rows.Err())
}
