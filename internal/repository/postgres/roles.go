package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
)

type roleRepository struct {
	db DBTX
}

const roleColumns = `id, name, description, permissions, is_active, franchise_id, created_by, created_at, updated_at`

func (r *roleRepository) Create(ctx context.Context, role *domain.Role) error {
	const query = `
        INSERT INTO roles (name, description, permissions, is_active, franchise_id, created_by)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`

	if role.Permissions == nil {
		role.Permissions = domain.Permissions{}
	}
	err := r.db.QueryRow(ctx, query,
		role.Name,
		role.Description,
		role.Permissions,
		role.IsActive,
		role.FranchiseID,
		role.CreatedBy,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	return translate(err)
}

func (r *roleRepository) Update(ctx context.Context, role *domain.Role) error {
	const query = `
        UPDATE roles SET description=$2, permissions=$3, is_active=$4, updated_at=NOW()
        WHERE id=$1
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		role.ID,
		role.Description,
		role.Permissions,
		role.IsActive,
	).Scan(&role.UpdatedAt)
	return translate(err)
}

func (r *roleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	role, err := scanRole(r.db.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return role, nil
}

func (r *roleRepository) FindByName(ctx context.Context, name string, franchiseID *string) (*domain.Role, error) {
	const query = `SELECT ` + roleColumns + ` FROM roles
        WHERE name=$1 AND franchise_id IS NOT DISTINCT FROM $2::uuid`

	role, err := scanRole(r.db.QueryRow(ctx, query, name, franchiseID))
	if err != nil {
		return nil, translate(err)
	}
	return role, nil
}

func (r *roleRepository) List(ctx context.Context, filter repository.RoleFilter) ([]domain.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE franchise_id IS NOT DISTINCT FROM $1::uuid`
	if filter.IncludeGlobal && filter.FranchiseID != nil {
		query = `SELECT ` + roleColumns + ` FROM roles WHERE franchise_id=$1::uuid OR franchise_id IS NULL`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query, filter.FranchiseID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, translate(err)
		}
		result = append(result, *role)
	}
	return result, translate(rows.Err())
}

func scanRole(row pgx.Row) (*domain.Role, error) {
	var role domain.Role
	var description *string
	if err := row.Scan(
		&role.ID,
		&role.Name,
		&description,
		&role.Permissions,
		&role.IsActive,
		&role.FranchiseID,
		&role.CreatedBy,
		&role.CreatedAt,
		&role.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if description != nil {
		role.Description = *description
	}
	return &role, nil
}
