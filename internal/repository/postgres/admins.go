package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/richharbor/access-service/internal/domain"
)

type adminRepository struct {
	db DBTX
}

const adminColumns = `id, name, email, password_hash, role_id, is_active, last_login, created_at, updated_at`

func (r *adminRepository) Create(ctx context.Context, admin *domain.Admin) error {
	const query = `
        INSERT INTO admins (name, email, password_hash, role_id, is_active)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		admin.Name,
		admin.Email,
		admin.PasswordHash,
		admin.RoleID,
		admin.IsActive,
	).Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
	return translate(err)
}

func (r *adminRepository) Update(ctx context.Context, admin *domain.Admin) error {
	const query = `
        UPDATE admins SET name=$1, email=$2, password_hash=$3, role_id=$4, is_active=$5, last_login=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		admin.Name,
		admin.Email,
		admin.PasswordHash,
		admin.RoleID,
		admin.IsActive,
		admin.LastLogin,
		admin.ID,
	).Scan(&admin.UpdatedAt)
	return translate(err)
}

func (r *adminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	return r.fetchSingle(ctx, `SELECT `+adminColumns+` FROM admins WHERE id=$1`, id)
}

func (r *adminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	return r.fetchSingle(ctx, `SELECT `+adminColumns+` FROM admins WHERE LOWER(email)=LOWER($1)`, email)
}

func (r *adminRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Admin, error) {
	var admin domain.Admin
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&admin.ID,
		&admin.Name,
		&admin.Email,
		&admin.PasswordHash,
		&admin.RoleID,
		&admin.IsActive,
		&admin.LastLogin,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &admin, nil
}

func (r *adminRepository) CreateRole(ctx context.Context, role *domain.AdminRole) error {
	const query = `
        INSERT INTO admin_roles (name, description, permissions)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`

	if role.Permissions == nil {
		role.Permissions = domain.Permissions{}
	}
	err := r.db.QueryRow(ctx, query, role.Name, role.Description, role.Permissions).
		Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	return translate(err)
}

func (r *adminRepository) GetRole(ctx context.Context, id string) (*domain.AdminRole, error) {
	const query = `SELECT id, name, description, permissions, created_at, updated_at FROM admin_roles WHERE id=$1`
	role, err := scanAdminRole(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return role, nil
}

func (r *adminRepository) FindRoleByName(ctx context.Context, name string) (*domain.AdminRole, error) {
	const query = `SELECT id, name, description, permissions, created_at, updated_at FROM admin_roles WHERE name=$1`
	role, err := scanAdminRole(r.db.QueryRow(ctx, query, name))
	if err != nil {
		return nil, translate(err)
	}
	return role, nil
}

func scanAdminRole(row pgx.Row) (*domain.AdminRole, error) {
	var role domain.AdminRole
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.Permissions, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, err
	}
	return &role, nil
}
