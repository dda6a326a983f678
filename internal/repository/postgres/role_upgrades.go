package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
)

type roleUpgradeRepository struct {
	db DBTX
}

const roleUpgradeColumns = `id, user_id, current_primary_role, requested_role, status, business_data, reason,
               reviewed_by, reviewed_at, admin_notes, last_upgrade_request_at, franchise_id,
               created_at, updated_at`

func (r *roleUpgradeRepository) Create(ctx context.Context, req *domain.RoleUpgradeRequest) error {
	const query = `
        INSERT INTO role_upgrade_requests (user_id, current_primary_role, requested_role, status, business_data,
                                           reason, last_upgrade_request_at, franchise_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		req.UserID,
		req.CurrentRole,
		req.RequestedRole,
		req.Status,
		jsonObject(req.BusinessData),
		req.Reason,
		req.LastUpgradeRequestAt,
		req.FranchiseID,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	return translate(err)
}

func (r *roleUpgradeRepository) Update(ctx context.Context, req *domain.RoleUpgradeRequest) error {
	const query = `
        UPDATE role_upgrade_requests SET status=$1, business_data=$2, reviewed_by=$3, reviewed_at=$4,
            admin_notes=$5, updated_at=NOW()
        WHERE id=$6
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		req.Status,
		jsonObject(req.BusinessData),
		req.ReviewedBy,
		req.ReviewedAt,
		req.AdminNotes,
		req.ID,
	).Scan(&req.UpdatedAt)
	return translate(err)
}

func (r *roleUpgradeRepository) GetByID(ctx context.Context, id string) (*domain.RoleUpgradeRequest, error) {
	return r.fetchSingle(ctx, `SELECT `+roleUpgradeColumns+` FROM role_upgrade_requests WHERE id=$1`, id)
}

func (r *roleUpgradeRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.RoleUpgradeRequest, error) {
	return r.fetchSingle(ctx, `SELECT `+roleUpgradeColumns+` FROM role_upgrade_requests WHERE id=$1 FOR UPDATE`, id)
}

func (r *roleUpgradeRepository) FindPendingByUser(ctx context.Context, userID string) (*domain.RoleUpgradeRequest, error) {
	return r.fetchSingle(ctx, `SELECT `+roleUpgradeColumns+` FROM role_upgrade_requests
        WHERE user_id=$1 AND status='pending'`, userID)
}

func (r *roleUpgradeRepository) LatestByUser(ctx context.Context, userID string) (*domain.RoleUpgradeRequest, error) {
	return r.fetchSingle(ctx, `SELECT `+roleUpgradeColumns+` FROM role_upgrade_requests
        WHERE user_id=$1 ORDER BY created_at DESC LIMIT 1`, userID)
}

func (r *roleUpgradeRepository) List(ctx context.Context, filter repository.RoleUpgradeFilter) ([]domain.RoleUpgradeRequest, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", len(args)))
	}

	limit, offset := repository.NormalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM role_upgrade_requests WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		roleUpgradeColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.RoleUpgradeRequest
	for rows.Next() {
		req, err := scanRoleUpgrade(rows)
		if err != nil {
			return nil, translate(err)
		}
		result = append(result, *req)
	}
	return result, translate(rows.Err())
}

func (r *roleUpgradeRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.RoleUpgradeRequest, error) {
	req, err := scanRoleUpgrade(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translate(err)
	}
	return req, nil
}

func scanRoleUpgrade(row pgx.Row) (*domain.RoleUpgradeRequest, error) {
	var req domain.RoleUpgradeRequest
	if err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.CurrentRole,
		&req.RequestedRole,
		&req.Status,
		&req.BusinessData,
		&req.Reason,
		&req.ReviewedBy,
		&req.ReviewedAt,
		&req.AdminNotes,
		&req.LastUpgradeRequestAt,
		&req.FranchiseID,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}
