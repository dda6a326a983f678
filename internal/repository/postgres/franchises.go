package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/richharbor/access-service/internal/domain"
)

type franchiseRepository struct {
	db DBTX
}

const franchiseColumns = `id, name, subdomain, status, created_by, created_at, updated_at`

func (r *franchiseRepository) Create(ctx context.Context, franchise *domain.Franchise) error {
	const query = `
        INSERT INTO franchises (name, subdomain, status, created_by)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		franchise.Name,
		franchise.Subdomain,
		franchise.Status,
		franchise.CreatedBy,
	).Scan(&franchise.ID, &franchise.CreatedAt, &franchise.UpdatedAt)
	return translate(err)
}

func (r *franchiseRepository) Update(ctx context.Context, franchise *domain.Franchise) error {
	const query = `
        UPDATE franchises SET name=$1, subdomain=$2, status=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		franchise.Name,
		franchise.Subdomain,
		franchise.Status,
		franchise.ID,
	).Scan(&franchise.UpdatedAt)
	return translate(err)
}

func (r *franchiseRepository) GetByID(ctx context.Context, id string) (*domain.Franchise, error) {
	franchise, err := scanFranchise(r.db.QueryRow(ctx, `SELECT `+franchiseColumns+` FROM franchises WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return franchise, nil
}

func (r *franchiseRepository) List(ctx context.Context, status *domain.FranchiseStatus) ([]domain.Franchise, error) {
	const query = `SELECT ` + franchiseColumns + ` FROM franchises
        WHERE ($1::text IS NULL OR status=$1::text)
        ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, status)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Franchise
	for rows.Next() {
		franchise, err := scanFranchise(rows)
		if err != nil {
			return nil, translate(err)
		}
		result = append(result, *franchise)
	}
	return result, translate(rows.Err())
}

func scanFranchise(row pgx.Row) (*domain.Franchise, error) {
	var f domain.Franchise
	if err := row.Scan(&f.ID, &f.Name, &f.Subdomain, &f.Status, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}
