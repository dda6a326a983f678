package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
)

type leadRepository struct {
	db DBTX
}

const leadColumns = `id, user_id, franchise_id, product_type, lead_type, status, incentive_type,
               incentive_status, expected_payout, name, email, phone, city, requirement,
               product_details, consent_confirmed, convert_to_referral, created_at, updated_at`

func (r *leadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	const query = `
        INSERT INTO leads (user_id, franchise_id, product_type, lead_type, status, incentive_type,
                           incentive_status, expected_payout, name, email, phone, city, requirement,
                           product_details, consent_confirmed, convert_to_referral)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		lead.UserID,
		lead.FranchiseID,
		lead.ProductType,
		lead.LeadType,
		lead.Status,
		lead.IncentiveType,
		lead.IncentiveStatus,
		lead.ExpectedPayout,
		lead.Name,
		lead.Email,
		lead.Phone,
		lead.City,
		lead.Requirement,
		jsonObject(lead.ProductDetails),
		lead.ConsentConfirmed,
		lead.ConvertToReferral,
	).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt)
	return translate(err)
}

func (r *leadRepository) GetByID(ctx context.Context, id string) (*domain.Lead, error) {
	lead, err := scanLead(r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return lead, nil
}

func (r *leadRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Lead, error) {
	const query = `SELECT ` + leadColumns + ` FROM leads
        WHERE user_id=$1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`

	limit, offset = repository.NormalizePage(limit, offset)
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, translate(err)
		}
		result = append(result, *lead)
	}
	return result, translate(rows.Err())
}

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var l domain.Lead
	if err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.FranchiseID,
		&l.ProductType,
		&l.LeadType,
		&l.Status,
		&l.IncentiveType,
		&l.IncentiveStatus,
		&l.ExpectedPayout,
		&l.Name,
		&l.Email,
		&l.Phone,
		&l.City,
		&l.Requirement,
		&l.ProductDetails,
		&l.ConsentConfirmed,
		&l.ConvertToReferral,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &l, nil
}
