package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
)

type onboardingRepository struct {
	db DBTX
}

const onboardingColumns = `id, user_id, requested_role_id, franchise_id, current_step, completed_steps, form_data,
               documents, status, reviewed_by, reviewed_at, review_notes, approval_token, submitted_at,
               created_at, updated_at`

func (r *onboardingRepository) Create(ctx context.Context, app *domain.OnboardingApplication) error {
	const query = `
        INSERT INTO onboarding_applications (user_id, requested_role_id, franchise_id, current_step,
                                             completed_steps, form_data, documents, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		app.UserID,
		app.RequestedRoleID,
		app.FranchiseID,
		app.CurrentStep,
		steps(app.CompletedSteps),
		jsonObject(app.FormData),
		jsonObject(app.Documents),
		app.Status,
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
	return translate(err)
}

func (r *onboardingRepository) Update(ctx context.Context, app *domain.OnboardingApplication) error {
	const query = `
        UPDATE onboarding_applications SET current_step=$1, completed_steps=$2, form_data=$3, documents=$4,
            status=$5, reviewed_by=$6, reviewed_at=$7, review_notes=$8, approval_token=$9, submitted_at=$10,
            updated_at=NOW()
        WHERE id=$11
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		app.CurrentStep,
		steps(app.CompletedSteps),
		jsonObject(app.FormData),
		jsonObject(app.Documents),
		app.Status,
		app.ReviewedBy,
		app.ReviewedAt,
		app.ReviewNotes,
		app.ApprovalToken,
		app.SubmittedAt,
		app.ID,
	).Scan(&app.UpdatedAt)
	return translate(err)
}

func (r *onboardingRepository) GetByID(ctx context.Context, id string) (*domain.OnboardingApplication, error) {
	return r.fetchSingle(ctx, `SELECT `+onboardingColumns+` FROM onboarding_applications WHERE id=$1`, id)
}

func (r *onboardingRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.OnboardingApplication, error) {
	return r.fetchSingle(ctx, `SELECT `+onboardingColumns+` FROM onboarding_applications WHERE id=$1 FOR UPDATE`, id)
}

func (r *onboardingRepository) GetByApprovalToken(ctx context.Context, token string) (*domain.OnboardingApplication, error) {
	return r.fetchSingle(ctx, `SELECT `+onboardingColumns+` FROM onboarding_applications
        WHERE approval_token=$1 FOR UPDATE`, token)
}

func (r *onboardingRepository) FindOpenByUser(ctx context.Context, userID string) (*domain.OnboardingApplication, error) {
	return r.fetchSingle(ctx, `SELECT `+onboardingColumns+` FROM onboarding_applications
        WHERE user_id=$1 AND status IN ('draft', 'pending')
        ORDER BY created_at DESC LIMIT 1`, userID)
}

func (r *onboardingRepository) LatestByUser(ctx context.Context, userID string) (*domain.OnboardingApplication, error) {
	return r.fetchSingle(ctx, `SELECT `+onboardingColumns+` FROM onboarding_applications
        WHERE user_id=$1 ORDER BY created_at DESC LIMIT 1`, userID)
}

func (r *onboardingRepository) List(ctx context.Context, filter repository.OnboardingFilter) ([]domain.OnboardingApplication, int, error) {
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
	where := strings.Join(clauses, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM onboarding_applications WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, translate(err)
	}

	limit, offset := repository.NormalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM onboarding_applications WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		onboardingColumns, where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translate(err)
	}
	defer rows.Close()

	var result []domain.OnboardingApplication
	for rows.Next() {
		app, err := scanOnboarding(rows)
		if err != nil {
			return nil, 0, translate(err)
		}
		result = append(result, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate(err)
	}
	return result, total, nil
}

func (r *onboardingRepository) CountByStatus(ctx context.Context) (map[domain.OnboardingStatus]int, error) {
	const query = `SELECT status, COUNT(*) FROM onboarding_applications GROUP BY status`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	counts := make(map[domain.OnboardingStatus]int)
	for rows.Next() {
		var status domain.OnboardingStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, translate(err)
		}
		counts[status] = count
	}
	return counts, translate(rows.Err())
}

func (r *onboardingRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.OnboardingApplication, error) {
	app, err := scanOnboarding(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translate(err)
	}
	return app, nil
}

func scanOnboarding(row pgx.Row) (*domain.OnboardingApplication, error) {
	var app domain.OnboardingApplication
	if err := row.Scan(
		&app.ID,
		&app.UserID,
		&app.RequestedRoleID,
		&app.FranchiseID,
		&app.CurrentStep,
		&app.CompletedSteps,
		&app.FormData,
		&app.Documents,
		&app.Status,
		&app.ReviewedBy,
		&app.ReviewedAt,
		&app.ReviewNotes,
		&app.ApprovalToken,
		&app.SubmittedAt,
		&app.CreatedAt,
		&app.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &app, nil
}

func steps(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
