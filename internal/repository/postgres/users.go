package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/richharbor/access-service/internal/domain"
)

type userRepository struct {
	db DBTX
}

const userColumns = `id, name, email, phone, password_hash, primary_role, franchise_id, is_active,
               kyc_status, wallet_balance_minor, email_verified, last_upgrade_request_at,
               profile_data, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, phone, password_hash, primary_role, franchise_id, is_active,
                           kyc_status, wallet_balance_minor, email_verified, profile_data)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`

	if user.KYCStatus == "" {
		user.KYCStatus = domain.KYCPending
	}
	err := r.db.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.PrimaryRole,
		user.FranchiseID,
		user.IsActive,
		user.KYCStatus,
		user.WalletBalanceMinor,
		user.EmailVerified,
		jsonObject(user.ProfileData),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	return translate(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, email=$2, phone=$3, password_hash=$4, primary_role=$5, franchise_id=$6,
            is_active=$7, kyc_status=$8, wallet_balance_minor=$9, email_verified=$10,
            last_upgrade_request_at=$11, profile_data=$12, updated_at=NOW()
        WHERE id=$13
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.PrimaryRole,
		user.FranchiseID,
		user.IsActive,
		user.KYCStatus,
		user.WalletBalanceMinor,
		user.EmailVerified,
		user.LastUpgradeRequestAt,
		jsonObject(user.ProfileData),
		user.ID,
	).Scan(&user.UpdatedAt)
	return translate(err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1 FOR UPDATE`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email)
}

func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE phone=$1`, phone)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, translate(err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.PrimaryRole,
		&user.FranchiseID,
		&user.IsActive,
		&user.KYCStatus,
		&user.WalletBalanceMinor,
		&user.EmailVerified,
		&user.LastUpgradeRequestAt,
		&user.ProfileData,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
