package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/richharbor/access-service/internal/repository"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL-backed repository.Store.
type Store struct {
	pool *pgxpool.Pool
	repositories
}

// NewStore wraps a pgx pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, repositories: newRepositories(pool)}
}

// WithinTx runs fn inside a read-committed transaction. Row locks taken through
// the *ForUpdate lookups are held until commit or rollback.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return translate(err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, translate(rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translate(err)
	}
	return nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return translate(s.pool.Ping(ctx))
}

type repositories struct {
	users        *userRepository
	roles        *roleRepository
	userRoles    *userRoleRepository
	franchises   *franchiseRepository
	roleUpgrades *roleUpgradeRepository
	onboarding   *onboardingRepository
	admins       *adminRepository
	leads        *leadRepository
}

func newRepositories(db DBTX) repositories {
	return repositories{
		users:        &userRepository{db: db},
		roles:        &roleRepository{db: db},
		userRoles:    &userRoleRepository{db: db},
		franchises:   &franchiseRepository{db: db},
		roleUpgrades: &roleUpgradeRepository{db: db},
		onboarding:   &onboardingRepository{db: db},
		admins:       &adminRepository{db: db},
		leads:        &leadRepository{db: db},
	}
}

func (r repositories) Users() repository.UserRepository               { return r.users }
func (r repositories) Roles() repository.RoleRepository               { return r.roles }
func (r repositories) UserRoles() repository.UserRoleRepository       { return r.userRoles }
func (r repositories) Franchises() repository.FranchiseRepository     { return r.franchises }
func (r repositories) RoleUpgrades() repository.RoleUpgradeRepository { return r.roleUpgrades }
func (r repositories) Onboarding() repository.OnboardingRepository    { return r.onboarding }
func (r repositories) Admins() repository.AdminRepository             { return r.admins }
func (r repositories) Leads() repository.LeadRepository               { return r.leads }

var _ repository.Store = (*Store)(nil)
