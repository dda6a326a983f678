package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/richharbor/access-service/internal/config"
	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
	"github.com/richharbor/access-service/internal/repository/memory"
	pgstore "github.com/richharbor/access-service/internal/repository/postgres"
)

// Postgres wraps access to a pgx connection pool.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres establishes a connection pool when a DSN is provided. Without a
// DSN it returns an empty handle and the service falls back to the in-memory store.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; skipping database connection")
		return &Postgres{}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("connected to postgres", zap.Int32("max_conns", poolCfg.MaxConns))
	return &Postgres{Pool: pool}, nil
}

// Store returns the repository.Store backed by this pool, or an in-memory
// store when no pool is configured.
func (p *Postgres) Store(logger *zap.Logger) repository.Store {
	if p == nil || p.Pool == nil {
		logger.Warn("using in-memory store; data will not survive a restart")
		store := memory.New()
		if err := seedDefaults(context.Background(), store); err != nil {
			logger.Error("seed in-memory store", zap.Error(err))
		}
		return store
	}
	return pgstore.NewStore(p.Pool)
}

// Close releases pool resources.
func (p *Postgres) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// Ping verifies connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	if p == nil || p.Pool == nil {
		return errors.New("postgres pool not configured")
	}
	return p.Pool.Ping(ctx)
}

// seedDefaults provisions the rows the seed migration creates in postgres.
func seedDefaults(ctx context.Context, store repository.Store) error {
	roles := []domain.Role{
		{Name: "customer", Description: "Platform customer", Permissions: domain.Permissions{"portfolio": domain.LevelRead, "orders": domain.LevelWrite}},
		{Name: "referral_partner", Description: "Refers customers for incentives", Permissions: domain.Permissions{"portfolio": domain.LevelRead, "orders": domain.LevelWrite, "referrals": domain.LevelWrite}},
		{Name: "partner", Description: "Brokerage partner", Permissions: domain.Permissions{"portfolio": domain.LevelRead, "orders": domain.LevelFull, "referrals": domain.LevelFull, "leads": domain.LevelWrite}},
	}
	for i := range roles {
		roles[i].IsActive = true
		if err := store.Roles().Create(ctx, &roles[i]); err != nil {
			return err
		}
	}
	return store.Admins().CreateRole(ctx, &domain.AdminRole{
		Name:        "superadmin",
		Description: "Full platform administration",
		Permissions: domain.Permissions{
			domain.CapabilityReviewRoleUpgrades: domain.LevelFull,
			domain.CapabilityReviewOnboarding:   domain.LevelFull,
			domain.CapabilityManageFranchises:   domain.LevelFull,
			domain.CapabilityManageRoles:        domain.LevelFull,
			domain.CapabilityViewUsers:          domain.LevelFull,
		},
	})
}
