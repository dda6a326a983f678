package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/richharbor/access-service/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("repository: conflict")
)

// Unique constraints the services care about.
const (
	ConstraintOnePendingUpgrade  = "role_upgrade_requests_one_pending_uidx"
	ConstraintOneOpenOnboarding  = "onboarding_applications_one_open_uidx"
	ConstraintOneActivePrimary   = "user_roles_one_active_primary_uidx"
	ConstraintRoleNameScope      = "roles_name_scope_uidx"
	ConstraintOnboardingToken    = "onboarding_applications_approval_token_key"
	ConstraintUserEmail          = "users_email_key"
	ConstraintUserPhone          = "users_phone_key"
	ConstraintFranchiseName      = "franchises_name_key"
	ConstraintFranchiseSubdomain = "franchises_subdomain_key"
	ConstraintAdminEmail         = "admins_email_key"
	ConstraintAdminRoleName      = "admin_roles_name_key"
)

// ConflictError names the violated constraint. It matches ErrConflict.
type ConflictError struct {
	Constraint string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("repository: conflict on %s", e.Constraint)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// IsConstraint reports whether err is a conflict on the named constraint.
func IsConstraint(err error, constraint string) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict) && conflict.Constraint == constraint
}

// UserRepository defines persistence access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByPhone(ctx context.Context, phone string) (*domain.User, error)
}

// RoleRepository stores role definitions.
type RoleRepository interface {
	Create(ctx context.Context, role *domain.Role) error
	Update(ctx context.Context, role *domain.Role) error
	GetByID(ctx context.Context, id string) (*domain.Role, error)
	// FindByName matches the exact scope: a nil franchiseID only matches global roles.
	FindByName(ctx context.Context, name string, franchiseID *string) (*domain.Role, error)
	List(ctx context.Context, filter RoleFilter) ([]domain.Role, error)
}

// RoleFilter narrows role listings.
type RoleFilter struct {
	FranchiseID   *string
	IncludeGlobal bool
}

// UserRoleRepository stores role assignments.
type UserRoleRepository interface {
	Create(ctx context.Context, userRole *domain.UserRole) error
	Update(ctx context.Context, userRole *domain.UserRole) error
	ListByUser(ctx context.Context, userID string) ([]domain.UserRole, error)
	// ListActiveAssignments returns active rows joined with their roles whose
	// franchise equals franchiseID or is null.
	ListActiveAssignments(ctx context.Context, userID string, franchiseID *string) ([]domain.RoleAssignment, error)
}

// FranchiseRepository stores tenants.
type FranchiseRepository interface {
	Create(ctx context.Context, franchise *domain.Franchise) error
	Update(ctx context.Context, franchise *domain.Franchise) error
	GetByID(ctx context.Context, id string) (*domain.Franchise, error)
	List(ctx context.Context, status *domain.FranchiseStatus) ([]domain.Franchise, error)
}

// RoleUpgradeFilter captures admin listing parameters.
type RoleUpgradeFilter struct {
	Status *domain.UpgradeStatus
	UserID *string
	Limit  int
	Offset int
}

// RoleUpgradeRepository stores upgrade requests. Rows are never deleted.
type RoleUpgradeRepository interface {
	Create(ctx context.Context, req *domain.RoleUpgradeRequest) error
	Update(ctx context.Context, req *domain.RoleUpgradeRequest) error
	GetByID(ctx context.Context, id string) (*domain.RoleUpgradeRequest, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.RoleUpgradeRequest, error)
	FindPendingByUser(ctx context.Context, userID string) (*domain.RoleUpgradeRequest, error)
	LatestByUser(ctx context.Context, userID string) (*domain.RoleUpgradeRequest, error)
	List(ctx context.Context, filter RoleUpgradeFilter) ([]domain.RoleUpgradeRequest, error)
}

// OnboardingFilter captures admin listing parameters.
type OnboardingFilter struct {
	Status *domain.OnboardingStatus
	UserID *string
	Limit  int
	Offset int
}

// OnboardingRepository stores onboarding applications.
type OnboardingRepository interface {
	Create(ctx context.Context, app *domain.OnboardingApplication) error
	Update(ctx context.Context, app *domain.OnboardingApplication) error
	GetByID(ctx context.Context, id string) (*domain.OnboardingApplication, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.OnboardingApplication, error)
	GetByApprovalToken(ctx context.Context, token string) (*domain.OnboardingApplication, error)
	FindOpenByUser(ctx context.Context, userID string) (*domain.OnboardingApplication, error)
	LatestByUser(ctx context.Context, userID string) (*domain.OnboardingApplication, error)
	List(ctx context.Context, filter OnboardingFilter) ([]domain.OnboardingApplication, int, error)
	CountByStatus(ctx context.Context) (map[domain.OnboardingStatus]int, error)
}

// AdminRepository stores reviewers and their roles.
type AdminRepository interface {
	Create(ctx context.Context, admin *domain.Admin) error
	Update(ctx context.Context, admin *domain.Admin) error
	GetByID(ctx context.Context, id string) (*domain.Admin, error)
	GetByEmail(ctx context.Context, email string) (*domain.Admin, error)
	CreateRole(ctx context.Context, role *domain.AdminRole) error
	GetRole(ctx context.Context, id string) (*domain.AdminRole, error)
	FindRoleByName(ctx context.Context, name string) (*domain.AdminRole, error)
}

// LeadRepository stores partner-submitted leads.
type LeadRepository interface {
	Create(ctx context.Context, lead *domain.Lead) error
	GetByID(ctx context.Context, id string) (*domain.Lead, error)
	// ListByUser returns the user's leads newest first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Lead, error)
}

// Repositories groups every repository bound to one connection or transaction.
type Repositories interface {
	Users() UserRepository
	Roles() RoleRepository
	UserRoles() UserRoleRepository
	Franchises() FranchiseRepository
	RoleUpgrades() RoleUpgradeRepository
	Onboarding() OnboardingRepository
	Admins() AdminRepository
	Leads() LeadRepository
}

// Store exposes auto-commit repositories plus transactional scopes.
type Store interface {
	Repositories
	// WithinTx runs fn against transaction-bound repositories. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Repositories) error) error
	Ping(ctx context.Context) error
}

// DefaultLimit applies when a listing asks for no explicit page size.
const DefaultLimit = 20

// NormalizePage clamps limit and offset.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
