package service

import (
	"context"
	"strings"
	"time"

	"github.com/richharbor/access-service/internal/auth"
	"github.com/richharbor/access-service/internal/config"
	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	store      repository.Store
	tokenMgr   *auth.TokenManager
	bcryptCost int
	now        func() time.Time
}

// RegisterInput describes a new platform user.
type RegisterInput struct {
	Name        string
	Email       *string
	Phone       *string
	Password    string
	FranchiseID *string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, store repository.Store) *AuthService {
	return &AuthService{
		store:      store,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		now:        time.Now,
	}
}

// RegisterUser creates an active customer and assigns the global customer
// role when it is provisioned.
func (s *AuthService) RegisterUser(ctx context.Context, input RegisterInput) (*domain.User, string, time.Time, error) {
	email := normalizeOptional(input.Email, true)
	phone := normalizeOptional(input.Phone, false)
	if email == nil && phone == nil {
		return nil, "", time.Time{}, apperrors.NewInvalidRequest("email or phone is required", nil)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInvalidRequest(err.Error(), nil)
	}

	now := s.now().UTC()
	var user *domain.User
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if input.FranchiseID != nil {
			franchise, err := repos.Franchises().GetByID(ctx, *input.FranchiseID)
			if err != nil {
				return storeError(err, "franchise", map[string]any{"franchise_id": *input.FranchiseID})
			}
			if franchise.Status != domain.FranchiseStatusActive {
				return apperrors.NewInvalidState("franchise is not active", map[string]any{"franchise_id": franchise.ID})
			}
		}

		candidate := &domain.User{
			Name:         strings.TrimSpace(input.Name),
			Email:        email,
			Phone:        phone,
			PasswordHash: hash,
			PrimaryRole:  domain.RoleCustomer,
			FranchiseID:  input.FranchiseID,
			IsActive:     true,
			KYCStatus:    domain.KYCPending,
			ProfileData:  map[string]any{},
		}
		if err := repos.Users().Create(ctx, candidate); err != nil {
			switch {
			case repository.IsConstraint(err, repository.ConstraintUserEmail):
				return apperrors.NewConflict("email already registered", nil)
			case repository.IsConstraint(err, repository.ConstraintUserPhone):
				return apperrors.NewConflict("phone already registered", nil)
			}
			return storeError(err, "user", nil)
		}

		role, err := repos.Roles().FindByName(ctx, string(domain.RoleCustomer), nil)
		switch {
		case err == nil && role.IsActive:
			if _, err := activatePrimaryRole(ctx, repos, activation{
				UserID: candidate.ID,
				Role:   role,
				At:     now,
			}); err != nil {
				return err
			}
		case err != nil && !notFound(err):
			return storeError(err, "role", nil)
		}
		user = candidate
		return nil
	})
	if err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeUser, user.FranchiseID)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// LoginInput identifies an end-user by email or, when no email is given,
// by phone.
type LoginInput struct {
	Email    *string
	Phone    *string
	Password string
}

// LoginUser authenticates an end-user.
func (s *AuthService) LoginUser(ctx context.Context, input LoginInput) (*domain.User, string, time.Time, error) {
	var (
		user *domain.User
		err  error
	)
	if email := normalizeOptional(input.Email, true); email != nil {
		user, err = s.store.Users().GetByEmail(ctx, *email)
	} else if phone := normalizeOptional(input.Phone, false); phone != nil {
		user, err = s.store.Users().GetByPhone(ctx, *phone)
	} else {
		return nil, "", time.Time{}, apperrors.NewInvalidRequest("email or phone is required", nil)
	}
	if err != nil {
		if notFound(err) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, storeError(err, "user", nil)
	}
	if err := auth.ComparePassword(user.PasswordHash, input.Password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.IsActive {
		return nil, "", time.Time{}, apperrors.NewForbidden("account is inactive")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeUser, user.FranchiseID)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// LoginAdmin authenticates a reviewer and records the login time.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*domain.Admin, string, time.Time, error) {
	admin, err := s.store.Admins().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if notFound(err) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, storeError(err, "admin", nil)
	}
	if err := auth.ComparePassword(admin.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !admin.IsActive {
		return nil, "", time.Time{}, apperrors.NewForbidden("admin is inactive")
	}

	now := s.now().UTC()
	admin.LastLogin = &now
	if err := s.store.Admins().Update(ctx, admin); err != nil {
		return nil, "", time.Time{}, storeError(err, "admin", nil)
	}
	token, exp, err := s.tokenMgr.GenerateToken(admin.ID, domain.SubjectTypeAdmin, nil)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return admin, token, exp, nil
}

// CreateAdmin provisions a reviewer bound to the named admin role.
func (s *AuthService) CreateAdmin(ctx context.Context, name, email, password, roleName string) (*domain.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperrors.NewInvalidRequest("email is required", nil)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInvalidRequest(err.Error(), nil)
	}

	var admin *domain.Admin
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		role, err := repos.Admins().FindRoleByName(ctx, roleName)
		if err != nil {
			return storeError(err, "admin role", map[string]any{"name": roleName})
		}
		candidate := &domain.Admin{
			Name:         strings.TrimSpace(name),
			Email:        email,
			PasswordHash: hash,
			RoleID:       &role.ID,
			IsActive:     true,
		}
		if err := repos.Admins().Create(ctx, candidate); err != nil {
			if repository.IsConstraint(err, repository.ConstraintAdminEmail) {
				return apperrors.NewConflict("admin email already exists", nil)
			}
			return storeError(err, "admin", nil)
		}
		admin = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return admin, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func normalizeOptional(value *string, lower bool) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	if lower {
		v = strings.ToLower(v)
	}
	return &v
}
