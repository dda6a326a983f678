package service

import (
	"context"
	"strings"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

// FranchiseService administers franchises.
type FranchiseService struct {
	franchises repository.FranchiseRepository
}

// NewFranchiseService constructs the service.
func NewFranchiseService(repos repository.Repositories) *FranchiseService {
	return &FranchiseService{franchises: repos.Franchises()}
}

// Create registers a franchise in pending state.
func (s *FranchiseService) Create(ctx context.Context, name, subdomain string, createdBy *string) (*domain.Franchise, error) {
	name = strings.TrimSpace(name)
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if name == "" || subdomain == "" {
		return nil, apperrors.NewInvalidRequest("name and subdomain are required", nil)
	}

	franchise := &domain.Franchise{
		Name:      name,
		Subdomain: subdomain,
		Status:    domain.FranchiseStatusPending,
		CreatedBy: createdBy,
	}
	if err := s.franchises.Create(ctx, franchise); err != nil {
		switch {
		case repository.IsConstraint(err, repository.ConstraintFranchiseName):
			return nil, apperrors.NewConflict("franchise name already exists", map[string]any{"name": name})
		case repository.IsConstraint(err, repository.ConstraintFranchiseSubdomain):
			return nil, apperrors.NewConflict("franchise subdomain already exists", map[string]any{"subdomain": subdomain})
		}
		return nil, storeError(err, "franchise", nil)
	}
	return franchise, nil
}

// Get returns one franchise.
func (s *FranchiseService) Get(ctx context.Context, id string) (*domain.Franchise, error) {
	franchise, err := s.franchises.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "franchise", map[string]any{"franchise_id": id})
	}
	return franchise, nil
}

// List returns franchises newest first, optionally filtered by status.
func (s *FranchiseService) List(ctx context.Context, status *domain.FranchiseStatus) ([]domain.Franchise, error) {
	list, err := s.franchises.List(ctx, status)
	if err != nil {
		return nil, storeError(err, "franchise", nil)
	}
	return list, nil
}

// ChangeStatus moves a franchise along its lifecycle.
func (s *FranchiseService) ChangeStatus(ctx context.Context, id string, next domain.FranchiseStatus) (*domain.Franchise, error) {
	switch next {
	case domain.FranchiseStatusPending, domain.FranchiseStatusActive, domain.FranchiseStatusSuspended:
	default:
		return nil, apperrors.NewInvalidRequest("unknown franchise status", map[string]any{"status": next})
	}

	franchise, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !franchise.CanTransition(next) {
		return nil, apperrors.NewInvalidState("franchise status transition not allowed", map[string]any{
			"from": franchise.Status,
			"to":   next,
		})
	}
	franchise.Status = next
	if err := s.franchises.Update(ctx, franchise); err != nil {
		return nil, storeError(err, "franchise", map[string]any{"franchise_id": id})
	}
	return franchise, nil
}
