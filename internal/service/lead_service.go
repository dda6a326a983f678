package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

// LeadInput is a lead as submitted by its owner.
type LeadInput struct {
	ProductType       string
	LeadType          domain.LeadType
	Name              string
	Email             *string
	Phone             *string
	City              *string
	Requirement       *string
	ProductDetails    map[string]any
	ConsentConfirmed  bool
	ConvertToReferral bool
}

// LeadService records leads for users holding the leads capability.
type LeadService struct {
	leads  repository.LeadRepository
	logger *zap.Logger
}

// NewLeadService constructs the service.
func NewLeadService(repos repository.Repositories, logger *zap.Logger) *LeadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadService{leads: repos.Leads(), logger: logger}
}

// Create stores a new lead. Cold leads require confirmed consent.
func (s *LeadService) Create(ctx context.Context, userID string, franchiseID *string, input LeadInput) (*domain.Lead, error) {
	if !input.LeadType.Valid() {
		return nil, apperrors.NewInvalidRequest("unknown lead type", map[string]any{"lead_type": input.LeadType})
	}
	name := strings.TrimSpace(input.Name)
	productType := strings.TrimSpace(input.ProductType)
	if name == "" || productType == "" {
		return nil, apperrors.NewInvalidRequest("name and product type are required", nil)
	}
	if input.LeadType == domain.LeadTypeCold && !input.ConsentConfirmed {
		return nil, apperrors.NewInvalidRequest("consent confirmation is required for cold leads", nil)
	}

	details := input.ProductDetails
	if details == nil {
		details = map[string]any{}
	}
	lead := &domain.Lead{
		UserID:            userID,
		FranchiseID:       franchiseID,
		ProductType:       productType,
		LeadType:          input.LeadType,
		Status:            domain.LeadStatusNew,
		IncentiveType:     input.LeadType.Incentive(),
		IncentiveStatus:   domain.IncentivePending,
		ExpectedPayout:    input.LeadType.ExpectedPayout(),
		Name:              name,
		Email:             normalizeOptional(input.Email, true),
		Phone:             normalizeOptional(input.Phone, false),
		City:              normalizeOptional(input.City, false),
		Requirement:       normalizeOptional(input.Requirement, false),
		ProductDetails:    details,
		ConsentConfirmed:  input.ConsentConfirmed,
		ConvertToReferral: input.ConvertToReferral,
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, storeError(err, "user", map[string]any{"user_id": userID})
	}
	s.logger.Info("lead created",
		zap.String("lead_id", lead.ID),
		zap.String("user_id", userID),
		zap.String("lead_type", string(lead.LeadType)))
	return lead, nil
}

// ListMine returns the owner's leads newest first.
func (s *LeadService) ListMine(ctx context.Context, userID string, limit, offset int) ([]domain.Lead, error) {
	list, err := s.leads.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, storeError(err, "lead", nil)
	}
	return list, nil
}

// GetMine returns one lead. Other users' leads are reported as not found.
func (s *LeadService) GetMine(ctx context.Context, userID, leadID string) (*domain.Lead, error) {
	lead, err := s.leads.GetByID(ctx, leadID)
	if err == nil && lead.UserID != userID {
		err = repository.ErrNotFound
	}
	if err != nil {
		return nil, storeError(err, "lead", map[string]any{"lead_id": leadID})
	}
	return lead, nil
}
