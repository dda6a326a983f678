package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/events"
	"github.com/richharbor/access-service/internal/observability"
	"github.com/richharbor/access-service/internal/repository"
	"github.com/richharbor/access-service/internal/validation"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

const workflowRoleUpgrade = "role_upgrade"

// RoleUpgradeService runs the role-upgrade request workflow.
type RoleUpgradeService struct {
	store       repository.Store
	schemas     *validation.Registry
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	ladder      domain.Ladder
	minInterval time.Duration
	now         func() time.Time
}

// RoleUpgradeDependencies bundles collaborators for the service.
type RoleUpgradeDependencies struct {
	Store               repository.Store
	Schemas             *validation.Registry
	Dispatcher          events.Dispatcher
	Metrics             *observability.Metrics
	Logger              *zap.Logger
	Ladder              domain.Ladder
	MinResubmitInterval time.Duration
	Clock               func() time.Time
}

// RoleUpgradeInput describes a submission.
type RoleUpgradeInput struct {
	// CurrentRole is optional; when set it must match the user's primary role.
	CurrentRole   domain.PrimaryRole
	RequestedRole domain.PrimaryRole
	BusinessData  map[string]any
	Reason        *string
}

// RoleUpgradeStatus summarizes a user's upgrade eligibility.
type RoleUpgradeStatus struct {
	CurrentRole    domain.PrimaryRole
	Latest         *domain.RoleUpgradeRequest
	CanRequest     bool
	CooldownEndsAt *time.Time
}

// NewRoleUpgradeService constructs the service.
func NewRoleUpgradeService(deps RoleUpgradeDependencies) *RoleUpgradeService {
	ladder := deps.Ladder
	if len(ladder) == 0 {
		ladder = domain.DefaultLadder
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &RoleUpgradeService{
		store:       deps.Store,
		schemas:     deps.Schemas,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		ladder:      ladder,
		minInterval: deps.MinResubmitInterval,
		now:         clock,
	}
}

// Submit files a pending upgrade request for userID.
func (s *RoleUpgradeService) Submit(ctx context.Context, userID string, input RoleUpgradeInput) (*domain.RoleUpgradeRequest, error) {
	if !input.RequestedRole.Valid() {
		return nil, apperrors.NewInvalidRequest("unknown requested role", map[string]any{"requested_role": input.RequestedRole})
	}
	if input.CurrentRole != "" && input.CurrentRole == input.RequestedRole {
		return nil, apperrors.NewInvalidRequest("requested role equals current role", map[string]any{"requested_role": input.RequestedRole})
	}

	now := s.now().UTC()
	var created *domain.RoleUpgradeRequest
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		user, err := repos.Users().GetByIDForUpdate(ctx, userID)
		if err != nil {
			return storeError(err, "user", map[string]any{"user_id": userID})
		}
		if !user.IsActive {
			return apperrors.NewInvalidState("user is inactive", map[string]any{"user_id": userID})
		}

		current := user.PrimaryRole
		if input.CurrentRole != "" && input.CurrentRole != current {
			return apperrors.NewInvalidRequest("current role does not match", map[string]any{"current_role": current})
		}
		if input.RequestedRole == current {
			return apperrors.NewInvalidRequest("requested role equals current role", map[string]any{"requested_role": input.RequestedRole})
		}
		if !s.ladder.IsUpgrade(current, input.RequestedRole) {
			return apperrors.NewInvalidRequest("requested role is not an upgrade", map[string]any{
				"current_role":   current,
				"requested_role": input.RequestedRole,
			})
		}

		pending, err := repos.RoleUpgrades().FindPendingByUser(ctx, userID)
		switch {
		case err == nil:
			return apperrors.NewDuplicateRequest("a role upgrade request is already pending", map[string]any{"request_id": pending.ID})
		case !notFound(err):
			return storeError(err, "role upgrade request", nil)
		}
		open, err := repos.Onboarding().FindOpenByUser(ctx, userID)
		switch {
		case err == nil:
			return apperrors.NewDuplicateRequest("an onboarding application is open", map[string]any{"application_id": open.ID})
		case !notFound(err):
			return storeError(err, "onboarding application", nil)
		}

		if ends := cooldownEndsAt(user, s.minInterval); ends != nil && now.Before(*ends) {
			return apperrors.NewRateLimited("role upgrade requested too recently", map[string]any{
				"retry_after": ends.Format(time.RFC3339),
			})
		}

		if err := s.schemas.Validate(validation.UpgradeKey(input.RequestedRole), input.BusinessData); err != nil {
			return schemaError(err, "business data failed validation")
		}

		businessData := input.BusinessData
		if businessData == nil {
			businessData = map[string]any{}
		}
		req := &domain.RoleUpgradeRequest{
			UserID:               userID,
			CurrentRole:          current,
			RequestedRole:        input.RequestedRole,
			Status:               domain.UpgradeStatusPending,
			BusinessData:         businessData,
			Reason:               input.Reason,
			LastUpgradeRequestAt: now,
			FranchiseID:          user.FranchiseID,
		}
		if err := repos.RoleUpgrades().Create(ctx, req); err != nil {
			if repository.IsConstraint(err, repository.ConstraintOnePendingUpgrade) {
				return apperrors.NewDuplicateRequest("a role upgrade request is already pending", nil)
			}
			return storeError(err, "role upgrade request", nil)
		}

		user.LastUpgradeRequestAt = &now
		if err := repos.Users().Update(ctx, user); err != nil {
			return storeError(err, "user", map[string]any{"user_id": userID})
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("role upgrade requested",
		zap.String("request_id", created.ID),
		zap.String("user_id", userID),
		zap.String("requested_role", string(created.RequestedRole)))
	s.metrics.RecordTransition(workflowRoleUpgrade, string(created.Status))
	s.publish(ctx, events.EventRoleUpgradeSubmitted, created, events.UserActor(userID))
	return created, nil
}

// Review approves or rejects a pending request. Approval activates the
// requested role for the user in the same transaction.
func (s *RoleUpgradeService) Review(ctx context.Context, requestID, rawAction, reviewerID string, adminNotes *string) (*domain.RoleUpgradeRequest, error) {
	action, ok := domain.ParseReviewAction(rawAction)
	if !ok {
		return nil, apperrors.NewInvalidRequest("action must be approve or reject", map[string]any{"action": rawAction})
	}

	now := s.now().UTC()
	var reviewed *domain.RoleUpgradeRequest
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		req, err := repos.RoleUpgrades().GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return storeError(err, "role upgrade request", map[string]any{"request_id": requestID})
		}
		if !req.IsPending() {
			return apperrors.NewInvalidState("role upgrade request is not pending", map[string]any{
				"request_id": requestID,
				"status":     req.Status,
			})
		}
		if _, err := repos.Admins().GetByID(ctx, reviewerID); err != nil {
			return storeError(err, "admin", map[string]any{"admin_id": reviewerID})
		}

		req.ReviewedBy = &reviewerID
		req.ReviewedAt = &now
		req.AdminNotes = adminNotes
		if action == domain.ReviewReject {
			req.Status = domain.UpgradeStatusRejected
		} else {
			req.Status = domain.UpgradeStatusApproved
			if err := s.applyUpgrade(ctx, repos, req, reviewerID, now); err != nil {
				return err
			}
		}

		if err := repos.RoleUpgrades().Update(ctx, req); err != nil {
			return storeError(err, "role upgrade request", map[string]any{"request_id": requestID})
		}
		reviewed = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	eventType := events.EventRoleUpgradeRejected
	if reviewed.Status == domain.UpgradeStatusApproved {
		eventType = events.EventRoleUpgradeApproved
	}
	s.logger.Info("role upgrade reviewed",
		zap.String("request_id", reviewed.ID),
		zap.String("status", string(reviewed.Status)),
		zap.String("admin_id", reviewerID))
	s.metrics.RecordTransition(workflowRoleUpgrade, string(reviewed.Status))
	s.publish(ctx, eventType, reviewed, events.AdminActor(reviewerID))
	return reviewed, nil
}

func (s *RoleUpgradeService) applyUpgrade(ctx context.Context, repos repository.Repositories, req *domain.RoleUpgradeRequest, reviewerID string, now time.Time) error {
	user, err := repos.Users().GetByIDForUpdate(ctx, req.UserID)
	if err != nil {
		return storeError(err, "user", map[string]any{"user_id": req.UserID})
	}
	role, err := provisionedRole(ctx, repos, string(req.RequestedRole), req.FranchiseID)
	if err != nil {
		return err
	}
	if _, err := activatePrimaryRole(ctx, repos, activation{
		UserID:      user.ID,
		Role:        role,
		FranchiseID: req.FranchiseID,
		AssignedBy:  &reviewerID,
		At:          now,
	}); err != nil {
		return err
	}

	user.PrimaryRole = req.RequestedRole
	user.MergeProfile(req.BusinessData)
	if err := repos.Users().Update(ctx, user); err != nil {
		return storeError(err, "user", map[string]any{"user_id": user.ID})
	}
	return nil
}

// Status reports the latest request and whether a new one may be filed.
func (s *RoleUpgradeService) Status(ctx context.Context, userID string) (*RoleUpgradeStatus, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user", map[string]any{"user_id": userID})
	}
	status := &RoleUpgradeStatus{CurrentRole: user.PrimaryRole}

	latest, err := s.store.RoleUpgrades().LatestByUser(ctx, userID)
	if err != nil && !notFound(err) {
		return nil, storeError(err, "role upgrade request", nil)
	}
	status.Latest = latest

	ends := cooldownEndsAt(user, s.minInterval)
	inCooldown := ends != nil && s.now().Before(*ends)
	if inCooldown {
		status.CooldownEndsAt = ends
	}
	pending := latest != nil && latest.IsPending()
	atTop := s.ladder.Rank(user.PrimaryRole) < 0 || user.PrimaryRole == s.ladder.Top()
	status.CanRequest = user.IsActive && !pending && !inCooldown && !atTop
	return status, nil
}

// Get returns one request.
func (s *RoleUpgradeService) Get(ctx context.Context, requestID string) (*domain.RoleUpgradeRequest, error) {
	req, err := s.store.RoleUpgrades().GetByID(ctx, requestID)
	if err != nil {
		return nil, storeError(err, "role upgrade request", map[string]any{"request_id": requestID})
	}
	return req, nil
}

// List returns requests newest first.
func (s *RoleUpgradeService) List(ctx context.Context, status *domain.UpgradeStatus, limit, offset int) ([]domain.RoleUpgradeRequest, error) {
	list, err := s.store.RoleUpgrades().List(ctx, repository.RoleUpgradeFilter{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, storeError(err, "role upgrade request", nil)
	}
	return list, nil
}

// cooldownEndsAt returns when the user may next request a role change.
func cooldownEndsAt(user *domain.User, interval time.Duration) *time.Time {
	if user.LastUpgradeRequestAt == nil || interval <= 0 {
		return nil
	}
	ends := user.LastUpgradeRequestAt.Add(interval)
	return &ends
}

func (s *RoleUpgradeService) publish(ctx context.Context, eventType events.EventType, req *domain.RoleUpgradeRequest, actor events.Actor) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Publish(ctx, events.Event{
		Type:      eventType,
		SubjectID: req.ID,
		UserID:    req.UserID,
		Actor:     actor,
		Payload: events.RoleUpgradePayload{
			CurrentRole:   req.CurrentRole,
			RequestedRole: req.RequestedRole,
			Status:        req.Status,
			AdminNotes:    req.AdminNotes,
		},
	})
}
