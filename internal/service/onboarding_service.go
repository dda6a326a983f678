package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/events"
	"github.com/richharbor/access-service/internal/observability"
	"github.com/richharbor/access-service/internal/repository"
	"github.com/richharbor/access-service/internal/validation"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

const (
	workflowOnboarding = "onboarding"
	approvalTokenBytes = 32
)

// OnboardingService runs the multi-step onboarding application workflow.
type OnboardingService struct {
	store         repository.Store
	schemas       *validation.Registry
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	requiredSteps []int
	ladder        domain.Ladder
	minInterval   time.Duration
	now           func() time.Time
}

// OnboardingDependencies bundles collaborators for the service.
type OnboardingDependencies struct {
	Store         repository.Store
	Schemas       *validation.Registry
	Dispatcher    events.Dispatcher
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	RequiredSteps []int
	Ladder        domain.Ladder
	// MinResubmitInterval is the cooldown shared with role upgrade requests.
	MinResubmitInterval time.Duration
	Clock               func() time.Time
}

// NewOnboardingService constructs the service.
func NewOnboardingService(deps OnboardingDependencies) *OnboardingService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	ladder := deps.Ladder
	if len(ladder) == 0 {
		ladder = domain.DefaultLadder
	}
	return &OnboardingService{
		store:         deps.Store,
		schemas:       deps.Schemas,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		requiredSteps: deps.RequiredSteps,
		ladder:        ladder,
		minInterval:   deps.MinResubmitInterval,
		now:           clock,
	}
}

// Start opens a draft application for the requested role. Only ladder
// roles may be requested. A user who already holds an active primary role
// in scope must request a higher rung and is subject to the resubmission
// cooldown shared with role upgrade requests.
func (s *OnboardingService) Start(ctx context.Context, userID, requestedRoleID string, franchiseID *string) (*domain.OnboardingApplication, error) {
	now := s.now().UTC()
	var created *domain.OnboardingApplication
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		user, err := repos.Users().GetByIDForUpdate(ctx, userID)
		if err != nil {
			return storeError(err, "user", map[string]any{"user_id": userID})
		}
		role, err := repos.Roles().GetByID(ctx, requestedRoleID)
		if err != nil {
			return storeError(err, "role", map[string]any{"role_id": requestedRoleID})
		}
		if !role.IsActive {
			return apperrors.NewInvalidState("role is inactive", map[string]any{"role_id": requestedRoleID})
		}
		requested := domain.PrimaryRole(role.Name)
		if s.ladder.Rank(requested) < 0 {
			return apperrors.NewInvalidRequest("requested role is not a primary role", map[string]any{
				"role_id": requestedRoleID,
				"name":    role.Name,
			})
		}
		if role.FranchiseID != nil && !domain.SameScope(role.FranchiseID, franchiseID) {
			return apperrors.NewInvalidRequest("role belongs to another franchise", map[string]any{"role_id": requestedRoleID})
		}
		if franchiseID != nil {
			franchise, err := repos.Franchises().GetByID(ctx, *franchiseID)
			if err != nil {
				return storeError(err, "franchise", map[string]any{"franchise_id": *franchiseID})
			}
			if franchise.Status != domain.FranchiseStatusActive {
				return apperrors.NewInvalidState("franchise is not active", map[string]any{
					"franchise_id": franchise.ID,
					"status":       franchise.Status,
				})
			}
		}

		pending, err := repos.RoleUpgrades().FindPendingByUser(ctx, userID)
		switch {
		case err == nil:
			return apperrors.NewDuplicateRequest("a role upgrade request is pending", map[string]any{"request_id": pending.ID})
		case !notFound(err):
			return storeError(err, "role upgrade request", nil)
		}
		open, err := repos.Onboarding().FindOpenByUser(ctx, userID)
		switch {
		case err == nil:
			return apperrors.NewDuplicateRequest("an onboarding application is already open", map[string]any{"application_id": open.ID})
		case !notFound(err):
			return storeError(err, "onboarding application", nil)
		}

		current, holds, err := s.currentPrimary(ctx, repos, user, franchiseID)
		if err != nil {
			return err
		}
		if holds {
			if !s.ladder.IsUpgrade(current, requested) {
				return apperrors.NewInvalidRequest("requested role is not an upgrade", map[string]any{
					"current_role":   current,
					"requested_role": requested,
				})
			}
			if ends := cooldownEndsAt(user, s.minInterval); ends != nil && now.Before(*ends) {
				return apperrors.NewRateLimited("role change requested too recently", map[string]any{
					"retry_after": ends.Format(time.RFC3339),
				})
			}
		}

		app := &domain.OnboardingApplication{
			UserID:          userID,
			RequestedRoleID: requestedRoleID,
			FranchiseID:     franchiseID,
			CurrentStep:     1,
			CompletedSteps:  []int{},
			FormData:        map[string]any{},
			Documents:       map[string]any{},
			Status:          domain.OnboardingDraft,
		}
		if err := repos.Onboarding().Create(ctx, app); err != nil {
			if repository.IsConstraint(err, repository.ConstraintOneOpenOnboarding) {
				return apperrors.NewDuplicateRequest("an onboarding application is already open", nil)
			}
			return storeError(err, "onboarding application", nil)
		}
		created = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordTransition(workflowOnboarding, string(created.Status))
	return created, nil
}

// AdvanceStep records stepData for step. Only the current step may be
// completed; repeating an already completed step is a no-op. A non-empty
// ownerID restricts the call to the application's owner.
func (s *OnboardingService) AdvanceStep(ctx context.Context, applicationID, ownerID string, step int, stepData, documents map[string]any) (*domain.OnboardingApplication, error) {
	if step < 1 {
		return nil, apperrors.NewInvalidRequest("step must be positive", map[string]any{"step": step})
	}

	var result *domain.OnboardingApplication
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		app, err := s.lockApplication(ctx, repos, applicationID, ownerID)
		if err != nil {
			return err
		}
		if app.Status != domain.OnboardingDraft {
			return apperrors.NewInvalidState("application is not a draft", map[string]any{"status": app.Status})
		}
		if app.HasCompleted(step) {
			result = app
			return nil
		}
		if step != app.CurrentStep {
			return apperrors.NewOutOfOrderStep("step is not the current step", map[string]any{
				"step":         step,
				"current_step": app.CurrentStep,
			})
		}
		if err := s.schemas.Validate(validation.StepKey(step), stepData); err != nil {
			return schemaError(err, "step data failed validation")
		}

		app.CompleteStep(step, stepData, documents)
		if err := repos.Onboarding().Update(ctx, app); err != nil {
			return storeError(err, "onboarding application", map[string]any{"application_id": app.ID})
		}
		result = app
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Submit moves a complete draft to pending and issues its approval token.
func (s *OnboardingService) Submit(ctx context.Context, applicationID, ownerID string) (*domain.OnboardingApplication, error) {
	token, err := newApprovalToken()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.now().UTC()
	var submitted *domain.OnboardingApplication
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		app, err := s.lockApplication(ctx, repos, applicationID, ownerID)
		if err != nil {
			return err
		}
		if app.Status != domain.OnboardingDraft {
			return apperrors.NewInvalidState("application is not a draft", map[string]any{"status": app.Status})
		}
		if missing := app.MissingSteps(s.requiredSteps); len(missing) > 0 {
			return apperrors.NewInvalidState("required steps are incomplete", map[string]any{"missing_steps": missing})
		}

		app.Status = domain.OnboardingPending
		app.SubmittedAt = &now
		app.ApprovalToken = &token
		if err := repos.Onboarding().Update(ctx, app); err != nil {
			return storeError(err, "onboarding application", map[string]any{"application_id": app.ID})
		}

		user, err := repos.Users().GetByIDForUpdate(ctx, app.UserID)
		if err != nil {
			return storeError(err, "user", map[string]any{"user_id": app.UserID})
		}
		user.LastUpgradeRequestAt = &now
		if err := repos.Users().Update(ctx, user); err != nil {
			return storeError(err, "user", map[string]any{"user_id": user.ID})
		}
		submitted = app
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("onboarding submitted", zap.String("application_id", submitted.ID), zap.String("user_id", submitted.UserID))
	s.metrics.RecordTransition(workflowOnboarding, string(submitted.Status))
	s.publish(ctx, events.EventOnboardingSubmitted, submitted, "", events.UserActor(submitted.UserID))
	if s.dispatcher != nil {
		s.dispatcher.Publish(ctx, events.Event{
			Type:      events.EventOnboardingTokenIssued,
			SubjectID: submitted.ID,
			UserID:    submitted.UserID,
			Actor:     events.UserActor(submitted.UserID),
			Payload:   events.TokenIssuedPayload{Token: token},
		})
	}
	return submitted, nil
}

// Review approves or rejects a pending application.
func (s *OnboardingService) Review(ctx context.Context, applicationID, rawAction, reviewerID string, notes *string) (*domain.OnboardingApplication, error) {
	action, ok := domain.ParseReviewAction(rawAction)
	if !ok {
		return nil, apperrors.NewInvalidRequest("action must be approve or reject", map[string]any{"action": rawAction})
	}

	now := s.now().UTC()
	var reviewed *domain.OnboardingApplication
	var roleName string
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Admins().GetByID(ctx, reviewerID); err != nil {
			return storeError(err, "admin", map[string]any{"admin_id": reviewerID})
		}
		app, err := s.lockApplication(ctx, repos, applicationID, "")
		if err != nil {
			return err
		}
		if app.Status != domain.OnboardingPending {
			return apperrors.NewInvalidState("application is not pending", map[string]any{
				"application_id": app.ID,
				"status":         app.Status,
			})
		}
		roleName, err = s.review(ctx, repos, app, action, reviewerID, notes, now)
		if err != nil {
			return err
		}
		reviewed = app
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterReview(ctx, reviewed, roleName, reviewerID)
	return reviewed, nil
}

// BulkReview applies one decision to every pending application among ids in
// a single transaction. Ids that are unknown or not pending are skipped; any
// failure rolls back the whole batch.
func (s *OnboardingService) BulkReview(ctx context.Context, ids []string, rawAction, reviewerID string, notes *string) ([]domain.OnboardingApplication, error) {
	action, ok := domain.ParseReviewAction(rawAction)
	if !ok {
		return nil, apperrors.NewInvalidRequest("action must be approve or reject", map[string]any{"action": rawAction})
	}
	if len(ids) == 0 {
		return nil, apperrors.NewInvalidRequest("ids must not be empty", nil)
	}

	now := s.now().UTC()
	var reviewed []domain.OnboardingApplication
	var roleNames []string
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Admins().GetByID(ctx, reviewerID); err != nil {
			return storeError(err, "admin", map[string]any{"admin_id": reviewerID})
		}
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true

			app, err := repos.Onboarding().GetByIDForUpdate(ctx, id)
			if err != nil {
				if notFound(err) {
					continue
				}
				return storeError(err, "onboarding application", map[string]any{"application_id": id})
			}
			if app.Status != domain.OnboardingPending {
				continue
			}
			roleName, err := s.review(ctx, repos, app, action, reviewerID, notes, now)
			if err != nil {
				return err
			}
			reviewed = append(reviewed, *app)
			roleNames = append(roleNames, roleName)
		}
		if len(reviewed) == 0 {
			return apperrors.NewNotFound("pending onboarding application", map[string]any{"ids": ids})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range reviewed {
		s.afterReview(ctx, &reviewed[i], roleNames[i], reviewerID)
	}
	return reviewed, nil
}

func (s *OnboardingService) review(ctx context.Context, repos repository.Repositories, app *domain.OnboardingApplication, action domain.ReviewAction, reviewerID string, notes *string, now time.Time) (string, error) {
	role, err := repos.Roles().GetByID(ctx, app.RequestedRoleID)
	if err != nil {
		return "", storeError(err, "role", map[string]any{"role_id": app.RequestedRoleID})
	}

	app.ReviewedBy = &reviewerID
	app.ReviewedAt = &now
	app.ReviewNotes = notes
	if action == domain.ReviewReject {
		app.Status = domain.OnboardingRejected
	} else {
		app.Status = domain.OnboardingApproved
		if !role.IsActive {
			return "", apperrors.NewNotFound("role", map[string]any{"role_id": role.ID, "reason": "role is inactive"})
		}
		if !domain.PrimaryRole(role.Name).Valid() {
			return "", apperrors.NewInvalidState("requested role is not a primary role", map[string]any{"role_id": role.ID})
		}
		if err := s.activateApplicant(ctx, repos, app, role, reviewerID, now); err != nil {
			return "", err
		}
	}

	if err := repos.Onboarding().Update(ctx, app); err != nil {
		return "", storeError(err, "onboarding application", map[string]any{"application_id": app.ID})
	}
	return role.Name, nil
}

// currentPrimary reports the ladder role of the user's active primary
// assignment in scope, if any.
func (s *OnboardingService) currentPrimary(ctx context.Context, repos repository.Repositories, user *domain.User, franchiseID *string) (domain.PrimaryRole, bool, error) {
	assignments, err := repos.UserRoles().ListActiveAssignments(ctx, user.ID, franchiseID)
	if err != nil {
		return "", false, storeError(err, "user role", map[string]any{"user_id": user.ID})
	}
	for _, a := range assignments {
		if !a.IsPrimary {
			continue
		}
		if current := domain.PrimaryRole(a.Role.Name); s.ladder.Rank(current) >= 0 {
			return current, true, nil
		}
		return user.PrimaryRole, true, nil
	}
	return "", false, nil
}

func (s *OnboardingService) activateApplicant(ctx context.Context, repos repository.Repositories, app *domain.OnboardingApplication, role *domain.Role, reviewerID string, now time.Time) error {
	user, err := repos.Users().GetByIDForUpdate(ctx, app.UserID)
	if err != nil {
		return storeError(err, "user", map[string]any{"user_id": app.UserID})
	}
	if _, err := activatePrimaryRole(ctx, repos, activation{
		UserID:      user.ID,
		Role:        role,
		FranchiseID: app.FranchiseID,
		AssignedBy:  &reviewerID,
		At:          now,
	}); err != nil {
		return err
	}

	user.IsActive = true
	user.EmailVerified = true
	user.PrimaryRole = domain.PrimaryRole(role.Name)
	if user.FranchiseID == nil {
		user.FranchiseID = app.FranchiseID
	}
	if err := repos.Users().Update(ctx, user); err != nil {
		return storeError(err, "user", map[string]any{"user_id": user.ID})
	}
	return nil
}

func (s *OnboardingService) afterReview(ctx context.Context, app *domain.OnboardingApplication, roleName, reviewerID string) {
	eventType := events.EventOnboardingRejected
	if app.Status == domain.OnboardingApproved {
		eventType = events.EventOnboardingApproved
	}
	s.logger.Info("onboarding reviewed",
		zap.String("application_id", app.ID),
		zap.String("status", string(app.Status)),
		zap.String("admin_id", reviewerID))
	s.metrics.RecordTransition(workflowOnboarding, string(app.Status))
	s.publish(ctx, eventType, app, roleName, events.AdminActor(reviewerID))
}

// ConsumeApprovalToken verifies the applicant's email and invalidates the
// token.
func (s *OnboardingService) ConsumeApprovalToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, apperrors.NewInvalidRequest("token is required", nil)
	}

	var verified *domain.User
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		app, err := repos.Onboarding().GetByApprovalToken(ctx, token)
		if err != nil {
			return storeError(err, "approval token", nil)
		}
		user, err := repos.Users().GetByIDForUpdate(ctx, app.UserID)
		if err != nil {
			return storeError(err, "user", map[string]any{"user_id": app.UserID})
		}
		user.EmailVerified = true
		if err := repos.Users().Update(ctx, user); err != nil {
			return storeError(err, "user", map[string]any{"user_id": user.ID})
		}
		app.ApprovalToken = nil
		if err := repos.Onboarding().Update(ctx, app); err != nil {
			return storeError(err, "onboarding application", map[string]any{"application_id": app.ID})
		}
		verified = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return verified, nil
}

// Get returns one application.
func (s *OnboardingService) Get(ctx context.Context, applicationID string) (*domain.OnboardingApplication, error) {
	app, err := s.store.Onboarding().GetByID(ctx, applicationID)
	if err != nil {
		return nil, storeError(err, "onboarding application", map[string]any{"application_id": applicationID})
	}
	return app, nil
}

// Latest returns the user's most recent application.
func (s *OnboardingService) Latest(ctx context.Context, userID string) (*domain.OnboardingApplication, error) {
	app, err := s.store.Onboarding().LatestByUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "onboarding application", map[string]any{"user_id": userID})
	}
	return app, nil
}

// List returns applications newest first and the unpaged total.
func (s *OnboardingService) List(ctx context.Context, status *domain.OnboardingStatus, limit, offset int) ([]domain.OnboardingApplication, int, error) {
	list, total, err := s.store.Onboarding().List(ctx, repository.OnboardingFilter{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, 0, storeError(err, "onboarding application", nil)
	}
	return list, total, nil
}

// Stats counts applications per status.
func (s *OnboardingService) Stats(ctx context.Context) (*domain.OnboardingStats, error) {
	counts, err := s.store.Onboarding().CountByStatus(ctx)
	if err != nil {
		return nil, storeError(err, "onboarding application", nil)
	}
	stats := &domain.OnboardingStats{Counts: make(map[domain.OnboardingStatus]int, len(domain.AllOnboardingStatuses))}
	for _, status := range domain.AllOnboardingStatuses {
		stats.Counts[status] = counts[status]
		stats.Total += counts[status]
	}
	return stats, nil
}

func (s *OnboardingService) lockApplication(ctx context.Context, repos repository.Repositories, applicationID, ownerID string) (*domain.OnboardingApplication, error) {
	details := map[string]any{"application_id": applicationID}
	app, err := repos.Onboarding().GetByIDForUpdate(ctx, applicationID)
	if err != nil {
		return nil, storeError(err, "onboarding application", details)
	}
	if ownerID != "" && app.UserID != ownerID {
		return nil, apperrors.NewNotFound("onboarding application", details)
	}
	return app, nil
}

func (s *OnboardingService) publish(ctx context.Context, eventType events.EventType, app *domain.OnboardingApplication, roleName string, actor events.Actor) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Publish(ctx, events.Event{
		Type:      eventType,
		SubjectID: app.ID,
		UserID:    app.UserID,
		Actor:     actor,
		Payload: events.OnboardingPayload{
			RequestedRoleID: app.RequestedRoleID,
			RoleName:        roleName,
			Status:          app.Status,
			ReviewNotes:     app.ReviewNotes,
		},
	})
}

func newApprovalToken() (string, error) {
	buf := make([]byte, approvalTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
