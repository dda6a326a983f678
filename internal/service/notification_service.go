package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/events"
	"github.com/richharbor/access-service/internal/notify"
	"github.com/richharbor/access-service/internal/repository"
)

// NotificationService turns workflow events into emails and push messages.
type NotificationService struct {
	dispatcher events.Dispatcher
	senders    notify.Senders
	users      repository.UserRepository
	logger     *zap.Logger
	baseURL    string
}

// NotificationDependencies bundles collaborators for the service.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Senders    notify.Senders
	Users      repository.UserRepository
	Logger     *zap.Logger
	// PublicBaseURL prefixes links sent to users.
	PublicBaseURL string
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		senders:    deps.Senders,
		users:      deps.Users,
		logger:     logger,
		baseURL:    strings.TrimRight(deps.PublicBaseURL, "/"),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRoleUpgradeSubmitted, n.handleRoleUpgradeSubmitted)
	n.dispatcher.Subscribe(events.EventRoleUpgradeApproved, n.handleRoleUpgradeReviewed)
	n.dispatcher.Subscribe(events.EventRoleUpgradeRejected, n.handleRoleUpgradeReviewed)
	n.dispatcher.Subscribe(events.EventOnboardingSubmitted, n.handleOnboardingSubmitted)
	n.dispatcher.Subscribe(events.EventOnboardingApproved, n.handleOnboardingReviewed)
	n.dispatcher.Subscribe(events.EventOnboardingRejected, n.handleOnboardingReviewed)
	n.dispatcher.Subscribe(events.EventOnboardingTokenIssued, n.handleTokenIssued)
}

func (n *NotificationService) handleRoleUpgradeSubmitted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RoleUpgradePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("RoleUpgradeSubmitted", zap.String("request_id", event.SubjectID), zap.String("user_id", event.UserID))
	title := "Upgrade request received"
	body := fmt.Sprintf("Your request to become a %s is under review.", n.roleTitle(string(payload.RequestedRole)))
	return n.senders.Push.Push(ctx, event.UserID, title, body, eventData(event))
}

func (n *NotificationService) handleRoleUpgradeReviewed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RoleUpgradePayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("RoleUpgradeReviewed",
		zap.String("request_id", event.SubjectID),
		zap.String("status", string(payload.Status)))

	role := n.roleTitle(string(payload.RequestedRole))
	var title, body string
	if payload.Status == domain.UpgradeStatusApproved {
		title = "Upgrade approved"
		body = fmt.Sprintf("You are now a %s.", role)
	} else {
		title = "Upgrade rejected"
		body = fmt.Sprintf("Your request to become a %s was not approved.", role)
	}
	body = withNotes(body, payload.AdminNotes)
	return n.deliver(ctx, event, title, body)
}

func (n *NotificationService) handleOnboardingSubmitted(_ context.Context, event events.Event) error {
	n.logger.Info("OnboardingSubmitted", zap.String("application_id", event.SubjectID), zap.String("user_id", event.UserID))
	return nil
}

func (n *NotificationService) handleOnboardingReviewed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.OnboardingPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	n.logger.Info("OnboardingReviewed",
		zap.String("application_id", event.SubjectID),
		zap.String("status", string(payload.Status)))

	role := n.roleTitle(payload.RoleName)
	var title, body string
	if payload.Status == domain.OnboardingApproved {
		title = "Application approved"
		body = fmt.Sprintf("Welcome aboard. Your %s account is active.", role)
	} else {
		title = "Application rejected"
		body = fmt.Sprintf("Your %s application was not approved.", role)
	}
	body = withNotes(body, payload.ReviewNotes)
	return n.deliver(ctx, event, title, body)
}

func (n *NotificationService) handleTokenIssued(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TokenIssuedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T", event.Payload)
	}
	user, err := n.users.GetByID(ctx, event.UserID)
	if err != nil {
		return err
	}
	email := user.ContactEmail()
	if email == "" {
		n.logger.Debug("no email for verification link", zap.String("user_id", user.ID))
		return nil
	}
	link := n.baseURL + "/v1/onboarding/verify?token=" + url.QueryEscape(payload.Token)
	body := fmt.Sprintf("Hi %s,\n\nYour application was submitted. Confirm your email address:\n%s\n", user.Name, link)
	return n.senders.Email.SendEmail(ctx, email, "Confirm your email", body)
}

// deliver sends the message by push and, when the user has an address, email.
func (n *NotificationService) deliver(ctx context.Context, event events.Event, title, body string) error {
	pushErr := n.senders.Push.Push(ctx, event.UserID, title, body, eventData(event))
	if pushErr != nil {
		n.logger.Warn("push failed", zap.String("user_id", event.UserID), zap.Error(pushErr))
	}

	user, err := n.users.GetByID(ctx, event.UserID)
	if err != nil {
		return err
	}
	if email := user.ContactEmail(); email != "" {
		if err := n.senders.Email.SendEmail(ctx, email, title, body); err != nil {
			return err
		}
	}
	return pushErr
}

func (n *NotificationService) roleTitle(role string) string {
	if role == "" {
		return "member"
	}
	// a Caser keeps state, so each call gets its own
	return cases.Title(language.English).String(strings.ReplaceAll(role, "_", " "))
}

func withNotes(body string, notes *string) string {
	if notes == nil || strings.TrimSpace(*notes) == "" {
		return body
	}
	return body + "\n\nNotes: " + strings.TrimSpace(*notes)
}

func eventData(event events.Event) map[string]string {
	return map[string]string{
		"event_type": string(event.Type),
		"subject_id": event.SubjectID,
	}
}
