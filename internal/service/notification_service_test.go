package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/events"
	"github.com/richharbor/access-service/internal/notify"
)

type sentEmail struct{ to, subject, body string }

type fakeSender struct {
	mu      sync.Mutex
	emails  []sentEmail
	pushes  []string
	pushErr error
}

func (s *fakeSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = append(s.emails, sentEmail{to: to, subject: subject, body: body})
	return nil
}

func (s *fakeSender) Push(_ context.Context, userID, title, _ string, _ map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushes = append(s.pushes, userID+":"+title)
	return s.pushErr
}

func newNotifiedFixture(t *testing.T) (*fixture, *fakeSender) {
	t.Helper()
	f := newFixture(t)
	sender := &fakeSender{}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	NewNotificationService(NotificationDependencies{
		Dispatcher:    dispatcher,
		Senders:       notify.Senders{Email: sender, Push: sender},
		Users:         f.store.Users(),
		PublicBaseURL: "https://app.example.com/",
	}).RegisterHandlers()

	f.upgrades.dispatcher = dispatcher
	f.onboarding.dispatcher = dispatcher
	return f, sender
}

func TestNotifyOnUpgradeApproval(t *testing.T) {
	f, sender := newNotifiedFixture(t)
	u := f.customer(t, "u@example.com")

	req, err := f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RoleReferralPartner})
	require.NoError(t, err)
	_, err = f.upgrades.Review(f.ctx, req.ID, "approve", f.admin.ID, strPtr("congrats"))
	require.NoError(t, err)

	assert.Equal(t, []string{u.ID + ":Upgrade request received", u.ID + ":Upgrade approved"}, sender.pushes)
	require.Len(t, sender.emails, 1)
	assert.Equal(t, "u@example.com", sender.emails[0].to)
	assert.Contains(t, sender.emails[0].body, "Referral Partner")
	assert.Contains(t, sender.emails[0].body, "congrats")
}

func TestNotifyVerificationLinkOnSubmit(t *testing.T) {
	f, sender := newNotifiedFixture(t)
	_, app := f.submittedApplication(t, "u@example.com")

	require.Len(t, sender.emails, 1)
	assert.Equal(t, "Confirm your email", sender.emails[0].subject)
	assert.Contains(t, sender.emails[0].body, "https://app.example.com/v1/onboarding/verify?token="+*app.ApprovalToken)
}

func TestNotifyFailureDoesNotUndoReview(t *testing.T) {
	f, sender := newNotifiedFixture(t)
	sender.pushErr = errors.New("sns down")
	_, app := f.submittedApplication(t, "u@example.com")

	reviewed, err := f.onboarding.Review(f.ctx, app.ID, "reject", f.admin.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.OnboardingRejected, reviewed.Status)

	got, err := f.onboarding.Get(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OnboardingRejected, got.Status)
	assert.Equal(t, "Application rejected", sender.emails[len(sender.emails)-1].subject)
}
