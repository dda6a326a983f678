package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/events"
	"github.com/richharbor/access-service/internal/repository"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

var partnerData = map[string]any{"gst": "27AAAPL1234C1Z5", "firmName": "Acme Traders"}

func TestUpgradeApprovalActivatesRequestedRole(t *testing.T) {
	f := newFixture(t)
	u := f.customer(t, "u@example.com")

	req, err := f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{
		CurrentRole:   domain.RoleCustomer,
		RequestedRole: domain.RolePartner,
		BusinessData:  partnerData,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.UpgradeStatusPending, req.Status)
	assert.Equal(t, f.now, req.LastUpgradeRequestAt)

	reviewed, err := f.upgrades.Review(f.ctx, req.ID, "approve", f.admin.ID, strPtr("welcome"))
	require.NoError(t, err)
	assert.Equal(t, domain.UpgradeStatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, f.admin.ID, *reviewed.ReviewedBy)
	assert.NotNil(t, reviewed.ReviewedAt)

	rows := f.userRoles(t, u.ID)
	customerRow := rows[f.roles["customer"].ID]
	assert.False(t, customerRow.IsActive)
	assert.False(t, customerRow.IsPrimary)
	partnerRow := rows[f.roles["partner"].ID]
	assert.True(t, partnerRow.IsActive)
	assert.True(t, partnerRow.IsPrimary)

	resolved, err := f.resolver.ResolveRoles(f.ctx, u.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, resolved.PrimaryRole)
	assert.Equal(t, "partner", resolved.PrimaryRole.Name)
	assert.Len(t, resolved.ActiveRoles, 1)

	updated := f.user(t, u.ID)
	assert.Equal(t, domain.RolePartner, updated.PrimaryRole)
	assert.Equal(t, "27AAAPL1234C1Z5", updated.ProfileData["gst"])
	require.NotNil(t, updated.LastUpgradeRequestAt)

	assert.Equal(t, []events.EventType{events.EventRoleUpgradeSubmitted, events.EventRoleUpgradeApproved}, f.events.types())
}

func TestUpgradeSecondSubmitIsDuplicate(t *testing.T) {
	f := newFixture(t)
	u := f.customer(t, "u@example.com")

	first, err := f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RolePartner, BusinessData: partnerData})
	require.NoError(t, err)

	f.advance(48 * time.Hour)
	_, err = f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RoleReferralPartner})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateRequest)

	again, err := f.upgrades.Get(f.ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UpgradeStatusPending, again.Status)
	assert.Equal(t, domain.RolePartner, again.RequestedRole)

	pending := domain.UpgradeStatusPending
	list, err := f.upgrades.List(f.ctx, &pending, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpgradeConcurrentSubmitsLeaveOnePending(t *testing.T) {
	f := newFixture(t)
	u := f.customer(t, "u@example.com")

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RolePartner, BusinessData: partnerData})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrDuplicateRequest)
	}
	assert.Equal(t, 1, succeeded)
}

func TestUpgradeReviewOfTerminalRequestIsInvalidState(t *testing.T) {
	f := newFixture(t)
	u := f.customer(t, "u@example.com")

	req, err := f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RolePartner, BusinessData: partnerData})
	require.NoError(t, err)
	_, err = f.upgrades.Review(f.ctx, req.ID, "approve", f.admin.ID, nil)
	require.NoError(t, err)

	before := f.userRoles(t, u.ID)
	for _, action := range []string{"approve", "reject"} {
		_, err = f.upgrades.Review(f.ctx, req.ID, action, f.admin.ID, nil)
		assert.ErrorIs(t, err, apperrors.ErrInvalidState, action)
	}
	assert.Equal(t, before, f.userRoles(t, u.ID))

	got, err := f.upgrades.Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UpgradeStatusApproved, got.Status)
}

func TestUpgradeRejectLeavesRolesUntouched(t *testing.T) {
	f := newFixture(t)
	u := f.customer(t, "u@example.com")
	before := f.userRoles(t, u.ID)

	req, err := f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RoleReferralPartner})
	require.NoError(t, err)
	reviewed, err := f.upgrades.Review(f.ctx, req.ID, " Reject ", f.admin.ID, strPtr("incomplete"))
	require.NoError(t, err)

	assert.Equal(t, domain.UpgradeStatusRejected, reviewed.Status)
	assert.Equal(t, "incomplete", *reviewed.AdminNotes)
	assert.Equal(t, before, f.userRoles(t, u.ID))
	assert.Equal(t, domain.RoleCustomer, f.user(t, u.ID).PrimaryRole)
	assert.Contains(t, f.events.types(), events.EventRoleUpgradeRejected)
}

func TestUpgradeSubmitRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input RoleUpgradeInput
	}{
		{"same role", RoleUpgradeInput{RequestedRole: domain.RoleCustomer}},
		{"same role given", RoleUpgradeInput{CurrentRole: domain.RolePartner, RequestedRole: domain.RolePartner}},
		{"current role mismatch", RoleUpgradeInput{CurrentRole: domain.RoleReferralPartner, RequestedRole: domain.RolePartner}},
		{"admin not requestable", RoleUpgradeInput{RequestedRole: domain.RoleAdmin}},
		{"unknown role", RoleUpgradeInput{RequestedRole: domain.PrimaryRole("wizard")}},
		{"schema violation", RoleUpgradeInput{RequestedRole: domain.RolePartner, BusinessData: map[string]any{"gst": "1234567890123456789"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			u := f.customer(t, "u@example.com")

			_, err := f.upgrades.Submit(f.ctx, u.ID, tt.input)
			assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

			list, err := f.upgrades.List(f.ctx, nil, 0, 0)
			require.NoError(t, err)
			assert.Empty(t, list)
			assert.Nil(t, f.user(t, u.ID).LastUpgradeRequestAt)
		})
	}
}

func TestUpgradeSchemaFailureCarriesFieldDetails(t *testing.T) {
	f := newFixture(t)
	u := f.customer(t, "u@example.com")

	_, err := f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{
		RequestedRole: domain.RolePartner,
		BusinessData:  map[string]any{"pan": "bad"},
	})
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	assert.Equal(t, apperrors.CodeInvalidRequest, domainErr.Code)
	assert.Equal(t, "upgrade/partner", domainErr.Details["schema"])
	assert.NotEmpty(t, domainErr.Details["fields"])
}

func TestUpgradeDowngradeIsRejected(t *testing.T) {
	f := newFixture(t)
	u := f.customer(t, "u@example.com")
	req, err := f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RolePartner, BusinessData: partnerData})
	require.NoError(t, err)
	_, err = f.upgrades.Review(f.ctx, req.ID, "approve", f.admin.ID, nil)
	require.NoError(t, err)

	f.advance(48 * time.Hour)
	_, err = f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RoleReferralPartner})
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestUpgradeResubmitCooldown(t *testing.T) {
	f := newFixture(t)
	u := f.customer(t, "u@example.com")

	req, err := f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RoleReferralPartner})
	require.NoError(t, err)
	_, err = f.upgrades.Review(f.ctx, req.ID, "reject", f.admin.ID, nil)
	require.NoError(t, err)

	f.advance(time.Hour)
	_, err = f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RoleReferralPartner})
	assert.ErrorIs(t, err, apperrors.ErrRateLimited)

	f.advance(24 * time.Hour)
	_, err = f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RoleReferralPartner})
	assert.NoError(t, err)
}

func TestUpgradeBlockedByOpenOnboarding(t *testing.T) {
	f := newFixture(t)
	u := f.customer(t, "u@example.com")

	_, err := f.onboarding.Start(f.ctx, u.ID, f.roles["partner"].ID, nil)
	require.NoError(t, err)

	_, err = f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RolePartner, BusinessData: partnerData})
	assert.ErrorIs(t, err, apperrors.ErrDuplicateRequest)
}

func TestUpgradeSubmitByInactiveUser(t *testing.T) {
	f := newFixture(t)
	u := f.customer(t, "u@example.com")
	u.Deactivate()
	require.NoError(t, f.store.Users().Update(f.ctx, u))

	_, err := f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RolePartner})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = f.upgrades.Submit(f.ctx, "missing", RoleUpgradeInput{RequestedRole: domain.RolePartner})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpgradeReviewErrors(t *testing.T) {
	f := newFixture(t)
	u := f.customer(t, "u@example.com")
	req, err := f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RolePartner, BusinessData: partnerData})
	require.NoError(t, err)

	_, err = f.upgrades.Review(f.ctx, req.ID, "maybe", f.admin.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)

	_, err = f.upgrades.Review(f.ctx, "missing", "approve", f.admin.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.upgrades.Review(f.ctx, req.ID, "approve", "no-such-admin", nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := f.upgrades.Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPending())
}

func TestUpgradeApproveNeedsProvisionedRole(t *testing.T) {
	f := newFixture(t, "customer")
	u := f.customer(t, "u@example.com")

	req, err := f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RolePartner, BusinessData: partnerData})
	require.NoError(t, err)

	_, err = f.upgrades.Review(f.ctx, req.ID, "approve", f.admin.ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := f.upgrades.Get(f.ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPending())
	assert.Equal(t, domain.RoleCustomer, f.user(t, u.ID).PrimaryRole)
}

func TestUpgradePrefersFranchiseScopedRole(t *testing.T) {
	f := newFixture(t)
	franchise := &domain.Franchise{Name: "North", Subdomain: "north", Status: domain.FranchiseStatusActive}
	require.NoError(t, f.store.Franchises().Create(f.ctx, franchise))
	scoped := &domain.Role{Name: "partner", IsActive: true, FranchiseID: &franchise.ID, Permissions: domain.Permissions{"leads.manage": domain.LevelFull}}
	require.NoError(t, f.store.Roles().Create(f.ctx, scoped))

	u := f.customer(t, "u@example.com")
	u.FranchiseID = &franchise.ID
	require.NoError(t, f.store.Users().Update(f.ctx, u))

	req, err := f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RolePartner, BusinessData: partnerData})
	require.NoError(t, err)
	_, err = f.upgrades.Review(f.ctx, req.ID, "approve", f.admin.ID, nil)
	require.NoError(t, err)

	resolved, err := f.resolver.ResolveRoles(f.ctx, u.ID, &franchise.ID)
	require.NoError(t, err)
	require.NotNil(t, resolved.PrimaryRole)
	assert.Equal(t, scoped.ID, resolved.PrimaryRole.RoleID)
	assert.Len(t, resolved.ActiveRoles, 1, "global customer primary is retired")
	assert.True(t, resolved.Permissions.Allows("leads.manage", domain.LevelFull))
}

func TestUpgradeStatus(t *testing.T) {
	f := newFixture(t)
	u := f.customer(t, "u@example.com")

	status, err := f.upgrades.Status(f.ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, status.CanRequest)
	assert.Nil(t, status.Latest)
	assert.Equal(t, domain.RoleCustomer, status.CurrentRole)

	req, err := f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RoleReferralPartner})
	require.NoError(t, err)
	status, err = f.upgrades.Status(f.ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, status.CanRequest)
	require.NotNil(t, status.Latest)
	assert.Equal(t, req.ID, status.Latest.ID)
	require.NotNil(t, status.CooldownEndsAt)
	assert.Equal(t, f.now.Add(24*time.Hour), *status.CooldownEndsAt)

	_, err = f.upgrades.Review(f.ctx, req.ID, "approve", f.admin.ID, nil)
	require.NoError(t, err)
	f.advance(25 * time.Hour)
	status, err = f.upgrades.Status(f.ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, status.CanRequest)
	assert.Nil(t, status.CooldownEndsAt)
	assert.Equal(t, domain.RoleReferralPartner, status.CurrentRole)
}

func TestAtMostOnePendingPerUser(t *testing.T) {
	f := newFixture(t)
	users := []*domain.User{f.customer(t, "a@example.com"), f.customer(t, "b@example.com")}
	targets := []domain.PrimaryRole{domain.RoleReferralPartner, domain.RolePartner}

	for round := 0; round < 4; round++ {
		for i, u := range users {
			req, err := f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: targets[(round+i)%2], BusinessData: partnerData})
			if err == nil && round%2 == 1 {
				_, err = f.upgrades.Review(f.ctx, req.ID, "reject", f.admin.ID, nil)
				require.NoError(t, err)
			}
			_, _ = f.upgrades.Submit(f.ctx, u.ID, RoleUpgradeInput{RequestedRole: domain.RolePartner, BusinessData: partnerData})

			all, err := f.store.RoleUpgrades().List(f.ctx, repository.RoleUpgradeFilter{Limit: 200})
			require.NoError(t, err)
			pending := map[string]int{}
			for _, r := range all {
				if r.IsPending() {
					pending[r.UserID]++
				}
			}
			for userID, n := range pending {
				assert.LessOrEqual(t, n, 1, userID)
			}
		}
		f.advance(25 * time.Hour)
	}
}
