package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/events"
	"github.com/richharbor/access-service/internal/repository"
	"github.com/richharbor/access-service/internal/repository/memory"
	"github.com/richharbor/access-service/internal/validation"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	ctx        context.Context
	now        time.Time
	store      *memory.Store
	events     *recordingDispatcher
	upgrades   *RoleUpgradeService
	onboarding *OnboardingService
	resolver   *RoleResolver
	roles      map[string]*domain.Role
	admin      *domain.Admin
}

var rolePermissions = map[string]domain.Permissions{
	"customer":         {"portfolio.view": domain.LevelRead},
	"referral_partner": {"portfolio.view": domain.LevelRead, "leads.manage": domain.LevelRead},
	"partner":          {"portfolio.view": domain.LevelFull, "leads.manage": domain.LevelWrite},
}

// newFixture provisions the named global roles (all three ladder roles when
// none are given) and one reviewer.
func newFixture(t *testing.T, roleNames ...string) *fixture {
	t.Helper()
	if len(roleNames) == 0 {
		roleNames = []string{"customer", "referral_partner", "partner"}
	}

	f := &fixture{
		ctx:    context.Background(),
		now:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		events: &recordingDispatcher{},
		roles:  map[string]*domain.Role{},
	}
	clock := func() time.Time { return f.now }
	f.store = memory.New(memory.WithClock(clock))

	schemas, err := validation.NewRegistry("")
	require.NoError(t, err)

	f.upgrades = NewRoleUpgradeService(RoleUpgradeDependencies{
		Store:               f.store,
		Schemas:             schemas,
		Dispatcher:          f.events,
		Ladder:              domain.DefaultLadder,
		MinResubmitInterval: 24 * time.Hour,
		Clock:               clock,
	})
	f.onboarding = NewOnboardingService(OnboardingDependencies{
		Store:               f.store,
		Schemas:             schemas,
		Dispatcher:          f.events,
		RequiredSteps:       []int{1, 2, 3},
		Ladder:              domain.DefaultLadder,
		MinResubmitInterval: 24 * time.Hour,
		Clock:               clock,
	})
	f.resolver = NewRoleResolver(f.store)

	for _, name := range roleNames {
		role := &domain.Role{Name: name, IsActive: true, Permissions: rolePermissions[name]}
		require.NoError(t, f.store.Roles().Create(f.ctx, role))
		f.roles[name] = role
	}

	f.admin = &domain.Admin{Name: "Reviewer", Email: "reviewer@example.com", IsActive: true}
	require.NoError(t, f.store.Admins().Create(f.ctx, f.admin))
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// customer creates an active user holding the global customer role.
func (f *fixture) customer(t *testing.T, email string) *domain.User {
	t.Helper()
	user := &domain.User{
		Name:        "Test User",
		Email:       &email,
		PrimaryRole: domain.RoleCustomer,
		IsActive:    true,
		KYCStatus:   domain.KYCPending,
	}
	require.NoError(t, f.store.Users().Create(f.ctx, user))
	if role, ok := f.roles["customer"]; ok {
		err := f.store.WithinTx(f.ctx, func(repos repository.Repositories) error {
			_, err := activatePrimaryRole(f.ctx, repos, activation{UserID: user.ID, Role: role, At: f.now})
			return err
		})
		require.NoError(t, err)
	}
	return user
}

func (f *fixture) user(t *testing.T, id string) *domain.User {
	t.Helper()
	user, err := f.store.Users().GetByID(f.ctx, id)
	require.NoError(t, err)
	return user
}

func (f *fixture) userRoles(t *testing.T, userID string) map[string]domain.UserRole {
	t.Helper()
	rows, err := f.store.UserRoles().ListByUser(f.ctx, userID)
	require.NoError(t, err)
	byRole := map[string]domain.UserRole{}
	for _, row := range rows {
		byRole[row.RoleID] = row
	}
	return byRole
}

func strPtr(s string) *string { return &s }
