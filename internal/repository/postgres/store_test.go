package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/persistence"
	"github.com/richharbor/access-service/internal/repository"
	"github.com/richharbor/access-service/internal/repository/postgres"
)

// ACCESS_TEST_POSTGRES_DSN points at a disposable database; the tests are
// skipped without it.
func newStore(t *testing.T) (context.Context, *postgres.Store) {
	t.Helper()
	dsn := os.Getenv("ACCESS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ACCESS_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	require.NoError(t, persistence.RunMigrations(ctx, dsn, zap.NewNop()))
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return ctx, postgres.NewStore(pool)
}

func unique(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func createUser(t *testing.T, ctx context.Context, repos repository.Repositories, franchiseID *string) *domain.User {
	t.Helper()
	email := unique("user") + "@example.com"
	phone := "+91" + uuid.NewString()[:10]
	user := &domain.User{
		Name:         "Integration",
		Email:        &email,
		Phone:        &phone,
		PasswordHash: "hash",
		PrimaryRole:  domain.RoleCustomer,
		FranchiseID:  franchiseID,
		IsActive:     true,
		ProfileData:  map[string]any{"source": "test"},
	}
	require.NoError(t, repos.Users().Create(ctx, user))
	return user
}

func TestUserLookupsAndConstraints(t *testing.T) {
	ctx, store := newStore(t)
	user := createUser(t, ctx, store, nil)

	byEmail, err := store.Users().GetByEmail(ctx, *user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "test", byEmail.ProfileData["source"])

	byPhone, err := store.Users().GetByPhone(ctx, *user.Phone)
	require.NoError(t, err)
	assert.Equal(t, user.ID, byPhone.ID)

	dup := &domain.User{Email: user.Email, PasswordHash: "hash", PrimaryRole: domain.RoleCustomer, IsActive: true}
	err = store.Users().Create(ctx, dup)
	assert.True(t, repository.IsConstraint(err, repository.ConstraintUserEmail), err)

	_, err = store.Users().GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = store.Users().GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestActiveAssignmentsFollowFranchiseScope(t *testing.T) {
	ctx, store := newStore(t)

	franchise := &domain.Franchise{Name: unique("franchise"), Subdomain: unique("sub"), Status: domain.FranchiseStatusActive}
	require.NoError(t, store.Franchises().Create(ctx, franchise))
	other := &domain.Franchise{Name: unique("franchise"), Subdomain: unique("sub"), Status: domain.FranchiseStatusActive}
	require.NoError(t, store.Franchises().Create(ctx, other))

	customer, err := store.Roles().FindByName(ctx, "customer", nil)
	require.NoError(t, err)
	local := &domain.Role{Name: unique("desk"), IsActive: true, FranchiseID: &franchise.ID, Permissions: domain.Permissions{"leads": domain.LevelRead}}
	require.NoError(t, store.Roles().Create(ctx, local))

	user := createUser(t, ctx, store, &franchise.ID)
	now := time.Now().UTC()
	require.NoError(t, store.UserRoles().Create(ctx, &domain.UserRole{UserID: user.ID, RoleID: customer.ID, IsActive: true, IsPrimary: true, AssignedAt: now}))
	require.NoError(t, store.UserRoles().Create(ctx, &domain.UserRole{UserID: user.ID, RoleID: local.ID, IsActive: true, FranchiseID: &franchise.ID, AssignedAt: now.Add(time.Second)}))

	global, err := store.UserRoles().ListActiveAssignments(ctx, user.ID, nil)
	require.NoError(t, err)
	require.Len(t, global, 1)
	assert.Equal(t, "customer", global[0].Role.Name)

	scoped, err := store.UserRoles().ListActiveAssignments(ctx, user.ID, &franchise.ID)
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	assert.Equal(t, local.ID, scoped[0].RoleID)
	assert.Equal(t, domain.LevelRead, scoped[0].Role.Permissions["leads"])

	elsewhere, err := store.UserRoles().ListActiveAssignments(ctx, user.ID, &other.ID)
	require.NoError(t, err)
	assert.Len(t, elsewhere, 1)

	err = store.UserRoles().Create(ctx, &domain.UserRole{UserID: user.ID, RoleID: local.ID, IsActive: true, IsPrimary: true, AssignedAt: now})
	assert.True(t, repository.IsConstraint(err, repository.ConstraintOneActivePrimary), err)
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx, store := newStore(t)

	var email string
	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(repos repository.Repositories) error {
		user := createUser(t, ctx, repos, nil)
		email = *user.Email
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Users().GetByEmail(ctx, email)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLeadsListNewestFirst(t *testing.T) {
	ctx, store := newStore(t)
	user := createUser(t, ctx, store, nil)

	for _, name := range []string{"first", "second"} {
		lead := &domain.Lead{
			UserID:          user.ID,
			ProductType:     "mf",
			LeadType:        domain.LeadTypeSelf,
			Status:          domain.LeadStatusNew,
			IncentiveType:   domain.LeadTypeSelf.Incentive(),
			IncentiveStatus: domain.IncentivePending,
			Name:            name,
		}
		require.NoError(t, store.Leads().Create(ctx, lead))
	}

	list, err := store.Leads().ListByUser(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Name)
	assert.NotNil(t, list[0].ProductDetails)

	cold := &domain.Lead{UserID: user.ID, ProductType: "mf", LeadType: domain.LeadTypeCold, Status: domain.LeadStatusNew, IncentiveType: "x", IncentiveStatus: domain.IncentivePending, Name: "c"}
	assert.Error(t, store.Leads().Create(ctx, cold))
}
