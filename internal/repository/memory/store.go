// Package memory provides an in-process repository.Store used by tests and by
// development mode when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
	apperrors "github.com/richharbor/access-service/pkg/util/errorutil"
)

// Store keeps every entity in maps guarded by one mutex. A transaction holds
// the mutex for its whole duration and works on a copy that replaces the live
// state only on success.
type Store struct {
	mu    sync.Mutex
	data  *state
	clock func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{data: newState(), clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repository.Store = (*Store)(nil)

type runner func(func(*state) error) error

func (s *Store) autocommit(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// WithinTx must not be called re-entrantly, and fn must only use the
// repositories it is given.
func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewStoreUnavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	run := func(f func(*state) error) error { return f(work) }
	if err := fn(repos{run: run, clock: s.clock}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) repos() repos {
	return repos{run: s.autocommit, clock: s.clock}
}

func (s *Store) Users() repository.UserRepository               { return s.repos().Users() }
func (s *Store) Roles() repository.RoleRepository               { return s.repos().Roles() }
func (s *Store) UserRoles() repository.UserRoleRepository       { return s.repos().UserRoles() }
func (s *Store) Franchises() repository.FranchiseRepository     { return s.repos().Franchises() }
func (s *Store) RoleUpgrades() repository.RoleUpgradeRepository { return s.repos().RoleUpgrades() }
func (s *Store) Onboarding() repository.OnboardingRepository    { return s.repos().Onboarding() }
func (s *Store) Admins() repository.AdminRepository             { return s.repos().Admins() }
func (s *Store) Leads() repository.LeadRepository               { return s.repos().Leads() }

type repos struct {
	run   runner
	clock func() time.Time
}

func (r repos) Users() repository.UserRepository               { return userRepo(r) }
func (r repos) Roles() repository.RoleRepository               { return roleRepo(r) }
func (r repos) UserRoles() repository.UserRoleRepository       { return userRoleRepo(r) }
func (r repos) Franchises() repository.FranchiseRepository     { return franchiseRepo(r) }
func (r repos) RoleUpgrades() repository.RoleUpgradeRepository { return roleUpgradeRepo(r) }
func (r repos) Onboarding() repository.OnboardingRepository    { return onboardingRepo(r) }
func (r repos) Admins() repository.AdminRepository             { return adminRepo(r) }
func (r repos) Leads() repository.LeadRepository               { return leadRepo(r) }

type state struct {
	users        map[string]*domain.User
	roles        map[string]*domain.Role
	userRoles    map[string]*domain.UserRole
	franchises   map[string]*domain.Franchise
	upgrades     map[string]*domain.RoleUpgradeRequest
	applications map[string]*domain.OnboardingApplication
	admins       map[string]*domain.Admin
	adminRoles   map[string]*domain.AdminRole
	leads        map[string]*domain.Lead
	// insertion sequence per id, used to break created_at ties
	order map[string]int64
	seq   int64
}

func newState() *state {
	return &state{
		users:        map[string]*domain.User{},
		roles:        map[string]*domain.Role{},
		userRoles:    map[string]*domain.UserRole{},
		franchises:   map[string]*domain.Franchise{},
		upgrades:     map[string]*domain.RoleUpgradeRequest{},
		applications: map[string]*domain.OnboardingApplication{},
		admins:       map[string]*domain.Admin{},
		adminRoles:   map[string]*domain.AdminRole{},
		leads:        map[string]*domain.Lead{},
		order:        map[string]int64{},
	}
}

func (s *state) nextID() string {
	id := uuid.NewString()
	s.seq++
	s.order[id] = s.seq
	return id
}

// newerFirst orders by created_at descending, latest insert first on ties.
func (s *state) newerFirst(ids []string, createdAt func(string) time.Time) {
	sort.SliceStable(ids, func(i, j int) bool {
		ti, tj := createdAt(ids[i]), createdAt(ids[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return s.order[ids[i]] > s.order[ids[j]]
	})
}

func (s *state) clone() *state {
	c := newState()
	for id, v := range s.users {
		c.users[id] = cloneUser(v)
	}
	for id, v := range s.roles {
		c.roles[id] = cloneRole(v)
	}
	for id, v := range s.userRoles {
		ur := *v
		c.userRoles[id] = &ur
	}
	for id, v := range s.franchises {
		f := *v
		c.franchises[id] = &f
	}
	for id, v := range s.upgrades {
		c.upgrades[id] = cloneUpgrade(v)
	}
	for id, v := range s.applications {
		c.applications[id] = cloneApplication(v)
	}
	for id, v := range s.admins {
		a := *v
		c.admins[id] = &a
	}
	for id, v := range s.adminRoles {
		c.adminRoles[id] = cloneAdminRole(v)
	}
	for id, v := range s.leads {
		c.leads[id] = cloneLead(v)
	}
	for id, seq := range s.order {
		c.order[id] = seq
	}
	c.seq = s.seq
	return c
}

// Pointer fields are treated as immutable values; callers replace rather than
// mutate them, so only maps and slices need copying.

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func clonePermissions(p domain.Permissions) domain.Permissions {
	if p == nil {
		return nil
	}
	out := make(domain.Permissions, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.ProfileData = cloneMap(u.ProfileData)
	return &c
}

func cloneRole(r *domain.Role) *domain.Role {
	c := *r
	c.Permissions = clonePermissions(r.Permissions)
	return &c
}

func cloneAdminRole(r *domain.AdminRole) *domain.AdminRole {
	c := *r
	c.Permissions = clonePermissions(r.Permissions)
	return &c
}

func cloneUpgrade(r *domain.RoleUpgradeRequest) *domain.RoleUpgradeRequest {
	c := *r
	c.BusinessData = cloneMap(r.BusinessData)
	return &c
}

func cloneApplication(a *domain.OnboardingApplication) *domain.OnboardingApplication {
	c := *a
	c.CompletedSteps = append([]int(nil), a.CompletedSteps...)
	c.FormData = cloneMap(a.FormData)
	c.Documents = cloneMap(a.Documents)
	return &c
}

func cloneLead(l *domain.Lead) *domain.Lead {
	c := *l
	c.ProductDetails = cloneMap(l.ProductDetails)
	return &c
}

func conflict(constraint string) error {
	return &repository.ConflictError{Constraint: constraint}
}

func page(n, limit, offset int) (int, int) {
	limit, offset = repository.NormalizePage(limit, offset)
	if offset > n {
		offset = n
	}
	end := offset + limit
	if end > n {
		end = n
	}
	return offset, end
}
