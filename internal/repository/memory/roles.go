package memory

import (
	"context"
	"sort"
	"time"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
)

type roleRepo repos

func (r roleRepo) Create(_ context.Context, role *domain.Role) error {
	return r.run(func(st *state) error {
		for _, existing := range st.roles {
			if existing.Name == role.Name && domain.SameScope(existing.FranchiseID, role.FranchiseID) {
				return conflict(repository.ConstraintRoleNameScope)
			}
		}
		now := r.clock()
		role.ID = st.nextID()
		role.CreatedAt, role.UpdatedAt = now, now
		if role.Permissions == nil {
			role.Permissions = domain.Permissions{}
		}
		st.roles[role.ID] = cloneRole(role)
		return nil
	})
}

func (r roleRepo) Update(_ context.Context, role *domain.Role) error {
	return r.run(func(st *state) error {
		existing, ok := st.roles[role.ID]
		if !ok {
			return repository.ErrNotFound
		}
		// name and scope are immutable
		role.Name, role.FranchiseID = existing.Name, existing.FranchiseID
		role.UpdatedAt = r.clock()
		st.roles[role.ID] = cloneRole(role)
		return nil
	})
}

func (r roleRepo) GetByID(_ context.Context, id string) (*domain.Role, error) {
	var out *domain.Role
	err := r.run(func(st *state) error {
		role, ok := st.roles[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = cloneRole(role)
		return nil
	})
	return out, err
}

func (r roleRepo) FindByName(_ context.Context, name string, franchiseID *string) (*domain.Role, error) {
	var out *domain.Role
	err := r.run(func(st *state) error {
		for _, role := range st.roles {
			if role.Name == name && domain.SameScope(role.FranchiseID, franchiseID) {
				out = cloneRole(role)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r roleRepo) List(_ context.Context, filter repository.RoleFilter) ([]domain.Role, error) {
	var out []domain.Role
	err := r.run(func(st *state) error {
		for _, role := range st.roles {
			inScope := domain.SameScope(role.FranchiseID, filter.FranchiseID) ||
				(filter.IncludeGlobal && role.FranchiseID == nil)
			if inScope {
				out = append(out, *cloneRole(role))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

type userRoleRepo repos

func (r userRoleRepo) Create(_ context.Context, userRole *domain.UserRole) error {
	return r.run(func(st *state) error {
		if err := st.checkOnePrimary(userRole); err != nil {
			return err
		}
		now := r.clock()
		userRole.ID = st.nextID()
		userRole.CreatedAt, userRole.UpdatedAt = now, now
		if userRole.AssignedAt.IsZero() {
			userRole.AssignedAt = now
		}
		ur := *userRole
		st.userRoles[userRole.ID] = &ur
		return nil
	})
}

func (r userRoleRepo) Update(_ context.Context, userRole *domain.UserRole) error {
	return r.run(func(st *state) error {
		if _, ok := st.userRoles[userRole.ID]; !ok {
			return repository.ErrNotFound
		}
		if err := st.checkOnePrimary(userRole); err != nil {
			return err
		}
		userRole.UpdatedAt = r.clock()
		ur := *userRole
		st.userRoles[userRole.ID] = &ur
		return nil
	})
}

func (r userRoleRepo) ListByUser(_ context.Context, userID string) ([]domain.UserRole, error) {
	var out []domain.UserRole
	err := r.run(func(st *state) error {
		ids := make([]string, 0)
		for id, ur := range st.userRoles {
			if ur.UserID == userID {
				ids = append(ids, id)
			}
		}
		st.newerFirst(ids, func(id string) time.Time { return st.userRoles[id].AssignedAt })
		for _, id := range ids {
			out = append(out, *st.userRoles[id])
		}
		return nil
	})
	return out, err
}

func (r userRoleRepo) ListActiveAssignments(_ context.Context, userID string, franchiseID *string) ([]domain.RoleAssignment, error) {
	var out []domain.RoleAssignment
	err := r.run(func(st *state) error {
		ids := make([]string, 0)
		for id, ur := range st.userRoles {
			if ur.UserID != userID || !ur.IsActive {
				continue
			}
			if ur.FranchiseID != nil && !domain.SameScope(ur.FranchiseID, franchiseID) {
				continue
			}
			if _, ok := st.roles[ur.RoleID]; ok {
				ids = append(ids, id)
			}
		}
		st.newerFirst(ids, func(id string) time.Time { return st.userRoles[id].AssignedAt })
		for _, id := range ids {
			ur := st.userRoles[id]
			out = append(out, domain.RoleAssignment{UserRole: *ur, Role: *cloneRole(st.roles[ur.RoleID])})
		}
		return nil
	})
	return out, err
}

func (st *state) checkOnePrimary(candidate *domain.UserRole) error {
	if !candidate.IsActive || !candidate.IsPrimary {
		return nil
	}
	for id, ur := range st.userRoles {
		if id == candidate.ID || ur.UserID != candidate.UserID {
			continue
		}
		if ur.IsActive && ur.IsPrimary && domain.SameScope(ur.FranchiseID, candidate.FranchiseID) {
			return conflict(repository.ConstraintOneActivePrimary)
		}
	}
	return nil
}

type franchiseRepo repos

func (r franchiseRepo) Create(_ context.Context, franchise *domain.Franchise) error {
	return r.run(func(st *state) error {
		if err := st.checkFranchiseUnique(franchise, ""); err != nil {
			return err
		}
		now := r.clock()
		franchise.ID = st.nextID()
		franchise.CreatedAt, franchise.UpdatedAt = now, now
		f := *franchise
		st.franchises[franchise.ID] = &f
		return nil
	})
}

func (r franchiseRepo) Update(_ context.Context, franchise *domain.Franchise) error {
	return r.run(func(st *state) error {
		if _, ok := st.franchises[franchise.ID]; !ok {
			return repository.ErrNotFound
		}
		if err := st.checkFranchiseUnique(franchise, franchise.ID); err != nil {
			return err
		}
		franchise.UpdatedAt = r.clock()
		f := *franchise
		st.franchises[franchise.ID] = &f
		return nil
	})
}

func (r franchiseRepo) GetByID(_ context.Context, id string) (*domain.Franchise, error) {
	var out *domain.Franchise
	err := r.run(func(st *state) error {
		f, ok := st.franchises[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := *f
		out = &c
		return nil
	})
	return out, err
}

func (r franchiseRepo) List(_ context.Context, status *domain.FranchiseStatus) ([]domain.Franchise, error) {
	var out []domain.Franchise
	err := r.run(func(st *state) error {
		ids := make([]string, 0, len(st.franchises))
		for id, f := range st.franchises {
			if status == nil || f.Status == *status {
				ids = append(ids, id)
			}
		}
		st.newerFirst(ids, func(id string) time.Time { return st.franchises[id].CreatedAt })
		for _, id := range ids {
			out = append(out, *st.franchises[id])
		}
		return nil
	})
	return out, err
}

func (st *state) checkFranchiseUnique(franchise *domain.Franchise, selfID string) error {
	for id, existing := range st.franchises {
		if id == selfID {
			continue
		}
		if existing.Name == franchise.Name {
			return conflict(repository.ConstraintFranchiseName)
		}
		if existing.Subdomain == franchise.Subdomain {
			return conflict(repository.ConstraintFranchiseSubdomain)
		}
	}
	return nil
}
