package memory

import (
	"context"
	"strings"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
)

type userRepo repos

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	return r.run(func(st *state) error {
		if err := st.checkUserUnique(user, ""); err != nil {
			return err
		}
		now := r.clock()
		user.ID = st.nextID()
		user.CreatedAt, user.UpdatedAt = now, now
		if user.KYCStatus == "" {
			user.KYCStatus = domain.KYCPending
		}
		st.users[user.ID] = cloneUser(user)
		return nil
	})
}

func (r userRepo) Update(_ context.Context, user *domain.User) error {
	return r.run(func(st *state) error {
		if _, ok := st.users[user.ID]; !ok {
			return repository.ErrNotFound
		}
		if err := st.checkUserUnique(user, user.ID); err != nil {
			return err
		}
		user.UpdatedAt = r.clock()
		st.users[user.ID] = cloneUser(user)
		return nil
	})
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.run(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = cloneUser(u)
		return nil
	})
	return out, err
}

func (r userRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.run(func(st *state) error {
		for _, u := range st.users {
			if u.Email != nil && strings.EqualFold(*u.Email, email) {
				out = cloneUser(u)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r userRepo) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	var out *domain.User
	err := r.run(func(st *state) error {
		for _, u := range st.users {
			if u.Phone != nil && *u.Phone == phone {
				out = cloneUser(u)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (st *state) checkUserUnique(user *domain.User, selfID string) error {
	for id, existing := range st.users {
		if id == selfID {
			continue
		}
		if user.Email != nil && existing.Email != nil && strings.EqualFold(*user.Email, *existing.Email) {
			return conflict(repository.ConstraintUserEmail)
		}
		if user.Phone != nil && existing.Phone != nil && *user.Phone == *existing.Phone {
			return conflict(repository.ConstraintUserPhone)
		}
	}
	return nil
}

type adminRepo repos

func (r adminRepo) Create(_ context.Context, admin *domain.Admin) error {
	return r.run(func(st *state) error {
		for _, existing := range st.admins {
			if strings.EqualFold(existing.Email, admin.Email) {
				return conflict(repository.ConstraintAdminEmail)
			}
		}
		now := r.clock()
		admin.ID = st.nextID()
		admin.CreatedAt, admin.UpdatedAt = now, now
		a := *admin
		st.admins[admin.ID] = &a
		return nil
	})
}

func (r adminRepo) Update(_ context.Context, admin *domain.Admin) error {
	return r.run(func(st *state) error {
		if _, ok := st.admins[admin.ID]; !ok {
			return repository.ErrNotFound
		}
		admin.UpdatedAt = r.clock()
		a := *admin
		st.admins[admin.ID] = &a
		return nil
	})
}

func (r adminRepo) GetByID(_ context.Context, id string) (*domain.Admin, error) {
	var out *domain.Admin
	err := r.run(func(st *state) error {
		a, ok := st.admins[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := *a
		out = &c
		return nil
	})
	return out, err
}

func (r adminRepo) GetByEmail(_ context.Context, email string) (*domain.Admin, error) {
	var out *domain.Admin
	err := r.run(func(st *state) error {
		for _, a := range st.admins {
			if strings.EqualFold(a.Email, email) {
				c := *a
				out = &c
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r adminRepo) CreateRole(_ context.Context, role *domain.AdminRole) error {
	return r.run(func(st *state) error {
		for _, existing := range st.adminRoles {
			if existing.Name == role.Name {
				return conflict(repository.ConstraintAdminRoleName)
			}
		}
		now := r.clock()
		role.ID = st.nextID()
		role.CreatedAt, role.UpdatedAt = now, now
		if role.Permissions == nil {
			role.Permissions = domain.Permissions{}
		}
		st.adminRoles[role.ID] = cloneAdminRole(role)
		return nil
	})
}

func (r adminRepo) GetRole(_ context.Context, id string) (*domain.AdminRole, error) {
	var out *domain.AdminRole
	err := r.run(func(st *state) error {
		role, ok := st.adminRoles[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = cloneAdminRole(role)
		return nil
	})
	return out, err
}

func (r adminRepo) FindRoleByName(_ context.Context, name string) (*domain.AdminRole, error) {
	var out *domain.AdminRole
	err := r.run(func(st *state) error {
		for _, role := range st.adminRoles {
			if role.Name == name {
				out = cloneAdminRole(role)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}
