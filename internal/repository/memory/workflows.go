package memory

import (
	"context"
	"time"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
)

type roleUpgradeRepo repos

func (r roleUpgradeRepo) Create(_ context.Context, req *domain.RoleUpgradeRequest) error {
	return r.run(func(st *state) error {
		if err := st.checkOnePending(req); err != nil {
			return err
		}
		now := r.clock()
		req.ID = st.nextID()
		req.CreatedAt, req.UpdatedAt = now, now
		st.upgrades[req.ID] = cloneUpgrade(req)
		return nil
	})
}

func (r roleUpgradeRepo) Update(_ context.Context, req *domain.RoleUpgradeRequest) error {
	return r.run(func(st *state) error {
		if _, ok := st.upgrades[req.ID]; !ok {
			return repository.ErrNotFound
		}
		if err := st.checkOnePending(req); err != nil {
			return err
		}
		req.UpdatedAt = r.clock()
		st.upgrades[req.ID] = cloneUpgrade(req)
		return nil
	})
}

func (r roleUpgradeRepo) GetByID(_ context.Context, id string) (*domain.RoleUpgradeRequest, error) {
	var out *domain.RoleUpgradeRequest
	err := r.run(func(st *state) error {
		req, ok := st.upgrades[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = cloneUpgrade(req)
		return nil
	})
	return out, err
}

func (r roleUpgradeRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.RoleUpgradeRequest, error) {
	return r.GetByID(ctx, id)
}

func (r roleUpgradeRepo) FindPendingByUser(_ context.Context, userID string) (*domain.RoleUpgradeRequest, error) {
	var out *domain.RoleUpgradeRequest
	err := r.run(func(st *state) error {
		for _, req := range st.upgrades {
			if req.UserID == userID && req.IsPending() {
				out = cloneUpgrade(req)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r roleUpgradeRepo) LatestByUser(ctx context.Context, userID string) (*domain.RoleUpgradeRequest, error) {
	list, err := r.List(ctx, repository.RoleUpgradeFilter{UserID: &userID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, repository.ErrNotFound
	}
	return &list[0], nil
}

func (r roleUpgradeRepo) List(_ context.Context, filter repository.RoleUpgradeFilter) ([]domain.RoleUpgradeRequest, error) {
	var out []domain.RoleUpgradeRequest
	err := r.run(func(st *state) error {
		ids := make([]string, 0, len(st.upgrades))
		for id, req := range st.upgrades {
			if filter.Status != nil && req.Status != *filter.Status {
				continue
			}
			if filter.UserID != nil && req.UserID != *filter.UserID {
				continue
			}
			ids = append(ids, id)
		}
		st.newerFirst(ids, func(id string) time.Time { return st.upgrades[id].CreatedAt })
		start, end := page(len(ids), filter.Limit, filter.Offset)
		for _, id := range ids[start:end] {
			out = append(out, *cloneUpgrade(st.upgrades[id]))
		}
		return nil
	})
	return out, err
}

func (st *state) checkOnePending(candidate *domain.RoleUpgradeRequest) error {
	if !candidate.IsPending() {
		return nil
	}
	for id, req := range st.upgrades {
		if id != candidate.ID && req.UserID == candidate.UserID && req.IsPending() {
			return conflict(repository.ConstraintOnePendingUpgrade)
		}
	}
	return nil
}

type onboardingRepo repos

func (r onboardingRepo) Create(_ context.Context, app *domain.OnboardingApplication) error {
	return r.run(func(st *state) error {
		if err := st.checkApplicationUnique(app); err != nil {
			return err
		}
		now := r.clock()
		app.ID = st.nextID()
		app.CreatedAt, app.UpdatedAt = now, now
		st.applications[app.ID] = cloneApplication(app)
		return nil
	})
}

func (r onboardingRepo) Update(_ context.Context, app *domain.OnboardingApplication) error {
	return r.run(func(st *state) error {
		if _, ok := st.applications[app.ID]; !ok {
			return repository.ErrNotFound
		}
		if err := st.checkApplicationUnique(app); err != nil {
			return err
		}
		app.UpdatedAt = r.clock()
		st.applications[app.ID] = cloneApplication(app)
		return nil
	})
}

func (r onboardingRepo) GetByID(_ context.Context, id string) (*domain.OnboardingApplication, error) {
	var out *domain.OnboardingApplication
	err := r.run(func(st *state) error {
		app, ok := st.applications[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = cloneApplication(app)
		return nil
	})
	return out, err
}

func (r onboardingRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.OnboardingApplication, error) {
	return r.GetByID(ctx, id)
}

func (r onboardingRepo) GetByApprovalToken(_ context.Context, token string) (*domain.OnboardingApplication, error) {
	var out *domain.OnboardingApplication
	err := r.run(func(st *state) error {
		for _, app := range st.applications {
			if app.ApprovalToken != nil && *app.ApprovalToken == token {
				out = cloneApplication(app)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r onboardingRepo) FindOpenByUser(_ context.Context, userID string) (*domain.OnboardingApplication, error) {
	var out *domain.OnboardingApplication
	err := r.run(func(st *state) error {
		for _, app := range st.applications {
			if app.UserID == userID && app.IsOpen() {
				out = cloneApplication(app)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r onboardingRepo) LatestByUser(ctx context.Context, userID string) (*domain.OnboardingApplication, error) {
	list, _, err := r.List(ctx, repository.OnboardingFilter{UserID: &userID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, repository.ErrNotFound
	}
	return &list[0], nil
}

func (r onboardingRepo) List(_ context.Context, filter repository.OnboardingFilter) ([]domain.OnboardingApplication, int, error) {
	var out []domain.OnboardingApplication
	var total int
	err := r.run(func(st *state) error {
		ids := make([]string, 0, len(st.applications))
		for id, app := range st.applications {
			if filter.Status != nil && app.Status != *filter.Status {
				continue
			}
			if filter.UserID != nil && app.UserID != *filter.UserID {
				continue
			}
			ids = append(ids, id)
		}
		total = len(ids)
		st.newerFirst(ids, func(id string) time.Time { return st.applications[id].CreatedAt })
		start, end := page(len(ids), filter.Limit, filter.Offset)
		for _, id := range ids[start:end] {
			out = append(out, *cloneApplication(st.applications[id]))
		}
		return nil
	})
	return out, total, err
}

func (r onboardingRepo) CountByStatus(_ context.Context) (map[domain.OnboardingStatus]int, error) {
	counts := make(map[domain.OnboardingStatus]int)
	err := r.run(func(st *state) error {
		for _, app := range st.applications {
			counts[app.Status]++
		}
		return nil
	})
	return counts, err
}

func (st *state) checkApplicationUnique(candidate *domain.OnboardingApplication) error {
	for id, app := range st.applications {
		if id == candidate.ID {
			continue
		}
		if candidate.IsOpen() && app.IsOpen() && app.UserID == candidate.UserID {
			return conflict(repository.ConstraintOneOpenOnboarding)
		}
		if candidate.ApprovalToken != nil && app.ApprovalToken != nil && *candidate.ApprovalToken == *app.ApprovalToken {
			return conflict(repository.ConstraintOnboardingToken)
		}
	}
	return nil
}
