package memory

import (
	"context"
	"time"

	"github.com/richharbor/access-service/internal/domain"
	"github.com/richharbor/access-service/internal/repository"
)

type leadRepo repos

func (r leadRepo) Create(_ context.Context, lead *domain.Lead) error {
	return r.run(func(st *state) error {
		if _, ok := st.users[lead.UserID]; !ok {
			return repository.ErrNotFound
		}
		now := r.clock()
		lead.ID = st.nextID()
		lead.CreatedAt, lead.UpdatedAt = now, now
		st.leads[lead.ID] = cloneLead(lead)
		return nil
	})
}

func (r leadRepo) GetByID(_ context.Context, id string) (*domain.Lead, error) {
	var out *domain.Lead
	err := r.run(func(st *state) error {
		l, ok := st.leads[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = cloneLead(l)
		return nil
	})
	return out, err
}

func (r leadRepo) ListByUser(_ context.Context, userID string, limit, offset int) ([]domain.Lead, error) {
	var out []domain.Lead
	err := r.run(func(st *state) error {
		ids := make([]string, 0)
		for id, l := range st.leads {
			if l.UserID == userID {
				ids = append(ids, id)
			}
		}
		st.newerFirst(ids, func(id string) time.Time { return st.leads[id].CreatedAt })
		start, end := page(len(ids), limit, offset)
		for _, id := range ids[start:end] {
			out = append(out, *cloneLead(st.leads[id]))
		}
		return nil
	})
	return out, err
}
