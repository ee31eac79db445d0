package memory

import (
	"context"
	"sort"

	"github.com/iliyamo/acdoc-booking/internal/model"
	"github.com/iliyamo/acdoc-booking/internal/repository"
)

// ServiceRepo implements repository.ServiceRepository.
type ServiceRepo struct{ s *Store }

func (r *ServiceRepo) nameTaken(name, exceptID string) bool {
	for _, e := range r.s.services {
		if e.Name == name && e.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *ServiceRepo) Create(_ context.Context, svc *model.Service) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.services[svc.ID]; ok || r.nameTaken(svc.Name, "") {
		return repository.ErrDuplicate
	}
	now := r.s.now()
	svc.CreatedAt, svc.UpdatedAt = now, now
	cp := *svc
	r.s.services[svc.ID] = &cp
	return nil
}

func (r *ServiceRepo) GetByID(_ context.Context, id string) (*model.Service, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	svc, ok := r.s.services[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *svc
	return &cp, nil
}

func (r *ServiceRepo) List(_ context.Context, activeOnly bool) ([]model.Service, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Service{}
	for _, svc := range r.s.services {
		if activeOnly && !svc.IsActive {
			continue
		}
		out = append(out, *svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ServiceRepo) Update(_ context.Context, svc *model.Service) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.services[svc.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.nameTaken(svc.Name, svc.ID) {
		return repository.ErrDuplicate
	}
	svc.CreatedAt, svc.UpdatedAt = cur.CreatedAt, r.s.now()
	cp := *svc
	r.s.services[svc.ID] = &cp
	return nil
}

// AddressRepo implements repository.AddressRepository.
type AddressRepo struct{ s *Store }

func (r *AddressRepo) Create(_ context.Context, a *model.Address) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.addresses[a.ID]; ok {
		return repository.ErrDuplicate
	}
	now := r.s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	r.s.addresses[a.ID] = &cp
	return nil
}

func (r *AddressRepo) GetByID(_ context.Context, id string) (*model.Address, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.addresses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *AddressRepo) ListByUser(_ context.Context, userID string) ([]model.Address, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Address{}
	for _, a := range r.s.addresses {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *AddressRepo) Update(_ context.Context, a *model.Address) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.addresses[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	a.UserID, a.CreatedAt, a.UpdatedAt = cur.UserID, cur.CreatedAt, r.s.now()
	cp := *a
	r.s.addresses[a.ID] = &cp
	return nil
}

func (r *AddressRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.addresses[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.addresses, id)
	return nil
}

var (
	_ repository.ServiceRepository = (*ServiceRepo)(nil)
	_ repository.AddressRepository = (*AddressRepo)(nil)
)
