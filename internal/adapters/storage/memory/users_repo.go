package memory

import (
	"context"
	"errors"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/users"
)

type usersRepo struct {
	s *Store
}

func NewUsersRepo(s *Store) users.Repository {
	return &usersRepo{s: s}
}

func (r *usersRepo) Create(ctx context.Context, p users.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if p.ID == "" {
		return errors.New("profile id required")
	}
	if _, exists := r.s.profiles[p.ID]; exists {
		return errors.New("profile already exists")
	}
	r.s.profiles[p.ID] = p
	return nil
}

func (r *usersRepo) Update(ctx context.Context, p users.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.profiles[p.ID]; !exists {
		return ErrNotFound
	}
	r.s.profiles[p.ID] = p
	return nil
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (users.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.profiles[id]
	if !ok {
		return users.Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *usersRepo) GetByCedulaRuc(ctx context.Context, cedulaRuc string) (users.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.profiles {
		if p.CedulaRuc == cedulaRuc {
			return p, nil
		}
	}
	return users.Profile{}, ErrNotFound
}

func (r *usersRepo) ListByBrokers(ctx context.Context, brokerIDs []string) ([]users.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	allowed := make(map[string]struct{}, len(brokerIDs))
	for _, id := range brokerIDs {
		allowed[id] = struct{}{}
	}

	out := make([]users.Profile, 0)
	for _, p := range r.s.profiles {
		if p.BrokerID == nil {
			continue
		}
		if _, ok := allowed[*p.BrokerID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
