package memory

import (
	"context"
	"errors"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/clients"
)

type clientsRepo struct {
	s *Store
}

func NewClientsRepo(s *Store) clients.Repository {
	return &clientsRepo{s: s}
}

func (r *clientsRepo) Create(ctx context.Context, c clients.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if c.ID == "" {
		return errors.New("client id required")
	}
	if _, exists := r.s.clients[c.ID]; exists {
		return errors.New("client already exists")
	}
	r.s.clients[c.ID] = c
	return nil
}

func (r *clientsRepo) Update(ctx context.Context, c clients.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.clients[c.ID]; !exists {
		return ErrNotFound
	}
	r.s.clients[c.ID] = c
	return nil
}

func (r *clientsRepo) GetByID(ctx context.Context, id string) (clients.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.clients[id]
	if !ok {
		return clients.Client{}, ErrNotFound
	}
	return c, nil
}

func (r *clientsRepo) ListByBrokers(ctx context.Context, brokerIDs []string) ([]clients.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	allowed := make(map[string]struct{}, len(brokerIDs))
	for _, id := range brokerIDs {
		allowed[id] = struct{}{}
	}

	out := make([]clients.Client, 0)
	for _, c := range r.s.clients {
		if _, ok := allowed[c.BrokerID]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}
