package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/invitations"
)

type invitationsRepo struct {
	s *Store
}

func NewInvitationsRepo(s *Store) invitations.Repository {
	return &invitationsRepo{s: s}
}

func (r *invitationsRepo) Create(ctx context.Context, i invitations.Invitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if i.ID == "" {
		return errors.New("invitation id required")
	}
	if _, exists := r.s.invitations[i.ID]; exists {
		return errors.New("invitation already exists")
	}
	r.s.invitations[i.ID] = i
	return nil
}

func (r *invitationsRepo) Update(ctx context.Context, i invitations.Invitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.invitations[i.ID]; !exists {
		return ErrNotFound
	}
	r.s.invitations[i.ID] = i
	return nil
}

func (r *invitationsRepo) GetByID(ctx context.Context, id string) (invitations.Invitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	i, ok := r.s.invitations[id]
	if !ok {
		return invitations.Invitation{}, ErrNotFound
	}
	return i, nil
}

func (r *invitationsRepo) GetByToken(ctx context.Context, token string) (invitations.Invitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, i := range r.s.invitations {
		if i.Token == token {
			return i, nil
		}
	}
	return invitations.Invitation{}, ErrNotFound
}

func (r *invitationsRepo) ListByEmail(ctx context.Context, email string) ([]invitations.Invitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]invitations.Invitation, 0)
	for _, i := range r.s.invitations {
		if i.Email == email {
			out = append(out, i)
		}
	}
	sortByCreated(out)
	return out, nil
}

func (r *invitationsRepo) ListByBrokers(ctx context.Context, brokerIDs []string) ([]invitations.Invitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	allowed := make(map[string]struct{}, len(brokerIDs))
	for _, id := range brokerIDs {
		allowed[id] = struct{}{}
	}

	out := make([]invitations.Invitation, 0)
	for _, i := range r.s.invitations {
		if _, ok := allowed[i.ParentBrokerID]; ok {
			out = append(out, i)
		}
	}
	sortByCreated(out)
	return out, nil
}

func sortByCreated(items []invitations.Invitation) {
	sort.Slice(items, func(a, b int) bool {
		return items[a].CreatedAt.Before(items[b].CreatedAt)
	})
}
