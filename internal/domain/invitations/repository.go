package invitations

import "context"

type Repository interface {
	Create(ctx context.Context, i Invitation) error
	Update(ctx context.Context, i Invitation) error
	GetByID(ctx context.Context, id string) (Invitation, error)
	GetByToken(ctx context.Context, token string) (Invitation, error)
	ListByEmail(ctx context.Context, email string) ([]Invitation, error)
	ListByBrokers(ctx context.Context, brokerIDs []string) ([]Invitation, error)
}
