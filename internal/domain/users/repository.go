package users

import "context"

type Repository interface {
	Create(ctx context.Context, p Profile) error
	Update(ctx context.Context, p Profile) error
	GetByID(ctx context.Context, id string) (Profile, error)
	GetByCedulaRuc(ctx context.Context, cedulaRuc string) (Profile, error)
	ListByBrokers(ctx context.Context, brokerIDs []string) ([]Profile, error)
}
