package clients

import "context"

type Repository interface {
	Create(ctx context.Context, c Client) error
	Update(ctx context.Context, c Client) error
	GetByID(ctx context.Context, id string) (Client, error)
	ListByBrokers(ctx context.Context, brokerIDs []string) ([]Client, error)
}
