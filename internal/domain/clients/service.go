package clients

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("client not found")
	ErrForbidden    = errors.New("forbidden")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	BrokerID  string
	FirstName string
	LastName  string
	CedulaRuc string
	Email     string
	Phone     string
}

// Create da de alta un cliente dentro de uno de los brokers permitidos por el
// filtro del request. El broker destino debe estar en allowedBrokerIDs.
func (s *Service) Create(ctx context.Context, allowedBrokerIDs []string, in CreateInput) (Client, error) {
	brokerID := strings.TrimSpace(in.BrokerID)
	if brokerID == "" || strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" {
		return Client{}, ErrInvalidInput
	}
	if !contains(allowedBrokerIDs, brokerID) {
		return Client{}, ErrForbidden
	}

	now := s.now()
	c := Client{
		ID:        uuid.NewString(),
		BrokerID:  brokerID,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		CedulaRuc: strings.TrimSpace(in.CedulaRuc),
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     strings.TrimSpace(in.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return Client{}, err
	}
	return c, nil
}

// GetByID devuelve el cliente solo si su broker cae dentro del filtro.
func (s *Service) GetByID(ctx context.Context, allowedBrokerIDs []string, id string) (Client, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Client{}, ErrInvalidInput
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Client{}, ErrNotFound
	}
	if !contains(allowedBrokerIDs, c.BrokerID) {
		return Client{}, ErrForbidden
	}
	return c, nil
}

// ListByBrokers lista clientes del set permitido. Vacío lista vacío.
func (s *Service) ListByBrokers(ctx context.Context, brokerIDs []string) ([]Client, error) {
	if len(brokerIDs) == 0 {
		return []Client{}, nil
	}
	return s.repo.ListByBrokers(ctx, brokerIDs)
}

type UpdateInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
}

func (s *Service) Update(ctx context.Context, allowedBrokerIDs []string, id string, in UpdateInput) (Client, error) {
	c, err := s.GetByID(ctx, allowedBrokerIDs, id)
	if err != nil {
		return Client{}, err
	}

	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		if v == "" {
			return Client{}, ErrInvalidInput
		}
		c.FirstName = v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if v == "" {
			return Client{}, ErrInvalidInput
		}
		c.LastName = v
	}
	if in.Email != nil {
		c.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Phone != nil {
		c.Phone = strings.TrimSpace(*in.Phone)
	}

	c.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, c); err != nil {
		return Client{}, err
	}
	return c, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
