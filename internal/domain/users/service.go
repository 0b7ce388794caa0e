package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("user not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
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
	ID        string // id del proveedor de identidad
	FirstName string
	LastName  string
	CedulaRuc string
	Phone     string
	BrokerID  *string
}

// Create da de alta un perfil. La cédula/RUC es única a nivel sistema.
func (s *Service) Create(ctx context.Context, in CreateInput) (Profile, error) {
	id := strings.TrimSpace(in.ID)
	cedula := strings.TrimSpace(in.CedulaRuc)
	// Los nombres pueden llegar vacíos (el invitado los completa después por
	// PATCH); el id del proveedor y la cédula son obligatorios.
	if id == "" || cedula == "" {
		return Profile{}, ErrInvalidInput
	}

	if _, err := s.repo.GetByCedulaRuc(ctx, cedula); err == nil {
		return Profile{}, fmt.Errorf("%w: cedula/RUC already registered", ErrConflict)
	}

	now := s.now()
	p := Profile{
		ID:        id,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		CedulaRuc: cedula,
		Phone:     strings.TrimSpace(in.Phone),
		BrokerID:  in.BrokerID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Profile{}, ErrInvalidInput
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

// ListByBrokers lista perfiles filtrados al set de brokers accesibles del
// caller. Un set vacío devuelve vacío, nunca "todos".
func (s *Service) ListByBrokers(ctx context.Context, brokerIDs []string) ([]Profile, error) {
	if len(brokerIDs) == 0 {
		return []Profile{}, nil
	}
	return s.repo.ListByBrokers(ctx, brokerIDs)
}

type UpdateInput struct {
	// Punteros para PATCH real: nil = no tocar.
	FirstName *string
	LastName  *string
	Phone     *string
}

// Update aplica un patch de campos simples. Last-writer-wins: no hay tokens
// de concurrencia optimista en estos updates.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Profile, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}

	if in.FirstName != nil {
		v := strings.TrimSpace(*in.FirstName)
		if v == "" {
			return Profile{}, ErrInvalidInput
		}
		p.FirstName = v
	}
	if in.LastName != nil {
		v := strings.TrimSpace(*in.LastName)
		if v == "" {
			return Profile{}, ErrInvalidInput
		}
		p.LastName = v
	}
	if in.Phone != nil {
		p.Phone = strings.TrimSpace(*in.Phone)
	}

	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Deactivate marca el perfil inactivo. No se borran perfiles en este flujo.
func (s *Service) Deactivate(ctx context.Context, id string) (Profile, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if !p.IsActive {
		return p, nil // idempotente
	}
	p.IsActive = false
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// BrokerOf expone el broker de un usuario para el engine de permisos.
// Se usa para evitar ciclos de imports entre módulos (users <-> rbac).
// Usuario de sistema: broker vacío sin error.
func (s *Service) BrokerOf(ctx context.Context, userID string) (string, error) {
	p, err := s.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if p.BrokerID == nil {
		return "", nil
	}
	return *p.BrokerID, nil
}
