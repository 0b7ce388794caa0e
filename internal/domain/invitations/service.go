package invitations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/brokers"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/rbac"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/users"
	"github.com/jmjalil96/CotizateAlgo/internal/ports/auth"
	"github.com/jmjalil96/CotizateAlgo/internal/ports/storage"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("invitation not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("invitation expired")
	ErrConsumed     = errors.New("invitation already accepted")
)

// Service maneja el ciclo de vida de invitaciones: enviar, listar y aceptar.
// La aceptación instancia el broker hijo, el perfil y el rol agent en una
// sola transacción; si algo falla no queda ni broker ni perfil huérfano y el
// usuario creado en el proveedor se borra como compensación.
type Service struct {
	repo     Repository
	brokers  *brokers.Service
	users    *users.Service
	rbac     *rbac.Service
	provider auth.AuthProvider
	signer   *TokenSigner
	txm      storage.TxManager
	now      func() time.Time
}

func NewService(
	repo Repository,
	brokersSvc *brokers.Service,
	usersSvc *users.Service,
	rbacSvc *rbac.Service,
	provider auth.AuthProvider,
	signer *TokenSigner,
	txm storage.TxManager,
) *Service {
	return &Service{
		repo:     repo,
		brokers:  brokersSvc,
		users:    usersSvc,
		rbac:     rbacSvc,
		provider: provider,
		signer:   signer,
		txm:      txm,
		now:      time.Now,
	}
}

type SendInput struct {
	Email                  string
	InvitedBy              string // Profile id del invitador
	ChildBrokerName        string
	ChildBrokerDescription string
}

// Send crea una invitación pendiente con vigencia de 7 días.
// Rechaza duplicados: un mismo email con una invitación pendiente y no vencida
// no recibe otra.
func (s *Service) Send(ctx context.Context, in SendInput) (Invitation, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	invitedBy := strings.TrimSpace(in.InvitedBy)
	childName := strings.TrimSpace(in.ChildBrokerName)

	if email == "" || invitedBy == "" || childName == "" {
		return Invitation{}, ErrInvalidInput
	}

	inviter, err := s.users.GetByID(ctx, invitedBy)
	if err != nil {
		return Invitation{}, fmt.Errorf("%w: inviter", ErrNotFound)
	}
	if inviter.IsSystemUser() {
		// Sin broker no hay jerarquía debajo de la cual colgar al hijo.
		return Invitation{}, fmt.Errorf("%w: inviter has no broker", ErrInvalidInput)
	}

	// Nombre de broker es único global; mejor rechazar ahora que al aceptar.
	if _, err := s.brokers.GetByName(ctx, childName); err == nil {
		return Invitation{}, fmt.Errorf("%w: broker name %q already exists", ErrConflict, childName)
	}

	now := s.now()
	existing, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		return Invitation{}, err
	}
	for _, prev := range existing {
		if prev.Status == StatusPending && !prev.Expired(now) {
			return Invitation{}, fmt.Errorf("%w: pending invitation already exists for %s", ErrConflict, email)
		}
	}

	inv := Invitation{
		ID:                     uuid.NewString(),
		Email:                  email,
		InvitedBy:              invitedBy,
		ParentBrokerID:         *inviter.BrokerID,
		ChildBrokerName:        childName,
		ChildBrokerDescription: strings.TrimSpace(in.ChildBrokerDescription),
		Status:                 StatusPending,
		ExpiresAt:              now.Add(InviteTTL),
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	token, err := s.signer.Sign(inv.ID, inv.Email, inv.ExpiresAt)
	if err != nil {
		return Invitation{}, err
	}
	inv.Token = token

	if err := s.repo.Create(ctx, inv); err != nil {
		return Invitation{}, err
	}
	return inv, nil
}

// ListByBrokers lista invitaciones cuyo broker padre cae en el set accesible.
func (s *Service) ListByBrokers(ctx context.Context, brokerIDs []string) ([]Invitation, error) {
	if len(brokerIDs) == 0 {
		return []Invitation{}, nil
	}
	return s.repo.ListByBrokers(ctx, brokerIDs)
}

type AcceptInput struct {
	Token     string
	Password  string
	FirstName string
	LastName  string
	CedulaRuc string
	Phone     string
}

type AcceptResult struct {
	Invitation Invitation
	Broker     brokers.Broker
	Profile    users.Profile
}

// Accept consume una invitación: valida el token, crea el usuario en el
// proveedor y, en una transacción, crea el broker hijo bajo el broker del
// invitador, el perfil y la asignación del rol agent, y marca la invitación
// como aceptada.
func (s *Service) Accept(ctx context.Context, in AcceptInput) (AcceptResult, error) {
	if s.provider == nil {
		return AcceptResult{}, fmt.Errorf("auth provider not configured")
	}

	token := strings.TrimSpace(in.Token)
	if token == "" || strings.TrimSpace(in.Password) == "" {
		return AcceptResult{}, ErrInvalidInput
	}

	if _, err := s.signer.Validate(token); err != nil {
		return AcceptResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	inv, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		return AcceptResult{}, ErrNotFound
	}
	if inv.Status == StatusAccepted {
		return AcceptResult{}, ErrConsumed
	}
	now := s.now()
	if inv.Expired(now) {
		return AcceptResult{}, fmt.Errorf("%w: expired at %s", ErrExpired, inv.ExpiresAt.Format(time.RFC3339))
	}

	agentRole, err := s.rbac.GetRoleByName(ctx, rbac.RoleAgent)
	if err != nil {
		return AcceptResult{}, err
	}

	providerUserID, err := s.provider.SignUp(ctx, auth.SignUpInput{
		Email:    inv.Email,
		Password: in.Password,
	})
	if err != nil {
		return AcceptResult{}, fmt.Errorf("auth provider sign-up failed: %w", err)
	}

	var res AcceptResult
	txErr := s.txm.RunInTx(ctx, func(ctx context.Context) error {
		child, err := s.brokers.Create(ctx, brokers.CreateInput{
			Name:        inv.ChildBrokerName,
			Description: inv.ChildBrokerDescription,
			ParentID:    &inv.ParentBrokerID,
		})
		if err != nil {
			return err
		}

		profile, err := s.users.Create(ctx, users.CreateInput{
			ID:        providerUserID,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			CedulaRuc: in.CedulaRuc,
			Phone:     in.Phone,
			BrokerID:  &child.ID,
		})
		if err != nil {
			return err
		}

		if err := s.rbac.AssignRole(ctx, profile.ID, agentRole.ID, inv.InvitedBy); err != nil {
			return err
		}

		inv.Status = StatusAccepted
		inv.UpdatedAt = now
		if err := s.repo.Update(ctx, inv); err != nil {
			return err
		}

		res = AcceptResult{Invitation: inv, Broker: child, Profile: profile}
		return nil
	})
	if txErr != nil {
		// Compensación: el usuario ya existe en el proveedor pero acá no quedó
		// nada. Best-effort; si el delete falla, el usuario queda huérfano en
		// el IdP sin acceso a datos locales.
		_ = s.provider.DeleteUser(ctx, providerUserID)
		return AcceptResult{}, txErr
	}

	return res, nil
}
