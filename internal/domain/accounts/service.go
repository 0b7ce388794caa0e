package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/brokers"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/rbac"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/users"
	"github.com/jmjalil96/CotizateAlgo/internal/ports/auth"
	"github.com/jmjalil96/CotizateAlgo/internal/ports/storage"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// Service implementa registro y sesión. Las credenciales viven en el
// proveedor de identidad; acá solo se orquesta y se persiste el lado local
// (broker raíz + perfil + rol broker_admin) de forma atómica.
type Service struct {
	brokers  *brokers.Service
	users    *users.Service
	rbac     *rbac.Service
	provider auth.AuthProvider
	txm      storage.TxManager
	now      func() time.Time
}

func NewService(
	brokersSvc *brokers.Service,
	usersSvc *users.Service,
	rbacSvc *rbac.Service,
	provider auth.AuthProvider,
	txm storage.TxManager,
) *Service {
	return &Service{
		brokers:  brokersSvc,
		users:    usersSvc,
		rbac:     rbacSvc,
		provider: provider,
		txm:      txm,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Email             string
	Password          string
	FirstName         string
	LastName          string
	CedulaRuc         string
	Phone             string
	BrokerName        string
	BrokerDescription string
}

type RegisterResult struct {
	Broker  brokers.Broker
	Profile users.Profile
}

// Register da de alta un broker raíz con su admin. Primero crea el usuario en
// el proveedor, después corre la transacción local {broker, perfil, rol
// broker_admin}; si la transacción falla, se borra el usuario del proveedor
// para no dejar identidades colgadas.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	if s.provider == nil {
		return RegisterResult{}, fmt.Errorf("%w: auth provider not configured", ErrUnauthorized)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || strings.TrimSpace(in.Password) == "" {
		return RegisterResult{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.BrokerName) == "" || strings.TrimSpace(in.CedulaRuc) == "" {
		return RegisterResult{}, ErrInvalidInput
	}

	// Chequeos de unicidad antes de tocar el proveedor: abortar acá es gratis.
	if _, err := s.brokers.GetByName(ctx, strings.TrimSpace(in.BrokerName)); err == nil {
		return RegisterResult{}, fmt.Errorf("%w: broker name already exists", ErrConflict)
	}
	adminRole, err := s.rbac.GetRoleByName(ctx, rbac.RoleBrokerAdmin)
	if err != nil {
		return RegisterResult{}, err
	}

	providerUserID, err := s.provider.SignUp(ctx, auth.SignUpInput{
		Email:    email,
		Password: in.Password,
	})
	if err != nil {
		return RegisterResult{}, fmt.Errorf("auth provider sign-up failed: %w", err)
	}

	var res RegisterResult
	txErr := s.txm.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.brokers.Create(ctx, brokers.CreateInput{
			Name:        in.BrokerName,
			Description: in.BrokerDescription,
		})
		if err != nil {
			return err
		}

		p, err := s.users.Create(ctx, users.CreateInput{
			ID:        providerUserID,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			CedulaRuc: in.CedulaRuc,
			Phone:     in.Phone,
			BrokerID:  &b.ID,
		})
		if err != nil {
			return err
		}

		if err := s.rbac.AssignRole(ctx, p.ID, adminRole.ID, p.ID); err != nil {
			return err
		}

		res = RegisterResult{Broker: b, Profile: p}
		return nil
	})
	if txErr != nil {
		_ = s.provider.DeleteUser(ctx, providerUserID)
		return RegisterResult{}, txErr
	}

	return res, nil
}

// Login delega en el proveedor y devuelve sus tokens tal cual.
func (s *Service) Login(ctx context.Context, email, password string) (auth.Tokens, error) {
	if s.provider == nil {
		return auth.Tokens{}, fmt.Errorf("%w: auth provider not configured", ErrUnauthorized)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return auth.Tokens{}, ErrInvalidInput
	}
	tokens, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return auth.Tokens{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return tokens, nil
}

func (s *Service) Logout(ctx context.Context, accessToken string) error {
	if s.provider == nil {
		return fmt.Errorf("%w: auth provider not configured", ErrUnauthorized)
	}
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return ErrInvalidInput
	}
	return s.provider.SignOut(ctx, accessToken)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (auth.Tokens, error) {
	if s.provider == nil {
		return auth.Tokens{}, fmt.Errorf("%w: auth provider not configured", ErrUnauthorized)
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return auth.Tokens{}, ErrInvalidInput
	}
	tokens, err := s.provider.Refresh(ctx, refreshToken)
	if err != nil {
		return auth.Tokens{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return tokens, nil
}

// RequestPasswordReset siempre responde sin revelar si el email existe;
// el proveedor decide si manda el correo.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if s.provider == nil {
		return fmt.Errorf("%w: auth provider not configured", ErrUnauthorized)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrInvalidInput
	}
	return s.provider.RequestPasswordReset(ctx, email)
}
