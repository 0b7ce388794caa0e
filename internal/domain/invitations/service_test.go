package invitations

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	mem "github.com/jmjalil96/CotizateAlgo/internal/adapters/storage/memory"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/brokers"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/rbac"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/users"
	"github.com/jmjalil96/CotizateAlgo/internal/ports/auth"
)

// -------------------------
// Provider fake
// -------------------------

type fakeProvider struct {
	seq     int
	created []string
	deleted []string
}

func (p *fakeProvider) Verify(ctx context.Context, token string) (auth.Claims, error) {
	return auth.Claims{UserID: token}, nil
}

func (p *fakeProvider) SignUp(ctx context.Context, in auth.SignUpInput) (string, error) {
	p.seq++
	id := fmt.Sprintf("idp-user-%d", p.seq)
	p.created = append(p.created, id)
	return id, nil
}

func (p *fakeProvider) SignIn(ctx context.Context, email, password string) (auth.Tokens, error) {
	return auth.Tokens{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3600}, nil
}

func (p *fakeProvider) SignOut(ctx context.Context, accessToken string) error { return nil }

func (p *fakeProvider) Refresh(ctx context.Context, refreshToken string) (auth.Tokens, error) {
	return auth.Tokens{AccessToken: "at2", RefreshToken: "rt2", ExpiresIn: 3600}, nil
}

func (p *fakeProvider) RequestPasswordReset(ctx context.Context, email string) error { return nil }

func (p *fakeProvider) DeleteUser(ctx context.Context, userID string) error {
	p.deleted = append(p.deleted, userID)
	return nil
}

// -------------------------
// Fixture
// -------------------------

type fixture struct {
	svc      *Service
	brokers  *brokers.Service
	users    *users.Service
	rbac     *rbac.Service
	provider *fakeProvider

	root    brokers.Broker
	inviter users.Profile
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := mem.NewStore()
	brokersSvc := brokers.NewService(mem.NewBrokersRepo(store))
	usersSvc := users.NewService(mem.NewUsersRepo(store))
	rbacSvc := rbac.NewService(mem.NewRBACRepo(store), store)
	if err := rbac.Seed(ctx, rbacSvc); err != nil {
		t.Fatalf("seed rbac: %v", err)
	}

	provider := &fakeProvider{}
	signer := NewTokenSigner([]byte("test-secret"))
	svc := NewService(mem.NewInvitationsRepo(store), brokersSvc, usersSvc, rbacSvc, provider, signer, store)

	root, err := brokersSvc.Create(ctx, brokers.CreateInput{Name: "corredora-raiz"})
	if err != nil {
		t.Fatalf("create root broker: %v", err)
	}
	inviter, err := usersSvc.Create(ctx, users.CreateInput{
		ID:        "inviter-1",
		FirstName: "Ana",
		CedulaRuc: "0912345678",
		BrokerID:  &root.ID,
	})
	if err != nil {
		t.Fatalf("create inviter: %v", err)
	}

	return &fixture{
		svc:      svc,
		brokers:  brokersSvc,
		users:    usersSvc,
		rbac:     rbacSvc,
		provider: provider,
		root:     root,
		inviter:  inviter,
	}
}

func (f *fixture) send(t *testing.T, email, childName string) Invitation {
	t.Helper()
	inv, err := f.svc.Send(context.Background(), SendInput{
		Email:           email,
		InvitedBy:       f.inviter.ID,
		ChildBrokerName: childName,
	})
	if err != nil {
		t.Fatalf("send invitation: %v", err)
	}
	return inv
}

// -------------------------
// Tests
// -------------------------

func TestSend_DuplicatePending(t *testing.T) {
	f := newFixture(t)

	f.send(t, "nuevo@corr.ec", "sub-uno")

	_, err := f.svc.Send(context.Background(), SendInput{
		Email:           "NUEVO@corr.ec", // el email se normaliza
		InvitedBy:       f.inviter.ID,
		ChildBrokerName: "sub-dos",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate pending, got %v", err)
	}
}

func TestSend_BrokerNameTaken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Send(context.Background(), SendInput{
		Email:           "otro@corr.ec",
		InvitedBy:       f.inviter.ID,
		ChildBrokerName: "corredora-raiz",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for taken broker name, got %v", err)
	}
}

func TestSend_SystemUserCannotInvite(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.Create(context.Background(), users.CreateInput{
		ID:        "sys-1",
		CedulaRuc: "0999999999",
	})
	if err != nil {
		t.Fatalf("create system user: %v", err)
	}

	_, err = f.svc.Send(context.Background(), SendInput{
		Email:           "x@corr.ec",
		InvitedBy:       "sys-1",
		ChildBrokerName: "sub-x",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for system inviter, got %v", err)
	}
}

func TestAccept_CreatesBrokerProfileAndRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.send(t, "agente@corr.ec", "sub-quito")

	res, err := f.svc.Accept(ctx, AcceptInput{
		Token:     inv.Token,
		Password:  "secreta123",
		FirstName: "Luis",
		CedulaRuc: "0955555555",
	})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}

	// broker hijo colgado del broker del invitador
	if res.Broker.ParentID == nil || *res.Broker.ParentID != f.root.ID {
		t.Fatalf("expected child under root, got %+v", res.Broker)
	}

	// el perfil queda en el broker hijo con el id del proveedor
	if res.Profile.BrokerID == nil || *res.Profile.BrokerID != res.Broker.ID {
		t.Fatalf("expected profile in child broker, got %+v", res.Profile)
	}
	if res.Profile.ID != f.provider.created[0] {
		t.Fatalf("profile id must be the provider user id")
	}

	// rol agent asignado
	roles, err := f.rbac.ListUserRoles(ctx, res.Profile.ID)
	if err != nil || len(roles) != 1 || roles[0].Name != rbac.RoleAgent {
		t.Fatalf("expected agent role, got %v (%v)", roles, err)
	}

	// estado de la invitación
	if res.Invitation.Status != StatusAccepted {
		t.Fatalf("expected accepted status, got %s", res.Invitation.Status)
	}

	// efectos en la jerarquía: el padre ve al hijo, el hijo no ve al padre
	if !f.brokers.CanUserAccessBroker(ctx, f.root.ID, res.Broker.ID) {
		t.Fatal("parent must reach the new child broker")
	}
	if f.brokers.CanUserAccessBroker(ctx, res.Broker.ID, f.root.ID) {
		t.Fatal("child must not reach the parent broker")
	}
}

func TestAccept_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.send(t, "tarde@corr.ec", "sub-tarde")

	// ocho días después
	f.svc.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }

	_, err := f.svc.Accept(ctx, AcceptInput{Token: inv.Token, Password: "secreta123", CedulaRuc: "0911111111"})
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	// nada quedó creado
	if _, err := f.brokers.GetByName(ctx, "sub-tarde"); err == nil {
		t.Fatal("expired accept must not create the child broker")
	}
	if len(f.provider.created) != 0 {
		t.Fatal("expired accept must not touch the provider")
	}
}

func TestAccept_Twice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inv := f.send(t, "doble@corr.ec", "sub-doble")

	if _, err := f.svc.Accept(ctx, AcceptInput{Token: inv.Token, Password: "secreta123", CedulaRuc: "0922222222"}); err != nil {
		t.Fatalf("first accept: %v", err)
	}

	_, err := f.svc.Accept(ctx, AcceptInput{Token: inv.Token, Password: "secreta123", CedulaRuc: "0933333333"})
	if !errors.Is(err, ErrConsumed) {
		t.Fatalf("expected ErrConsumed, got %v", err)
	}
}

func TestAccept_BadToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Accept(context.Background(), AcceptInput{Token: "garbage.token.here", Password: "secreta123"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad token, got %v", err)
	}
}

func TestAccept_RollbackCompensatesProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// el perfil nuevo va a chocar por cédula duplicada dentro de la transacción
	if _, err := f.users.Create(ctx, users.CreateInput{
		ID:        "existing",
		CedulaRuc: "0900000001",
		BrokerID:  &f.root.ID,
	}); err != nil {
		t.Fatalf("create existing profile: %v", err)
	}

	inv := f.send(t, "choque@corr.ec", "sub-choque")

	_, err := f.svc.Accept(ctx, AcceptInput{
		Token:     inv.Token,
		Password:  "secreta123",
		CedulaRuc: "0900000001",
	})
	if err == nil {
		t.Fatal("expected accept to fail on duplicate cedula")
	}

	// atomicidad: el broker hijo no puede haber quedado
	if _, err := f.brokers.GetByName(ctx, "sub-choque"); err == nil {
		t.Fatal("rollback must remove the child broker")
	}

	// la invitación sigue pendiente y reutilizable
	got, err := f.svc.ListByBrokers(ctx, []string{f.root.ID})
	if err != nil || len(got) != 1 {
		t.Fatalf("list invitations: %v (%d)", err, len(got))
	}
	if got[0].Status != StatusPending {
		t.Fatalf("invitation must stay pending, got %s", got[0].Status)
	}

	// compensación: el usuario del proveedor se borró
	if len(f.provider.created) != 1 || len(f.provider.deleted) != 1 {
		t.Fatalf("expected one created and one deleted provider user, got %v / %v", f.provider.created, f.provider.deleted)
	}
	if f.provider.deleted[0] != f.provider.created[0] {
		t.Fatal("compensation must delete the user that sign-up created")
	}
}
