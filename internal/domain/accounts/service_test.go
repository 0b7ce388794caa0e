package accounts

import (
	"context"
	"errors"
	"fmt"
	"testing"

	mem "github.com/jmjalil96/CotizateAlgo/internal/adapters/storage/memory"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/brokers"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/rbac"
	"github.com/jmjalil96/CotizateAlgo/internal/domain/users"
	"github.com/jmjalil96/CotizateAlgo/internal/ports/auth"
)

type fakeProvider struct {
	seq        int
	created    []string
	deleted    []string
	signInErr  error
	refreshErr error
}

func (p *fakeProvider) Verify(ctx context.Context, token string) (auth.Claims, error) {
	return auth.Claims{UserID: token}, nil
}

func (p *fakeProvider) SignUp(ctx context.Context, in auth.SignUpInput) (string, error) {
	p.seq++
	id := fmt.Sprintf("idp-%d", p.seq)
	p.created = append(p.created, id)
	return id, nil
}

func (p *fakeProvider) SignIn(ctx context.Context, email, password string) (auth.Tokens, error) {
	if p.signInErr != nil {
		return auth.Tokens{}, p.signInErr
	}
	return auth.Tokens{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 3600}, nil
}

func (p *fakeProvider) SignOut(ctx context.Context, accessToken string) error { return nil }

func (p *fakeProvider) Refresh(ctx context.Context, refreshToken string) (auth.Tokens, error) {
	if p.refreshErr != nil {
		return auth.Tokens{}, p.refreshErr
	}
	return auth.Tokens{AccessToken: "access-2", RefreshToken: "refresh-2", ExpiresIn: 3600}, nil
}

func (p *fakeProvider) RequestPasswordReset(ctx context.Context, email string) error { return nil }

func (p *fakeProvider) DeleteUser(ctx context.Context, userID string) error {
	p.deleted = append(p.deleted, userID)
	return nil
}

type fixture struct {
	svc      *Service
	brokers  *brokers.Service
	users    *users.Service
	rbac     *rbac.Service
	provider *fakeProvider
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
	return &fixture{
		svc:      NewService(brokersSvc, usersSvc, rbacSvc, provider, store),
		brokers:  brokersSvc,
		users:    usersSvc,
		rbac:     rbacSvc,
		provider: provider,
	}
}

func validInput() RegisterInput {
	return RegisterInput{
		Email:      "Admin@Corr.EC",
		Password:   "secreta123",
		FirstName:  "Mara",
		CedulaRuc:  "0912345678",
		BrokerName: "corredora-andes",
	}
}

func TestRegister_CreatesRootBrokerWithAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, validInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if !res.Broker.IsRoot() {
		t.Fatalf("expected root broker, got parent %v", res.Broker.ParentID)
	}
	if res.Profile.BrokerID == nil || *res.Profile.BrokerID != res.Broker.ID {
		t.Fatalf("profile must belong to the new broker")
	}
	if res.Profile.ID != f.provider.created[0] {
		t.Fatal("profile id must be the provider user id")
	}

	roles, err := f.rbac.ListUserRoles(ctx, res.Profile.ID)
	if err != nil || len(roles) != 1 || roles[0].Name != rbac.RoleBrokerAdmin {
		t.Fatalf("expected broker_admin role, got %v (%v)", roles, err)
	}
}

func TestRegister_BrokerNameConflictBeforeProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, validInput()); err != nil {
		t.Fatalf("first register: %v", err)
	}

	in := validInput()
	in.Email = "otra@corr.ec"
	in.CedulaRuc = "0999999999"
	_, err := f.svc.Register(ctx, in)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	// el segundo intento nunca debió llegar al proveedor
	if len(f.provider.created) != 1 {
		t.Fatalf("provider sign-up must not run on early conflict, got %v", f.provider.created)
	}
}

func TestRegister_RollbackCompensatesProvider(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, validInput()); err != nil {
		t.Fatalf("first register: %v", err)
	}

	// mismo dueño (cédula) con otro broker: la transacción falla en el perfil
	in := validInput()
	in.Email = "otra@corr.ec"
	in.BrokerName = "corredora-sierra"
	_, err := f.svc.Register(ctx, in)
	if !errors.Is(err, users.ErrConflict) {
		t.Fatalf("expected cedula conflict, got %v", err)
	}

	// atomicidad: el segundo broker no quedó
	if _, err := f.brokers.GetByName(ctx, "corredora-sierra"); err == nil {
		t.Fatal("rollback must remove the broker")
	}
	// compensación en el proveedor
	if len(f.provider.created) != 2 || len(f.provider.deleted) != 1 {
		t.Fatalf("expected compensation delete, created=%v deleted=%v", f.provider.created, f.provider.deleted)
	}
	if f.provider.deleted[0] != f.provider.created[1] {
		t.Fatal("compensation must delete the user that sign-up created")
	}
}

func TestRegister_InvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"empty email", func(in *RegisterInput) { in.Email = "  " }},
		{"empty password", func(in *RegisterInput) { in.Password = "" }},
		{"empty broker name", func(in *RegisterInput) { in.BrokerName = "" }},
		{"empty cedula", func(in *RegisterInput) { in.CedulaRuc = "" }},
	}
	for _, tc := range cases {
		in := validInput()
		tc.mutate(&in)
		if _, err := f.svc.Register(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestRegister_NoProviderConfigured(t *testing.T) {
	f := newFixture(t)
	svc := NewService(f.brokers, f.users, f.rbac, nil, mem.NewStore())

	_, err := svc.Register(context.Background(), validInput())
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized without provider, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tokens, err := f.svc.Login(ctx, "Admin@Corr.EC", "secreta123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected provider tokens, got %+v", tokens)
	}

	if _, err := f.svc.Login(ctx, "", "x"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	f.provider.signInErr = errors.New("invalid credentials")
	if _, err := f.svc.Login(ctx, "admin@corr.ec", "mala"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized on provider failure, got %v", err)
	}
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tokens, err := f.svc.Refresh(ctx, "refresh")
	if err != nil || tokens.AccessToken != "access-2" {
		t.Fatalf("refresh: %v %+v", err, tokens)
	}

	if _, err := f.svc.Refresh(ctx, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	f.provider.refreshErr = errors.New("revoked")
	if _, err := f.svc.Refresh(ctx, "viejo"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized on provider failure, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.Logout(context.Background(), "access"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := f.svc.Logout(context.Background(), ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
