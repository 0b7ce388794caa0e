package clients

import (
	"context"
	"errors"
	"testing"
	"time"

	mem "github.com/jmjalil96/CotizateAlgo/internal/adapters/storage/memory"
)

func newTestService() *Service {
	svc := NewService(mem.NewClientsRepo(mem.NewStore()))
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func mustCreate(t *testing.T, svc *Service, allowed []string, brokerID, first, last string) Client {
	t.Helper()
	c, err := svc.Create(context.Background(), allowed, CreateInput{
		BrokerID:  brokerID,
		FirstName: first,
		LastName:  last,
	})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

func TestCreate_RequiresAllowedBroker(t *testing.T) {
	svc := newTestService()

	_, err := svc.Create(context.Background(), []string{"b-1"}, CreateInput{
		BrokerID:  "b-2",
		FirstName: "Carla",
		LastName:  "Mena",
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden outside the filter, got %v", err)
	}
}

func TestCreate_NormalizesFields(t *testing.T) {
	svc := newTestService()

	c, err := svc.Create(context.Background(), []string{"b-1"}, CreateInput{
		BrokerID:  "b-1",
		FirstName: "  Carla ",
		LastName:  " Mena",
		Email:     " Carla@Corr.EC ",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.FirstName != "Carla" || c.LastName != "Mena" || c.Email != "carla@corr.ec" {
		t.Fatalf("fields not normalized: %+v", c)
	}
}

func TestGetByID_FilterEnforced(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	c := mustCreate(t, svc, []string{"b-1"}, "b-1", "Carla", "Mena")

	if _, err := svc.GetByID(ctx, []string{"b-1"}, c.ID); err != nil {
		t.Fatalf("get inside filter: %v", err)
	}
	if _, err := svc.GetByID(ctx, []string{"b-2"}, c.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden outside filter, got %v", err)
	}
	if _, err := svc.GetByID(ctx, []string{"b-1"}, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListByBrokers_Isolation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a := mustCreate(t, svc, []string{"b-1"}, "b-1", "Carla", "Mena")
	b := mustCreate(t, svc, []string{"b-2"}, "b-2", "Diego", "Paz")

	got, err := svc.ListByBrokers(ctx, []string{"b-1"})
	if err != nil || len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("expected only b-1's client, got %v (%v)", got, err)
	}

	got, err = svc.ListByBrokers(ctx, []string{"b-1", "b-2"})
	if err != nil || len(got) != 2 {
		t.Fatalf("expected both clients, got %v (%v)", got, err)
	}
	_ = b

	got, err = svc.ListByBrokers(ctx, nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("empty filter must list nothing, got %v (%v)", got, err)
	}
}

func TestUpdate_PartialPatch(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	c := mustCreate(t, svc, []string{"b-1"}, "b-1", "Carla", "Mena")

	phone := "0998765432"
	got, err := svc.Update(ctx, []string{"b-1"}, c.ID, UpdateInput{Phone: &phone})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Phone != phone || got.FirstName != "Carla" {
		t.Fatalf("patch must touch only the phone: %+v", got)
	}

	empty := "  "
	if _, err := svc.Update(ctx, []string{"b-1"}, c.ID, UpdateInput{FirstName: &empty}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput blanking the name, got %v", err)
	}

	if _, err := svc.Update(ctx, []string{"b-2"}, c.ID, UpdateInput{Phone: &phone}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden outside filter, got %v", err)
	}
}
