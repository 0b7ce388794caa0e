package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/jmjalil96/CotizateAlgo/internal/domain/brokers"
)

func brokerFixture(id, name, description string, parentID *string, now time.Time) brokers.Broker {
	return brokers.Broker{
		ID:          id,
		Name:        name,
		Description: description,
		ParentID:    parentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newMock(t *testing.T) (*BrokersRepo, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewBrokersRepo(db), mock, func() { db.Close() }
}

func TestBrokersRepoGetByID(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "description", "parent_id", "created_at", "updated_at"}).
		AddRow("b-1", "corredora-andes", "", nil, now, now)
	mock.ExpectQuery("SELECT id, name, description, parent_id, created_at, updated_at.*FROM brokers.*WHERE id =").
		WithArgs("b-1").
		WillReturnRows(rows)

	b, err := repo.GetByID(context.Background(), "b-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if b.Name != "corredora-andes" || b.ParentID != nil {
		t.Fatalf("unexpected broker: %+v", b)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBrokersRepoGetByIDNotFound(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, name, description, parent_id").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "parent_id", "created_at", "updated_at"}))

	if _, err := repo.GetByID(context.Background(), "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// el id vacío ni siquiera toca la base
	if _, err := repo.GetByID(context.Background(), "  "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank id, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBrokersRepoDescendantIDs(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	// el CTE devuelve la expansión por niveles, raíz primero
	rows := sqlmock.NewRows([]string{"id"}).
		AddRow("root").
		AddRow("child-a").
		AddRow("child-b").
		AddRow("grandchild")
	mock.ExpectQuery("WITH RECURSIVE descendants AS").
		WithArgs("root", 10).
		WillReturnRows(rows)

	ids, err := repo.DescendantIDs(context.Background(), "root", 10)
	if err != nil {
		t.Fatalf("DescendantIDs: %v", err)
	}
	want := []string{"root", "child-a", "child-b", "grandchild"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %v", len(want), ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, ids)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBrokersRepoDescendantIDsQueryError(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("WITH RECURSIVE descendants AS").
		WithArgs("root", 10).
		WillReturnError(errors.New("recursion limit"))

	if _, err := repo.DescendantIDs(context.Background(), "root", 10); err == nil {
		t.Fatal("expected query error to surface")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBrokersRepoAncestorIDs(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	// root-first, sin el broker consultado
	rows := sqlmock.NewRows([]string{"id"}).
		AddRow("root").
		AddRow("middle")
	mock.ExpectQuery("WITH RECURSIVE ancestors AS").
		WithArgs("leaf", 10).
		WillReturnRows(rows)

	ids, err := repo.AncestorIDs(context.Background(), "leaf", 10)
	if err != nil {
		t.Fatalf("AncestorIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "root" || ids[1] != "middle" {
		t.Fatalf("expected [root middle], got %v", ids)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBrokersRepoCreate(t *testing.T) {
	repo, mock, done := newMock(t)
	defer done()

	parent := "root"
	now := time.Now()
	mock.ExpectExec("INSERT INTO brokers").
		WithArgs("b-2", "sub-quito", "sucursal quito", "root", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), brokerFixture("b-2", "sub-quito", "sucursal quito", &parent, now))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
