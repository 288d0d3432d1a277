package participant

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"conference/internal/adapters/storage/storagetest"
	domain "conference/internal/domain/participant"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	return NewSQLiteStore(storagetest.Open(t))
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, domain.Participant{FullName: " Ana Pérez ", Email: "Ana@Example.com ", Type: domain.TypeExternal})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FullName != "Ana Pérez" || got.Email != "ana@example.com" || got.CreatedAt.IsZero() {
		t.Errorf("stored participant = %+v", got)
	}

	byEmail, err := s.GetByEmail(ctx, "ANA@example.com")
	if err != nil || byEmail.ID != id {
		t.Errorf("GetByEmail = %+v, %v", byEmail, err)
	}

	if _, err := s.Create(ctx, domain.Participant{FullName: "Otra", Email: "ana@example.com", Type: domain.TypeExternal}); !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("duplicate email error = %v, want ErrDuplicateEmail", err)
	}
}

func TestSQLiteStore_NotFound(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if _, err := s.GetByID(ctx, 99); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetByID missing = %v", err)
	}
	if err := s.Update(ctx, domain.Participant{ID: 99, FullName: "x", Email: "x@x", Type: domain.TypeExternal}); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Update missing = %v", err)
	}
	if err := s.Delete(ctx, 99); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("Delete missing = %v", err)
	}
}

func TestSQLiteStore_ListByType(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	seed := []domain.Participant{
		{FullName: "A", Email: "a@x.com", Type: domain.TypeInternal},
		{FullName: "B", Email: "b@x.com", Type: domain.TypeExternal},
		{FullName: "C", Email: "c@x.com", Type: domain.TypeInternal},
	}
	for _, p := range seed {
		if _, err := s.Create(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.List(ctx, ListFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("List all = %d, %v", len(all), err)
	}
	internal, err := s.List(ctx, ListFilter{Type: domain.TypeInternal})
	if err != nil || len(internal) != 2 {
		t.Fatalf("List INTERNO = %d, %v", len(internal), err)
	}
	admins, err := s.List(ctx, ListFilter{Type: domain.TypeAdmin})
	if err != nil || admins == nil || len(admins) != 0 {
		t.Errorf("List ADMIN = %v, %v; want empty non-nil", admins, err)
	}
}

func TestSQLiteStore_UpdateAndFind(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	id, _ := s.Create(ctx, domain.Participant{FullName: "Luis", Email: "luis@x.com", Type: domain.TypeExternal})

	if err := s.Update(ctx, domain.Participant{ID: id, FullName: "Luis Gómez", Email: "luis@x.com", School: "UMG", Type: domain.TypeInternal}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	byName, err := s.FindByNameOrEmail(ctx, "Luis Gómez", "")
	if err != nil || byName.ID != id || byName.School != "UMG" {
		t.Errorf("FindByNameOrEmail(name) = %+v, %v", byName, err)
	}
	byEmail, err := s.FindByNameOrEmail(ctx, "", "LUIS@x.com")
	if err != nil || byEmail.ID != id {
		t.Errorf("FindByNameOrEmail(email) = %+v, %v", byEmail, err)
	}
	if _, err := s.FindByNameOrEmail(ctx, "", ""); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("empty search should find nothing, got %v", err)
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.GetByID(ctx, id); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("participant still present after delete: %v", err)
	}
}
