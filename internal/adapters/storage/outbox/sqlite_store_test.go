package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"conference/internal/adapters/storage/storagetest"
	domain "conference/internal/domain/outbox"
)

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	s := NewSQLiteStore(storagetest.Open(t))
	ctx := context.Background()
	created := time.Date(2025, 10, 15, 8, 0, 0, 0, time.UTC)

	e := domain.Entry{ID: "e1", ActionType: domain.ActionTypeConfirmationEmail, Payload: `{"to":"a@x.com"}`, Status: domain.StatusPending, MaxAttempts: 3, CreatedAt: created}
	if err := s.Save(ctx, e); err != nil {
		t.Fatalf("Save: %v", err)
	}

	e.MarkAttempt(created.Add(time.Minute))
	e.MarkFailed(errors.New("timeout"))
	if err := s.Save(ctx, e); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	got, err := s.GetByID(ctx, "e1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Attempts != 1 || got.Status != domain.StatusRetrying || got.ErrorMessage != "timeout" || !got.CreatedAt.Equal(created) {
		t.Errorf("stored = %+v", got)
	}
	if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByID missing = %v", err)
	}
}

func TestSQLiteStore_ListPendingAndFilter(t *testing.T) {
	s := NewSQLiteStore(storagetest.Open(t))
	ctx := context.Background()
	base := time.Date(2025, 10, 15, 8, 0, 0, 0, time.UTC)
	seed := []domain.Entry{
		{ID: "a", Status: domain.StatusPending},
		{ID: "b", Status: domain.StatusRetrying},
		{ID: "c", Status: domain.StatusDone},
		{ID: "d", Status: domain.StatusAbandoned},
	}
	for i, e := range seed {
		e.ActionType = domain.ActionTypeConfirmationEmail
		e.Payload = "{}"
		e.MaxAttempts = 5
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.Save(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	pending, err := s.ListPending(ctx, 10)
	if err != nil || len(pending) != 2 || pending[0].ID != "a" {
		t.Errorf("ListPending = %+v, %v", pending, err)
	}
	all, err := s.List(ctx, ListFilter{Limit: 10})
	if err != nil || len(all) != 4 || all[0].ID != "d" {
		t.Errorf("List newest first = %+v, %v", all, err)
	}
	done, _ := s.List(ctx, ListFilter{Status: domain.StatusDone, Limit: 10})
	if len(done) != 1 || done[0].ID != "c" {
		t.Errorf("List(done) = %+v", done)
	}
	none, _ := s.List(ctx, ListFilter{ActionType: "unknown_action", Limit: 10})
	if none == nil || len(none) != 0 {
		t.Errorf("List(unknown_action) = %v", none)
	}
}
