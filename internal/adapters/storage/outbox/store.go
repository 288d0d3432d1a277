package outbox

import (
	"context"

	domain "conference/internal/domain/outbox"
)

// Store defines the interface for outbox entry persistence.
type Store interface {
	// GetByID retrieves an outbox entry by its ID.
	// PRE: id is non-empty
	// POST: Returns the entry or domain.ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save persists an outbox entry to the database.
	// PRE: entry has been validated
	// POST: Entry is persisted (insert or update)
	Save(ctx context.Context, e domain.Entry) error

	// ListPending returns entries the processor should look at (pending or retrying).
	// PRE: limit > 0
	// POST: Returns up to limit entries ordered by created_at
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)

	// List returns entries for the admin view, newest first.
	// PRE: filter.Limit > 0
	// POST: Returns up to Limit matching entries
	List(ctx context.Context, filter ListFilter) ([]domain.Entry, error)
}

// ListFilter narrows List. Empty fields disable a filter.
type ListFilter struct {
	Status     string
	ActionType string
	Limit      int
}
