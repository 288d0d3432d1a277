package participant

import (
	"context"

	domain "conference/internal/domain/participant"
)

// Store persists Participant state.
type Store interface {
	Create(ctx context.Context, p domain.Participant) (int64, error)
	GetByID(ctx context.Context, id int64) (domain.Participant, error)
	GetByEmail(ctx context.Context, email string) (domain.Participant, error)
	FindByNameOrEmail(ctx context.Context, name, email string) (domain.Participant, error)
	Update(ctx context.Context, p domain.Participant) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]domain.Participant, error)
}

// ListFilter carries filtering parameters for List operations.
type ListFilter struct {
	Type   string // empty lists every type
	Limit  int
	Offset int
}
