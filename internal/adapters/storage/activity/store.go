package activity

import (
	"context"
	"time"

	domain "conference/internal/domain/activity"
)

// Store persists Activity state.
type Store interface {
	Create(ctx context.Context, a domain.Activity) (int64, error)
	GetByID(ctx context.Context, id int64) (domain.Activity, error)
	Update(ctx context.Context, a domain.Activity) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]domain.Activity, error)
	MarkPublished(ctx context.Context, id int64, at time.Time) error
}

// ListFilter narrows List results. Zero values disable a filter.
type ListFilter struct {
	Year int
	Kind string
}
