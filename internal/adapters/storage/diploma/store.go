package diploma

import (
	"context"
	"time"

	domain "conference/internal/domain/diploma"
)

// Store persists issued diplomas.
type Store interface {
	Create(ctx context.Context, d domain.Diploma) (int64, error)
	GetByID(ctx context.Context, id int64) (domain.Diploma, error)
	Exists(ctx context.Context, participantID, activityID int64) (bool, error)
	MarkEmailed(ctx context.Context, id int64, at time.Time) error
	ListUnsent(ctx context.Context) ([]domain.Diploma, error)
	ListDetailed(ctx context.Context, filter ListFilter) ([]Listing, error)
	GetDetailed(ctx context.Context, id int64) (Listing, error)
}

// ListFilter narrows ListDetailed. Zero values disable a filter.
type ListFilter struct {
	Email string
}

// Listing is a diploma joined with its participant and activity.
type Listing struct {
	domain.Diploma
	FullName      string
	Email         string
	ActivityTitle string
	ActivityKind  string
	ActivityDay   string
	ActivityYear  int
}
