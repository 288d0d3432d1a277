package attendance

import (
	"context"

	domain "conference/internal/domain/attendance"
)

// Store persists the check-in log.
type Store interface {
	Append(ctx context.Context, c domain.CheckIn) (int64, error)
	ListByRegistration(ctx context.Context, registrationID int64) ([]domain.CheckIn, error)
	CountByRegistration(ctx context.Context, registrationID int64) (int, error)
}
