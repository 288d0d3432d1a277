package registration

import (
	"context"

	domain "conference/internal/domain/registration"
)

// Store persists Registration state.
type Store interface {
	Create(ctx context.Context, r domain.Registration) (id int64, created bool, err error)
	GetByToken(ctx context.Context, token string) (domain.Registration, error)
	Exists(ctx context.Context, participantID, activityID int64) (bool, error)
	MarkAttended(ctx context.Context, r domain.Registration) error
	ListAttendedWithoutDiploma(ctx context.Context) ([]domain.Registration, error)
	ListByParticipant(ctx context.Context, participantID int64) ([]domain.Registration, error)
}
