package registration

import (
	"errors"
	"time"
)

// Status constants for the registration lifecycle.
const (
	StatusRegistered = "INSCRITO"
	StatusAttended   = "ASISTIÓ"
)

// Domain errors
var (
	ErrMissingParticipant = errors.New("registration must reference a participant")
	ErrMissingActivity    = errors.New("registration must reference an activity")
	ErrEmptyToken         = errors.New("token is required")
	ErrTokenNotFound      = errors.New("token not found")
	ErrInvalidStatus      = errors.New("registration status must be INSCRITO or ASISTIÓ")
)

// Registration binds one participant to one activity.
type Registration struct {
	ID            int64
	ParticipantID int64
	ActivityID    int64
	Token         string
	Status        string
	CreatedAt     time.Time
	AttendedAt    time.Time // zero until attended
}

// Validate checks if the Registration has valid data.
// PRE: Registration struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (r *Registration) Validate() error {
	if r.ParticipantID <= 0 {
		return ErrMissingParticipant
	}
	if r.ActivityID <= 0 {
		return ErrMissingActivity
	}
	if r.Token == "" {
		return ErrEmptyToken
	}
	if r.Status != StatusRegistered && r.Status != StatusAttended {
		return ErrInvalidStatus
	}
	return nil
}

// HasAttended reports whether the registration has been redeemed.
// INVARIANT: Status field is not mutated
func (r *Registration) HasAttended() bool {
	return r.Status == StatusAttended || !r.AttendedAt.IsZero()
}

// MarkAttended moves the registration to ASISTIÓ and stamps the attendance time.
// Redeeming again only refreshes AttendedAt; the status never moves back.
// PRE: now is non-zero
// POST: Status == StatusAttended, AttendedAt == now
func (r *Registration) MarkAttended(now time.Time) {
	r.Status = StatusAttended
	r.AttendedAt = now
}
