package attendance

import (
	"errors"
	"time"
)

// Check-in sources.
const (
	SourceQR     = "qr"
	SourceManual = "manual"
)

// Domain errors
var (
	ErrMissingRegistration = errors.New("check-in must be associated with a registration")
	ErrMissingTime         = errors.New("check-in time must be set")
)

// CheckIn is one redemption of a registration token.
// A registration can be redeemed several times; every redemption is logged.
type CheckIn struct {
	ID             int64
	RegistrationID int64
	CheckedInAt    time.Time
	Source         string
}

// Validate checks if the CheckIn has valid data.
// PRE: CheckIn struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: RegistrationID must be set, CheckedInAt must be set
func (c *CheckIn) Validate() error {
	if c.RegistrationID <= 0 {
		return ErrMissingRegistration
	}
	if c.CheckedInAt.IsZero() {
		return ErrMissingTime
	}
	return nil
}
