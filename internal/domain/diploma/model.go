package diploma

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors
var (
	ErrMissingParticipant = errors.New("diploma must reference a participant")
	ErrMissingActivity    = errors.New("diploma must reference an activity")
	ErrMissingFile        = errors.New("diploma must reference a stored file")
	ErrAlreadyIssued      = errors.New("diploma already issued for this participant and activity")
)

// Diploma is the issued attendance certificate for one participant and one activity.
type Diploma struct {
	ID            int64
	ParticipantID int64
	ActivityID    int64
	FileKey       string
	GeneratedAt   time.Time
	Emailed       bool
	EmailedAt     time.Time
}

// Validate checks if the Diploma has valid data.
// PRE: Diploma struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (d *Diploma) Validate() error {
	if d.ParticipantID <= 0 {
		return ErrMissingParticipant
	}
	if d.ActivityID <= 0 {
		return ErrMissingActivity
	}
	if d.FileKey == "" {
		return ErrMissingFile
	}
	return nil
}

// MarkEmailed records a successful delivery.
// POST: Emailed is true, EmailedAt == now
func (d *Diploma) MarkEmailed(now time.Time) {
	d.Emailed = true
	d.EmailedAt = now
}

// FileKey returns the storage key of an attendance diploma.
func FileKey(participantID, activityID int64) string {
	return fmt.Sprintf("%d/%d.pdf", participantID, activityID)
}

// WinnerFileKey returns the storage key of a winner diploma.
func WinnerFileKey(participantID, activityID int64, position int) string {
	return fmt.Sprintf("%d/%d-winner-%d.pdf", participantID, activityID, position)
}

// FileName is the attachment name shown to recipients.
func FileName(fullName string) string {
	return fmt.Sprintf("Diploma - %s.pdf", fullName)
}
