package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"time"

	domainActivity "conference/internal/domain/activity"
	domainOutbox "conference/internal/domain/outbox"
	domainParticipant "conference/internal/domain/participant"
)

// ErrNotFound is returned when a referenced participant, activity or diploma does not exist.
var ErrNotFound = errors.New("not found")

// isNotFound reports whether a store error means the row is absent.
func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ParticipantReader loads participants by id.
type ParticipantReader interface {
	GetByID(ctx context.Context, id int64) (domainParticipant.Participant, error)
}

// ActivityReader loads activities by id.
type ActivityReader interface {
	GetByID(ctx context.Context, id int64) (domainActivity.Activity, error)
}

// OutboxWriter persists deferred deliveries.
type OutboxWriter interface {
	Save(ctx context.Context, e domainOutbox.Entry) error
}

// Recorder receives business counters. Every method must be safe to call on a nil implementation value.
type Recorder interface {
	Registration(outcome string)
	CheckIn()
	Diploma(kind, outcome string)
	Email(template string, sent bool)
	OutboxAttempt(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) Registration(string)   {}
func (nopRecorder) CheckIn()               {}
func (nopRecorder) Diploma(string, string) {}
func (nopRecorder) Email(string, bool)     {}
func (nopRecorder) OutboxAttempt(string)   {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

func nowOr(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}
