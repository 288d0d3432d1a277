package winner

import (
	"context"
	"time"

	domain "conference/internal/domain/winner"
)

// Store persists winners and their publication history.
type Store interface {
	Create(ctx context.Context, w domain.Winner) (int64, error)
	GetByID(ctx context.Context, id int64) (domain.Winner, error)
	Delete(ctx context.Context, id int64) error
	ListAll(ctx context.Context) ([]domain.Winner, error)
	ListByActivity(ctx context.Context, activityID int64) ([]domain.Winner, error)
	LinkParticipant(ctx context.Context, id, participantID int64) error
	SetDiplomaFile(ctx context.Context, id int64, fileKey string) error
	RecordHistory(ctx context.Context, h domain.HistoryEntry) (bool, error)
	ListHistory(ctx context.Context, year int) ([]HistoryRow, error)
	ListCandidates(ctx context.Context) ([]Candidate, error)
}

// HistoryRow is a publication history entry joined for display.
type HistoryRow struct {
	ID              int64
	WinnerID        int64
	PublicationDate time.Time
	PublicationYear int
	ActivityTitle   string
	FullName        string
	Email           string
	Position        int
}

// Candidate is a registration that could be awarded a placement.
type Candidate struct {
	ParticipantID      int64
	Name               string
	Email              string
	Phone              string
	School             string
	ActivityID         int64
	ActivityTitle      string
	ActivityKind       string
	Year               int
	RegistrationStatus string
	DiplomaFile        string
	DiplomaGeneratedAt time.Time
}
