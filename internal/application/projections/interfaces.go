package projections

import (
	"context"

	"conference/internal/adapters/storage/activity"
	"conference/internal/adapters/storage/diploma"
	"conference/internal/adapters/storage/participant"
	"conference/internal/adapters/storage/report"
	"conference/internal/adapters/storage/winner"
	domainActivity "conference/internal/domain/activity"
	domainParticipant "conference/internal/domain/participant"
	domainWinner "conference/internal/domain/winner"
)

// ActivityStore interface for activity queries.
type ActivityStore interface {
	GetByID(ctx context.Context, id int64) (domainActivity.Activity, error)
	List(ctx context.Context, filter activity.ListFilter) ([]domainActivity.Activity, error)
}

// ParticipantStore interface for participant queries.
type ParticipantStore interface {
	List(ctx context.Context, filter participant.ListFilter) ([]domainParticipant.Participant, error)
}

// DiplomaStore interface for diploma listings.
type DiplomaStore interface {
	ListDetailed(ctx context.Context, filter diploma.ListFilter) ([]diploma.Listing, error)
}

// WinnerStore interface for winner queries.
type WinnerStore interface {
	ListAll(ctx context.Context) ([]domainWinner.Winner, error)
	ListHistory(ctx context.Context, year int) ([]winner.HistoryRow, error)
	ListCandidates(ctx context.Context) ([]winner.Candidate, error)
}

// ReportStore interface for attendance aggregates.
type ReportStore interface {
	Totals(ctx context.Context, f report.Filter) (report.Counts, error)
	ByKind(ctx context.Context, f report.Filter) ([]report.KindCounts, error)
	ByActivity(ctx context.Context, f report.Filter) ([]report.ActivityCounts, error)
}
