package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"conference/internal/adapters/certificate"
	emailAdapter "conference/internal/adapters/email"
	"conference/internal/adapters/filestore"
	domainActivity "conference/internal/domain/activity"
	domainDiploma "conference/internal/domain/diploma"
	domainParticipant "conference/internal/domain/participant"
	domainWinner "conference/internal/domain/winner"
)

var ErrActivityNotFound = fmt.Errorf("activity %w", ErrNotFound)

// WinnerStoreForCreate defines the winner operations CreateWinner needs.
type WinnerStoreForCreate interface {
	Create(ctx context.Context, w domainWinner.Winner) (int64, error)
}

// CreateWinnerInput carries the admin's winner form.
type CreateWinnerInput struct {
	ActivityID   int64
	UserID       int64 // optional link to a participant
	Name         string
	ProjectTitle string
	Description  string
	PhotoURL     string
	Position     int
	Year         int // defaults to the activity's year
}

// CreateWinnerDeps holds dependencies for CreateWinner.
type CreateWinnerDeps struct {
	Winners      WinnerStoreForCreate
	Activities   ActivityReader
	Participants ParticipantReader
}

// ExecuteCreateWinner records a winner for an activity, copying the activity's title and kind.
// PRE: position in 1..3, name non-empty
// POST: Winner persisted with ID set; ErrActivityNotFound / ErrParticipantNotFound for bad references
func ExecuteCreateWinner(ctx context.Context, input CreateWinnerInput, deps CreateWinnerDeps) (domainWinner.Winner, error) {
	a, err := deps.Activities.GetByID(ctx, input.ActivityID)
	if isNotFound(err) {
		return domainWinner.Winner{}, ErrActivityNotFound
	}
	if err != nil {
		return domainWinner.Winner{}, err
	}
	if input.UserID > 0 {
		if _, err := deps.Participants.GetByID(ctx, input.UserID); isNotFound(err) {
			return domainWinner.Winner{}, ErrParticipantNotFound
		} else if err != nil {
			return domainWinner.Winner{}, err
		}
	}

	year := input.Year
	if year == 0 {
		year = a.Year
	}
	w := domainWinner.Winner{
		ActivityID:    a.ID,
		ParticipantID: input.UserID,
		Name:          strings.TrimSpace(input.Name),
		ProjectTitle:  strings.TrimSpace(input.ProjectTitle),
		Description:   input.Description,
		PhotoURL:      strings.TrimSpace(input.PhotoURL),
		Position:      input.Position,
		Year:          year,
		ActivityTitle: a.Title,
		ActivityKind:  a.Kind,
	}
	if err := w.Validate(); err != nil {
		return domainWinner.Winner{}, err
	}
	id, err := deps.Winners.Create(ctx, w)
	if err != nil {
		return domainWinner.Winner{}, fmt.Errorf("create winner: %w", err)
	}
	w.ID = id
	slog.Info("winner_event", "event", "created", "winner_id", id, "activity_id", a.ID, "position", w.Position)
	return w, nil
}

// WinnerDeleter removes winners.
type WinnerDeleter interface {
	Delete(ctx context.Context, id int64) error
}

// ExecuteDeleteWinner removes a winner.
// POST: Winner and its history rows removed; domainWinner.ErrNotFound when absent
func ExecuteDeleteWinner(ctx context.Context, id int64, winners WinnerDeleter) error {
	err := winners.Delete(ctx, id)
	if isNotFound(err) {
		return domainWinner.ErrNotFound
	}
	if err != nil {
		return err
	}
	slog.Info("winner_event", "event", "deleted", "winner_id", id)
	return nil
}

// WinnerStoreForPublish defines the winner operations PublishWinners needs.
type WinnerStoreForPublish interface {
	ListByActivity(ctx context.Context, activityID int64) ([]domainWinner.Winner, error)
	LinkParticipant(ctx context.Context, id, participantID int64) error
	SetDiplomaFile(ctx context.Context, id int64, fileKey string) error
	RecordHistory(ctx context.Context, h domainWinner.HistoryEntry) (bool, error)
}

// ParticipantStoreForPublish resolves winners to participants.
type ParticipantStoreForPublish interface {
	GetByID(ctx context.Context, id int64) (domainParticipant.Participant, error)
	FindByNameOrEmail(ctx context.Context, name, email string) (domainParticipant.Participant, error)
}

// ActivityPublisher stamps the publication time.
type ActivityPublisher interface {
	GetByID(ctx context.Context, id int64) (domainActivity.Activity, error)
	MarkPublished(ctx context.Context, id int64, at time.Time) error
}

// PublishWinnersDeps holds dependencies for PublishWinners.
type PublishWinnersDeps struct {
	Winners      WinnerStoreForPublish
	Participants ParticipantStoreForPublish
	Activities   ActivityPublisher
	Files        filestore.Store
	Renderer     DiplomaRenderer
	Sender       emailAdapter.Sender
	Mail         MailConfig
	Now          func() time.Time
	Metrics      Recorder
}

// PublishedWinner is the per-winner outcome of a publication.
type PublishedWinner struct {
	WinnerID      int64  `json:"winner_id"`
	UserID        int64  `json:"user_id,omitempty"`
	Linked        bool   `json:"linked"`
	HistoryAdded  bool   `json:"history_added"`
	DiplomaIssued bool   `json:"diploma_issued"`
	Emailed       bool   `json:"emailed"`
	Error         string `json:"error,omitempty"`
}

// PublishWinnersResult summarises a publication.
type PublishWinnersResult struct {
	ActivityID  int64             `json:"activity_id"`
	Inserted    int               `json:"inserted"`
	PublishedAt time.Time         `json:"published_at"`
	Winners     []PublishedWinner `json:"winners"`
}

// ExecutePublishWinners publishes an activity's winners.
// PRE: activityID > 0
// POST: one history row per (winner, activity) for winners resolvable to a participant,
// winner diplomas issued best effort, activity.published_at = now;
// domainWinner.ErrNoWinners when the activity has none
// INVARIANT: publishing twice never duplicates history rows
func ExecutePublishWinners(ctx context.Context, activityID int64, deps PublishWinnersDeps) (PublishWinnersResult, error) {
	a, err := deps.Activities.GetByID(ctx, activityID)
	if isNotFound(err) {
		return PublishWinnersResult{}, ErrActivityNotFound
	}
	if err != nil {
		return PublishWinnersResult{}, err
	}
	winners, err := deps.Winners.ListByActivity(ctx, activityID)
	if err != nil {
		return PublishWinnersResult{}, fmt.Errorf("list winners: %w", err)
	}
	if len(winners) == 0 {
		return PublishWinnersResult{}, domainWinner.ErrNoWinners
	}

	now := nowOr(deps.Now)
	result := PublishWinnersResult{ActivityID: activityID, PublishedAt: now, Winners: make([]PublishedWinner, 0, len(winners))}
	for _, w := range winners {
		out := PublishedWinner{WinnerID: w.ID}

		p, found, err := resolveWinner(ctx, deps, w)
		if err != nil {
			return PublishWinnersResult{}, err
		}
		if !found {
			slog.Warn("winner_event", "event", "unlinked", "winner_id", w.ID, "name", w.Name)
			result.Winners = append(result.Winners, out)
			continue
		}
		out.UserID = p.ID
		out.Linked = true

		added, err := deps.Winners.RecordHistory(ctx, domainWinner.HistoryEntry{
			WinnerID:        w.ID,
			ParticipantID:   p.ID,
			ActivityID:      activityID,
			PublicationDate: now,
			PublicationYear: now.Year(),
		})
		if err != nil {
			return PublishWinnersResult{}, fmt.Errorf("record history for winner %d: %w", w.ID, err)
		}
		if added {
			result.Inserted++
		}
		out.HistoryAdded = added

		if w.DiplomaFile == "" {
			emailed, err := issueWinnerDiploma(ctx, deps, a, w, p, now)
			if err != nil {
				out.Error = err.Error()
				slog.Error("winner_diploma_failed", "winner_id", w.ID, "error", err)
			} else {
				out.DiplomaIssued = true
				out.Emailed = emailed
			}
		}
		result.Winners = append(result.Winners, out)
	}

	if err := deps.Activities.MarkPublished(ctx, activityID, now); err != nil {
		return PublishWinnersResult{}, fmt.Errorf("mark published: %w", err)
	}
	slog.Info("winner_event", "event", "published", "activity_id", activityID, "winners", len(winners), "inserted", result.Inserted)
	return result, nil
}

// resolveWinner finds the participant behind a winner, linking the row on first resolution.
// Winners without a link match on full name, or on the description holding an email.
func resolveWinner(ctx context.Context, deps PublishWinnersDeps, w domainWinner.Winner) (domainParticipant.Participant, bool, error) {
	if w.ParticipantID > 0 {
		p, err := deps.Participants.GetByID(ctx, w.ParticipantID)
		if err == nil {
			return p, true, nil
		}
		if !isNotFound(err) {
			return domainParticipant.Participant{}, false, err
		}
	}
	p, err := deps.Participants.FindByNameOrEmail(ctx, w.Name, strings.TrimSpace(w.Description))
	if isNotFound(err) {
		return domainParticipant.Participant{}, false, nil
	}
	if err != nil {
		return domainParticipant.Participant{}, false, err
	}
	if err := deps.Winners.LinkParticipant(ctx, w.ID, p.ID); err != nil {
		return domainParticipant.Participant{}, false, fmt.Errorf("link winner %d: %w", w.ID, err)
	}
	return p, true, nil
}

// issueWinnerDiploma renders, stores and emails a recognition diploma.
// POST: winner.diploma_file set; returns the email outcome
func issueWinnerDiploma(ctx context.Context, deps PublishWinnersDeps, a domainActivity.Activity, w domainWinner.Winner, p domainParticipant.Participant, now time.Time) (bool, error) {
	rec := recorderOrNop(deps.Metrics)
	pdf, err := deps.Renderer.RenderWinner(p.FullName, a.Title, certificate.DateText(a.ScheduledDate(now)), w.Position, w.Year)
	if err != nil {
		rec.Diploma("winner", "error")
		return false, fmt.Errorf("render: %w", err)
	}
	key := domainDiploma.WinnerFileKey(p.ID, a.ID, w.Position)
	if err := deps.Files.Put(ctx, key, pdf, pdfContentType); err != nil {
		rec.Diploma("winner", "error")
		return false, fmt.Errorf("store: %w", err)
	}
	if err := deps.Winners.SetDiplomaFile(ctx, w.ID, key); err != nil {
		rec.Diploma("winner", "error")
		return false, fmt.Errorf("record file: %w", err)
	}
	rec.Diploma("winner", "issued")

	msg, err := deps.Mail.winnerEmail(p.FullName, a.Title, domainWinner.PlacementCaption(w.Position), pdf, now)
	if err == nil {
		_, err = deps.Sender.Send(ctx, msg.request(p.Email))
	}
	rec.Email("winner", err == nil)
	if err != nil {
		slog.Warn("winner_event", "event", "email_failed", "winner_id", w.ID, "error", err)
		return false, nil
	}
	return true, nil
}
