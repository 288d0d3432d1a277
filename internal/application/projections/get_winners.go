package projections

import (
	"bytes"
	"context"
	"time"

	"github.com/yuin/goldmark"

	domainWinner "conference/internal/domain/winner"
)

// descriptionRenderer turns winner descriptions into HTML. Raw HTML in input is omitted.
var descriptionRenderer = goldmark.New()

// WinnerView is a winner on the public board.
type WinnerView struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	ProjectTitle    string `json:"project_title"`
	Description     string `json:"description"`
	DescriptionHTML string `json:"description_html"`
	PhotoURL        string `json:"photo_url"`
	Position        int    `json:"position"`
	Medal           string `json:"medal"`
	Placement       string `json:"placement"`
	Year            int    `json:"year"`
	ActivityID      int64  `json:"activity_id"`
	ActivityTitle   string `json:"activity_title"`
	ActivityKind    string `json:"activity_type"`
}

// QueryWinnerBoard lists every winner, newest year first, then by position.
// POST: never nil
func QueryWinnerBoard(ctx context.Context, store WinnerStore) ([]WinnerView, error) {
	winners, err := store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]WinnerView, 0, len(winners))
	for _, w := range winners {
		out = append(out, WinnerView{
			ID:              w.ID,
			Name:            w.Name,
			ProjectTitle:    w.ProjectTitle,
			Description:     w.Description,
			DescriptionHTML: renderDescription(w.Description),
			PhotoURL:        w.PhotoURL,
			Position:        w.Position,
			Medal:           domainWinner.Medal(w.Position),
			Placement:       domainWinner.PlacementCaption(w.Position),
			Year:            w.Year,
			ActivityID:      w.ActivityID,
			ActivityTitle:   w.ActivityTitle,
			ActivityKind:    w.ActivityKind,
		})
	}
	return out, nil
}

func renderDescription(md string) string {
	if md == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := descriptionRenderer.Convert([]byte(md), &buf); err != nil {
		return ""
	}
	return buf.String()
}

// CandidateView is a registration an admin may award.
type CandidateView struct {
	UserID             int64      `json:"user_id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone"`
	School             string     `json:"school"`
	ActivityID         int64      `json:"activity_id"`
	ActivityTitle      string     `json:"activity_title"`
	ActivityKind       string     `json:"activity_type"`
	Year               int        `json:"year"`
	RegistrationStatus string     `json:"registration_status"`
	DiplomaFile        string     `json:"diploma_file,omitempty"`
	DiplomaGenerated   *time.Time `json:"diploma_generated,omitempty"`
}

// QueryWinnerCandidates lists every registration with its participant, activity and diploma.
// POST: never nil
func QueryWinnerCandidates(ctx context.Context, store WinnerStore) ([]CandidateView, error) {
	rows, err := store.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CandidateView, 0, len(rows))
	for _, c := range rows {
		v := CandidateView{
			UserID:             c.ParticipantID,
			Name:               c.Name,
			Email:              c.Email,
			Phone:              c.Phone,
			School:             c.School,
			ActivityID:         c.ActivityID,
			ActivityTitle:      c.ActivityTitle,
			ActivityKind:       c.ActivityKind,
			Year:               c.Year,
			RegistrationStatus: c.RegistrationStatus,
			DiplomaFile:        c.DiplomaFile,
		}
		if !c.DiplomaGeneratedAt.IsZero() {
			at := c.DiplomaGeneratedAt
			v.DiplomaGenerated = &at
		}
		out = append(out, v)
	}
	return out, nil
}

// HistoryView is one publication history row.
type HistoryView struct {
	ID              int64     `json:"id"`
	WinnerID        int64     `json:"winner_id"`
	PublicationDate time.Time `json:"publication_date"`
	PublicationYear int       `json:"publication_year"`
	ActivityName    string    `json:"activity_name"`
	FullName        string    `json:"full_name"`
	Email           string    `json:"email"`
	Position        int       `json:"position"`
	Medal           string    `json:"medal"`
}

// QueryWinnerHistory lists publication history. year <= 0 lists every year.
// POST: never nil
func QueryWinnerHistory(ctx context.Context, year int, store WinnerStore) ([]HistoryView, error) {
	rows, err := store.ListHistory(ctx, year)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryView, 0, len(rows))
	for _, r := range rows {
		out = append(out, HistoryView{
			ID:              r.ID,
			WinnerID:        r.WinnerID,
			PublicationDate: r.PublicationDate,
			PublicationYear: r.PublicationYear,
			ActivityName:    r.ActivityTitle,
			FullName:        r.FullName,
			Email:           r.Email,
			Position:        r.Position,
			Medal:           domainWinner.Medal(r.Position),
		})
	}
	return out, nil
}
