package projections

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"conference/internal/adapters/storage/diploma"
)

// ErrEmailRequired is returned when a by-email lookup has no email.
var ErrEmailRequired = errors.New("email is required")

// DiplomaView is a diploma as listed to admins and participants.
type DiplomaView struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	FullName      string     `json:"full_name"`
	Email         string     `json:"email"`
	ActivityID    int64      `json:"activity_id"`
	ActivityTitle string     `json:"activity_title"`
	ActivityKind  string     `json:"activity_type"`
	ActivityDay   string     `json:"activity_day,omitempty"`
	Year          int        `json:"year"`
	GeneratedAt   time.Time  `json:"generated_at"`
	Emailed       bool       `json:"emailed"`
	EmailedAt     *time.Time `json:"emailed_at,omitempty"`
	DownloadURL   string     `json:"download_url"`
}

// DownloadPath is the API path that streams a diploma's PDF.
func DownloadPath(id int64) string {
	return fmt.Sprintf("/api/diplomas/%d/download", id)
}

// QueryAllDiplomas lists every issued diploma, newest first.
// POST: never nil
func QueryAllDiplomas(ctx context.Context, store DiplomaStore) ([]DiplomaView, error) {
	rows, err := store.ListDetailed(ctx, diploma.ListFilter{})
	if err != nil {
		return nil, err
	}
	return diplomaViews(rows), nil
}

// QueryDiplomasByEmail lists the diplomas issued to one participant.
// PRE: email is non-empty
// POST: never nil; an unknown email yields an empty list
func QueryDiplomasByEmail(ctx context.Context, email string, store DiplomaStore) ([]DiplomaView, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	rows, err := store.ListDetailed(ctx, diploma.ListFilter{Email: email})
	if err != nil {
		return nil, err
	}
	return diplomaViews(rows), nil
}

func diplomaViews(rows []diploma.Listing) []DiplomaView {
	out := make([]DiplomaView, 0, len(rows))
	for _, l := range rows {
		v := DiplomaView{
			ID:            l.ID,
			UserID:        l.ParticipantID,
			FullName:      l.FullName,
			Email:         l.Email,
			ActivityID:    l.ActivityID,
			ActivityTitle: l.ActivityTitle,
			ActivityKind:  l.ActivityKind,
			ActivityDay:   l.ActivityDay,
			Year:          l.ActivityYear,
			GeneratedAt:   l.GeneratedAt,
			Emailed:       l.Emailed,
			DownloadURL:   DownloadPath(l.ID),
		}
		if !l.EmailedAt.IsZero() {
			at := l.EmailedAt
			v.EmailedAt = &at
		}
		out = append(out, v)
	}
	return out
}
