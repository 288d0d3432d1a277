package projections

import (
	"context"
	"strings"
	"time"

	"conference/internal/adapters/storage/activity"
	domainActivity "conference/internal/domain/activity"
)

// ActivityView is an activity as served by the API.
type ActivityView struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Kind        string     `json:"kind"`
	Location    string     `json:"location"`
	Day         string     `json:"day"`
	Hour        string     `json:"hour"`
	Year        int        `json:"year"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// NewActivityView maps a domain activity onto its API shape.
func NewActivityView(a domainActivity.Activity) ActivityView {
	v := ActivityView{
		ID:       a.ID,
		Title:    a.Title,
		Kind:     a.Kind,
		Location: a.Location,
		Day:      a.Day,
		Hour:     a.Hour,
		Year:     a.Year,
	}
	if !a.PublishedAt.IsZero() {
		at := a.PublishedAt
		v.PublishedAt = &at
	}
	return v
}

// ActivitiesQuery carries the optional catalogue filters.
type ActivitiesQuery struct {
	Year int
	Kind string
}

// QueryActivities lists the catalogue, newest year first, then by day and hour.
// POST: never nil
func QueryActivities(ctx context.Context, query ActivitiesQuery, store ActivityStore) ([]ActivityView, error) {
	rows, err := store.List(ctx, activity.ListFilter{
		Year: query.Year,
		Kind: strings.ToUpper(strings.TrimSpace(query.Kind)),
	})
	if err != nil {
		return nil, err
	}
	out := make([]ActivityView, 0, len(rows))
	for _, a := range rows {
		out = append(out, NewActivityView(a))
	}
	return out, nil
}

// QueryActivity loads one activity.
// POST: store not-found errors are returned unchanged
func QueryActivity(ctx context.Context, id int64, store ActivityStore) (ActivityView, error) {
	a, err := store.GetByID(ctx, id)
	if err != nil {
		return ActivityView{}, err
	}
	return NewActivityView(a), nil
}
