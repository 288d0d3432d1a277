package activity

import (
	"errors"
	"strings"
	"time"
)

// Activity kinds.
const (
	KindWorkshop    = "TALLER"
	KindCompetition = "COMPETENCIA"
)

// DayLayout is the storage format of Activity.Day.
const DayLayout = "2006-01-02"

// Domain errors
var (
	ErrEmptyTitle  = errors.New("activity title cannot be empty")
	ErrInvalidKind = errors.New("activity kind must be TALLER or COMPETENCIA")
	ErrInvalidDay  = errors.New("activity day must be YYYY-MM-DD")
	ErrInvalidYear = errors.New("activity year must be positive")
)

// Activity is a workshop or competition attendees can register for.
type Activity struct {
	ID          int64
	Title       string
	Kind        string
	Location    string
	Day         string // YYYY-MM-DD, optional
	Hour        string // HH:MM, optional
	Year        int
	PublishedAt time.Time // winners publication, zero until published
}

// Validate checks if the Activity has valid data.
// PRE: Activity struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (a *Activity) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return ErrEmptyTitle
	}
	if a.Kind != KindWorkshop && a.Kind != KindCompetition {
		return ErrInvalidKind
	}
	if a.Day != "" {
		if _, err := time.Parse(DayLayout, a.Day); err != nil {
			return ErrInvalidDay
		}
	}
	if a.Year <= 0 {
		return ErrInvalidYear
	}
	return nil
}

// ScheduledDate returns the parsed Day, or fallback when the day is unset or malformed.
func (a *Activity) ScheduledDate(fallback time.Time) time.Time {
	if a.Day == "" {
		return fallback
	}
	d, err := time.Parse(DayLayout, a.Day)
	if err != nil {
		return fallback
	}
	return d
}

// IsCompetition reports whether winners can be published for this activity.
func (a *Activity) IsCompetition() bool {
	return a.Kind == KindCompetition
}
