package winner

import (
	"errors"
	"strings"
	"time"
)

// Placement bounds for published winners.
const (
	MinPosition = 1
	MaxPosition = 3
)

// Medal tiers derived from a position.
const (
	MedalGold    = "gold"
	MedalSilver  = "silver"
	MedalBronze  = "bronze"
	MedalNeutral = "neutral"
)

// Domain errors
var (
	ErrMissingActivity = errors.New("winner must reference an activity")
	ErrEmptyName       = errors.New("winner name cannot be empty")
	ErrInvalidPosition = errors.New("winner position must be 1, 2 or 3")
	ErrInvalidYear     = errors.New("winner year must be positive")
	ErrNotFound        = errors.New("winner not found")
	ErrNoWinners       = errors.New("no winners registered for this activity")
)

// Winner is a placement awarded in a competition.
type Winner struct {
	ID            int64
	ActivityID    int64
	ParticipantID int64 // 0 when not linked to a participant
	Name          string
	ProjectTitle  string
	Description   string
	PhotoURL      string
	Position      int
	Year          int
	ActivityTitle string
	ActivityKind  string
	DiplomaFile   string
}

// HistoryEntry records that a winner was published for an activity.
// INVARIANT: at most one entry per (WinnerID, ActivityID)
type HistoryEntry struct {
	ID              int64
	WinnerID        int64
	ParticipantID   int64
	ActivityID      int64
	PublicationDate time.Time
	PublicationYear int
}

// Validate checks if the Winner has valid data.
// PRE: Winner struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (w *Winner) Validate() error {
	if w.ActivityID <= 0 {
		return ErrMissingActivity
	}
	if strings.TrimSpace(w.Name) == "" {
		return ErrEmptyName
	}
	if w.Position < MinPosition || w.Position > MaxPosition {
		return ErrInvalidPosition
	}
	if w.Year <= 0 {
		return ErrInvalidYear
	}
	return nil
}

// Medal maps a position onto its medal tier. Positions outside 1..3 are neutral.
func Medal(position int) string {
	switch position {
	case 1:
		return MedalGold
	case 2:
		return MedalSilver
	case 3:
		return MedalBronze
	default:
		return MedalNeutral
	}
}

// PlacementCaption returns the printed caption for a position, empty for neutral placements.
func PlacementCaption(position int) string {
	switch position {
	case 1:
		return "PRIMER LUGAR"
	case 2:
		return "SEGUNDO LUGAR"
	case 3:
		return "TERCER LUGAR"
	default:
		return ""
	}
}
