package activity

import (
	"testing"
	"time"
)

// TestActivity_Validate covers title, kind, day and year rules.
func TestActivity_Validate(t *testing.T) {
	tests := []struct {
		name    string
		a       Activity
		wantErr error
	}{
		{"valid workshop", Activity{Title: "Robotics Workshop", Kind: KindWorkshop, Year: 2025}, nil},
		{"valid with day", Activity{Title: "Hackathon", Kind: KindCompetition, Day: "2025-10-15", Year: 2025}, nil},
		{"empty title", Activity{Kind: KindWorkshop, Year: 2025}, ErrEmptyTitle},
		{"bad kind", Activity{Title: "Talk", Kind: "CHARLA", Year: 2025}, ErrInvalidKind},
		{"bad day", Activity{Title: "Talk", Kind: KindWorkshop, Day: "15/10/2025", Year: 2025}, ErrInvalidDay},
		{"missing year", Activity{Title: "Talk", Kind: KindWorkshop}, ErrInvalidYear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.a.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestActivity_ScheduledDate verifies the fallback for unset and malformed days.
func TestActivity_ScheduledDate(t *testing.T) {
	fallback := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

	a := Activity{Day: "2025-10-15"}
	if got := a.ScheduledDate(fallback); got.Day() != 15 || got.Month() != time.October {
		t.Errorf("ScheduledDate = %v, want 2025-10-15", got)
	}

	a.Day = ""
	if got := a.ScheduledDate(fallback); !got.Equal(fallback) {
		t.Errorf("empty day: got %v, want fallback", got)
	}

	a.Day = "not-a-date"
	if got := a.ScheduledDate(fallback); !got.Equal(fallback) {
		t.Errorf("malformed day: got %v, want fallback", got)
	}
}
