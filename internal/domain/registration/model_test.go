package registration

import (
	"testing"
	"time"
)

// TestRegistration_MarkAttended verifies the one-way transition and timestamp refresh.
func TestRegistration_MarkAttended(t *testing.T) {
	r := Registration{ParticipantID: 1, ActivityID: 7, Token: "tok", Status: StatusRegistered}
	if r.HasAttended() {
		t.Fatal("fresh registration reports attended")
	}

	first := time.Date(2025, 10, 15, 9, 0, 0, 0, time.UTC)
	r.MarkAttended(first)
	if r.Status != StatusAttended || !r.AttendedAt.Equal(first) {
		t.Fatalf("after first redeem: status=%q attended_at=%v", r.Status, r.AttendedAt)
	}

	second := first.Add(time.Hour)
	r.MarkAttended(second)
	if r.Status != StatusAttended {
		t.Errorf("status moved to %q on second redeem", r.Status)
	}
	if !r.AttendedAt.Equal(second) {
		t.Errorf("attended_at = %v, want refreshed %v", r.AttendedAt, second)
	}
}

// TestRegistration_Validate covers the required references.
func TestRegistration_Validate(t *testing.T) {
	tests := []struct {
		name    string
		r       Registration
		wantErr error
	}{
		{"valid", Registration{ParticipantID: 1, ActivityID: 2, Token: "t", Status: StatusRegistered}, nil},
		{"no participant", Registration{ActivityID: 2, Token: "t", Status: StatusRegistered}, ErrMissingParticipant},
		{"no activity", Registration{ParticipantID: 1, Token: "t", Status: StatusRegistered}, ErrMissingActivity},
		{"no token", Registration{ParticipantID: 1, ActivityID: 2, Status: StatusRegistered}, ErrEmptyToken},
		{"bad status", Registration{ParticipantID: 1, ActivityID: 2, Token: "t", Status: "CANCELADO"}, ErrInvalidStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.r.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
