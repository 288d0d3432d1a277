package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	domainAttendance "conference/internal/domain/attendance"
	domainDiploma "conference/internal/domain/diploma"
	domainRegistration "conference/internal/domain/registration"
)

// RegistrationStoreForAttendance defines the registration operations ConfirmAttendance needs.
type RegistrationStoreForAttendance interface {
	GetByToken(ctx context.Context, token string) (domainRegistration.Registration, error)
	MarkAttended(ctx context.Context, r domainRegistration.Registration) error
}

// CheckInAppender writes the attendance log.
type CheckInAppender interface {
	Append(ctx context.Context, c domainAttendance.CheckIn) (int64, error)
}

// ConfirmAttendanceInput carries the redeemed token and how it arrived.
type ConfirmAttendanceInput struct {
	Token  string
	Source string // qr or manual; defaults to qr
}

// ConfirmAttendanceResult is returned to the scanner.
type ConfirmAttendanceResult struct {
	FullName      string    `json:"full_name"`
	ActivityTitle string    `json:"activity_title"`
	AttendedAt    time.Time `json:"attended_at"`
}

// ConfirmAttendanceDeps holds dependencies for ConfirmAttendance.
type ConfirmAttendanceDeps struct {
	Registrations RegistrationStoreForAttendance
	CheckIns      CheckInAppender
	Diploma       DiplomaDeps
	Now           func() time.Time
	Metrics       Recorder
}

// ExecuteConfirmAttendance redeems a registration token.
// PRE: none
// POST: status = ASISTIÓ, attended_at = now, one attendance-log row appended;
// unknown tokens return ErrTokenNotFound and change nothing
// INVARIANT: the diploma pipeline never changes the outcome
func ExecuteConfirmAttendance(ctx context.Context, input ConfirmAttendanceInput, deps ConfirmAttendanceDeps) (ConfirmAttendanceResult, error) {
	token := strings.TrimSpace(input.Token)
	if token == "" {
		return ConfirmAttendanceResult{}, domainRegistration.ErrEmptyToken
	}

	reg, err := deps.Registrations.GetByToken(ctx, token)
	if isNotFound(err) {
		slog.Info("attendance_event", "event", "token_not_found")
		return ConfirmAttendanceResult{}, domainRegistration.ErrTokenNotFound
	}
	if err != nil {
		return ConfirmAttendanceResult{}, fmt.Errorf("lookup token: %w", err)
	}

	p, err := deps.Diploma.Participants.GetByID(ctx, reg.ParticipantID)
	if err != nil {
		return ConfirmAttendanceResult{}, fmt.Errorf("load participant: %w", err)
	}
	a, err := deps.Diploma.Activities.GetByID(ctx, reg.ActivityID)
	if err != nil {
		return ConfirmAttendanceResult{}, fmt.Errorf("load activity: %w", err)
	}

	now := nowOr(deps.Now)
	repeat := reg.HasAttended()
	reg.MarkAttended(now)
	if err := deps.Registrations.MarkAttended(ctx, reg); err != nil {
		return ConfirmAttendanceResult{}, fmt.Errorf("mark attended: %w", err)
	}

	source := input.Source
	if source == "" {
		source = domainAttendance.SourceQR
	}
	checkIn := domainAttendance.CheckIn{RegistrationID: reg.ID, CheckedInAt: now, Source: source}
	if err := checkIn.Validate(); err != nil {
		return ConfirmAttendanceResult{}, err
	}
	if _, err := deps.CheckIns.Append(ctx, checkIn); err != nil {
		return ConfirmAttendanceResult{}, fmt.Errorf("append attendance log: %w", err)
	}
	recorderOrNop(deps.Metrics).CheckIn()
	slog.Info("attendance_event", "event", "confirmed", "registration_id", reg.ID, "user_id", p.ID, "activity_id", a.ID, "repeat", repeat, "source", source)

	// Best effort: the response is the same whether or not the diploma goes out.
	if _, err := issueDiploma(ctx, deps.Diploma, reg); err != nil && !errors.Is(err, domainDiploma.ErrAlreadyIssued) {
		slog.Error("attendance_diploma_failed", "registration_id", reg.ID, "error", err)
	}

	return ConfirmAttendanceResult{
		FullName:      p.FullName,
		ActivityTitle: a.Title,
		AttendedAt:    now,
	}, nil
}
