package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	emailAdapter "conference/internal/adapters/email"
	participantStore "conference/internal/adapters/storage/participant"
	domainActivity "conference/internal/domain/activity"
	domainOutbox "conference/internal/domain/outbox"
	domainParticipant "conference/internal/domain/participant"
	domainRegistration "conference/internal/domain/registration"
)

// Confirmation email outcomes reported per registered activity.
const (
	EmailSent   = "sent"
	EmailQueued = "queued"
	EmailFailed = "failed"
)

var (
	ErrNoActivities        = errors.New("at least one activity must be selected")
	ErrParticipantNotFound = fmt.Errorf("participant %w", ErrNotFound)
)

// ParticipantStoreForRegister defines the participant operations Register needs.
type ParticipantStoreForRegister interface {
	GetByID(ctx context.Context, id int64) (domainParticipant.Participant, error)
	GetByEmail(ctx context.Context, email string) (domainParticipant.Participant, error)
	Create(ctx context.Context, p domainParticipant.Participant) (int64, error)
}

// RegistrationStoreForRegister defines the registration operations Register needs.
type RegistrationStoreForRegister interface {
	Exists(ctx context.Context, participantID, activityID int64) (bool, error)
	Create(ctx context.Context, r domainRegistration.Registration) (int64, bool, error)
}

// RegisterInput carries the sign-up form. UserID, when set, selects an existing participant.
type RegisterInput struct {
	UserID       int64
	FullName     string
	Email        string
	Phone        string
	School       string
	UniversityID string
	Type         string
	ActivityIDs  []int64
	ActivityID   int64
}

// activities returns ActivityIDs, or the single ActivityID when the list is empty.
func (in RegisterInput) activities() []int64 {
	if len(in.ActivityIDs) > 0 {
		return in.ActivityIDs
	}
	if in.ActivityID > 0 {
		return []int64{in.ActivityID}
	}
	return nil
}

// RegisteredActivity is one successful registration in the response.
type RegisteredActivity struct {
	ActivityID  int64  `json:"activity_id"`
	Title       string `json:"title"`
	QRToken     string `json:"qr_token"`
	EmailStatus string `json:"email_status"`
}

// RegisterResult is returned to the registrant.
type RegisterResult struct {
	UserID     int64                `json:"user_id"`
	Successful []RegisteredActivity `json:"successful"`
	Skipped    []int64              `json:"skipped"`
}

// RegisterDeps holds dependencies for Register.
type RegisterDeps struct {
	Participants  ParticipantStoreForRegister
	Activities    ActivityReader
	Registrations RegistrationStoreForRegister
	Outbox        OutboxWriter
	Sender        emailAdapter.Sender
	Mail          MailConfig
	NewToken      func() string
	NewID         func() string
	Now           func() time.Time
	Metrics       Recorder
}

// ExecuteRegister registers one participant for one or more activities.
// PRE: input names at least one activity; a new participant needs a name and an email
// POST: One INSCRITO registration with a fresh token per new (participant, activity) pair,
// a confirmation email sent or queued for each; already-registered and unknown activities are skipped
// INVARIANT: at most one registration per (participant, activity)
func ExecuteRegister(ctx context.Context, input RegisterInput, deps RegisterDeps) (RegisterResult, error) {
	activityIDs := input.activities()
	if len(activityIDs) == 0 {
		return RegisterResult{}, ErrNoActivities
	}

	now := nowOr(deps.Now)
	rec := recorderOrNop(deps.Metrics)
	newToken := deps.NewToken
	if newToken == nil {
		newToken = uuid.NewString
	}

	p, err := resolveParticipant(ctx, input, deps, now)
	if err != nil {
		return RegisterResult{}, err
	}

	result := RegisterResult{UserID: p.ID, Successful: []RegisteredActivity{}, Skipped: []int64{}}
	for _, activityID := range activityIDs {
		a, err := deps.Activities.GetByID(ctx, activityID)
		if isNotFound(err) {
			slog.Info("registration_event", "event", "skipped", "reason", "unknown_activity", "user_id", p.ID, "activity_id", activityID)
			result.Skipped = append(result.Skipped, activityID)
			rec.Registration("skipped")
			continue
		}
		if err != nil {
			return RegisterResult{}, fmt.Errorf("load activity %d: %w", activityID, err)
		}

		exists, err := deps.Registrations.Exists(ctx, p.ID, a.ID)
		if err != nil {
			return RegisterResult{}, fmt.Errorf("check registration: %w", err)
		}
		if exists {
			slog.Info("registration_event", "event", "skipped", "reason", "already_registered", "user_id", p.ID, "activity_id", a.ID)
			result.Skipped = append(result.Skipped, activityID)
			rec.Registration("skipped")
			continue
		}

		reg := domainRegistration.Registration{
			ParticipantID: p.ID,
			ActivityID:    a.ID,
			Token:         newToken(),
			Status:        domainRegistration.StatusRegistered,
			CreatedAt:     now,
		}
		if err := reg.Validate(); err != nil {
			return RegisterResult{}, err
		}
		regID, created, err := deps.Registrations.Create(ctx, reg)
		if err != nil {
			return RegisterResult{}, fmt.Errorf("create registration: %w", err)
		}
		if !created {
			// A concurrent request registered the same pair between Exists and Create.
			result.Skipped = append(result.Skipped, activityID)
			rec.Registration("skipped")
			continue
		}
		rec.Registration("created")
		slog.Info("registration_event", "event", "registered", "registration_id", regID, "user_id", p.ID, "activity_id", a.ID)

		status := sendConfirmation(ctx, deps, p, a, reg.Token, now)
		result.Successful = append(result.Successful, RegisteredActivity{
			ActivityID:  a.ID,
			Title:       a.Title,
			QRToken:     reg.Token,
			EmailStatus: status,
		})
	}
	return result, nil
}

// resolveParticipant finds the registrant by id, then by email, else creates them.
func resolveParticipant(ctx context.Context, input RegisterInput, deps RegisterDeps, now time.Time) (domainParticipant.Participant, error) {
	if input.UserID > 0 {
		p, err := deps.Participants.GetByID(ctx, input.UserID)
		if isNotFound(err) {
			return domainParticipant.Participant{}, ErrParticipantNotFound
		}
		return p, err
	}

	email := participantStore.NormalizeEmail(input.Email)
	if email != "" {
		p, err := deps.Participants.GetByEmail(ctx, email)
		if err == nil {
			return p, nil
		}
		if !isNotFound(err) {
			return domainParticipant.Participant{}, err
		}
	}

	p := domainParticipant.Participant{
		FullName:     strings.TrimSpace(input.FullName),
		Email:        email,
		Phone:        strings.TrimSpace(input.Phone),
		School:       strings.TrimSpace(input.School),
		UniversityID: strings.TrimSpace(input.UniversityID),
		Type:         domainParticipant.NormalizeType(input.Type),
		CreatedAt:    now,
	}
	if err := p.Validate(); err != nil {
		return domainParticipant.Participant{}, err
	}
	id, err := deps.Participants.Create(ctx, p)
	if errors.Is(err, participantStore.ErrDuplicateEmail) {
		return deps.Participants.GetByEmail(ctx, email)
	}
	if err != nil {
		return domainParticipant.Participant{}, fmt.Errorf("create participant: %w", err)
	}
	p.ID = id
	slog.Info("registration_event", "event", "participant_created", "user_id", id, "type", p.Type)
	return p, nil
}

// ConfirmationPayload is the outbox payload needed to rebuild a confirmation email.
type ConfirmationPayload struct {
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	ActivityID int64  `json:"activity_id"`
	Token      string `json:"token"`
}

// sendConfirmation emails the QR code. A failed send is queued in the outbox for retry.
// POST: Returns EmailSent, EmailQueued or EmailFailed; never returns an error
func sendConfirmation(ctx context.Context, deps RegisterDeps, p domainParticipant.Participant, a domainActivity.Activity, token string, now time.Time) string {
	rec := recorderOrNop(deps.Metrics)

	msg, err := deps.Mail.confirmationEmail(p.FullName, a, token, now)
	if err == nil {
		_, err = deps.Sender.Send(ctx, msg.request(p.Email))
	}
	rec.Email("confirmation", err == nil)
	if err == nil {
		return EmailSent
	}
	slog.Warn("registration_event", "event", "confirmation_email_failed", "user_id", p.ID, "activity_id", a.ID, "error", err)

	if deps.Outbox == nil {
		return EmailFailed
	}
	payload, mErr := json.Marshal(ConfirmationPayload{Email: p.Email, FullName: p.FullName, ActivityID: a.ID, Token: token})
	if mErr != nil {
		slog.Error("outbox_enqueue_failed", "error", mErr)
		return EmailFailed
	}
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	entry := domainOutbox.Entry{
		ID:           newID(),
		ActionType:   domainOutbox.ActionTypeConfirmationEmail,
		Payload:      string(payload),
		Status:       domainOutbox.StatusPending,
		CreatedAt:    now,
		ErrorMessage: err.Error(),
	}
	if vErr := entry.Validate(); vErr != nil {
		slog.Error("outbox_enqueue_failed", "error", vErr)
		return EmailFailed
	}
	if sErr := deps.Outbox.Save(ctx, entry); sErr != nil {
		slog.Error("outbox_enqueue_failed", "entry_id", entry.ID, "error", sErr)
		return EmailFailed
	}
	slog.Info("outbox_event", "event", "enqueued", "entry_id", entry.ID, "action", entry.ActionType)
	return EmailQueued
}
