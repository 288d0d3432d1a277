package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"conference/internal/adapters/certificate"
	emailAdapter "conference/internal/adapters/email"
	"conference/internal/adapters/filestore"
	diplomaStore "conference/internal/adapters/storage/diploma"
	domainDiploma "conference/internal/domain/diploma"
	domainRegistration "conference/internal/domain/registration"
)

// Batch job messages.
const (
	MsgNothingPending = "nothing pending"
	MsgNothingUnsent  = "nothing unsent"
)

const pdfContentType = "application/pdf"

var ErrDiplomaNotFound = fmt.Errorf("diploma %w", ErrNotFound)

// DiplomaRenderer produces diploma PDFs.
type DiplomaRenderer interface {
	Render(name, activity, dateText string) ([]byte, error)
	RenderWinner(name, activity, dateText string, placement, year int) ([]byte, error)
}

// DiplomaStoreForIssue defines the diploma operations the pipelines need.
type DiplomaStoreForIssue interface {
	Create(ctx context.Context, d domainDiploma.Diploma) (int64, error)
	Exists(ctx context.Context, participantID, activityID int64) (bool, error)
	MarkEmailed(ctx context.Context, id int64, at time.Time) error
	ListUnsent(ctx context.Context) ([]domainDiploma.Diploma, error)
	GetDetailed(ctx context.Context, id int64) (diplomaStore.Listing, error)
}

// PendingDiplomaLister selects attended registrations that have no diploma yet.
type PendingDiplomaLister interface {
	ListAttendedWithoutDiploma(ctx context.Context) ([]domainRegistration.Registration, error)
}

// DiplomaDeps holds dependencies shared by every diploma pipeline.
type DiplomaDeps struct {
	Participants  ParticipantReader
	Activities    ActivityReader
	Diplomas      DiplomaStoreForIssue
	Registrations PendingDiplomaLister
	Files         filestore.Store
	Renderer      DiplomaRenderer
	Sender        emailAdapter.Sender
	Mail          MailConfig
	Now           func() time.Time
	Metrics       Recorder
}

// DiplomaOutcome is the per-item result of a batch run.
type DiplomaOutcome struct {
	UserID     int64  `json:"user_id"`
	ActivityID int64  `json:"activity_id"`
	DiplomaID  int64  `json:"diploma_id,omitempty"`
	Emailed    bool   `json:"emailed"`
	Error      string `json:"error,omitempty"`
}

// BatchResult is the response of a batch diploma run.
type BatchResult struct {
	Message string           `json:"message"`
	Details []DiplomaOutcome `json:"details"`
}

// issueDiploma renders, stores, emails and records one participation diploma.
// PRE: reg is an attended registration
// POST: A diploma row exists with emailed == send outcome, or ErrAlreadyIssued and no side effects
// INVARIANT: at most one diploma per (participant, activity)
func issueDiploma(ctx context.Context, deps DiplomaDeps, reg domainRegistration.Registration) (DiplomaOutcome, error) {
	out := DiplomaOutcome{UserID: reg.ParticipantID, ActivityID: reg.ActivityID}
	rec := recorderOrNop(deps.Metrics)
	now := nowOr(deps.Now)

	exists, err := deps.Diplomas.Exists(ctx, reg.ParticipantID, reg.ActivityID)
	if err != nil {
		return out, fmt.Errorf("check diploma: %w", err)
	}
	if exists {
		return out, domainDiploma.ErrAlreadyIssued
	}

	p, err := deps.Participants.GetByID(ctx, reg.ParticipantID)
	if err != nil {
		return out, fmt.Errorf("load participant: %w", err)
	}
	a, err := deps.Activities.GetByID(ctx, reg.ActivityID)
	if err != nil {
		return out, fmt.Errorf("load activity: %w", err)
	}

	fallback := reg.AttendedAt
	if fallback.IsZero() {
		fallback = now
	}
	pdf, err := deps.Renderer.Render(p.FullName, a.Title, certificate.DateText(a.ScheduledDate(fallback)))
	if err != nil {
		rec.Diploma("participation", "error")
		return out, fmt.Errorf("render diploma: %w", err)
	}
	key := domainDiploma.FileKey(p.ID, a.ID)
	if err := deps.Files.Put(ctx, key, pdf, pdfContentType); err != nil {
		rec.Diploma("participation", "error")
		return out, fmt.Errorf("store diploma: %w", err)
	}

	d := domainDiploma.Diploma{ParticipantID: p.ID, ActivityID: a.ID, FileKey: key, GeneratedAt: now}
	msg, err := deps.Mail.diplomaEmail(p.FullName, a.Title, pdf, false, now)
	if err == nil {
		_, err = deps.Sender.Send(ctx, msg.request(p.Email))
	}
	rec.Email("diploma", err == nil)
	if err != nil {
		slog.Warn("diploma_event", "event", "email_failed", "user_id", p.ID, "activity_id", a.ID, "error", err)
	} else {
		d.MarkEmailed(now)
	}

	id, err := deps.Diplomas.Create(ctx, d)
	if err != nil {
		rec.Diploma("participation", "error")
		return out, fmt.Errorf("record diploma: %w", err)
	}
	out.DiplomaID = id
	out.Emailed = d.Emailed
	rec.Diploma("participation", "issued")
	slog.Info("diploma_event", "event", "issued", "diploma_id", id, "user_id", p.ID, "activity_id", a.ID, "emailed", d.Emailed)
	return out, nil
}

// ExecuteIssuePendingDiplomas generates diplomas for every attended registration without one.
// Items run sequentially; a failing item is reported and the run continues.
// PRE: deps.Registrations is set
// POST: Every pending item was attempted once; Details lists each item's outcome, never nil
func ExecuteIssuePendingDiplomas(ctx context.Context, deps DiplomaDeps) (BatchResult, error) {
	pending, err := deps.Registrations.ListAttendedWithoutDiploma(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list pending diplomas: %w", err)
	}
	if len(pending) == 0 {
		return BatchResult{Message: MsgNothingPending, Details: []DiplomaOutcome{}}, nil
	}

	slog.Info("diploma_batch_start", "count", len(pending))
	details := make([]DiplomaOutcome, 0, len(pending))
	var issued, failed int
	for _, reg := range pending {
		out, err := issueDiploma(ctx, deps, reg)
		if err != nil {
			out.Error = err.Error()
			failed++
			slog.Error("diploma_batch_item_failed", "user_id", reg.ParticipantID, "activity_id", reg.ActivityID, "error", err)
		} else {
			issued++
		}
		details = append(details, out)
	}
	slog.Info("diploma_batch_complete", "issued", issued, "failed", failed)
	return BatchResult{
		Message: fmt.Sprintf("%d diplomas generated, %d failed", issued, failed),
		Details: details,
	}, nil
}

// ExecuteSendAllDiplomas emails every stored diploma whose email never went out.
// POST: Each unsent diploma was attempted once; sent ones have emailed = 1
func ExecuteSendAllDiplomas(ctx context.Context, deps DiplomaDeps) (BatchResult, error) {
	unsent, err := deps.Diplomas.ListUnsent(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list unsent diplomas: %w", err)
	}
	if len(unsent) == 0 {
		return BatchResult{Message: MsgNothingUnsent, Details: []DiplomaOutcome{}}, nil
	}

	details := make([]DiplomaOutcome, 0, len(unsent))
	var sent int
	for _, d := range unsent {
		out := DiplomaOutcome{UserID: d.ParticipantID, ActivityID: d.ActivityID, DiplomaID: d.ID}
		if err := sendStoredDiploma(ctx, deps, d.ID, false); err != nil {
			out.Error = err.Error()
			slog.Error("diploma_send_all_item_failed", "diploma_id", d.ID, "error", err)
		} else {
			out.Emailed = true
			sent++
		}
		details = append(details, out)
	}
	return BatchResult{
		Message: fmt.Sprintf("%d of %d diplomas sent", sent, len(unsent)),
		Details: details,
	}, nil
}

// ResendResult is returned after re-sending one diploma.
type ResendResult struct {
	DiplomaID int64  `json:"diploma_id"`
	Email     string `json:"email"`
}

// ExecuteResendDiploma emails a stored diploma again.
// PRE: id > 0
// POST: emailed = 1 and emailed_at = now; ErrDiplomaNotFound for unknown ids; provider errors returned
func ExecuteResendDiploma(ctx context.Context, id int64, deps DiplomaDeps) (ResendResult, error) {
	listing, err := deps.Diplomas.GetDetailed(ctx, id)
	if isNotFound(err) {
		return ResendResult{}, ErrDiplomaNotFound
	}
	if err != nil {
		return ResendResult{}, err
	}
	if err := deliverDiploma(ctx, deps, listing, true); err != nil {
		return ResendResult{}, err
	}
	return ResendResult{DiplomaID: id, Email: listing.Email}, nil
}

func sendStoredDiploma(ctx context.Context, deps DiplomaDeps, id int64, resend bool) error {
	listing, err := deps.Diplomas.GetDetailed(ctx, id)
	if err != nil {
		return err
	}
	return deliverDiploma(ctx, deps, listing, resend)
}

// deliverDiploma reads the stored PDF, emails it and marks the row emailed.
func deliverDiploma(ctx context.Context, deps DiplomaDeps, listing diplomaStore.Listing, resend bool) error {
	now := nowOr(deps.Now)
	pdf, err := filestore.ReadAll(ctx, deps.Files, listing.FileKey)
	if errors.Is(err, filestore.ErrNotFound) {
		return fmt.Errorf("diploma %d file missing: %w", listing.ID, err)
	}
	if err != nil {
		return fmt.Errorf("read diploma %d: %w", listing.ID, err)
	}

	msg, err := deps.Mail.diplomaEmail(listing.FullName, listing.ActivityTitle, pdf, resend, now)
	if err != nil {
		return err
	}
	_, err = deps.Sender.Send(ctx, msg.request(listing.Email))
	recorderOrNop(deps.Metrics).Email("diploma", err == nil)
	if err != nil {
		return fmt.Errorf("send diploma %d: %w", listing.ID, err)
	}
	if err := deps.Diplomas.MarkEmailed(ctx, listing.ID, now); err != nil {
		return fmt.Errorf("mark diploma %d emailed: %w", listing.ID, err)
	}
	slog.Info("diploma_event", "event", "emailed", "diploma_id", listing.ID, "resend", resend)
	return nil
}
