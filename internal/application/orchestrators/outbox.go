package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	emailAdapter "conference/internal/adapters/email"
	domain "conference/internal/domain/outbox"
)

// Outbox processing errors.
var (
	ErrEntryTerminal = errors.New("outbox entry is in a terminal state")
	ErrNoExecutor    = errors.New("no executor registered for action type")
)

// OutboxStore is the persistence the processor needs.
type OutboxStore interface {
	GetByID(ctx context.Context, id string) (domain.Entry, error)
	Save(ctx context.Context, e domain.Entry) error
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)
}

// ActionExecutor replays one kind of deferred action.
type ActionExecutor interface {
	// Execute runs the action and returns the provider's external id.
	Execute(ctx context.Context, payload string) (string, error)
}

// OutboxProcessor retries deferred deliveries with exponential backoff.
type OutboxProcessor struct {
	store     OutboxStore
	executors map[string]ActionExecutor
	metrics   Recorder
	now       func() time.Time
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
}

// NewOutboxProcessor creates a processor. metrics may be nil.
func NewOutboxProcessor(store OutboxStore, executors map[string]ActionExecutor, metrics Recorder) *OutboxProcessor {
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		metrics:   recorderOrNop(metrics),
		now:       time.Now,
		baseDelay: 30 * time.Second,
		maxDelay:  time.Hour,
		batchSize: 25,
	}
}

// OutboxRunResult counts what one pass did.
type OutboxRunResult struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Deferred  int `json:"deferred"`
}

// ProcessPending runs every pending entry whose backoff has elapsed.
// PRE: Context is valid
// POST: Attempted entries saved with their new status
func (p *OutboxProcessor) ProcessPending(ctx context.Context) (OutboxRunResult, error) {
	var res OutboxRunResult
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return res, fmt.Errorf("list pending outbox entries: %w", err)
	}

	now := p.now()
	for _, entry := range entries {
		if !entry.DueForRetry(now, p.baseDelay, p.maxDelay) {
			res.Deferred++
			continue
		}
		res.Processed++
		if err := p.attempt(ctx, &entry); err != nil {
			res.Failed++
			continue
		}
		res.Succeeded++
	}
	if res.Processed > 0 {
		slog.Info("outbox_pass_complete", "processed", res.Processed, "succeeded", res.Succeeded, "failed", res.Failed, "deferred", res.Deferred)
	}
	return res, nil
}

// ProcessSingle retries one entry immediately, ignoring backoff (admin retry).
// PRE: entryID is non-empty
// POST: Entry attempted and saved; ErrEntryTerminal for done or abandoned entries
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) (domain.Entry, error) {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return domain.Entry{}, err
	}
	if entry.IsTerminal() {
		return entry, ErrEntryTerminal
	}
	if _, ok := p.executors[entry.ActionType]; !ok {
		return entry, fmt.Errorf("%w: %s", ErrNoExecutor, entry.ActionType)
	}
	// A failed send stays the outcome of the entry, not of the request.
	_ = p.attempt(ctx, &entry)
	return entry, nil
}

// AbandonEntry stops further retries of an entry.
// PRE: entryID is non-empty
// POST: Entry status set to abandoned
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) (domain.Entry, error) {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return domain.Entry{}, err
	}
	entry.MarkAbandoned()
	if err := p.store.Save(ctx, entry); err != nil {
		return domain.Entry{}, err
	}
	slog.Info("outbox_entry_abandoned", "entry_id", entry.ID, "action_type", entry.ActionType)
	return entry, nil
}

// attempt executes entry once and persists the outcome. The returned error is the action's.
func (p *OutboxProcessor) attempt(ctx context.Context, entry *domain.Entry) error {
	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.Attempts = entry.MaxAttempts
		entry.MarkFailed(fmt.Errorf("%w: %s", ErrNoExecutor, entry.ActionType))
		p.save(ctx, *entry)
		p.metrics.OutboxAttempt("failed")
		return ErrNoExecutor
	}

	entry.MarkAttempt(p.now())
	externalID, err := executor.Execute(ctx, entry.Payload)
	if err != nil {
		entry.MarkFailed(err)
		p.metrics.OutboxAttempt("failed")
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "attempt", entry.Attempts, "error", err)
	} else {
		entry.MarkSuccess(externalID)
		p.metrics.OutboxAttempt("succeeded")
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	}
	p.save(ctx, *entry)
	return err
}

func (p *OutboxProcessor) save(ctx context.Context, entry domain.Entry) {
	if err := p.store.Save(ctx, entry); err != nil {
		slog.Error("outbox_save_failed", "entry_id", entry.ID, "error", err)
	}
}

// Start runs ProcessPending every interval until ctx is cancelled.
// PRE: interval > 0
// POST: Returns a channel closed once the worker has stopped
func (p *OutboxProcessor) Start(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("outbox_worker_stopped")
				return
			case <-ticker.C:
				passCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
				if _, err := p.ProcessPending(passCtx); err != nil {
					slog.Error("outbox_pass_failed", "error", err)
				}
				cancel()
			}
		}
	}()
	return done
}

// ConfirmationEmailExecutor replays registration confirmation emails.
type ConfirmationEmailExecutor struct {
	Activities ActivityReader
	Sender     emailAdapter.Sender
	Mail       MailConfig
	Now        func() time.Time
	Metrics    Recorder
}

// Execute rebuilds the confirmation email from a ConfirmationPayload and sends it.
// PRE: payload is JSON matching ConfirmationPayload
// POST: Email sent; returns the provider message id
func (e *ConfirmationEmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var p ConfirmationPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	a, err := e.Activities.GetByID(ctx, p.ActivityID)
	if err != nil {
		return "", fmt.Errorf("load activity %d: %w", p.ActivityID, err)
	}
	msg, err := e.Mail.confirmationEmail(p.FullName, a, p.Token, nowOr(e.Now))
	if err != nil {
		return "", err
	}
	res, err := e.Sender.Send(ctx, msg.request(p.Email))
	recorderOrNop(e.Metrics).Email("confirmation", err == nil)
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}
