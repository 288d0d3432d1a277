package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	outboxStore "conference/internal/adapters/storage/outbox"
	"conference/internal/application/orchestrators"
	"conference/internal/domain/outbox"
)

// outboxEntryView is an outbox entry as shown to admins. The payload is omitted: it carries recipient data.
type outboxEntryView struct {
	ID              string     `json:"id"`
	ActionType      string     `json:"action_type"`
	Status          string     `json:"status"`
	Attempts        int        `json:"attempts"`
	MaxAttempts     int        `json:"max_attempts"`
	LastAttemptedAt *time.Time `json:"last_attempted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	ExternalID      string     `json:"external_id,omitempty"`
	ErrorMessage    string     `json:"error_message,omitempty"`
}

func newOutboxEntryView(e outbox.Entry) outboxEntryView {
	v := outboxEntryView{
		ID:           e.ID,
		ActionType:   e.ActionType,
		Status:       e.Status,
		Attempts:     e.Attempts,
		MaxAttempts:  e.MaxAttempts,
		CreatedAt:    e.CreatedAt,
		ExternalID:   e.ExternalID,
		ErrorMessage: e.ErrorMessage,
	}
	if !e.LastAttemptedAt.IsZero() {
		at := e.LastAttemptedAt
		v.LastAttemptedAt = &at
	}
	return v
}

var outboxStatuses = map[string]bool{
	outbox.StatusPending:   true,
	outbox.StatusRetrying:  true,
	outbox.StatusDone:      true,
	outbox.StatusFailed:    true,
	outbox.StatusAbandoned: true,
}

// handleListOutbox lists outbox entries, newest first.
// Query: ?status= (default failed, "all" disables the filter), ?action_type=, ?limit= (1..100, default 50).
func (s *server) handleListOutbox(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if limitStr := q.Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	status := strings.ToLower(strings.TrimSpace(q.Get("status")))
	switch {
	case status == "":
		status = outbox.StatusFailed
	case status == "all":
		status = ""
	case !outboxStatuses[status]:
		writeError(w, http.StatusBadRequest, "unknown status: "+status)
		return
	}

	entries, err := s.Stores.Outbox.List(r.Context(), outboxStore.ListFilter{
		Status:     status,
		ActionType: strings.TrimSpace(q.Get("action_type")),
		Limit:      limit,
	})
	if err != nil {
		internalError(w, r, err)
		return
	}
	views := make([]outboxEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newOutboxEntryView(e))
	}
	writeJSON(w, http.StatusOK, views)
}

// handleRetryOutbox attempts one entry immediately, ignoring its backoff.
// The response carries the entry's new state; a failed send is not a request error.
func (s *server) handleRetryOutbox(w http.ResponseWriter, r *http.Request) {
	entry, err := s.Outbox.ProcessSingle(r.Context(), r.PathValue("id"))
	if errors.Is(err, orchestrators.ErrNoExecutor) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, newOutboxEntryView(entry))
}

// handleAbandonOutbox stops further retries of an entry.
func (s *server) handleAbandonOutbox(w http.ResponseWriter, r *http.Request) {
	entry, err := s.Outbox.AbandonEntry(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, newOutboxEntryView(entry))
}
