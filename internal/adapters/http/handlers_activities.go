package web

import (
	"log/slog"
	"net/http"
	"strings"

	"conference/internal/application/projections"
	domainActivity "conference/internal/domain/activity"
)

// activityRequest is the admin's activity form. Year defaults to the current year.
type activityRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Kind     string `json:"kind" validate:"required"`
	Location string `json:"location" validate:"max=200"`
	Day      string `json:"day"`
	Hour     string `json:"hour" validate:"omitempty,datetime=15:04"`
	Year     int    `json:"year" validate:"omitempty,gte=2000,lte=2100"`
}

func (s *server) activityFromRequest(req activityRequest) domainActivity.Activity {
	a := domainActivity.Activity{
		Title:    strings.TrimSpace(req.Title),
		Kind:     strings.ToUpper(strings.TrimSpace(req.Kind)),
		Location: strings.TrimSpace(req.Location),
		Day:      strings.TrimSpace(req.Day),
		Hour:     strings.TrimSpace(req.Hour),
		Year:     req.Year,
	}
	if a.Year == 0 {
		a.Year = s.Now().Year()
	}
	return a
}

// handleListActivities serves the public catalogue. Optional filters: ?year=&kind=.
func (s *server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	year, ok := queryYear(w, r)
	if !ok {
		return
	}
	views, err := projections.QueryActivities(r.Context(), projections.ActivitiesQuery{
		Year: year,
		Kind: r.URL.Query().Get("kind"),
	}, s.Stores.Activities)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleGetActivity serves one activity.
func (s *server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	view, err := projections.QueryActivity(r.Context(), id, s.Stores.Activities)
	if err != nil {
		respondError(w, r, err, "activity not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleCreateActivity creates an activity.
func (s *server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	a := s.activityFromRequest(req)
	if err := a.Validate(); err != nil {
		respondError(w, r, err, "")
		return
	}
	id, err := s.Stores.Activities.Create(r.Context(), a)
	if err != nil {
		internalError(w, r, err)
		return
	}
	a.ID = id
	slog.Info("activity_event", "event", "created", "activity_id", id, "kind", a.Kind, "year", a.Year)
	writeJSON(w, http.StatusCreated, projections.NewActivityView(a))
}

// handleUpdateActivity overwrites an activity's editable fields.
func (s *server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req activityRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	a := s.activityFromRequest(req)
	a.ID = id
	if err := a.Validate(); err != nil {
		respondError(w, r, err, "")
		return
	}
	if err := s.Stores.Activities.Update(r.Context(), a); err != nil {
		respondError(w, r, err, "activity not found")
		return
	}
	slog.Info("activity_event", "event", "updated", "activity_id", id)
	writeMessage(w, "activity updated")
}

// handleDeleteActivity removes an activity with its registrations, diplomas and winners.
func (s *server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.Stores.Activities.Delete(r.Context(), id); err != nil {
		respondError(w, r, err, "activity not found")
		return
	}
	slog.Info("activity_event", "event", "deleted", "activity_id", id)
	writeMessage(w, "activity deleted")
}
