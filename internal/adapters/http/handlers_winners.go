package web

import (
	"net/http"

	"conference/internal/application/orchestrators"
	"conference/internal/application/projections"
)

// createWinnerRequest is the admin's winner form. Year defaults to the activity's year.
type createWinnerRequest struct {
	ActivityID   int64  `json:"activity_id" validate:"required,gt=0"`
	UserID       int64  `json:"user_id" validate:"omitempty,gt=0"`
	Name         string `json:"name" validate:"required,max=150"`
	ProjectTitle string `json:"project_title" validate:"max=200"`
	Description  string `json:"description" validate:"max=5000"`
	PhotoURL     string `json:"photo_url" validate:"omitempty,url,max=500"`
	Position     int    `json:"position" validate:"required,oneof=1 2 3"`
	Year         int    `json:"year" validate:"omitempty,gte=2000,lte=2100"`
}

// publishRequest names the activity whose winners are published.
type publishRequest struct {
	ActivityID int64 `json:"activity_id" validate:"required,gt=0"`
}

// handleListWinners serves the public winners board.
func (s *server) handleListWinners(w http.ResponseWriter, r *http.Request) {
	views, err := projections.QueryWinnerBoard(r.Context(), s.Stores.Winners)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleWinnerCandidates lists registrations that could be awarded a placement.
func (s *server) handleWinnerCandidates(w http.ResponseWriter, r *http.Request) {
	views, err := projections.QueryWinnerCandidates(r.Context(), s.Stores.Winners)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleCreateWinner records a winner for an activity.
func (s *server) handleCreateWinner(w http.ResponseWriter, r *http.Request) {
	var req createWinnerRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	created, err := orchestrators.ExecuteCreateWinner(r.Context(), orchestrators.CreateWinnerInput{
		ActivityID:   req.ActivityID,
		UserID:       req.UserID,
		Name:         req.Name,
		ProjectTitle: req.ProjectTitle,
		Description:  req.Description,
		PhotoURL:     req.PhotoURL,
		Position:     req.Position,
		Year:         req.Year,
	}, orchestrators.CreateWinnerDeps{
		Winners:      s.Stores.Winners,
		Activities:   s.Stores.Activities,
		Participants: s.Stores.Participants,
	})
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":      created.ID,
		"message": "winner registered",
	})
}

// handleDeleteWinner removes a winner.
func (s *server) handleDeleteWinner(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := orchestrators.ExecuteDeleteWinner(r.Context(), id, s.Stores.Winners); err != nil {
		respondError(w, r, err, "")
		return
	}
	writeMessage(w, "winner deleted")
}

// handlePublishWinners publishes an activity's winners, records history and sends winner diplomas.
func (s *server) handlePublishWinners(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	result, err := orchestrators.ExecutePublishWinners(r.Context(), req.ActivityID, orchestrators.PublishWinnersDeps{
		Winners:      s.Stores.Winners,
		Participants: s.Stores.Participants,
		Activities:   s.Stores.Activities,
		Files:        s.Files,
		Renderer:     s.Renderer,
		Sender:       s.Sender,
		Mail:         s.Mail,
		Now:          s.Now,
		Metrics:      s.Metrics,
	})
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleWinnerHistory lists publication history, optionally for one year.
func (s *server) handleWinnerHistory(w http.ResponseWriter, r *http.Request) {
	year, ok := queryYear(w, r)
	if !ok {
		return
	}
	views, err := projections.QueryWinnerHistory(r.Context(), year, s.Stores.Winners)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}
