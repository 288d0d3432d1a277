package web

import (
	"log/slog"
	"net/http"
	"strings"

	"conference/internal/application/projections"
	domainParticipant "conference/internal/domain/participant"
)

// userRequest is the participant form shared by sign-up and admin edits.
type userRequest struct {
	FullName     string `json:"full_name" validate:"required,max=150"`
	Email        string `json:"email" validate:"required,email,max=254"`
	Phone        string `json:"phone" validate:"max=30"`
	School       string `json:"school" validate:"max=150"`
	UniversityID string `json:"university_id" validate:"max=50"`
	Type         string `json:"type"`
}

func (req userRequest) participant() domainParticipant.Participant {
	return domainParticipant.Participant{
		FullName:     strings.TrimSpace(req.FullName),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		School:       strings.TrimSpace(req.School),
		UniversityID: strings.TrimSpace(req.UniversityID),
		Type:         domainParticipant.NormalizeType(req.Type),
	}
}

// handleCreateUser is the public sign-up. It never grants the ADMIN type.
func (s *server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	p := req.participant()
	if p.Type == domainParticipant.TypeAdmin {
		p.Type = domainParticipant.TypeExternal
	}
	p.CreatedAt = s.Now()
	if err := p.Validate(); err != nil {
		respondError(w, r, err, "")
		return
	}
	id, err := s.Stores.Participants.Create(r.Context(), p)
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	p.ID = id
	slog.Info("participant_event", "event", "created", "user_id", id, "type", p.Type)
	writeJSON(w, http.StatusCreated, projections.NewParticipantView(p))
}

// handleListUsers lists every participant.
func (s *server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	views, err := projections.QueryParticipants(r.Context(), "", s.Stores.Participants)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleListUsersByType lists participants of one type.
func (s *server) handleListUsersByType(w http.ResponseWriter, r *http.Request) {
	views, err := projections.QueryParticipants(r.Context(), r.PathValue("type"), s.Stores.Participants)
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleUpdateUser overwrites a participant's editable fields.
func (s *server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req userRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	p := req.participant()
	p.ID = id
	if err := p.Validate(); err != nil {
		respondError(w, r, err, "")
		return
	}
	if err := s.Stores.Participants.Update(r.Context(), p); err != nil {
		respondError(w, r, err, "participant not found")
		return
	}
	slog.Info("participant_event", "event", "updated", "user_id", id)
	writeMessage(w, "participant updated")
}

// handleDeleteUser removes a participant; registrations and diplomas cascade.
func (s *server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.Stores.Participants.Delete(r.Context(), id); err != nil {
		respondError(w, r, err, "participant not found")
		return
	}
	slog.Info("participant_event", "event", "deleted", "user_id", id)
	writeMessage(w, "participant deleted")
}
