package web

import (
	"net/http"

	"conference/internal/application/orchestrators"
)

// registerRequest is the public sign-up form. Either activity_ids or activity_id must name an activity.
type registerRequest struct {
	UserID       int64   `json:"user_id" validate:"omitempty,gt=0"`
	FullName     string  `json:"full_name" validate:"max=150"`
	Email        string  `json:"email" validate:"omitempty,email,max=254"`
	Phone        string  `json:"phone" validate:"max=30"`
	School       string  `json:"school" validate:"max=150"`
	UniversityID string  `json:"university_id" validate:"max=50"`
	Type         string  `json:"type"`
	ActivityIDs  []int64 `json:"activity_ids" validate:"max=50,dive,gt=0"`
	ActivityID   int64   `json:"activity_id" validate:"omitempty,gt=0"`
}

// attendanceRequest carries a scanned or typed redemption token.
type attendanceRequest struct {
	Token  string `json:"token" validate:"max=64"`
	Source string `json:"source" validate:"omitempty,oneof=qr manual"`
}

func (s *server) registerDeps() orchestrators.RegisterDeps {
	return orchestrators.RegisterDeps{
		Participants:  s.Stores.Participants,
		Activities:    s.Stores.Activities,
		Registrations: s.Stores.Registrations,
		Outbox:        s.Stores.Outbox,
		Sender:        s.Sender,
		Mail:          s.Mail,
		NewToken:      s.NewToken,
		NewID:         generateID,
		Now:           s.Now,
		Metrics:       s.Metrics,
	}
}

func (s *server) diplomaDeps() orchestrators.DiplomaDeps {
	return orchestrators.DiplomaDeps{
		Participants:  s.Stores.Participants,
		Activities:    s.Stores.Activities,
		Diplomas:      s.Stores.Diplomas,
		Registrations: s.Stores.Registrations,
		Files:         s.Files,
		Renderer:      s.Renderer,
		Sender:        s.Sender,
		Mail:          s.Mail,
		Now:           s.Now,
		Metrics:       s.Metrics,
	}
}

// handleRegister registers a participant for one or more activities.
func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	result, err := orchestrators.ExecuteRegister(r.Context(), orchestrators.RegisterInput{
		UserID:       req.UserID,
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		School:       req.School,
		UniversityID: req.UniversityID,
		Type:         req.Type,
		ActivityIDs:  req.ActivityIDs,
		ActivityID:   req.ActivityID,
	}, s.registerDeps())
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleConfirmAttendance redeems a registration token.
func (s *server) handleConfirmAttendance(w http.ResponseWriter, r *http.Request) {
	var req attendanceRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	result, err := orchestrators.ExecuteConfirmAttendance(r.Context(), orchestrators.ConfirmAttendanceInput{
		Token:  req.Token,
		Source: req.Source,
	}, orchestrators.ConfirmAttendanceDeps{
		Registrations: s.Stores.Registrations,
		CheckIns:      s.Stores.CheckIns,
		Diploma:       s.diplomaDeps(),
		Now:           s.Now,
		Metrics:       s.Metrics,
	})
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
