package projections

import (
	"context"
	"time"

	"conference/internal/adapters/storage/participant"
	domainParticipant "conference/internal/domain/participant"
)

// ParticipantView is a participant as served to admins.
type ParticipantView struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	School       string    `json:"school"`
	UniversityID string    `json:"university_id"`
	Type         string    `json:"type"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewParticipantView maps a domain participant onto its API shape.
func NewParticipantView(p domainParticipant.Participant) ParticipantView {
	return ParticipantView{
		ID:           p.ID,
		FullName:     p.FullName,
		Email:        p.Email,
		Phone:        p.Phone,
		School:       p.School,
		UniversityID: p.UniversityID,
		Type:         p.Type,
		CreatedAt:    p.CreatedAt,
	}
}

// QueryParticipants lists participants, optionally of one type.
// An unrecognised type filter is normalised the way sign-up normalises it.
// POST: never nil
func QueryParticipants(ctx context.Context, typeFilter string, store ParticipantStore) ([]ParticipantView, error) {
	filter := participant.ListFilter{}
	if typeFilter != "" {
		filter.Type = domainParticipant.NormalizeType(typeFilter)
	}
	rows, err := store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]ParticipantView, 0, len(rows))
	for _, p := range rows {
		out = append(out, NewParticipantView(p))
	}
	return out, nil
}
