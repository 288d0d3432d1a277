package participant

import (
	"errors"
	"strings"
	"time"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 150
)

// Participant types as stored in the users table.
const (
	TypeInternal = "INTERNO"
	TypeExternal = "EXTERNO"
	TypeAdmin    = "ADMIN"
)

// Domain errors
var (
	ErrEmptyName    = errors.New("participant name cannot be empty")
	ErrNameTooLong  = errors.New("participant name cannot exceed 150 characters")
	ErrInvalidEmail = errors.New("participant email must be valid")
	ErrInvalidType  = errors.New("participant type must be INTERNO, EXTERNO or ADMIN")
)

// Participant is a person who registers for activities.
type Participant struct {
	ID           int64
	FullName     string
	Email        string
	Phone        string
	School       string
	UniversityID string
	Type         string
	CreatedAt    time.Time
}

// NormalizeType maps the accepted spellings of a participant type onto the stored enumeration.
// Unrecognised values fall back to TypeExternal.
// PRE: none
// POST: Returns one of TypeInternal, TypeExternal, TypeAdmin
func NormalizeType(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case TypeInternal, "INTERNAL":
		return TypeInternal
	case TypeAdmin, "ADMINISTRATOR":
		return TypeAdmin
	default:
		return TypeExternal
	}
}

// IsValidType reports whether t is one of the stored participant types.
func IsValidType(t string) bool {
	return t == TypeInternal || t == TypeExternal || t == TypeAdmin
}

// Validate checks if the Participant has valid data.
// PRE: Participant struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Email must contain '@', FullName must not be empty
func (p *Participant) Validate() error {
	if strings.TrimSpace(p.FullName) == "" {
		return ErrEmptyName
	}
	if len(p.FullName) > MaxNameLength {
		return ErrNameTooLong
	}
	if !strings.Contains(p.Email, "@") {
		return ErrInvalidEmail
	}
	if !IsValidType(p.Type) {
		return ErrInvalidType
	}
	return nil
}
