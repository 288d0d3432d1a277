package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"conference/internal/adapters/filestore"
	participantStore "conference/internal/adapters/storage/participant"
	"conference/internal/application/orchestrators"
	"conference/internal/application/projections"
	domainActivity "conference/internal/domain/activity"
	domainOutbox "conference/internal/domain/outbox"
	domainParticipant "conference/internal/domain/participant"
	domainRegistration "conference/internal/domain/registration"
	domainWinner "conference/internal/domain/winner"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err)
	}
}

// writeError writes the API error body {"message": ...}.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeMessage writes a success body carrying only a message.
func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal_error", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// newValidator reports request fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeValid decodes and validates a request DTO. It writes the 400 itself and
// reports false when the body is unusable.
func (s *server) decodeValid(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := strictDecode(w, r, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// validationMessage turns validator errors into one readable line.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fieldMessage(fe))
	}
	return strings.Join(parts, "; ")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

// pathID parses a positive integer path parameter, writing a 400 when it is not one.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// queryYear parses the optional ?year= filter, writing a 400 when it is malformed.
func queryYear(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("year"))
	if raw == "" {
		return 0, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year <= 0 {
		writeError(w, http.StatusBadRequest, "year must be a positive integer")
		return 0, false
	}
	return year, true
}

// validationErrors are domain errors caused by bad input.
var validationErrors = []error{
	orchestrators.ErrNoActivities,
	orchestrators.ErrEntryTerminal,
	projections.ErrInvalidKindFilter,
	projections.ErrEmailRequired,
	participantStore.ErrDuplicateEmail,
	domainParticipant.ErrEmptyName,
	domainParticipant.ErrNameTooLong,
	domainParticipant.ErrInvalidEmail,
	domainParticipant.ErrInvalidType,
	domainActivity.ErrEmptyTitle,
	domainActivity.ErrInvalidKind,
	domainActivity.ErrInvalidDay,
	domainActivity.ErrInvalidYear,
	domainRegistration.ErrEmptyToken,
	domainWinner.ErrMissingActivity,
	domainWinner.ErrEmptyName,
	domainWinner.ErrInvalidPosition,
	domainWinner.ErrInvalidYear,
}

// notFoundErrors are errors meaning the addressed resource does not exist.
var notFoundErrors = []error{
	orchestrators.ErrNotFound,
	domainRegistration.ErrTokenNotFound,
	domainWinner.ErrNotFound,
	domainWinner.ErrNoWinners,
	domainOutbox.ErrNotFound,
	filestore.ErrNotFound,
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondError maps err onto the API error taxonomy.
// notFound is the message used for bare store misses, which carry row ids in their text.
func respondError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case matchesAny(err, validationErrors):
		writeError(w, http.StatusBadRequest, err.Error())
	case matchesAny(err, notFoundErrors):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, notFound)
	default:
		internalError(w, r, err)
	}
}
