package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"conference/internal/application/orchestrators"
	"conference/internal/application/projections"
)

// healthTimeout bounds each dependency ping.
const healthTimeout = 2 * time.Second

// loginRequest carries admin credentials.
type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// handleAdminLogin exchanges admin credentials for a bearer token.
func (s *server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeValid(w, r, &req) {
		return
	}
	result, err := orchestrators.ExecuteAdminLogin(r.Context(), orchestrators.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, orchestrators.LoginDeps{
		Accounts: s.Stores.Accounts,
		Tokens:   s.Tokens,
		Now:      s.Now,
	})
	switch {
	case errors.Is(err, orchestrators.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, orchestrators.ErrAccountLocked):
		w.Header().Set("Retry-After", "900")
		writeError(w, http.StatusTooManyRequests, err.Error())
	case err != nil:
		internalError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

// handleAttendanceReport serves registration and attendance totals. Optional filters: ?year=&kind=.
func (s *server) handleAttendanceReport(w http.ResponseWriter, r *http.Request) {
	year, ok := queryYear(w, r)
	if !ok {
		return
	}
	report, err := projections.QueryAttendanceReport(r.Context(), projections.AttendanceReportQuery{
		Year: year,
		Kind: r.URL.Query().Get("kind"),
	}, s.Stores.Reports)
	if err != nil {
		respondError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleAdminPerf serves the in-process timing snapshot.
// Optional ?minutes= narrows the window (default 60) and ?top= the slowest-path count (default 10).
func (s *server) handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if s.Collector == nil {
		writeError(w, http.StatusNotFound, "performance collection disabled")
		return
	}
	minutes := positiveQueryInt(r, "minutes", 60)
	top := positiveQueryInt(r, "top", 10)
	since := s.Now().Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, s.Collector.Snapshot(since, top))
}

func positiveQueryInt(r *http.Request, key string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// handleHealthz pings every registered dependency.
func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(s.HealthChecks))
	healthy := true
	for name, check := range s.HealthChecks {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			healthy = false
			checks[name] = "unavailable"
			slog.Warn("health_check_failed", "check", name, "error", err)
			continue
		}
		checks[name] = "ok"
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}
