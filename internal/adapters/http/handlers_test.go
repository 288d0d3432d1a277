package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"conference/internal/adapters/storage/storagetest"
	"conference/internal/application/orchestrators"
	"conference/internal/application/projections"
	domainActivity "conference/internal/domain/activity"
	domainOutbox "conference/internal/domain/outbox"
)

func TestActivitiesCRUD(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("POST", "/api/activities", `{"title":"Taller de Go","kind":"taller","location":"Lab 3","day":"2026-03-10","hour":"10:30"}`, true)
	expectStatus(t, rec, http.StatusCreated)
	created := decode[projections.ActivityView](t, rec)
	if created.ID == 0 || created.Kind != domainActivity.KindWorkshop || created.Year != 2026 {
		t.Fatalf("created = %+v, want TALLER in the current year", created)
	}

	path := fmt.Sprintf("/api/activities/%d", created.ID)
	expectStatus(t, env.do("GET", path, "", false), http.StatusOK)

	rec = env.do("PUT", path, `{"title":"Taller de Go avanzado","kind":"TALLER","year":2025}`, true)
	expectStatus(t, rec, http.StatusOK)
	got := decode[projections.ActivityView](t, env.do("GET", path, "", false))
	if got.Title != "Taller de Go avanzado" || got.Year != 2025 {
		t.Errorf("after update = %+v", got)
	}

	list := decode[[]projections.ActivityView](t, env.do("GET", "/api/activities?year=2025&kind=taller", "", false))
	if len(list) != 1 {
		t.Errorf("filtered list = %d items, want 1", len(list))
	}

	expectStatus(t, env.do("DELETE", path, "", true), http.StatusOK)
	rec = env.do("GET", path, "", false)
	expectStatus(t, rec, http.StatusNotFound)
	if msg := decode[map[string]string](t, rec)["message"]; msg != "activity not found" {
		t.Errorf("message = %q", msg)
	}
	expectStatus(t, env.do("DELETE", path, "", true), http.StatusNotFound)
}

func TestActivityValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing title", `{"kind":"TALLER"}`, "title is required"},
		{"bad kind", `{"title":"x","kind":"CHARLA"}`, domainActivity.ErrInvalidKind.Error()},
		{"bad day", `{"title":"x","kind":"TALLER","day":"10/03/2026"}`, domainActivity.ErrInvalidDay.Error()},
		{"unknown field", `{"title":"x","kind":"TALLER","speaker":"y"}`, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do("POST", "/api/activities", tt.body, true)
			expectStatus(t, rec, http.StatusBadRequest)
			if msg := decode[map[string]string](t, rec)["message"]; msg != tt.want {
				t.Errorf("message = %q, want %q", msg, tt.want)
			}
		})
	}
	expectStatus(t, env.do("GET", "/api/activities/abc", "", false), http.StatusBadRequest)
	expectStatus(t, env.do("GET", "/api/activities?year=soon", "", false), http.StatusBadRequest)
}

func TestRegistrationAttendanceAndDiploma(t *testing.T) {
	env := newTestEnv(t, nil)
	activityID := env.seedActivity("Taller de Redes", domainActivity.KindWorkshop, 2026)

	body := fmt.Sprintf(`{"full_name":"Ana López","email":"Ana@Example.com","type":"internal","activity_ids":[%d, 999]}`, activityID)
	rec := env.do("POST", "/api/registrations", body, false)
	expectStatus(t, rec, http.StatusOK)
	reg := decode[orchestrators.RegisterResult](t, rec)
	if reg.UserID == 0 || len(reg.Successful) != 1 || len(reg.Skipped) != 1 || reg.Skipped[0] != 999 {
		t.Fatalf("register result = %+v", reg)
	}
	token := reg.Successful[0].QRToken
	if reg.Successful[0].EmailStatus != "sent" {
		t.Errorf("email_status = %q, want sent", reg.Successful[0].EmailStatus)
	}

	// Registering again for the same activity is skipped.
	again := decode[orchestrators.RegisterResult](t, env.do("POST", "/api/registrations", body, false))
	if len(again.Successful) != 0 || again.UserID != reg.UserID {
		t.Errorf("second registration = %+v", again)
	}

	rec = env.do("POST", "/api/attendance", fmt.Sprintf(`{"token":%q}`, token), false)
	expectStatus(t, rec, http.StatusOK)
	att := decode[orchestrators.ConfirmAttendanceResult](t, rec)
	if att.FullName != "Ana López" || att.ActivityTitle != "Taller de Redes" || !att.AttendedAt.Equal(testNow) {
		t.Errorf("attendance = %+v", att)
	}

	// The diploma pipeline ran before the response.
	diplomas := decode[[]projections.DiplomaView](t, env.do("GET", "/api/diplomas/by-email?email=ana@example.com", "", false))
	if len(diplomas) != 1 || !diplomas[0].Emailed {
		t.Fatalf("diplomas = %+v, want one emailed diploma", diplomas)
	}
	if want := projections.DownloadPath(diplomas[0].ID); diplomas[0].DownloadURL != want {
		t.Errorf("download_url = %q, want %q", diplomas[0].DownloadURL, want)
	}

	rec = env.do("GET", diplomas[0].DownloadURL, "", false)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF") {
		t.Errorf("body = %q", rec.Body.String())
	}

	// Redeeming again succeeds and issues no second diploma.
	expectStatus(t, env.do("POST", "/api/attendance", fmt.Sprintf(`{"token":%q,"source":"manual"}`, token), false), http.StatusOK)
	all := decode[[]projections.DiplomaView](t, env.do("GET", "/api/diplomas/list-all", "", true))
	if len(all) != 1 {
		t.Errorf("list-all = %d diplomas, want 1", len(all))
	}

	// Confirmation email plus one diploma email.
	if sent := env.sender.Sent(); len(sent) != 2 {
		t.Errorf("sent %d emails, want 2", len(sent))
	}

	generated := decode[orchestrators.BatchResult](t, env.do("POST", "/api/diplomas/generate/all", "", true))
	if generated.Message != orchestrators.MsgNothingPending {
		t.Errorf("generate/all message = %q", generated.Message)
	}

	rec = env.do("POST", fmt.Sprintf("/api/diplomas/resend/%d", diplomas[0].ID), "", true)
	expectStatus(t, rec, http.StatusOK)
	if res := decode[orchestrators.ResendResult](t, rec); res.Email != "ana@example.com" {
		t.Errorf("resend = %+v", res)
	}
}

func TestRegistrationErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	activityID := env.seedActivity("Taller", domainActivity.KindWorkshop, 2026)
	tests := []struct {
		name string
		body string
		code int
	}{
		{"no activity", `{"full_name":"Ana","email":"ana@example.com"}`, http.StatusBadRequest},
		{"unknown user", fmt.Sprintf(`{"user_id":42,"activity_id":%d}`, activityID), http.StatusNotFound},
		{"bad email", fmt.Sprintf(`{"full_name":"Ana","email":"nope","activity_id":%d}`, activityID), http.StatusBadRequest},
		{"missing name", fmt.Sprintf(`{"email":"ana@example.com","activity_id":%d}`, activityID), http.StatusBadRequest},
		{"malformed", `{"full_name":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, env.do("POST", "/api/registrations", tt.body, false), tt.code)
		})
	}
}

func TestAttendanceErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	tests := []struct {
		name string
		body string
		code int
	}{
		{"empty token", `{"token":"  "}`, http.StatusBadRequest},
		{"unknown token", `{"token":"0b7c2d4e-0000-4000-8000-000000000000"}`, http.StatusNotFound},
		{"bad source", `{"token":"abc","source":"fax"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, env.do("POST", "/api/attendance", tt.body, false), tt.code)
		})
	}
	expectStatus(t, env.do("GET", "/api/diplomas/by-email", "", false), http.StatusBadRequest)
	expectStatus(t, env.do("GET", "/api/diplomas/77/download", "", false), http.StatusNotFound)
	expectStatus(t, env.do("POST", "/api/diplomas/resend/77", "", true), http.StatusNotFound)
}

func TestUsers(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("POST", "/api/users", `{"full_name":"Luis Pérez","email":"luis@example.com","type":"ADMIN"}`, false)
	expectStatus(t, rec, http.StatusCreated)
	user := decode[projections.ParticipantView](t, rec)
	if user.Type != "EXTERNO" {
		t.Errorf("self sign-up type = %q, want EXTERNO", user.Type)
	}
	expectStatus(t, env.do("POST", "/api/users", `{"full_name":"Otro","email":"LUIS@example.com"}`, false), http.StatusBadRequest)

	env.seedParticipant("Marta Ruiz", "marta@example.com")
	all := decode[[]projections.ParticipantView](t, env.do("GET", "/api/users", "", true))
	if len(all) != 2 {
		t.Errorf("users = %d, want 2", len(all))
	}
	internos := decode[[]projections.ParticipantView](t, env.do("GET", "/api/users/type/interno", "", true))
	if len(internos) != 1 || internos[0].FullName != "Marta Ruiz" {
		t.Errorf("internos = %+v", internos)
	}

	path := fmt.Sprintf("/api/users/%d", user.ID)
	expectStatus(t, env.do("PUT", path, `{"full_name":"Luis A. Pérez","email":"luis@example.com","type":"INTERNO"}`, true), http.StatusOK)
	expectStatus(t, env.do("PUT", "/api/users/999", `{"full_name":"X","email":"x@example.com"}`, true), http.StatusNotFound)
	expectStatus(t, env.do("DELETE", path, "", true), http.StatusOK)
	expectStatus(t, env.do("DELETE", path, "", true), http.StatusNotFound)
}

func TestWinnersFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	activityID := env.seedActivity("Hackathon", domainActivity.KindCompetition, 2026)
	userID := env.seedParticipant("Sofía Díaz", "sofia@example.com")

	bad := fmt.Sprintf(`{"activity_id":%d,"name":"Sofía Díaz","position":4}`, activityID)
	expectStatus(t, env.do("POST", "/api/winners/create", bad, true), http.StatusBadRequest)
	expectStatus(t, env.do("POST", "/api/winners/create", `{"activity_id":999,"name":"X","position":1}`, true), http.StatusNotFound)

	body := fmt.Sprintf(`{"activity_id":%d,"user_id":%d,"name":"Sofía Díaz","project_title":"Robot","description":"**Autónomo**","position":1}`, activityID, userID)
	rec := env.do("POST", "/api/winners/create", body, true)
	expectStatus(t, rec, http.StatusCreated)
	winnerID := int64(decode[map[string]any](t, rec)["id"].(float64))

	board := decode[[]projections.WinnerView](t, env.do("GET", "/api/winners/list", "", false))
	if len(board) != 1 || !strings.Contains(board[0].DescriptionHTML, "<strong>Autónomo</strong>") {
		t.Fatalf("board = %+v", board)
	}
	if board[0].ActivityTitle != "Hackathon" || board[0].Year != 2026 {
		t.Errorf("winner copied activity = %+v", board[0])
	}

	expectStatus(t, env.do("POST", "/api/winners/publish", `{"activity_id":999}`, true), http.StatusNotFound)
	empty := env.seedActivity("Concurso vacío", domainActivity.KindCompetition, 2026)
	expectStatus(t, env.do("POST", "/api/winners/publish", fmt.Sprintf(`{"activity_id":%d}`, empty), true), http.StatusNotFound)

	rec = env.do("POST", "/api/winners/publish", fmt.Sprintf(`{"activity_id":%d}`, activityID), true)
	expectStatus(t, rec, http.StatusOK)
	pub := decode[orchestrators.PublishWinnersResult](t, rec)
	if pub.Inserted != 1 || len(pub.Winners) != 1 || !pub.Winners[0].DiplomaIssued {
		t.Fatalf("publish = %+v", pub)
	}

	// Publishing twice adds no history.
	again := decode[orchestrators.PublishWinnersResult](t, env.do("POST", "/api/winners/publish", fmt.Sprintf(`{"activity_id":%d}`, activityID), true))
	if again.Inserted != 0 {
		t.Errorf("second publish inserted %d", again.Inserted)
	}

	history := decode[[]projections.HistoryView](t, env.do("GET", "/api/winners/history?year=2026", "", true))
	if len(history) != 1 {
		t.Errorf("history = %d rows, want 1", len(history))
	}
	if none := decode[[]projections.HistoryView](t, env.do("GET", "/api/winners/history?year=2020", "", true)); len(none) != 0 {
		t.Errorf("history 2020 = %d rows, want 0", len(none))
	}

	expectStatus(t, env.do("GET", "/api/winners/candidates", "", true), http.StatusOK)
	expectStatus(t, env.do("DELETE", fmt.Sprintf("/api/winners/delete/%d", winnerID), "", true), http.StatusOK)
	expectStatus(t, env.do("DELETE", fmt.Sprintf("/api/winners/delete/%d", winnerID), "", true), http.StatusNotFound)
}

func TestAttendanceReport(t *testing.T) {
	env := newTestEnv(t, nil)
	activityID := env.seedActivity("Taller", domainActivity.KindWorkshop, 2026)
	userID := env.seedParticipant("Ana", "ana@example.com")
	storagetest.MustExec(t, env.db,
		`INSERT INTO registrations (user_id, activity_id, qr_token, status, created_at, attended_at) VALUES (?, ?, 'tok', 'ASISTIÓ', ?, ?)`,
		userID, activityID, testNow.Format(time.RFC3339), testNow.Format(time.RFC3339))

	rec := env.do("GET", "/api/reports/attendance?year=2026&kind=TALLER", "", true)
	expectStatus(t, rec, http.StatusOK)
	rep := decode[projections.AttendanceReport](t, rec)
	if rep.Totals.Registered != 1 || rep.Totals.Attended != 1 {
		t.Errorf("totals = %+v", rep.Totals)
	}
	expectStatus(t, env.do("GET", "/api/reports/attendance?kind=CHARLA", "", true), http.StatusBadRequest)
}

func TestAdminLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	expectStatus(t, env.do("POST", "/api/admin/login", `{"email":"admin@congreso.local","password":"wrong"}`, false), http.StatusUnauthorized)
	expectStatus(t, env.do("POST", "/api/admin/login", `{"email":"admin@congreso.local"}`, false), http.StatusBadRequest)

	rec := env.do("POST", "/api/admin/login", fmt.Sprintf(`{"email":%q,"password":%q}`, testAdminEmail, testAdminPassword), false)
	expectStatus(t, rec, http.StatusOK)
	login := decode[orchestrators.LoginResult](t, rec)
	if login.Token == "" || login.Role != "ADMIN" {
		t.Fatalf("login = %+v", login)
	}

	env.adminToken = login.Token
	expectStatus(t, env.do("GET", "/api/users", "", true), http.StatusOK)
}

func TestOutboxAdmin(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	activityID := env.seedActivity("Taller", domainActivity.KindWorkshop, 2026)
	payload := fmt.Sprintf(`{"email":"ana@example.com","full_name":"Ana","activity_id":%d,"token":"tok-1"}`, activityID)
	for _, id := range []string{"entry-retry", "entry-abandon"} {
		if err := env.stores.Outbox.Save(ctx, domainOutbox.Entry{
			ID:           id,
			ActionType:   domainOutbox.ActionTypeConfirmationEmail,
			Payload:      payload,
			Status:       domainOutbox.StatusRetrying,
			Attempts:     1,
			MaxAttempts:  domainOutbox.DefaultMaxAttempts,
			CreatedAt:    testNow,
			ErrorMessage: "provider unavailable",
		}); err != nil {
			t.Fatalf("seed outbox: %v", err)
		}
	}

	if failed := decode[[]outboxEntryView](t, env.do("GET", "/api/admin/outbox", "", true)); len(failed) != 0 {
		t.Errorf("default (failed) list = %d entries, want 0", len(failed))
	}
	listed := decode[[]outboxEntryView](t, env.do("GET", "/api/admin/outbox?status=retrying", "", true))
	if len(listed) != 2 {
		t.Fatalf("retrying list = %d entries, want 2", len(listed))
	}
	expectStatus(t, env.do("GET", "/api/admin/outbox?status=lost", "", true), http.StatusBadRequest)

	rec := env.do("POST", "/api/admin/outbox/entry-retry/retry", "", true)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[outboxEntryView](t, rec); got.Status != domainOutbox.StatusDone || got.Attempts != 2 {
		t.Errorf("after retry = %+v", got)
	}
	if sent := env.sender.Sent(); len(sent) != 1 || len(sent[0].To) != 1 || sent[0].To[0] != "ana@example.com" {
		t.Errorf("sent = %+v", sent)
	}

	rec = env.do("POST", "/api/admin/outbox/entry-abandon/abandon", "", true)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[outboxEntryView](t, rec); got.Status != domainOutbox.StatusAbandoned {
		t.Errorf("after abandon = %+v", got)
	}
	expectStatus(t, env.do("POST", "/api/admin/outbox/entry-abandon/retry", "", true), http.StatusBadRequest)
	expectStatus(t, env.do("POST", "/api/admin/outbox/missing/retry", "", true), http.StatusNotFound)

	all := decode[[]outboxEntryView](t, env.do("GET", "/api/admin/outbox?status=all&action_type=confirmation_email", "", true))
	if len(all) != 2 {
		t.Errorf("all = %d entries, want 2", len(all))
	}
}
