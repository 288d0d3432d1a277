package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"conference/internal/adapters/email"
	"conference/internal/adapters/filestore"
	"conference/internal/adapters/http/middleware"
	"conference/internal/adapters/http/perf"
	"conference/internal/adapters/metrics"
	"conference/internal/adapters/storage"
	accountStore "conference/internal/adapters/storage/account"
	activityStore "conference/internal/adapters/storage/activity"
	attendanceStore "conference/internal/adapters/storage/attendance"
	diplomaStore "conference/internal/adapters/storage/diploma"
	outboxStore "conference/internal/adapters/storage/outbox"
	participantStore "conference/internal/adapters/storage/participant"
	registrationStore "conference/internal/adapters/storage/registration"
	"conference/internal/adapters/storage/report"
	"conference/internal/adapters/storage/storagetest"
	winnerStore "conference/internal/adapters/storage/winner"
	"conference/internal/application/orchestrators"
	domainAccount "conference/internal/domain/account"
	domainActivity "conference/internal/domain/activity"
	domainOutbox "conference/internal/domain/outbox"
	domainParticipant "conference/internal/domain/participant"
)

const (
	testAdminEmail    = "admin@congreso.local"
	testAdminPassword = "s3cret-pass"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// stubRenderer returns a tiny fixed document instead of laying out a real page.
type stubRenderer struct{}

func (stubRenderer) Render(name, activity, dateText string) ([]byte, error) {
	return []byte("%PDF-1.4 participation " + name), nil
}

func (stubRenderer) RenderWinner(name, activity, dateText string, placement, year int) ([]byte, error) {
	return []byte("%PDF-1.4 winner " + name), nil
}

// testEnv is a fully wired API over an in-memory database.
type testEnv struct {
	t          *testing.T
	db         *sql.DB
	handler    http.Handler
	sender     *email.NoopSender
	files      filestore.Store
	stores     Stores
	adminToken string
}

func newTestEnv(t *testing.T, checks map[string]HealthCheck) *testEnv {
	t.Helper()
	db := storagetest.Open(t)
	collector := perf.NewCollector(256)
	m := metrics.New()
	sqldb := storage.NewTimedDB(db, collector, m, 0)

	files, err := filestore.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	stores := Stores{
		Accounts: accountStore.NewMemoryStore(domainAccount.Account{
			Email:        testAdminEmail,
			PasswordHash: string(hash),
			Role:         domainAccount.RoleAdmin,
		}),
		Activities:    activityStore.NewSQLiteStore(sqldb),
		Participants:  participantStore.NewSQLiteStore(sqldb),
		Registrations: registrationStore.NewSQLiteStore(sqldb),
		CheckIns:      attendanceStore.NewSQLiteStore(sqldb),
		Diplomas:      diplomaStore.NewSQLiteStore(sqldb),
		Winners:       winnerStore.NewSQLiteStore(sqldb),
		Reports:       report.NewSQLiteStore(sqldb),
		Outbox:        outboxStore.NewSQLiteStore(sqldb),
	}
	sender := email.NewNoopSender()
	mail := orchestrators.MailConfig{
		Institution:     "Universidad",
		Event:           "Congreso de Ingeniería",
		FrontendBaseURL: "https://congreso.example",
	}
	tokens := middleware.NewTokenIssuer("test-signing-key", "congress-api", time.Hour)
	processor := orchestrators.NewOutboxProcessor(stores.Outbox, map[string]orchestrators.ActionExecutor{
		domainOutbox.ActionTypeConfirmationEmail: &orchestrators.ConfirmationEmailExecutor{
			Activities: stores.Activities,
			Sender:     sender,
			Mail:       mail,
			Metrics:    m,
		},
	}, m)
	if checks == nil {
		checks = map[string]HealthCheck{"db": db.PingContext}
	}

	handler := NewMux(Deps{
		Stores:       stores,
		Files:        files,
		Renderer:     stubRenderer{},
		Sender:       sender,
		Mail:         mail,
		Tokens:       tokens,
		Outbox:       processor,
		Limiter:      middleware.NewRateLimiter(t.Context(), 10000, time.Second),
		Collector:    collector,
		Metrics:      m,
		HealthChecks: checks,
		CORSOrigins:  []string{"https://congreso.example"},
		Now:          func() time.Time { return testNow },
	})

	adminToken, _, err := tokens.Issue(testAdminEmail, middleware.RoleAdmin)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return &testEnv{
		t:          t,
		db:         db,
		handler:    handler,
		sender:     sender,
		files:      files,
		stores:     stores,
		adminToken: adminToken,
	}
}

// do sends one request; admin attaches the admin bearer token.
func (e *testEnv) do(method, path, body string, admin bool) *httptest.ResponseRecorder {
	e.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+e.adminToken)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) seedActivity(title, kind string, year int) int64 {
	e.t.Helper()
	id, err := e.stores.Activities.Create(context.Background(), domainActivity.Activity{
		Title: title, Kind: kind, Location: "Aula 1", Day: "2026-03-10", Hour: "09:00", Year: year,
	})
	if err != nil {
		e.t.Fatalf("seed activity: %v", err)
	}
	return id
}

func (e *testEnv) seedParticipant(name, mail string) int64 {
	e.t.Helper()
	id, err := e.stores.Participants.Create(context.Background(), domainParticipant.Participant{
		FullName: name, Email: mail, Type: domainParticipant.TypeInternal, CreatedAt: testNow,
	})
	if err != nil {
		e.t.Fatalf("seed participant: %v", err)
	}
	return id
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", rec.Code, want, rec.Body.String())
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t, nil)
	routes := []struct{ method, path string }{
		{"POST", "/api/activities"},
		{"PUT", "/api/activities/1"},
		{"DELETE", "/api/activities/1"},
		{"GET", "/api/users"},
		{"GET", "/api/users/type/INTERNO"},
		{"PUT", "/api/users/1"},
		{"DELETE", "/api/users/1"},
		{"GET", "/api/diplomas/list-all"},
		{"POST", "/api/diplomas/generate/all"},
		{"POST", "/api/diplomas/send-all"},
		{"POST", "/api/diplomas/resend/1"},
		{"GET", "/api/winners/candidates"},
		{"POST", "/api/winners/create"},
		{"POST", "/api/winners/publish"},
		{"DELETE", "/api/winners/delete/1"},
		{"GET", "/api/winners/history"},
		{"GET", "/api/reports/attendance"},
		{"GET", "/api/admin/perf"},
		{"GET", "/api/admin/outbox"},
		{"POST", "/api/admin/outbox/x/retry"},
		{"POST", "/api/admin/outbox/x/abandon"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := env.do(rt.method, rt.path, "", false)
			expectStatus(t, rec, http.StatusUnauthorized)
			if msg := decode[map[string]string](t, rec)["message"]; msg == "" {
				t.Errorf("expected an error message")
			}
		})
	}
}

func TestPublicRoutesAreOpen(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, path := range []string{"/api/activities", "/api/winners/list", "/healthz", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			expectStatus(t, env.do("GET", path, "", false), http.StatusOK)
		})
	}
}

func TestMiddlewareChain(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do("GET", "/api/activities", "", false)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}

	req := httptest.NewRequest("GET", "/api/activities", nil)
	req.Header.Set("Origin", "https://congreso.example")
	cors := httptest.NewRecorder()
	env.handler.ServeHTTP(cors, req)
	if got := cors.Header().Get("Access-Control-Allow-Origin"); got != "https://congreso.example" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	perfRec := env.do("GET", "/api/admin/perf", "", true)
	expectStatus(t, perfRec, http.StatusOK)
	snap := decode[perf.Snapshot](t, perfRec)
	if snap.Requests == 0 || snap.Queries == 0 {
		t.Errorf("snapshot = %+v, want recorded requests", snap)
	}
}

func TestHealthz(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		env := newTestEnv(t, nil)
		rec := env.do("GET", "/healthz", "", false)
		expectStatus(t, rec, http.StatusOK)
		body := decode[map[string]any](t, rec)
		if body["status"] != "ok" {
			t.Errorf("body = %v", body)
		}
	})
	t.Run("dependency down", func(t *testing.T) {
		env := newTestEnv(t, map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		})
		rec := env.do("GET", "/healthz", "", false)
		expectStatus(t, rec, http.StatusServiceUnavailable)
		if strings.Contains(rec.Body.String(), "refused") {
			t.Errorf("health body leaks error detail: %s", rec.Body.String())
		}
	})
}
