package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"conference/internal/adapters/email"
	"conference/internal/adapters/filestore"
	"conference/internal/adapters/http/middleware"
	"conference/internal/adapters/http/perf"
	"conference/internal/adapters/metrics"
	accountStore "conference/internal/adapters/storage/account"
	activityStore "conference/internal/adapters/storage/activity"
	attendanceStore "conference/internal/adapters/storage/attendance"
	diplomaStore "conference/internal/adapters/storage/diploma"
	outboxStore "conference/internal/adapters/storage/outbox"
	participantStore "conference/internal/adapters/storage/participant"
	registrationStore "conference/internal/adapters/storage/registration"
	winnerStore "conference/internal/adapters/storage/winner"
	"conference/internal/application/orchestrators"
	"conference/internal/application/projections"
)

// Stores holds all storage dependencies.
type Stores struct {
	Accounts      accountStore.Store
	Activities    activityStore.Store
	Participants  participantStore.Store
	Registrations registrationStore.Store
	CheckIns      attendanceStore.Store
	Diplomas      diplomaStore.Store
	Winners       winnerStore.Store
	Reports       projections.ReportStore
	Outbox        outboxStore.Store
}

// HealthCheck pings one backing service.
type HealthCheck func(ctx context.Context) error

// Deps wires the HTTP layer to stores, adapters and configuration.
type Deps struct {
	Stores       Stores
	Files        filestore.Store
	Renderer     orchestrators.DiplomaRenderer
	Sender       email.Sender
	Mail         orchestrators.MailConfig
	Tokens       *middleware.TokenIssuer
	Outbox       *orchestrators.OutboxProcessor
	Limiter      middleware.Limiter
	Collector    *perf.Collector
	Metrics      *metrics.Metrics // nil disables /metrics
	HealthChecks map[string]HealthCheck
	CORSOrigins  []string
	SlowRequest  time.Duration
	Now          func() time.Time // defaults to time.Now
	NewToken     func() string    // defaults to a random uuid
}

// server carries the dependencies every handler reads.
type server struct {
	Deps
	validate *validator.Validate
}

// NewMux wires HTTP handlers for the API.
// PRE: every store in d.Stores is set; Tokens, Outbox and Limiter are non-nil
// POST: Returns the routed handler wrapped in the middleware chain
func NewMux(d Deps) http.Handler {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewToken == nil {
		d.NewToken = generateID
	}
	s := &server{
		Deps:     d,
		validate: newValidator(),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	// Recover -> SecurityHeaders -> CORS -> RateLimit -> Timing -> Mux
	return middleware.Chain(mux,
		middleware.Timing(d.Collector, d.Metrics, d.SlowRequest),
		middleware.RateLimit(d.Limiter),
		middleware.CORS(d.CORSOrigins),
		middleware.SecurityHeaders,
		middleware.Recover,
	)
}

// registerRoutes maps every endpoint. Admin routes are wrapped in RequireAdmin.
func (s *server) registerRoutes(mux *http.ServeMux) {
	admin := middleware.RequireAdmin(s.Tokens)
	adminFunc := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, admin(h))
	}

	// Operational
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}

	// Activities
	mux.HandleFunc("GET /api/activities", s.handleListActivities)
	mux.HandleFunc("GET /api/activities/{id}", s.handleGetActivity)
	adminFunc("POST /api/activities", s.handleCreateActivity)
	adminFunc("PUT /api/activities/{id}", s.handleUpdateActivity)
	adminFunc("DELETE /api/activities/{id}", s.handleDeleteActivity)

	// Participants
	mux.HandleFunc("POST /api/users", s.handleCreateUser)
	adminFunc("GET /api/users", s.handleListUsers)
	adminFunc("GET /api/users/type/{type}", s.handleListUsersByType)
	adminFunc("PUT /api/users/{id}", s.handleUpdateUser)
	adminFunc("DELETE /api/users/{id}", s.handleDeleteUser)

	// Registration and attendance
	mux.HandleFunc("POST /api/registrations", s.handleRegister)
	mux.HandleFunc("POST /api/attendance", s.handleConfirmAttendance)

	// Diplomas
	mux.HandleFunc("GET /api/diplomas/by-email", s.handleDiplomasByEmail)
	mux.HandleFunc("GET /api/diplomas/{id}/download", s.handleDownloadDiploma)
	adminFunc("GET /api/diplomas/list-all", s.handleListDiplomas)
	adminFunc("POST /api/diplomas/generate/all", s.handleGenerateDiplomas)
	adminFunc("POST /api/diplomas/send-all", s.handleSendAllDiplomas)
	adminFunc("POST /api/diplomas/resend/{id}", s.handleResendDiploma)

	// Winners
	mux.HandleFunc("GET /api/winners/list", s.handleListWinners)
	adminFunc("GET /api/winners/candidates", s.handleWinnerCandidates)
	adminFunc("POST /api/winners/create", s.handleCreateWinner)
	adminFunc("POST /api/winners/publish", s.handlePublishWinners)
	adminFunc("DELETE /api/winners/delete/{id}", s.handleDeleteWinner)
	adminFunc("GET /api/winners/history", s.handleWinnerHistory)

	// Reports
	adminFunc("GET /api/reports/attendance", s.handleAttendanceReport)

	// Admin
	mux.HandleFunc("POST /api/admin/login", s.handleAdminLogin)
	adminFunc("GET /api/admin/perf", s.handleAdminPerf)
	adminFunc("GET /api/admin/outbox", s.handleListOutbox)
	adminFunc("POST /api/admin/outbox/{id}/retry", s.handleRetryOutbox)
	adminFunc("POST /api/admin/outbox/{id}/abandon", s.handleAbandonOutbox)
}
