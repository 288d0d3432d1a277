package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"conference/internal/adapters/certificate"
	emailPkg "conference/internal/adapters/email"
	"conference/internal/adapters/filestore"
	web "conference/internal/adapters/http"
	"conference/internal/adapters/http/middleware"
	"conference/internal/adapters/http/perf"
	"conference/internal/adapters/metrics"
	"conference/internal/adapters/storage"
	accountStore "conference/internal/adapters/storage/account"
	activityStore "conference/internal/adapters/storage/activity"
	attendanceStore "conference/internal/adapters/storage/attendance"
	diplomaStore "conference/internal/adapters/storage/diploma"
	outboxStorePkg "conference/internal/adapters/storage/outbox"
	participantStore "conference/internal/adapters/storage/participant"
	registrationStore "conference/internal/adapters/storage/registration"
	"conference/internal/adapters/storage/report"
	winnerStore "conference/internal/adapters/storage/winner"
	"conference/internal/application/orchestrators"
	"conference/internal/config"
	domainAccount "conference/internal/domain/account"
	domainOutbox "conference/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

// devAdminPassword is used only outside production when no admin password is configured.
const devAdminPassword = "congreso-dev"

func main() {
	cfg := config.Load()
	slog.SetDefault(slog.New(cfg.LogHandler()))
	if err := cfg.Validate(); err != nil {
		fatal("invalid_config", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenSQLite(cfg.DBPath)
	if err != nil {
		fatal("db_open_failed", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.PingContext(ctx); err != nil {
		fatal("db_unreachable", err)
	}
	if err := storage.MigrateDB(db, cfg.DBPath); err != nil {
		fatal("db_migrate_failed", err)
	}

	collector := perf.NewCollector(perf.DefaultRingSize)
	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}
	timedDB := storage.NewTimedDB(db, collector, m, cfg.SlowQuery)

	admin, err := adminAccount(cfg)
	if err != nil {
		fatal("admin_account_failed", err)
	}

	stores := web.Stores{
		Accounts:      accountStore.NewMemoryStore(admin),
		Activities:    activityStore.NewSQLiteStore(timedDB),
		Participants:  participantStore.NewSQLiteStore(timedDB),
		Registrations: registrationStore.NewSQLiteStore(timedDB),
		CheckIns:      attendanceStore.NewSQLiteStore(timedDB),
		Diplomas:      diplomaStore.NewSQLiteStore(timedDB),
		Winners:       winnerStore.NewSQLiteStore(timedDB),
		Reports:       report.NewSQLiteStore(timedDB),
		Outbox:        outboxStorePkg.NewSQLiteStore(timedDB),
	}

	var sender emailPkg.Sender
	if cfg.ResendAPIKey != "" {
		sender = emailPkg.NewResendSender(cfg.ResendAPIKey, cfg.MailFrom, cfg.MailReplyTo)
		slog.Info("email_sender_configured", "provider", "resend")
	} else {
		sender = emailPkg.NewNoopSender()
		slog.Warn("email_sender_configured", "provider", "noop", "hint", "set RESEND_API_KEY for real delivery")
	}

	files, err := filestore.New(ctx, filestore.Config{
		Type:      filestore.Type(cfg.StorageType),
		LocalPath: cfg.StorageLocalPath,
		S3: filestore.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Prefix:   cfg.S3Prefix,
			Endpoint: cfg.S3Endpoint,
		},
	})
	if err != nil {
		fatal("filestore_init_failed", err)
	}

	crest, err := certificate.LoadCrest(cfg.CrestPath)
	if err != nil {
		fatal("crest_load_failed", err)
	}
	if crest == nil {
		slog.Warn("crest_missing", "path", cfg.CrestPath)
	}
	renderer := certificate.NewRenderer(certificate.Layout{
		Institution:    cfg.InstitutionName,
		City:           cfg.DiplomaCity,
		SignatureLeft:  cfg.SignatureLeft,
		SignatureRight: cfg.SignatureRight,
		Crest:          crest,
	})
	mail := orchestrators.MailConfig{
		Institution:     cfg.InstitutionName,
		Event:           cfg.EventName,
		FrontendBaseURL: cfg.FrontendBaseURL,
		Crest:           crest,
	}

	checks := map[string]web.HealthCheck{"db": db.PingContext}
	var limiter middleware.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		limiter = middleware.NewRedisLimiter(rdb, cfg.RateLimitPerSecond, time.Second)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		slog.Info("rate_limiter_configured", "backend", "redis", "addr", cfg.RedisAddr)
	} else {
		limiter = middleware.NewRateLimiter(ctx, cfg.RateLimitPerSecond, time.Second)
	}

	processor := orchestrators.NewOutboxProcessor(stores.Outbox, map[string]orchestrators.ActionExecutor{
		domainOutbox.ActionTypeConfirmationEmail: &orchestrators.ConfirmationEmailExecutor{
			Activities: stores.Activities,
			Sender:     sender,
			Mail:       mail,
			Metrics:    m,
		},
	}, m)
	outboxDone := processor.Start(ctx, cfg.OutboxInterval)

	handler := web.NewMux(web.Deps{
		Stores:       stores,
		Files:        files,
		Renderer:     renderer,
		Sender:       sender,
		Mail:         mail,
		Tokens:       middleware.NewTokenIssuer(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.JWTTTL),
		Outbox:       processor,
		Limiter:      limiter,
		Collector:    collector,
		Metrics:      m,
		HealthChecks: checks,
		CORSOrigins:  cfg.CORSAllowedOrigins,
		SlowRequest:  cfg.SlowRequest,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("server_starting",
			"version", version,
			"addr", cfg.Addr,
			"env", cfg.Env,
			"schema", storage.LatestSchemaVersion(),
			"storage", cfg.StorageType,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("server_stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server_shutdown_failed", "error", err)
	}
	<-outboxDone
	slog.Info("server_stopped")
}

// adminAccount builds the single admin login from configuration.
// A stored hash wins over a plaintext password; development falls back to devAdminPassword.
func adminAccount(cfg config.Config) (domainAccount.Account, error) {
	hash := cfg.AdminPasswordHash
	if hash == "" {
		password := cfg.AdminPassword
		if password == "" {
			password = devAdminPassword
			slog.Warn("admin_default_password", "email", cfg.AdminEmail)
		}
		var err error
		if hash, err = domainAccount.HashPassword(password); err != nil {
			return domainAccount.Account{}, err
		}
	}
	a := domainAccount.Account{
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         domainAccount.RoleAdmin,
	}
	if err := a.Validate(); err != nil {
		return domainAccount.Account{}, err
	}
	return a, nil
}

func fatal(event string, err error) {
	slog.Error(event, "error", err)
	os.Exit(1)
}
