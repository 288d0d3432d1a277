// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvProduction is the CONGRESS_ENV value that enables production checks.
const EnvProduction = "production"

// Config holds every setting the server reads at startup.
type Config struct {
	Env      string
	Addr     string
	DBPath   string
	LogLevel slog.Level

	ResendAPIKey string
	MailFrom     string
	MailReplyTo  string

	FrontendBaseURL    string
	CORSAllowedOrigins []string

	StorageType      string
	StorageLocalPath string
	S3Bucket         string
	S3Region         string
	S3Prefix         string
	S3Endpoint       string

	RedisAddr          string
	RateLimitPerSecond int

	AdminEmail        string
	AdminPassword     string
	AdminPasswordHash string
	JWTSigningKey     string
	JWTIssuer         string
	JWTTTL            time.Duration

	CrestPath       string
	InstitutionName string
	EventName       string
	DiplomaCity     string
	SignatureLeft   string
	SignatureRight  string

	OutboxInterval time.Duration
	SlowRequest    time.Duration
	SlowQuery      time.Duration
	MetricsEnabled bool
}

// Load reads an optional .env file and then the process environment.
// POST: Every field has a value; unset keys fall back to development defaults
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("dotenv_load_failed", "error", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment without touching .env.
func FromEnv() Config {
	addr := getEnv("CONGRESS_ADDR", "")
	if addr == "" {
		addr = ":" + getEnv("PORT", "8080")
	}
	return Config{
		Env:      getEnv("CONGRESS_ENV", "development"),
		Addr:     addr,
		DBPath:   getEnv("CONGRESS_DB_PATH", "congress.db"),
		LogLevel: levelEnv("LOG_LEVEL", slog.LevelInfo),

		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		MailFrom:     getEnv("MAIL_FROM", "Congreso <noreply@congreso.local>"),
		MailReplyTo:  os.Getenv("MAIL_REPLY_TO"),

		FrontendBaseURL:    strings.TrimRight(getEnv("FRONTEND_BASE_URL", "http://localhost:5173"), "/"),
		CORSAllowedOrigins: listEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		StorageType:      getEnv("STORAGE_TYPE", "local"),
		StorageLocalPath: getEnv("STORAGE_LOCAL_PATH", "./storage/diplomas"),
		S3Bucket:         os.Getenv("STORAGE_S3_BUCKET"),
		S3Region:         os.Getenv("STORAGE_S3_REGION"),
		S3Prefix:         os.Getenv("STORAGE_S3_PREFIX"),
		S3Endpoint:       os.Getenv("STORAGE_S3_ENDPOINT"),

		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RateLimitPerSecond: intEnv("RATE_LIMIT_PER_SECOND", 10),

		AdminEmail:        getEnv("ADMIN_EMAIL", "admin@congreso.local"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		JWTSigningKey:     getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		JWTIssuer:         getEnv("JWT_ISSUER", "congress-api"),
		JWTTTL:            durationEnv("JWT_TTL", 8*time.Hour),

		CrestPath:       getEnv("CREST_PATH", "assets/crest.png"),
		InstitutionName: getEnv("INSTITUTION_NAME", "INSTITUTO TECNOLÓGICO"),
		EventName:       getEnv("EVENT_NAME", "Congreso de Tecnología"),
		DiplomaCity:     getEnv("DIPLOMA_CITY", "Ciudad"),
		SignatureLeft:   getEnv("SIGNATURE_LEFT", "Dirección"),
		SignatureRight:  getEnv("SIGNATURE_RIGHT", "Coordinación del Congreso"),

		OutboxInterval: durationEnv("OUTBOX_INTERVAL", time.Minute),
		SlowRequest:    durationEnv("SLOW_REQUEST", 200*time.Millisecond),
		SlowQuery:      durationEnv("SLOW_QUERY", 50*time.Millisecond),
		MetricsEnabled: boolEnv("METRICS_ENABLED", true),
	}
}

// IsProduction reports whether the server runs with production checks.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Validate rejects settings that are unsafe in production.
// PRE: c was produced by Load or FromEnv
// POST: Returns nil in development; in production requires secrets to be set
func (c Config) Validate() error {
	if c.RateLimitPerSecond <= 0 {
		return errors.New("RATE_LIMIT_PER_SECOND must be positive")
	}
	if !c.IsProduction() {
		return nil
	}
	var errs []error
	if c.ResendAPIKey == "" {
		errs = append(errs, errors.New("RESEND_API_KEY is required in production"))
	}
	if c.JWTSigningKey == "" || c.JWTSigningKey == "dev-signing-secret-change" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be set in production"))
	}
	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required in production"))
	}
	return errors.Join(errs...)
}

// LogHandler returns the slog handler for the environment: JSON in production, text otherwise.
func (c Config) LogHandler() slog.Handler {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.IsProduction() {
		return slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.NewTextHandler(os.Stdout, opts)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil || d <= 0 {
			slog.Warn("config_invalid_duration", "key", key, "value", val, "fallback", fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			slog.Warn("config_invalid_bool", "key", key, "value", val, "fallback", fallback)
			return fallback
		}
		return b
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			slog.Warn("config_invalid_int", "key", key, "value", val, "fallback", fallback)
			return fallback
		}
		return n
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func levelEnv(key string, fallback slog.Level) slog.Level {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(val)); err != nil {
		slog.Warn("config_invalid_log_level", "key", key, "value", val)
		return fallback
	}
	return lvl
}
