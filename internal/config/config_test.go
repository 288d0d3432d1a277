package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"CONGRESS_ADDR", "PORT", "CONGRESS_ENV", "JWT_TTL", "CORS_ALLOWED_ORIGINS", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.Env != "development" {
		t.Errorf("Env = %q", cfg.Env)
	}
	if cfg.JWTTTL != 8*time.Hour {
		t.Errorf("JWTTTL = %v", cfg.JWTTTL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if !cfg.MetricsEnabled {
		t.Error("MetricsEnabled should default to true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate in development: %v", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CONGRESS_ADDR", "")
	t.Setenv("PORT", "9000")
	t.Setenv("FRONTEND_BASE_URL", "https://congreso.example.mx/")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("JWT_TTL", "30m")
	t.Setenv("RATE_LIMIT_PER_SECOND", "25")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("METRICS_ENABLED", "false")

	cfg := FromEnv()
	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q, want :9000", cfg.Addr)
	}
	if cfg.FrontendBaseURL != "https://congreso.example.mx" {
		t.Errorf("FrontendBaseURL = %q, trailing slash not trimmed", cfg.FrontendBaseURL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.JWTTTL != 30*time.Minute {
		t.Errorf("JWTTTL = %v", cfg.JWTTTL)
	}
	if cfg.RateLimitPerSecond != 25 {
		t.Errorf("RateLimitPerSecond = %d", cfg.RateLimitPerSecond)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if cfg.MetricsEnabled {
		t.Error("MetricsEnabled should be false")
	}
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("JWT_TTL", "soon")
	t.Setenv("RATE_LIMIT_PER_SECOND", "many")
	t.Setenv("OUTBOX_INTERVAL", "-1s")

	cfg := FromEnv()
	if cfg.JWTTTL != 8*time.Hour {
		t.Errorf("JWTTTL = %v, want fallback", cfg.JWTTTL)
	}
	if cfg.RateLimitPerSecond != 10 {
		t.Errorf("RateLimitPerSecond = %d, want fallback", cfg.RateLimitPerSecond)
	}
	if cfg.OutboxInterval != time.Minute {
		t.Errorf("OutboxInterval = %v, want fallback", cfg.OutboxInterval)
	}
}

func TestValidate_Production(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing secrets",
			cfg:     Config{Env: EnvProduction, RateLimitPerSecond: 5, JWTSigningKey: "dev-signing-secret-change"},
			wantErr: "RESEND_API_KEY",
		},
		{
			name:    "default signing key",
			cfg:     Config{Env: EnvProduction, RateLimitPerSecond: 5, ResendAPIKey: "re_x", AdminPassword: "p", JWTSigningKey: "dev-signing-secret-change"},
			wantErr: "JWT_SIGNING_KEY",
		},
		{
			name: "complete",
			cfg:  Config{Env: EnvProduction, RateLimitPerSecond: 5, ResendAPIKey: "re_x", AdminPasswordHash: "$2a$", JWTSigningKey: "s3cret"},
		},
		{
			name:    "non-positive rate",
			cfg:     Config{Env: "development"},
			wantErr: "RATE_LIMIT_PER_SECOND",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %s", err, tt.wantErr)
			}
		})
	}
}
