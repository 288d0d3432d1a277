package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"conference/internal/domain/account"
)

// AccountStoreForLogin defines the store interface needed by Login.
type AccountStoreForLogin interface {
	GetByEmail(ctx context.Context, email string) (account.Account, error)
	Save(ctx context.Context, a account.Account) error
}

// TokenSigner issues access tokens.
type TokenSigner interface {
	Issue(subject, role string) (string, time.Time, error)
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult carries the issued token.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	Accounts AccountStoreForLogin
	Tokens   TokenSigner
	Now      func() time.Time
}

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is locked due to too many failed attempts")
)

// ExecuteAdminLogin validates admin credentials and issues a signed token.
// PRE: Valid email and password provided
// POST: Returns a token on success, records failed login on failure
// INVARIANT: Account must not be locked
func ExecuteAdminLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	if input.Email == "" || input.Password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	now := nowOr(deps.Now)

	acct, err := deps.Accounts.GetByEmail(ctx, input.Email)
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", input.Email, "reason", "not_found")
		return LoginResult{}, ErrInvalidCredentials
	}

	if acct.IsLocked(now) {
		slog.Info("auth_event", "event", "login_blocked", "email", input.Email, "reason", "locked")
		return LoginResult{}, ErrAccountLocked
	}

	if err := acct.CheckPassword(input.Password); err != nil {
		acct.RecordFailedLogin(now)
		_ = deps.Accounts.Save(ctx, acct)
		slog.Info("auth_event", "event", "login_failed", "email", input.Email, "reason", "wrong_password", "failed_logins", acct.FailedLogins)
		return LoginResult{}, ErrInvalidCredentials
	}

	acct.ResetFailedLogins()
	_ = deps.Accounts.Save(ctx, acct)

	token, exp, err := deps.Tokens.Issue(acct.Email, acct.Role)
	if err != nil {
		return LoginResult{}, err
	}
	slog.Info("auth_event", "event", "login_success", "email", acct.Email, "role", acct.Role)
	return LoginResult{Token: token, ExpiresAt: exp, Email: acct.Email, Role: acct.Role}, nil
}
