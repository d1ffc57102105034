package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/identifier"
	"go.uber.org/zap"
)

type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginRateLimited int
	LoginBlocked     int
}

type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
}

type LoginErrors struct {
	EngineNotReady     error
	FieldsRequired     error
	InvalidIdentifier  error
	RateLimited        error
	UserNotFound       error
	UserBlocked        error
	AdminSecureLogin   error
	InvalidCredentials error
	LoginFailed        error
}

// LoginDeps captures the password login dependencies.
type LoginDeps struct {
	AdminRole string

	ClientIPFromContext func(context.Context) string
	Normalize           func(string) identifier.Identifier
	Logger              *zap.Logger

	CheckLoginRate     func(context.Context, string, string) error
	IncrementLoginRate func(context.Context, string, string) error
	ResetLoginRate     func(context.Context, string) error
	MapLimiterError    func(error) error

	FindUser             func(context.Context, account.Lookup) (*account.User, error)
	ProviderAuthenticate func(context.Context, string, string) (account.Tokens, error)
	IsCredentialError    func(error) bool
	IssueToken           func(int64) (string, error)

	MetricInc     func(int)
	EmitAudit     EmitAuditFunc
	EmitRateLimit func(context.Context, string, func() map[string]string)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin signs in a non-admin user with the identity provider and issues a
// local session token.
func RunLogin(ctx context.Context, rawIdentifier, password string, deps LoginDeps) (*AuthResult, error) {
	normalizeLoginDeps(&deps)

	if deps.Normalize == nil || deps.FindUser == nil || deps.ProviderAuthenticate == nil || deps.IssueToken == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if strings.TrimSpace(rawIdentifier) == "" || password == "" {
		return nil, deps.Errors.FieldsRequired
	}

	id := deps.Normalize(rawIdentifier)
	if !id.Valid() {
		return nil, deps.Errors.InvalidIdentifier
	}
	ip := deps.ClientIPFromContext(ctx)

	if err := deps.CheckLoginRate(ctx, id.Value, ip); err != nil {
		mapped := deps.MapLimiterError(err)
		if errors.Is(mapped, deps.Errors.RateLimited) {
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", mapped, identifierMeta(id))
			deps.EmitRateLimit(ctx, "login", identifierMeta(id))
		}
		return nil, mapped
	}

	user, err := deps.FindUser(ctx, LookupFor(id))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			deps.MetricInc(deps.Metrics.LoginFailure)
			deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", deps.Errors.UserNotFound, identifierMeta(id))
			return nil, deps.Errors.UserNotFound
		}
		deps.Logger.Error("login user lookup failed", zap.String("identifier", id.Value), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", deps.Errors.LoginFailed, err)
	}

	if user.Blocked {
		deps.MetricInc(deps.Metrics.LoginBlocked)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.IDString(), deps.Errors.UserBlocked, identifierMeta(id))
		return nil, deps.Errors.UserBlocked
	}
	if user.Role.Name == deps.AdminRole {
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.IDString(), deps.Errors.AdminSecureLogin, identifierMeta(id))
		return nil, deps.Errors.AdminSecureLogin
	}

	tokens, err := deps.ProviderAuthenticate(ctx, user.ProviderUsername(), password)
	if err != nil {
		if !deps.IsCredentialError(err) {
			deps.Logger.Error("identity provider authentication failed", zap.String("identifier", id.Value), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", deps.Errors.LoginFailed, err)
		}
		if incErr := deps.IncrementLoginRate(ctx, id.Value, ip); incErr != nil {
			deps.Logger.Warn("login failure counter update failed", zap.String("identifier", id.Value), zap.Error(incErr))
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.IDString(), deps.Errors.InvalidCredentials, identifierMeta(id))
		return nil, deps.Errors.InvalidCredentials
	}

	if err := deps.ResetLoginRate(ctx, id.Value); err != nil {
		deps.Logger.Warn("login failure counter reset failed", zap.String("identifier", id.Value), zap.Error(err))
	}

	token, err := deps.IssueToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", deps.Errors.LoginFailed, err)
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.IDString(), nil, identifierMeta(id))
	return &AuthResult{Token: token, Provider: tokens, User: user}, nil
}

func normalizeLoginDeps(deps *LoginDeps) {
	if deps.AdminRole == "" {
		deps.AdminRole = account.RoleAdmin
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.CheckLoginRate == nil {
		deps.CheckLoginRate = func(context.Context, string, string) error { return nil }
	}
	if deps.IncrementLoginRate == nil {
		deps.IncrementLoginRate = func(context.Context, string, string) error { return nil }
	}
	if deps.ResetLoginRate == nil {
		deps.ResetLoginRate = func(context.Context, string) error { return nil }
	}
	if deps.MapLimiterError == nil {
		deps.MapLimiterError = func(err error) error { return fmt.Errorf("%w: %v", deps.Errors.LoginFailed, err) }
	}
	if deps.IsCredentialError == nil {
		deps.IsCredentialError = func(error) bool { return true }
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.EmitRateLimit == nil {
		deps.EmitRateLimit = func(context.Context, string, func() map[string]string) {}
	}
}
