package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/identifier"
	"go.uber.org/zap"
)

// ResetSession proves an identifier passed OTP verification.
type ResetSession struct {
	Identifier string
	ExpiresAt  time.Time
}

type PasswordResetMetrics struct {
	PasswordResetOTPSent     int
	PasswordResetRateLimited int
	PasswordResetVerified    int
	PasswordResetSuccess     int
	PasswordResetFailure     int
}

type PasswordResetEvents struct {
	PasswordResetRequest string
	PasswordResetVerify  string
	PasswordResetConfirm string
}

type PasswordResetErrors struct {
	EngineNotReady       error
	IdentifierRequired   error
	InvalidIdentifier    error
	UserNotFound         error
	RateLimited          error
	VerifyFieldsRequired error
	OTPInvalid           error
	FieldsRequired       error
	PasswordMismatch     error
	PasswordTooShort     error
	VerificationRequired error
	SessionExpired       error
	ResetFailed          error
}

// PasswordResetDeps wires the three forgot-password steps.
type PasswordResetDeps struct {
	SessionTTL        time.Duration
	MinPasswordLength int

	Now                 func() time.Time
	ClientIPFromContext func(context.Context) string
	Normalize           func(string) identifier.Identifier
	Logger              *zap.Logger

	CheckSendLimiter func(context.Context, string, string) error
	MapLimiterError  func(error) error
	MapOTPError      func(error) error

	FindUser           func(context.Context, account.Lookup) (*account.User, error)
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(context.Context, int64, string) error

	StartVerification func(context.Context, identifier.Identifier) error
	CheckVerification func(context.Context, identifier.Identifier, string) (bool, error)

	SaveSession       func(context.Context, ResetSession) error
	GetSession        func(context.Context, string) (*ResetSession, error)
	DeleteSession     func(context.Context, string) error
	IsSessionNotFound func(error) bool

	ProviderSetPassword func(context.Context, string, string) error

	MetricInc     func(int)
	EmitAudit     EmitAuditFunc
	EmitRateLimit func(context.Context, string, func() map[string]string)

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
	Errors  PasswordResetErrors
}

// RunSendPasswordResetOTP sends a reset OTP to an existing account.
func RunSendPasswordResetOTP(ctx context.Context, rawIdentifier string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if deps.Normalize == nil || deps.FindUser == nil || deps.StartVerification == nil {
		return deps.Errors.EngineNotReady
	}
	if strings.TrimSpace(rawIdentifier) == "" {
		return deps.Errors.IdentifierRequired
	}

	id := deps.Normalize(rawIdentifier)
	if !id.Valid() {
		return deps.Errors.InvalidIdentifier
	}

	if _, err := deps.FindUser(ctx, LookupFor(id)); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", deps.Errors.UserNotFound, identifierMeta(id))
			return deps.Errors.UserNotFound
		}
		deps.Logger.Error("password reset user lookup failed", zap.String("identifier", id.Value), zap.Error(err))
		return fmt.Errorf("%w: %v", deps.Errors.ResetFailed, err)
	}

	if err := deps.CheckSendLimiter(ctx, id.Value, deps.ClientIPFromContext(ctx)); err != nil {
		mapped := deps.MapLimiterError(err)
		if errors.Is(mapped, deps.Errors.RateLimited) {
			deps.MetricInc(deps.Metrics.PasswordResetRateLimited)
			deps.EmitRateLimit(ctx, "password_reset_otp", identifierMeta(id))
		}
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", mapped, identifierMeta(id))
		return mapped
	}

	if err := deps.StartVerification(ctx, id); err != nil {
		mapped := deps.MapOTPError(err)
		deps.Logger.Warn("password reset otp dispatch failed", zap.String("identifier", id.Value), zap.Error(err))
		deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, false, "", mapped, identifierMeta(id))
		return mapped
	}

	deps.MetricInc(deps.Metrics.PasswordResetOTPSent)
	deps.EmitAudit(ctx, deps.Events.PasswordResetRequest, true, "", nil, identifierMeta(id))
	return nil
}

// RunVerifyPasswordResetOTP checks the OTP and opens a reset session,
// replacing any earlier one for the identifier.
func RunVerifyPasswordResetOTP(ctx context.Context, rawIdentifier, code string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if deps.Normalize == nil || deps.CheckVerification == nil || deps.SaveSession == nil {
		return deps.Errors.EngineNotReady
	}
	code = strings.TrimSpace(code)
	if strings.TrimSpace(rawIdentifier) == "" || code == "" {
		return deps.Errors.VerifyFieldsRequired
	}

	id := deps.Normalize(rawIdentifier)
	if !id.Valid() {
		return deps.Errors.InvalidIdentifier
	}

	approved, err := deps.CheckVerification(ctx, id, code)
	if err != nil {
		return deps.MapOTPError(err)
	}
	if !approved {
		deps.MetricInc(deps.Metrics.PasswordResetFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordResetVerify, false, "", deps.Errors.OTPInvalid, identifierMeta(id))
		return deps.Errors.OTPInvalid
	}

	session := ResetSession{Identifier: id.Value, ExpiresAt: deps.Now().Add(deps.SessionTTL)}
	if err := deps.SaveSession(ctx, session); err != nil {
		deps.Logger.Error("reset session save failed", zap.String("identifier", id.Value), zap.Error(err))
		return fmt.Errorf("%w: %v", deps.Errors.ResetFailed, err)
	}

	deps.MetricInc(deps.Metrics.PasswordResetVerified)
	deps.EmitAudit(ctx, deps.Events.PasswordResetVerify, true, "", nil, identifierMeta(id))
	return nil
}

// RunResetPassword sets the new password at the identity provider first and
// only then updates the local hash, so a provider failure leaves both stores
// on the old password.
func RunResetPassword(ctx context.Context, rawIdentifier, password, confirmPassword string, deps PasswordResetDeps) error {
	normalizePasswordResetDeps(&deps)

	if deps.Normalize == nil || deps.GetSession == nil || deps.FindUser == nil ||
		deps.ProviderSetPassword == nil || deps.HashPassword == nil || deps.UpdatePasswordHash == nil {
		return deps.Errors.EngineNotReady
	}
	if strings.TrimSpace(rawIdentifier) == "" || password == "" || confirmPassword == "" {
		return deps.Errors.FieldsRequired
	}
	if password != confirmPassword {
		return deps.Errors.PasswordMismatch
	}
	if len(password) < deps.MinPasswordLength {
		return deps.Errors.PasswordTooShort
	}

	id := deps.Normalize(rawIdentifier)

	session, err := deps.GetSession(ctx, id.Value)
	if err != nil {
		if deps.IsSessionNotFound(err) {
			return deps.Errors.VerificationRequired
		}
		return fmt.Errorf("%w: %v", deps.Errors.ResetFailed, err)
	}
	if !deps.Now().Before(session.ExpiresAt) {
		if err := deps.DeleteSession(ctx, id.Value); err != nil {
			deps.Logger.Warn("expired reset session delete failed", zap.String("identifier", id.Value), zap.Error(err))
		}
		return deps.Errors.SessionExpired
	}

	user, err := deps.FindUser(ctx, LookupFor(id))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return deps.Errors.UserNotFound
		}
		return fmt.Errorf("%w: %v", deps.Errors.ResetFailed, err)
	}

	if err := deps.ProviderSetPassword(ctx, user.ProviderUsername(), password); err != nil {
		deps.Logger.Error("identity provider password update failed", zap.Int64("user_id", user.ID), zap.Error(err))
		deps.MetricInc(deps.Metrics.PasswordResetFailure)
		deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, false, user.IDString(), deps.Errors.ResetFailed, identifierMeta(id))
		return fmt.Errorf("%w: %v", deps.Errors.ResetFailed, err)
	}

	hash, err := deps.HashPassword(password)
	if err != nil {
		return fmt.Errorf("%w: %v", deps.Errors.ResetFailed, err)
	}
	if err := deps.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		deps.Logger.Error("local password update failed after provider update", zap.Int64("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("%w: %v", deps.Errors.ResetFailed, err)
	}

	if err := deps.DeleteSession(ctx, id.Value); err != nil {
		deps.Logger.Warn("reset session delete failed", zap.String("identifier", id.Value), zap.Error(err))
	}

	deps.MetricInc(deps.Metrics.PasswordResetSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordResetConfirm, true, user.IDString(), nil, identifierMeta(id))
	return nil
}

func normalizePasswordResetDeps(deps *PasswordResetDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = 10 * time.Minute
	}
	if deps.MinPasswordLength <= 0 {
		deps.MinPasswordLength = 6
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.CheckSendLimiter == nil {
		deps.CheckSendLimiter = func(context.Context, string, string) error { return nil }
	}
	if deps.MapLimiterError == nil {
		deps.MapLimiterError = func(err error) error { return fmt.Errorf("%w: %v", deps.Errors.ResetFailed, err) }
	}
	if deps.MapOTPError == nil {
		deps.MapOTPError = func(err error) error { return fmt.Errorf("%w: %v", deps.Errors.ResetFailed, err) }
	}
	if deps.DeleteSession == nil {
		deps.DeleteSession = func(context.Context, string) error { return nil }
	}
	if deps.IsSessionNotFound == nil {
		deps.IsSessionNotFound = func(error) bool { return false }
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
