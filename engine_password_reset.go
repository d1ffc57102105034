package fitfob

import (
	"context"
	"errors"
	"time"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/flows"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/stores"
)

const otpPurposePasswordReset = "password_reset"

// SendPasswordResetOTP sends a reset code to an existing account's email or
// phone number.
func (e *Engine) SendPasswordResetOTP(ctx context.Context, identifier string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.SendPasswordResetOTP(ctx, identifier)
}

// VerifyPasswordResetOTP checks the reset code and opens a short reset
// session for the identifier.
func (e *Engine) VerifyPasswordResetOTP(ctx context.Context, identifier, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.VerifyPasswordResetOTP(ctx, identifier, code)
}

// ResetPassword sets a new password for an identifier with a live reset
// session. The identity provider is updated before the local hash.
func (e *Engine) ResetPassword(ctx context.Context, identifier, password, confirmPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.ResetPassword(ctx, identifier, password, confirmPassword)
}

func (e *Engine) passwordResetFlowDeps() flows.PasswordResetDeps {
	return flows.PasswordResetDeps{
		SessionTTL:        e.config.PasswordReset.SessionTTL,
		MinPasswordLength: e.config.PasswordReset.MinPasswordLength,

		Now:                 time.Now,
		ClientIPFromContext: ClientIPFromContext,
		Normalize:           e.Normalize,
		Logger:              e.logger.Named("password_reset"),

		CheckSendLimiter: func(ctx context.Context, id, ip string) error {
			return e.otpLimiter.Check(ctx, otpPurposePasswordReset, id, ip)
		},
		MapLimiterError: mapOTPSendLimiterError(ErrPasswordResetFailed),
		MapOTPError:     mapOTPError,

		FindUser:           e.users.FindUser,
		HashPassword:       e.passwordHash.Hash,
		UpdatePasswordHash: e.users.UpdatePasswordHash,

		StartVerification: e.otp.StartVerification,
		CheckVerification: e.otp.CheckVerification,

		SaveSession:       e.saveResetSession,
		GetSession:        e.getResetSession,
		DeleteSession:     e.resets.Delete,
		IsSessionNotFound: func(err error) bool { return errors.Is(err, stores.ErrResetSessionNotFound) },

		ProviderSetPassword: e.idp.SetPassword,

		MetricInc:     e.flowMetricInc,
		EmitAudit:     e.emitAudit,
		EmitRateLimit: e.emitRateLimit,

		Metrics: flows.PasswordResetMetrics{
			PasswordResetOTPSent:     int(MetricPasswordResetOTPSent),
			PasswordResetRateLimited: int(MetricPasswordResetRateLimited),
			PasswordResetVerified:    int(MetricPasswordResetVerified),
			PasswordResetSuccess:     int(MetricPasswordResetSuccess),
			PasswordResetFailure:     int(MetricPasswordResetFailure),
		},
		Events: flows.PasswordResetEvents{
			PasswordResetRequest: auditEventPasswordResetRequest,
			PasswordResetVerify:  auditEventPasswordResetVerify,
			PasswordResetConfirm: auditEventPasswordResetConfirm,
		},
		Errors: flows.PasswordResetErrors{
			EngineNotReady:       ErrEngineNotReady,
			IdentifierRequired:   ErrResetIdentifierRequired,
			InvalidIdentifier:    ErrInvalidIdentifier,
			UserNotFound:         ErrUserNotFound,
			RateLimited:          ErrOTPRateLimited,
			VerifyFieldsRequired: ErrVerifyFieldsRequired,
			OTPInvalid:           ErrOTPInvalid,
			FieldsRequired:       ErrResetFieldsRequired,
			PasswordMismatch:     ErrPasswordMismatch,
			PasswordTooShort:     ErrPasswordTooShort,
			VerificationRequired: ErrResetVerificationRequired,
			SessionExpired:       ErrResetSessionExpired,
			ResetFailed:          ErrPasswordResetFailed,
		},
	}
}

func (e *Engine) saveResetSession(ctx context.Context, s flows.ResetSession) error {
	return e.resets.Replace(ctx, &stores.ResetSessionRecord{
		Identifier: s.Identifier,
		ExpiresAt:  s.ExpiresAt.Unix(),
	}, e.config.PasswordReset.Retention)
}

func (e *Engine) getResetSession(ctx context.Context, identifier string) (*flows.ResetSession, error) {
	record, err := e.resets.Get(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return &flows.ResetSession{
		Identifier: record.Identifier,
		ExpiresAt:  time.Unix(record.ExpiresAt, 0),
	}, nil
}
