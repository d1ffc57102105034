package fitfob

import (
	"context"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/flows"
)

// StartAdminLogin checks an admin's password and opens an MFA login session.
// When the admin has no activated authenticator the challenge also carries a
// fresh enrollment secret and its otpauth URL.
func (e *Engine) StartAdminLogin(ctx context.Context, identifier, password string) (*MFAChallenge, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return e.flows.StartAdminLogin(ctx, identifier, password)
}

// ActivateMFA confirms an enrollment with a code from the new authenticator.
func (e *Engine) ActivateMFA(ctx context.Context, email, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.ActivateMFA(ctx, email, code)
}

// VerifyMFA completes an admin login. After MFA.MaxFailedAttempts bad codes
// the result has ResetRequired set and the session is gone.
func (e *Engine) VerifyMFA(ctx context.Context, tempToken, code, password string) (*MFAVerifyResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return e.flows.VerifyMFA(ctx, tempToken, code, password)
}

func (e *Engine) mfaFlowDeps() flows.MFADeps {
	return flows.MFADeps{
		AdminRole:         e.config.MFA.AdminRole,
		MaxFailedAttempts: e.config.MFA.MaxFailedAttempts,

		Normalize: e.Normalize,
		Logger:    e.logger.Named("mfa"),

		FindUser:              e.users.FindUser,
		GetUserByMFATempToken: e.users.GetUserByMFATempToken,
		UpdateMFA:             e.users.UpdateMFA,

		ProviderAuthenticate: e.idp.Authenticate,
		IsCredentialError:    e.isCredentialError,

		NewTempToken:   e.newTempToken,
		GenerateSecret: e.totp.GenerateSecret,
		ValidateCode:   e.totp.ValidateCode,
		IssueToken:     e.IssueToken,

		MetricInc: e.flowMetricInc,
		EmitAudit: e.emitAudit,

		Metrics: flows.MFAMetrics{
			MFAChallengeIssued: int(MetricMFAChallengeIssued),
			MFAActivated:       int(MetricMFAActivated),
			MFASuccess:         int(MetricMFASuccess),
			MFAFailure:         int(MetricMFAFailure),
			MFAReset:           int(MetricMFAReset),
		},
		Events: flows.MFAEvents{
			MFAChallenge: auditEventMFAChallenge,
			MFAActivated: auditEventMFAActivated,
			MFASuccess:   auditEventMFASuccess,
			MFAFailure:   auditEventMFAFailure,
			MFAReset:     auditEventMFAReset,
		},
		Errors: flows.MFAErrors{
			EngineNotReady:         ErrEngineNotReady,
			LoginFieldsRequired:    ErrLoginFieldsRequired,
			InvalidIdentifier:      ErrInvalidIdentifier,
			UserNotFound:           ErrUserNotFound,
			UserBlocked:            ErrUserBlocked,
			InvalidCredentials:     ErrInvalidCredentials,
			ActivateFieldsRequired: ErrMFAActivateFieldsRequired,
			ActivateAdminOnly:      ErrMFAActivateAdminOnly,
			NoSetupInProgress:      ErrMFANoSetup,
			CodeInvalid:            ErrMFACodeInvalid,
			VerifyFieldsRequired:   ErrMFAVerifyFieldsRequired,
			SessionExpired:         ErrMFASessionExpired,
			AdminOnly:              ErrMFAAdminOnly,
			NotActivated:           ErrMFANotActivated,
			LoginSessionExpired:    ErrMFALoginSessionExpired,
			MFAFailed:              ErrMFAFailed,
		},
	}
}
