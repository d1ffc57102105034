package fitfob

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventRegisterOTPRequested = "register_otp_requested"
	auditEventRegisterDuplicate    = "register_duplicate"
	auditEventRegisterCompleted    = "register_completed"
	auditEventRegisterFailed       = "register_failed"
	auditEventRegisterExpired      = "register_expired"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginRateLimited     = "login_rate_limited"
	auditEventPasswordResetRequest = "password_reset_request"
	auditEventPasswordResetVerify  = "password_reset_verify"
	auditEventPasswordResetConfirm = "password_reset_confirm"
	auditEventMFAChallenge         = "mfa_challenge"
	auditEventMFAActivated         = "mfa_activated"
	auditEventMFASuccess           = "mfa_success"
	auditEventMFAFailure           = "mfa_failure"
	auditEventMFAReset             = "mfa_reset"
	auditEventApprovalChange       = "approval_change"
	auditEventRateLimitTriggered   = "rate_limit_triggered"
)

// AuditErrorCode is the stable error label carried by audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrUserBlocked        AuditErrorCode = "user_blocked"
	auditErrForbidden          AuditErrorCode = "forbidden"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrOTPInvalid         AuditErrorCode = "otp_invalid"
	auditErrExpired            AuditErrorCode = "expired"
	auditErrMFAInvalid         AuditErrorCode = "mfa_invalid"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		RequestID: RequestIDFromContext(ctx),
		IP:        ClientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	metadataBuilder func() map[string]string,
) {
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", nil, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrOTPRateLimited),
		errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrUserBlocked):
		return auditErrUserBlocked
	case errors.Is(err, ErrAdminSecureLogin),
		errors.Is(err, ErrMFAAdminOnly),
		errors.Is(err, ErrMFAActivateAdminOnly):
		return auditErrForbidden
	case errors.Is(err, ErrAlreadyRegistered),
		errors.Is(err, ErrAlreadyVerified):
		return auditErrDuplicate
	case errors.Is(err, ErrOTPInvalid),
		errors.Is(err, ErrOTPInvalidDestination):
		return auditErrOTPInvalid
	case errors.Is(err, ErrSignupExpired),
		errors.Is(err, ErrResetSessionExpired),
		errors.Is(err, ErrMFASessionExpired),
		errors.Is(err, ErrMFALoginSessionExpired):
		return auditErrExpired
	case errors.Is(err, ErrMFACodeInvalid):
		return auditErrMFAInvalid
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrOTPUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
