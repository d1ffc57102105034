package httpapi

import (
	"errors"
	"net/http"

	fitfob "github.com/gautamxyzstudio/FITFOB-BACKEND"
	"go.uber.org/zap"
)

type statusRule struct {
	err    error
	status int
}

// statusRules is checked in order; the first sentinel matched by errors.Is
// decides the status and the message.
var statusRules = []statusRule{
	// 429
	{fitfob.ErrOTPRateLimited, http.StatusTooManyRequests},
	{fitfob.ErrLoginRateLimited, http.StatusTooManyRequests},

	// 401
	{fitfob.ErrInvalidCredentials, http.StatusUnauthorized},
	{fitfob.ErrTokenInvalid, http.StatusUnauthorized},

	// 403
	{fitfob.ErrUserBlocked, http.StatusForbidden},
	{fitfob.ErrAdminSecureLogin, http.StatusForbidden},
	{fitfob.ErrMFAAdminOnly, http.StatusForbidden},
	{fitfob.ErrMFAActivateAdminOnly, http.StatusForbidden},

	// 404
	{fitfob.ErrUserNotFound, http.StatusNotFound},

	// 503
	{fitfob.ErrOTPUnavailable, http.StatusServiceUnavailable},

	// 500 with their own message
	{fitfob.ErrRegistrationFailed, http.StatusInternalServerError},
	{fitfob.ErrLoginFailed, http.StatusInternalServerError},
	{fitfob.ErrPasswordResetFailed, http.StatusInternalServerError},
	{fitfob.ErrMFAFailed, http.StatusInternalServerError},
	{fitfob.ErrApprovalFailed, http.StatusInternalServerError},

	// 400
	{fitfob.ErrRegisterFieldsRequired, http.StatusBadRequest},
	{fitfob.ErrPasswordMismatch, http.StatusBadRequest},
	{fitfob.ErrInvalidIdentifier, http.StatusBadRequest},
	{fitfob.ErrAlreadyRegistered, http.StatusBadRequest},
	{fitfob.ErrVerifyFieldsRequired, http.StatusBadRequest},
	{fitfob.ErrOTPInvalid, http.StatusBadRequest},
	{fitfob.ErrSignupExpired, http.StatusBadRequest},
	{fitfob.ErrAlreadyVerified, http.StatusBadRequest},
	{fitfob.ErrOTPInvalidDestination, http.StatusBadRequest},
	{fitfob.ErrLoginFieldsRequired, http.StatusBadRequest},
	{fitfob.ErrResetIdentifierRequired, http.StatusBadRequest},
	{fitfob.ErrResetFieldsRequired, http.StatusBadRequest},
	{fitfob.ErrPasswordTooShort, http.StatusBadRequest},
	{fitfob.ErrResetVerificationRequired, http.StatusBadRequest},
	{fitfob.ErrResetSessionExpired, http.StatusBadRequest},
	{fitfob.ErrMFAActivateFieldsRequired, http.StatusBadRequest},
	{fitfob.ErrMFANoSetup, http.StatusBadRequest},
	{fitfob.ErrMFACodeInvalid, http.StatusBadRequest},
	{fitfob.ErrMFAVerifyFieldsRequired, http.StatusBadRequest},
	{fitfob.ErrMFASessionExpired, http.StatusBadRequest},
	{fitfob.ErrMFANotActivated, http.StatusBadRequest},
	{fitfob.ErrMFALoginSessionExpired, http.StatusBadRequest},
	{fitfob.ErrApprovalIDRequired, http.StatusBadRequest},
	{fitfob.ErrUserAlreadyApproved, http.StatusBadRequest},
	{fitfob.ErrUserAlreadyUnapproved, http.StatusBadRequest},
}

// classify returns the status and client message for err. fallback is the
// operation's generic message for errors no rule matches.
func classify(err, fallback error) (int, string, bool) {
	for _, rule := range statusRules {
		if errors.Is(err, rule.err) {
			return rule.status, rule.err.Error(), true
		}
	}
	return http.StatusInternalServerError, fallback.Error(), false
}

type errorDetail struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Status: status, Message: message}})
}

// fail writes err and logs anything that ended up as a 5xx.
func (a *api) fail(w http.ResponseWriter, r *http.Request, err, fallback error) {
	status, message, known := classify(err, fallback)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", fitfob.RequestIDFromContext(r.Context())),
			zap.Bool("known", known),
			zap.Error(err),
		)
	}
	writeError(w, status, message)
}
