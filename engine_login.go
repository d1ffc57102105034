package fitfob

import (
	"context"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/flows"
)

// Login signs in a non-admin user with an email or phone number and password.
// Admins are refused with [ErrAdminSecureLogin] and must use StartAdminLogin.
func (e *Engine) Login(ctx context.Context, identifier, password string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return e.flows.Login(ctx, identifier, password)
}

func (e *Engine) loginFlowDeps() flows.LoginDeps {
	deps := flows.LoginDeps{
		AdminRole: e.config.MFA.AdminRole,

		ClientIPFromContext: ClientIPFromContext,
		Normalize:           e.Normalize,
		Logger:              e.logger.Named("login"),

		MapLimiterError: mapLoginLimiterError,

		FindUser:             e.users.FindUser,
		ProviderAuthenticate: e.idp.Authenticate,
		IsCredentialError:    e.isCredentialError,
		IssueToken:           e.IssueToken,

		MetricInc:     e.flowMetricInc,
		EmitAudit:     e.emitAudit,
		EmitRateLimit: e.emitRateLimit,

		Metrics: flows.LoginMetrics{
			LoginSuccess:     int(MetricLoginSuccess),
			LoginFailure:     int(MetricLoginFailure),
			LoginRateLimited: int(MetricLoginRateLimited),
			LoginBlocked:     int(MetricLoginBlocked),
		},
		Events: flows.LoginEvents{
			LoginSuccess:     auditEventLoginSuccess,
			LoginFailure:     auditEventLoginFailure,
			LoginRateLimited: auditEventLoginRateLimited,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			FieldsRequired:     ErrLoginFieldsRequired,
			InvalidIdentifier:  ErrInvalidIdentifier,
			RateLimited:        ErrLoginRateLimited,
			UserNotFound:       ErrUserNotFound,
			UserBlocked:        ErrUserBlocked,
			AdminSecureLogin:   ErrAdminSecureLogin,
			InvalidCredentials: ErrInvalidCredentials,
			LoginFailed:        ErrLoginFailed,
		},
	}
	if e.loginLimiter != nil {
		deps.CheckLoginRate = e.loginLimiter.CheckLogin
		deps.IncrementLoginRate = e.loginLimiter.IncrementLogin
		deps.ResetLoginRate = e.loginLimiter.ResetLogin
	}
	return deps
}
