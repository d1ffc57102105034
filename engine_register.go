package fitfob

import (
	"context"
	"errors"
	"time"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/identity"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/flows"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/stores"
)

const otpPurposeRegister = "register"

// Register starts a signup: it rejects identifiers that already belong to a
// user, a client profile or an identity provider account, stores the pending
// signup and sends the OTP.
//
// Errors: [ErrRegisterFieldsRequired], [ErrPasswordMismatch],
// [ErrInvalidIdentifier], [ErrOTPRateLimited], [ErrAlreadyRegistered],
// [ErrOTPInvalidDestination], [ErrOTPUnavailable], [ErrRegistrationFailed].
func (e *Engine) Register(ctx context.Context, input RegisterInput) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.Register(ctx, flows.RegisterRequest{
		Identifier:      input.Identifier,
		Password:        input.Password,
		ConfirmPassword: input.ConfirmPassword,
		Role:            input.Role,
	})
}

// VerifyRegistration completes a signup with its OTP. It creates the local
// user and the identity provider account, links them and signs the user in.
// A failure after the local user exists removes that user again.
func (e *Engine) VerifyRegistration(ctx context.Context, identifier, code string) (*AuthResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return e.flows.VerifyRegistration(ctx, identifier, code)
}

func (e *Engine) registrationFlowDeps() flows.RegistrationDeps {
	deps := flows.RegistrationDeps{
		SignupTTL:        e.config.Signup.TTL,
		DefaultRole:      e.config.Signup.DefaultRole,
		PhoneEmailDomain: e.config.Signup.PhoneEmailDomain,

		Now:                 time.Now,
		ClientIPFromContext: ClientIPFromContext,
		Normalize:           e.Normalize,
		Logger:              e.logger.Named("register"),

		CheckSendLimiter: func(ctx context.Context, id, ip string) error {
			return e.otpLimiter.Check(ctx, otpPurposeRegister, id, ip)
		},
		MapLimiterError: mapOTPSendLimiterError(ErrRegistrationFailed),
		MapOTPError:     mapOTPError,

		FindUser:           e.users.FindUser,
		UsernameExists:     e.users.UsernameExists,
		FindRole:           e.users.FindRole,
		CreateLocalUser:    e.users.CreateUser,
		DeleteLocalUser:    e.users.DeleteUser,
		LinkSubject:        e.users.LinkCognitoSub,
		ProviderUserExists: e.idp.UserExists,

		SavePending:       e.savePending,
		GetPending:        e.getPending,
		DeletePending:     e.deletePending,
		IsPendingNotFound: func(err error) bool { return errors.Is(err, stores.ErrPendingNotFound) },

		StartVerification: e.otp.StartVerification,
		CheckVerification: e.otp.CheckVerification,

		HashPassword:         e.passwordHash.Hash,
		ProviderCreateUser:   e.idp.CreateUser,
		ProviderDeleteUser:   e.idp.DeleteUser,
		IsProviderConflict:   func(err error) bool { return errors.Is(err, identity.ErrUserExists) },
		ProviderAddToGroup:   e.idp.AddUserToGroup,
		ProviderAuthenticate: e.idp.Authenticate,
		IssueToken:           e.IssueToken,

		MetricInc:     e.flowMetricInc,
		EmitAudit:     e.emitAudit,
		EmitRateLimit: e.emitRateLimit,

		Metrics: flows.RegistrationMetrics{
			RegisterOTPSent:     int(MetricRegisterOTPSent),
			RegisterDuplicate:   int(MetricRegisterDuplicate),
			RegisterRateLimited: int(MetricRegisterRateLimited),
			VerifySuccess:       int(MetricRegisterSuccess),
			VerifyFailure:       int(MetricRegisterOTPFailure),
			VerifyExpired:       int(MetricRegisterExpired),
			Compensated:         int(MetricRegisterCompensated),
		},
		Events: flows.RegistrationEvents{
			OTPRequested: auditEventRegisterOTPRequested,
			Duplicate:    auditEventRegisterDuplicate,
			Completed:    auditEventRegisterCompleted,
			Failed:       auditEventRegisterFailed,
			Expired:      auditEventRegisterExpired,
		},
		Errors: flows.RegistrationErrors{
			EngineNotReady:       ErrEngineNotReady,
			FieldsRequired:       ErrRegisterFieldsRequired,
			PasswordMismatch:     ErrPasswordMismatch,
			InvalidIdentifier:    ErrInvalidIdentifier,
			RateLimited:          ErrOTPRateLimited,
			AlreadyRegistered:    ErrAlreadyRegistered,
			VerifyFieldsRequired: ErrVerifyFieldsRequired,
			OTPInvalid:           ErrOTPInvalid,
			SignupExpired:        ErrSignupExpired,
			AlreadyVerified:      ErrAlreadyVerified,
			RegistrationFailed:   ErrRegistrationFailed,
		},
	}
	if e.profiles != nil {
		deps.ProfileExists = e.profiles.ClientProfileExists
	}
	return deps
}

func (e *Engine) savePending(ctx context.Context, p flows.PendingSignup, aliases []string) error {
	return e.pending.Replace(ctx, &stores.PendingSignupRecord{
		Identifier: p.Identifier,
		Email:      p.Email,
		Phone:      p.Phone,
		Password:   p.Password,
		Role:       p.Role,
		ExpiresAt:  p.ExpiresAt.Unix(),
	}, e.config.Signup.Retention, aliases...)
}

func (e *Engine) getPending(ctx context.Context, candidates []string) (*flows.PendingSignup, error) {
	record, err := e.pending.Get(ctx, candidates...)
	if err != nil {
		return nil, err
	}
	return &flows.PendingSignup{
		Identifier: record.Identifier,
		Email:      record.Email,
		Phone:      record.Phone,
		Password:   record.Password,
		Role:       record.Role,
		ExpiresAt:  time.Unix(record.ExpiresAt, 0),
	}, nil
}

func (e *Engine) deletePending(ctx context.Context, candidates []string) error {
	return e.pending.Delete(ctx, candidates...)
}

