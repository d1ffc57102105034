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

// MFAChallenge is returned by the admin password step. SetupRequired is set
// when the admin has no activated secret yet; OTPAuthURL then carries the
// enrollment QR payload.
type MFAChallenge struct {
	TempToken     string
	SetupRequired bool
	OTPAuthURL    string
	Secret        string
}

// MFAVerifyResult is either a completed sign-in or a reset signal after too
// many failed codes.
type MFAVerifyResult struct {
	Auth          *AuthResult
	ResetRequired bool
}

type MFAMetrics struct {
	MFAChallengeIssued int
	MFAActivated       int
	MFASuccess         int
	MFAFailure         int
	MFAReset           int
}

type MFAEvents struct {
	MFAChallenge string
	MFAActivated string
	MFASuccess   string
	MFAFailure   string
	MFAReset     string
}

type MFAErrors struct {
	EngineNotReady         error
	LoginFieldsRequired    error
	InvalidIdentifier      error
	UserNotFound           error
	UserBlocked            error
	InvalidCredentials     error
	ActivateFieldsRequired error
	ActivateAdminOnly      error
	NoSetupInProgress      error
	CodeInvalid            error
	VerifyFieldsRequired   error
	SessionExpired         error
	AdminOnly              error
	NotActivated           error
	LoginSessionExpired    error
	MFAFailed              error
}

// MFADeps wires the admin second factor.
type MFADeps struct {
	AdminRole         string
	MaxFailedAttempts int

	Normalize func(string) identifier.Identifier
	Logger    *zap.Logger

	FindUser              func(context.Context, account.Lookup) (*account.User, error)
	GetUserByMFATempToken func(context.Context, string) (*account.User, error)
	UpdateMFA             func(context.Context, int64, account.MFAState) error

	ProviderAuthenticate func(context.Context, string, string) (account.Tokens, error)
	IsCredentialError    func(error) bool

	NewTempToken   func() string
	GenerateSecret func(accountName string) (secret string, url string, err error)
	ValidateCode   func(secret, code string) bool
	IssueToken     func(int64) (string, error)

	MetricInc func(int)
	EmitAudit EmitAuditFunc

	Metrics MFAMetrics
	Events  MFAEvents
	Errors  MFAErrors
}

// RunStartAdminLogin checks an admin's password and opens an MFA login
// session identified by a temporary token.
func RunStartAdminLogin(ctx context.Context, rawIdentifier, password string, deps MFADeps) (*MFAChallenge, error) {
	normalizeMFADeps(&deps)

	if deps.Normalize == nil || deps.FindUser == nil || deps.UpdateMFA == nil ||
		deps.ProviderAuthenticate == nil || deps.NewTempToken == nil || deps.GenerateSecret == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if strings.TrimSpace(rawIdentifier) == "" || password == "" {
		return nil, deps.Errors.LoginFieldsRequired
	}

	id := deps.Normalize(rawIdentifier)
	if !id.Valid() {
		return nil, deps.Errors.InvalidIdentifier
	}

	user, err := deps.FindUser(ctx, LookupFor(id))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, deps.Errors.UserNotFound
		}
		return nil, fmt.Errorf("%w: %v", deps.Errors.MFAFailed, err)
	}
	if user.Blocked {
		return nil, deps.Errors.UserBlocked
	}
	if user.Role.Name != deps.AdminRole {
		return nil, deps.Errors.AdminOnly
	}

	username := user.ProviderUsername()
	if _, err := deps.ProviderAuthenticate(ctx, username, password); err != nil {
		if deps.IsCredentialError(err) {
			deps.EmitAudit(ctx, deps.Events.MFAFailure, false, user.IDString(), deps.Errors.InvalidCredentials, identifierMeta(id))
			return nil, deps.Errors.InvalidCredentials
		}
		deps.Logger.Error("admin password check failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", deps.Errors.MFAFailed, err)
	}

	state := user.MFA
	state.TempToken = deps.NewTempToken()
	state.Identifier = username

	out := &MFAChallenge{TempToken: state.TempToken}
	if state.Secret == "" {
		secret, url, err := deps.GenerateSecret(user.Email)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", deps.Errors.MFAFailed, err)
		}
		state.TempSecret = secret
		out.SetupRequired = true
		out.OTPAuthURL = url
		out.Secret = secret
	}

	if err := deps.UpdateMFA(ctx, user.ID, state); err != nil {
		return nil, fmt.Errorf("%w: %v", deps.Errors.MFAFailed, err)
	}

	deps.MetricInc(deps.Metrics.MFAChallengeIssued)
	deps.EmitAudit(ctx, deps.Events.MFAChallenge, true, user.IDString(), nil, func() map[string]string {
		return map[string]string{"setup_required": fmt.Sprint(out.SetupRequired)}
	})
	return out, nil
}

// RunActivateMFA promotes the pending enrollment secret once the admin proves
// the authenticator produces valid codes for it.
func RunActivateMFA(ctx context.Context, email, code string, deps MFADeps) error {
	normalizeMFADeps(&deps)

	if deps.FindUser == nil || deps.UpdateMFA == nil || deps.ValidateCode == nil {
		return deps.Errors.EngineNotReady
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(code) == "" {
		return deps.Errors.ActivateFieldsRequired
	}

	user, err := deps.FindUser(ctx, account.Lookup{Email: email})
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return deps.Errors.UserNotFound
		}
		return fmt.Errorf("%w: %v", deps.Errors.MFAFailed, err)
	}
	if user.Role.Name != deps.AdminRole {
		return deps.Errors.ActivateAdminOnly
	}
	if user.MFA.TempSecret == "" {
		return deps.Errors.NoSetupInProgress
	}
	if !deps.ValidateCode(user.MFA.TempSecret, code) {
		deps.MetricInc(deps.Metrics.MFAFailure)
		deps.EmitAudit(ctx, deps.Events.MFAFailure, false, user.IDString(), deps.Errors.CodeInvalid, nil)
		return deps.Errors.CodeInvalid
	}

	state := user.MFA
	state.Secret = state.TempSecret
	state.TempSecret = ""
	state.FailedAttempts = 0
	if err := deps.UpdateMFA(ctx, user.ID, state); err != nil {
		return fmt.Errorf("%w: %v", deps.Errors.MFAFailed, err)
	}

	deps.MetricInc(deps.Metrics.MFAActivated)
	deps.EmitAudit(ctx, deps.Events.MFAActivated, true, user.IDString(), nil, nil)
	return nil
}

// RunVerifyMFA completes an admin sign-in. After MaxFailedAttempts bad codes
// the login session is dropped and the caller is told to enroll again.
func RunVerifyMFA(ctx context.Context, tempToken, code, password string, deps MFADeps) (*MFAVerifyResult, error) {
	normalizeMFADeps(&deps)

	if deps.GetUserByMFATempToken == nil || deps.UpdateMFA == nil || deps.ValidateCode == nil ||
		deps.ProviderAuthenticate == nil || deps.IssueToken == nil {
		return nil, deps.Errors.EngineNotReady
	}
	tempToken = strings.TrimSpace(tempToken)
	if tempToken == "" || strings.TrimSpace(code) == "" || password == "" {
		return nil, deps.Errors.VerifyFieldsRequired
	}

	user, err := deps.GetUserByMFATempToken(ctx, tempToken)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, deps.Errors.SessionExpired
		}
		return nil, fmt.Errorf("%w: %v", deps.Errors.MFAFailed, err)
	}
	if user.Role.Name != deps.AdminRole {
		return nil, deps.Errors.AdminOnly
	}
	if user.Blocked {
		return nil, deps.Errors.UserBlocked
	}
	if user.MFA.Secret == "" {
		return nil, deps.Errors.NotActivated
	}
	if user.MFA.Identifier == "" {
		return nil, deps.Errors.LoginSessionExpired
	}

	state := user.MFA
	if !deps.ValidateCode(state.Secret, code) {
		deps.MetricInc(deps.Metrics.MFAFailure)
		attempts := state.FailedAttempts + 1
		if attempts >= deps.MaxFailedAttempts {
			state.TempToken = ""
			state.Identifier = ""
			state.FailedAttempts = 0
			if err := deps.UpdateMFA(ctx, user.ID, state); err != nil {
				return nil, fmt.Errorf("%w: %v", deps.Errors.MFAFailed, err)
			}
			deps.MetricInc(deps.Metrics.MFAReset)
			deps.EmitAudit(ctx, deps.Events.MFAReset, false, user.IDString(), deps.Errors.CodeInvalid, nil)
			return &MFAVerifyResult{ResetRequired: true}, nil
		}

		state.FailedAttempts = attempts
		if err := deps.UpdateMFA(ctx, user.ID, state); err != nil {
			return nil, fmt.Errorf("%w: %v", deps.Errors.MFAFailed, err)
		}
		deps.EmitAudit(ctx, deps.Events.MFAFailure, false, user.IDString(), deps.Errors.CodeInvalid, func() map[string]string {
			return map[string]string{"attempts": fmt.Sprint(attempts)}
		})
		return nil, deps.Errors.CodeInvalid
	}

	state.FailedAttempts = 0
	if err := deps.UpdateMFA(ctx, user.ID, state); err != nil {
		return nil, fmt.Errorf("%w: %v", deps.Errors.MFAFailed, err)
	}

	tokens, err := deps.ProviderAuthenticate(ctx, state.Identifier, password)
	if err != nil {
		if !deps.IsCredentialError(err) {
			deps.Logger.Error("admin sign-in failed at identity provider", zap.Int64("user_id", user.ID), zap.Error(err))
		}
		return nil, deps.Errors.InvalidCredentials
	}

	token, err := deps.IssueToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", deps.Errors.MFAFailed, err)
	}

	state.TempToken = ""
	state.Identifier = ""
	if err := deps.UpdateMFA(ctx, user.ID, state); err != nil {
		deps.Logger.Warn("mfa session clear failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	user.MFA = state

	deps.MetricInc(deps.Metrics.MFASuccess)
	deps.EmitAudit(ctx, deps.Events.MFASuccess, true, user.IDString(), nil, nil)
	return &MFAVerifyResult{Auth: &AuthResult{Token: token, Provider: tokens, User: user}}, nil
}

func normalizeMFADeps(deps *MFADeps) {
	if deps.AdminRole == "" {
		deps.AdminRole = account.RoleAdmin
	}
	if deps.MaxFailedAttempts <= 0 {
		deps.MaxFailedAttempts = 5
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
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
}
