package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/identifier"
	"go.uber.org/zap"
)

const maxUsernameSuffix = 1000

// RegisterRequest is the first registration step.
type RegisterRequest struct {
	Identifier      string
	Password        string
	ConfirmPassword string
	Role            string
}

// PendingSignup is the flow-local view of a signup waiting for its OTP.
type PendingSignup struct {
	Identifier string
	Email      string
	Phone      string
	Password   string
	Role       string
	ExpiresAt  time.Time
}

type RegistrationMetrics struct {
	RegisterOTPSent     int
	RegisterDuplicate   int
	RegisterRateLimited int
	VerifySuccess       int
	VerifyFailure       int
	VerifyExpired       int
	Compensated         int
}

type RegistrationEvents struct {
	OTPRequested string
	Duplicate    string
	Completed    string
	Failed       string
	Expired      string
}

type RegistrationErrors struct {
	EngineNotReady       error
	FieldsRequired       error
	PasswordMismatch     error
	InvalidIdentifier    error
	RateLimited          error
	AlreadyRegistered    error
	VerifyFieldsRequired error
	OTPInvalid           error
	SignupExpired        error
	AlreadyVerified      error
	RegistrationFailed   error
}

// RegistrationDeps wires the two registration steps.
type RegistrationDeps struct {
	SignupTTL        time.Duration
	DefaultRole      string
	PhoneEmailDomain string

	Now                 func() time.Time
	ClientIPFromContext func(context.Context) string
	Normalize           func(string) identifier.Identifier
	Logger              *zap.Logger

	CheckSendLimiter func(context.Context, string, string) error
	MapLimiterError  func(error) error
	MapOTPError      func(error) error

	FindUser           func(context.Context, account.Lookup) (*account.User, error)
	ProfileExists      func(context.Context, account.Lookup) (bool, error)
	UsernameExists     func(context.Context, string) (bool, error)
	FindRole           func(context.Context, string) (*account.Role, error)
	CreateLocalUser    func(context.Context, account.NewUser) (*account.User, error)
	DeleteLocalUser    func(context.Context, int64) error
	LinkSubject        func(context.Context, int64, string) error
	ProviderUserExists func(context.Context, string) (bool, error)

	SavePending       func(context.Context, PendingSignup, []string) error
	GetPending        func(context.Context, []string) (*PendingSignup, error)
	DeletePending     func(context.Context, []string) error
	IsPendingNotFound func(error) bool

	StartVerification func(context.Context, identifier.Identifier) error
	CheckVerification func(context.Context, identifier.Identifier, string) (bool, error)

	HashPassword         func(string) (string, error)
	ProviderCreateUser   func(context.Context, string, string, string, bool) (string, error)
	ProviderDeleteUser   func(context.Context, string) error
	IsProviderConflict   func(error) bool
	ProviderAddToGroup   func(context.Context, string, string) error
	ProviderAuthenticate func(context.Context, string, string) (account.Tokens, error)
	IssueToken           func(int64) (string, error)

	MetricInc     func(int)
	EmitAudit     EmitAuditFunc
	EmitRateLimit func(context.Context, string, func() map[string]string)

	Metrics RegistrationMetrics
	Events  RegistrationEvents
	Errors  RegistrationErrors
}

// RunRegister validates the request, rejects identifiers that already belong
// to an account, stores the pending signup and sends the OTP.
func RunRegister(ctx context.Context, req RegisterRequest, deps RegistrationDeps) error {
	normalizeRegistrationDeps(&deps)

	if deps.Normalize == nil || deps.FindUser == nil || deps.SavePending == nil || deps.StartVerification == nil {
		return deps.Errors.EngineNotReady
	}
	if strings.TrimSpace(req.Identifier) == "" || req.Password == "" || req.ConfirmPassword == "" {
		return deps.Errors.FieldsRequired
	}
	if req.Password != req.ConfirmPassword {
		return deps.Errors.PasswordMismatch
	}

	id := deps.Normalize(req.Identifier)
	if !id.Valid() {
		return deps.Errors.InvalidIdentifier
	}

	if err := deps.CheckSendLimiter(ctx, id.Value, deps.ClientIPFromContext(ctx)); err != nil {
		mapped := deps.MapLimiterError(err)
		if errors.Is(mapped, deps.Errors.RateLimited) {
			deps.MetricInc(deps.Metrics.RegisterRateLimited)
			deps.EmitRateLimit(ctx, "register_otp", identifierMeta(id))
		}
		deps.EmitAudit(ctx, deps.Events.OTPRequested, false, "", mapped, identifierMeta(id))
		return mapped
	}

	taken, err := identifierTaken(ctx, id, deps)
	if err != nil {
		deps.Logger.Error("registration duplicate check failed", zap.String("identifier", id.Value), zap.Error(err))
		return fmt.Errorf("%w: %v", deps.Errors.RegistrationFailed, err)
	}
	if taken {
		deps.MetricInc(deps.Metrics.RegisterDuplicate)
		deps.EmitAudit(ctx, deps.Events.Duplicate, false, "", deps.Errors.AlreadyRegistered, identifierMeta(id))
		return deps.Errors.AlreadyRegistered
	}

	record := PendingSignup{
		Identifier: id.Value,
		Password:   req.Password,
		Role:       strings.TrimSpace(req.Role),
		ExpiresAt:  deps.Now().Add(deps.SignupTTL),
	}
	if id.IsEmail() {
		record.Email = id.Value
	} else {
		record.Phone = id.Value
	}

	if err := deps.SavePending(ctx, record, id.Candidates()[1:]); err != nil {
		deps.Logger.Error("pending signup save failed", zap.String("identifier", id.Value), zap.Error(err))
		return fmt.Errorf("%w: %v", deps.Errors.RegistrationFailed, err)
	}

	if err := deps.StartVerification(ctx, id); err != nil {
		mapped := deps.MapOTPError(err)
		deps.Logger.Warn("registration otp dispatch failed", zap.String("identifier", id.Value), zap.Error(err))
		deps.EmitAudit(ctx, deps.Events.OTPRequested, false, "", mapped, identifierMeta(id))
		return mapped
	}

	deps.Logger.Info("registration otp sent", zap.String("identifier", id.Value), zap.Stringer("channel", id.Kind))
	deps.MetricInc(deps.Metrics.RegisterOTPSent)
	deps.EmitAudit(ctx, deps.Events.OTPRequested, true, "", nil, identifierMeta(id))
	return nil
}

// RunVerifyRegistration checks the OTP, turns the pending signup into a local
// user plus an identity provider account, and signs the user in.
func RunVerifyRegistration(ctx context.Context, rawIdentifier, code string, deps RegistrationDeps) (*AuthResult, error) {
	normalizeRegistrationDeps(&deps)

	if deps.Normalize == nil || deps.CheckVerification == nil || deps.GetPending == nil || deps.FindUser == nil ||
		deps.CreateLocalUser == nil || deps.ProviderCreateUser == nil || deps.IssueToken == nil {
		return nil, deps.Errors.EngineNotReady
	}
	code = strings.TrimSpace(code)
	if strings.TrimSpace(rawIdentifier) == "" || code == "" {
		return nil, deps.Errors.VerifyFieldsRequired
	}

	id := deps.Normalize(rawIdentifier)
	if !id.Valid() {
		return nil, deps.Errors.InvalidIdentifier
	}

	approved, err := deps.CheckVerification(ctx, id, code)
	if err != nil {
		return nil, deps.MapOTPError(err)
	}
	if !approved {
		deps.MetricInc(deps.Metrics.VerifyFailure)
		deps.EmitAudit(ctx, deps.Events.Failed, false, "", deps.Errors.OTPInvalid, identifierMeta(id))
		return nil, deps.Errors.OTPInvalid
	}

	candidates := id.Candidates()
	pending, err := deps.GetPending(ctx, candidates)
	if err != nil {
		if deps.IsPendingNotFound(err) {
			deps.MetricInc(deps.Metrics.VerifyExpired)
			return nil, deps.Errors.SignupExpired
		}
		return nil, fmt.Errorf("%w: %v", deps.Errors.RegistrationFailed, err)
	}
	if !deps.Now().Before(pending.ExpiresAt) {
		if err := deps.DeletePending(ctx, candidates); err != nil {
			deps.Logger.Warn("expired pending signup delete failed", zap.String("identifier", id.Value), zap.Error(err))
		}
		deps.MetricInc(deps.Metrics.VerifyExpired)
		deps.EmitAudit(ctx, deps.Events.Expired, false, "", deps.Errors.SignupExpired, identifierMeta(id))
		return nil, deps.Errors.SignupExpired
	}

	if _, err := deps.FindUser(ctx, LookupFor(id)); err == nil {
		return nil, deps.Errors.AlreadyVerified
	} else if !errors.Is(err, account.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", deps.Errors.RegistrationFailed, err)
	}

	user, err := createLocalUser(ctx, pending, deps)
	if err != nil {
		deps.Logger.Error("local user create failed", zap.String("identifier", id.Value), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", deps.Errors.RegistrationFailed, err)
	}

	providerUsername := user.ProviderUsername()
	sub, err := deps.ProviderCreateUser(ctx, providerUsername, pending.Password, user.Username, user.PhoneNumber != "")
	if err != nil {
		deps.Logger.Error("identity provider create failed", zap.String("username", providerUsername), zap.Error(err))
		// A conflict means the account belongs to someone else; anything else
		// may have left a half-created account behind.
		if !deps.IsProviderConflict(err) {
			compensateProviderUser(ctx, providerUsername, deps)
		}
		compensateLocalUser(ctx, user.ID, deps)
		deps.EmitAudit(ctx, deps.Events.Failed, false, user.IDString(), deps.Errors.RegistrationFailed, identifierMeta(id))
		return nil, fmt.Errorf("%w: %v", deps.Errors.RegistrationFailed, err)
	}

	if err := deps.LinkSubject(ctx, user.ID, sub); err != nil {
		deps.Logger.Error("identity link failed", zap.Int64("user_id", user.ID), zap.Error(err))
		compensateProviderUser(ctx, providerUsername, deps)
		compensateLocalUser(ctx, user.ID, deps)
		deps.EmitAudit(ctx, deps.Events.Failed, false, user.IDString(), deps.Errors.RegistrationFailed, identifierMeta(id))
		return nil, fmt.Errorf("%w: %v", deps.Errors.RegistrationFailed, err)
	}
	user.CognitoSub = sub

	if err := deps.ProviderAddToGroup(ctx, providerUsername, user.Role.Name); err != nil {
		deps.Logger.Warn("identity group assignment failed", zap.String("username", providerUsername), zap.String("role", user.Role.Name), zap.Error(err))
	}

	if err := deps.DeletePending(ctx, candidates); err != nil {
		deps.Logger.Warn("pending signup delete failed", zap.String("identifier", id.Value), zap.Error(err))
	}

	tokens, err := deps.ProviderAuthenticate(ctx, providerUsername, pending.Password)
	if err != nil {
		deps.Logger.Warn("registration auto-login failed", zap.String("username", providerUsername), zap.Error(err))
		tokens = account.Tokens{}
	}

	token, err := deps.IssueToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", deps.Errors.RegistrationFailed, err)
	}

	deps.Logger.Info("registration completed", zap.Int64("user_id", user.ID), zap.String("role", user.Role.Name))
	deps.MetricInc(deps.Metrics.VerifySuccess)
	deps.EmitAudit(ctx, deps.Events.Completed, true, user.IDString(), nil, identifierMeta(id))

	return &AuthResult{Token: token, Provider: tokens, User: user}, nil
}

func identifierTaken(ctx context.Context, id identifier.Identifier, deps RegistrationDeps) (bool, error) {
	lookup := LookupFor(id)

	_, err := deps.FindUser(ctx, lookup)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, account.ErrNotFound) {
		return false, err
	}

	if deps.ProfileExists != nil {
		exists, err := deps.ProfileExists(ctx, lookup)
		if err != nil || exists {
			return exists, err
		}
	}

	if deps.ProviderUserExists != nil {
		return deps.ProviderUserExists(ctx, id.Value)
	}
	return false, nil
}

func createLocalUser(ctx context.Context, pending *PendingSignup, deps RegistrationDeps) (*account.User, error) {
	base := pending.Phone
	if pending.Email != "" {
		base, _, _ = strings.Cut(pending.Email, "@")
	}
	username, err := uniqueUsername(ctx, base, deps)
	if err != nil {
		return nil, err
	}

	role, err := resolveRole(ctx, pending.Role, deps)
	if err != nil {
		return nil, err
	}

	hash, err := deps.HashPassword(pending.Password)
	if err != nil {
		return nil, err
	}

	email := pending.Email
	if email == "" {
		email = pending.Phone + "@" + deps.PhoneEmailDomain
	}

	user, err := deps.CreateLocalUser(ctx, account.NewUser{
		Username:     username,
		Email:        email,
		PhoneNumber:  pending.Phone,
		PasswordHash: hash,
		RoleID:       role.ID,
		Confirmed:    true,
	})
	if err != nil {
		return nil, err
	}
	user.Role = *role
	return user, nil
}

func uniqueUsername(ctx context.Context, base string, deps RegistrationDeps) (string, error) {
	if deps.UsernameExists == nil {
		return base, nil
	}
	candidate := base
	for n := 1; n <= maxUsernameSuffix; n++ {
		exists, err := deps.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(n)
	}
	return "", fmt.Errorf("no free username for %q", base)
}

func resolveRole(ctx context.Context, requested string, deps RegistrationDeps) (*account.Role, error) {
	if requested != "" {
		role, err := deps.FindRole(ctx, requested)
		if err == nil {
			return role, nil
		}
		if !errors.Is(err, account.ErrNotFound) {
			return nil, err
		}
		deps.Logger.Warn("requested role not found, using default", zap.String("role", requested))
	}
	return deps.FindRole(ctx, deps.DefaultRole)
}

func compensateProviderUser(ctx context.Context, username string, deps RegistrationDeps) {
	if err := deps.ProviderDeleteUser(ctx, username); err != nil {
		deps.Logger.Error("identity provider compensation failed", zap.String("username", username), zap.Error(err))
	}
}

func compensateLocalUser(ctx context.Context, userID int64, deps RegistrationDeps) {
	deps.MetricInc(deps.Metrics.Compensated)
	if err := deps.DeleteLocalUser(ctx, userID); err != nil {
		deps.Logger.Error("local user compensation failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func normalizeRegistrationDeps(deps *RegistrationDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SignupTTL <= 0 {
		deps.SignupTTL = 10 * time.Minute
	}
	if deps.DefaultRole == "" {
		deps.DefaultRole = account.RoleClient
	}
	if deps.PhoneEmailDomain == "" {
		deps.PhoneEmailDomain = "phone.user"
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
		deps.MapLimiterError = func(err error) error { return fmt.Errorf("%w: %v", deps.Errors.RegistrationFailed, err) }
	}
	if deps.MapOTPError == nil {
		deps.MapOTPError = func(err error) error { return fmt.Errorf("%w: %v", deps.Errors.RegistrationFailed, err) }
	}
	if deps.IsPendingNotFound == nil {
		deps.IsPendingNotFound = func(error) bool { return false }
	}
	if deps.DeletePending == nil {
		deps.DeletePending = func(context.Context, []string) error { return nil }
	}
	if deps.DeleteLocalUser == nil {
		deps.DeleteLocalUser = func(context.Context, int64) error { return nil }
	}
	if deps.LinkSubject == nil {
		deps.LinkSubject = func(context.Context, int64, string) error { return nil }
	}
	if deps.ProviderDeleteUser == nil {
		deps.ProviderDeleteUser = func(context.Context, string) error { return nil }
	}
	if deps.IsProviderConflict == nil {
		deps.IsProviderConflict = func(error) bool { return false }
	}
	if deps.ProviderAddToGroup == nil {
		deps.ProviderAddToGroup = func(context.Context, string, string) error { return nil }
	}
	if deps.ProviderAuthenticate == nil {
		deps.ProviderAuthenticate = func(context.Context, string, string) (account.Tokens, error) { return account.Tokens{}, nil }
	}
	if deps.HashPassword == nil {
		deps.HashPassword = func(string) (string, error) { return "", errors.New("password hasher not configured") }
	}
	if deps.FindRole == nil {
		deps.FindRole = func(context.Context, string) (*account.Role, error) { return nil, account.ErrNotFound }
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
