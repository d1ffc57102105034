package fitfob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/account"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/identifier"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/identity"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/flows"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/limiters"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/rate"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/stores"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/jwt"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/otp"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/password"
	"go.uber.org/zap"
)

// Engine runs the onboarding and sign-in workflows. Build one with [New];
// it is safe for concurrent use.
type Engine struct {
	config       Config
	logger       *zap.Logger
	normalizer   identifier.Normalizer
	users        UserStore
	profiles     ProfileStore
	otp          OTPGateway
	idp          IdentityProvider
	verifier     ProviderTokenVerifier
	pending      *stores.PendingSignupStore
	resets       *stores.ResetSessionStore
	otpLimiter   *limiters.OTPSendLimiter
	loginLimiter *rate.Limiter
	audit        *auditDispatcher
	metrics      *Metrics
	passwordHash *password.Argon2
	totp         *totpManager
	jwtManager   *jwt.Manager
	newTempToken func() string
	flows        flows.Service
}

// Close drains the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) flowMetricInc(id int) {
	e.metricInc(MetricID(id))
}

func (e *Engine) ready() bool {
	return e != nil && e.flows.Initialized()
}

// Normalize canonicalizes raw with the engine's numbering plan.
func (e *Engine) Normalize(raw string) identifier.Identifier {
	return e.normalizer.Normalize(raw)
}

// AuthenticateToken resolves a bearer token to its local user. Tokens issued
// by this engine resolve by user id; anything else is verified against the
// identity provider and resolved by subject. Every failure wraps
// [ErrTokenInvalid].
func (e *Engine) AuthenticateToken(ctx context.Context, token string) (*account.User, error) {
	if e == nil || e.jwtManager == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricTokenLatency, time.Since(start))
		}()
	}

	user, err := e.resolveToken(ctx, strings.TrimSpace(token))
	if err != nil {
		e.metricInc(MetricTokenRejected)
		e.logger.Debug("bearer token rejected", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	e.metricInc(MetricTokenAccepted)
	return user, nil
}

func (e *Engine) resolveToken(ctx context.Context, token string) (*account.User, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}

	if e.jwtManager.Owns(token) {
		claims, err := e.jwtManager.Parse(token)
		if err != nil {
			return nil, err
		}
		return e.users.GetUserByID(ctx, claims.ID)
	}

	if e.verifier == nil {
		return nil, errors.New("identity provider tokens not accepted")
	}
	claims, err := e.verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	return e.users.GetUserByCognitoSub(ctx, claims.Subject)
}

// IssueToken signs a session token for userID.
func (e *Engine) IssueToken(userID int64) (string, error) {
	if e == nil || e.jwtManager == nil {
		return "", ErrEngineNotReady
	}
	return e.jwtManager.Issue(userID)
}

func (e *Engine) isCredentialError(err error) bool {
	return errors.Is(err, identity.ErrAuthenticationFailed)
}

// mapOTPError turns gateway errors into the public OTP sentinels. Unknown
// failures, including cancellations, count as the provider being unreachable.
func mapOTPError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, otp.ErrInvalidDestination):
		return ErrOTPInvalidDestination
	case errors.Is(err, otp.ErrRateLimited):
		return ErrOTPRateLimited
	default:
		return fmt.Errorf("%w: %v", ErrOTPUnavailable, err)
	}
}

func mapOTPSendLimiterError(fallback error) func(error) error {
	return func(err error) error {
		if errors.Is(err, limiters.ErrOTPSendRateLimited) {
			return ErrOTPRateLimited
		}
		return fmt.Errorf("%w: %v", fallback, err)
	}
}

func mapLoginLimiterError(err error) error {
	if errors.Is(err, rate.ErrRateLimited) {
		return ErrLoginRateLimited
	}
	return fmt.Errorf("%w: %v", ErrLoginFailed, err)
}
