package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrOTPSendRateLimited      = errors.New("otp send rate limited")
	ErrOTPSendRedisUnavailable = errors.New("otp send redis unavailable")
)

// OTPSendConfig bounds how many OTP messages one identifier or one client IP
// can trigger per window.
type OTPSendConfig struct {
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	Window                   time.Duration
	MaxPerIdentifier         int
	MaxPerIP                 int
}

// OTPSendLimiter counts OTP dispatches with fixed windows. Signup and
// password reset keep separate namespaces so one cannot exhaust the other.
type OTPSendLimiter struct {
	redis  redis.UniversalClient
	config OTPSendConfig
}

func NewOTPSendLimiter(redisClient redis.UniversalClient, cfg OTPSendConfig) *OTPSendLimiter {
	return &OTPSendLimiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Check consumes one unit of the budget for purpose and identifier, and for ip
// when IP throttling is on.
func (l *OTPSendLimiter) Check(ctx context.Context, purpose, identifier, ip string) error {
	if l == nil {
		return nil
	}
	if l.config.EnableIdentifierThrottle && identifier != "" {
		if err := l.enforceFixedWindow(ctx, identifierKey(purpose, identifier), l.config.MaxPerIdentifier); err != nil {
			return err
		}
	}
	if l.config.EnableIPThrottle && ip != "" {
		if err := l.enforceFixedWindow(ctx, ipKey(purpose, ip), l.config.MaxPerIP); err != nil {
			return err
		}
	}
	return nil
}

// Window returns the configured window length.
func (l *OTPSendLimiter) Window() time.Duration {
	if l == nil {
		return 0
	}
	return l.config.Window
}

func (l *OTPSendLimiter) enforceFixedWindow(ctx context.Context, key string, max int) error {
	if max <= 0 {
		return nil
	}

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOTPSendRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrOTPSendRedisUnavailable, err)
		}
	}

	if count > int64(max) {
		return ErrOTPSendRateLimited
	}

	return nil
}

func identifierKey(purpose, identifier string) string {
	return "fotp:" + purpose + ":id:" + identifier
}

func ipKey(purpose, ip string) string {
	return "fotp:" + purpose + ":ip:" + ip
}
