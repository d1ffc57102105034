package fitfob

import (
	"errors"

	"github.com/gautamxyzstudio/FITFOB-BACKEND/identifier"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/flows"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/limiters"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/rate"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/stores"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/jwt"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/password"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder assembles an [Engine]. Configure it during startup, call Build
// once, and discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users    UserStore
	profiles ProfileStore
	otp      OTPGateway
	idp      IdentityProvider
	verifier ProviderTokenVerifier

	logger    *zap.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. The byte slices are copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing pending signups, reset sessions and the
// throttles. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserStore sets the local user mirror. Required.
func (b *Builder) WithUserStore(users UserStore) *Builder {
	b.users = users
	return b
}

// WithProfileStore sets the onboarding profile lookup used by the
// registration duplicate check. Optional.
func (b *Builder) WithProfileStore(profiles ProfileStore) *Builder {
	b.profiles = profiles
	return b
}

// WithOTPGateway sets the OTP provider. Required.
func (b *Builder) WithOTPGateway(gateway OTPGateway) *Builder {
	b.otp = gateway
	return b
}

// WithIdentityProvider sets the external account system. Required.
func (b *Builder) WithIdentityProvider(idp IdentityProvider) *Builder {
	b.idp = idp
	return b
}

// WithProviderVerifier enables bearer tokens minted by the identity
// provider. Without it only locally issued tokens authenticate.
func (b *Builder) WithProviderVerifier(verifier ProviderTokenVerifier) *Builder {
	b.verifier = verifier
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder can be
// built only once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if b.otp == nil {
		return nil, errors.New("otp gateway required")
	}
	if b.idp == nil {
		return nil, errors.New("identity provider required")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{
		config:   cfg,
		logger:   logger,
		users:    b.users,
		profiles: b.profiles,
		otp:      b.otp,
		idp:      b.idp,
		verifier: b.verifier,
		normalizer: identifier.Normalizer{
			CountryCode:    cfg.Identifier.CountryCode,
			DomesticDigits: cfg.Identifier.DomesticDigits,
		},
		newTempToken: uuid.NewString,
	}

	// -------- REDIS STATE --------
	pending, err := stores.NewPendingSignupStore(b.redis, cfg.Signup.RedisPrefix, cfg.Signup.SealKey)
	if err != nil {
		return nil, err
	}
	engine.pending = pending
	engine.resets = stores.NewResetSessionStore(b.redis, cfg.PasswordReset.RedisPrefix)

	engine.otpLimiter = limiters.NewOTPSendLimiter(b.redis, limiters.OTPSendConfig{
		EnableIdentifierThrottle: cfg.OTPThrottle.EnableIdentifierThrottle,
		EnableIPThrottle:         cfg.OTPThrottle.EnableIPThrottle,
		Window:                   cfg.OTPThrottle.Window,
		MaxPerIdentifier:         cfg.OTPThrottle.MaxPerIdentifier,
		MaxPerIP:                 cfg.OTPThrottle.MaxPerIP,
	})
	if cfg.Security.EnableLoginThrottle {
		engine.loginLimiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}

	// -------- OBSERVABILITY --------
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink, logger)
	engine.metrics = NewMetrics(cfg.Metrics)

	// -------- CREDENTIALS --------
	engine.totp = newTOTPManager(cfg.MFA)

	ph, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph

	jm, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.JWT.TTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.jwtManager = jm

	engine.flows = flows.New(engine.flowDeps())

	b.built = true

	return engine, nil
}
