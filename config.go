package fitfob

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
)

// Config holds every engine tunable. Start from DefaultConfig and override
// what differs; Build validates the result.
type Config struct {
	JWT           JWTConfig
	Identifier    IdentifierConfig
	Signup        SignupConfig
	PasswordReset PasswordResetConfig
	OTPThrottle   OTPThrottleConfig
	MFA           MFAConfig
	Password      PasswordConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
	Security      SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures the session token returned by login and registration.
type JWTConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte // HS256 secret or Ed25519 private key
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
FLOW CONFIG
====================================
*/

// IdentifierConfig selects the phone numbering plan.
type IdentifierConfig struct {
	CountryCode    string
	DomesticDigits int
}

// SignupConfig controls pending registrations.
type SignupConfig struct {
	TTL time.Duration
	// Retention keeps expired records readable so a late verification gets
	// "expired" instead of "not found".
	Retention        time.Duration
	DefaultRole      string
	PhoneEmailDomain string
	RedisPrefix      string
	// SealKey, when set, encrypts the pending password at rest. 32 bytes.
	SealKey []byte
}

type PasswordResetConfig struct {
	SessionTTL        time.Duration
	Retention         time.Duration
	MinPasswordLength int
	RedisPrefix       string
}

// OTPThrottleConfig bounds OTP sends for registration and password reset.
type OTPThrottleConfig struct {
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	Window                   time.Duration
	MaxPerIdentifier         int
	MaxPerIP                 int
}

// MFAConfig configures admin TOTP.
type MFAConfig struct {
	AdminRole         string
	Issuer            string
	Digits            int
	Period            int
	Skew              int
	Algorithm         string
	MaxFailedAttempts int
}

type PasswordConfig struct {
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig holds the login failure throttle and production guards.
type SecurityConfig struct {
	ProductionMode        bool
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// DefaultConfig returns the configuration the service runs with unless
// overridden. The JWT secret has no default.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			TTL:           30 * 24 * time.Hour,
			SigningMethod: "hs256",
			Leeway:        30 * time.Second,
		},
		Identifier: IdentifierConfig{
			CountryCode:    "91",
			DomesticDigits: 10,
		},
		Signup: SignupConfig{
			TTL:              10 * time.Minute,
			Retention:        10 * time.Minute,
			DefaultRole:      "Client",
			PhoneEmailDomain: "phone.user",
			RedisPrefix:      "fps",
		},
		PasswordReset: PasswordResetConfig{
			SessionTTL:        10 * time.Minute,
			Retention:         10 * time.Minute,
			MinPasswordLength: 6,
			RedisPrefix:       "frs",
		},
		OTPThrottle: OTPThrottleConfig{
			EnableIdentifierThrottle: true,
			EnableIPThrottle:         true,
			Window:                   15 * time.Minute,
			MaxPerIdentifier:         5,
			MaxPerIP:                 20,
		},
		MFA: MFAConfig{
			AdminRole:         "Admin",
			Issuer:            "FITFOB",
			Digits:            6,
			Period:            30,
			Skew:              3,
			Algorithm:         "SHA1",
			MaxFailedAttempts: 5,
		},
		Password: PasswordConfig{
			Memory:           65536,
			Time:             3,
			Parallelism:      2,
			SaltLength:       16,
			KeyLength:        32,
			MaxPasswordBytes: 1024,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode:        false,
			EnableLoginThrottle:   true,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.Signup.SealKey = cloneBytes(cfg.Signup.SealKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.TTL <= 0 {
		return errors.New("JWT TTL must be > 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.PrivateKey) < 16 {
			return errors.New("hs256 requires a secret of at least 16 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PrivateKey and PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	// Identifier
	if c.Identifier.CountryCode == "" || strings.Trim(c.Identifier.CountryCode, "0123456789") != "" {
		return errors.New("Identifier CountryCode must be digits")
	}
	if c.Identifier.DomesticDigits < 4 || c.Identifier.DomesticDigits > 14 {
		return errors.New("Identifier DomesticDigits must be between 4 and 14")
	}

	// Signup
	if c.Signup.TTL <= 0 {
		return errors.New("Signup TTL must be > 0")
	}
	if c.Signup.Retention < 0 {
		return errors.New("Signup Retention must be >= 0")
	}
	if c.Signup.DefaultRole == "" {
		return errors.New("Signup DefaultRole is required")
	}
	if c.Signup.PhoneEmailDomain == "" {
		return errors.New("Signup PhoneEmailDomain is required")
	}
	if len(c.Signup.SealKey) > 0 && len(c.Signup.SealKey) != chacha20poly1305.KeySize {
		return errors.New("Signup SealKey must be 32 bytes")
	}

	// Password reset
	if c.PasswordReset.SessionTTL <= 0 {
		return errors.New("PasswordReset SessionTTL must be > 0")
	}
	if c.PasswordReset.Retention < 0 {
		return errors.New("PasswordReset Retention must be >= 0")
	}
	if c.PasswordReset.MinPasswordLength < 1 {
		return errors.New("PasswordReset MinPasswordLength must be >= 1")
	}
	if c.Signup.RedisPrefix != "" && c.Signup.RedisPrefix == c.PasswordReset.RedisPrefix {
		return errors.New("Signup and PasswordReset RedisPrefix must differ")
	}

	// OTP throttle
	if c.OTPThrottle.EnableIdentifierThrottle || c.OTPThrottle.EnableIPThrottle {
		if c.OTPThrottle.Window <= 0 {
			return errors.New("OTPThrottle Window must be > 0")
		}
	}
	if c.OTPThrottle.EnableIdentifierThrottle && c.OTPThrottle.MaxPerIdentifier <= 0 {
		return errors.New("OTPThrottle MaxPerIdentifier must be > 0")
	}
	if c.OTPThrottle.EnableIPThrottle && c.OTPThrottle.MaxPerIP <= 0 {
		return errors.New("OTPThrottle MaxPerIP must be > 0")
	}

	// MFA
	if c.MFA.AdminRole == "" {
		return errors.New("MFA AdminRole is required")
	}
	if c.MFA.Issuer == "" {
		return errors.New("MFA Issuer is required")
	}
	if c.MFA.Digits != 6 && c.MFA.Digits != 8 {
		return errors.New("MFA Digits must be 6 or 8")
	}
	if c.MFA.Period < 15 {
		return errors.New("MFA Period must be >= 15 seconds")
	}
	if c.MFA.Skew < 0 || c.MFA.Skew > 10 {
		return errors.New("MFA Skew must be between 0 and 10")
	}
	if c.MFA.MaxFailedAttempts <= 0 {
		return errors.New("MFA MaxFailedAttempts must be > 0")
	}
	switch strings.ToUpper(c.MFA.Algorithm) {
	case "", "SHA1", "SHA256", "SHA512":
		// valid (empty treated as SHA1)
	default:
		return errors.New("MFA Algorithm must be SHA1, SHA256, or SHA512")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("LoginCooldownDuration must be > 0")
		}
	}

	if c.Security.ProductionMode {
		if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
			return errors.New("ProductionMode requires hs256 key length >= 256 bits")
		}
		if c.Password.Memory < 64*1024 {
			return errors.New("ProductionMode requires Password Memory >= 65536 KB")
		}
		if c.Password.Time < 2 {
			return errors.New("ProductionMode requires Password Time >= 2")
		}
		if c.Password.KeyLength < 32 {
			return errors.New("ProductionMode requires Password KeyLength >= 32")
		}
		if !c.OTPThrottle.EnableIdentifierThrottle {
			return errors.New("ProductionMode requires the OTP identifier throttle")
		}
		if !c.Security.EnableLoginThrottle {
			return errors.New("ProductionMode requires the login throttle")
		}
	}

	return nil
}
