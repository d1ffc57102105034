package fitfob

import (
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

func TestDefaultConfigNeedsSecret(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected default config without secret to be rejected")
	}
	cfg.JWT.PrivateKey = []byte("0123456789abcdef")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config with secret to be valid, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "jwt leeway valid",
			mutate:    func(c *Config) { c.JWT.Leeway = 45 * time.Second },
			wantValid: true,
		},
		{
			name:   "jwt leeway invalid",
			mutate: func(c *Config) { c.JWT.Leeway = 3 * time.Minute },
		},
		{
			name:   "jwt signing invalid",
			mutate: func(c *Config) { c.JWT.SigningMethod = "rs256" },
		},
		{
			name:   "jwt short secret",
			mutate: func(c *Config) { c.JWT.PrivateKey = []byte("short") },
		},
		{
			name:   "ed25519 without public key",
			mutate: func(c *Config) { c.JWT.SigningMethod = "ed25519" },
		},
		{
			name:   "country code not digits",
			mutate: func(c *Config) { c.Identifier.CountryCode = "+91" },
		},
		{
			name:      "other country",
			mutate:    func(c *Config) { c.Identifier.CountryCode = "1" },
			wantValid: true,
		},
		{
			name:   "signup ttl zero",
			mutate: func(c *Config) { c.Signup.TTL = 0 },
		},
		{
			name:   "seal key wrong size",
			mutate: func(c *Config) { c.Signup.SealKey = []byte("too-short") },
		},
		{
			name:      "seal key valid",
			mutate:    func(c *Config) { c.Signup.SealKey = []byte("0123456789abcdef0123456789abcdef") },
			wantValid: true,
		},
		{
			name:   "shared redis prefix",
			mutate: func(c *Config) { c.PasswordReset.RedisPrefix = c.Signup.RedisPrefix },
		},
		{
			name:   "otp window zero",
			mutate: func(c *Config) { c.OTPThrottle.Window = 0 },
		},
		{
			name: "otp throttle disabled",
			mutate: func(c *Config) {
				c.OTPThrottle.EnableIdentifierThrottle = false
				c.OTPThrottle.EnableIPThrottle = false
				c.OTPThrottle.Window = 0
			},
			wantValid: true,
		},
		{
			name:      "mfa algorithm valid",
			mutate:    func(c *Config) { c.MFA.Algorithm = "SHA512" },
			wantValid: true,
		},
		{
			name:   "mfa algorithm invalid",
			mutate: func(c *Config) { c.MFA.Algorithm = "MD5" },
		},
		{
			name:   "mfa digits invalid",
			mutate: func(c *Config) { c.MFA.Digits = 7 },
		},
		{
			name:   "mfa attempts zero",
			mutate: func(c *Config) { c.MFA.MaxFailedAttempts = 0 },
		},
		{
			name:   "audit buffer zero",
			mutate: func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 },
		},
		{
			name:   "login attempts zero",
			mutate: func(c *Config) { c.Security.MaxLoginAttempts = 0 },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config, got nil")
			}
		})
	}
}

func TestConfigValidateProductionRejectsWeakHS256Key(t *testing.T) {
	cfg := testConfig()
	cfg.Security.ProductionMode = true
	cfg.JWT.PrivateKey = []byte("sixteen-byte-key")

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "256 bits") {
		t.Fatalf("expected weak HS256 key rejection, got %v", err)
	}
}

func TestConfigValidateProductionRejectsWeakArgon2(t *testing.T) {
	cfg := testConfig()
	cfg.Security.ProductionMode = true

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "Memory") {
		t.Fatalf("expected weak argon2 rejection, got %v", err)
	}
}

func TestCloneConfigCopiesKeys(t *testing.T) {
	cfg := testConfig()
	cfg.Signup.SealKey = []byte("0123456789abcdef0123456789abcdef")

	out := cloneConfig(cfg)
	cfg.JWT.PrivateKey[0] = 'X'
	cfg.Signup.SealKey[0] = 'X'

	if out.JWT.PrivateKey[0] == 'X' || out.Signup.SealKey[0] == 'X' {
		t.Fatal("expected cloned config to own its key material")
	}
}
