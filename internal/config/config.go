// Package config loads the server configuration from the environment, with
// an optional .env file for local runs.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	fitfob "github.com/gautamxyzstudio/FITFOB-BACKEND"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/identity"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/internal/logging"
	"github.com/gautamxyzstudio/FITFOB-BACKEND/otp"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":1337"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// DatabaseURL selects PostgreSQL; empty runs on in-memory stores.
	DatabaseURL   string `env:"DATABASE_URL"`
	SnowflakeNode int64  `env:"SNOWFLAKE_NODE" envDefault:"1"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"720h"`

	TwilioAccountSID       string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken        string `env:"TWILIO_AUTH_TOKEN"`
	TwilioVerifyServiceSID string `env:"TWILIO_VERIFY_SERVICE_SID"`

	CognitoRegion       string `env:"COGNITO_REGION"`
	AWSRegion           string `env:"AWS_REGION"`
	CognitoUserPoolID   string `env:"COGNITO_USER_POOL_ID"`
	CognitoClientID     string `env:"COGNITO_CLIENT_ID"`
	CognitoClientSecret string `env:"COGNITO_CLIENT_SECRET"`
	AWSAccessKeyID      string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey  string `env:"AWS_SECRET_ACCESS_KEY"`

	PhoneCountryCode string `env:"PHONE_COUNTRY_CODE" envDefault:"91"`
	// SignupSealKey is base64 of 32 bytes. Empty stores pending passwords as is.
	SignupSealKey string `env:"SIGNUP_SEAL_KEY"`

	ProductionMode bool `env:"PRODUCTION_MODE"`
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	AuditEnabled   bool `env:"AUDIT_ENABLED" envDefault:"true"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogDev   bool   `env:"LOG_DEV"`
}

// Load reads .env when present and parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the environment only.
func Parse() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.CognitoRegion == "" {
		cfg.CognitoRegion = cfg.AWSRegion
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("missing JWT_SECRET environment variable")
	}
	if c.CognitoRegion == "" {
		return errors.New("missing COGNITO_REGION or AWS_REGION environment variable")
	}
	if c.CognitoUserPoolID == "" || c.CognitoClientID == "" {
		return errors.New("missing COGNITO_USER_POOL_ID or COGNITO_CLIENT_ID environment variable")
	}
	if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioVerifyServiceSID == "" {
		return errors.New("missing Twilio Verify environment variables")
	}
	if c.SnowflakeNode < 0 || c.SnowflakeNode > 1023 {
		return errors.New("SNOWFLAKE_NODE must be between 0 and 1023")
	}
	return nil
}

// Engine maps the process settings onto the engine configuration.
func (c Config) Engine() (fitfob.Config, error) {
	cfg := fitfob.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(c.JWTSecret)
	cfg.JWT.TTL = c.JWTTTL
	cfg.Identifier.CountryCode = c.PhoneCountryCode
	cfg.Security.ProductionMode = c.ProductionMode
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.MetricsEnabled
	cfg.Audit.Enabled = c.AuditEnabled

	if c.SignupSealKey != "" {
		key, err := base64.StdEncoding.DecodeString(c.SignupSealKey)
		if err != nil {
			return fitfob.Config{}, fmt.Errorf("decode SIGNUP_SEAL_KEY: %w", err)
		}
		cfg.Signup.SealKey = key
	}

	if err := cfg.Validate(); err != nil {
		return fitfob.Config{}, err
	}
	return cfg, nil
}

func (c Config) Cognito() identity.Config {
	return identity.Config{
		Region:          c.CognitoRegion,
		UserPoolID:      c.CognitoUserPoolID,
		ClientID:        c.CognitoClientID,
		ClientSecret:    c.CognitoClientSecret,
		AccessKeyID:     c.AWSAccessKeyID,
		SecretAccessKey: c.AWSSecretAccessKey,
	}
}

func (c Config) Twilio() otp.Config {
	return otp.Config{
		AccountSID: c.TwilioAccountSID,
		AuthToken:  c.TwilioAuthToken,
		ServiceSID: c.TwilioVerifyServiceSID,
	}
}

func (c Config) Logging() logging.Config {
	return logging.Config{Level: c.LogLevel, Dev: c.LogDev}
}
