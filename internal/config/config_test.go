package config

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("AWS_REGION", "ap-south-1")
	t.Setenv("COGNITO_USER_POOL_ID", "ap-south-1_pool")
	t.Setenv("COGNITO_CLIENT_ID", "client")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC1")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_VERIFY_SERVICE_SID", "VA1")
}

func TestParseDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.HTTPAddr != ":1337" || cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected server defaults: %+v", cfg)
	}
	if cfg.CognitoRegion != "ap-south-1" {
		t.Fatalf("COGNITO_REGION must fall back to AWS_REGION, got %q", cfg.CognitoRegion)
	}
	if cfg.DatabaseURL != "" || cfg.PhoneCountryCode != "91" || cfg.JWTTTL != 720*time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestParseOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("COGNITO_REGION", "us-east-1")
	t.Setenv("CORS_ORIGINS", "https://app.fitfob.in,https://admin.fitfob.in")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("JWT_TTL", "1h")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.CognitoRegion != "us-east-1" {
		t.Fatalf("explicit COGNITO_REGION must win, got %q", cfg.CognitoRegion)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://admin.fitfob.in" {
		t.Fatalf("unexpected origins: %v", cfg.CORSOrigins)
	}
	if cfg.RedisDB != 3 || cfg.JWTTTL != time.Hour {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}

func TestParseMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")

	if _, err := Parse(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestEngineConfig(t *testing.T) {
	setRequired(t)
	t.Setenv("SIGNUP_SEAL_KEY", base64.StdEncoding.EncodeToString(make([]byte, 32)))

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	ec, err := cfg.Engine()
	if err != nil {
		t.Fatalf("Engine failed: %v", err)
	}
	if string(ec.JWT.PrivateKey) != "0123456789abcdef0123456789abcdef" || len(ec.Signup.SealKey) != 32 {
		t.Fatalf("unexpected engine config: %+v", ec.JWT)
	}
	if !ec.Metrics.Enabled || !ec.Audit.Enabled {
		t.Fatal("metrics and audit default on")
	}

	cfg.SignupSealKey = "not base64!"
	if _, err := cfg.Engine(); err == nil {
		t.Fatal("expected seal key decode error")
	}
}
