package fitfob

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func fixedTOTP(cfg MFAConfig, ts int64) *totpManager {
	m := newTOTPManager(cfg)
	m.now = func() time.Time { return time.Unix(ts, 0) }
	return m
}

func TestTOTPRFCVectors(t *testing.T) {
	suites := []struct {
		algorithm string
		secret    string
		cases     map[int64]string
	}{
		{
			algorithm: "SHA1",
			secret:    "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ",
			cases: map[int64]string{
				59:          "94287082",
				1111111109:  "07081804",
				1234567890:  "89005924",
				20000000000: "65353130",
			},
		},
		{
			algorithm: "SHA256",
			secret:    "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQGEZA",
			cases: map[int64]string{
				59:         "46119246",
				1111111111: "67062674",
				2000000000: "90698825",
			},
		},
		{
			algorithm: "SHA512",
			secret:    "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQGEZDGNA",
			cases: map[int64]string{
				59:         "90693936",
				1234567890: "93441116",
			},
		},
	}

	for _, suite := range suites {
		cfg := MFAConfig{Issuer: "FITFOB", Digits: 8, Period: 30, Skew: 0, Algorithm: suite.algorithm}
		for ts, code := range suite.cases {
			if !fixedTOTP(cfg, ts).ValidateCode(suite.secret, code) {
				t.Fatalf("%s vector failed at t=%d", suite.algorithm, ts)
			}
		}
	}
}

func TestTOTPDriftWindow(t *testing.T) {
	cfg := defaultConfig().MFA
	now := time.Unix(1234567890, 0)
	m := fixedTOTP(cfg, now.Unix())

	secret, _, err := m.GenerateSecret("admin@fitfob.in")
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}

	for _, step := range []int{-3, 3} {
		code, err := totp.GenerateCodeCustom(secret, now.Add(time.Duration(step)*30*time.Second), m.validateOpts())
		if err != nil {
			t.Fatalf("GenerateCodeCustom failed: %v", err)
		}
		if !m.ValidateCode(secret, code) {
			t.Fatalf("expected code %d steps away to be accepted", step)
		}
	}

	code, err := totp.GenerateCodeCustom(secret, now.Add(4*30*time.Second), m.validateOpts())
	if err != nil {
		t.Fatalf("GenerateCodeCustom failed: %v", err)
	}
	if m.ValidateCode(secret, code) {
		t.Fatal("expected code 4 steps away to be rejected")
	}
}

func TestTOTPStripsWhitespace(t *testing.T) {
	cfg := defaultConfig().MFA
	now := time.Unix(1700000000, 0)
	m := fixedTOTP(cfg, now.Unix())

	secret, _, err := m.GenerateSecret("admin@fitfob.in")
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	code, err := totp.GenerateCodeCustom(secret, now, m.validateOpts())
	if err != nil {
		t.Fatalf("GenerateCodeCustom failed: %v", err)
	}

	spaced := " " + code[:3] + " " + code[3:] + "\n"
	if !m.ValidateCode(secret, spaced) {
		t.Fatal("expected code with whitespace to be accepted")
	}
}

func TestTOTPRejectsMalformed(t *testing.T) {
	m := fixedTOTP(defaultConfig().MFA, 1700000000)
	secret := "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

	for _, code := range []string{"", "   ", "12345", "1234567", "abcdef"} {
		if m.ValidateCode(secret, code) {
			t.Fatalf("expected %q to be rejected", code)
		}
	}
	if m.ValidateCode("", "123456") {
		t.Fatal("expected empty secret to be rejected")
	}
}

func TestTOTPProvisionURL(t *testing.T) {
	m := newTOTPManager(defaultConfig().MFA)
	secret, url, err := m.GenerateSecret("admin@fitfob.in")
	if err != nil {
		t.Fatalf("GenerateSecret failed: %v", err)
	}
	if secret == "" {
		t.Fatal("expected secret")
	}
	if !strings.HasPrefix(url, "otpauth://totp/FITFOB:admin@fitfob.in") {
		t.Fatalf("unexpected otpauth url %q", url)
	}
	if !strings.Contains(url, "secret="+secret) {
		t.Fatalf("expected url to carry the secret, got %q", url)
	}
	if _, _, err := m.GenerateSecret(""); err == nil {
		t.Fatal("expected empty account name to be rejected")
	}
}
