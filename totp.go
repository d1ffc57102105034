package fitfob

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const totpSecretBytes = 20

type totpManager struct {
	config MFAConfig
	now    func() time.Time
}

func newTOTPManager(cfg MFAConfig) *totpManager {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	return &totpManager{config: cfg, now: time.Now}
}

// GenerateSecret creates a base32 secret and the otpauth URL an
// authenticator app scans to enroll it.
func (m *totpManager) GenerateSecret(accountName string) (string, string, error) {
	if m == nil {
		return "", "", ErrEngineNotReady
	}
	if accountName == "" {
		return "", "", errors.New("totp account name required")
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.config.Issuer,
		AccountName: accountName,
		Period:      uint(m.config.Period),
		SecretSize:  totpSecretBytes,
		Digits:      m.digits(),
		Algorithm:   m.algorithm(),
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// ValidateCode accepts codes within Skew steps either side of now. Any
// whitespace in the code is ignored.
func (m *totpManager) ValidateCode(secret, code string) bool {
	if m == nil || secret == "" {
		return false
	}
	code = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, code)
	if code == "" {
		return false
	}

	ok, err := totp.ValidateCustom(code, secret, m.now().UTC(), m.validateOpts())
	return err == nil && ok
}

func (m *totpManager) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(m.config.Period),
		Skew:      uint(m.config.Skew),
		Digits:    m.digits(),
		Algorithm: m.algorithm(),
	}
}

func (m *totpManager) digits() otp.Digits {
	if m.config.Digits == 8 {
		return otp.DigitsEight
	}
	return otp.DigitsSix
}

func (m *totpManager) algorithm() otp.Algorithm {
	switch strings.ToUpper(m.config.Algorithm) {
	case "SHA256":
		return otp.AlgorithmSHA256
	case "SHA512":
		return otp.AlgorithmSHA512
	default:
		return otp.AlgorithmSHA1
	}
}
