package password

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// DefaultMaxPasswordBytes caps input length when Config.MaxPasswordBytes is zero.
const DefaultMaxPasswordBytes = 1024

var (
	// ErrEmptyPassword is returned by [Argon2.Hash] for an empty password.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrPasswordTooLong is returned for input above the configured maximum.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrWeakParameters is returned by [NewArgon2] for costs below the floor.
	ErrWeakParameters = errors.New("password: argon2 parameters below minimum")
)

// Floors applied by [NewArgon2].
const (
	MinMemoryKB   uint32 = 8 * 1024
	MinSaltLength uint32 = 16
	MinKeyLength  uint32 = 16
)

// Config holds the argon2id cost parameters.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MaxPasswordBytes int
}

// Argon2 produces the hash stored in the local users table when an account
// is created or its password is reset. Sign-in is checked by the identity
// provider, so the mirror is written but never compared.
type Argon2 struct {
	config Config
	rand   io.Reader
}

// NewArgon2 validates cfg against the minimum cost parameters.
func NewArgon2(cfg Config) (*Argon2, error) {
	switch {
	case cfg.Memory < MinMemoryKB:
		return nil, fmt.Errorf("%w: memory %d KB < %d KB", ErrWeakParameters, cfg.Memory, MinMemoryKB)
	case cfg.Time == 0:
		return nil, fmt.Errorf("%w: time must be >= 1", ErrWeakParameters)
	case cfg.Parallelism == 0:
		return nil, fmt.Errorf("%w: parallelism must be >= 1", ErrWeakParameters)
	case cfg.SaltLength < MinSaltLength:
		return nil, fmt.Errorf("%w: salt length %d < %d", ErrWeakParameters, cfg.SaltLength, MinSaltLength)
	case cfg.KeyLength < MinKeyLength:
		return nil, fmt.Errorf("%w: key length %d < %d", ErrWeakParameters, cfg.KeyLength, MinKeyLength)
	}
	if cfg.MaxPasswordBytes <= 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg, rand: rand.Reader}, nil
}

// Hash returns password as a PHC string. Length policy belongs to the
// caller; only empty and oversized input is refused here.
func (a *Argon2) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > a.config.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(a.rand, salt); err != nil {
		return "", fmt.Errorf("password salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		a.config.Memory, a.config.Time, a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}
