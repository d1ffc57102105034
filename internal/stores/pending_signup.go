package stores

import (
	"bytes"
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	pendingRecordVersionV1 = 1

	pendingFlagSealed = 1 << 0
)

var (
	ErrPendingNotFound         = errors.New("pending signup not found")
	ErrPendingRedisUnavailable = errors.New("pending signup redis unavailable")
	ErrPendingSealKey          = errors.New("pending signup seal key must be 32 bytes")
	ErrPendingCorrupt          = errors.New("pending signup record corrupt")
)

// PendingSignupRecord is a signup that is waiting for OTP confirmation.
type PendingSignupRecord struct {
	Identifier string
	Email      string
	Phone      string
	Password   string
	Role       string
	ExpiresAt  int64
}

// PendingSignupStore keeps at most one pending signup per identifier key.
type PendingSignupStore struct {
	redis  redis.UniversalClient
	prefix string
	aead   cipher.AEAD
}

// NewPendingSignupStore returns a store under prefix. A non-empty sealKey
// enables XChaCha20-Poly1305 encryption of the stored password.
func NewPendingSignupStore(redisClient redis.UniversalClient, prefix string, sealKey []byte) (*PendingSignupStore, error) {
	if prefix == "" {
		prefix = "fps"
	}
	s := &PendingSignupStore{
		redis:  redisClient,
		prefix: prefix,
	}
	if len(sealKey) > 0 {
		if len(sealKey) != chacha20poly1305.KeySize {
			return nil, ErrPendingSealKey
		}
		aead, err := chacha20poly1305.NewX(sealKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPendingSealKey, err)
		}
		s.aead = aead
	}
	return s, nil
}

func (s *PendingSignupStore) key(identifier string) string {
	return s.prefix + ":" + identifier
}

// Replace deletes any record stored under the record identifier or one of the
// aliases, then stores record. Redis keeps it for the remaining lifetime plus
// keep, so expired records stay readable until the grace period lapses.
func (s *PendingSignupStore) Replace(
	ctx context.Context,
	record *PendingSignupRecord,
	keep time.Duration,
	aliases ...string,
) error {
	encoded, err := s.encode(record)
	if err != nil {
		return err
	}

	ttl := time.Until(time.Unix(record.ExpiresAt, 0)) + keep
	if ttl <= 0 {
		ttl = time.Second
	}

	keys := s.keys(append([]string{record.Identifier}, aliases...))
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.Set(ctx, s.key(record.Identifier), encoded, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPendingRedisUnavailable, err)
	}
	return nil
}

// Get returns the first record found under identifiers, tried in order.
func (s *PendingSignupStore) Get(ctx context.Context, identifiers ...string) (*PendingSignupRecord, error) {
	for _, identifier := range identifiers {
		if identifier == "" {
			continue
		}
		data, err := s.redis.Get(ctx, s.key(identifier)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrPendingRedisUnavailable, err)
		}
		return s.decode(data)
	}
	return nil, ErrPendingNotFound
}

// Delete removes the records stored under identifiers. Missing keys are ignored.
func (s *PendingSignupStore) Delete(ctx context.Context, identifiers ...string) error {
	keys := s.keys(identifiers)
	if len(keys) == 0 {
		return nil
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrPendingRedisUnavailable, err)
	}
	return nil
}

func (s *PendingSignupStore) keys(identifiers []string) []string {
	seen := make(map[string]struct{}, len(identifiers))
	keys := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, s.key(id))
	}
	return keys
}

func (s *PendingSignupStore) encode(record *PendingSignupRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(pendingRecordVersionV1)

	password := []byte(record.Password)
	var flags byte
	if s.aead != nil {
		sealed, err := s.seal(password, record.Identifier)
		if err != nil {
			return nil, err
		}
		password = sealed
		flags |= pendingFlagSealed
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	for _, field := range [][]byte{
		[]byte(record.Identifier),
		[]byte(record.Email),
		[]byte(record.Phone),
		[]byte(record.Role),
		password,
	} {
		if err := writeField(&buf, field); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func (s *PendingSignupStore) decode(data []byte) (*PendingSignupRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, ErrPendingCorrupt
	}
	if version != pendingRecordVersionV1 {
		return nil, errors.New("invalid pending signup record version")
	}
	flags, err := reader.ReadByte()
	if err != nil {
		return nil, ErrPendingCorrupt
	}

	record := &PendingSignupRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, ErrPendingCorrupt
	}

	strs := []*string{&record.Identifier, &record.Email, &record.Phone, &record.Role}
	for _, dst := range strs {
		if *dst, err = readString(reader); err != nil {
			return nil, ErrPendingCorrupt
		}
	}
	password, err := readField(reader)
	if err != nil {
		return nil, ErrPendingCorrupt
	}

	if flags&pendingFlagSealed != 0 {
		if s.aead == nil {
			return nil, fmt.Errorf("%w: sealed record without key", ErrPendingCorrupt)
		}
		password, err = s.open(password, record.Identifier)
		if err != nil {
			return nil, err
		}
	}
	record.Password = string(password)

	return record, nil
}

func (s *PendingSignupStore) seal(plaintext []byte, identifier string) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return s.aead.Seal(nonce, nonce, plaintext, []byte(identifier)), nil
}

func (s *PendingSignupStore) open(sealed []byte, identifier string) ([]byte, error) {
	if len(sealed) < s.aead.NonceSize() {
		return nil, ErrPendingCorrupt
	}
	nonce, ciphertext := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, []byte(identifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPendingCorrupt, err)
	}
	return plaintext, nil
}
