package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const resetSessionVersionV1 = 1

var (
	ErrResetSessionNotFound         = errors.New("reset session not found")
	ErrResetSessionRedisUnavailable = errors.New("reset session redis unavailable")
	ErrResetSessionCorrupt          = errors.New("reset session record corrupt")
)

// ResetSessionRecord proves an identifier passed OTP verification for a
// password reset.
type ResetSessionRecord struct {
	Identifier string
	ExpiresAt  int64
}

// ResetSessionStore keeps at most one reset session per identifier key.
type ResetSessionStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewResetSessionStore(redisClient redis.UniversalClient, prefix string) *ResetSessionStore {
	if prefix == "" {
		prefix = "frs"
	}
	return &ResetSessionStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *ResetSessionStore) key(identifier string) string {
	return s.prefix + ":" + identifier
}

// Replace drops any existing session for the identifier and stores record.
func (s *ResetSessionStore) Replace(ctx context.Context, record *ResetSessionRecord, keep time.Duration) error {
	encoded, err := encodeResetSession(record)
	if err != nil {
		return err
	}

	ttl := time.Until(time.Unix(record.ExpiresAt, 0)) + keep
	if ttl <= 0 {
		ttl = time.Second
	}

	key := s.key(record.Identifier)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.Set(ctx, key, encoded, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResetSessionRedisUnavailable, err)
	}
	return nil
}

func (s *ResetSessionStore) Get(ctx context.Context, identifier string) (*ResetSessionRecord, error) {
	data, err := s.redis.Get(ctx, s.key(identifier)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrResetSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrResetSessionRedisUnavailable, err)
	}
	return decodeResetSession(data)
}

func (s *ResetSessionStore) Delete(ctx context.Context, identifier string) error {
	if err := s.redis.Del(ctx, s.key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrResetSessionRedisUnavailable, err)
	}
	return nil
}

func encodeResetSession(record *ResetSessionRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(resetSessionVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	if err := writeField(&buf, []byte(record.Identifier)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeResetSession(data []byte) (*ResetSessionRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, ErrResetSessionCorrupt
	}
	if version != resetSessionVersionV1 {
		return nil, errors.New("invalid reset session version")
	}

	record := &ResetSessionRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, ErrResetSessionCorrupt
	}
	if record.Identifier, err = readString(reader); err != nil {
		return nil, ErrResetSessionCorrupt
	}

	return record, nil
}
