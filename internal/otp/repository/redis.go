package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"identity-gateway/backend/internal/otp/domain"
	redisclient "identity-gateway/backend/internal/redis"
)

var tracer = otel.Tracer("otp/repository")

const (
	redisKeyPrefix = "otp:"

	// DefaultRedisRetention keeps a challenge key this long past its expiry so the
	// service still observes "expired" before the key disappears.
	DefaultRedisRetention = 24 * time.Hour
)

// incrementScript bumps attempts only while the stored challenge is still ARGV[1].
// Returns -1 when the key is gone or holds a different challenge.
const incrementScript = `
if redis.call('HGET', KEYS[1], 'id') ~= ARGV[1] then
  return -1
end
redis.call('HSET', KEYS[1], 'updated_at', ARGV[2])
return redis.call('HINCRBY', KEYS[1], 'attempts', 1)
`

// deleteIfMatchScript deletes the key only while it still holds challenge ARGV[1].
const deleteIfMatchScript = `
if redis.call('HGET', KEYS[1], 'id') == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`

// RedisStore keeps each challenge in a hash at otp:<phone>. Conditional
// operations run as Lua scripts, which Redis executes atomically.
type RedisStore struct {
	cmd       redisclient.Cmdable
	retention time.Duration
	nowF      func() time.Time
}

// NewRedisStore returns a challenge store backed by cmd. retention <= 0 selects DefaultRedisRetention.
func NewRedisStore(cmd redisclient.Cmdable, retention time.Duration) *RedisStore {
	if retention <= 0 {
		retention = DefaultRedisRetention
	}
	return &RedisStore{cmd: cmd, retention: retention, nowF: time.Now}
}

func redisKey(phone string) string { return redisKeyPrefix + phone }

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", op),
	)
	return ctx, span
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (s *RedisStore) Put(ctx context.Context, c *domain.Challenge) error {
	ctx, span := startSpan(ctx, "redis.otp.put", "MULTI")
	defer span.End()

	key := redisKey(c.Phone)
	_, err := s.cmd.TxPipelined(ctx, func(pipe redisclient.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"id", c.ID,
			"phone", c.Phone,
			"code_hash", c.CodeHash,
			"expires_at", formatTime(c.ExpiresAt),
			"attempts", c.Attempts,
			"created_at", formatTime(c.CreatedAt),
			"updated_at", formatTime(c.UpdatedAt),
		)
		pipe.PExpireAt(ctx, key, c.ExpiresAt.Add(s.retention))
		return nil
	})
	if err != nil {
		failSpan(span, err)
		return fmt.Errorf("otp store put: %w", err)
	}
	return nil
}

// Get returns the challenge for phone, or nil if not found.
func (s *RedisStore) Get(ctx context.Context, phone string) (*domain.Challenge, error) {
	ctx, span := startSpan(ctx, "redis.otp.get", "HGETALL")
	defer span.End()

	fields, err := s.cmd.HGetAll(ctx, redisKey(phone)).Result()
	if err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("otp store get: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	c, err := challengeFromHash(fields)
	if err != nil {
		failSpan(span, err)
		return nil, fmt.Errorf("otp store get: %w", err)
	}
	return c, nil
}

func (s *RedisStore) IncrementAttempts(ctx context.Context, phone, id string) (int, error) {
	ctx, span := startSpan(ctx, "redis.otp.increment_attempts", "EVAL")
	defer span.End()

	n, err := s.cmd.Eval(ctx, incrementScript, []string{redisKey(phone)}, id, formatTime(s.nowF())).Int64()
	if err != nil {
		failSpan(span, err)
		return 0, fmt.Errorf("otp store increment attempts: %w", err)
	}
	if n < 0 {
		return 0, ErrNotFound
	}
	return int(n), nil
}

func (s *RedisStore) Delete(ctx context.Context, phone string) error {
	ctx, span := startSpan(ctx, "redis.otp.delete", "DEL")
	defer span.End()

	if err := s.cmd.Del(ctx, redisKey(phone)).Err(); err != nil {
		failSpan(span, err)
		return fmt.Errorf("otp store delete: %w", err)
	}
	return nil
}

func (s *RedisStore) DeleteIfMatch(ctx context.Context, phone, id string) (bool, error) {
	ctx, span := startSpan(ctx, "redis.otp.delete_if_match", "EVAL")
	defer span.End()

	n, err := s.cmd.Eval(ctx, deleteIfMatchScript, []string{redisKey(phone)}, id).Int64()
	if err != nil {
		failSpan(span, err)
		return false, fmt.Errorf("otp store delete if match: %w", err)
	}
	return n == 1, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func challengeFromHash(fields map[string]string) (*domain.Challenge, error) {
	attempts, err := strconv.Atoi(fields["attempts"])
	if err != nil {
		return nil, fmt.Errorf("attempts: %w", err)
	}
	c := &domain.Challenge{
		ID:       fields["id"],
		Phone:    fields["phone"],
		CodeHash: fields["code_hash"],
		Attempts: attempts,
	}
	for name, dst := range map[string]*time.Time{
		"expires_at": &c.ExpiresAt,
		"created_at": &c.CreatedAt,
		"updated_at": &c.UpdatedAt,
	} {
		t, err := time.Parse(time.RFC3339Nano, fields[name])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		*dst = t
	}
	return c, nil
}

var _ Store = (*RedisStore)(nil)
