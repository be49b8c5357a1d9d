package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	redisclient "identity-gateway/backend/internal/redis"
)

const revokedKeyPrefix = "revoked_jti:"

// RedisRevocations stores each revoked ID as a key that expires with the token.
type RedisRevocations struct {
	cmd  redisclient.Cmdable
	nowF func() time.Time
}

// NewRedisRevocations returns a revocation store backed by cmd.
func NewRedisRevocations(cmd redisclient.Cmdable) *RedisRevocations {
	return &RedisRevocations{cmd: cmd, nowF: time.Now}
}

func (s *RedisRevocations) Revoke(ctx context.Context, id string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.nowF())
	if ttl <= 0 {
		return nil
	}
	if err := s.cmd.Set(ctx, revokedKeyPrefix+id, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *RedisRevocations) IsRevoked(ctx context.Context, id string) (bool, error) {
	err := s.cmd.Get(ctx, revokedKeyPrefix+id).Err()
	if errors.Is(err, redisclient.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check session revocation: %w", err)
	}
	return true, nil
}

var _ RevocationStore = (*RedisRevocations)(nil)
