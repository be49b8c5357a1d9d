package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocations(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryRevocations()
	s.nowF = func() time.Time { return now }

	require.NoError(t, s.Revoke(ctx, "a", now.Add(time.Hour)))
	require.NoError(t, s.Revoke(ctx, "a", now.Add(time.Hour)))
	require.NoError(t, s.Revoke(ctx, "stale", now.Add(-time.Second)))

	revoked, err := s.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, _ = s.IsRevoked(ctx, "stale")
	assert.False(t, revoked, "already-expired tokens need no revocation entry")

	now = now.Add(2 * time.Hour)
	revoked, _ = s.IsRevoked(ctx, "a")
	assert.False(t, revoked)
	require.NoError(t, s.Revoke(ctx, "b", now.Add(time.Hour)))
	assert.Len(t, s.revoked, 1, "expired entries are swept on Revoke")
}

func TestRedisRevocations(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()
	s := NewRedisRevocations(rdb)

	require.NoError(t, s.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	assert.True(t, mr.Exists("revoked_jti:jti-1"))
	ttl := mr.TTL("revoked_jti:jti-1")
	assert.True(t, ttl > 59*time.Minute && ttl <= time.Hour, "ttl = %v", ttl)

	revoked, err := s.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = s.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, s.Revoke(ctx, "past", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists("revoked_jti:past"))

	mr.FastForward(2 * time.Hour)
	revoked, _ = s.IsRevoked(ctx, "jti-1")
	assert.False(t, revoked)

	mr.Close()
	_, err = s.IsRevoked(ctx, "jti-1")
	assert.Error(t, err)
}
