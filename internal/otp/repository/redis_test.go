package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "identity-gateway/backend/internal/redis"
)

func newTestRedisStore(t *testing.T, retention time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redisclient.NewClient(redisclient.Config{
		Addr:         mr.Addr(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	t.Cleanup(func() {
		require.NoError(t, client.Close())
	})
	return NewRedisStore(client.RDB, retention), mr
}

func TestRedisStore_KeyLayout(t *testing.T) {
	// Arrange
	s, mr := newTestRedisStore(t, time.Hour)
	c := newChallenge("+15550100001")

	// Act
	require.NoError(t, s.Put(context.Background(), c))

	// Assert
	assert.True(t, mr.Exists("otp:+15550100001"))
	assert.Equal(t, c.ID, mr.HGet("otp:+15550100001", "id"))
	assert.Equal(t, "0", mr.HGet("otp:+15550100001", "attempts"))
}

func TestRedisStore_KeyOutlivesExpiryByRetention(t *testing.T) {
	s, mr := newTestRedisStore(t, time.Hour)
	c := newChallenge("+15550100002")
	require.NoError(t, s.Put(context.Background(), c))

	ttl := mr.TTL("otp:+15550100002")

	assert.Greater(t, ttl, time.Hour, "key must outlive the challenge expiry")
	assert.LessOrEqual(t, ttl, time.Hour+5*time.Minute+time.Second)
}

func TestRedisStore_ExpiredChallengeStillReadable(t *testing.T) {
	s, _ := newTestRedisStore(t, time.Hour)
	c := newChallenge("+15550100003")
	c.ExpiresAt = time.Now().Add(-time.Minute).UTC()
	require.NoError(t, s.Put(context.Background(), c))

	got, err := s.Get(context.Background(), c.Phone)

	require.NoError(t, err)
	require.NotNil(t, got, "expiry is decided by the service, not by key eviction")
	assert.True(t, got.Expired(time.Now()))
}

func TestRedisStore_CorruptHash(t *testing.T) {
	s, mr := newTestRedisStore(t, time.Hour)
	mr.HSet("otp:+15550100004", "id", "x", "attempts", "not-a-number")

	_, err := s.Get(context.Background(), "+15550100004")

	assert.Error(t, err)
}

func TestRedisStore_ServerDown(t *testing.T) {
	s, mr := newTestRedisStore(t, time.Hour)
	mr.Close()
	ctx := context.Background()

	_, err := s.Get(ctx, "+15550100005")
	assert.Error(t, err)

	_, err = s.IncrementAttempts(ctx, "+15550100005", "id")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound, "transport failures must not look like a missing challenge")
}
