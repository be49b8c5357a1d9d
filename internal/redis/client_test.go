package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iredis "identity-gateway/backend/internal/redis"
)

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client := iredis.NewClient(iredis.Config{
		Addr:         mr.Addr(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	t.Cleanup(func() {
		require.NoError(t, client.Close())
	})

	require.NotNil(t, client.RDB, "client.RDB must be non-nil")
	var _ iredis.Cmdable = client.RDB

	require.NoError(t, client.Ping(context.Background()))
}

func TestClient_PingFailsWhenServerGone(t *testing.T) {
	mr := miniredis.RunT(t)
	client := iredis.NewClient(iredis.Config{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	mr.Close()

	assert.Error(t, client.Ping(context.Background()))
}
