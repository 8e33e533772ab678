//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/pai/internal/interview"
	"github.com/MikeSquared-Agency/pai/internal/store"
)

func TestIntegration_SessionCache(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set, skipping integration test")
	}
	ctx := context.Background()
	rdb, err := Connect(ctx, redisURL)
	require.NoError(t, err)

	mem := store.NewMemory()
	s := NewSessionStore(mem, rdb, time.Minute, discardLogger())
	defer s.Close()

	sess := &interview.Session{SessionID: "cache_it_s1", ParticipantName: "Ann", ExchangeCount: 1}
	require.NoError(t, s.PutSession(ctx, sess))

	ttl, err := rdb.TTL(ctx, sessionKey(sess.SessionID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	// A hit must not need the store: overwrite the store copy behind the cache.
	require.NoError(t, mem.PutSession(ctx, &interview.Session{SessionID: "cache_it_s1", ExchangeCount: 7}))
	got, err := s.GetSession(ctx, "cache_it_s1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.ExchangeCount)

	require.NoError(t, rdb.Del(ctx, sessionKey("cache_it_s1")).Err())
}
