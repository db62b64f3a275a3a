package query

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(0)
	s.now = func() time.Time { return now }
	defer s.Close()

	set(t, s, "a", []byte("1"), time.Minute)
	set(t, s, "b", []byte("2"), 0)

	v, ok, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	now = now.Add(2 * time.Minute)
	_, ok, err = s.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry should miss")

	_, ok, _ = s.Get(ctx, "b")
	assert.True(t, ok, "entry without ttl never expires")

	require.NoError(t, s.Delete(ctx, "b", "missing"))
	assert.Equal(t, 0, s.Len())
}

func set(t *testing.T, s Store, key string, value []byte, ttl time.Duration) {
	t.Helper()
	ctx := context.Background()
	gen, err := s.Generation(ctx, key)
	require.NoError(t, err)
	written, err := s.SetIfGeneration(ctx, key, gen, value, ttl)
	require.NoError(t, err)
	require.True(t, written)
}

func TestMemoryStoreSweep(t *testing.T) {
	now := time.Now()
	s := NewMemoryStore(0)
	s.now = func() time.Time { return now }
	defer s.Close()

	set(t, s, "old", []byte("x"), time.Second)
	set(t, s, "new", []byte("y"), time.Hour)
	now = now.Add(time.Minute)

	s.sweep()
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreGenerations(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	defer s.Close()
	testStoreGenerations(t, ctx, s, "a")
}

// testStoreGenerations checks the contract every Store shares: invalidation
// bumps the counter and drops the entry, and a write carrying an old
// generation is refused.
func testStoreGenerations(t *testing.T, ctx context.Context, s Store, key string) {
	t.Helper()
	gen, err := s.Generation(ctx, key)
	require.NoError(t, err)

	written, err := s.SetIfGeneration(ctx, key, gen, []byte("v1"), time.Minute)
	require.NoError(t, err)
	require.True(t, written)

	require.NoError(t, s.Invalidate(ctx, key))
	next, err := s.Generation(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "invalidate drops the entry")

	written, err = s.SetIfGeneration(ctx, key, gen, []byte("stale"), time.Minute)
	require.NoError(t, err)
	assert.False(t, written, "write from before the invalidation is refused")
	_, ok, err = s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	written, err = s.SetIfGeneration(ctx, key, next, []byte("v2"), 0)
	require.NoError(t, err)
	assert.True(t, written)
	v, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v2"), v)
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "127.0.0.1:1", "", 0)
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	s, err := NewRedisStore(context.Background(), addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)

	set(t, s, "test:key", []byte("v"), time.Minute)
	v, ok, err := s.Get(ctx, "test:key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, s.Delete(ctx, "test:key"))
	_, ok, err = s.Get(ctx, "test:key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStoreGenerations(t *testing.T) {
	ctx := context.Background()
	s := newTestRedisStore(t)
	key := "test:gen:" + time.Now().Format("150405.000000000")
	t.Cleanup(func() {
		s.client.Del(context.Background(), s.key(key), s.genKey(key))
	})
	testStoreGenerations(t, ctx, s, key)
}
