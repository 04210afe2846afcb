package tokencache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFallback is an in-memory double for the Postgres GoogleIDCache.
type fakeFallback struct {
	subs     map[string]string
	expiries map[string]int64
	lookups  int
	stores   int
}

func newFakeFallback() *fakeFallback {
	return &fakeFallback{subs: map[string]string{}, expiries: map[string]int64{}}
}

func (f *fakeFallback) Lookup(_ context.Context, token string) (string, bool, error) {
	f.lookups++
	sub, ok := f.subs[token]
	if !ok || f.expiries[token] <= time.Now().Unix() {
		return "", false, nil
	}
	return sub, true, nil
}

func (f *fakeFallback) Store(_ context.Context, token, sub string, expiry int64) error {
	f.stores++
	f.subs[token] = sub
	f.expiries[token] = expiry
	return nil
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis, *fakeFallback) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	fb := newFakeFallback()
	return New(client, fb), mr, fb
}

func TestCacheStoreWritesThroughToFallbackAndRedis(t *testing.T) {
	c, mr, fb := newTestCache(t)
	expiry := time.Now().Add(time.Hour).Unix()

	require.NoError(t, c.Store(context.Background(), "tok", "sub-1", expiry))

	assert.Equal(t, "sub-1", fb.subs["tok"])
	val, err := mr.Get("kcchat:google_sub:tok")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", val)
}

func TestCacheLookupHitsRedisWithoutTouchingFallback(t *testing.T) {
	c, _, fb := newTestCache(t)
	expiry := time.Now().Add(time.Hour).Unix()
	require.NoError(t, c.Store(context.Background(), "tok", "sub-1", expiry))
	fb.lookups = 0

	sub, ok, err := c.Lookup(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sub-1", sub)
	assert.Zero(t, fb.lookups, "a redis hit must not fall through to the postgres fallback")
}

func TestCacheLookupFallsThroughToPostgresOnRedisMiss(t *testing.T) {
	c, _, fb := newTestCache(t)
	fb.subs["tok"] = "sub-2"
	fb.expiries["tok"] = time.Now().Add(time.Hour).Unix()

	sub, ok, err := c.Lookup(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sub-2", sub)
}

func TestCacheLookupMissesWhenNeitherLayerHasTheToken(t *testing.T) {
	c, _, _ := newTestCache(t)

	_, ok, err := c.Lookup(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheStoreSkipsRedisForAlreadyExpiredEntry(t *testing.T) {
	c, mr, _ := newTestCache(t)
	expired := time.Now().Add(-time.Hour).Unix()

	require.NoError(t, c.Store(context.Background(), "tok", "sub-3", expired))

	_, err := mr.Get("kcchat:google_sub:tok")
	assert.Error(t, err, "an already-expired entry should never be written into redis")
}

func TestCacheWithNilClientUsesFallbackOnly(t *testing.T) {
	fb := newFakeFallback()
	c := New(nil, fb)

	require.NoError(t, c.Store(context.Background(), "tok", "sub-4", time.Now().Add(time.Hour).Unix()))
	sub, ok, err := c.Lookup(context.Background(), "tok")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "sub-4", sub)
	require.NoError(t, c.Close())
}
