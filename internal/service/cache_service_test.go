package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursescout/coursescout-api/pkg/cache"
	appErrors "github.com/coursescout/coursescout-api/pkg/errors"
)

type fakeRemoteCache struct {
	entries    map[string][]byte
	getErr     error
	setErr     error
	setCalls   int
	deleteErr  error
	lastDelete string
}

func newFakeRemoteCache() *fakeRemoteCache {
	return &fakeRemoteCache{entries: map[string][]byte{}}
}

func (f *fakeRemoteCache) GetRaw(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	payload, ok := f.entries[key]
	if !ok {
		return nil, appErrors.ErrCacheMiss
	}
	return payload, nil
}

func (f *fakeRemoteCache) GetMany(_ context.Context, keys []string) (map[string][]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	found := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if payload, ok := f.entries[key]; ok {
			found[key] = payload
		}
	}
	return found, nil
}

func (f *fakeRemoteCache) SetRaw(_ context.Context, key string, payload []byte, _ time.Duration) error {
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.entries[key] = payload
	return nil
}

func (f *fakeRemoteCache) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	f.lastDelete = pattern
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	deleted := len(f.entries)
	f.entries = map[string][]byte{}
	return deleted, nil
}

func TestCacheServiceMemoryHitSkipsRedis(t *testing.T) {
	remote := newFakeRemoteCache()
	svc := NewCacheService(cache.NewMemory(), remote, time.Minute, nil, nil)

	require.NoError(t, svc.Set(context.Background(), "k", []string{"a"}, time.Minute))

	var out []string
	tier, ok := svc.Get(context.Background(), "k", &out)
	require.True(t, ok)
	assert.Equal(t, TierMemory, tier)
	assert.Equal(t, []string{"a"}, out)
}

func TestCacheServiceRedisHitRefillsMemory(t *testing.T) {
	remote := newFakeRemoteCache()
	remote.entries["k"] = []byte(`["from-redis"]`)
	memory := cache.NewMemory()
	svc := NewCacheService(memory, remote, time.Minute, nil, nil)

	var out []string
	tier, ok := svc.Get(context.Background(), "k", &out)
	require.True(t, ok)
	assert.Equal(t, TierRedis, tier)
	assert.Equal(t, []string{"from-redis"}, out)
	assert.Equal(t, 1, memory.Len(), "redis hit forwards into memory")

	tier, ok = svc.Get(context.Background(), "k", &out)
	require.True(t, ok)
	assert.Equal(t, TierMemory, tier)
}

func TestCacheServiceRedisFailureDegradesToMiss(t *testing.T) {
	remote := newFakeRemoteCache()
	remote.getErr = errors.New("connection refused")
	svc := NewCacheService(cache.NewMemory(), remote, time.Minute, nil, nil)

	var out []string
	_, ok := svc.Get(context.Background(), "k", &out)
	assert.False(t, ok)

	stats := svc.Stats()
	assert.EqualValues(t, 1, stats.Misses)
}

func TestCacheServiceSetWritesBothTiers(t *testing.T) {
	remote := newFakeRemoteCache()
	memory := cache.NewMemory()
	svc := NewCacheService(memory, remote, time.Minute, nil, nil)

	require.NoError(t, svc.Set(context.Background(), "k", "v", time.Hour))
	assert.Equal(t, 1, memory.Len())
	assert.Equal(t, 1, remote.setCalls)
	assert.Contains(t, remote.entries, "k")
}

func TestCacheServiceInvalidateClearsBothTiers(t *testing.T) {
	remote := newFakeRemoteCache()
	memory := cache.NewMemory()
	svc := NewCacheService(memory, remote, time.Minute, nil, nil)

	require.NoError(t, svc.Set(context.Background(), "courses:202508:CSC", "v", time.Hour))
	require.NoError(t, svc.Set(context.Background(), "courses:202508:MATH", "v", time.Hour))

	memDeleted, redisDeleted, err := svc.Invalidate(context.Background(), "courses:*")
	require.NoError(t, err)
	assert.Equal(t, 2, memDeleted)
	assert.Equal(t, 2, redisDeleted)
	assert.Equal(t, "courses:*", remote.lastDelete)
	assert.Equal(t, 0, memory.Len())
}

func TestCacheServiceGetManyPartitionsTiers(t *testing.T) {
	remote := newFakeRemoteCache()
	remote.entries["redis-only"] = []byte(`"b"`)
	memory := cache.NewMemory()
	svc := NewCacheService(memory, remote, time.Minute, nil, nil)

	require.NoError(t, svc.Set(context.Background(), "warm", "a", time.Hour))

	found := svc.GetMany(context.Background(), []string{"warm", "redis-only", "absent"})
	require.Len(t, found, 2)
	assert.Equal(t, []byte(`"a"`), found["warm"])
	assert.Equal(t, []byte(`"b"`), found["redis-only"])
	assert.Equal(t, 2, memory.Len(), "redis batch hit forwards into memory")

	stats := svc.Stats()
	assert.EqualValues(t, 1, stats.RedisHits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestCacheServiceGetManyDegradesOnRedisFailure(t *testing.T) {
	remote := newFakeRemoteCache()
	remote.getErr = errors.New("connection refused")
	svc := NewCacheService(cache.NewMemory(), remote, time.Minute, nil, nil)

	found := svc.GetMany(context.Background(), []string{"k1", "k2"})
	assert.Empty(t, found)
	assert.EqualValues(t, 2, svc.Stats().Misses)
}

func TestCacheServiceCorruptPayloadIsMiss(t *testing.T) {
	remote := newFakeRemoteCache()
	remote.entries["k"] = []byte("{not-json")
	svc := NewCacheService(cache.NewMemory(), remote, time.Minute, nil, nil)

	var out []string
	_, ok := svc.Get(context.Background(), "k", &out)
	assert.False(t, ok)
}
