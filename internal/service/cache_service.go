package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/coursescout/coursescout-api/pkg/cache"
	appErrors "github.com/coursescout/coursescout-api/pkg/errors"
)

// Cache tier names, reported in response metadata and metrics.
const (
	TierMemory = "memory"
	TierRedis  = "redis"
)

const defaultMemoryTTL = 5 * time.Minute

// remoteCache is the networked cache tier contract the service consumes.
type remoteCache interface {
	GetRaw(ctx context.Context, key string) ([]byte, error)
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
	SetRaw(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) (int, error)
}

// CacheStats is a point-in-time view of cache behaviour since startup.
type CacheStats struct {
	MemoryEntries int    `json:"memory_entries"`
	MemoryHits    uint64 `json:"memory_hits"`
	RedisHits     uint64 `json:"redis_hits"`
	Misses        uint64 `json:"misses"`
}

// CacheService layers the in-process tier over the Redis tier. Reads fall
// through memory to Redis; a Redis hit is forwarded back into memory. Any
// Redis failure degrades to a miss so callers never block on the cache.
type CacheService struct {
	memory    *cache.Memory
	remote    remoteCache
	memoryTTL time.Duration
	metrics   *MetricsService
	logger    *zap.Logger

	memoryHits uint64
	redisHits  uint64
	misses     uint64
}

// NewCacheService constructs the tiered cache. memoryTTL caps how long a
// forwarded entry lives in process; zero applies the default.
func NewCacheService(memory *cache.Memory, remote remoteCache, memoryTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *CacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if memoryTTL <= 0 {
		memoryTTL = defaultMemoryTTL
	}
	return &CacheService{
		memory:    memory,
		remote:    remote,
		memoryTTL: memoryTTL,
		metrics:   metrics,
		logger:    logger,
	}
}

// Get reads key through the tiers into dest, reporting which tier answered.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (string, bool) {
	if payload, ok := s.memory.Get(key); ok {
		if err := json.Unmarshal(payload, dest); err == nil {
			atomic.AddUint64(&s.memoryHits, 1)
			s.metrics.RecordCacheLookup(TierMemory, "hit")
			return TierMemory, true
		}
		s.memory.Delete(key)
	}
	s.metrics.RecordCacheLookup(TierMemory, "miss")

	payload, err := s.remote.GetRaw(ctx, key)
	if err != nil {
		if err != appErrors.ErrCacheMiss {
			s.logger.Warn("redis tier unavailable, treating as miss",
				zap.String("key", key),
				zap.Error(err),
			)
		}
		s.metrics.RecordCacheLookup(TierRedis, "miss")
		atomic.AddUint64(&s.misses, 1)
		return "", false
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		s.logger.Warn("corrupt cache payload dropped", zap.String("key", key), zap.Error(err))
		s.metrics.RecordCacheLookup(TierRedis, "miss")
		atomic.AddUint64(&s.misses, 1)
		return "", false
	}

	s.memory.Set(key, payload, s.memoryTTL)
	atomic.AddUint64(&s.redisHits, 1)
	s.metrics.RecordCacheLookup(TierRedis, "hit")
	return TierRedis, true
}

// GetMany resolves a batch of keys through the tiers with a single Redis
// round-trip for the memory misses. The result maps key to raw payload and
// omits misses; a Redis failure degrades the remaining keys to misses.
func (s *CacheService) GetMany(ctx context.Context, keys []string) map[string][]byte {
	found := make(map[string][]byte, len(keys))
	missing := make([]string, 0, len(keys))
	for _, key := range keys {
		if payload, ok := s.memory.Get(key); ok {
			atomic.AddUint64(&s.memoryHits, 1)
			s.metrics.RecordCacheLookup(TierMemory, "hit")
			found[key] = payload
			continue
		}
		s.metrics.RecordCacheLookup(TierMemory, "miss")
		missing = append(missing, key)
	}
	if len(missing) == 0 {
		return found
	}

	remote, err := s.remote.GetMany(ctx, missing)
	if err != nil {
		s.logger.Warn("redis batch read failed, treating as misses",
			zap.Int("keys", len(missing)),
			zap.Error(err),
		)
		remote = nil
	}
	for _, key := range missing {
		payload, ok := remote[key]
		if !ok {
			s.metrics.RecordCacheLookup(TierRedis, "miss")
			atomic.AddUint64(&s.misses, 1)
			continue
		}
		s.memory.Set(key, payload, s.memoryTTL)
		atomic.AddUint64(&s.redisHits, 1)
		s.metrics.RecordCacheLookup(TierRedis, "hit")
		found[key] = payload
	}
	return found
}

// Set writes value to both tiers before returning. The in-process copy never
// outlives the Redis TTL.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	memTTL := s.memoryTTL
	if ttl < memTTL {
		memTTL = ttl
	}
	s.memory.Set(key, payload, memTTL)

	if err := s.remote.SetRaw(ctx, key, payload, ttl); err != nil {
		s.logger.Warn("redis tier write failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Invalidate drops every entry matching the glob pattern from both tiers and
// reports per-tier deletion counts. Patterns use Redis glob form ("courses:*").
func (s *CacheService) Invalidate(ctx context.Context, pattern string) (memoryDeleted, redisDeleted int, err error) {
	memoryDeleted = s.memory.DeletePrefix(strings.TrimSuffix(pattern, "*"))
	redisDeleted, err = s.remote.DeleteByPattern(ctx, pattern)
	return memoryDeleted, redisDeleted, err
}

// Stats reports cache behaviour since startup.
func (s *CacheService) Stats() CacheStats {
	return CacheStats{
		MemoryEntries: s.memory.Len(),
		MemoryHits:    atomic.LoadUint64(&s.memoryHits),
		RedisHits:     atomic.LoadUint64(&s.redisHits),
		Misses:        atomic.LoadUint64(&s.misses),
	}
}
