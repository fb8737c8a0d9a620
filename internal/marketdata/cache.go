package marketdata

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"covered-call-lab/internal/domain"
)

// DefaultCacheTTL bounds how stale a cached quote or chain may be.
// Callers tolerate stale-but-recent data within this window.
const DefaultCacheTTL = 30 * time.Second

// CacheBackend stores serialized cache entries with a TTL.
type CacheBackend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// MemoryCache is an in-process CacheBackend. It is the default backend
// for the single-process deployment.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memEntry

	now func() time.Time
}

type memEntry struct {
	value   []byte
	expires time.Time
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memEntry{value: value, expires: m.now().Add(ttl)}
	return nil
}

// RedisCache is a CacheBackend over a shared redis instance, for
// deployments where several processes want to share one quote cache.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a cache backend over the given redis options.
func NewRedisCache(opt *redis.Options) *RedisCache {
	return &RedisCache{client: redis.NewClient(opt)}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Close closes the underlying redis connection.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// CachedSource wraps a Source with a TTL cache for quotes and option
// chains. The whale-flow feed is never cached; activity records are
// consumed once. It implements Source.
type CachedSource struct {
	src     Source
	backend CacheBackend
	ttl     time.Duration
}

// NewCachedSource wraps src with the given backend. A zero ttl uses
// DefaultCacheTTL; a nil backend uses an in-memory cache.
func NewCachedSource(src Source, backend CacheBackend, ttl time.Duration) *CachedSource {
	if backend == nil {
		backend = NewMemoryCache()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{src: src, backend: backend, ttl: ttl}
}

// GetQuote serves from cache when a fresh entry exists, otherwise
// fetches and caches. Cache backend errors fall through to the source.
func (c *CachedSource) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	key := "quote:" + symbol
	if b, ok, err := c.backend.Get(ctx, key); err == nil && ok {
		var q domain.Quote
		if err := json.Unmarshal(b, &q); err == nil {
			return &q, nil
		}
	}

	q, err := c.src.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(q); err == nil {
		_ = c.backend.Set(ctx, key, b, c.ttl)
	}
	return q, nil
}

// GetOptionChain serves from cache when a fresh entry exists.
func (c *CachedSource) GetOptionChain(ctx context.Context, symbol string) (domain.OptionChain, error) {
	key := "chain:" + symbol
	if b, ok, err := c.backend.Get(ctx, key); err == nil && ok {
		var chain domain.OptionChain
		if err := json.Unmarshal(b, &chain); err == nil {
			return chain, nil
		}
	}

	chain, err := c.src.GetOptionChain(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(chain); err == nil {
		_ = c.backend.Set(ctx, key, b, c.ttl)
	}
	return chain, nil
}

// GetWhaleFlowFeed always hits the source.
func (c *CachedSource) GetWhaleFlowFeed(ctx context.Context, since time.Time) ([]*domain.RawActivityRecord, error) {
	return c.src.GetWhaleFlowFeed(ctx, since)
}
