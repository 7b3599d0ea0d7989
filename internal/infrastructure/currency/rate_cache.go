package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/erp/payalloc/internal/domain/fx"
	"github.com/erp/payalloc/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	rateCachePrefix = "fx:rate:"
	dayLayout       = "2006-01-02"
	scanBatch       = 100
)

// RateCache stores looked-up quotes by key
type RateCache interface {
	Get(ctx context.Context, key string) (Quote, bool, error)
	Set(ctx context.Context, key string, quote Quote, ttl time.Duration) error
	// DeletePrefix drops every entry whose key starts with prefix
	DeletePrefix(ctx context.Context, prefix string) error
}

// RateCacheKey identifies one pair on one lookup day for one company of a tenant
func RateCacheKey(tenantID, companyID uuid.UUID, from, to valueobject.Currency, asOf time.Time) string {
	return pairPrefix(tenantID, companyID, from, to) + fx.TruncateDay(asOf).Format(dayLayout)
}

// pairPrefix is shared by every lookup day of one pair
func pairPrefix(tenantID, companyID uuid.UUID, from, to valueobject.Currency) string {
	return fmt.Sprintf("%s%s:%s:%s:%s:", rateCachePrefix, tenantID, companyID, from, to)
}

// RedisRateCache keeps quotes in Redis as "<rate>@<effective day>"
type RedisRateCache struct {
	client *redis.Client
}

// NewRedisRateCache creates a cache over an existing client
func NewRedisRateCache(client *redis.Client) *RedisRateCache {
	return &RedisRateCache{client: client}
}

// Get returns the cached quote, or false on a miss
func (c *RedisRateCache) Get(ctx context.Context, key string) (Quote, bool, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return Quote{}, false, nil
	}
	if err != nil {
		return Quote{}, false, fmt.Errorf("failed to read rate cache: %w", err)
	}
	quote, err := decodeQuote(raw)
	if err != nil {
		return Quote{}, false, fmt.Errorf("corrupt cached rate %q: %w", key, err)
	}
	return quote, true, nil
}

// Set stores quote under key for ttl
func (c *RedisRateCache) Set(ctx context.Context, key string, quote Quote, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, encodeQuote(quote), ttl).Err(); err != nil {
		return fmt.Errorf("failed to write rate cache: %w", err)
	}
	return nil
}

// DeletePrefix scans for matching keys and deletes them in batches
func (c *RedisRateCache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	batch := make([]string, 0, scanBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("failed to delete cached rates: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cached rates: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("failed to delete cached rates: %w", err)
		}
	}
	return nil
}

func encodeQuote(q Quote) string {
	return q.Rate.String() + "@" + q.EffectiveDate.Format(dayLayout)
}

func decodeQuote(raw string) (Quote, error) {
	rawRate, rawDay, ok := strings.Cut(raw, "@")
	if !ok {
		return Quote{}, errors.New("missing effective date")
	}
	rate, err := decimal.NewFromString(rawRate)
	if err != nil {
		return Quote{}, err
	}
	day, err := time.Parse(dayLayout, rawDay)
	if err != nil {
		return Quote{}, err
	}
	return Quote{Rate: rate, EffectiveDate: day}, nil
}

type cachedQuote struct {
	quote     Quote
	expiresAt time.Time
}

// InMemoryRateCache is a process-local RateCache
type InMemoryRateCache struct {
	mu      sync.RWMutex
	entries map[string]cachedQuote
	now     func() time.Time
}

// NewInMemoryRateCache creates an empty cache
func NewInMemoryRateCache() *InMemoryRateCache {
	return &InMemoryRateCache{
		entries: make(map[string]cachedQuote),
		now:     time.Now,
	}
}

// Get returns the cached quote, or false on a miss or expiry
func (c *InMemoryRateCache) Get(_ context.Context, key string) (Quote, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return Quote{}, false, nil
	}
	return e.quote, true, nil
}

// Set stores quote under key for ttl
func (c *InMemoryRateCache) Set(_ context.Context, key string, quote Quote, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = cachedQuote{quote: quote, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// DeletePrefix drops the entries whose key starts with prefix
func (c *InMemoryRateCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

// CachedRateSource puts a RateCache in front of a RateSource. Misses are not
// cached, so a rate published later is picked up on the next lookup.
type CachedRateSource struct {
	source RateSource
	cache  RateCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedRateSource wraps source with cache
func NewCachedRateSource(source RateSource, cache RateCache, ttl time.Duration, logger *zap.Logger) *CachedRateSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedRateSource{source: source, cache: cache, ttl: ttl, logger: logger}
}

// Rate serves from the cache when possible. Cache failures degrade to a
// direct lookup.
func (s *CachedRateSource) Rate(ctx context.Context, tenantID, companyID uuid.UUID, from, to valueobject.Currency, asOf time.Time) (Quote, error) {
	key := RateCacheKey(tenantID, companyID, from, to, asOf)
	quote, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("rate cache read failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		return quote, nil
	}

	quote, err = s.source.Rate(ctx, tenantID, companyID, from, to, asOf)
	if err != nil {
		return Quote{}, err
	}
	if err := s.cache.Set(ctx, key, quote, s.ttl); err != nil {
		s.logger.Warn("rate cache write failed", zap.String("key", key), zap.Error(err))
	}
	return quote, nil
}

// InvalidatePair forgets every cached lookup of from->to, whatever the
// lookup day, after the pair's rates changed.
func (s *CachedRateSource) InvalidatePair(ctx context.Context, tenantID, companyID uuid.UUID, from, to valueobject.Currency) error {
	return s.cache.DeletePrefix(ctx, pairPrefix(tenantID, companyID, from, to))
}

// NewRateCache builds the cache named by backend ("redis", "memory" or
// "none"). It returns nil for "none" or for "redis" without a client.
func NewRateCache(backend string, client *redis.Client) RateCache {
	switch backend {
	case "redis":
		if client == nil {
			return nil
		}
		return NewRedisRateCache(client)
	case "memory":
		return NewInMemoryRateCache()
	default:
		return nil
	}
}
