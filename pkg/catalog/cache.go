package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/YINDEEINDY/KodLaewLong-sub000/pkg/observability"
)

// CachedLookup is an in-process read-through cache in front of another Lookup
type CachedLookup struct {
	next    Lookup
	cache   *lru.LRU[string, Item]
	metrics *observability.Metrics
}

// NewCachedLookup wraps next with an LRU of up to size items that expire after ttl
func NewCachedLookup(next Lookup, size int, ttl time.Duration, metrics *observability.Metrics) *CachedLookup {
	if size < 10 {
		size = 10
	}
	return &CachedLookup{
		next:    next,
		cache:   lru.NewLRU[string, Item](size, nil, ttl),
		metrics: metrics,
	}
}

// GetItemsByIDs implements Lookup
func (c *CachedLookup) GetItemsByIDs(ctx context.Context, ids []string) ([]Item, error) {
	ids = Unique(ids)

	items := make([]Item, 0, len(ids))
	var misses []string
	for _, id := range ids {
		if item, ok := c.cache.Get(id); ok {
			items = append(items, item)
			continue
		}
		misses = append(misses, id)
	}
	c.metrics.RecordCacheLookup("lru", len(items), len(misses))

	if len(misses) == 0 {
		return items, nil
	}

	fetched, err := c.next.GetItemsByIDs(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, item := range fetched {
		c.cache.Add(item.ID, item)
	}
	return append(items, fetched...), nil
}

// Purge drops every cached item
func (c *CachedLookup) Purge() {
	c.cache.Purge()
}

const redisKeyPrefix = "kll:catalog:app:"

// RedisLookup is a shared read-through cache in redis. Redis errors are logged
// and the wrapped lookup answers instead.
type RedisLookup struct {
	next    Lookup
	client  *redis.Client
	ttl     time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewRedisLookup wraps next with a redis cache whose entries live for ttl
func NewRedisLookup(next Lookup, client *redis.Client, ttl time.Duration, logger *observability.Logger, metrics *observability.Metrics) *RedisLookup {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &RedisLookup{
		next:    next,
		client:  client,
		ttl:     ttl,
		logger:  logger.WithField("component", "redis_catalog_cache"),
		metrics: metrics,
	}
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

// GetItemsByIDs implements Lookup
func (r *RedisLookup) GetItemsByIDs(ctx context.Context, ids []string) ([]Item, error) {
	ids = Unique(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		r.metrics.RecordCatalogError("redis")
		r.logger.WithError(err).Warn("Redis MGET failed, reading through")
		return r.next.GetItemsByIDs(ctx, ids)
	}

	items := make([]Item, 0, len(ids))
	var misses []string
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			misses = append(misses, ids[i])
			continue
		}
		var item Item
		if err := json.Unmarshal([]byte(raw), &item); err != nil || item.ID != ids[i] {
			misses = append(misses, ids[i])
			continue
		}
		items = append(items, item)
	}
	r.metrics.RecordCacheLookup("redis", len(items), len(misses))

	if len(misses) == 0 {
		return items, nil
	}

	fetched, err := r.next.GetItemsByIDs(ctx, misses)
	if err != nil {
		return nil, err
	}
	r.store(ctx, fetched)
	return append(items, fetched...), nil
}

func (r *RedisLookup) store(ctx context.Context, items []Item) {
	if len(items) == 0 {
		return
	}

	pipe := r.client.Pipeline()
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			continue
		}
		pipe.Set(ctx, redisKey(item.ID), data, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.metrics.RecordCatalogError("redis")
		r.logger.WithError(err).Warn("Redis cache fill failed")
	}
}

// Invalidate removes cached entries for ids
func (r *RedisLookup) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKey(id)
	}
	return r.client.Del(ctx, keys...).Err()
}
