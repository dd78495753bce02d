package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/coffeemap/internal/metrics"
)

const defaultOpTimeout = 2 * time.Second

// ErrUnavailable wraps every store or decode failure reported through Result.
var ErrUnavailable = errors.New("cache unavailable")

// Cache is a best-effort JSON key/value cache on top of Redis. Reads and writes
// never fail the caller: store errors degrade to a miss or a no-op write.
type Cache struct {
	client    *redis.Client
	log       *slog.Logger
	opTimeout time.Duration
	now       func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithOpTimeout bounds every Redis call made by the cache.
func WithOpTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.opTimeout = d
		}
	}
}

// WithClock overrides the clock used for envelope timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache constructs a Cache around an already connected client.
func NewCache(client *redis.Client, log *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		client:    client,
		log:       log,
		opTimeout: defaultOpTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the store key for a logical key under subPath.
func Key(subPath, key string) string {
	return subPath + ":" + key
}

// envelope is the stored JSON shape: {"data": ..., "timestamp": epochMillis}.
type envelope[T any] struct {
	Data      T     `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

// Get reads subPath:key and decodes it into T.
func Get[T any](ctx context.Context, c *Cache, subPath, key string) Result[T] {
	res := get[T](ctx, c, Key(subPath, key))
	metrics.CacheLookups.WithLabelValues(subPath, res.Status.String()).Inc()
	return res
}

func get[T any](ctx context.Context, c *Cache, k string) Result[T] {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Miss[T]()
		}
		c.log.Warn("cache get failed", "key", k, "err", err)
		return Unavailable[T](fmt.Errorf("%w: get %s: %w", ErrUnavailable, k, err))
	}

	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Warn("cache decode failed", "key", k, "err", err)
		return Unavailable[T](fmt.Errorf("%w: decoding %s: %w", ErrUnavailable, k, err))
	}

	return Hit(env.Data, time.UnixMilli(env.Timestamp))
}

// Set writes data under subPath:key. A zero ttl stores the entry without expiry.
func Set[T any](ctx context.Context, c *Cache, subPath, key string, data T, ttl time.Duration) {
	k := Key(subPath, key)

	b, err := json.Marshal(envelope[T]{Data: data, Timestamp: c.now().UnixMilli()})
	if err != nil {
		c.log.Warn("cache encode failed", "key", k, "err", err)
		metrics.CacheWriteErrors.WithLabelValues(subPath).Inc()
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, k, b, ttl).Err(); err != nil {
		c.log.Warn("cache set failed", "key", k, "err", err)
		metrics.CacheWriteErrors.WithLabelValues(subPath).Inc()
	}
}
