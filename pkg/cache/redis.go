package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces flowgraph keys in a shared Redis.
const DefaultRedisPrefix = "flowgraph:"

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithRedisPrefix sets the key prefix. Defaults to DefaultRedisPrefix.
func WithRedisPrefix(p string) RedisOption { return func(c *RedisCache) { c.prefix = p } }

// WithRetry sets how often and how patiently transient failures are retried.
func WithRetry(attempts int, delay time.Duration) RedisOption {
	return func(c *RedisCache) { c.attempts, c.delay = attempts, delay }
}

// RedisCache stores entries in Redis. It is shared by every server replica,
// so a seeded graph rendered by one replica is served by all.
type RedisCache struct {
	client   redis.UniversalClient
	prefix   string
	attempts int
	delay    time.Duration
	closed   atomic.Bool
}

// NewRedisCache wraps an existing client. Close closes the client.
func NewRedisCache(client redis.UniversalClient, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		client:   client,
		prefix:   DefaultRedisPrefix,
		attempts: DefaultRetryAttempts,
		delay:    DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DialRedis connects to addr and pings it.
func DialRedis(ctx context.Context, addr string, opts ...RedisOption) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrNetwork, addr, err)
	}
	return NewRedisCache(client, opts...), nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if c.closed.Load() {
		return nil, false, ErrClosed
	}
	var data []byte
	hit := false
	err := RetryWithBackoff(ctx, c.attempts, c.delay, func() error {
		b, err := c.client.Get(ctx, c.prefix+key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return classify(ctx, err)
		}
		data, hit = b, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return data, hit, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if ttl < 0 {
		ttl = 0
	}
	return RetryWithBackoff(ctx, c.attempts, c.delay, func() error {
		return classify(ctx, c.client.Set(ctx, c.prefix+key, data, ttl).Err())
	})
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	return RetryWithBackoff(ctx, c.attempts, c.delay, func() error {
		return classify(ctx, c.client.Del(ctx, c.prefix+key).Err())
	})
}

// Close implements Cache. It is safe to call more than once.
func (c *RedisCache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.client.Close()
}

// classify marks backend failures as retryable. Only the caller's own
// cancellation is final; dial and read timeouts also satisfy
// context.DeadlineExceeded and must still be retried.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	return Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
}

var _ Cache = (*RedisCache)(nil)
