package feed

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
)

// RedisSource receives addresses from a Redis pub/sub channel.
type RedisSource struct {
	client redis.UniversalClient
	ps     *redis.PubSub
	owned  bool
	closed atomic.Bool
}

// NewRedisSource subscribes client to channel. Close leaves client open.
func NewRedisSource(ctx context.Context, client redis.UniversalClient, channel string) *RedisSource {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisSource{client: client, ps: client.Subscribe(ctx, channel)}
}

// DialRedisSource connects to addr and subscribes to channel. Close closes
// the connection.
func DialRedisSource(ctx context.Context, addr, channel string) (*RedisSource, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping %s: %w", addr, err)
	}
	s := NewRedisSource(ctx, client, channel)
	s.owned = true
	return s, nil
}

// Next implements Source. Subscription confirmations and messages without
// an address are skipped.
func (s *RedisSource) Next(ctx context.Context) (string, error) {
	for {
		if s.closed.Load() {
			return "", ErrClosed
		}
		msg, err := s.ps.ReceiveMessage(ctx)
		if err != nil {
			if s.closed.Load() {
				return "", ErrClosed
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("receive: %w", err)
		}
		if addr := ParseMessage(msg.Payload); addr != "" {
			return addr, nil
		}
	}
}

// Close implements Source. It is safe to call more than once.
func (s *RedisSource) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	err := s.ps.Close()
	if s.owned {
		err = errors.Join(err, s.client.Close())
	}
	return err
}

// Publish sends address on channel. It is what the alerting backend does
// when it flags a wallet; the CLI exposes it for manual triage.
func Publish(ctx context.Context, client redis.UniversalClient, channel, address string) error {
	if channel == "" {
		channel = DefaultChannel
	}
	return client.Publish(ctx, channel, address).Err()
}
