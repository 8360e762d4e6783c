package invalidation

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// PubSub is the transport the manager publishes and listens on. A fake
// implementation is enough for unit tests.
type PubSub interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription is one attached listener. Receive blocks until a message
// arrives, the context is cancelled, or the subscription fails.
type Subscription interface {
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// RedisPubSub adapts a go-redis client to the PubSub interface.
type RedisPubSub struct {
	rdb *redis.Client
}

func NewRedisPubSub(rdb *redis.Client) *RedisPubSub {
	return &RedisPubSub{rdb: rdb}
}

func (p *RedisPubSub) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.rdb.Publish(ctx, channel, payload).Err()
}

func (p *RedisPubSub) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	ps := p.rdb.Subscribe(ctx, channel)

	// Force the subscription onto the wire before returning so callers
	// do not miss events published right after Subscribe.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	return &redisSubscription{ps: ps}, nil
}

type redisSubscription struct {
	ps *redis.PubSub
}

func (s *redisSubscription) Receive(ctx context.Context) ([]byte, error) {
	msg, err := s.ps.ReceiveMessage(ctx)
	if err != nil {
		return nil, err
	}
	return []byte(msg.Payload), nil
}

func (s *redisSubscription) Close() error {
	return s.ps.Close()
}

var _ PubSub = (*RedisPubSub)(nil)
