package services

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisFeed is the ChangeFeed backed by Redis pub/sub. Publishing and
// subscribing use separate clients so long-lived subscriptions never hold
// pool connections needed by regular commands.
type RedisFeed struct {
	pub *redis.Client
	sub *redis.Client
}

func NewRedisFeed(pub, sub *redis.Client) *RedisFeed {
	return &RedisFeed{pub: pub, sub: sub}
}

func (f *RedisFeed) Publish(ctx context.Context, channel string, payload []byte) error {
	return f.pub.Publish(ctx, channel, payload).Err()
}

func (f *RedisFeed) Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error) {
	pubsub := f.sub.Subscribe(ctx, channel)

	// Wait for the subscription confirmation before reporting success.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan []byte, 16)
	msgs := pubsub.Channel()

	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}
