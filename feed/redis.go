// Package feed implements the example external tick-ingestion collaborators
// that sit outside the core and drive it: a Redis pub/sub subscriber and a
// websocket quote stream, both decoding ticks and handing them to an
// Aggregate.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/my-cfd-platform/cross-margin-core/core"
	"github.com/my-cfd-platform/cross-margin-core/logging"
)

// TickHandler is called once per decoded tick.
type TickHandler func(ba core.BidAsk) error

// wireTick is the JSON shape published on the Redis channel.
type wireTick struct {
	AssetPair string    `json:"asset_pair"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Base      string    `json:"base"`
	Quote     string    `json:"quote"`
	Date      time.Time `json:"date"`
}

// RedisSubscriber subscribes to a single channel carrying JSON-encoded
// ticks and forwards each one to a handler.
type RedisSubscriber struct {
	client  *redis.Client
	channel string
}

// NewRedisSubscriber builds a subscriber against addr, not yet connected.
func NewRedisSubscriber(addr, channel string) *RedisSubscriber {
	return &RedisSubscriber{
		client:  redis.NewClient(&redis.Options{Addr: addr}),
		channel: channel,
	}
}

// Run subscribes and blocks, delivering ticks to handle until ctx is
// cancelled or the subscription errors.
func (s *RedisSubscriber) Run(ctx context.Context, handle TickHandler) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	logging.Info(fmt.Sprintf("[feed/redis] subscribed to %s", s.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("feed/redis: subscription channel closed")
			}
			var t wireTick
			if err := json.Unmarshal([]byte(msg.Payload), &t); err != nil {
				logging.Error("feed/redis: bad tick payload", err)
				continue
			}
			ba := core.BidAsk{
				AssetPair: t.AssetPair,
				Bid:       t.Bid,
				Ask:       t.Ask,
				Base:      t.Base,
				Quote:     t.Quote,
				Date:      t.Date,
			}
			if err := handle(ba); err != nil {
				logging.Error("feed/redis: handler error", err)
			}
		}
	}
}

// Close releases the underlying Redis client.
func (s *RedisSubscriber) Close() error {
	return s.client.Close()
}
