package feed

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/my-cfd-platform/cross-margin-core/config"
)

// RunAll fans the Redis and websocket feeds out concurrently, each
// delivering decoded ticks to the same handler. It returns when ctx is
// cancelled or any feed returns a non-context error, cancelling the other.
func RunAll(ctx context.Context, cfg config.FeedConfig, handle TickHandler) error {
	g, gctx := errgroup.WithContext(ctx)

	redisFeed := NewRedisSubscriber(cfg.RedisAddr, cfg.RedisChannel)
	g.Go(func() error {
		defer redisFeed.Close()
		return redisFeed.Run(gctx, handle)
	})

	if cfg.WebsocketURL != "" {
		wsFeed := NewQuoteStream(cfg.WebsocketURL)
		g.Go(func() error {
			return wsFeed.Run(gctx, handle)
		})
	}

	return g.Wait()
}
