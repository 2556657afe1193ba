package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/my-cfd-platform/cross-margin-core/core"
	"github.com/my-cfd-platform/cross-margin-core/logging"
)

// QuoteStream consumes a websocket feed of JSON-encoded ticks and forwards
// each one to a handler.
type QuoteStream struct {
	url string
}

// NewQuoteStream builds a quote stream against a websocket URL, not yet
// connected.
func NewQuoteStream(url string) *QuoteStream {
	return &QuoteStream{url: url}
}

// Run dials the websocket and blocks, delivering ticks to handle until ctx
// is cancelled or the connection errors.
func (q *QuoteStream) Run(ctx context.Context, handle TickHandler) error {
	if q.url == "" {
		<-ctx.Done()
		return ctx.Err()
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, q.url, nil)
	if err != nil {
		return fmt.Errorf("feed/websocket: dial %s: %w", q.url, err)
	}
	defer conn.Close()

	logging.Info(fmt.Sprintf("[feed/websocket] connected to %s", q.url))

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed/websocket: read: %w", err)
		}

		var t wireTick
		if err := json.Unmarshal(payload, &t); err != nil {
			logging.Error("feed/websocket: bad tick payload", err)
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
			logging.Error("feed/websocket: handler error", err)
		}
	}
}
