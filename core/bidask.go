// Package core defines the shared data model for the cross-margin trading
// core: prices, instruments, accounts and the position hierarchy used by
// every engine component.
package core

import "time"

// Side is the direction of a position.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// BidAsk is a quoted price for one asset pair at a point in time.
type BidAsk struct {
	AssetPair string
	Bid       float64
	Ask       float64
	Base      string
	Quote     string
	Date      time.Time
}

// Reverse returns the BidAsk for the inverted pair: base and quote swap,
// and the rates invert so that the no-arbitrage identity holds --
// new.bid = 1/old.ask, new.ask = 1/old.bid.
func (b BidAsk) Reverse() BidAsk {
	return BidAsk{
		AssetPair: b.Quote + b.Base,
		Bid:       1.0 / b.Ask,
		Ask:       1.0 / b.Bid,
		Base:      b.Quote,
		Quote:     b.Base,
		Date:      b.Date,
	}
}

// GetOpenPrice returns the rate at which a new position of the given side
// would be opened: Buy opens at ask, Sell opens at bid.
func (b BidAsk) GetOpenPrice(side Side) float64 {
	if side == Buy {
		return b.Ask
	}
	return b.Bid
}

// GetClosePrice returns the rate at which a position of the given side
// would be closed: Buy closes at bid, Sell closes at ask.
func (b BidAsk) GetClosePrice(side Side) float64 {
	if side == Buy {
		return b.Bid
	}
	return b.Ask
}

// CreateBlankBidAsk returns the synthetic unit quote used when base == quote.
func CreateBlankBidAsk(ticker string) BidAsk {
	return BidAsk{
		AssetPair: ticker + ticker,
		Bid:       1.0,
		Ask:       1.0,
		Base:      ticker,
		Quote:     ticker,
	}
}

// Instrument is a static tradable pair.
type Instrument struct {
	ID    string
	Base  string
	Quote string
}
