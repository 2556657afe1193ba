package prices

import (
	"sync"

	"github.com/my-cfd-platform/cross-margin-core/core"
)

// BidAskCache is the live price cache: it holds every directly-fed quote and
// derives any other pair on demand, either by inverting a stored quote or by
// asking the cross engine for a synthesised one.
type BidAskCache struct {
	mu sync.RWMutex

	byID           map[string]core.BidAsk
	baseQuoteIndex map[string]map[string]core.BidAsk

	crossEngine *CrossEngine
}

// NewBidAskCache builds the cache from the instruments and latest prices
// known at startup, and constructs the cross engine for the requested
// synthetic pairs.
func NewBidAskCache(requestedCrosses []CrossRequest, instruments []core.Instrument, cachedPrices []core.BidAsk) (*BidAskCache, error) {
	c := &BidAskCache{
		byID:           make(map[string]core.BidAsk),
		baseQuoteIndex: make(map[string]map[string]core.BidAsk),
	}

	seed := make(map[string]core.BidAsk, len(cachedPrices))
	for _, p := range cachedPrices {
		c.store(p)
		seed[p.AssetPair] = p
	}

	engine, err := NewCrossEngine(requestedCrosses, instruments, seed)
	if err != nil {
		return nil, err
	}
	c.crossEngine = engine

	return c, nil
}

func (c *BidAskCache) store(p core.BidAsk) {
	c.byID[p.AssetPair] = p
	if c.baseQuoteIndex[p.Base] == nil {
		c.baseQuoteIndex[p.Base] = make(map[string]core.BidAsk)
	}
	c.baseQuoteIndex[p.Base][p.Quote] = p
}

// HandleNew absorbs a fresh tick: it replaces the stored quote and lets any
// dependent cross instrument refresh itself from it.
func (c *BidAskCache) HandleNew(ba core.BidAsk) {
	c.mu.Lock()
	c.store(ba)
	c.mu.Unlock()

	c.crossEngine.HandleBidAsk(ba)
}

// GetByID returns the raw stored quote for an asset pair id, with no
// inversion or synthesis applied.
func (c *BidAskCache) GetByID(id string) (core.BidAsk, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ba, ok := c.byID[id]
	return ba, ok
}

// GetPrice resolves the quote for (base, quote) in the following order:
// the unit quote if base == quote, a direct stored quote, the inverse of the
// mirror stored quote, a synthesised cross, or not-found.
func (c *BidAskCache) GetPrice(base, quote string) (core.BidAsk, bool) {
	if base == quote {
		return core.CreateBlankBidAsk(base), true
	}

	c.mu.RLock()
	if byQuote, ok := c.baseQuoteIndex[base]; ok {
		if ba, ok := byQuote[quote]; ok {
			c.mu.RUnlock()
			return ba, true
		}
	}
	if byQuote, ok := c.baseQuoteIndex[quote]; ok {
		if ba, ok := byQuote[base]; ok {
			c.mu.RUnlock()
			return ba.Reverse(), true
		}
	}
	c.mu.RUnlock()

	return c.crossEngine.GetCross(base, quote)
}
