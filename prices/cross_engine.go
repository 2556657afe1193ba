package prices

import (
	"fmt"
	"log"
	"sync"

	"github.com/my-cfd-platform/cross-margin-core/core"
)

// CrossRequest is a requested synthetic pair the engine must be able to
// derive from two source instruments at construction time.
type CrossRequest struct {
	Base  string
	Quote string
}

// CrossEngine derives synthetic cross quotes from a two-deep DAG of source
// instruments, registered once at construction.
type CrossEngine struct {
	mu          sync.RWMutex
	crossMatrix map[string]*core.CrossInstrument // cross id -> instrument
	mapping     map[string]string                // "base-quote" -> cross id
	subscribe   map[string][]string              // source instrument id -> dependent cross ids
}

// NewCrossEngine builds the cross matrix for the requested pairs out of the
// given source instruments, seeded with their latest known prices.
func NewCrossEngine(requested []CrossRequest, instruments []core.Instrument, prices map[string]core.BidAsk) (*CrossEngine, error) {
	e := &CrossEngine{
		crossMatrix: make(map[string]*core.CrossInstrument),
		mapping:     make(map[string]string),
		subscribe:   make(map[string][]string),
	}

	for _, req := range requested {
		left, right, pivot, err := findPair(req.Base, req.Quote, instruments)
		if err != nil {
			return nil, err
		}

		leftPrice, ok := prices[left.ID]
		if !ok {
			return nil, fmt.Errorf("cross engine: missing price for source instrument %s (%s/%s)", left.ID, left.Base, left.Quote)
		}
		rightPrice, ok := prices[right.ID]
		if !ok {
			return nil, fmt.Errorf("cross engine: missing price for source instrument %s (%s/%s)", right.ID, right.Base, right.Quote)
		}

		var pairType core.CrossPairType
		sameSide := left.Base == right.Base || left.Quote == right.Quote
		if sameSide {
			pairType = &core.SameSideCross{Left: leftPrice, Right: rightPrice}
		} else {
			// Orient each leg so left reads (base -> pivot) and right reads
			// (pivot -> quote) before the multiplication in CalculateCross.
			leftReversed := !(left.Base == req.Base && left.Quote == pivot)
			rightReversed := !(right.Base == pivot && right.Quote == req.Quote)
			pairType = &core.DiffSideCross{
				Left:  core.BidAskReverseType{Reversed: leftReversed, Source: leftPrice},
				Right: core.BidAskReverseType{Reversed: rightReversed, Source: rightPrice},
			}
		}

		cross := &core.CrossInstrument{
			ID:     req.Base + req.Quote,
			Base:   req.Base,
			Quote:  req.Quote,
			Prices: pairType,
		}

		key := req.Base + "-" + req.Quote
		e.crossMatrix[cross.ID] = cross
		e.mapping[key] = cross.ID
		e.subscribe[left.ID] = append(e.subscribe[left.ID], cross.ID)
		e.subscribe[right.ID] = append(e.subscribe[right.ID], cross.ID)
	}

	log.Printf("[CrossEngine] initialised %d synthetic cross(es)", len(e.crossMatrix))
	return e, nil
}

// findPair locates two source instruments that together span base and
// quote through a shared pivot currency, oriented so left carries base and
// right carries quote.
func findPair(base, quote string, instruments []core.Instrument) (core.Instrument, core.Instrument, string, error) {
	for _, left := range instruments {
		if left.Base != base && left.Quote != base {
			continue
		}
		pivot := left.Base
		if pivot == base {
			pivot = left.Quote
		}
		for _, right := range instruments {
			if right.ID == left.ID {
				continue
			}
			if (right.Base == quote || right.Quote == quote) && (right.Base == pivot || right.Quote == pivot) {
				return left, right, pivot, nil
			}
		}
	}
	return core.Instrument{}, core.Instrument{}, "", fmt.Errorf("cross engine: no source pair found for %s/%s", base, quote)
}

// HandleBidAsk propagates a fresh tick to every cross that subscribes to it.
func (e *CrossEngine) HandleBidAsk(price core.BidAsk) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, crossID := range e.subscribe[price.AssetPair] {
		if cross, ok := e.crossMatrix[crossID]; ok {
			cross.HandlePrice(price)
		}
	}
}

// GetCross returns the latest synthesised quote for a requested pair.
func (e *CrossEngine) GetCross(base, quote string) (core.BidAsk, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	crossID, ok := e.mapping[base+"-"+quote]
	if !ok {
		return core.BidAsk{}, false
	}
	cross, ok := e.crossMatrix[crossID]
	if !ok {
		return core.BidAsk{}, false
	}
	return cross.GetBidAsk(), true
}
