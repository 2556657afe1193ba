package prices

import (
	"testing"

	"github.com/my-cfd-platform/cross-margin-core/core"
)

func testInstruments() []core.Instrument {
	return []core.Instrument{
		{ID: "EURUSD", Base: "EUR", Quote: "USD"},
		{ID: "USDJPY", Base: "USD", Quote: "JPY"},
		{ID: "GBPUSD", Base: "GBP", Quote: "USD"},
	}
}

func testPrices() []core.BidAsk {
	return []core.BidAsk{
		{AssetPair: "EURUSD", Bid: 1.1000, Ask: 1.1002, Base: "EUR", Quote: "USD"},
		{AssetPair: "USDJPY", Bid: 157.00, Ask: 157.03, Base: "USD", Quote: "JPY"},
		{AssetPair: "GBPUSD", Bid: 1.2500, Ask: 1.2504, Base: "GBP", Quote: "USD"},
	}
}

func TestGetPriceUnitQuote(t *testing.T) {
	cache, err := NewBidAskCache(nil, testInstruments(), testPrices())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ba, ok := cache.GetPrice("USD", "USD")
	if !ok || ba.Bid != 1.0 || ba.Ask != 1.0 {
		t.Fatalf("expected unit quote, got %+v ok=%v", ba, ok)
	}
}

func TestGetPriceDirectAndInverse(t *testing.T) {
	cache, err := NewBidAskCache(nil, testInstruments(), testPrices())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	direct, ok := cache.GetPrice("EUR", "USD")
	if !ok {
		t.Fatalf("expected direct quote to resolve")
	}

	inverse, ok := cache.GetPrice("USD", "EUR")
	if !ok {
		t.Fatalf("expected inverse quote to resolve")
	}

	if got, want := inverse.Bid, 1.0/direct.Ask; got != want {
		t.Errorf("inverse.Bid = %v, want %v", got, want)
	}
	if got, want := inverse.Ask, 1.0/direct.Bid; got != want {
		t.Errorf("inverse.Ask = %v, want %v", got, want)
	}
}

func TestGetPriceDiffSideCross(t *testing.T) {
	requested := []CrossRequest{{Base: "EUR", Quote: "JPY"}}
	cache, err := NewBidAskCache(requested, testInstruments(), testPrices())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cross, ok := cache.GetPrice("EUR", "JPY")
	if !ok {
		t.Fatalf("expected EUR/JPY cross to resolve")
	}

	eurusd, _ := cache.GetByID("EURUSD")
	usdjpy, _ := cache.GetByID("USDJPY")
	if got, want := cross.Bid, eurusd.Bid*usdjpy.Bid; got != want {
		t.Errorf("cross.Bid = %v, want %v", got, want)
	}
}

func TestGetPriceSameSideCross(t *testing.T) {
	requested := []CrossRequest{{Base: "EUR", Quote: "GBP"}}
	cache, err := NewBidAskCache(requested, testInstruments(), testPrices())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cross, ok := cache.GetPrice("EUR", "GBP")
	if !ok {
		t.Fatalf("expected EUR/GBP cross to resolve")
	}

	eurusd, _ := cache.GetByID("EURUSD")
	gbpusd, _ := cache.GetByID("GBPUSD")
	if got, want := cross.Bid, eurusd.Bid/gbpusd.Ask; got != want {
		t.Errorf("cross.Bid = %v, want %v", got, want)
	}
}

func TestHandleNewPropagatesToCross(t *testing.T) {
	requested := []CrossRequest{{Base: "EUR", Quote: "JPY"}}
	cache, err := NewBidAskCache(requested, testInstruments(), testPrices())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before, _ := cache.GetPrice("EUR", "JPY")

	cache.HandleNew(core.BidAsk{AssetPair: "EURUSD", Bid: 1.2000, Ask: 1.2002, Base: "EUR", Quote: "USD"})

	after, _ := cache.GetPrice("EUR", "JPY")
	if after.Bid == before.Bid {
		t.Fatalf("expected cross quote to refresh after a source tick")
	}
}

func TestGetPriceNotFound(t *testing.T) {
	cache, err := NewBidAskCache(nil, testInstruments(), testPrices())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := cache.GetPrice("XAU", "CHF"); ok {
		t.Fatalf("expected lookup with no source pair to fail")
	}
}
