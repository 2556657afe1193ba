package margin

import (
	"testing"

	"github.com/my-cfd-platform/cross-margin-core/core"
)

func priceLookupStub(prices map[string]core.BidAsk) PriceByID {
	return func(id string) (core.BidAsk, bool) {
		p, ok := prices[id]
		return p, ok
	}
}

func pairLookupStub(pairs map[string]core.BidAsk) PriceByPair {
	return func(base, quote string) (core.BidAsk, bool) {
		p, ok := pairs[base+"-"+quote]
		return p, ok
	}
}

// TestRevalueS1 is the spec's S1 scenario: Buy 1 lot EUR/USD @ 1.10,
// lots_size=100000, tick to bid=1.1100.
func TestRevalueS1(t *testing.T) {
	p := &core.ActivePosition{
		PositionCommon: core.PositionCommon{
			ID: "p1", InstrumentID: "EURUSD", Base: "EUR", Quote: "USD", Collateral: "USD",
			Side: core.Buy, LotsSize: 100000, LotsAmount: 1,
		},
		OpenPrice: 1.10,
	}

	bid := 1.1100
	byID := priceLookupStub(map[string]core.BidAsk{
		"EURUSD": {Bid: bid, Ask: 1.1102},
	})
	byPair := pairLookupStub(map[string]core.BidAsk{
		"USD-USD": {Bid: 1.0, Ask: 1.0},
	})

	if !Revalue(p, byID, byPair) {
		t.Fatalf("expected revaluation to succeed")
	}
	if p.ActivePrice != 1.1100 {
		t.Errorf("active_price = %v, want 1.1100", p.ActivePrice)
	}
	// (1.1100 - 1.10) * 100000 = 1000, evaluated in float64 as Revalue does.
	if got, want := p.PL, (bid-p.OpenPrice)*100000; got != want {
		t.Errorf("pl = %v, want %v", got, want)
	}
}

func TestRevalueSellSide(t *testing.T) {
	p := &core.ActivePosition{
		PositionCommon: core.PositionCommon{
			InstrumentID: "EURUSD", Base: "EUR", Quote: "USD", Collateral: "USD",
			Side: core.Sell, LotsSize: 100000, LotsAmount: 1,
		},
		OpenPrice: 1.10,
	}
	ask := 1.0952
	byID := priceLookupStub(map[string]core.BidAsk{"EURUSD": {Bid: 1.0950, Ask: ask}})
	byPair := pairLookupStub(map[string]core.BidAsk{"USD-USD": {Bid: 1.0, Ask: 1.0}})

	Revalue(p, byID, byPair)
	// close = ask for Sell = 1.0952; open - close = 1.10 - 1.0952 = 0.0048,
	// evaluated in float64 as Revalue does.
	want := (p.OpenPrice - ask) * 100000
	if got := p.PL; got != want {
		t.Errorf("pl = %v, want %v", got, want)
	}
}

func TestRevalueFailsOnMissingPrice(t *testing.T) {
	p := &core.ActivePosition{PositionCommon: core.PositionCommon{InstrumentID: "EURUSD", Quote: "USD", Collateral: "USD"}}
	byID := priceLookupStub(nil)
	byPair := pairLookupStub(nil)

	if Revalue(p, byID, byPair) {
		t.Fatalf("expected revaluation to fail when instrument price is missing")
	}
}

func TestProfitRateChosenFromPreviousPL(t *testing.T) {
	profitBidAsk := core.BidAsk{Bid: 1.0, Ask: 0.99}
	byID := priceLookupStub(map[string]core.BidAsk{"EURUSD": {Bid: 1.10, Ask: 1.1002}})
	byPair := pairLookupStub(map[string]core.BidAsk{"USD-USD": profitBidAsk})

	positive := &core.ActivePosition{
		PositionCommon: core.PositionCommon{InstrumentID: "EURUSD", Quote: "USD", Collateral: "USD", Side: core.Buy, LotsSize: 1, LotsAmount: 1},
		PL:             500,
	}
	Revalue(positive, byID, byPair)
	if positive.ProfitPrice != profitBidAsk.Bid {
		t.Errorf("expected bid rate when previous pl > 0, got %v", positive.ProfitPrice)
	}

	negative := &core.ActivePosition{
		PositionCommon: core.PositionCommon{InstrumentID: "EURUSD", Quote: "USD", Collateral: "USD", Side: core.Buy, LotsSize: 1, LotsAmount: 1},
		PL:             -500,
	}
	Revalue(negative, byID, byPair)
	if negative.ProfitPrice != profitBidAsk.Ask {
		t.Errorf("expected ask rate when previous pl <= 0, got %v", negative.ProfitPrice)
	}
}

// TestHedgedMarginS6 is the spec's S6 scenario: one Buy 2 lots, one Sell 3
// lots, same instrument, same margin rate r, leverage L, contract size C.
func TestHedgedMarginS6(t *testing.T) {
	const r, L, C = 0.02, 100.0, 100000.0

	account := &core.Account{Leverage: L}
	buy := &core.ActivePosition{
		PositionCommon: core.PositionCommon{InstrumentID: "EURUSD", Side: core.Buy, LotsAmount: 2, LotsSize: C},
		MarginPrice:    r,
	}
	sell := &core.ActivePosition{
		PositionCommon: core.PositionCommon{InstrumentID: "EURUSD", Side: core.Sell, LotsAmount: 3, LotsSize: C},
		MarginPrice:    r,
	}

	got := CalculateMargin(account, []*core.ActivePosition{buy, sell})

	// Hedged: buy's full 2 lots hedge fully (buy_hedge starts at min(2,3)=2);
	// sell's 3 lots: 2 hedge, 1 unhedged. 2 hedged slices (buy 2, sell 2),
	// avg_rate = r (both at rate r). hedged = (C*2/L*r + C*2/L*r)/2.
	hedgedSum := C*2/L*r + C*2/L*r
	hedgedMargin := hedgedSum / 2
	unhedgedMargin := C * 1 / L * r
	want := hedgedMargin + unhedgedMargin

	if got != want {
		t.Errorf("CalculateMargin = %v, want %v", got, want)
	}
}

func TestUnhedgedMarginIsPlainSum(t *testing.T) {
	account := &core.Account{Leverage: 100}
	p1 := &core.ActivePosition{
		PositionCommon: core.PositionCommon{InstrumentID: "EURUSD", Side: core.Buy, LotsAmount: 1, LotsSize: 100000},
		MarginPrice:    0.01,
	}
	p2 := &core.ActivePosition{
		PositionCommon: core.PositionCommon{InstrumentID: "EURUSD", Side: core.Buy, LotsAmount: 2, LotsSize: 100000},
		MarginPrice:    0.01,
	}

	got := CalculateMargin(account, []*core.ActivePosition{p1, p2})
	want := 100000*1/100.0*0.01 + 100000*2/100.0*0.01
	if got != want {
		t.Errorf("CalculateMargin = %v, want %v", got, want)
	}
}

func TestInstrumentLeverageOverride(t *testing.T) {
	account := &core.Account{Leverage: 100, InstrumentsLeverages: map[string]float64{"EURUSD": 50}}
	if got := account.InstrumentLeverage("EURUSD"); got != 50 {
		t.Errorf("expected override 50, got %v", got)
	}
	if got := account.InstrumentLeverage("GBPUSD"); got != 100 {
		t.Errorf("expected account leverage 100 for no override, got %v", got)
	}
}

func TestMarginLevelBoundary(t *testing.T) {
	account := &core.Account{Balance: 1000}
	calc := CalculateAccountData(account, nil)
	if calc.MarginLevel != 0 {
		t.Errorf("expected margin_level 0 when margin < 1e-4, got %v", calc.MarginLevel)
	}
}

func TestStopOutDetection(t *testing.T) {
	account := &core.Account{StopOut: 50}
	hit := IsAccountStopOutHit(account, core.AccountCalculationResult{Margin: 100, MarginLevel: 50})
	if !hit {
		t.Errorf("expected stop-out hit at margin_level == stop_out")
	}
	notHit := IsAccountStopOutHit(account, core.AccountCalculationResult{Margin: 100, MarginLevel: 51})
	if notHit {
		t.Errorf("expected no stop-out above threshold")
	}
}

// TestStopOutDetectionZeroMargin matches the Rust source directly: it
// compares margin_level <= stop_out with no margin-size guard, so a
// zero-margin account (no open positions) is hit whenever stop_out >= 0.
func TestStopOutDetectionZeroMargin(t *testing.T) {
	account := &core.Account{StopOut: 20}
	hit := IsAccountStopOutHit(account, core.AccountCalculationResult{Margin: 0, MarginLevel: 0})
	if !hit {
		t.Errorf("expected margin_level 0 <= stop_out 20 to be a hit")
	}
}

func TestWorstPositionTieBreakFirstSeen(t *testing.T) {
	a := &core.ActivePosition{PositionCommon: core.PositionCommon{ID: "a"}, PL: -100}
	b := &core.ActivePosition{PositionCommon: core.PositionCommon{ID: "b"}, PL: -100}

	worst, ok := WorstPosition([]*core.ActivePosition{a, b})
	if !ok || worst.ID != "a" {
		t.Errorf("expected first-seen tie-break to pick a, got %+v", worst)
	}
}

func TestPreTradeCheckExactFreeMarginPasses(t *testing.T) {
	account := &core.Account{Leverage: 100, Currency: "USD"}
	byPair := pairLookupStub(map[string]core.BidAsk{"EUR-USD": {Bid: 1.10, Ask: 1.1002}})

	lotsSize, lotsAmount := 100000.0, 1.0
	rate := 1.1002
	mbase := lotsSize * lotsAmount / 100 * rate
	required := lotsSize * lotsAmount / 100 * mbase

	existing := core.AccountCalculationResult{FreeMargin: required}

	ok, err := IsEnoughBalanceToOpenPosition(account, existing, "EURUSD", "EUR", lotsSize, lotsAmount, byPair)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("expected free_margin == required to pass")
	}
}
