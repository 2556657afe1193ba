// Package margin implements the pure calculation layer shared by the
// orchestrator: position revaluation, hedged margin, account aggregates,
// stop-out detection and the pre-trade balance check.
package margin

import (
	"github.com/my-cfd-platform/cross-margin-core/core"
	"github.com/my-cfd-platform/cross-margin-core/coreerr"
)

// PriceByID resolves the quote for an exact source instrument id, as a
// position's active leg is pinned to the quoted instrument it opened
// against rather than resolved by (base, quote).
type PriceByID func(instrumentID string) (core.BidAsk, bool)

// PriceByPair resolves the quote for a (base, quote) pair, inverting or
// synthesising as needed, as provided by the price cache's GetPrice.
type PriceByPair func(base, quote string) (core.BidAsk, bool)

// Revalue recomputes a position's active/profit/margin prices and its pl
// from the latest quotes. The rate used to convert gross profit into the
// account's currency is chosen from the position's previous pl, not the
// newly computed gross. It reports false, leaving the position untouched,
// if either required quote is unavailable.
func Revalue(p *core.ActivePosition, byID PriceByID, byPair PriceByPair) bool {
	instrumentPrice, ok := byID(p.InstrumentID)
	if !ok {
		return false
	}
	profitBidAsk, ok := byPair(p.Quote, p.Collateral)
	if !ok {
		return false
	}

	active := instrumentPrice.GetClosePrice(p.Side)

	var gross float64
	if p.Side == core.Buy {
		gross = (active - p.OpenPrice) * p.LotsSize * p.LotsAmount
	} else {
		gross = (p.OpenPrice - active) * p.LotsSize * p.LotsAmount
	}

	profitRate := profitBidAsk.Ask
	if p.PL > 0 {
		profitRate = profitBidAsk.Bid
	}

	p.ActivePrice = active
	p.ProfitPrice = profitRate
	p.PL = gross * profitRate
	return true
}

type marginSlice struct {
	lotsAmount   float64
	contractSize float64
	leverage     float64
	marginRate   float64
}

// CalculateMargin computes required margin across a set of positions for a
// single account, grouping by instrument and applying hedged-margin netting
// when both buy and sell lots exist for an instrument.
func CalculateMargin(account *core.Account, positions []*core.ActivePosition) float64 {
	byInstrument := make(map[string][]*core.ActivePosition)
	order := make([]string, 0)
	for _, p := range positions {
		if _, ok := byInstrument[p.InstrumentID]; !ok {
			order = append(order, p.InstrumentID)
		}
		byInstrument[p.InstrumentID] = append(byInstrument[p.InstrumentID], p)
	}

	var total float64
	for _, instrumentID := range order {
		total += instrumentMargin(account, byInstrument[instrumentID])
	}
	return total
}

func instrumentMargin(account *core.Account, group []*core.ActivePosition) float64 {
	var buyLots, sellLots float64
	for _, p := range group {
		if p.Side == core.Buy {
			buyLots += p.LotsAmount
		} else {
			sellLots += p.LotsAmount
		}
	}

	if buyLots == 0 || sellLots == 0 {
		var total float64
		for _, p := range group {
			leverage := account.InstrumentLeverage(p.InstrumentID)
			total += p.LotsSize * p.LotsAmount / leverage * p.MarginPrice
		}
		return total
	}

	hedgeUnit := buyLots
	if sellLots < hedgeUnit {
		hedgeUnit = sellLots
	}
	buyHedge, sellHedge := hedgeUnit, hedgeUnit

	var hedgedSlices, unhedgedSlices []marginSlice
	for _, p := range group {
		leverage := account.InstrumentLeverage(p.InstrumentID)
		q := p.LotsAmount

		var hedgeCounter *float64
		if p.Side == core.Buy {
			hedgeCounter = &buyHedge
		} else {
			hedgeCounter = &sellHedge
		}

		if *hedgeCounter < q {
			hedgedSlices = append(hedgedSlices, marginSlice{
				lotsAmount: *hedgeCounter, contractSize: p.LotsSize,
				leverage: leverage, marginRate: p.MarginPrice,
			})
			unhedgedSlices = append(unhedgedSlices, marginSlice{
				lotsAmount: q - *hedgeCounter, contractSize: p.LotsSize,
				leverage: leverage, marginRate: p.MarginPrice,
			})
			*hedgeCounter = 0
		} else {
			hedgedSlices = append(hedgedSlices, marginSlice{
				lotsAmount: q, contractSize: p.LotsSize,
				leverage: leverage, marginRate: p.MarginPrice,
			})
			*hedgeCounter -= q
		}
	}

	var unhedgedMargin float64
	for _, s := range unhedgedSlices {
		unhedgedMargin += s.contractSize * s.lotsAmount / s.leverage * s.marginRate
	}

	if len(hedgedSlices) == 0 {
		return unhedgedMargin
	}

	var rateSum float64
	for _, s := range hedgedSlices {
		rateSum += s.marginRate
	}
	avgRate := rateSum / float64(len(hedgedSlices))

	var hedgedSum float64
	for _, s := range hedgedSlices {
		hedgedSum += s.contractSize * s.lotsAmount / s.leverage * avgRate
	}
	// Preserved verbatim: divided by the slice count a second time, on top
	// of the averaging already folded into avgRate.
	hedgedMargin := hedgedSum / float64(len(hedgedSlices))

	return unhedgedMargin + hedgedMargin
}

// CalculateAccountData aggregates margin, equity, free margin and margin
// level for an account from its current positions.
func CalculateAccountData(account *core.Account, positions []*core.ActivePosition) core.AccountCalculationResult {
	margin := CalculateMargin(account, positions)

	var pl float64
	for _, p := range positions {
		pl += p.PL
	}

	equity := account.Balance + pl
	free := equity - margin

	level := 0.0
	if margin >= 1e-4 {
		level = equity / margin * 100
	}

	return core.AccountCalculationResult{
		Margin:      margin,
		Equity:      equity,
		FreeMargin:  free,
		MarginLevel: level,
	}
}

// IsAccountStopOutHit reports whether an account's margin level has
// breached its stop-out threshold.
func IsAccountStopOutHit(account *core.Account, result core.AccountCalculationResult) bool {
	return result.MarginLevel <= account.StopOut
}

// WorstPosition returns the position with the lowest pl, the one a stop-out
// closes first. Ties are broken by iteration order (first seen wins).
func WorstPosition(positions []*core.ActivePosition) (*core.ActivePosition, bool) {
	if len(positions) == 0 {
		return nil, false
	}
	worst := positions[0]
	for _, p := range positions[1:] {
		if p.PL < worst.PL {
			worst = p
		}
	}
	return worst, true
}

// IsEnoughBalanceToOpenPosition implements the pre-trade margin check: the
// new position's required margin is estimated against the account's
// current free margin. Preserved verbatim: mbase is itself a margin-like
// quantity, and required re-applies the lots_size*lots_amount/leverage
// factor to it, making the required margin scale with the square of
// notional size rather than linearly.
func IsEnoughBalanceToOpenPosition(account *core.Account, existing core.AccountCalculationResult, instrumentID, base string, lotsSize, lotsAmount float64, byPair PriceByPair) (bool, error) {
	leverage := account.InstrumentLeverage(instrumentID)

	quote, ok := byPair(base, account.Currency)
	if !ok {
		return false, coreerr.NewAssetNotFound(base, account.Currency, instrumentID)
	}
	rate := quote.GetOpenPrice(core.Buy)

	mbase := lotsSize * lotsAmount / leverage * rate
	required := lotsSize * lotsAmount / leverage * mbase

	return existing.FreeMargin >= required, nil
}
