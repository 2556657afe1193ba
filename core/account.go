package core

import "time"

// Account is a margin trading account: the authoritative balance and risk
// configuration against which every position's margin is measured.
type Account struct {
	ID                   string
	TraderID             string
	Currency             string
	Balance              float64
	StopOut              float64 // margin-level percent threshold
	Leverage             float64
	InstrumentsLeverages map[string]float64 // instrument id -> override leverage
	TradingDisabled      bool
	TradingGroup         string
	LastProcessID        string
	LastUpdate           time.Time
}

// InstrumentLeverage returns the effective leverage for an instrument:
// min(override, account leverage) if an override is configured, else the
// account leverage.
func (a *Account) InstrumentLeverage(instrumentID string) float64 {
	if override, ok := a.InstrumentsLeverages[instrumentID]; ok {
		if override < a.Leverage {
			return override
		}
		return a.Leverage
	}
	return a.Leverage
}

// TrackUpdate stamps the account with the process that last touched it.
func (a *Account) TrackUpdate(processID string, at time.Time) {
	a.LastProcessID = processID
	a.LastUpdate = at
}

// AccountCalculationResult is the output of evaluating an account's margin
// state against a snapshot of its active positions.
type AccountCalculationResult struct {
	Margin      float64
	Equity      float64
	FreeMargin  float64
	MarginLevel float64
}
