// Package aggregate wires the price cache, cross engine, position caches
// and accounts cache into the single entry point that drives a tick
// through the whole system: Aggregate.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/my-cfd-platform/cross-margin-core/accounts"
	"github.com/my-cfd-platform/cross-margin-core/core"
	"github.com/my-cfd-platform/cross-margin-core/coreerr"
	"github.com/my-cfd-platform/cross-margin-core/margin"
	"github.com/my-cfd-platform/cross-margin-core/monitoring"
	"github.com/my-cfd-platform/cross-margin-core/positions"
	"github.com/my-cfd-platform/cross-margin-core/prices"
)

// Aggregate is the single-owner, single-threaded core. Every method acts
// synchronously and leaves all caches in a consistent state before
// returning; callers that need concurrent access must serialise calls
// themselves.
type Aggregate struct {
	prices   *prices.BidAskCache
	active   *positions.Cache[*core.ActivePosition]
	pending  *positions.Cache[*core.PendingPosition]
	accounts *accounts.Cache
}

// ClosedPosition pairs a removed active position with why it closed.
type ClosedPosition struct {
	Position *core.ActivePosition
	Reason   core.ClosureReason
}

// FailedPending pairs a pending order with the outcome it resolved to
// outside of a successful execution.
type FailedPending struct {
	Position *core.PendingPosition
	Reason   core.PendingOutcome
}

// TickResult is the full batched outcome of one handle_bid_ask call.
type TickResult struct {
	Closed   []ClosedPosition
	Executed []*core.PendingPosition
	Failed   []FailedPending
}

// New constructs an Aggregate from its bootstrap state. For every
// (instrument, collateral) pair where the instrument's base (or quote)
// differs from the collateral currency and no instrument quotes that pair
// directly or inverted, a synthetic cross is registered so that
// revaluation can always resolve a profit-leg rate. Construction
// fails with a MultiError if any active position cannot be revalued from
// the supplied prices.
func New(
	accts []*core.Account,
	activePositions []*core.ActivePosition,
	pendingPositions []*core.PendingPosition,
	instruments []core.Instrument,
	collaterals []string,
	seedPrices []core.BidAsk,
) (*Aggregate, error) {
	requested := requiredCrosses(instruments, collaterals)

	priceCache, err := prices.NewBidAskCache(requested, instruments, seedPrices)
	if err != nil {
		return nil, err
	}

	acctCache := accounts.New()
	for _, a := range accts {
		acctCache.Add(a)
	}

	activeCache := positions.NewCache[*core.ActivePosition]("active_positions")
	pendingCache := positions.NewCache[*core.PendingPosition]("pending_orders")
	for _, p := range pendingPositions {
		pendingCache.Add(p)
	}

	var errs []error
	for _, p := range activePositions {
		if !margin.Revalue(p, priceCache.GetByID, priceCache.GetPrice) {
			errs = append(errs, coreerr.NewAssetNotFound(p.Base, p.Quote, p.ID))
			continue
		}
		activeCache.Add(p)
	}
	if len(errs) > 0 {
		return nil, coreerr.NewMultiError(errs)
	}

	return &Aggregate{
		prices:   priceCache,
		active:   activeCache,
		pending:  pendingCache,
		accounts: acctCache,
	}, nil
}

func requiredCrosses(instruments []core.Instrument, collaterals []string) []prices.CrossRequest {
	direct := make(map[string]struct{}, 2*len(instruments))
	for _, inst := range instruments {
		direct[inst.Base+"-"+inst.Quote] = struct{}{}
		direct[inst.Quote+"-"+inst.Base] = struct{}{}
	}
	seen := make(map[string]struct{})
	var out []prices.CrossRequest
	add := func(a, b string) {
		if a == b {
			return
		}
		key := a + "-" + b
		if _, ok := direct[key]; ok {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, prices.CrossRequest{Base: a, Quote: b})
	}
	for _, inst := range instruments {
		for _, collateral := range collaterals {
			if inst.Base != collateral {
				add(inst.Base, collateral)
			}
			if inst.Quote != collateral {
				add(inst.Quote, collateral)
			}
		}
	}
	return out
}

// HandleBidAsk runs one tick through the full pipeline: store the price,
// revalue every affected active position, settle and close triggered
// positions, detect and settle stop-outs on touched accounts, and evaluate
// pending orders for the exact updated pair.
func (a *Aggregate) HandleBidAsk(ba core.BidAsk, processID string) (TickResult, error) {
	start := time.Now()
	var result TickResult

	a.prices.HandleNew(ba)

	candidates := a.active.BulkQuery(positions.BulkQuery{
		Base:       []string{ba.Base, ba.Quote},
		Quote:      []string{ba.Base, ba.Quote},
		Collateral: []string{ba.Base, ba.Quote},
	})

	for _, p := range candidates {
		if _, ok := a.prices.GetByID(p.InstrumentID); !ok {
			err := coreerr.NewAssetNotFound(p.Base, p.Quote, p.ID)
			monitoring.RecordOrchestratorError(errorKind(err))
			return TickResult{}, err
		}
		if _, ok := a.prices.GetPrice(p.Quote, p.Collateral); !ok {
			err := coreerr.NewAssetNotFound(p.Quote, p.Collateral, p.ID)
			monitoring.RecordOrchestratorError(errorKind(err))
			return TickResult{}, err
		}
	}

	touchedAccounts := make(map[string]struct{})
	for _, p := range candidates {
		margin.Revalue(p, a.prices.GetByID, a.prices.GetPrice)
		touchedAccounts[p.AccountID] = struct{}{}

		if reason, closing := p.GetCloseReason(); closing {
			if _, ok := a.active.Remove(p.ID); ok {
				a.settle(p, processID)
				result.Closed = append(result.Closed, ClosedPosition{Position: p, Reason: reason})
			}
		}
	}

	for accountID := range touchedAccounts {
		account, err := a.accounts.Get(accountID)
		if err != nil {
			continue
		}
		remaining := a.active.Query(positions.Query{Account: accountID})
		calc := margin.CalculateAccountData(account, remaining)
		if !margin.IsAccountStopOutHit(account, calc) {
			continue
		}
		worst, ok := margin.WorstPosition(remaining)
		if !ok {
			continue
		}
		if _, removed := a.active.Remove(worst.ID); removed {
			a.settle(worst, processID)
			result.Closed = append(result.Closed, ClosedPosition{Position: worst, Reason: core.ClosureStopOut})
		}
	}

	pendingCandidates := a.pending.Query(positions.Query{Base: ba.Base, Quote: ba.Quote})
	for _, p := range pendingCandidates {
		openPrice := ba.GetOpenPrice(p.OrderSide())
		if !p.IsReadyToExecute(openPrice) {
			continue
		}

		account, err := a.accounts.Get(p.AccountID)
		if err != nil {
			a.pending.Remove(p.ID)
			result.Failed = append(result.Failed, FailedPending{Position: p, Reason: core.Rejected})
			continue
		}

		existingActive := a.active.Query(positions.Query{Account: p.AccountID})
		calc := margin.CalculateAccountData(account, existingActive)

		ok2, err := margin.IsEnoughBalanceToOpenPosition(account, calc, p.InstrumentID, p.Base, p.LotsSize, p.LotsAmount, a.prices.GetPrice)
		if err != nil {
			a.pending.Remove(p.ID)
			result.Failed = append(result.Failed, FailedPending{Position: p, Reason: core.Rejected})
			continue
		}
		if !ok2 {
			// Trigger fired but free margin is insufficient: left in the
			// cache, not reported in any list, eligible to retry on the
			// next tick.
			continue
		}

		a.pending.Remove(p.ID)
		result.Executed = append(result.Executed, p)
	}

	closedReasons := make([]string, 0, len(result.Closed))
	for _, c := range result.Closed {
		closedReasons = append(closedReasons, c.Reason.String())
	}
	pendingOutcomes := make([]string, 0, len(result.Executed)+len(result.Failed))
	for range result.Executed {
		pendingOutcomes = append(pendingOutcomes, core.Executed.String())
	}
	for _, f := range result.Failed {
		pendingOutcomes = append(pendingOutcomes, f.Reason.String())
	}
	monitoring.RecordTick(float64(time.Since(start).Microseconds())/1000.0, closedReasons, pendingOutcomes)

	return result, nil
}

func errorKind(err error) string {
	if kind, ok := coreerr.KindOf(err); ok {
		return kind.String()
	}
	return "unknown"
}

func (a *Aggregate) settle(p *core.ActivePosition, processID string) {
	_, _ = a.accounts.UpdateBalance(p.AccountID, p.PL, processID, true)
}

// AddActivePosition inserts a new active position. The caller is
// responsible for the pre-trade margin check via
// IsEnoughBalanceToOpenPosition before calling this.
func (a *Aggregate) AddActivePosition(p *core.ActivePosition) {
	a.active.Add(p)
}

// RemoveActivePosition removes a position by id, settles its pl against
// the owning account and returns the removed position and the account
// afterward.
func (a *Aggregate) RemoveActivePosition(id, processID string) (*core.ActivePosition, *core.Account, error) {
	p, ok := a.active.Remove(id)
	if !ok {
		err := coreerr.NewPositionNotFound(id)
		monitoring.RecordOrchestratorError(errorKind(err))
		return nil, nil, err
	}
	a.settle(p, processID)
	acct, err := a.accounts.Get(p.AccountID)
	if err != nil {
		monitoring.RecordOrchestratorError(errorKind(err))
		return p, nil, err
	}
	return p, acct, nil
}

// RemoveActivePositions removes a batch of positions, each tagged with its
// closure reason, and settles every one.
func (a *Aggregate) RemoveActivePositions(idsWithReasons map[string]core.ClosureReason, processID string) []ClosedPosition {
	out := make([]ClosedPosition, 0, len(idsWithReasons))
	for id, reason := range idsWithReasons {
		p, ok := a.active.Remove(id)
		if !ok {
			continue
		}
		a.settle(p, processID)
		out = append(out, ClosedPosition{Position: p, Reason: reason})
	}
	return out
}

// AddAccount inserts a new account into the cache.
func (a *Aggregate) AddAccount(acct *core.Account) {
	a.accounts.Add(acct)
}

// UpdateBalance applies a signed delta to an account's balance.
func (a *Aggregate) UpdateBalance(accountID string, delta float64, processID string, allowNegative bool) (*core.Account, error) {
	acct, err := a.accounts.UpdateBalance(accountID, delta, processID, allowNegative)
	if err != nil {
		monitoring.RecordOrchestratorError(errorKind(err))
	}
	return acct, err
}

// UpdateTradingDisabled flips an account's trading-disabled flag.
func (a *Aggregate) UpdateTradingDisabled(accountID string, disabled bool, processID string) error {
	_, err := a.accounts.Update(accountID, processID, func(acct *core.Account) (any, bool) {
		acct.TradingDisabled = disabled
		return nil, true
	})
	return err
}

// UpdateTradingGroup reassigns an account's trading group.
func (a *Aggregate) UpdateTradingGroup(accountID, group, processID string) error {
	_, err := a.accounts.Update(accountID, processID, func(acct *core.Account) (any, bool) {
		acct.TradingGroup = group
		return nil, true
	})
	return err
}

// UpdateLeverage sets an account's base leverage.
func (a *Aggregate) UpdateLeverage(accountID string, leverage float64, processID string) error {
	_, err := a.accounts.Update(accountID, processID, func(acct *core.Account) (any, bool) {
		acct.Leverage = leverage
		return nil, true
	})
	return err
}

// GetAccount returns a single account by id.
func (a *Aggregate) GetAccount(id string) (*core.Account, error) { return a.accounts.Get(id) }

// GetAccounts returns every account whose id is in ids.
func (a *Aggregate) GetAccounts(ids []string) []*core.Account {
	out := make([]*core.Account, 0, len(ids))
	for _, id := range ids {
		if acct, err := a.accounts.Get(id); err == nil {
			out = append(out, acct)
		}
	}
	return out
}

// GetTraderAccounts returns every account owned by a trader.
func (a *Aggregate) GetTraderAccounts(traderID string) []*core.Account {
	return a.accounts.GetByTrader(traderID)
}

// GetAllAccounts returns every cached account.
func (a *Aggregate) GetAllAccounts() []*core.Account { return a.accounts.GetAll() }

// GetActivePosition returns a single active position by id.
func (a *Aggregate) GetActivePosition(id string) (*core.ActivePosition, bool) {
	return a.active.Get(id)
}

// QueryPositions runs a conjunctive query against the active positions cache.
func (a *Aggregate) QueryPositions(q positions.Query) []*core.ActivePosition {
	return a.active.Query(q)
}

// BulkQueryPositions runs a disjunctive query against the active positions cache.
func (a *Aggregate) BulkQueryPositions(q positions.BulkQuery) []*core.ActivePosition {
	return a.active.BulkQuery(q)
}

// GetPrice resolves the quote for a base/quote pair.
func (a *Aggregate) GetPrice(base, quote string) (core.BidAsk, bool) {
	return a.prices.GetPrice(base, quote)
}

// IsEnoughBalanceToOpenPosition runs the pre-trade margin check for a
// prospective new position.
func (a *Aggregate) IsEnoughBalanceToOpenPosition(accountID string, lotsSize, lotsAmount float64, base, instrumentID string) (bool, error) {
	account, err := a.accounts.Get(accountID)
	if err != nil {
		return false, err
	}
	existing := a.active.Query(positions.Query{Account: accountID})
	calc := margin.CalculateAccountData(account, existing)
	return margin.IsEnoughBalanceToOpenPosition(account, calc, instrumentID, base, lotsSize, lotsAmount, a.prices.GetPrice)
}

// IsEnoughBalanceToOpenPositionAsync is the async-flavoured variant of
// IsEnoughBalanceToOpenPosition. It contains no suspension point and exists
// purely for call-site ergonomics in an async surrounding service.
func (a *Aggregate) IsEnoughBalanceToOpenPositionAsync(ctx context.Context, accountID string, lotsSize, lotsAmount float64, base, instrumentID string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("is enough balance check: %w", ctx.Err())
	default:
		return a.IsEnoughBalanceToOpenPosition(accountID, lotsSize, lotsAmount, base, instrumentID)
	}
}
