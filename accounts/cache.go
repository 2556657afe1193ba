// Package accounts implements the accounts cache: the authoritative,
// single-owner store of every trading account and its balance.
package accounts

import (
	"time"

	"github.com/my-cfd-platform/cross-margin-core/coreerr"
	"github.com/my-cfd-platform/cross-margin-core/core"
	"github.com/my-cfd-platform/cross-margin-core/monitoring"
)

// Cache holds every known account, indexed by id and by trader.
type Cache struct {
	byID      map[string]*core.Account
	byTrader  map[string][]string
}

// New builds an empty accounts cache.
func New() *Cache {
	return &Cache{
		byID:     make(map[string]*core.Account),
		byTrader: make(map[string][]string),
	}
}

// Add inserts an account, indexing it under its trader.
func (c *Cache) Add(a *core.Account) {
	c.byID[a.ID] = a
	c.byTrader[a.TraderID] = append(c.byTrader[a.TraderID], a.ID)
	c.report()
}

// Get returns a single account by id.
func (c *Cache) Get(id string) (*core.Account, error) {
	a, ok := c.byID[id]
	if !ok {
		return nil, coreerr.NewAccountNotFound(id)
	}
	return a, nil
}

// GetByTrader returns every account owned by a trader.
func (c *Cache) GetByTrader(traderID string) []*core.Account {
	ids := c.byTrader[traderID]
	out := make([]*core.Account, 0, len(ids))
	for _, id := range ids {
		if a, ok := c.byID[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// GetAll returns every cached account.
func (c *Cache) GetAll() []*core.Account {
	out := make([]*core.Account, 0, len(c.byID))
	for _, a := range c.byID {
		out = append(out, a)
	}
	return out
}

func (c *Cache) report() {
	monitoring.SetAccountsInCache(len(c.byID))
}

// Update applies f to a single account in place, stamping it with the
// process id regardless of whether f reports a change. It returns f's
// yielded value.
func (c *Cache) Update(id, processID string, f func(*core.Account) (any, bool)) (any, error) {
	a, ok := c.byID[id]
	if !ok {
		return nil, coreerr.NewAccountNotFound(id)
	}
	yield, _ := f(a)
	a.TrackUpdate(processID, now())
	return yield, nil
}

// UpdateMany applies f to every account with one of the given ids, each
// stamped with the process id regardless of whether f reports a change.
func (c *Cache) UpdateMany(ids []string, processID string, f func(*core.Account) (any, bool)) ([]any, error) {
	var errs []error
	yields := make([]any, 0, len(ids))
	for _, id := range ids {
		a, ok := c.byID[id]
		if !ok {
			errs = append(errs, coreerr.NewAccountNotFound(id))
			continue
		}
		yield, _ := f(a)
		a.TrackUpdate(processID, now())
		yields = append(yields, yield)
	}
	if len(errs) > 0 {
		return yields, coreerr.NewMultiError(errs)
	}
	return yields, nil
}

// UpdateBalance applies a signed delta to an account's balance. Unless
// allowNegative is set, the update is rejected when it would bring the
// balance below zero; when allowNegative is set the delta is always
// applied, even when the result is negative.
func (c *Cache) UpdateBalance(accountID string, delta float64, processID string, allowNegative bool) (*core.Account, error) {
	a, ok := c.byID[accountID]
	if !ok {
		return nil, coreerr.NewAccountNotFound(accountID)
	}

	next := a.Balance + delta
	if !allowNegative && next < 0 {
		return nil, coreerr.NewNotEnoughBalance(accountID, a.Balance, delta)
	}

	a.Balance = next
	a.TrackUpdate(processID, now())
	return a, nil
}

func now() time.Time { return time.Now() }
