// Package positions implements the generic multi-index cache shared by the
// active and pending position stores.
package positions

import (
	"sync"

	"github.com/my-cfd-platform/cross-margin-core/core"
	"github.com/my-cfd-platform/cross-margin-core/monitoring"
)

// indexSet is a set of position ids, implemented as a map for O(1)
// add/remove.
type indexSet map[string]struct{}

func (s indexSet) add(id string)    { s[id] = struct{}{} }
func (s indexSet) remove(id string) { delete(s, id) }

// Cache is a generic, single-owner, in-memory store of positions keyed by
// id, with five secondary indexes (base, quote, collateral, trader,
// account) maintained incrementally on every mutation.
type Cache[T core.Indexable] struct {
	mu    sync.RWMutex
	ident string // metrics label, e.g. "active_positions" or "pending_orders"

	byID       map[string]T
	byBase     map[string]indexSet
	byQuote    map[string]indexSet
	byCollat   map[string]indexSet
	byTrader   map[string]indexSet
	byAccount  map[string]indexSet
}

// NewCache builds an empty cache. ident labels the gauge metric emitted for
// this cache instance (e.g. "active_positions", "pending_orders").
func NewCache[T core.Indexable](ident string) *Cache[T] {
	return &Cache[T]{
		ident:     ident,
		byID:      make(map[string]T),
		byBase:    make(map[string]indexSet),
		byQuote:   make(map[string]indexSet),
		byCollat:  make(map[string]indexSet),
		byTrader:  make(map[string]indexSet),
		byAccount: make(map[string]indexSet),
	}
}

func (c *Cache[T]) indexOf(key string, idx map[string]indexSet) indexSet {
	set, ok := idx[key]
	if !ok {
		set = make(indexSet)
		idx[key] = set
	}
	return set
}

// Add inserts a position, registering it in every secondary index.
func (c *Cache[T]) Add(p T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := p.GetID()
	c.byID[id] = p
	c.indexOf(p.IndexBase(), c.byBase).add(id)
	c.indexOf(p.IndexQuote(), c.byQuote).add(id)
	c.indexOf(p.IndexCollateral(), c.byCollat).add(id)
	c.indexOf(p.IndexTrader(), c.byTrader).add(id)
	c.indexOf(p.IndexAccount(), c.byAccount).add(id)

	c.reportSize()
}

// Remove deletes a position from the cache and every secondary index.
// It reports whether the position was present.
func (c *Cache[T]) Remove(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(id)
}

func (c *Cache[T]) removeLocked(id string) (T, bool) {
	p, ok := c.byID[id]
	if !ok {
		var zero T
		return zero, false
	}
	delete(c.byID, id)
	c.byBase[p.IndexBase()].remove(id)
	c.byQuote[p.IndexQuote()].remove(id)
	c.byCollat[p.IndexCollateral()].remove(id)
	c.byTrader[p.IndexTrader()].remove(id)
	c.byAccount[p.IndexAccount()].remove(id)

	c.reportSize()
	return p, true
}

// Get returns a single position by id.
func (c *Cache[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byID[id]
	return p, ok
}

// Len returns the number of positions currently cached.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

func (c *Cache[T]) reportSize() {
	monitoring.SetCachePositionsAmount(c.ident, len(c.byID))
}

// Query is a conjunctive (AND) filter: every non-empty field narrows the
// result set, and a field left unset is ignored. Matching against a field
// that is set but has no entries in that index yields an empty result --
// an unindexed value is absence, not a wildcard.
type Query struct {
	Base       string
	Quote      string
	Collateral string
	Trader     string
	Account    string
}

// Query returns every position matching every set field of q.
func (c *Cache[T]) Query(q Query) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var sets []indexSet
	if q.Base != "" {
		sets = append(sets, c.byBase[q.Base])
	}
	if q.Quote != "" {
		sets = append(sets, c.byQuote[q.Quote])
	}
	if q.Collateral != "" {
		sets = append(sets, c.byCollat[q.Collateral])
	}
	if q.Trader != "" {
		sets = append(sets, c.byTrader[q.Trader])
	}
	if q.Account != "" {
		sets = append(sets, c.byAccount[q.Account])
	}

	if len(sets) == 0 {
		return nil
	}

	result := intersect(sets)
	out := make([]T, 0, len(result))
	for id := range result {
		out = append(out, c.byID[id])
	}
	return out
}

// BulkQuery is a disjunctive (OR/union) filter: each non-empty slice
// contributes every position matching any of its values, and the final
// result is the union across fields.
type BulkQuery struct {
	Base       []string
	Quote      []string
	Collateral []string
	Trader     []string
	Account    []string
}

// BulkQuery returns the union of every position matching any value in any
// set field of q.
func (c *Cache[T]) BulkQuery(q BulkQuery) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	union := make(indexSet)
	collect := func(idx map[string]indexSet, values []string) {
		for _, v := range values {
			for id := range idx[v] {
				union.add(id)
			}
		}
	}
	collect(c.byBase, q.Base)
	collect(c.byQuote, q.Quote)
	collect(c.byCollat, q.Collateral)
	collect(c.byTrader, q.Trader)
	collect(c.byAccount, q.Account)

	out := make([]T, 0, len(union))
	for id := range union {
		out = append(out, c.byID[id])
	}
	return out
}

// All returns every cached position.
func (c *Cache[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.allLocked()
}

func (c *Cache[T]) allLocked() []T {
	out := make([]T, 0, len(c.byID))
	for _, p := range c.byID {
		out = append(out, p)
	}
	return out
}

func intersect(sets []indexSet) indexSet {
	if len(sets) == 0 {
		return make(indexSet)
	}
	smallest := sets[0]
	for _, s := range sets[1:] {
		if len(s) < len(smallest) {
			smallest = s
		}
	}
	result := make(indexSet, len(smallest))
	for id := range smallest {
		inAll := true
		for _, s := range sets {
			if _, ok := s[id]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			result.add(id)
		}
	}
	return result
}

// Update applies f to the position with the given id and stores the
// result in place. It reports whether the position existed.
func (c *Cache[T]) Update(id string, f func(T) T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.byID[id]
	if !ok {
		var zero T
		return zero, false
	}
	updated := f(p)
	c.byID[id] = updated
	return updated, true
}

// BulkUpdate applies f to every position with one of the given ids,
// returning the updated positions that existed.
func (c *Cache[T]) BulkUpdate(ids []string, f func(T) T) []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		p, ok := c.byID[id]
		if !ok {
			continue
		}
		updated := f(p)
		c.byID[id] = updated
		out = append(out, updated)
	}
	return out
}

// RemovalResult pairs a removed position with the tag the selector
// assigned it (e.g. a closure reason or a pending outcome).
type RemovalResult[T core.Indexable, R any] struct {
	Position T
	Tag      R
}

// QueryAndSelectRemove scans every position matching q, and for each one
// where selector returns ok, removes it from the cache and collects the
// (position, tag) pair.
func QueryAndSelectRemove[T core.Indexable, R any](c *Cache[T], q Query, selector func(T) (R, bool)) []RemovalResult[T, R] {
	candidates := c.Query(q)

	c.mu.Lock()
	defer c.mu.Unlock()

	var out []RemovalResult[T, R]
	for _, p := range candidates {
		tag, ok := selector(p)
		if !ok {
			continue
		}
		if _, existed := c.removeLocked(p.GetID()); existed {
			out = append(out, RemovalResult[T, R]{Position: p, Tag: tag})
		}
	}
	return out
}
