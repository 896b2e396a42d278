// Package marketdata supplies prices to the trading and settlement
// paths: a last-known-value cache fed by the NATS tick stream, and
// frozen per-contest snapshots so settlement retries always price at
// the same instant.
package marketdata

import (
	"sync"

	"github.com/Raman-Maurya/mystartup-sub001/errs"
)

// Cache holds the last observed price per symbol, in cents. Reads
// during an outage serve the last known value; a symbol that has never
// ticked reports no price.
type Cache struct {
	mu     sync.RWMutex
	prices map[string]int64
}

func NewCache() *Cache {
	return &Cache{prices: make(map[string]int64)}
}

// Set records a tick. Non-positive prices are dropped at the feed edge,
// so the cache never holds one.
func (c *Cache) Set(symbol string, price int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[symbol] = price
}

// Get returns the last known price for a symbol.
func (c *Cache) Get(symbol string) (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.prices[symbol]
	return p, ok
}

// Price is Get with an error for callers that cannot proceed without a
// quote, such as trade execution.
func (c *Cache) Price(symbol string) (int64, error) {
	p, ok := c.Get(symbol)
	if !ok {
		return 0, errs.New(errs.KindUnavailable, "no price observed for symbol %s", symbol)
	}
	return p, nil
}

// Symbols returns every symbol with a known price.
func (c *Cache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.prices))
	for s := range c.prices {
		out = append(out, s)
	}
	return out
}
