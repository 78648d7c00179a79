package legal

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// RESOLUTION
// =============================================================================

// Resolution is the outcome of one lookup.
type Resolution struct {
	Key      Key
	On       generic.Date
	Value    decimal.Decimal
	Fallback bool       // true when no row applied and the fallback table answered
	Source   *Parameter // the winning row, nil on fallback
}

// FallbackObserver is notified whenever a lookup is answered by the fallback table.
type FallbackObserver interface {
	ParameterFallback(key Key, on generic.Date)
}

// FallbackObserverFunc adapts a function to FallbackObserver.
type FallbackObserverFunc func(key Key, on generic.Date)

func (f FallbackObserverFunc) ParameterFallback(key Key, on generic.Date) { f(key, on) }

// =============================================================================
// RESOLVER
// =============================================================================

// Resolver looks legal constants up by key and effective date.
type Resolver struct {
	store    Store
	observer FallbackObserver
}

// NewResolver creates a resolver. observer may be nil.
func NewResolver(store Store, observer FallbackObserver) *Resolver {
	return &Resolver{store: store, observer: observer}
}

// Resolve returns the value of key in force on date.
func (r *Resolver) Resolve(ctx context.Context, key Key, on generic.Date) (decimal.Decimal, error) {
	res, err := r.Lookup(ctx, key, on)
	if err != nil {
		return decimal.Zero, err
	}
	return res.Value, nil
}

// Lookup is Resolve with provenance.
func (r *Resolver) Lookup(ctx context.Context, key Key, on generic.Date) (Resolution, error) {
	fallback, known := fallbackValue(key)
	if !known {
		return Resolution{}, &generic.ValidationError{Field: "key", Message: fmt.Sprintf("unknown legal parameter %q", key)}
	}

	rows, err := r.store.ParametersByKey(ctx, key)
	if err != nil {
		return Resolution{}, fmt.Errorf("load legal parameter %s: %w", key, err)
	}

	if winner, ok := pick(rows, on); ok {
		return Resolution{Key: key, On: on, Value: winner.Value, Source: &winner}, nil
	}

	if r.observer != nil {
		r.observer.ParameterFallback(key, on)
	}
	return Resolution{Key: key, On: on, Value: fallback, Fallback: true}, nil
}

// pick applies the validity filter and the deterministic tie-break.
func pick(rows []Parameter, on generic.Date) (Parameter, bool) {
	var candidates []Parameter
	for _, row := range rows {
		if row.AppliesOn(on) {
			candidates = append(candidates, row)
		}
	}
	if len(candidates) == 0 {
		return Parameter{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.ValidFrom.Equal(b.ValidFrom) {
			return a.ValidFrom.After(b.ValidFrom)
		}
		return a.Seq > b.Seq
	})
	return candidates[0], true
}

// =============================================================================
// FALLBACK COUNTER
// =============================================================================

// FallbackCounter is a FallbackObserver that counts fallbacks per key.
type FallbackCounter struct {
	mu     sync.Mutex
	counts map[Key]int
}

func NewFallbackCounter() *FallbackCounter {
	return &FallbackCounter{counts: make(map[Key]int)}
}

func (c *FallbackCounter) ParameterFallback(key Key, _ generic.Date) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
}

// Count returns how many times key fell back.
func (c *FallbackCounter) Count(key Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}

// Total returns the number of fallbacks across all keys.
func (c *FallbackCounter) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.counts {
		total += n
	}
	return total
}
