package epoch

import (
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"
)

// reusePoolSlots bounds how many rotating slot keys the reuse pool
// cycles through. It is not a hard cap on how many pages can be
// in flight — only on how many retired pages the pool tries to keep
// warm for reuse before ristretto's own cost-based admission policy
// starts declining offers.
const reusePoolSlots = 4096

// Pool offers retired pages back to the allocator before it reaches
// for a fresh allocation, bounding the memory held by pages that were
// reclaimed but never reused via ristretto's admission/eviction policy
// instead of an unbounded freelist.
type Pool struct {
	cache   *ristretto.Cache[uint32, *Page]
	nextPut atomic.Uint32
	nextGet atomic.Uint32
}

// NewPool constructs a reuse pool sized for up to maxPages resident
// pages (used to size ristretto's counter and cost budgets).
func NewPool(maxPages int64) (*Pool, error) {
	if maxPages <= 0 {
		maxPages = reusePoolSlots
	}
	cache, err := ristretto.NewCache(&ristretto.Config[uint32, *Page]{
		NumCounters: maxPages * 10,
		MaxCost:     maxPages,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Pool{cache: cache}, nil
}

// Offer makes a retired page available for reuse. It may be silently
// declined by the cache's admission policy, in which case the page is
// simply left for the Go garbage collector instead of reused.
func (p *Pool) Offer(pg *Page) {
	slot := p.nextPut.Add(1) % reusePoolSlots
	p.cache.SetWithTTL(slot, pg, 1, 0)
}

// probeWidth bounds how many ring slots TryAcquire inspects before
// giving up and letting the caller fall back to a fresh allocation;
// scanning the whole ring on every miss would make the common
// "pool empty" case pay for reusePoolSlots cache lookups.
const probeWidth = 16

// TryAcquire returns a page that survived reuse admission, or nil if
// none is currently available within the probe window.
func (p *Pool) TryAcquire() *Page {
	for i := 0; i < probeWidth; i++ {
		slot := p.nextGet.Add(1) % reusePoolSlots
		if pg, ok := p.cache.Get(slot); ok {
			p.cache.Del(slot)
			return pg
		}
	}
	return nil
}

// Close releases ristretto's background goroutines.
func (p *Pool) Close() { p.cache.Close() }
