package gateway

import (
	"sync"
	"time"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
)

// HoldingsCache is a per-code cache for constituent snapshots. Entries
// are never evicted, only re-validated against the TTL on read; the
// active code set is small enough that memory is a non-issue.
type HoldingsCache struct {
	mu      sync.RWMutex
	entries map[string]core.HoldingsSnapshot
	ttl     time.Duration
	now     func() time.Time
}

// NewHoldingsCache creates a cache with the given TTL.
func NewHoldingsCache(ttl time.Duration) *HoldingsCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &HoldingsCache{
		entries: make(map[string]core.HoldingsSnapshot),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached snapshot for a code if it is still fresh.
func (c *HoldingsCache) Get(code string) (core.HoldingsSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, ok := c.entries[code]
	if !ok {
		return core.HoldingsSnapshot{}, false
	}
	if c.now().Sub(snap.FetchedAt) >= c.ttl {
		return core.HoldingsSnapshot{}, false
	}
	return snap, true
}

// Put stores a snapshot.
func (c *HoldingsCache) Put(code string, snap core.HoldingsSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[code] = snap
}
