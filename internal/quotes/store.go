// internal/quotes/store.go
package quotes

import (
	"sync"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
)

// Store holds the live-quote state and the fund metadata catalog.
//
// The quote map is published by whole-value replacement: Merge builds a
// fresh map and swaps it in, so concurrent readers never observe a
// half-updated structure. Last writer wins per code, which is fine
// since scheduler cycles and on-demand fetches converge to the same
// external truth.
type Store struct {
	mu    sync.RWMutex
	live  map[string]core.Quote
	metas map[string]core.FundMeta
}

// NewStore creates an empty live-quote store.
func NewStore() *Store {
	return &Store{
		live:  make(map[string]core.Quote),
		metas: make(map[string]core.FundMeta),
	}
}

// Merge applies a batch of successful fetch results as one atomic
// update. Partial results are expected: a failed fetch for one code
// must not discard successes for others, so callers pass only the
// quotes they obtained.
func (s *Store) Merge(updates map[string]core.Quote) {
	if len(updates) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]core.Quote, len(s.live)+len(updates))
	for code, q := range s.live {
		next[code] = q
	}
	for code, q := range updates {
		next[code] = q
	}
	s.live = next
}

// Get returns the live quote for a code.
func (s *Store) Get(code string) (core.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.live[code]
	return q, ok
}

// Snapshot returns a copy of the full live-quote map.
func (s *Store) Snapshot() map[string]core.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]core.Quote, len(s.live))
	for code, q := range s.live {
		out[code] = q
	}
	return out
}

// Len returns the number of live quotes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.live)
}

// UpsertMeta refreshes the static record for a fund. Newer non-empty
// fields win; records are never deleted and may go stale.
func (s *Store) UpsertMeta(meta core.FundMeta) {
	if meta.Code == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.metas[meta.Code]
	if ok {
		if meta.Name == "" {
			meta.Name = existing.Name
		}
		if meta.Type == "" {
			meta.Type = existing.Type
		}
		if meta.Sector == "" {
			meta.Sector = existing.Sector
		}
		if meta.NetWorth == 0 {
			meta.NetWorth = existing.NetWorth
		}
	}
	s.metas[meta.Code] = meta
}

// Meta returns the static record for a fund.
func (s *Store) Meta(code string) (core.FundMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metas[code]
	return m, ok
}

// Metas returns a copy of the full catalog.
func (s *Store) Metas() []core.FundMeta {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.FundMeta, 0, len(s.metas))
	for _, m := range s.metas {
		out = append(out, m)
	}
	return out
}
