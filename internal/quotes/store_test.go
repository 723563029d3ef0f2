package quotes

import (
	"sync"
	"testing"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
)

func TestStore_MergeAndGet(t *testing.T) {
	s := NewStore()

	s.Merge(map[string]core.Quote{
		"161725": {Code: "161725", EstNav: 1.14, ChangePct: 0.5},
		"110022": {Code: "110022", EstNav: 2.01, ChangePct: -1.2},
	})

	q, ok := s.Get("161725")
	if !ok || q.EstNav != 1.14 {
		t.Fatalf("expected merged quote, got %v ok=%v", q, ok)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 quotes, got %d", s.Len())
	}
}

func TestStore_MergeOverwritesPerCode(t *testing.T) {
	s := NewStore()
	s.Merge(map[string]core.Quote{"161725": {Code: "161725", EstNav: 1.10}})
	s.Merge(map[string]core.Quote{"161725": {Code: "161725", EstNav: 1.20}})

	q, _ := s.Get("161725")
	if q.EstNav != 1.20 {
		t.Errorf("last writer should win, got %v", q.EstNav)
	}
}

func TestStore_PartialMergeKeepsExisting(t *testing.T) {
	s := NewStore()
	s.Merge(map[string]core.Quote{
		"161725": {Code: "161725", EstNav: 1.10},
		"110022": {Code: "110022", EstNav: 2.00},
	})

	// A later cycle that only succeeded for one code must not discard
	// the other.
	s.Merge(map[string]core.Quote{"161725": {Code: "161725", EstNav: 1.15}})

	if _, ok := s.Get("110022"); !ok {
		t.Error("unrelated quote was discarded by a partial merge")
	}
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := NewStore()
	s.Merge(map[string]core.Quote{"161725": {Code: "161725", EstNav: 1.10}})

	snap := s.Snapshot()
	snap["161725"] = core.Quote{Code: "161725", EstNav: 9.99}

	q, _ := s.Get("161725")
	if q.EstNav != 1.10 {
		t.Error("mutating a snapshot must not affect the store")
	}
}

func TestStore_ConcurrentReadersAndWriters(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Merge(map[string]core.Quote{"161725": {Code: "161725", EstNav: 1.1}})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Get("161725")
				s.Snapshot()
			}
		}()
	}
	wg.Wait()
}

func TestStore_UpsertMetaMergesFields(t *testing.T) {
	s := NewStore()

	s.UpsertMeta(core.FundMeta{Code: "161725", Name: "招商中证白酒", Type: "指数型", NetWorth: 1.139})
	// A ranking refresh without a type must not erase the known type.
	s.UpsertMeta(core.FundMeta{Code: "161725", Name: "招商中证白酒", NetWorth: 1.144})

	m, ok := s.Meta("161725")
	if !ok {
		t.Fatal("meta should exist")
	}
	if m.Type != "指数型" {
		t.Errorf("existing type should survive an empty update, got %q", m.Type)
	}
	if m.NetWorth != 1.144 {
		t.Errorf("net worth should refresh, got %v", m.NetWorth)
	}
}
