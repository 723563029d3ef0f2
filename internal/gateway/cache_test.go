package gateway

import (
	"testing"
	"time"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
)

func TestHoldingsCache_FreshHit(t *testing.T) {
	c := NewHoldingsCache(time.Minute)
	snap := core.HoldingsSnapshot{Code: "161725", FetchedAt: time.Now()}
	c.Put("161725", snap)

	got, ok := c.Get("161725")
	if !ok {
		t.Fatal("fresh entry should hit")
	}
	if got.Code != "161725" {
		t.Errorf("unexpected snapshot: %+v", got)
	}
}

func TestHoldingsCache_ExpiredMiss(t *testing.T) {
	c := NewHoldingsCache(time.Minute)
	c.Put("161725", core.HoldingsSnapshot{
		Code:      "161725",
		FetchedAt: time.Now().Add(-2 * time.Minute),
	})

	if _, ok := c.Get("161725"); ok {
		t.Error("expired entry should miss")
	}
}

func TestHoldingsCache_AbsentMiss(t *testing.T) {
	c := NewHoldingsCache(time.Minute)
	if _, ok := c.Get("999999"); ok {
		t.Error("absent entry should miss")
	}
}

func TestHoldingsCache_TTLBoundary(t *testing.T) {
	c := NewHoldingsCache(time.Minute)

	base := time.Now()
	c.now = func() time.Time { return base }

	c.Put("161725", core.HoldingsSnapshot{Code: "161725", FetchedAt: base})

	c.now = func() time.Time { return base.Add(59 * time.Second) }
	if _, ok := c.Get("161725"); !ok {
		t.Error("entry just inside the TTL should hit")
	}

	c.now = func() time.Time { return base.Add(60 * time.Second) }
	if _, ok := c.Get("161725"); ok {
		t.Error("entry exactly at the TTL should miss")
	}
}
