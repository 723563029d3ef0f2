// Package ledger maintains portfolio positions under weighted-average
// cost basis and an append-only transaction history.
package ledger

import (
	"sync"
	"time"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
	"github.com/google/uuid"
)

// dustEpsilon is the share threshold below which a position is removed
// rather than retained; residual dust from a near-full sell is
// discarded.
const dustEpsilon = 0.01

// ApplyTrade is the pure state transition for one trade. It returns
// the new position set and whether the trade applied. Non-positive
// amount or price rejects silently: the returned positions are the
// input, untouched.
//
// Shares trade at shares = amountCny / priceNav. A buy moves the
// average cost; a sell never does.
func ApplyTrade(positions []core.Position, code string, kind core.TradeKind, amountCny, priceNav float64) ([]core.Position, bool) {
	if code == "" || amountCny <= 0 || priceNav <= 0 {
		return positions, false
	}
	if kind != core.TradeBuy && kind != core.TradeSell {
		return positions, false
	}

	shares := amountCny / priceNav

	idx := -1
	for i := range positions {
		if positions[i].Code == code {
			idx = i
			break
		}
	}

	if kind == core.TradeBuy {
		next := make([]core.Position, len(positions))
		copy(next, positions)

		if idx < 0 {
			return append(next, core.Position{
				Code:        code,
				TotalShares: shares,
				TotalCost:   amountCny,
				AvgCost:     priceNav,
			}), true
		}

		p := next[idx]
		p.TotalShares += shares
		p.TotalCost += amountCny
		p.AvgCost = p.TotalCost / p.TotalShares
		next[idx] = p
		return next, true
	}

	// Sell with no position is a no-op.
	if idx < 0 {
		return positions, false
	}

	p := positions[idx]
	remaining := p.TotalShares - shares

	next := make([]core.Position, 0, len(positions))
	next = append(next, positions[:idx]...)

	if remaining < dustEpsilon {
		// Fully sold (or oversold): drop the position entirely.
		return append(next, positions[idx+1:]...), true
	}

	p.TotalShares = remaining
	p.TotalCost -= p.AvgCost * shares
	next = append(next, p)
	return append(next, positions[idx+1:]...), true
}

// PositionValue is a position valued against a live quote.
type PositionValue struct {
	core.Position
	EstNav      float64 `json:"estNav"`
	MarketValue float64 `json:"marketValue"`
	Profit      float64 `json:"profit"`
	ProfitPct   float64 `json:"profitPct"`
	HasQuote    bool    `json:"hasQuote"`
}

// Ledger owns the position set and the transaction history.
type Ledger struct {
	mu           sync.RWMutex
	positions    []core.Position
	transactions []core.Transaction
	lastStamp    time.Time
	now          func() time.Time
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{now: time.Now}
}

// Restore loads persisted positions and transactions, replacing any
// current state.
func (l *Ledger) Restore(positions []core.Position, transactions []core.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.positions = append([]core.Position(nil), positions...)
	l.transactions = append([]core.Transaction(nil), transactions...)
	if n := len(l.transactions); n > 0 {
		l.lastStamp = l.transactions[n-1].Timestamp
	}
}

// Trade applies a buy or sell and, when it applies, appends one
// immutable transaction record. Invalid input leaves both positions
// and history untouched.
func (l *Ledger) Trade(code string, kind core.TradeKind, amountCny, priceNav float64) (core.Transaction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, applied := ApplyTrade(l.positions, code, kind, amountCny, priceNav)
	if !applied {
		return core.Transaction{}, false
	}
	l.positions = next

	// Timestamps are monotonically non-decreasing even if the wall
	// clock steps backwards.
	stamp := l.now()
	if stamp.Before(l.lastStamp) {
		stamp = l.lastStamp
	}
	l.lastStamp = stamp

	tx := core.Transaction{
		ID:        uuid.NewString(),
		Timestamp: stamp,
		Code:      code,
		Kind:      kind,
		AmountCny: amountCny,
		Price:     priceNav,
		Shares:    amountCny / priceNav,
	}
	l.transactions = append(l.transactions, tx)
	return tx, true
}

// Positions returns a copy of the current position set.
func (l *Ledger) Positions() []core.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Position(nil), l.positions...)
}

// Transactions returns a copy of the full history in canonical order.
func (l *Ledger) Transactions() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Transaction(nil), l.transactions...)
}

// Codes returns the codes with open positions.
func (l *Ledger) Codes() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	codes := make([]string, len(l.positions))
	for i, p := range l.positions {
		codes[i] = p.Code
	}
	return codes
}

// Value marks every position against the given live quotes. Positions
// without a quote report cost basis only.
func (l *Ledger) Value(live map[string]core.Quote) []PositionValue {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]PositionValue, 0, len(l.positions))
	for _, p := range l.positions {
		pv := PositionValue{Position: p}
		if q, ok := live[p.Code]; ok {
			pv.HasQuote = true
			pv.EstNav = q.EstNav
			pv.MarketValue = q.EstNav * p.TotalShares
			pv.Profit = pv.MarketValue - p.TotalCost
			if p.TotalCost > 0 {
				pv.ProfitPct = pv.Profit / p.TotalCost * 100
			}
		} else {
			pv.MarketValue = p.TotalCost
		}
		out = append(out, pv)
	}
	return out
}
