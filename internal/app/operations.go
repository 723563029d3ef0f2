package app

import (
	"context"
	"fmt"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
	"github.com/Haoqi7/FundQuant-Pro/internal/ledger"
	"github.com/Haoqi7/FundQuant-Pro/internal/valuation"
	"go.uber.org/zap"
)

// Quotes returns the full live-quote snapshot.
func (a *App) Quotes() map[string]core.Quote {
	return a.quotes.Snapshot()
}

// Search resolves fund metadata for a keyword through the gateway.
func (a *App) Search(ctx context.Context, keyword string) ([]core.FundMeta, bool) {
	return a.gateway.Search(ctx, keyword)
}

// Ranking synthesizes the current ranking from the curated pool.
func (a *App) Ranking(ctx context.Context) []core.Quote {
	return a.gateway.Ranking(ctx)
}

// Holdings resolves a fund's top constituents, served from cache when
// fresh.
func (a *App) Holdings(ctx context.Context, code string) (core.HoldingsSnapshot, bool) {
	return a.gateway.Holdings(ctx, code)
}

// Valuation estimates a fund's net value. An empty mode uses the
// engine's current mode; "direct" and "model" force one estimate
// without switching the engine.
func (a *App) Valuation(ctx context.Context, code string, mode core.ValuationMode) (core.Valuation, error) {
	meta, ok := a.quotes.Meta(code)
	if !ok {
		// The catalog only knows funds seen via search or ranking; try a
		// live quote to bootstrap the record.
		q, qok := a.fetchQuote(ctx, code)
		if !qok {
			return core.Valuation{}, core.ErrCodeNotFound
		}
		a.quotes.UpsertMeta(core.FundMeta{Code: q.Code, Name: q.Name})
		meta, _ = a.quotes.Meta(code)
	}

	if mode == "" {
		mode = a.engine.Mode()
	}

	in, err := a.buildEstimateInput(ctx, code, mode)
	if err != nil {
		return core.Valuation{}, err
	}

	v, ok := a.engine.EstimateWith(mode, meta, in)
	if !ok {
		return core.Valuation{}, core.ErrNoData
	}
	return v, nil
}

func (a *App) buildEstimateInput(ctx context.Context, code string, mode core.ValuationMode) (valuation.EstimateInput, error) {
	var in valuation.EstimateInput

	if mode == core.ModeDirect {
		q, ok := a.fetchQuote(ctx, code)
		if !ok {
			return in, core.ErrNoData
		}
		pct := q.ChangePct
		in.ExternalChangePct = &pct
		return in, nil
	}

	snap, ok := a.gateway.Holdings(ctx, code)
	if !ok {
		return in, core.ErrNoData
	}
	in.Holdings = snap.Constituents

	// The sector delta is synthesized as the mean constituent change;
	// there is no reliable per-sector index feed.
	if len(snap.Constituents) > 0 {
		var sum float64
		for _, c := range snap.Constituents {
			sum += c.ChangePct
		}
		in.SectorChangePct = sum / float64(len(snap.Constituents))
	}
	return in, nil
}

// fetchQuote prefers the live store and falls through to the gateway
// for codes the scheduler has not covered yet.
func (a *App) fetchQuote(ctx context.Context, code string) (core.Quote, bool) {
	if q, ok := a.quotes.Get(code); ok {
		return q, true
	}
	q, ok := a.gateway.Quote(ctx, code)
	if ok {
		a.quotes.Merge(map[string]core.Quote{code: q})
	}
	return q, ok
}

// Watchlist returns the watched codes.
func (a *App) Watchlist() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.watchlist...)
}

// AddToWatchlist adds a code and persists. Adding a watched code is a
// no-op.
func (a *App) AddToWatchlist(ctx context.Context, code string) error {
	if code == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("empty fund code"))
	}

	a.mu.Lock()
	for _, c := range a.watchlist {
		if c == code {
			a.mu.Unlock()
			return nil
		}
	}
	a.watchlist = append(a.watchlist, code)
	a.mu.Unlock()

	a.saveState(ctx)
	return nil
}

// RemoveFromWatchlist removes a code and persists. Returns false when
// the code was not watched.
func (a *App) RemoveFromWatchlist(ctx context.Context, code string) bool {
	a.mu.Lock()
	idx := -1
	for i, c := range a.watchlist {
		if c == code {
			idx = i
			break
		}
	}
	if idx < 0 {
		a.mu.Unlock()
		return false
	}
	a.watchlist = append(a.watchlist[:idx], a.watchlist[idx+1:]...)
	a.mu.Unlock()

	a.saveState(ctx)
	return true
}

// Portfolio returns positions valued against the live-quote snapshot.
func (a *App) Portfolio() []ledger.PositionValue {
	return a.ledger.Value(a.quotes.Snapshot())
}

// Trade applies a buy or sell, records the transaction and persists.
func (a *App) Trade(ctx context.Context, code string, kind core.TradeKind, amountCny, priceNav float64) (core.Transaction, error) {
	tx, ok := a.ledger.Trade(code, kind, amountCny, priceNav)
	if !ok {
		a.metrics.RecordTrade(string(kind), "rejected")
		return core.Transaction{}, core.ErrInvalidTrade
	}

	a.metrics.RecordTrade(string(kind), "ok")
	a.saveState(ctx)
	return tx, nil
}

// Transactions returns the full trade history.
func (a *App) Transactions() []core.Transaction {
	return a.ledger.Transactions()
}

// Calibrate runs one factor calibration against the advisory model.
// Overlapping invocations are rejected with ErrAdvisoryBusy; the
// routine itself is not reentrant.
func (a *App) Calibrate(ctx context.Context) (int, error) {
	a.mu.Lock()
	if a.calibrating {
		a.mu.Unlock()
		return 0, core.ErrAdvisoryBusy
	}
	a.calibrating = true
	advisory := a.advisory
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.calibrating = false
		a.mu.Unlock()
	}()

	if advisory.APIKey == "" {
		a.metrics.RecordCalibration("misconfigured")
		return 0, core.ErrAdvisoryMisconfigured
	}

	chat, err := a.newChat(advisory)
	if err != nil {
		a.metrics.RecordCalibration("misconfigured")
		return 0, core.WrapError(core.ErrAdvisoryMisconfigured, err)
	}

	n, err := a.engine.Calibrate(ctx, advisory, chat, a.store, a.quotes.Metas())
	if err != nil {
		a.metrics.RecordCalibration("error")
		return n, err
	}
	a.metrics.RecordCalibration("ok")
	return n, nil
}

// Refresh runs one on-demand refresh cycle and returns the number of
// quotes merged.
func (a *App) Refresh(ctx context.Context) int {
	return a.scheduler.RunCycle(ctx)
}

// SetOnline toggles the scheduler's offline flag.
func (a *App) SetOnline(online bool) {
	a.scheduler.SetOnline(online)
	a.logger.Info("online flag changed", zap.Bool("online", online))
}

// Online reports whether periodic fetching is enabled.
func (a *App) Online() bool {
	return a.scheduler.Online()
}

// Advisory returns the current advisory settings with the key redacted.
func (a *App) Advisory() core.AdvisoryConfig {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := a.advisory
	if out.APIKey != "" {
		out.APIKey = "********"
	}
	return out
}

// UpdateAdvisory replaces the advisory settings and persists. An empty
// incoming key keeps the stored one so redacted round-trips are safe.
func (a *App) UpdateAdvisory(ctx context.Context, cfg core.AdvisoryConfig) {
	a.mu.Lock()
	if cfg.APIKey == "" || cfg.APIKey == "********" {
		cfg.APIKey = a.advisory.APIKey
	}
	a.advisory = cfg
	a.mu.Unlock()

	a.saveState(ctx)
}

// Stats reports application counters for the health endpoint.
func (a *App) Stats() map[string]any {
	a.mu.RLock()
	watchlist := len(a.watchlist)
	a.mu.RUnlock()

	return map[string]any{
		"online":       a.Online(),
		"live_quotes":  a.quotes.Len(),
		"positions":    len(a.ledger.Positions()),
		"watchlist":    watchlist,
		"transactions": len(a.ledger.Transactions()),
		"mode":         string(a.engine.Mode()),
	}
}
