// Package gateway resolves market-data operations across an ordered
// list of provider strategies. Strategies are tried strictly in
// priority order; the first well-formed, non-empty result wins and
// per-strategy failures are swallowed, keeping only the last error for
// diagnostics. When every strategy fails an operation returns an
// absent result rather than an error so periodic polling survives
// total provider outages.
package gateway

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
	"github.com/Haoqi7/FundQuant-Pro/internal/metrics"
	"github.com/Haoqi7/FundQuant-Pro/internal/provider"
	"github.com/Haoqi7/FundQuant-Pro/internal/quotes"
	"go.uber.org/zap"
)

const maxConstituents = 10

// Config wires the gateway's strategy ordering and the ranking pool.
type Config struct {
	// QuoteOrder, SearchOrder, ConstituentsOrder and InstrumentOrder
	// name transports in priority order, highest first.
	QuoteOrder        []string
	SearchOrder       []string
	ConstituentsOrder []string
	InstrumentOrder   []string

	// RankingPool is the curated code pool rankings are synthesized
	// from. Ranking endpoints proved unreliable, so ranking is a
	// locally sorted batch quote, not a dedicated feed.
	RankingPool []string
	RankingTop  int
	HoldingsTTL time.Duration
}

// DefaultConfig returns the standard strategy ordering.
func DefaultConfig() Config {
	return Config{
		QuoteOrder:        []string{"eastmoney", "tencent", "sina"},
		SearchOrder:       []string{"tencent", "eastmoney", "sina"},
		ConstituentsOrder: []string{"eastmoney"},
		InstrumentOrder:   []string{"sina", "tencent"},
		RankingTop:        10,
		HoldingsTTL:       60 * time.Second,
	}
}

// Gateway is the fallback-ordered multi-provider resolver.
type Gateway struct {
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Registry
	store   *quotes.Store
	cache   *HoldingsCache

	quoteOrder        []provider.Transport
	searchOrder       []provider.Transport
	constituentsOrder []provider.Transport
	instrumentOrder   []provider.Transport
}

// New creates a gateway from the registry using the configured
// strategy ordering. Unknown or unregistered names are skipped.
func New(cfg Config, reg *provider.Registry, store *quotes.Store, m *metrics.Registry, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RankingTop <= 0 {
		cfg.RankingTop = 10
	}

	pick := func(names []string) []provider.Transport {
		var out []provider.Transport
		for _, name := range names {
			if t, ok := reg.Get(name); ok {
				out = append(out, t)
			}
		}
		return out
	}

	return &Gateway{
		cfg:               cfg,
		logger:            logger,
		metrics:           m,
		store:             store,
		cache:             NewHoldingsCache(cfg.HoldingsTTL),
		quoteOrder:        pick(cfg.QuoteOrder),
		searchOrder:       pick(cfg.SearchOrder),
		constituentsOrder: pick(cfg.ConstituentsOrder),
		instrumentOrder:   pick(cfg.InstrumentOrder),
	}
}

// Cache exposes the holdings cache, mainly for tests.
func (g *Gateway) Cache() *HoldingsCache {
	return g.cache
}

func (g *Gateway) observe(t provider.Transport, operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	g.metrics.RecordProviderRequest(t.Name(), operation, outcome)
}

// Quote resolves the latest estimate for one fund code. The second
// return is false when every strategy failed.
func (g *Gateway) Quote(ctx context.Context, code string) (core.Quote, bool) {
	var lastErr error
	for _, t := range g.quoteOrder {
		q, err := t.FetchQuote(ctx, code)
		g.observe(t, "quote", err)
		if err == nil && q.IsValid() {
			return q, true
		}
		if err != nil {
			lastErr = err
		}
	}

	g.metrics.RecordFallbackExhausted("quote")
	g.logger.Debug("quote exhausted all providers",
		zap.String("code", code),
		zap.Error(lastErr),
	)
	return core.Quote{}, false
}

// Search resolves fund metadata for a keyword and refreshes the
// catalog with the results. An empty slice with ok=true means the
// keyword genuinely matched nothing; ok=false means every provider
// failed.
func (g *Gateway) Search(ctx context.Context, keyword string) ([]core.FundMeta, bool) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []core.FundMeta{}, true
	}

	var lastErr error
	for _, t := range g.searchOrder {
		results, err := t.Search(ctx, keyword)
		g.observe(t, "search", err)
		if err == nil && len(results) > 0 {
			for _, meta := range results {
				g.store.UpsertMeta(meta)
			}
			return results, true
		}
		if err != nil {
			lastErr = err
		}
	}

	g.metrics.RecordFallbackExhausted("search")
	g.logger.Debug("search exhausted all providers",
		zap.String("keyword", keyword),
		zap.Error(lastErr),
	)
	return nil, false
}

// Ranking synthesizes a ranking by batch-quoting the curated pool and
// sorting by descending change percentage. Codes whose quotes fail are
// simply absent from the result.
func (g *Gateway) Ranking(ctx context.Context) []core.Quote {
	if len(g.cfg.RankingPool) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		results []core.Quote
		wg      sync.WaitGroup
	)

	for _, code := range g.cfg.RankingPool {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			q, ok := g.Quote(ctx, code)
			if !ok {
				return
			}
			mu.Lock()
			results = append(results, q)
			mu.Unlock()
		}(code)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool {
		return results[i].ChangePct > results[j].ChangePct
	})
	if len(results) > g.cfg.RankingTop {
		results = results[:g.cfg.RankingTop]
	}

	for _, q := range results {
		g.store.UpsertMeta(core.FundMeta{
			Code:     q.Code,
			Name:     q.Name,
			Type:     "热门榜",
			NetWorth: priorNav(q),
		})
	}
	return results
}

// priorNav derives yesterday's net value from an estimate.
func priorNav(q core.Quote) float64 {
	denom := 1 + q.ChangePct/100
	if denom <= 0 {
		return 0
	}
	return q.EstNav / denom
}

// Holdings resolves the top constituent holdings for a fund through
// the two-step pipeline: constituent codes, instrument-code mapping,
// then a batched instrument quote. A fresh cached snapshot suppresses
// the fetch entirely.
func (g *Gateway) Holdings(ctx context.Context, code string) (core.HoldingsSnapshot, bool) {
	if snap, ok := g.cache.Get(code); ok {
		return snap, true
	}

	instrumentCodes, ok := g.constituents(ctx, code)
	if !ok {
		return core.HoldingsSnapshot{}, false
	}
	if len(instrumentCodes) > maxConstituents {
		instrumentCodes = instrumentCodes[:maxConstituents]
	}

	mapped := make([]string, len(instrumentCodes))
	for i, c := range instrumentCodes {
		mapped[i] = MapInstrumentCode(c)
	}

	instQuotes, ok := g.instrumentQuotes(ctx, mapped)
	if !ok {
		return core.HoldingsSnapshot{}, false
	}

	snap := core.HoldingsSnapshot{
		Code:      code,
		FetchedAt: time.Now(),
	}
	for _, c := range mapped {
		iq, ok := instQuotes[c]
		if !ok {
			continue
		}
		snap.Constituents = append(snap.Constituents, core.Constituent{
			StockCode: c,
			Name:      iq.Name,
			ChangePct: iq.ChangePct,
		})
	}

	g.cache.Put(code, snap)
	return snap, true
}

func (g *Gateway) constituents(ctx context.Context, code string) ([]string, bool) {
	var lastErr error
	for _, t := range g.constituentsOrder {
		codes, err := t.FetchConstituents(ctx, code)
		g.observe(t, "constituents", err)
		if err == nil && len(codes) > 0 {
			return codes, true
		}
		if err != nil {
			lastErr = err
		}
	}

	g.metrics.RecordFallbackExhausted("constituents")
	g.logger.Debug("constituents exhausted all providers",
		zap.String("code", code),
		zap.Error(lastErr),
	)
	return nil, false
}

func (g *Gateway) instrumentQuotes(ctx context.Context, codes []string) (map[string]core.InstrumentQuote, bool) {
	var lastErr error
	for _, t := range g.instrumentOrder {
		result, err := t.FetchInstrumentQuotes(ctx, codes)
		g.observe(t, "instruments", err)
		if err == nil && len(result) > 0 {
			return result, true
		}
		if err != nil {
			lastErr = err
		}
	}

	g.metrics.RecordFallbackExhausted("instruments")
	g.logger.Debug("instrument quotes exhausted all providers",
		zap.Int("codes", len(codes)),
		zap.Error(lastErr),
	)
	return nil, false
}

// MapInstrumentCode converts a raw constituent code to the provider
// instrument-code convention: 5-character codes trade in Hong Kong,
// codes beginning with 6 or 9 in Shanghai, everything else in Shenzhen.
func MapInstrumentCode(code string) string {
	if len(code) == 5 {
		return "hk" + code
	}
	if strings.HasPrefix(code, "6") || strings.HasPrefix(code, "9") {
		return "sh" + code
	}
	return "sz" + code
}
