package provider

import (
	"context"
	"time"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
)

// Config holds per-transport configuration.
type Config struct {
	Enabled bool
	Timeout time.Duration
}

// Transport performs one request to one named external provider and
// returns a normalized record or an error. It has no retry or fallback
// logic of its own; ordering and failover belong to the gateway.
//
// A transport that does not implement an operation returns
// core.ErrUnsupported so the gateway skips it.
type Transport interface {
	Name() string

	// FetchQuote returns the latest net-value estimate for a fund code.
	FetchQuote(ctx context.Context, code string) (core.Quote, error)

	// Search returns fund metadata matching a keyword.
	Search(ctx context.Context, keyword string) ([]core.FundMeta, error)

	// FetchConstituents returns the constituent instrument codes of a fund.
	FetchConstituents(ctx context.Context, fundCode string) ([]string, error)

	// FetchInstrumentQuotes returns stock-level quotes keyed by the
	// provider's instrument-code convention (e.g. sh600519, hk00700).
	FetchInstrumentQuotes(ctx context.Context, codes []string) (map[string]core.InstrumentQuote, error)
}
