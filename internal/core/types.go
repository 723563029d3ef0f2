package core

import "time"

// QuoteSource identifies which provider produced a quote.
type QuoteSource string

const (
	SourceEastmoney QuoteSource = "eastmoney"
	SourceTencent   QuoteSource = "tencent"
	SourceSina      QuoteSource = "sina"
	SourceSynthetic QuoteSource = "synthetic"
)

// FundMeta is the static record for a fund. Identity key is Code
// (externally assigned, 6-char alphanumeric). Records are refreshed
// whenever a provider returns a newer one and are never deleted.
type FundMeta struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Sector   string  `json:"sector"`
	NetWorth float64 `json:"netWorth"`
}

// Quote is a provider's latest estimate of a fund's net value.
// Transient: held only in the live-quote store and overwritten by the
// next successful fetch for the same code.
type Quote struct {
	Code      string      `json:"code"`
	Source    QuoteSource `json:"source"`
	EstNav    float64     `json:"estNav"`
	ChangePct float64     `json:"changePct"`
	AsOf      string      `json:"asOf"`
	Name      string      `json:"name"`
}

// IsValid checks the quote invariants: a code and a non-negative estimate.
func (q Quote) IsValid() bool {
	return q.Code != "" && q.EstNav >= 0
}

// InstrumentQuote is a stock-level quote used by the holdings pipeline.
type InstrumentQuote struct {
	Name      string  `json:"name"`
	ChangePct float64 `json:"changePct"`
}

// Constituent is one holding inside a fund.
type Constituent struct {
	StockCode string  `json:"stockCode"`
	Name      string  `json:"name"`
	ChangePct float64 `json:"changePct"`
	Weight    float64 `json:"weight"`
}

// HoldingsSnapshot is a fund's top constituent holdings at a point in
// time. Constituents are capped at 10 by the gateway.
type HoldingsSnapshot struct {
	Code         string        `json:"code"`
	FetchedAt    time.Time     `json:"fetchedAt"`
	Constituents []Constituent `json:"constituents"`
}

// TradeKind is the direction of a portfolio mutation.
type TradeKind string

const (
	TradeBuy  TradeKind = "buy"
	TradeSell TradeKind = "sell"
)

// Position is an open portfolio position. AvgCost equals
// TotalCost/TotalShares whenever TotalShares > 0; positions with fewer
// than 0.01 shares are removed rather than kept at zero.
type Position struct {
	Code        string  `json:"code"`
	TotalShares float64 `json:"totalShares"`
	TotalCost   float64 `json:"totalCost"`
	AvgCost     float64 `json:"avgCost"`
}

// Transaction is one immutable ledger entry. Ordering by Timestamp is
// the canonical history order.
type Transaction struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Code      string    `json:"code"`
	Kind      TradeKind `json:"kind"`
	AmountCny float64   `json:"amountCny"`
	Price     float64   `json:"price"`
	Shares    float64   `json:"shares"`
}

// ValuationMode selects how the engine estimates a fund's net value.
type ValuationMode string

const (
	// ModeDirect passes through an externally supplied change percentage.
	ModeDirect ValuationMode = "direct"
	// ModeModel attributes the change across known constituents plus a
	// sector-index shadow for the unexplained weight.
	ModeModel ValuationMode = "model"
)

// Attribution breaks a model valuation down into its components.
type Attribution struct {
	StockComponent  float64 `json:"stockComponent"`
	SectorComponent float64 `json:"sectorComponent"`
	Factor          float64 `json:"factor"`
	Source          string  `json:"source"`
}

// Valuation is the engine's estimate for one fund.
//
// Confidence is weight coverage: the fraction of the fund's weight
// explained by known constituent data, as a percentage. It is not a
// statistical confidence interval.
type Valuation struct {
	Code        string      `json:"code"`
	EstNav      float64     `json:"estNav"`
	ChangePct   float64     `json:"changePct"`
	Confidence  float64     `json:"confidence"`
	Attribution Attribution `json:"attribution"`
}

// AdvisoryConfig configures the external advisory model used for
// factor calibration. APIKey must be non-empty before any call.
type AdvisoryConfig struct {
	Provider     string `json:"provider"`
	BaseURL      string `json:"baseUrl"`
	APIKey       string `json:"apiKey"`
	ModelName    string `json:"modelName"`
	SystemPrompt string `json:"systemPrompt"`
}

// FactorTable maps fund code to its correction factor. Absent codes
// default to 1.0.
type FactorTable map[string]float64

// Factor returns the correction factor for code, defaulting to 1.0.
func (t FactorTable) Factor(code string) float64 {
	if f, ok := t[code]; ok {
		return f
	}
	return 1.0
}
