// Package valuation estimates fund net values from raw market deltas,
// either by passing through an external estimate or by a
// factor-weighted attribution model over known constituents.
package valuation

import (
	"sync"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
	"go.uber.org/zap"
)

// EstimateInput carries the market data an estimate is computed from.
type EstimateInput struct {
	// ExternalChangePct is the externally supplied change percentage
	// required by direct mode. Nil means no external value is
	// available for the code.
	ExternalChangePct *float64

	// Holdings are the fund's known constituents with weights in
	// percent, used by model mode.
	Holdings []core.Constituent

	// SectorChangePct is the fund's sector index change in percent,
	// standing in for the unexplained weight.
	SectorChangePct float64
}

// Engine computes valuation estimates. It is a pure function of its
// inputs plus the correction-factor table, which is replaced wholesale
// on calibration so concurrent estimates never see a partial table.
type Engine struct {
	logger *zap.Logger

	mu      sync.RWMutex
	mode    core.ValuationMode
	factors core.FactorTable
}

// NewEngine creates an engine in the given mode with an empty factor
// table.
func NewEngine(mode core.ValuationMode, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mode == "" {
		mode = core.ModeDirect
	}
	return &Engine{
		logger:  logger,
		mode:    mode,
		factors: core.FactorTable{},
	}
}

// SetMode switches between direct and model estimation. Callers must
// not fall back silently between modes; a direct-mode miss stays a
// miss.
func (e *Engine) SetMode(mode core.ValuationMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = mode
}

// Mode returns the current estimation mode.
func (e *Engine) Mode() core.ValuationMode {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mode
}

// SetFactors replaces the correction-factor table.
func (e *Engine) SetFactors(table core.FactorTable) {
	next := make(core.FactorTable, len(table))
	for code, f := range table {
		next[code] = f
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.factors = next
}

// Factors returns a copy of the correction-factor table.
func (e *Engine) Factors() core.FactorTable {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(core.FactorTable, len(e.factors))
	for code, f := range e.factors {
		out[code] = f
	}
	return out
}

// Estimate computes a valuation for the fund in the engine's current
// mode. The second return is false when the mode's required inputs are
// unavailable.
func (e *Engine) Estimate(fund core.FundMeta, in EstimateInput) (core.Valuation, bool) {
	return e.EstimateWith(e.Mode(), fund, in)
}

// EstimateWith computes a valuation in an explicit mode without
// touching the engine's mode flag, so per-request overrides cannot
// race concurrent estimates.
func (e *Engine) EstimateWith(mode core.ValuationMode, fund core.FundMeta, in EstimateInput) (core.Valuation, bool) {
	e.mu.RLock()
	factor := e.factors.Factor(fund.Code)
	e.mu.RUnlock()

	if mode == core.ModeDirect {
		return e.estimateDirect(fund, in)
	}
	return e.estimateModel(fund, in, factor), true
}

// estimateDirect passes an external change percentage through. It
// fails when no external value exists; the caller decides whether to
// switch modes.
func (e *Engine) estimateDirect(fund core.FundMeta, in EstimateInput) (core.Valuation, bool) {
	if in.ExternalChangePct == nil {
		return core.Valuation{}, false
	}

	changePct := *in.ExternalChangePct
	return core.Valuation{
		Code:       fund.Code,
		EstNav:     fund.NetWorth * (1 + changePct/100),
		ChangePct:  changePct,
		Confidence: 100,
		Attribution: core.Attribution{
			Factor: 1.0,
			Source: "external",
		},
	}, true
}

// estimateModel attributes the change across known constituents and
// shadows the unexplained weight with the sector index. Confidence is
// the known weight coverage in percent, not a statistical measure.
func (e *Engine) estimateModel(fund core.FundMeta, in EstimateInput, factor float64) core.Valuation {
	var weightedReturn, knownWeight float64
	for _, c := range in.Holdings {
		w := c.Weight / 100
		weightedReturn += (c.ChangePct / 100) * w
		knownWeight += w
	}

	shadowWeight := 1 - knownWeight
	if shadowWeight < 0 {
		shadowWeight = 0
	}
	shadowReturn := shadowWeight * (in.SectorChangePct / 100)

	finalChange := (weightedReturn + shadowReturn) * factor

	return core.Valuation{
		Code:       fund.Code,
		EstNav:     fund.NetWorth * (1 + finalChange),
		ChangePct:  finalChange * 100,
		Confidence: knownWeight * 100,
		Attribution: core.Attribution{
			StockComponent:  weightedReturn,
			SectorComponent: shadowReturn,
			Factor:          factor,
			Source:          "model",
		},
	}
}
