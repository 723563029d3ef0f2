package valuation

import (
	"testing"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimate_DirectPassThrough(t *testing.T) {
	e := NewEngine(core.ModeDirect, nil)
	fund := core.FundMeta{Code: "161725", NetWorth: 1.2345}
	pct := 0.50

	v, ok := e.Estimate(fund, EstimateInput{ExternalChangePct: &pct})
	require.True(t, ok)

	assert.InDelta(t, 1.2345*1.005, v.EstNav, 1e-9)
	assert.Equal(t, 0.50, v.ChangePct)
	assert.Equal(t, 100.0, v.Confidence)
	assert.Equal(t, "external", v.Attribution.Source)
}

func TestEstimate_DirectRequiresExternalValue(t *testing.T) {
	e := NewEngine(core.ModeDirect, nil)
	fund := core.FundMeta{Code: "161725", NetWorth: 1.2345}

	// No external change available: the estimate is absent. There is
	// deliberately no silent fallback to model mode.
	_, ok := e.Estimate(fund, EstimateInput{
		Holdings:        []core.Constituent{{Weight: 50, ChangePct: 2.0}},
		SectorChangePct: 1.0,
	})
	assert.False(t, ok)
}

func TestEstimate_ModelAttribution(t *testing.T) {
	e := NewEngine(core.ModeModel, nil)
	e.SetFactors(core.FactorTable{"161725": 1.02})

	fund := core.FundMeta{Code: "161725", NetWorth: 1.0}
	v, ok := e.Estimate(fund, EstimateInput{
		Holdings: []core.Constituent{
			{StockCode: "sh600519", Weight: 50, ChangePct: 2.0},
			{StockCode: "sz000858", Weight: 30, ChangePct: -1.0},
		},
		SectorChangePct: 1.0,
	})
	require.True(t, ok)

	// knownWeight = 0.8, weightedReturn = 0.5*0.02 + 0.3*(-0.01) = 0.007,
	// shadowWeight = 0.2, shadowReturn = 0.002,
	// finalChange = 0.009 * 1.02 = 0.00918.
	assert.InDelta(t, 1.00918, v.EstNav, 1e-9)
	assert.InDelta(t, 0.918, v.ChangePct, 1e-9)
	assert.InDelta(t, 0.007, v.Attribution.StockComponent, 1e-9)
	assert.InDelta(t, 0.002, v.Attribution.SectorComponent, 1e-9)
	assert.Equal(t, 1.02, v.Attribution.Factor)
	assert.Equal(t, "model", v.Attribution.Source)

	// Confidence here is weight coverage (80% of the fund is explained
	// by known constituents), not a statistical confidence interval.
	assert.InDelta(t, 80.0, v.Confidence, 1e-9)
}

func TestEstimate_ModelDefaultsFactorToOne(t *testing.T) {
	e := NewEngine(core.ModeModel, nil)

	fund := core.FundMeta{Code: "999999", NetWorth: 2.0}
	v, ok := e.Estimate(fund, EstimateInput{
		Holdings:        []core.Constituent{{Weight: 100, ChangePct: 1.0}},
		SectorChangePct: 5.0,
	})
	require.True(t, ok)

	assert.Equal(t, 1.0, v.Attribution.Factor)
	// Full coverage: no shadow component.
	assert.InDelta(t, 0.0, v.Attribution.SectorComponent, 1e-9)
	assert.InDelta(t, 2.0*1.01, v.EstNav, 1e-9)
}

func TestEstimate_ModelClampsShadowWeight(t *testing.T) {
	e := NewEngine(core.ModeModel, nil)

	// Reported weights can exceed 100%; the shadow weight must not go
	// negative.
	fund := core.FundMeta{Code: "161725", NetWorth: 1.0}
	v, ok := e.Estimate(fund, EstimateInput{
		Holdings:        []core.Constituent{{Weight: 120, ChangePct: 1.0}},
		SectorChangePct: -10.0,
	})
	require.True(t, ok)
	assert.InDelta(t, 0.0, v.Attribution.SectorComponent, 1e-9)
}

func TestEstimate_ModelNoHoldings(t *testing.T) {
	e := NewEngine(core.ModeModel, nil)

	// With no known constituents everything rides on the sector index.
	fund := core.FundMeta{Code: "161725", NetWorth: 1.0}
	v, ok := e.Estimate(fund, EstimateInput{SectorChangePct: 2.0})
	require.True(t, ok)

	assert.InDelta(t, 0.0, v.Confidence, 1e-9)
	assert.InDelta(t, 1.02, v.EstNav, 1e-9)
}

func TestSetFactors_ReplacesWholesale(t *testing.T) {
	e := NewEngine(core.ModeModel, nil)
	e.SetFactors(core.FactorTable{"a": 1.01, "b": 1.02})
	e.SetFactors(core.FactorTable{"a": 0.99})

	factors := e.Factors()
	assert.Equal(t, 0.99, factors.Factor("a"))
	assert.Equal(t, 1.0, factors.Factor("b"), "replaced table should not retain old entries")
}

func TestMode_Switching(t *testing.T) {
	e := NewEngine(core.ModeDirect, nil)
	assert.Equal(t, core.ModeDirect, e.Mode())

	e.SetMode(core.ModeModel)
	assert.Equal(t, core.ModeModel, e.Mode())
}
