package valuation

import (
	"context"
	"testing"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
	"github.com/Haoqi7/FundQuant-Pro/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	response string
	err      error
	calls    int
}

func (f *fakeChat) Name() string { return "fake" }

func (f *fakeChat) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.response}, nil
}

type fakeFactorStore struct {
	saved core.FactorTable
	calls int
}

func (f *fakeFactorStore) SaveFactorTable(ctx context.Context, table core.FactorTable) error {
	f.calls++
	f.saved = table
	return nil
}

func sampleFunds() []core.FundMeta {
	return []core.FundMeta{
		{Code: "161725", Name: "招商中证白酒", Sector: "白酒"},
		{Code: "110022", Name: "易方达消费行业", Sector: "消费"},
		{Code: "005827", Name: "易方达蓝筹精选", Sector: "综合"},
	}
}

func TestCalibrate_MissingKeyFailsBeforeNetwork(t *testing.T) {
	e := NewEngine(core.ModeModel, nil)
	e.SetFactors(core.FactorTable{"161725": 1.03})
	chat := &fakeChat{}
	store := &fakeFactorStore{}

	n, err := e.Calibrate(context.Background(), core.AdvisoryConfig{}, chat, store, sampleFunds())

	require.ErrorIs(t, err, core.ErrAdvisoryMisconfigured)
	assert.Zero(t, n)
	assert.Zero(t, chat.calls, "no network call may happen without a key")
	assert.Zero(t, store.calls, "factor table must not be persisted")
	assert.Equal(t, 1.03, e.Factors().Factor("161725"), "factor table must be unchanged")
}

func TestCalibrate_AppliesModelFactors(t *testing.T) {
	e := NewEngine(core.ModeModel, nil)
	chat := &fakeChat{response: `{"招商中证白酒": 1.03, "易方达消费行业": 0.97}`}
	store := &fakeFactorStore{}
	cfg := core.AdvisoryConfig{APIKey: "sk-test"}

	n, err := e.Calibrate(context.Background(), cfg, chat, store, sampleFunds())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	factors := e.Factors()
	assert.Equal(t, 1.03, factors.Factor("161725"))
	assert.Equal(t, 0.97, factors.Factor("110022"))

	// The fund the model skipped gets an independent perturbation
	// around 1.0 so it cannot ossify at a stale factor.
	f := factors.Factor("005827")
	assert.InDelta(t, 1.0, f, 0.005)
	assert.NotEqual(t, 0.0, f)

	require.Equal(t, 1, store.calls)
	assert.Equal(t, factors.Factor("161725"), store.saved.Factor("161725"))
}

func TestCalibrate_StripsCodeFences(t *testing.T) {
	e := NewEngine(core.ModeModel, nil)
	chat := &fakeChat{response: "```json\n{\"招商中证白酒\": 1.01}\n```"}
	store := &fakeFactorStore{}

	_, err := e.Calibrate(context.Background(), core.AdvisoryConfig{APIKey: "k"}, chat, store, sampleFunds())
	require.NoError(t, err)
	assert.Equal(t, 1.01, e.Factors().Factor("161725"))
}

func TestCalibrate_ClampsOutOfRangeFactors(t *testing.T) {
	e := NewEngine(core.ModeModel, nil)
	chat := &fakeChat{response: `{"招商中证白酒": 1.5, "易方达消费行业": 0.2}`}
	store := &fakeFactorStore{}

	_, err := e.Calibrate(context.Background(), core.AdvisoryConfig{APIKey: "k"}, chat, store, sampleFunds())
	require.NoError(t, err)

	assert.Equal(t, 1.05, e.Factors().Factor("161725"))
	assert.Equal(t, 0.95, e.Factors().Factor("110022"))
}

func TestCalibrate_ParseFailureDegradesButPersists(t *testing.T) {
	e := NewEngine(core.ModeModel, nil)
	chat := &fakeChat{response: "I am sorry, I cannot help with that."}
	store := &fakeFactorStore{}

	n, err := e.Calibrate(context.Background(), core.AdvisoryConfig{APIKey: "k"}, chat, store, sampleFunds())
	require.NoError(t, err, "parse failure must not abort calibration")
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, store.calls, "degraded result must still be persisted")

	// Sampled funds get perturbations within ±0.01 of 1.0.
	for _, f := range sampleFunds() {
		assert.InDelta(t, 1.0, e.Factors().Factor(f.Code), 0.01)
	}
}

func TestCalibrate_NetworkFailureLeavesTableAlone(t *testing.T) {
	e := NewEngine(core.ModeModel, nil)
	e.SetFactors(core.FactorTable{"161725": 1.04})
	chat := &fakeChat{err: core.ErrProviderTimeout}
	store := &fakeFactorStore{}

	_, err := e.Calibrate(context.Background(), core.AdvisoryConfig{APIKey: "k"}, chat, store, sampleFunds())
	require.Error(t, err)
	assert.Zero(t, store.calls)
	assert.Equal(t, 1.04, e.Factors().Factor("161725"))
}

func TestCalibrate_EmptyFundListIsNoop(t *testing.T) {
	e := NewEngine(core.ModeModel, nil)
	chat := &fakeChat{}
	store := &fakeFactorStore{}

	n, err := e.Calibrate(context.Background(), core.AdvisoryConfig{APIKey: "k"}, chat, store, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, chat.calls)
}

func TestParseFactorResponse(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{"plain json", `{"a": 1.01}`, false},
		{"fenced json", "```json\n{\"a\": 1.01}\n```", false},
		{"empty", "", true},
		{"prose", "no factors today", true},
		{"empty object", "{}", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseFactorResponse(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
