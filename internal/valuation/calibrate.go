package valuation

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
	"github.com/Haoqi7/FundQuant-Pro/internal/llm"
	"go.uber.org/zap"
)

const calibrationSampleSize = 5

// FactorStore persists the correction-factor table independently of
// user data; the table is a shared computed asset.
type FactorStore interface {
	SaveFactorTable(ctx context.Context, table core.FactorTable) error
}

type factorSample struct {
	Name          string  `json:"name"`
	Sector        string  `json:"sector"`
	CurrentFactor float64 `json:"currentFactor"`
}

// Calibrate consults the advisory model to refresh the correction
// factors for the given funds, then persists the table. It returns the
// number of funds whose factor was updated.
//
// The routine is defensive end to end: a missing API key aborts before
// any network call; an unparseable response degrades to small random
// perturbations rather than aborting; funds the model did not mention
// get independent perturbations so they cannot ossify at a stale
// factor. The table is persisted unconditionally, degraded or not.
//
// Calibrate is not reentrant; callers must serialize invocations.
func (e *Engine) Calibrate(ctx context.Context, cfg core.AdvisoryConfig, chat llm.Provider, store FactorStore, funds []core.FundMeta) (int, error) {
	if cfg.APIKey == "" {
		return 0, core.ErrAdvisoryMisconfigured
	}
	if len(funds) == 0 {
		return 0, nil
	}

	current := e.Factors()

	sample := make([]factorSample, 0, calibrationSampleSize)
	for _, f := range funds {
		if len(sample) == calibrationSampleSize {
			break
		}
		sample = append(sample, factorSample{
			Name:          f.Name,
			Sector:        f.Sector,
			CurrentFactor: current.Factor(f.Code),
		})
	}

	sampleJSON, err := json.Marshal(sample)
	if err != nil {
		return 0, err
	}

	prompt := fmt.Sprintf(
		"[Task] Optimize quantitative correction factors.\n[Sample] %s\nReturn the optimized factors as JSON (key: fund name, value: float in 0.95-1.05). Respond with JSON only.",
		sampleJSON)

	resp, err := chat.Chat(ctx, llm.ChatRequest{
		SystemPrompt: cfg.SystemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: prompt}},
		Temperature:  0.2,
	})
	if err != nil {
		return 0, core.WrapError(core.ErrProviderFailed, err)
	}

	byName, parseErr := parseFactorResponse(resp.Content)
	if parseErr != nil {
		// Degraded fallback: perturb the sampled funds instead of
		// aborting the whole calibration.
		e.logger.Warn("advisory response unparseable, using perturbation fallback",
			zap.Error(parseErr))
		byName = make(map[string]float64, len(sample))
		for _, s := range sample {
			byName[s.Name] = 1.0 + (rand.Float64()*0.02 - 0.01)
		}
	}

	next := make(core.FactorTable, len(funds))
	for code, f := range current {
		next[code] = f
	}
	for _, f := range funds {
		if v, ok := byName[f.Name]; ok {
			next[f.Code] = clampFactor(v)
		} else {
			next[f.Code] = 1.0 + (rand.Float64()*0.01 - 0.005)
		}
	}

	e.SetFactors(next)
	if err := store.SaveFactorTable(ctx, next); err != nil {
		return len(funds), core.WrapError(core.ErrStorageFailed, err)
	}

	e.logger.Info("calibration complete",
		zap.Int("funds", len(funds)),
		zap.Bool("degraded", parseErr != nil),
	)
	return len(funds), nil
}

// parseFactorResponse extracts a name-to-factor map from untrusted
// model output, stripping markdown fences first.
func parseFactorResponse(content string) (map[string]float64, error) {
	clean := strings.ReplaceAll(content, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	if clean == "" {
		return nil, core.ErrAdvisoryParseFailed
	}

	var factors map[string]float64
	if err := json.Unmarshal([]byte(clean), &factors); err != nil {
		return nil, core.WrapError(core.ErrAdvisoryParseFailed, err)
	}
	if len(factors) == 0 {
		return nil, core.ErrAdvisoryParseFailed
	}
	return factors, nil
}

// clampFactor bounds a model-supplied factor to the sane range; the
// model is instructed to stay in [0.95, 1.05] but is not trusted to.
func clampFactor(f float64) float64 {
	if f < 0.95 {
		return 0.95
	}
	if f > 1.05 {
		return 1.05
	}
	return f
}
