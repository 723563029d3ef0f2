// internal/llm/factory/factory.go
package factory

import (
	"fmt"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
	"github.com/Haoqi7/FundQuant-Pro/internal/llm"
	"github.com/Haoqi7/FundQuant-Pro/internal/llm/claude"
	"github.com/Haoqi7/FundQuant-Pro/internal/llm/openai"
)

// New creates an advisory provider from user-level configuration.
// Provider defaults to openai-compatible since most advisory endpoints
// in this domain speak that protocol.
func New(cfg core.AdvisoryConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		return openai.New(cfg.APIKey, cfg.BaseURL, cfg.ModelName)
	case "claude":
		return claude.New(cfg.APIKey, cfg.ModelName)
	default:
		return nil, fmt.Errorf("unknown advisory provider: %s", cfg.Provider)
	}
}
