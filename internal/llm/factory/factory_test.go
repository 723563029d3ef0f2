package factory

import (
	"testing"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
)

func TestNew_DefaultsToOpenAI(t *testing.T) {
	p, err := New(core.AdvisoryConfig{APIKey: "sk-test", BaseURL: "https://api.siliconflow.cn/v1"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("expected openai provider, got %s", p.Name())
	}
}

func TestNew_Claude(t *testing.T) {
	p, err := New(core.AdvisoryConfig{Provider: "claude", APIKey: "sk-ant-test"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Name() != "claude" {
		t.Errorf("expected claude provider, got %s", p.Name())
	}
}

func TestNew_RejectsEmptyKey(t *testing.T) {
	if _, err := New(core.AdvisoryConfig{}); err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestNew_RejectsUnknownProvider(t *testing.T) {
	if _, err := New(core.AdvisoryConfig{Provider: "gemini", APIKey: "x"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
