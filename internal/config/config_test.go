package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Market.RefreshInterval != 60*time.Second {
		t.Errorf("refresh interval: got %s, want 60s", cfg.Market.RefreshInterval)
	}
	if cfg.Market.BatchSize != 5 {
		t.Errorf("batch size: got %d, want 5", cfg.Market.BatchSize)
	}
	if len(cfg.Market.RankingPool) == 0 {
		t.Error("default ranking pool should not be empty")
	}
}

func TestLoad_PartialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := []byte(`
server:
  host: 127.0.0.1
  port: 9090
market:
  batch_size: 8
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port: got %d, want 9090", cfg.Server.Port)
	}
	if cfg.Market.BatchSize != 8 {
		t.Errorf("batch size: got %d, want 8", cfg.Market.BatchSize)
	}
	// Unset values fall back to defaults.
	if cfg.Market.RefreshInterval != 60*time.Second {
		t.Errorf("refresh interval fallback: got %s", cfg.Market.RefreshInterval)
	}
	if cfg.Storage.Type != "localfs" {
		t.Errorf("storage type fallback: got %q", cfg.Storage.Type)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := []byte(`
advisory:
  provider: openai
  api_key: ${FQ_TEST_ADVISORY_KEY}
`)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FQ_TEST_ADVISORY_KEY", "sk-test-123")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Advisory.APIKey != "sk-test-123" {
		t.Errorf("api key: got %q, want expanded env value", cfg.Advisory.APIKey)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad batch size", func(c *Config) { c.Market.BatchSize = 100 }},
		{"bad storage type", func(c *Config) { c.Storage.Type = "redis" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }},
		{"unknown advisory provider", func(c *Config) { c.Advisory.Provider = "gemini" }},
		{"sub-second interval", func(c *Config) { c.Market.RefreshInterval = 100 * time.Millisecond }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
