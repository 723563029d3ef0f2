package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
	"github.com/spf13/viper"
)

// Config is the root configuration for the fundquant service.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Market    MarketConfig              `mapstructure:"market"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Advisory  AdvisoryConfig            `mapstructure:"advisory"`
	Storage   StorageConfig             `mapstructure:"storage"`
	Metrics   MetricsConfig             `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// MarketConfig drives the refresh scheduler and the gateway.
type MarketConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	BatchSize       int           `mapstructure:"batch_size"`
	HoldingsTTL     time.Duration `mapstructure:"holdings_ttl"`
	// RankingPool is the curated code pool the ranking operation is
	// synthesized from. Fixed per deployment, not user-extensible.
	RankingPool []string `mapstructure:"ranking_pool"`
	RankingTop  int      `mapstructure:"ranking_top"`
}

type ProviderConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AdvisoryConfig holds the default advisory-model settings. Per-user
// settings loaded from the persistence store override these.
type AdvisoryConfig struct {
	Provider     string `mapstructure:"provider"`
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

type StorageConfig struct {
	Type string   `mapstructure:"type"` // "localfs" or "s3"
	Path string   `mapstructure:"path"` // For localfs
	S3   S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyFallbacks(&cfg)
	return &cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Market: MarketConfig{
			RefreshInterval: 60 * time.Second,
			BatchSize:       5,
			HoldingsTTL:     60 * time.Second,
			RankingPool:     DefaultRankingPool,
			RankingTop:      10,
		},
		Providers: map[string]ProviderConfig{
			"eastmoney": {Enabled: true, Timeout: 10 * time.Second},
			"tencent":   {Enabled: true, Timeout: 5 * time.Second},
			"sina":      {Enabled: true, Timeout: 5 * time.Second},
		},
		Advisory: AdvisoryConfig{
			Provider:     "openai",
			BaseURL:      "https://api.siliconflow.cn/v1",
			Model:        "deepseek-ai/DeepSeek-V3",
			SystemPrompt: "You are a quantitative finance expert.",
		},
		Storage: StorageConfig{
			Type: "localfs",
			Path: "data",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// DefaultRankingPool is the built-in curated pool of liquid, widely
// held funds used to synthesize the ranking when no pool is configured.
// Ranking endpoints proved unreliable; a locally sorted batch quote of
// a known pool is the fallback of last resort.
var DefaultRankingPool = []string{
	"161725", "012414", "110022", "005827", "163406",
	"001156", "003096", "007301", "001594", "519674",
	"011609", "002190", "004851", "001102", "164402",
}

// applyFallbacks fills zero values left by a partial config file.
func applyFallbacks(cfg *Config) {
	def := Defaults()
	if cfg.Market.RefreshInterval <= 0 {
		cfg.Market.RefreshInterval = def.Market.RefreshInterval
	}
	if cfg.Market.BatchSize <= 0 {
		cfg.Market.BatchSize = def.Market.BatchSize
	}
	if cfg.Market.HoldingsTTL <= 0 {
		cfg.Market.HoldingsTTL = def.Market.HoldingsTTL
	}
	if len(cfg.Market.RankingPool) == 0 {
		cfg.Market.RankingPool = def.Market.RankingPool
	}
	if cfg.Market.RankingTop <= 0 {
		cfg.Market.RankingTop = def.Market.RankingTop
	}
	if cfg.Providers == nil {
		cfg.Providers = def.Providers
	}
	for name, p := range cfg.Providers {
		if p.Timeout <= 0 {
			p.Timeout = 10 * time.Second
			cfg.Providers[name] = p
		}
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = def.Storage.Type
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = def.Storage.Path
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = def.Metrics.Path
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Market.BatchSize < 1 || c.Market.BatchSize > 50 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("batch_size must be between 1 and 50, got %d", c.Market.BatchSize))
	}

	if c.Market.RefreshInterval < time.Second {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("refresh_interval must be at least 1s, got %s", c.Market.RefreshInterval))
	}

	switch c.Storage.Type {
	case "localfs", "s3":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("storage type must be localfs or s3, got %q", c.Storage.Type))
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return core.WrapError(core.ErrConfigMissing,
			fmt.Errorf("s3 bucket required when storage type is s3"))
	}

	// Advisory provider is optional at startup; calibration checks the
	// key again before any network call.
	switch c.Advisory.Provider {
	case "", "openai", "claude":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown advisory provider: %s", c.Advisory.Provider))
	}

	return nil
}
