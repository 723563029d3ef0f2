// Package app wires the components into one explicitly constructed
// context object: storage, live-quote state, provider transports, the
// fallback gateway, the valuation engine, the portfolio ledger and the
// refresh scheduler. The process entry point owns the lifecycle.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/Haoqi7/FundQuant-Pro/internal/config"
	"github.com/Haoqi7/FundQuant-Pro/internal/core"
	"github.com/Haoqi7/FundQuant-Pro/internal/gateway"
	"github.com/Haoqi7/FundQuant-Pro/internal/ledger"
	"github.com/Haoqi7/FundQuant-Pro/internal/llm"
	"github.com/Haoqi7/FundQuant-Pro/internal/llm/factory"
	"github.com/Haoqi7/FundQuant-Pro/internal/metrics"
	"github.com/Haoqi7/FundQuant-Pro/internal/provider"
	"github.com/Haoqi7/FundQuant-Pro/internal/provider/eastmoney"
	"github.com/Haoqi7/FundQuant-Pro/internal/provider/sina"
	"github.com/Haoqi7/FundQuant-Pro/internal/provider/tencent"
	"github.com/Haoqi7/FundQuant-Pro/internal/quotes"
	"github.com/Haoqi7/FundQuant-Pro/internal/scheduler"
	"github.com/Haoqi7/FundQuant-Pro/internal/storage"
	"github.com/Haoqi7/FundQuant-Pro/internal/storage/archive"
	"github.com/Haoqi7/FundQuant-Pro/internal/valuation"
	"go.uber.org/zap"
)

// chatFactory builds an advisory provider from config. Swappable in
// tests.
type chatFactory func(core.AdvisoryConfig) (llm.Provider, error)

// App is the application context.
type App struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Registry

	store     *storage.Store
	quotes    *quotes.Store
	gateway   *gateway.Gateway
	engine    *valuation.Engine
	ledger    *ledger.Ledger
	scheduler *scheduler.Scheduler
	newChat   chatFactory

	mu          sync.RWMutex
	watchlist   []string
	advisory    core.AdvisoryConfig
	calibrating bool
}

// New constructs the full component graph from configuration. Nothing
// is started and no persisted state is loaded yet; call Start.
func New(cfg *config.Config, m *metrics.Registry, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	backend, err := newBackend(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("creating storage backend: %w", err)
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		store:   storage.New(backend, logger.Named("storage")),
		quotes:  quotes.NewStore(),
		engine:  valuation.NewEngine(core.ModeDirect, logger.Named("valuation")),
		ledger:  ledger.New(),
		newChat: factory.New,
		advisory: core.AdvisoryConfig{
			Provider:     cfg.Advisory.Provider,
			BaseURL:      cfg.Advisory.BaseURL,
			APIKey:       cfg.Advisory.APIKey,
			ModelName:    cfg.Advisory.Model,
			SystemPrompt: cfg.Advisory.SystemPrompt,
		},
	}

	reg := provider.NewRegistry()
	register := func(name string, build func(provider.Config) provider.Transport) {
		pc, ok := cfg.Providers[name]
		if ok && !pc.Enabled {
			return
		}
		reg.Register(build(provider.Config{Enabled: true, Timeout: pc.Timeout}))
	}
	register("eastmoney", func(pc provider.Config) provider.Transport { return eastmoney.New(pc) })
	register("tencent", func(pc provider.Config) provider.Transport { return tencent.New(pc) })
	register("sina", func(pc provider.Config) provider.Transport { return sina.New(pc) })

	gwCfg := gateway.DefaultConfig()
	gwCfg.RankingPool = cfg.Market.RankingPool
	gwCfg.RankingTop = cfg.Market.RankingTop
	gwCfg.HoldingsTTL = cfg.Market.HoldingsTTL
	a.gateway = gateway.New(gwCfg, reg, a.quotes, m, logger.Named("gateway"))

	a.scheduler = scheduler.New(
		scheduler.Config{
			Interval:  cfg.Market.RefreshInterval,
			BatchSize: cfg.Market.BatchSize,
		},
		a.gateway,
		a.quotes,
		a.activeSet,
		m,
		logger.Named("scheduler"),
	)

	return a, nil
}

func newBackend(cfg config.StorageConfig) (archive.Backend, error) {
	switch cfg.Type {
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	default:
		return archive.NewLocalFS(cfg.Path)
	}
}

// Start loads persisted state and runs the refresh scheduler until ctx
// is cancelled.
func (a *App) Start(ctx context.Context) error {
	if err := a.Load(ctx); err != nil {
		return err
	}
	return a.scheduler.Start(ctx)
}

// Stop cancels the refresh scheduler.
func (a *App) Stop() {
	a.scheduler.Stop()
}

// Load restores persisted state. Start calls it; one-shot commands can
// call it directly without running the scheduler.
func (a *App) Load(ctx context.Context) error {
	data, err := a.store.LoadUserData(ctx)
	if err != nil {
		return err
	}
	a.ledger.Restore(data.Positions, data.Transactions)

	a.mu.Lock()
	a.watchlist = append([]string(nil), data.Watchlist...)
	if data.Advisory.APIKey != "" || data.Advisory.BaseURL != "" {
		a.advisory = data.Advisory
	}
	a.mu.Unlock()

	table, err := a.store.LoadFactorTable(ctx)
	if err != nil {
		return err
	}
	a.engine.SetFactors(table)

	a.logger.Info("state loaded",
		zap.Int("positions", len(data.Positions)),
		zap.Int("watchlist", len(data.Watchlist)),
		zap.Int("factors", len(table)),
	)
	return nil
}

// saveState persists the user data document after a mutation. Failures
// are logged, not fatal; in-memory state stays authoritative.
func (a *App) saveState(ctx context.Context) {
	a.mu.RLock()
	data := storage.UserData{
		Positions:    a.ledger.Positions(),
		Transactions: a.ledger.Transactions(),
		Watchlist:    append([]string(nil), a.watchlist...),
		Advisory:     a.advisory,
	}
	a.mu.RUnlock()

	if err := a.store.SaveUserData(ctx, data); err != nil {
		a.logger.Error("saving user data", zap.Error(err))
	}
}

// activeSet is the union of portfolio, watchlist and ranking-pool
// codes.
func (a *App) activeSet() []string {
	a.mu.RLock()
	watchlist := append([]string(nil), a.watchlist...)
	a.mu.RUnlock()

	var codes []string
	codes = append(codes, a.ledger.Codes()...)
	codes = append(codes, watchlist...)
	codes = append(codes, a.cfg.Market.RankingPool...)
	return codes
}
