// Package scheduler keeps the active code set's quotes current. A
// single logical timer is re-armed after each cycle completes, never
// at a fixed rate, so a slow cycle cannot overlap the next one.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
	"github.com/Haoqi7/FundQuant-Pro/internal/metrics"
	"github.com/Haoqi7/FundQuant-Pro/internal/quotes"
	"go.uber.org/zap"
)

// QuoteFetcher resolves one code to a quote; absent results are
// expected during provider outages.
type QuoteFetcher interface {
	Quote(ctx context.Context, code string) (core.Quote, bool)
}

// ActiveSetFunc computes the codes needing refresh: the union of
// portfolio, watchlist and ranking-pool codes. Duplicates are fine;
// the scheduler dedupes.
type ActiveSetFunc func() []string

// Config holds scheduler settings.
type Config struct {
	Interval  time.Duration
	BatchSize int
}

// Scheduler drives periodic quote refreshes into the live-quote store.
type Scheduler struct {
	cfg       Config
	logger    *zap.Logger
	metrics   *metrics.Registry
	fetcher   QuoteFetcher
	store     *quotes.Store
	activeSet ActiveSetFunc

	mu      sync.Mutex
	online  bool
	running bool
	cancel  context.CancelFunc
}

// New creates a scheduler. It starts online.
func New(cfg Config, fetcher QuoteFetcher, store *quotes.Store, activeSet ActiveSetFunc, m *metrics.Registry, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	return &Scheduler{
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		fetcher:   fetcher,
		store:     store,
		activeSet: activeSet,
		online:    true,
	}
}

// SetOnline toggles the offline flag. While offline, cycles are no-ops
// but the timer keeps re-arming so refreshes resume automatically.
func (s *Scheduler) SetOnline(online bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online = online
}

// Online reports whether fetching is enabled.
func (s *Scheduler) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Start runs the refresh loop until ctx is cancelled or Stop is
// called. The interval is measured from cycle completion, not cycle
// start.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("refresh scheduler starting",
		zap.Duration("interval", s.cfg.Interval),
		zap.Int("batch_size", s.cfg.BatchSize),
	)

	for {
		s.RunCycle(ctx)

		timer := time.NewTimer(s.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("refresh scheduler stopping")
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Stop cancels the refresh loop.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// RunCycle executes one refresh cycle and returns the number of quotes
// merged. Exported so tests and on-demand refreshes can drive cycles
// without real delays.
func (s *Scheduler) RunCycle(ctx context.Context) int {
	if !s.Online() {
		s.logger.Debug("offline, skipping refresh cycle")
		return 0
	}

	codes := dedupe(s.activeSet())
	if len(codes) == 0 {
		s.logger.Debug("active code set empty, skipping fetch")
		return 0
	}

	start := time.Now()
	updates := make(map[string]core.Quote, len(codes))
	var mu sync.Mutex

	// Batches run sequentially to cap concurrent outbound requests;
	// fetches within a batch run concurrently and are awaited as a
	// group.
	for i := 0; i < len(codes); i += s.cfg.BatchSize {
		if ctx.Err() != nil {
			break
		}

		end := i + s.cfg.BatchSize
		if end > len(codes) {
			end = len(codes)
		}

		var wg sync.WaitGroup
		for _, code := range codes[i:end] {
			wg.Add(1)
			go func(code string) {
				defer wg.Done()
				q, ok := s.fetcher.Quote(ctx, code)
				if !ok {
					return
				}
				mu.Lock()
				updates[code] = q
				mu.Unlock()
			}(code)
		}
		wg.Wait()
	}

	// One atomic merge per cycle; partial results still apply.
	s.store.Merge(updates)

	s.metrics.RecordRefreshCycle(time.Since(start).Seconds())
	s.metrics.SetLiveQuotes(s.store.Len())
	s.logger.Debug("refresh cycle complete",
		zap.Int("active", len(codes)),
		zap.Int("fetched", len(updates)),
		zap.Duration("took", time.Since(start)),
	)
	return len(updates)
}

func dedupe(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := codes[:0:0]
	for _, c := range codes {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
