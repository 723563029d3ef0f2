// Package api exposes the application over HTTP with a JSON envelope.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Haoqi7/FundQuant-Pro/internal/core"
	"github.com/Haoqi7/FundQuant-Pro/internal/ledger"
	"github.com/Haoqi7/FundQuant-Pro/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App is the surface the HTTP layer needs from the application context.
type App interface {
	Stats() map[string]any
	Quotes() map[string]core.Quote
	Search(ctx context.Context, keyword string) ([]core.FundMeta, bool)
	Ranking(ctx context.Context) []core.Quote
	Holdings(ctx context.Context, code string) (core.HoldingsSnapshot, bool)
	Valuation(ctx context.Context, code string, mode core.ValuationMode) (core.Valuation, error)

	Watchlist() []string
	AddToWatchlist(ctx context.Context, code string) error
	RemoveFromWatchlist(ctx context.Context, code string) bool

	Portfolio() []ledger.PositionValue
	Trade(ctx context.Context, code string, kind core.TradeKind, amountCny, priceNav float64) (core.Transaction, error)
	Transactions() []core.Transaction

	Calibrate(ctx context.Context) (int, error)
	Refresh(ctx context.Context) int
	SetOnline(online bool)
	Online() bool

	Advisory() core.AdvisoryConfig
	UpdateAdvisory(ctx context.Context, cfg core.AdvisoryConfig)
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	MetricsPath string
}

// Server is the HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	app        App
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(cfg Config, app App, m *metrics.Registry, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{logger: logger, app: app}

	mux := http.NewServeMux()
	s.routes(mux)

	if m != nil && m.Registry != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	}

	var handler http.Handler = mux
	handler = metrics.HTTPMiddleware(m)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("GET /api/quotes", s.handleQuotes)
	mux.HandleFunc("GET /api/funds/search", s.handleSearch)
	mux.HandleFunc("GET /api/ranking", s.handleRanking)
	mux.HandleFunc("GET /api/funds/{code}/holdings", s.handleHoldings)
	mux.HandleFunc("GET /api/funds/{code}/valuation", s.handleValuation)

	mux.HandleFunc("GET /api/watchlist", s.handleWatchlistList)
	mux.HandleFunc("POST /api/watchlist", s.handleWatchlistAdd)
	mux.HandleFunc("DELETE /api/watchlist/{code}", s.handleWatchlistRemove)

	mux.HandleFunc("GET /api/portfolio", s.handlePortfolio)
	mux.HandleFunc("POST /api/trades", s.handleTrade)
	mux.HandleFunc("GET /api/transactions", s.handleTransactions)

	mux.HandleFunc("POST /api/calibrate", s.handleCalibrate)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("PUT /api/system/online", s.handleOnline)

	mux.HandleFunc("GET /api/advisory", s.handleAdvisoryGet)
	mux.HandleFunc("PUT /api/advisory", s.handleAdvisoryUpdate)
}

// Handler returns the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
