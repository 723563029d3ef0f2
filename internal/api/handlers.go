package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Haoqi7/FundQuant-Pro/internal/api/response"
	"github.com/Haoqi7/FundQuant-Pro/internal/core"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stats":  s.app.Stats(),
	})
}

func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	quotes := s.app.Quotes()
	response.JSON(w, http.StatusOK, map[string]any{
		"quotes": quotes,
		"count":  len(quotes),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("q")

	results, ok := s.app.Search(r.Context(), keyword)
	if !ok {
		response.Error(w, 0, core.ErrAllProvidersExhausted)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	ranking := s.app.Ranking(r.Context())
	response.JSON(w, http.StatusOK, map[string]any{
		"ranking": ranking,
		"count":   len(ranking),
	})
}

func (s *Server) handleHoldings(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	snap, ok := s.app.Holdings(r.Context(), code)
	if !ok {
		response.Error(w, 0, core.ErrNoData)
		return
	}
	response.JSON(w, http.StatusOK, snap)
}

func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	mode := core.ValuationMode(r.URL.Query().Get("mode"))
	switch mode {
	case "", core.ModeDirect, core.ModeModel:
	default:
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown valuation mode %q", mode)))
		return
	}

	v, err := s.app.Valuation(r.Context(), code, mode)
	if err != nil {
		response.Error(w, 0, err)
		return
	}
	response.JSON(w, http.StatusOK, v)
}

func (s *Server) handleWatchlistList(w http.ResponseWriter, r *http.Request) {
	codes := s.app.Watchlist()
	response.JSON(w, http.StatusOK, map[string]any{
		"codes": codes,
		"count": len(codes),
	})
}

type watchlistAddRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleWatchlistAdd(w http.ResponseWriter, r *http.Request) {
	var req watchlistAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	if err := s.app.AddToWatchlist(r.Context(), req.Code); err != nil {
		response.Error(w, 0, err)
		return
	}
	response.JSON(w, http.StatusCreated, map[string]any{
		"code":  req.Code,
		"added": true,
	})
}

func (s *Server) handleWatchlistRemove(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	if !s.app.RemoveFromWatchlist(r.Context(), code) {
		response.Error(w, http.StatusNotFound, core.ErrCodeNotFound)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"code":    code,
		"removed": true,
	})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	positions := s.app.Portfolio()
	response.JSON(w, http.StatusOK, map[string]any{
		"positions": positions,
		"count":     len(positions),
	})
}

type tradeRequest struct {
	Code      string  `json:"code"`
	Kind      string  `json:"kind"`
	AmountCny float64 `json:"amountCny"`
	PriceNav  float64 `json:"priceNav"`
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	kind := core.TradeKind(req.Kind)
	if kind != core.TradeBuy && kind != core.TradeSell {
		response.Error(w, http.StatusBadRequest, core.ErrInvalidTrade)
		return
	}

	tx, err := s.app.Trade(r.Context(), req.Code, kind, req.AmountCny, req.PriceNav)
	if err != nil {
		response.Error(w, 0, err)
		return
	}
	response.JSON(w, http.StatusCreated, tx)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	txs := s.app.Transactions()
	response.JSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"count":        len(txs),
	})
}

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	n, err := s.app.Calibrate(r.Context())
	if err != nil {
		response.Error(w, 0, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"updated": n,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	merged := s.app.Refresh(r.Context())
	response.JSON(w, http.StatusOK, map[string]any{
		"merged": merged,
	})
}

type onlineRequest struct {
	Online bool `json:"online"`
}

func (s *Server) handleOnline(w http.ResponseWriter, r *http.Request) {
	var req onlineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	s.app.SetOnline(req.Online)
	response.JSON(w, http.StatusOK, map[string]any{
		"online": s.app.Online(),
	})
}

func (s *Server) handleAdvisoryGet(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, s.app.Advisory())
}

func (s *Server) handleAdvisoryUpdate(w http.ResponseWriter, r *http.Request) {
	var cfg core.AdvisoryConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	s.app.UpdateAdvisory(r.Context(), cfg)
	response.JSON(w, http.StatusOK, s.app.Advisory())
}
