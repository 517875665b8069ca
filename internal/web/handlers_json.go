package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	defaultTradeLimit = 50
	maxTradeLimit     = 500
)

func (s *Server) handleListTradesJSON(w http.ResponseWriter, r *http.Request) {
	limit := defaultTradeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxTradeLimit)
	}

	trades, err := s.tradeRepo.ListTrades(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list trades", zap.Error(err))
		http.Error(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, trades)
}

type statusResponse struct {
	Status    string     `json:"status"`
	LastTrade *time.Time `json:"last_trade,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: "ok"}
	trades, err := s.tradeRepo.ListTrades(r.Context(), 1)
	if err != nil {
		s.logger.Warn("Status: journal unavailable", zap.Error(err))
		resp.Status = "degraded"
	} else if len(trades) > 0 {
		resp.LastTrade = &trades[0].CreatedAt
	}
	s.writeJSON(w, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
