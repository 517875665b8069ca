package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vitos/overseas_trade_engine/internal/domain"
	"go.uber.org/zap"
)

// Server exposes the trade journal over read-only JSON endpoints.
type Server struct {
	router    *http.ServeMux
	server    *http.Server
	tradeRepo domain.TradeRepository
	logger    *zap.Logger
}

func NewServer(port int, tradeRepo domain.TradeRepository, logger *zap.Logger) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		tradeRepo: tradeRepo,
		logger:    logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Trades
	s.router.HandleFunc("GET /api/trades", s.handleListTradesJSON)

	// Status
	s.router.HandleFunc("GET /status", s.handleStatus)
}

// Handler returns the routed handler, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting journal server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
