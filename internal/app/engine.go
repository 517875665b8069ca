package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/vitos/overseas_trade_engine/internal/config"
	"github.com/vitos/overseas_trade_engine/internal/domain"
	"github.com/vitos/overseas_trade_engine/internal/infrastructure/exchange"
	"github.com/vitos/overseas_trade_engine/internal/infrastructure/notify"
	"github.com/vitos/overseas_trade_engine/internal/infrastructure/storage"
	"github.com/vitos/overseas_trade_engine/internal/usecase"
	"go.uber.org/zap"
)

// Engine holds every wired component of a trading run.
type Engine struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    *storage.SQLiteStore
	Client   *exchange.KISClient
	Gateway  *usecase.MarketGateway
	Router   *usecase.OrderRouter
	Planner  *usecase.AllocationPlanner
	Policy   *usecase.LiquidationPolicy
	Cycle    *usecase.TradingCycle
	Notifier domain.Notifier

	closers []func() error
}

// Options selects the optional parts of the wiring.
type Options struct {
	// WithSignals connects the signal database; the buy phase needs it.
	WithSignals bool
}

// NewEngine wires the brokerage client, the usecases and their stores.
func NewEngine(ctx context.Context, cfg *config.Config, log *zap.Logger, opts Options) (*Engine, error) {
	e := &Engine{Config: cfg, Logger: log}

	if dir := filepath.Dir(cfg.Storage.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := storage.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("init sqlite: %w", err)
	}
	e.Store = store
	e.closers = append(e.closers, store.Close)

	tokens, err := e.tokenStore(ctx)
	if err != nil {
		e.Close()
		return nil, err
	}

	auth := exchange.NewKISAuth(cfg.Broker.BaseURL, cfg.Broker.AppKey, cfg.Broker.AppSecret, cfg.Broker.RequestTimeout, log)
	cache := usecase.NewTokenCache(tokens, auth, cfg.TokenCache.TTL, log)
	token, err := cache.GetToken(ctx)
	if err != nil {
		e.Close()
		return nil, err
	}

	e.Client = exchange.NewKISClient(exchange.ClientConfig{
		BaseURL:        cfg.Broker.BaseURL,
		AppKey:         cfg.Broker.AppKey,
		AppSecret:      cfg.Broker.AppSecret,
		AccountNo:      cfg.Broker.AccountNo,
		AccountProduct: cfg.Broker.AccountProduct,
		CustomerType:   cfg.Broker.CustomerType,
		Currency:       cfg.Trading.Currency,
		Timeout:        cfg.Broker.RequestTimeout,
	}, token, log)

	e.Notifier = NewNotifier(cfg, log)

	minBuy, err := decimal.NewFromString(cfg.Trading.MinBuyAmount)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("trading.min_buy_amount: %w", err)
	}

	trIDs := usecase.TransactionIDs(domain.DefaultVenues, map[domain.Side]string{
		domain.SideBuy:  cfg.Broker.BuyTrID,
		domain.SideSell: cfg.Broker.SellTrID,
	})
	account := usecase.Account{Number: cfg.Broker.AccountNo, ProductCode: cfg.Broker.AccountProduct}

	e.Gateway = usecase.NewMarketGateway(e.Client, log)
	e.Router = usecase.NewOrderRouter(e.Client, auth, account, trIDs, cfg.Trading.RateLimitBackoff, log)
	e.Planner = usecase.NewAllocationPlanner(e.Gateway, e.Router, minBuy, cfg.Trading.OrderDelay, log)
	e.Policy = usecase.NewLiquidationPolicy(e.Client, e.Gateway, e.Router, cfg.Trading.StopLossHoldDays, cfg.Trading.OrderDelay, log)

	var signals domain.SignalSource
	if opts.WithSignals {
		pool, err := storage.NewPostgresPool(ctx, cfg.Signals.DatabaseURL, cfg.Signals.MaxConns)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("signals database: %w", err)
		}
		e.closers = append(e.closers, func() error { pool.Close(); return nil })
		signals = storage.NewPostgresSignalStore(pool)
	}

	e.Cycle = usecase.NewTradingCycle(e.Client, signals, e.Policy, e.Planner, store, e.Notifier, cfg.Trading.Currency, log)
	return e, nil
}

func (e *Engine) tokenStore(ctx context.Context) (domain.TokenStore, error) {
	tc := e.Config.TokenCache
	if tc.Backend != "redis" {
		return e.Store, nil
	}
	rs, err := storage.NewRedisTokenStore(ctx, storage.RedisConfig{
		Addr:     tc.RedisAddr,
		Password: tc.RedisPassword,
		DB:       tc.RedisDB,
		Key:      tc.RedisKey,
	})
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, rs.Close)
	return rs, nil
}

// Close releases every resource in reverse order of acquisition.
func (e *Engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			e.Logger.Warn("Close failed", zap.Error(err))
		}
	}
	e.closers = nil
}

// NewNotifier returns the Discord notifier when a webhook is configured and a
// log-only notifier otherwise.
func NewNotifier(cfg *config.Config, log *zap.Logger) domain.Notifier {
	if cfg.Notify.DiscordWebhookURL == "" {
		return notify.NewLogNotifier(log)
	}
	return notify.NewDiscordNotifier(cfg.Notify.DiscordWebhookURL, log)
}
