package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vitos/overseas_trade_engine/internal/app"
	"github.com/vitos/overseas_trade_engine/internal/config"
	"github.com/vitos/overseas_trade_engine/internal/infrastructure/logger"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		return 1
	}

	// 2. Init Logger
	log, err := logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		return 1
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Wire brokerage, stores and usecases
	engine, err := app.NewEngine(ctx, cfg, log, app.Options{WithSignals: true})
	if err != nil {
		log.Error("Failed to start trader", zap.Error(err))
		app.NewNotifier(cfg, log).Notify(ctx, fmt.Sprintf("Trader failed to start: %v", err))
		return 1
	}
	defer engine.Close()

	// 4. Run one cycle
	report, err := engine.Cycle.Run(ctx)
	if err != nil {
		log.Error("Trading cycle failed", zap.Error(err))
		engine.Notifier.Notify(ctx, fmt.Sprintf("Trading cycle failed: %v", err))
		return 1
	}

	log.Info("Done",
		zap.String("run_id", report.RunID),
		zap.Int("sell_orders", report.SellOrderCount),
		zap.Int("buy_orders", report.BuyOrderCount))
	return 0
}
