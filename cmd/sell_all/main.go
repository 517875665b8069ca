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
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := app.NewEngine(ctx, cfg, log, app.Options{})
	if err != nil {
		log.Fatal("Failed to start", zap.Error(err))
	}
	defer engine.Close()

	report, err := engine.Cycle.SellAll(ctx)
	if err != nil {
		log.Error("Sell-all failed", zap.Error(err))
		engine.Close()
		os.Exit(1)
	}
	fmt.Printf("Sold %d positions, %d remaining\n", report.SellOrderCount, report.HoldingsAfter)
}
