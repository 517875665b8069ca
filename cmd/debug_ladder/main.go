package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/vitos/overseas_trade_engine/internal/config"
	"github.com/vitos/overseas_trade_engine/internal/domain"
	"github.com/vitos/overseas_trade_engine/internal/infrastructure/exchange"
	"github.com/vitos/overseas_trade_engine/internal/infrastructure/logger"
	"github.com/vitos/overseas_trade_engine/internal/infrastructure/storage"
	"github.com/vitos/overseas_trade_engine/internal/usecase"
)

// debug_ladder prints the last price and the ask ladder of one symbol using
// the cached access token.
func main() {
	configPath := flag.String("config", config.DefaultPath, "path to config file")
	venue := flag.String("venue", string(domain.VenueNASDAQ), "venue for the ask ladder")
	flag.Parse()

	symbol := "AAPL"
	if flag.NArg() > 0 {
		symbol = strings.ToUpper(flag.Arg(0))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	zlog, err := logger.NewLogger("debug")
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zlog.Sync()

	ctx := context.Background()

	store, err := storage.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	auth := exchange.NewKISAuth(cfg.Broker.BaseURL, cfg.Broker.AppKey, cfg.Broker.AppSecret, cfg.Broker.RequestTimeout, zlog)
	token, err := usecase.NewTokenCache(store, auth, cfg.TokenCache.TTL, zlog).GetToken(ctx)
	if err != nil {
		log.Fatalf("Failed to get token: %v", err)
	}

	client := exchange.NewKISClient(exchange.ClientConfig{
		BaseURL:   cfg.Broker.BaseURL,
		AppKey:    cfg.Broker.AppKey,
		AppSecret: cfg.Broker.AppSecret,
		AccountNo: cfg.Broker.AccountNo,
		Timeout:   cfg.Broker.RequestTimeout,
	}, token, zlog)
	gateway := usecase.NewMarketGateway(client, zlog)

	fmt.Printf("Fetching last price for %s...\n", symbol)
	if price, ok := gateway.GetLastPrice(ctx, symbol); ok {
		fmt.Printf("Last price: %s\n", price.String())
	} else {
		fmt.Println("No price on any venue")
	}

	fmt.Printf("\nFetching ask ladder for %s on %s...\n", symbol, *venue)
	ladder, err := gateway.GetAskLadder(ctx, symbol, domain.Venue(*venue))
	if err != nil {
		fmt.Printf("Error fetching ladder: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Ask ladder: %d levels\n", len(ladder))
	for i, lvl := range ladder {
		fmt.Printf("%2d. %s x %d\n", i+1, lvl.Price.String(), lvl.Volume)
	}
}
