package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type Config struct {
	Broker struct {
		BaseURL        string        `yaml:"base_url" env:"KIS_BASE_URL"`
		AppKey         string        `yaml:"app_key" env:"KIS_APP_KEY"`
		AppSecret      string        `yaml:"app_secret" env:"KIS_APP_SECRET"`
		AccountNo      string        `yaml:"account_no" env:"KIS_ACCOUNT_NO"`
		AccountProduct string        `yaml:"account_product" env:"KIS_ACCOUNT_PRODUCT"`
		CustomerType   string        `yaml:"customer_type" env:"KIS_CUSTOMER_TYPE"`
		RequestTimeout time.Duration `yaml:"request_timeout" env:"KIS_REQUEST_TIMEOUT"`
		BuyTrID        string        `yaml:"buy_tr_id" env:"KIS_BUY_TR_ID"`
		SellTrID       string        `yaml:"sell_tr_id" env:"KIS_SELL_TR_ID"`
	} `yaml:"broker"`
	Trading struct {
		Currency         string        `yaml:"currency" env:"TRADING_CURRENCY"`
		MinBuyAmount     string        `yaml:"min_buy_amount" env:"TRADING_MIN_BUY_AMOUNT"`
		OrderDelay       time.Duration `yaml:"order_delay" env:"TRADING_ORDER_DELAY"`
		RateLimitBackoff time.Duration `yaml:"rate_limit_backoff" env:"TRADING_RATE_LIMIT_BACKOFF"`
		StopLossHoldDays int           `yaml:"stop_loss_hold_days" env:"TRADING_STOP_LOSS_HOLD_DAYS"`
	} `yaml:"trading"`
	TokenCache struct {
		Backend       string        `yaml:"backend" env:"TOKEN_CACHE_BACKEND"` // "sqlite" or "redis"
		TTL           time.Duration `yaml:"ttl" env:"TOKEN_CACHE_TTL"`
		RedisAddr     string        `yaml:"redis_addr" env:"TOKEN_CACHE_REDIS_ADDR"`
		RedisPassword string        `yaml:"redis_password" env:"TOKEN_CACHE_REDIS_PASSWORD"`
		RedisDB       int           `yaml:"redis_db" env:"TOKEN_CACHE_REDIS_DB"`
		RedisKey      string        `yaml:"redis_key" env:"TOKEN_CACHE_REDIS_KEY"`
	} `yaml:"token_cache"`
	Storage struct {
		SQLitePath string `yaml:"sqlite_path" env:"STORAGE_SQLITE_PATH"`
	} `yaml:"storage"`
	Signals struct {
		DatabaseURL string `yaml:"database_url" env:"SIGNALS_DATABASE_URL"`
		MaxConns    int    `yaml:"max_conns" env:"SIGNALS_MAX_CONNS"`
	} `yaml:"signals"`
	Notify struct {
		DiscordWebhookURL string `yaml:"discord_webhook_url" env:"DISCORD_WEBHOOK_URL"`
	} `yaml:"notify"`
	Logging struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
		File  string `yaml:"file" env:"LOG_FILE"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port" env:"SERVER_PORT"`
	} `yaml:"server"`
}

// Defaults returns a Config with every optional value populated.
func Defaults() Config {
	var cfg Config
	cfg.Broker.BaseURL = "https://openapi.koreainvestment.com:9443"
	cfg.Broker.AccountProduct = "01"
	cfg.Broker.CustomerType = "P"
	cfg.Broker.RequestTimeout = 10 * time.Second
	cfg.Broker.BuyTrID = "TTTT1002U"
	cfg.Broker.SellTrID = "TTTT1006U"
	cfg.Trading.Currency = "USD"
	cfg.Trading.MinBuyAmount = "0.01"
	cfg.Trading.OrderDelay = time.Second
	cfg.Trading.RateLimitBackoff = time.Second
	cfg.Trading.StopLossHoldDays = 5
	cfg.TokenCache.Backend = "sqlite"
	cfg.TokenCache.TTL = 24 * time.Hour
	cfg.Storage.SQLitePath = "logs/trader.db"
	cfg.Signals.MaxConns = 2
	cfg.Logging.Level = "info"
	cfg.Logging.File = "logs/trading.log"
	cfg.Server.Port = 8080
	return cfg
}

// Load reads the YAML file at path on top of Defaults, then applies a .env
// file (if present) and environment overrides. A missing config file is not
// an error; everything can come from the environment.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	_ = godotenv.Load()

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values the trading binaries cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Broker.AppKey == "" || c.Broker.AppSecret == "" {
		errs = append(errs, errors.New("broker.app_key and broker.app_secret are required"))
	}
	if c.Broker.AccountNo == "" {
		errs = append(errs, errors.New("broker.account_no is required"))
	}
	if c.Trading.OrderDelay < 0 || c.Trading.RateLimitBackoff < 0 {
		errs = append(errs, errors.New("trading delays must not be negative"))
	}
	switch c.TokenCache.Backend {
	case "sqlite":
	case "redis":
		if c.TokenCache.RedisAddr == "" {
			errs = append(errs, errors.New("token_cache.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown token_cache.backend %q", c.TokenCache.Backend))
	}
	return errors.Join(errs...)
}
