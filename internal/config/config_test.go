package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
broker:
  app_key: file-key
  app_secret: file-secret
  account_no: "11112222"
trading:
  order_delay: 2s
  stop_loss_hold_days: 7
token_cache:
  backend: sqlite
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileOverDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.Broker.AppKey)
	assert.Equal(t, 2*time.Second, cfg.Trading.OrderDelay)
	assert.Equal(t, 7, cfg.Trading.StopLossHoldDays)
	// untouched defaults
	assert.Equal(t, time.Second, cfg.Trading.RateLimitBackoff)
	assert.Equal(t, 24*time.Hour, cfg.TokenCache.TTL)
	assert.Equal(t, "TTTT1002U", cfg.Broker.BuyTrID)
	assert.Equal(t, "USD", cfg.Trading.Currency)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("KIS_APP_KEY", "env-key")
	t.Setenv("TRADING_ORDER_DELAY", "500ms")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.example/webhook")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Broker.AppKey)
	assert.Equal(t, "file-secret", cfg.Broker.AppSecret)
	assert.Equal(t, 500*time.Millisecond, cfg.Trading.OrderDelay)
	assert.Equal(t, "https://discord.example/webhook", cfg.Notify.DiscordWebhookURL)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Defaults().Broker.BaseURL, cfg.Broker.BaseURL)
	assert.Error(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "broker: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Broker.AppKey = "k"
	cfg.Broker.AppSecret = "s"
	cfg.Broker.AccountNo = "1"
	require.NoError(t, cfg.Validate())

	cfg.TokenCache.Backend = "redis"
	assert.ErrorContains(t, cfg.Validate(), "redis_addr")

	cfg.TokenCache.Backend = "memcached"
	assert.ErrorContains(t, cfg.Validate(), "unknown token_cache.backend")

	cfg.TokenCache.Backend = "sqlite"
	cfg.Trading.OrderDelay = -time.Second
	assert.Error(t, cfg.Validate())
}
