package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Seesaw/internal/gear"
	"Seesaw/internal/trigger"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Portfolio.CapacityUnits)
	assert.Equal(t, 1300.0, cfg.Portfolio.FXRate)
	assert.Equal(t, "three_tier", cfg.Engine.SellLadder)
	assert.Equal(t, "gear", cfg.Engine.LoadMode)
	assert.Equal(t, "A", cfg.Engine.DefaultModel)
	assert.True(t, cfg.Quantize())
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "KRW=X", cfg.DataSource.FXSymbol)
	assert.Equal(t, "configs/traits.yaml", cfg.Traits.Path)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
portfolio:
  capacity_units: 20
  max_volume: 50000000
engine:
  sell_ladder: two_tier
  load_mode: trend
  quantize_auto_gear: false
data_source:
  symbols:
    SAMSUNG: 005930.KS
`), 0644))

	t.Setenv("SEESAW_PORTFOLIO_MAX_VOLUME", "80000000")
	t.Setenv("SEESAW_TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("SEESAW_TELEGRAM_CHAT_ID", "42")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Portfolio.CapacityUnits)
	assert.Equal(t, 80000000.0, cfg.Portfolio.MaxVolume)
	assert.Equal(t, "005930.KS", cfg.DataSource.Symbols["SAMSUNG"])
	assert.False(t, cfg.Quantize())
	assert.Equal(t, "token", cfg.Telegram.BotToken)
	require.NoError(t, cfg.Validate())

	opt, err := cfg.TriggerOptions()
	require.NoError(t, err)
	assert.Equal(t, gear.TwoTier, opt.Ladder)
	assert.Equal(t, trigger.LoadTrend, opt.LoadForm)

	pc := cfg.PortfolioContext()
	assert.Equal(t, 20, pc.CapacityUnits)
	assert.Equal(t, 1300.0, pc.FXAvgRate)
}

func TestLoad_JSONFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"portfolio":{"capacity_units":30,"max_volume":1000}}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Portfolio.CapacityUnits)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"capacity", func(c *Config) { c.Portfolio.CapacityUnits = 0 }},
		{"max volume", func(c *Config) { c.Portfolio.MaxVolume = -1 }},
		{"fx rate", func(c *Config) { c.Portfolio.FXRate = 0 }},
		{"ladder", func(c *Config) { c.Engine.SellLadder = "four_tier" }},
		{"load mode", func(c *Config) { c.Engine.LoadMode = "cubic" }},
		{"saturation", func(c *Config) { c.Engine.RescueUSat = 1 }},
		{"model", func(c *Config) { c.Engine.DefaultModel = "Z" }},
		{"provider", func(c *Config) { c.DataSource.Provider = "bloomberg" }},
		{"telegram", func(c *Config) { c.Telegram.BotToken = "only-token" }},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Portfolio.CapacityUnits = 40

	for _, name := range []string{"out.yaml", "nested/out.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, cfg.SaveToFile(path))

		loaded, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 40, loaded.Portfolio.CapacityUnits, name)
		assert.Equal(t, cfg.Cache.TTL, loaded.Cache.TTL, name)
	}
}
