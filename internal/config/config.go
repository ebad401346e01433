package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"Seesaw/internal/gear"
	"Seesaw/internal/gearbox"
	"Seesaw/internal/portfolio"
	"Seesaw/internal/trigger"
)

// EnvPrefix prefixes every environment override, e.g. SEESAW_PORTFOLIO_MAX_VOLUME.
const EnvPrefix = "SEESAW"

// Config holds all application configuration.
type Config struct {
	Portfolio struct {
		CapacityUnits int     `yaml:"capacity_units" json:"capacity_units" split_words:"true"`
		MaxVolume     float64 `yaml:"max_volume" json:"max_volume" split_words:"true"`
		FXRate        float64 `yaml:"fx_rate" json:"fx_rate" split_words:"true"`
		FXAvgRate     float64 `yaml:"fx_avg_rate" json:"fx_avg_rate" split_words:"true"`
		BaseCurrency  string  `yaml:"base_currency" json:"base_currency" split_words:"true"`
	} `yaml:"portfolio" json:"portfolio" envconfig:"PORTFOLIO"`
	Engine struct {
		SellLadder       string  `yaml:"sell_ladder" json:"sell_ladder" split_words:"true"`
		LoadMode         string  `yaml:"load_mode" json:"load_mode" split_words:"true"`
		RescueUSat       float64 `yaml:"rescue_u_sat" json:"rescue_u_sat" split_words:"true"`
		DefaultModel     string  `yaml:"default_model" json:"default_model" split_words:"true"`
		QuantizeAutoGear *bool   `yaml:"quantize_auto_gear,omitempty" json:"quantize_auto_gear,omitempty" split_words:"true"`
	} `yaml:"engine" json:"engine" envconfig:"ENGINE"`
	Traits struct {
		Path string `yaml:"path" json:"path" split_words:"true"`
	} `yaml:"traits" json:"traits" envconfig:"TRAITS"`
	Data struct {
		PositionsFile string `yaml:"positions_file" json:"positions_file" split_words:"true"`
		StateFile     string `yaml:"state_file" json:"state_file" split_words:"true"`
		SQLitePath    string `yaml:"sqlite_path" json:"sqlite_path" envconfig:"SQLITE_PATH"`
	} `yaml:"data" json:"data" envconfig:"DATA"`
	DataSource struct {
		Provider          string            `yaml:"provider" json:"provider" split_words:"true"`
		BaseURL           string            `yaml:"base_url" json:"base_url" split_words:"true"`
		FXSymbol          string            `yaml:"fx_symbol" json:"fx_symbol" split_words:"true"`
		Symbols           map[string]string `yaml:"symbols" json:"symbols" split_words:"true"`
		RequestsPerSecond float64           `yaml:"requests_per_second" json:"requests_per_second" split_words:"true"`
		HistoryDays       int               `yaml:"history_days" json:"history_days" split_words:"true"`
		RetryCount        int               `yaml:"retry_count" json:"retry_count" split_words:"true"`
		Timeout           time.Duration     `yaml:"timeout" json:"timeout" split_words:"true"`
	} `yaml:"data_source" json:"data_source" envconfig:"DATA_SOURCE"`
	Cache struct {
		RedisAddr string        `yaml:"redis_addr" json:"redis_addr" split_words:"true"`
		RedisDB   int           `yaml:"redis_db" json:"redis_db" split_words:"true"`
		TTL       time.Duration `yaml:"ttl" json:"ttl" split_words:"true"`
	} `yaml:"cache" json:"cache" envconfig:"CACHE"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron" json:"refresh_cron" split_words:"true"`
	} `yaml:"schedule" json:"schedule" envconfig:"SCHEDULE"`
	Telegram struct {
		BotToken string `yaml:"bot_token" json:"bot_token" split_words:"true"`
		ChatID   string `yaml:"chat_id" json:"chat_id" split_words:"true"`
	} `yaml:"telegram" json:"telegram" envconfig:"TELEGRAM"`
	Server struct {
		Addr string `yaml:"addr" json:"addr" split_words:"true"`
	} `yaml:"server" json:"server" envconfig:"SERVER"`
	Proxy string `yaml:"proxy" json:"proxy" split_words:"true"`
}

// Load reads config from a YAML file, then applies environment variable overrides
// and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			if jerr := json.Unmarshal(data, cfg); jerr != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if cfg.Proxy == "" {
		cfg.Proxy = os.Getenv("HTTPS_PROXY")
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Default returns a config with every default filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Portfolio.MaxVolume = 100000000
	cfg.DataSource.Symbols = map[string]string{}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Portfolio.CapacityUnits == 0 {
		c.Portfolio.CapacityUnits = portfolio.DefaultCapacityUnits
	}
	if c.Portfolio.FXRate == 0 {
		c.Portfolio.FXRate = 1300
	}
	if c.Portfolio.FXAvgRate == 0 {
		c.Portfolio.FXAvgRate = c.Portfolio.FXRate
	}
	if c.Portfolio.BaseCurrency == "" {
		c.Portfolio.BaseCurrency = "KRW"
	}
	if c.Engine.SellLadder == "" {
		c.Engine.SellLadder = string(gear.ThreeTier)
	}
	if c.Engine.LoadMode == "" {
		c.Engine.LoadMode = string(trigger.LoadGear)
	}
	if c.Engine.RescueUSat == 0 {
		c.Engine.RescueUSat = gear.DefaultSaturation
	}
	if c.Engine.DefaultModel == "" {
		c.Engine.DefaultModel = gearbox.DefaultModel
	}
	if c.Engine.QuantizeAutoGear == nil {
		q := true
		c.Engine.QuantizeAutoGear = &q
	}
	if c.Traits.Path == "" {
		c.Traits.Path = "configs/traits.yaml"
	}
	if c.Data.PositionsFile == "" {
		c.Data.PositionsFile = "data/positions.csv"
	}
	if c.Data.StateFile == "" {
		c.Data.StateFile = "data/state.json"
	}
	if c.Data.SQLitePath == "" {
		c.Data.SQLitePath = "data/seesaw.db"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
	if c.DataSource.FXSymbol == "" {
		c.DataSource.FXSymbol = "KRW=X"
	}
	if c.DataSource.RequestsPerSecond == 0 {
		c.DataSource.RequestsPerSecond = 2
	}
	if c.DataSource.HistoryDays == 0 {
		c.DataSource.HistoryDays = 30
	}
	if c.DataSource.RetryCount == 0 {
		c.DataSource.RetryCount = 2
	}
	if c.DataSource.Timeout == 0 {
		c.DataSource.Timeout = 30 * time.Second
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "0 */15 9-16 * * 1-5"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Portfolio.CapacityUnits <= 0 {
		return fmt.Errorf("portfolio.capacity_units must be positive")
	}
	if c.Portfolio.MaxVolume < 0 {
		return fmt.Errorf("portfolio.max_volume must not be negative")
	}
	if c.Portfolio.FXRate <= 0 {
		return fmt.Errorf("portfolio.fx_rate must be positive")
	}
	if c.DataSource.HistoryDays < 20 {
		return fmt.Errorf("data_source.history_days must be at least 20")
	}
	if c.Engine.RescueUSat < 2 {
		return fmt.Errorf("engine.rescue_u_sat must be at least 2")
	}
	if _, err := c.TriggerOptions(); err != nil {
		return err
	}
	if _, err := gearbox.Get(c.Engine.DefaultModel); err != nil {
		return fmt.Errorf("engine.default_model: %w", err)
	}
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// PortfolioContext builds the engine's portfolio input.
func (c *Config) PortfolioContext() portfolio.Context {
	return portfolio.Context{
		CapacityUnits: c.Portfolio.CapacityUnits,
		MaxVolume:     c.Portfolio.MaxVolume,
		FXRate:        c.Portfolio.FXRate,
		FXAvgRate:     c.Portfolio.FXAvgRate,
	}
}

// TriggerOptions resolves the engine feature switches.
func (c *Config) TriggerOptions() (trigger.Options, error) {
	ladder, err := gear.ParseLadderVariant(c.Engine.SellLadder)
	if err != nil {
		return trigger.Options{}, fmt.Errorf("engine.sell_ladder: %w", err)
	}
	load, err := trigger.ParseLoadForm(c.Engine.LoadMode)
	if err != nil {
		return trigger.Options{}, fmt.Errorf("engine.load_mode: %w", err)
	}
	return trigger.Options{LoadForm: load, Ladder: ladder, RescueSaturation: c.Engine.RescueUSat}, nil
}

// Quantize reports whether the auto gear is rounded to 0.1.
func (c *Config) Quantize() bool {
	return c.Engine.QuantizeAutoGear == nil || *c.Engine.QuantizeAutoGear
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
