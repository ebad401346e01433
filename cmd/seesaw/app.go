package main

import (
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"Seesaw/internal/collector"
	"Seesaw/internal/config"
	"Seesaw/internal/engine"
	"Seesaw/internal/portfolio"
	"Seesaw/internal/recorder"
	"Seesaw/internal/store"
	"Seesaw/internal/trait"
)

// app is everything a command needs, built from the config file.
type app struct {
	cfg   *config.Config
	store *store.CSVStore
	eng   *engine.Engine
	rec   recorder.Recorder
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// loadApp reads config, trait library, positions and persisted FX state.
// A missing trait library is fatal.
func loadApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	lib, err := trait.Load(cfg.Traits.Path)
	if err != nil {
		return nil, fmt.Errorf("load traits: %w", err)
	}
	opt, err := cfg.TriggerOptions()
	if err != nil {
		return nil, err
	}

	st := store.NewCSVStore(cfg.Data.PositionsFile)
	positions, err := st.Load()
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}

	pc := cfg.PortfolioContext()
	if state, err := portfolio.LoadState(cfg.Data.StateFile); err != nil {
		log.Warn().Err(err).Str("path", cfg.Data.StateFile).Msg("ignoring unreadable state file")
	} else {
		pc = state.Apply(pc)
	}

	rec := openRecorder(cfg.Data.SQLitePath)
	eng := engine.New(portfolio.NewBook(positions, st), lib, rec, engine.Config{
		Portfolio:        pc,
		Options:          opt,
		Advisor:          cfg.Engine.DefaultModel,
		QuantizeAutoGear: cfg.Quantize(),
	})
	log.Debug().Int("positions", len(positions)).Int("traits", len(lib.Traits)).Msg("engine ready")
	return &app{cfg: cfg, store: st, eng: eng, rec: rec}, nil
}

func (a *app) Close() {
	if err := a.rec.Close(); err != nil {
		log.Warn().Err(err).Msg("close recorder")
	}
}

func openRecorder(path string) recorder.Recorder {
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

// newFetcher builds the market data source, wrapped in the redis cache when configured.
func newFetcher(cfg *config.Config) collector.Fetcher {
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "mock":
		fetcher = &collector.MockFetcher{Price: 100}
	default:
		fetcher = collector.NewYahooFetcher(collector.YahooOptions{
			BaseURL:           cfg.DataSource.BaseURL,
			ProxyURL:          cfg.Proxy,
			Timeout:           cfg.DataSource.Timeout,
			RetryCount:        cfg.DataSource.RetryCount,
			RequestsPerSecond: cfg.DataSource.RequestsPerSecond,
			SymbolMap:         cfg.DataSource.Symbols,
		})
	}
	if cfg.Cache.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr, DB: cfg.Cache.RedisDB})
		fetcher = collector.NewCachedFetcher(fetcher, client, cfg.Cache.TTL)
	}
	log.Info().Str("source", fetcher.Name()).Msg("data source ready")
	return fetcher
}

func newCollector(cfg *config.Config) *collector.Collector {
	col := collector.NewCollector(newFetcher(cfg), cfg.DataSource.FXSymbol, cfg.DataSource.Symbols)
	col.Days = cfg.DataSource.HistoryDays
	return col
}

func toggleSet(ids []string) trait.Toggles {
	if len(ids) == 0 {
		return nil
	}
	t := make(trait.Toggles, len(ids))
	for _, id := range ids {
		t[id] = true
	}
	return t
}
