package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"Seesaw/internal/model"
)

// DefaultFXSymbol is the base/foreign currency pair on Yahoo.
const DefaultFXSymbol = "KRW=X"

// Collector refreshes position snapshots and the FX quote.
type Collector struct {
	Fetcher  Fetcher
	FXSymbol string
	Symbols  map[string]string // position name -> ticker, used when a position has none
	Days     int               // bars requested per symbol
	now      func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, fxSymbol string, symbols map[string]string) *Collector {
	if fxSymbol == "" {
		fxSymbol = DefaultFXSymbol
	}
	return &Collector{Fetcher: fetcher, FXSymbol: fxSymbol, Symbols: symbols, Days: HistoryDays, now: time.Now}
}

// Result is the outcome of a refresh. Positions that failed keep their old snapshot.
type Result struct {
	Positions []model.Position
	FX        *model.FXQuote
	Updated   []string
	Failed    map[string]error
}

// Ticker returns the symbol to fetch for p, or "" when it has none.
func (c *Collector) Ticker(p *model.Position) string {
	if p.IsCurrency() {
		return c.FXSymbol
	}
	if p.Ticker != "" {
		return p.Ticker
	}
	return c.Symbols[p.Name]
}

// Snapshot fetches bars for symbol and builds its snapshot.
func (c *Collector) Snapshot(ctx context.Context, symbol string) (model.Snapshot, error) {
	bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, c.days())
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("fetch %s: %w", symbol, err)
	}
	return BuildSnapshot(bars, c.now())
}

// FX fetches the currency pair and builds the quote.
func (c *Collector) FX(ctx context.Context) (model.FXQuote, error) {
	bars, err := c.Fetcher.FetchDailyBars(ctx, c.FXSymbol, c.days())
	if err != nil {
		return model.FXQuote{}, fmt.Errorf("fetch %s: %w", c.FXSymbol, err)
	}
	return BuildFXQuote(bars, c.now())
}

func (c *Collector) days() int {
	if c.Days <= 0 {
		return HistoryDays
	}
	return c.Days
}

// Refresh updates every position it can. It never fails as a whole; per-position
// errors are collected in Result.Failed.
func (c *Collector) Refresh(ctx context.Context, positions []model.Position) Result {
	res := Result{
		Positions: make([]model.Position, len(positions)),
		Failed:    map[string]error{},
	}
	copy(res.Positions, positions)

	if q, err := c.FX(ctx); err != nil {
		log.Warn().Err(err).Msg("fx refresh failed")
		res.Failed[c.FXSymbol] = err
	} else {
		res.FX = &q
	}

	for i := range res.Positions {
		if ctx.Err() != nil {
			res.Failed[res.Positions[i].Name] = ctx.Err()
			continue
		}
		p := &res.Positions[i]
		if p.IsCurrency() {
			if res.FX != nil {
				p.Snapshot = model.Snapshot{Current: res.FX.Rate, UpdatedAt: res.FX.UpdatedAt}
				res.Updated = append(res.Updated, p.Name)
			}
			continue
		}

		symbol := c.Ticker(p)
		if symbol == "" {
			log.Debug().Str("position", p.Name).Msg("no ticker, skipping")
			continue
		}
		snap, err := c.Snapshot(ctx, symbol)
		if err != nil {
			log.Warn().Err(err).Str("position", p.Name).Msg("snapshot refresh failed")
			res.Failed[p.Name] = err
			continue
		}
		p.Snapshot = snap
		res.Updated = append(res.Updated, p.Name)
	}

	log.Info().Str("fetcher", c.Fetcher.Name()).Int("updated", len(res.Updated)).
		Int("failed", len(res.Failed)).Msg("market data refreshed")
	return res
}
