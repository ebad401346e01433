// Package store persists the position book as a CSV file.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"Seesaw/internal/model"
)

// Columns is the header written by Save, in order.
var Columns = []string{
	"name", "ticker", "market", "avg_cost", "shares_held", "fx_rate",
	"buy_gear", "sell_gear", "trend_local", "trend_global", "volatility",
	"rescue_mode", "buy_mode", "latest_trading_day",
	"current_price", "high_5d", "high_10d", "low_today", "high_today",
	"roc_1d", "roc_3d", "roc_5d", "atr_3d_pct", "atr_5d_pct", "rsi_14", "last_update",
	"applied_buy_points", "applied_sell_points", "applied_buy_shift", "applied_sell_shift",
	"applied_buy_gear", "applied_sell_gear", "applied_action", "applied_timestamp",
}

// aliases maps older column names onto current ones.
var aliases = map[string]string{
	"num_shares":         "shares_held",
	"l_score":            "trend_local",
	"g_score":            "trend_global",
	"v_score":            "volatility",
	"manual_rescue_mode": "rescue_mode",
}

const (
	defaultGear       = 3.0
	defaultTrend      = 0.0
	defaultVolatility = 1.0
)

// CSVStore reads and writes positions at a fixed path.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Path returns the backing file.
func (s *CSVStore) Path() string { return s.path }

// Load reads all positions. A missing file is an empty book.
func (s *CSVStore) Load() ([]model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Save rewrites the file through a temporary sibling so readers never see a partial book.
func (s *CSVStore) Save(positions []model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".positions-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Write(tmp, positions); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Read parses positions from CSV. Rows without a name are skipped and
// malformed numbers fall back to their defaults.
func Read(r io.Reader) ([]model.Position, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if alias, ok := aliases[h]; ok {
			if _, taken := index[alias]; taken {
				continue
			}
			h = alias
		}
		index[h] = i
	}
	if _, ok := index["name"]; !ok {
		return nil, errors.New("positions file has no name column")
	}

	var out []model.Position
	seen := map[string]bool{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := rowReader{index: index, rec: rec, line: line}
		name := row.str("name")
		if name == "" {
			continue
		}
		if seen[name] {
			log.Warn().Str("position", name).Int("line", line).Msg("duplicate position, keeping the first")
			continue
		}
		seen[name] = true
		row.name = name
		out = append(out, row.position())
	}
	return out, nil
}

type rowReader struct {
	index map[string]int
	rec   []string
	line  int
	name  string
}

func (r rowReader) str(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r rowReader) float(col string, def float64) float64 {
	raw := strings.ReplaceAll(r.str(col), ",", "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		log.Warn().Str("position", r.name).Str("field", col).Str("value", raw).
			Float64("default", def).Msg("unparseable number, using default")
		return def
	}
	return v
}

func (r rowReader) position() model.Position {
	market, ok := model.ParseMarket(r.str("market"))
	if !ok && r.str("market") != "" {
		log.Warn().Str("position", r.name).Str("market", r.str("market")).Msg("unknown market, using domestic")
	}
	rescue, ok := model.ParseRescueMode(r.str("rescue_mode"))
	if !ok && r.str("rescue_mode") != "" {
		log.Warn().Str("position", r.name).Str("rescue_mode", r.str("rescue_mode")).Msg("unknown rescue mode, using AUTO")
	}

	p := model.Position{
		Name:             r.name,
		Ticker:           r.str("ticker"),
		Market:           market,
		AvgCost:          r.float("avg_cost", 0),
		SharesHeld:       int64(math.Max(0, math.Round(r.float("shares_held", 0)))),
		FXRate:           r.float("fx_rate", 0),
		BuyGear:          r.float("buy_gear", defaultGear),
		SellGear:         r.float("sell_gear", defaultGear),
		TrendLocal:       r.float("trend_local", defaultTrend),
		TrendGlobal:      r.float("trend_global", defaultTrend),
		Volatility:       r.float("volatility", defaultVolatility),
		RescueMode:       rescue,
		BuyMode:          model.ParseBuyMode(r.str("buy_mode")),
		LatestTradingDay: model.NormalizeYYMMDD(r.str("latest_trading_day")),
		Snapshot: model.Snapshot{
			Current:   r.float("current_price", 0),
			High5d:    r.float("high_5d", 0),
			High10d:   r.float("high_10d", 0),
			LowToday:  r.float("low_today", 0),
			HighToday: r.float("high_today", 0),
			ROC1d:     r.float("roc_1d", 0),
			ROC3d:     r.float("roc_3d", 0),
			ROC5d:     r.float("roc_5d", 0),
			ATR3dPct:  r.float("atr_3d_pct", 0),
			ATR5dPct:  r.float("atr_5d_pct", 0),
			RSI14:     r.float("rsi_14", 0),
		},
		Applied: model.AppliedChange{
			BuyPoints:  r.float("applied_buy_points", 0),
			SellPoints: r.float("applied_sell_points", 0),
			BuyShift:   r.float("applied_buy_shift", 0),
			SellShift:  r.float("applied_sell_shift", 0),
			BuyGear:    r.float("applied_buy_gear", 0),
			SellGear:   r.float("applied_sell_gear", 0),
			Action:     r.str("applied_action"),
			Timestamp:  r.str("applied_timestamp"),
		},
	}
	if ts := r.str("last_update"); ts != "" {
		if t, err := parseTime(ts); err == nil {
			p.Snapshot.UpdatedAt = t
		}
	}
	return p
}

// Write emits positions with the full header.
func Write(w io.Writer, positions []model.Position) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for i := range positions {
		if err := cw.Write(row(&positions[i])); err != nil {
			return fmt.Errorf("write %s: %w", positions[i].Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(p *model.Position) []string {
	s := p.Snapshot
	a := p.Applied
	last := ""
	if !s.UpdatedAt.IsZero() {
		last = formatTime(s.UpdatedAt)
	}
	return []string{
		p.Name, p.Ticker, string(p.Market), num(p.AvgCost), strconv.FormatInt(p.SharesHeld, 10), num(p.FXRate),
		num(p.BuyGear), num(p.SellGear), num(p.TrendLocal), num(p.TrendGlobal), num(p.Volatility),
		string(p.RescueMode), string(p.BuyMode), p.LatestTradingDay,
		num(s.Current), num(s.High5d), num(s.High10d), num(s.LowToday), num(s.HighToday),
		num(s.ROC1d), num(s.ROC3d), num(s.ROC5d), num(s.ATR3dPct), num(s.ATR5dPct), num(s.RSI14), last,
		num(a.BuyPoints), num(a.SellPoints), num(a.BuyShift), num(a.SellShift),
		num(a.BuyGear), num(a.SellGear), a.Action, a.Timestamp,
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

const lastUpdateLayout = "2006-01-02 15:04:05"

func formatTime(t time.Time) string {
	return t.Local().Format(lastUpdateLayout)
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(lastUpdateLayout, s, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
