package model

import "time"

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds raw daily bars for one ticker.
type PriceSeries struct {
	Symbol    string
	DailyBars []OHLCV
	FetchedAt time.Time
}

// Snapshot is the latest market view of one position.
// A zero price field means "no data", never a real zero price.
type Snapshot struct {
	Current   float64   `json:"current"`
	High5d    float64   `json:"high_5d"`
	High10d   float64   `json:"high_10d"`
	LowToday  float64   `json:"low_today"`
	HighToday float64   `json:"high_today"`
	ROC1d     float64   `json:"roc_1d"`
	ROC3d     float64   `json:"roc_3d"`
	ROC5d     float64   `json:"roc_5d"`
	ATR3dPct  float64   `json:"atr_3d_pct"`
	ATR5dPct  float64   `json:"atr_5d_pct"`
	RSI14     float64   `json:"rsi_14"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasPrice reports whether the snapshot carries a usable current price.
func (s Snapshot) HasPrice() bool { return s.Current > 0 }

// FXQuote is the currency pair view used for foreign positions.
type FXQuote struct {
	Rate      float64   `json:"rate"`
	Avg20d    float64   `json:"avg_20d"`
	Avg10d    float64   `json:"avg_10d"`
	Slope10d  float64   `json:"slope_10d"` // % change across the last 10 closes
	UpdatedAt time.Time `json:"updated_at"`
}

// RangePct is (high_5d - low_today) / current as a percent; 0 without data.
func (s Snapshot) RangePct() float64 {
	if s.Current <= 0 || s.High5d <= 0 || s.LowToday <= 0 {
		return 0
	}
	return (s.High5d - s.LowToday) / s.Current * 100
}

// ROCFromHigh is current versus the 5-day high (10-day fallback) as a percent.
func (s Snapshot) ROCFromHigh() float64 {
	ref := s.High5d
	if ref <= 0 {
		ref = s.High10d
	}
	if s.Current <= 0 || ref <= 0 {
		return 0
	}
	return (s.Current - ref) / ref * 100
}
