package model

import "strings"

// Market classifies where a position trades.
type Market string

const (
	MarketDomestic Market = "KR"
	MarketForeign  Market = "US"
	// MarketCurrency is the FX pseudo-position; it never counts toward deployment.
	MarketCurrency Market = "FX"
)

// ParseMarket accepts both short codes and long names. Unknown values map to domestic.
func ParseMarket(s string) (Market, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "KR", "DOMESTIC":
		return MarketDomestic, true
	case "US", "FOREIGN":
		return MarketForeign, true
	case "FX", "CURRENCY", "USD":
		return MarketCurrency, true
	default:
		return MarketDomestic, false
	}
}

// RescueMode selects the averaging-down parameters.
type RescueMode string

const (
	RescueAuto    RescueMode = "AUTO"
	RescueDefault RescueMode = "DEFAULT"
	RescueHeavy   RescueMode = "HEAVY"
	RescueLight   RescueMode = "LIGHT"
)

// ParseRescueMode maps unknown or empty values to AUTO.
func ParseRescueMode(s string) (RescueMode, bool) {
	switch RescueMode(strings.ToUpper(strings.TrimSpace(s))) {
	case RescueAuto:
		return RescueAuto, true
	case RescueDefault:
		return RescueDefault, true
	case RescueHeavy:
		return RescueHeavy, true
	case RescueLight:
		return RescueLight, true
	default:
		return RescueAuto, false
	}
}

// BuyMode distinguishes the first entry from a re-entry after a full exit.
type BuyMode string

const (
	BuyLoad   BuyMode = "LOAD"
	BuyReload BuyMode = "RELOAD"
	// BuyUnset lets the engine derive the mode from shares held.
	BuyUnset BuyMode = ""
)

// ParseBuyMode returns BuyUnset for anything it does not recognise.
func ParseBuyMode(s string) BuyMode {
	switch BuyMode(strings.ToUpper(strings.TrimSpace(s))) {
	case BuyLoad:
		return BuyLoad
	case BuyReload:
		return BuyReload
	default:
		return BuyUnset
	}
}

// AppliedChange records the last gear recommendation the user applied or canceled.
type AppliedChange struct {
	BuyPoints  float64 `json:"buy_points"`
	SellPoints float64 `json:"sell_points"`
	BuyShift   float64 `json:"buy_shift"`
	SellShift  float64 `json:"sell_shift"`
	BuyGear    float64 `json:"buy_gear"`
	SellGear   float64 `json:"sell_gear"`
	Timestamp  string  `json:"timestamp"` // "060102 15:04"
	Action     string  `json:"action"`    // applied | no_change | canceled
}

// Position is one tracked asset.
type Position struct {
	Name       string  `json:"name"`
	Ticker     string  `json:"ticker"`
	Market     Market  `json:"market"`
	AvgCost    float64 `json:"avg_cost"`
	SharesHeld int64   `json:"shares_held"`
	// FXRate converts a foreign position into the base currency; 0 falls back to the portfolio rate.
	FXRate   float64 `json:"fx_rate"`
	BuyGear  float64 `json:"buy_gear"`
	SellGear float64 `json:"sell_gear"`

	// Trend and volatility scores used by the LOAD trend form and auto gear.
	TrendLocal  float64 `json:"trend_local"`
	TrendGlobal float64 `json:"trend_global"`
	Volatility  float64 `json:"volatility"`

	RescueMode       RescueMode    `json:"rescue_mode"`
	BuyMode          BuyMode       `json:"buy_mode"`
	LatestTradingDay string        `json:"latest_trading_day"` // YYMMDD
	Snapshot         Snapshot      `json:"snapshot"`
	Applied          AppliedChange `json:"applied"`
}

// IsCurrency reports whether p is the FX pseudo-position.
func (p *Position) IsCurrency() bool { return p.Market == MarketCurrency }

// IsForeign reports whether p is priced in the foreign currency.
func (p *Position) IsForeign() bool { return p.Market == MarketForeign }

// EffectiveAvgCost is avg_cost, forced to 0 when no shares are held.
func (p *Position) EffectiveAvgCost() float64 {
	if p.SharesHeld <= 0 {
		return 0
	}
	return p.AvgCost
}

// Recommendation is the trait engine's proposed gear pair for one position.
type Recommendation struct {
	Position   string   `json:"position"`
	BuyPoints  float64  `json:"buy_points"`
	SellPoints float64  `json:"sell_points"`
	BuyShift   float64  `json:"buy_shift"`
	SellShift  float64  `json:"sell_shift"`
	BuyGear    float64  `json:"buy_gear"`
	SellGear   float64  `json:"sell_gear"`
	Traits     []string `json:"traits"`
	Suppressed []string `json:"suppressed,omitempty"`
	BlackSwan  bool     `json:"black_swan"`
}
