package trigger

import (
	"Seesaw/internal/model"
	"Seesaw/internal/portfolio"
)

// Zone labels where the exchange rate sits against the held average.
type Zone string

const (
	ZoneNA      Zone = "N/A"
	ZoneGreen   Zone = "Green"   // foreign currency cheap
	ZoneYellow  Zone = "Yellow"  // neutral
	ZoneRed     Zone = "Red"     // expensive
	ZonePremium Zone = "Premium" // very expensive
)

// CurrencyTierPcts are the profit tiers for held foreign currency.
var CurrencyTierPcts = []float64{3, 5, 7}

// CurrencyView is the FX pseudo-position's level set.
type CurrencyView struct {
	Rate      float64    `json:"rate"`
	AvgCost   float64    `json:"avg_cost"`
	Holding   int64      `json:"holding"`
	PnLPct    float64    `json:"pnl_pct"`
	PnLBase   float64    `json:"pnl_base"`
	ValueBase float64    `json:"value_base"`
	Zone      Zone       `json:"zone"`
	Tiers     []SellTier `json:"tiers"`
}

// ComputeCurrency evaluates the FX pseudo-position. The rate comes from the
// position snapshot when present, otherwise from the portfolio.
func ComputeCurrency(p *model.Position, pc portfolio.Context) CurrencyView {
	v := CurrencyView{Rate: p.Snapshot.Current, AvgCost: p.AvgCost, Holding: p.SharesHeld, Zone: ZoneNA}
	if v.Rate <= 0 {
		v.Rate = pc.FXRate
	}
	if v.Holding > 0 && v.Rate > 0 {
		v.ValueBase = float64(v.Holding) * v.Rate
	}
	if v.AvgCost <= 0 {
		return v
	}

	if v.Rate > 0 {
		v.PnLPct = (v.Rate - v.AvgCost) / v.AvgCost * 100
	}
	if v.Holding > 0 {
		v.PnLBase = (v.Rate - v.AvgCost) * float64(v.Holding)
	}
	switch {
	case v.PnLPct <= -2:
		v.Zone = ZoneGreen
	case v.PnLPct <= 2:
		v.Zone = ZoneYellow
	case v.PnLPct <= 5:
		v.Zone = ZoneRed
	default:
		v.Zone = ZonePremium
	}
	for i, pct := range CurrencyTierPcts {
		price := v.AvgCost * (1 + pct/100)
		v.Tiers = append(v.Tiers, SellTier{Level: i + 1, OffsetPct: pct, Price: price, Reached: v.Rate >= price})
	}
	return v
}
