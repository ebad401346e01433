package trigger

import (
	"math"

	"Seesaw/internal/gear"
	"Seesaw/internal/model"
)

// SellTier is one rung of the profit-taking ladder.
type SellTier struct {
	Level     int     `json:"level"`
	OffsetPct float64 `json:"offset_pct"`
	Weight    float64 `json:"weight"`
	Price     float64 `json:"price"`
	Shares    int64   `json:"shares"`
	Reached   bool    `json:"reached"`
}

// Sell is the profit-taking ladder.
type Sell struct {
	Gear    float64            `json:"gear"`
	Variant gear.LadderVariant `json:"variant"`
	Tiers   []SellTier         `json:"tiers"`
	Status  Status             `json:"status"`
}

// ComputeSell builds the ladder from avg cost and sell gear. With no shares held
// the ladder is N/A.
func ComputeSell(p *model.Position, opt Options) Sell {
	variant := opt.Ladder
	if variant == "" {
		variant = gear.ThreeTier
	}
	s := Sell{Gear: p.SellGear, Variant: variant}
	avg := p.EffectiveAvgCost()
	if avg <= 0 {
		s.Status = StatusNotApplicable
		return s
	}

	high := math.Max(p.Snapshot.HighToday, p.Snapshot.Current)
	ladder := gear.SellLadder(variant, p.SellGear)
	left := p.SharesHeld
	s.Status = StatusWatching
	for i, t := range ladder {
		tier := SellTier{
			Level:     i + 1,
			OffsetPct: t.OffsetPct,
			Weight:    t.Weight,
			Price:     avg * (1 + t.OffsetPct/100),
		}
		if i == len(ladder)-1 {
			tier.Shares = left
		} else {
			tier.Shares = min(roundHalfUp(float64(p.SharesHeld)*t.Weight), left)
		}
		left -= tier.Shares
		if high > 0 && high >= tier.Price {
			tier.Reached = true
			s.Status = StatusActive
		}
		s.Tiers = append(s.Tiers, tier)
	}
	return s
}
