package gear

import (
	"fmt"
	"math"
)

// LadderVariant selects the profit-taking layout.
type LadderVariant string

const (
	ThreeTier LadderVariant = "three_tier"
	TwoTier   LadderVariant = "two_tier"
)

// ParseLadderVariant accepts the config spelling of a ladder variant.
func ParseLadderVariant(s string) (LadderVariant, error) {
	switch LadderVariant(s) {
	case ThreeTier, "":
		return ThreeTier, nil
	case TwoTier:
		return TwoTier, nil
	default:
		return "", fmt.Errorf("unknown sell ladder %q", s)
	}
}

// Tier is one rung: sell Weight of the position OffsetPct above avg cost.
type Tier struct {
	OffsetPct float64
	Weight    float64
}

// SellLadder returns the tiers for a sell gear in [0,5]. NaN uses Neutral.
// A gear of 0 (black swan) collapses the three-tier ladder to 1/2/3%.
func SellLadder(variant LadderVariant, sellGear float64) []Tier {
	g := sellGear
	if math.IsNaN(g) || math.IsInf(g, 0) {
		g = Neutral
	}
	g = Clamp(g, BlendedMin, Max)

	if variant == TwoTier {
		s := BaseStep(g)
		return []Tier{{OffsetPct: s, Weight: 0.5}, {OffsetPct: 2 * s, Weight: 0.5}}
	}
	if g <= 0 {
		return []Tier{{1, 0.5}, {2, 0.25}, {3, 0.25}}
	}
	return []Tier{{1 + g, 0.5}, {3 + g, 0.25}, {5 + g, 0.25}}
}
