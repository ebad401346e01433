package trigger

import (
	"math"

	"github.com/shopspring/decimal"
)

// roundHalfUp rounds a non-negative quantity to whole shares.
func roundHalfUp(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0
	}
	return decimal.NewFromFloat(v).Round(0).IntPart()
}

// sharesFor sizes a fill of value at price: at least one share, then trimmed so
// the fill never exceeds the capacity limit. ok is false when not even one share fits.
func sharesFor(value, price, limit float64) (shares int64, capped, ok bool) {
	if price <= 0 || value <= 0 {
		return 0, false, false
	}
	shares = roundHalfUp(value / price)
	if shares < 1 {
		shares = 1
	}
	maxShares := int64(math.Floor(limit/price + 1e-9))
	if shares > maxShares {
		shares, capped = maxShares, true
	}
	return shares, capped, shares >= 1
}

// weightedAvg is the post-fill average cost.
func weightedAvg(avg float64, shares int64, price float64, add int64) float64 {
	total := shares + add
	if total <= 0 {
		return 0
	}
	cost := decimal.NewFromFloat(avg).Mul(decimal.NewFromInt(shares)).
		Add(decimal.NewFromFloat(price).Mul(decimal.NewFromInt(add)))
	f, _ := cost.Div(decimal.NewFromInt(total)).Float64()
	return f
}

// checkPrice prefers today's low and falls back to the current price.
func checkPrice(lowToday, current float64) float64 {
	if lowToday > 0 {
		return lowToday
	}
	return current
}
