package gearbox

import (
	"math"

	"Seesaw/internal/calculator"
	"Seesaw/internal/model"
)

func init() {
	register(volatilityMomentum{})
	register(trendRegime{})
	register(meanReversion{})
	register(graphGeometry{})
	register(composite{})
}

var atrBands = []band{{2, 1}, {3, 2}, {4, 3}, {5.5, 4}}

// rocSellGear is the shared momentum table used by models A and D.
func rocSellGear(roc float64) int {
	if math.IsNaN(roc) {
		return neutralGear
	}
	switch {
	case roc > 10:
		return 5
	case roc > 5:
		return 4
	case roc > 0:
		return 3
	case roc > -5:
		return 2
	default:
		return 1
	}
}

// dampen lowers each gear by one where the guard series exceeds limit.
// Bars whose primary indicator is undefined keep the neutral gear.
func dampen(gears []int, primary, guard []float64, limit float64) []int {
	for i := range gears {
		if math.IsNaN(primary[i]) {
			continue
		}
		if guard[i] > limit {
			gears[i] = clampGear(gears[i] - 1)
		}
	}
	return gears
}

// volatilityMomentum buys on ATR% and sells on 5-day momentum.
type volatilityMomentum struct{}

func (volatilityMomentum) ID() string   { return "A" }
func (volatilityMomentum) Name() string { return "Simple Volatility + Momentum" }

func (volatilityMomentum) Score(bars []model.OHLCV) Series {
	closes := calculator.Closes(bars)
	atr := calculator.ATRPctSeries(bars, 5)
	roc := calculator.ROCSeries(closes, 5)
	return Series{
		Buy:  mapSeries(atr, func(v float64) int { return fromBands(v, atrBands, 5) }),
		Sell: dampen(mapSeries(roc, rocSellGear), roc, atr, 4),
		Diagnostics: map[string][]float64{
			"atr_pct_5": atr,
			"roc_5":     roc,
		},
	}
}

// trendRegime buys on historical volatility and sells on the fitted slope.
type trendRegime struct{}

func (trendRegime) ID() string   { return "B" }
func (trendRegime) Name() string { return "Smooth Trend + Regime" }

func (trendRegime) Score(bars []model.OHLCV) Series {
	closes := calculator.Closes(bars)
	hv := calculator.HVSeries(closes, 10)
	slope := calculator.SlopeSeries(closes, 7)
	bb := calculator.BBWidthSeries(closes, 10, 2)

	buy := mapSeries(hv, func(v float64) int {
		return fromBands(v, []band{{20, 1}, {35, 2}, {50, 3}, {70, 4}}, 5)
	})
	sell := mapSeries(slope, func(v float64) int {
		if math.IsNaN(v) {
			return neutralGear
		}
		switch {
		case v > 2:
			return 5
		case v > 1:
			return 4
		case v > 0:
			return 3
		case v > -1:
			return 2
		default:
			return 1
		}
	})
	return Series{
		Buy:  buy,
		Sell: dampen(sell, slope, bb, 8),
		Diagnostics: map[string][]float64{
			"hv_10":    hv,
			"slope_7":  slope,
			"bb_width": bb,
		},
	}
}

// meanReversion sells on stretched RSI and distance from the short average.
type meanReversion struct{}

func (meanReversion) ID() string   { return "C" }
func (meanReversion) Name() string { return "Mean Reversion Focus" }

func (meanReversion) Score(bars []model.OHLCV) Series {
	closes := calculator.Closes(bars)
	atr := calculator.ATRPctSeries(bars, 7)
	rsi := calculator.RSISeries(closes, 7)
	dist := calculator.DistanceFromMASeries(closes, 5)

	sell := make([]int, len(closes))
	for i := range sell {
		sell[i] = reversionGear(rsi[i], dist[i])
	}
	return Series{
		Buy:  mapSeries(atr, func(v float64) int { return fromBands(v, atrBands, 5) }),
		Sell: sell,
		Diagnostics: map[string][]float64{
			"atr_pct_7": atr,
			"rsi_7":     rsi,
			"dist_ma_5": dist,
		},
	}
}

// reversionGear checks the extreme bands before the wide ones so both
// ends of the scale are reachable.
func reversionGear(rsi, dist float64) int {
	if math.IsNaN(rsi) || math.IsNaN(dist) {
		return neutralGear
	}
	switch {
	case rsi > 70 && dist > 3:
		return 5
	case rsi < 30 && dist < -3:
		return 1
	case rsi > 60 || dist > 2:
		return 4
	case rsi >= 40 && rsi <= 60 && dist >= -1 && dist <= 1:
		return 3
	case rsi < 40 || dist < -2:
		return 2
	default:
		return neutralGear
	}
}

// graphGeometry reads only the shape of recent bars.
type graphGeometry struct{}

func (graphGeometry) ID() string   { return "D" }
func (graphGeometry) Name() string { return "Pure Graph Geometry" }

func (graphGeometry) Score(bars []model.OHLCV) Series {
	closes := calculator.Closes(bars)
	hl := calculator.HighLowRangeSeries(bars, 5)
	roc := calculator.ROCSeries(closes, 5)
	return Series{
		Buy:  mapSeries(hl, func(v float64) int { return fromBands(v, []band{{3, 1}, {5, 2}, {7, 3}, {10, 4}}, 5) }),
		Sell: dampen(mapSeries(roc, rocSellGear), roc, hl, 7),
		Diagnostics: map[string][]float64{
			"hl_range_5": hl,
			"roc_5":      roc,
		},
	}
}

// composite blends normalised indicators into a single score per side.
type composite struct{}

func (composite) ID() string   { return "E" }
func (composite) Name() string { return "Composite Multi-Factor" }

var compositeBands = []band{{0.2, 1}, {0.4, 2}, {0.6, 3}, {0.8, 4}}

func (composite) Score(bars []model.OHLCV) Series {
	closes := calculator.Closes(bars)
	atr := calculator.ATRPctSeries(bars, 5)
	hv := calculator.HVSeries(closes, 10)
	bb := calculator.BBWidthSeries(closes, 10, 2)
	roc := calculator.ROCSeries(closes, 5)
	slope := calculator.SlopeSeries(closes, 7)
	rsi := calculator.RSISeries(closes, 7)
	dist := calculator.DistanceFromMASeries(closes, 5)

	n := len(closes)
	buyScore := make([]float64, n)
	sellScore := make([]float64, n)
	for i := 0; i < n; i++ {
		// NaN propagates through the sum and lands on the neutral gear.
		buyScore[i] = 0.5*normalize(atr[i], 1.5, 6) +
			0.3*normalize(hv[i], 15, 75) +
			0.2*normalize(bb[i], 3, 10)
		sellScore[i] = 0.4*normalize(roc[i], -10, 15) +
			0.3*normalize(slope[i], -2, 3) +
			0.2*normalize(rsi[i], 20, 80) +
			0.1*normalize(dist[i], -5, 5)
	}
	toGear := func(v float64) int { return fromBands(v, compositeBands, 5) }
	return Series{
		Buy:  mapSeries(buyScore, toGear),
		Sell: mapSeries(sellScore, toGear),
		Diagnostics: map[string][]float64{
			"buy_composite":  buyScore,
			"sell_composite": sellScore,
		},
	}
}
