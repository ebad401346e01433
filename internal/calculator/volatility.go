package calculator

import (
	"math"

	"Seesaw/internal/model"
)

// TrueRangeSeries is max(h-l, |h-prevClose|, |l-prevClose|); the first bar uses h-l.
func TrueRangeSeries(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		tr := b.High - b.Low
		if i > 0 {
			prev := bars[i-1].Close
			tr = math.Max(tr, math.Abs(b.High-prev))
			tr = math.Max(tr, math.Abs(b.Low-prev))
		}
		out[i] = tr
	}
	return out
}

// ATRSeries is the rolling mean of the true range.
func ATRSeries(bars []model.OHLCV, period int) []float64 {
	return SMASeries(TrueRangeSeries(bars), period)
}

// ATRPctSeries is ATR as a percent of close.
func ATRPctSeries(bars []model.OHLCV, period int) []float64 {
	atr := ATRSeries(bars, period)
	out := nanSeries(len(bars))
	for i := range bars {
		if math.IsNaN(atr[i]) || bars[i].Close == 0 {
			continue
		}
		out[i] = atr[i] / bars[i].Close * 100
	}
	return out
}

// HVSeries is the annualized standard deviation of daily returns, in percent.
func HVSeries(closes []float64, period int) []float64 {
	returns := nanSeries(len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			returns[i] = closes[i]/closes[i-1] - 1
		}
	}
	std := StdSeries(returns, period)
	out := nanSeries(len(closes))
	for i, s := range std {
		if !math.IsNaN(s) {
			out[i] = s * math.Sqrt(252) * 100
		}
	}
	return out
}

// BBWidthSeries is the Bollinger band width (upper - lower) as a percent of the middle band.
func BBWidthSeries(closes []float64, period int, k float64) []float64 {
	ma := SMASeries(closes, period)
	std := StdSeries(closes, period)
	out := nanSeries(len(closes))
	for i := range closes {
		if math.IsNaN(ma[i]) || math.IsNaN(std[i]) || ma[i] == 0 {
			continue
		}
		out[i] = 2 * k * std[i] / ma[i] * 100
	}
	return out
}
