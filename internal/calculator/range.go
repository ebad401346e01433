package calculator

import (
	"errors"
	"math"

	"Seesaw/internal/model"
)

// HighLow scans the most recent n bars and returns the highest high and lowest low.
func HighLow(bars []model.OHLCV, n int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no daily bars provided")
	}
	if n <= 0 {
		return 0, 0, errors.New("window must be positive")
	}
	start := len(bars) - n
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < len(bars); i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// HighLowRangeSeries is (max high - min low) over period, as a percent of close.
func HighLowRangeSeries(bars []model.OHLCV, period int) []float64 {
	out := nanSeries(len(bars))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(bars); i++ {
		h, l, _ := HighLow(bars[:i+1], period)
		if bars[i].Close == 0 {
			continue
		}
		out[i] = (h - l) / bars[i].Close * 100
	}
	return out
}
