package calculator

import (
	"errors"
	"math"

	"Seesaw/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMASeries returns the rolling mean; the first period-1 entries are NaN.
func SMASeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

// StdSeries returns the rolling sample standard deviation (n-1 denominator).
func StdSeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period < 2 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		if hasNaN(window) {
			continue
		}
		mean := 0.0
		for _, v := range window {
			mean += v
		}
		mean /= float64(period)
		ss := 0.0
		for _, v := range window {
			ss += (v - mean) * (v - mean)
		}
		out[i] = math.Sqrt(ss / float64(period-1))
	}
	return out
}

// DistanceFromMASeries is (close - SMA) / SMA * 100.
func DistanceFromMASeries(closes []float64, period int) []float64 {
	ma := SMASeries(closes, period)
	out := nanSeries(len(closes))
	for i := range closes {
		if math.IsNaN(ma[i]) || ma[i] == 0 {
			continue
		}
		out[i] = (closes[i] - ma[i]) / ma[i] * 100
	}
	return out
}

// Closes extracts close prices.
func Closes(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the final element of s, or NaN when s is empty.
func Last(s []float64) float64 {
	if len(s) == 0 {
		return math.NaN()
	}
	return s[len(s)-1]
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
