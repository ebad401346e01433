package calculator

import "math"

// ROCSeries is the percent change versus the close period bars earlier.
func ROCSeries(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period <= 0 {
		return out
	}
	for i := period; i < len(closes); i++ {
		base := closes[i-period]
		if base == 0 {
			continue
		}
		out[i] = (closes[i] - base) / base * 100
	}
	return out
}

// SlopeSeries fits a least-squares line over each window and returns the slope
// as a percent of the window's last close, per bar.
func SlopeSeries(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period < 2 {
		return out
	}
	for i := period - 1; i < len(closes); i++ {
		window := closes[i-period+1 : i+1]
		last := window[len(window)-1]
		if last == 0 {
			continue
		}
		out[i] = LinearSlope(window) / last * 100
	}
	return out
}

// LinearSlope returns the least-squares slope of y against 0..n-1.
func LinearSlope(y []float64) float64 {
	n := float64(len(y))
	if n < 2 {
		return 0
	}
	var sx, sy, sxy, sxx float64
	for i, v := range y {
		x := float64(i)
		sx += x
		sy += v
		sxy += x * v
		sxx += x * x
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0
	}
	return (n*sxy - sx*sy) / den
}

// ROC returns the percent change of the last close versus the close period bars earlier.
// ok is false when there is not enough history.
func ROC(closes []float64, period int) (float64, bool) {
	v := Last(ROCSeries(closes, period))
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
