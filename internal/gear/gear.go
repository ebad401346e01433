// Package gear maps gear values to the percentage parameters used by the trigger calculator.
// Every function here is pure.
package gear

import "math"

const (
	// Neutral is the middle gear used whenever an input is missing or not a number.
	Neutral = 3.0
	Min     = 1.0
	Max     = 5.0
	// BlendedMin is the floor for blended trend gears and black-swan sell gears.
	BlendedMin = 0.0
)

// Clamp bounds v to [lo, hi]. NaN maps to the midpoint of the range.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo + (hi-lo)/2
	}
	return math.Max(lo, math.Min(hi, v))
}

// Sanitize returns a gear in [1,5]; NaN and infinities become Neutral.
func Sanitize(g float64) float64 {
	if math.IsNaN(g) || math.IsInf(g, 0) {
		return Neutral
	}
	return Clamp(g, Min, Max)
}

// Round1 rounds half away from zero to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// StaticDropPct is the LOAD/RELOAD dip below the reference high for a buy gear.
func StaticDropPct(buyGear float64) float64 {
	return 2.0 + Sanitize(buyGear)
}

// TrendScore blends local and global trend scores as (3L + 2G) / 5.
func TrendScore(local, global float64) float64 {
	return (3*finiteOr(local, 0) + 2*finiteOr(global, 0)) / 5
}

// LoadTrendDropPct is the alternate LOAD dip: clamp(6 - 0.6T + 0.5V, 3, 8).
// V is bounded to [0,2] before use.
func LoadTrendDropPct(local, global, volatility float64) float64 {
	t := TrendScore(local, global)
	v := Clamp(finiteOr(volatility, 1), 0, 2)
	return Clamp(6.0-0.6*t+0.5*v, 3.0, 8.0)
}

// DeploymentPenalty is 0 up to 40% deployed, then falls linearly to -3 at 100%.
func DeploymentPenalty(f float64) float64 {
	f = finiteOr(f, 0)
	if f <= 0.4 {
		return 0
	}
	return -3.0 * (f - 0.4) / 0.6
}

// Auto derives a blended gear in [0,5] from trend scores and deployment.
func Auto(local, global, f float64, quantize bool) float64 {
	g := Clamp(TrendScore(local, global)+DeploymentPenalty(f), BlendedMin, Max)
	if quantize {
		g = Round1(g)
	}
	return g
}

// BaseStep is the two-tier ladder step for a blended gear.
func BaseStep(g float64) float64 {
	return 1.0 + Clamp(finiteOr(g, Neutral), BlendedMin, Max)
}

func finiteOr(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
