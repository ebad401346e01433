package calculator

import (
	"errors"
	"math"

	"Seesaw/internal/model"
)

// CalculateRSI computes the Wilder-smoothed RSI over the given period.
// Requires at least period+1 bars. Returns 50.0 if data is insufficient.
func CalculateRSI(bars []model.OHLCV, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(bars) < period+1 {
		return 50.0, nil
	}

	closes := Closes(bars)

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0, nil
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs), nil
}

// RSISeries uses a plain rolling mean of gains and losses instead of Wilder smoothing.
// A flat window (no gains, no losses) is NaN.
func RSISeries(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period <= 0 {
		return out
	}
	for i := period; i < len(closes); i++ {
		var gain, loss float64
		for j := i - period + 1; j <= i; j++ {
			d := closes[j] - closes[j-1]
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
		}
		gain /= float64(period)
		loss /= float64(period)
		switch {
		case gain == 0 && loss == 0:
			out[i] = math.NaN()
		case loss == 0:
			out[i] = 100
		default:
			out[i] = 100 - 100/(1+gain/loss)
		}
	}
	return out
}
