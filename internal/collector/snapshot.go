package collector

import (
	"fmt"
	"time"

	"Seesaw/internal/calculator"
	"Seesaw/internal/model"
)

const (
	loadRefDays     = 5  // completed sessions behind high_5d
	highContextDays = 10 // sessions behind high_10d, today included
	fxAvgDays       = 20
	fxTrendDays     = 10

	// HistoryDays is enough history for every snapshot field.
	HistoryDays = 30
)

// BuildSnapshot derives a position snapshot from daily bars, oldest first.
// The last bar is treated as today.
func BuildSnapshot(bars []model.OHLCV, now time.Time) (model.Snapshot, error) {
	if len(bars) == 0 {
		return model.Snapshot{}, ErrNoData
	}
	today := bars[len(bars)-1]
	completed := bars[:len(bars)-1]
	if len(completed) == 0 {
		completed = bars
	}

	snap := model.Snapshot{
		Current:   today.Close,
		LowToday:  today.Low,
		HighToday: today.High,
		UpdatedAt: now,
	}
	if h, _, err := calculator.HighLow(completed, loadRefDays); err == nil {
		snap.High5d = h
	}
	if h, _, err := calculator.HighLow(bars, highContextDays); err == nil {
		snap.High10d = h
	}
	if snap.HighToday > snap.High10d {
		snap.High10d = snap.HighToday
	}

	closes := calculator.Closes(bars)
	snap.ROC1d, _ = calculator.ROC(closes, 1)
	snap.ROC3d, _ = calculator.ROC(closes, 3)
	snap.ROC5d, _ = calculator.ROC(closes, 5)
	snap.ATR3dPct = atrPct(bars, 3)
	snap.ATR5dPct = atrPct(bars, 5)
	if rsi, err := calculator.CalculateRSI(bars, 14); err == nil {
		snap.RSI14 = rsi
	}
	return snap, nil
}

// atrPct is the mean true range of the last n bars over the last close, in percent.
// Too little history yields 0.
func atrPct(bars []model.OHLCV, n int) float64 {
	if len(bars) < n || n <= 0 {
		return 0
	}
	tr := calculator.TrueRangeSeries(bars)
	sum := 0.0
	for _, v := range tr[len(tr)-n:] {
		sum += v
	}
	last := bars[len(bars)-1].Close
	if last <= 0 {
		return 0
	}
	return sum / float64(n) / last * 100
}

// BuildFXQuote derives the exchange rate view from daily bars of the currency pair.
func BuildFXQuote(bars []model.OHLCV, now time.Time) (model.FXQuote, error) {
	if len(bars) == 0 {
		return model.FXQuote{}, fmt.Errorf("fx: %w", ErrNoData)
	}
	closes := calculator.Closes(bars)
	q := model.FXQuote{Rate: closes[len(closes)-1], UpdatedAt: now}

	q.Avg20d = sma(closes, fxAvgDays)
	q.Avg10d = sma(closes, fxTrendDays)
	recent := tail(closes, fxTrendDays)
	if len(recent) >= 2 && recent[0] > 0 {
		q.Slope10d = (recent[len(recent)-1] - recent[0]) / recent[0] * 100
	}
	return q, nil
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// sma averages the last n closes, or all of them when history is shorter.
func sma(closes []float64, n int) float64 {
	if len(closes) < n {
		n = len(closes)
	}
	v, err := calculator.CalculateSMA(closes, n)
	if err != nil {
		return 0
	}
	return v
}
