package trait

import (
	"sort"
	"time"

	"Seesaw/internal/model"
	"Seesaw/internal/portfolio"
)

// Metrics is the named snapshot auto triggers are evaluated against.
// Flags are stored as 1 or 0.
type Metrics map[string]float64

// metricNames is the closed set a trigger expression may reference.
var metricNames = map[string]string{
	"atr_pct":      "(high_5d - low_today) / current, %",
	"roc":          "current vs 5d high (10d fallback), %",
	"roc_1d":       "1-day rate of change, %",
	"roc_3d":       "3-day rate of change, %",
	"roc_5d":       "5-day rate of change, %",
	"atr_3d_pct":   "3-day ATR as % of price",
	"atr_5d_pct":   "5-day ATR as % of price",
	"rsi_14":       "14-day Wilder RSI",
	"deployed_pct": "portfolio deployment, %",
	"units_held":   "units of capacity held by this position",
	"pnl_pct":      "current vs avg cost, %",
	"fx_current":   "current exchange rate",
	"fx_avg":       "average exchange rate of held currency",
	"fx_vs_avg":    "current vs average exchange rate, %",
	"is_us_stock":  "1 for foreign positions",
	"is_fx":        "1 for the currency pseudo-position",
	"idle_days":    "weekdays since the latest trade",
	"days_idle":    "alias of idle_days",
}

// IsMetric reports whether name is a known metric.
func IsMetric(name string) bool {
	_, ok := metricNames[name]
	return ok
}

// MetricNames returns the known metric names, sorted.
func MetricNames() []string {
	names := make([]string, 0, len(metricNames))
	for n := range metricNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DescribeMetric returns the one-line description of a metric.
func DescribeMetric(name string) string { return metricNames[name] }

// ComputeMetrics derives the metric snapshot for p. Missing inputs yield 0, never an error.
func ComputeMetrics(p *model.Position, pc portfolio.Context, dep portfolio.Deployment, now time.Time) Metrics {
	s := p.Snapshot
	avg := p.EffectiveAvgCost()

	m := Metrics{
		"roc_1d":       s.ROC1d,
		"roc_3d":       s.ROC3d,
		"roc_5d":       s.ROC5d,
		"atr_3d_pct":   s.ATR3dPct,
		"atr_5d_pct":   s.ATR5dPct,
		"rsi_14":       s.RSI14,
		"deployed_pct": dep.Fraction * 100,
		"units_held":   pc.UnitsHeld(p),
		"is_us_stock":  boolNum(p.IsForeign()),
		"is_fx":        boolNum(p.IsCurrency()),
	}
	m["atr_pct"] = s.RangePct()
	m["roc"] = s.ROCFromHigh()
	if s.Current > 0 && avg > 0 {
		m["pnl_pct"] = (s.Current - avg) / avg * 100
	}

	fxCur, fxAvg := fxRates(p, pc)
	m["fx_current"] = fxCur
	m["fx_avg"] = fxAvg
	if fxAvg > 0 {
		m["fx_vs_avg"] = (fxCur - fxAvg) / fxAvg * 100
	}

	idle := float64(model.TradingDaysSince(p.LatestTradingDay, now))
	m["idle_days"] = idle
	m["days_idle"] = idle
	return m
}

func fxRates(p *model.Position, pc portfolio.Context) (cur, avg float64) {
	cur = pc.FXRate
	switch {
	case p.IsForeign():
		cur = pc.RateFor(p)
	case p.IsCurrency() && p.Snapshot.Current > 0:
		cur = p.Snapshot.Current
	}
	avg = pc.FXAvgRate
	if p.IsCurrency() && p.AvgCost > 0 {
		avg = p.AvgCost
	}
	if avg <= 0 {
		avg = cur
	}
	return cur, avg
}
