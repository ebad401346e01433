// Package metrics exposes Prometheus metrics for the recompute loop.
//
//   - seesaw_deployed_units / seesaw_deployment_fraction / seesaw_capacity_units
//   - seesaw_position_gear{position,side}        stored gears
//   - seesaw_recommended_gear{position,side}     trait engine output
//   - seesaw_trigger_active{position,trigger}    1 when LOAD/RESCUE/SELL is ACTIVE
//   - seesaw_fx_rate
//   - seesaw_passes_total, seesaw_refresh_total{result}, seesaw_gear_changes_total{action}
//
// Collectors are registered in init() and served at /metrics by internal/server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"Seesaw/internal/engine"
	"Seesaw/internal/trigger"
)

var (
	deployedUnits = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "seesaw_deployed_units",
		Help: "Units deployed across all regular positions.",
	})

	deploymentFraction = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "seesaw_deployment_fraction",
		Help: "Deployed units divided by capacity units.",
	})

	capacityUnits = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "seesaw_capacity_units",
		Help: "Configured capacity N.",
	})

	positionGear = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seesaw_position_gear",
			Help: "Stored gear per position and side (buy|sell).",
		},
		[]string{"position", "side"},
	)

	recommendedGear = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seesaw_recommended_gear",
			Help: "Trait engine gear per position and side (buy|sell).",
		},
		[]string{"position", "side"},
	)

	// 1 when the trigger is ACTIVE, 0 otherwise.
	triggerActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seesaw_trigger_active",
			Help: "Trigger state per position (buy|rescue|sell).",
		},
		[]string{"position", "trigger"},
	)

	fxRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "seesaw_fx_rate",
		Help: "Latest base currency per foreign unit.",
	})

	passes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "seesaw_passes_total",
		Help: "Recompute passes performed.",
	})

	refreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seesaw_refresh_total",
			Help: "Market data refreshes per symbol split by result (ok|failed).",
		},
		[]string{"result"},
	)

	gearChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seesaw_gear_changes_total",
			Help: "Apply/cancel operations split by action.",
		},
		[]string{"action"},
	)
)

func init() {
	prometheus.MustRegister(
		deployedUnits,
		deploymentFraction,
		capacityUnits,
		positionGear,
		recommendedGear,
		triggerActive,
		fxRate,
		passes,
		refreshes,
		gearChanges,
	)
}

// ObservePass publishes the gauges for a completed recompute pass.
func ObservePass(st *engine.State) {
	passes.Inc()
	deployedUnits.Set(st.Deployment.Units)
	deploymentFraction.Set(st.Deployment.Fraction)
	capacityUnits.Set(st.Deployment.Capacity)

	for _, v := range st.Views {
		name := v.Position.Name
		if v.Currency != nil {
			fxRate.Set(v.Currency.Rate)
			continue
		}
		positionGear.WithLabelValues(name, "buy").Set(v.Position.BuyGear)
		positionGear.WithLabelValues(name, "sell").Set(v.Position.SellGear)
		if v.Recommendation != nil {
			recommendedGear.WithLabelValues(name, "buy").Set(v.Recommendation.BuyGear)
			recommendedGear.WithLabelValues(name, "sell").Set(v.Recommendation.SellGear)
		}
		if v.Buy != nil {
			triggerActive.WithLabelValues(name, "buy").Set(active(v.Buy.Status))
			triggerActive.WithLabelValues(name, "rescue").Set(active(v.Rescue.Status))
			triggerActive.WithLabelValues(name, "sell").Set(active(v.Sell.Status))
		}
	}
}

// ObserveRefresh counts per-symbol refresh outcomes.
func ObserveRefresh(updated, failed int) {
	refreshes.WithLabelValues("ok").Add(float64(updated))
	refreshes.WithLabelValues("failed").Add(float64(failed))
}

// ObserveGearChange counts an apply or cancel.
func ObserveGearChange(action string) {
	gearChanges.WithLabelValues(action).Inc()
}

func active(s trigger.Status) float64 {
	if s == trigger.StatusActive {
		return 1
	}
	return 0
}
