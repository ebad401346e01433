// Package trigger computes entry, averaging-down and profit-taking levels for a position.
package trigger

import (
	"fmt"
	"strings"

	"Seesaw/internal/gear"
)

// Status is the state of one trigger. Blocked and unavailable states are values,
// so a computed zero quantity is never confused with "did not apply".
type Status string

const (
	StatusWaiting         Status = "Waiting for high"
	StatusBlockedShares   Status = "Blocked (shares>0)"
	StatusBlockedNoShares Status = "Blocked (shares=0)"
	StatusBlockedFull     Status = "Blocked (portfolio full)"
	StatusBlockedCapacity Status = "Blocked (capacity<1u)"
	StatusNoUnitSize      Status = "Unit size unknown" // max_volume is zero
	StatusNotApplicable   Status = "N/A"
	StatusWatching        Status = "Watching"
	StatusActive          Status = "ACTIVE"
)

// Blocked reports whether the trigger was refused.
func (s Status) Blocked() bool { return strings.HasPrefix(string(s), "Blocked") }

// Sized reports whether the trigger carries a usable price and quantity.
func (s Status) Sized() bool { return s == StatusWatching || s == StatusActive }

// LoadForm selects how the LOAD dip is derived.
type LoadForm string

const (
	LoadGear  LoadForm = "gear"  // 2 + buy_gear
	LoadTrend LoadForm = "trend" // trend/volatility blend
)

// ParseLoadForm accepts the config spelling.
func ParseLoadForm(s string) (LoadForm, error) {
	switch LoadForm(s) {
	case LoadGear, "":
		return LoadGear, nil
	case LoadTrend:
		return LoadTrend, nil
	default:
		return "", fmt.Errorf("unknown load mode %q", s)
	}
}

// Options are the engine-wide feature switches.
type Options struct {
	LoadForm         LoadForm
	Ladder           gear.LadderVariant
	RescueSaturation float64
}

// DefaultOptions matches the shipped configuration.
func DefaultOptions() Options {
	return Options{LoadForm: LoadGear, Ladder: gear.ThreeTier, RescueSaturation: gear.DefaultSaturation}
}

// Projection is the simulated post-fill position. It is advisory only.
type Projection struct {
	AvgCost float64 `json:"avg_cost"`
	Shares  int64   `json:"shares"`
	Units   float64 `json:"units"`
}
