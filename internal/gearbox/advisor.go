package gearbox

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"Seesaw/internal/model"
)

// AdviceStatus summarises which breakers fired.
type AdviceStatus string

const (
	AdviceOK        AdviceStatus = "OK"
	AdviceIdle      AdviceStatus = "IDLE"
	AdviceWarning   AdviceStatus = "WARNING"
	AdviceNeedsData AdviceStatus = "NEEDS DATA"
)

const (
	idleBreakerDays      = 10
	deploymentWarnRatio  = 0.4
	deploymentLimitRatio = 0.7
)

// Input is what an advisor sees of one position.
type Input struct {
	BuyGear          float64
	SellGear         float64
	Snapshot         model.Snapshot
	LatestTradingDay string
	DeploymentRatio  float64
	Now              time.Time
}

// InputFor builds the advisor input for p.
func InputFor(p *model.Position, deploymentRatio float64, now time.Time) Input {
	return Input{
		BuyGear:          p.BuyGear,
		SellGear:         p.SellGear,
		Snapshot:         p.Snapshot,
		LatestTradingDay: p.LatestTradingDay,
		DeploymentRatio:  deploymentRatio,
		Now:              now,
	}
}

// Adjustment is one contribution to the sell delta.
type Adjustment struct {
	Source string `json:"source"`
	Delta  int    `json:"delta"`
}

// Advice is a proposed gear pair relative to the position's current gears.
type Advice struct {
	Model       string       `json:"model"`
	BuyGear     int          `json:"buy_gear"`
	SellGear    int          `json:"sell_gear"`
	DeltaBuy    int          `json:"delta_buy"`
	DeltaSell   int          `json:"delta_sell"`
	Status      AdviceStatus `json:"status"`
	Confidence  float64      `json:"confidence"`
	Notes       string       `json:"notes"`
	Adjustments []Adjustment `json:"adjustments"`
	Clamped     bool         `json:"clamped"`
}

// Advisor proposes gears from a price snapshot.
type Advisor interface {
	Name() string
	Advise(in Input) Advice
}

var advisors = map[string]Advisor{
	DefaultModel: snapshotMomentum{},
}

// Advisors lists the registered advisor keys.
func Advisors() []string {
	keys := make([]string, 0, len(advisors))
	for k := range advisors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Advise runs the named advisor, falling back to the default. With no
// advisor available it returns the current gears unchanged.
func Advise(name string, in Input) Advice {
	a, ok := advisors[name]
	if !ok {
		a, ok = advisors[DefaultModel]
	}
	if !ok {
		return Advice{
			Model:       "Unavailable",
			BuyGear:     currentGear(in.BuyGear),
			SellGear:    currentGear(in.SellGear),
			Status:      AdviceNeedsData,
			Notes:       "No gearbox models loaded.",
			Adjustments: []Adjustment{},
		}
	}
	return a.Advise(in)
}

func currentGear(g float64) int {
	if math.IsNaN(g) || g == 0 {
		return neutralGear
	}
	return int(g)
}

// snapshotMomentum works from the snapshot alone: range-based volatility
// sets the buy gear, distance from the recent high sets the sell gear.
type snapshotMomentum struct{}

func (snapshotMomentum) Name() string { return "Model A" }

func (m snapshotMomentum) Advise(in Input) Advice {
	atr := math.Max(0, in.Snapshot.RangePct())
	roc := in.Snapshot.ROCFromHigh()
	buy := snapshotBuyGear(atr, roc)
	sell := snapshotSellGear(atr, roc)
	curBuy, curSell := currentGear(in.BuyGear), currentGear(in.SellGear)

	a := Advice{
		Model:       m.Name(),
		BuyGear:     buy,
		SellGear:    sell,
		DeltaBuy:    buy - curBuy,
		DeltaSell:   sell - curSell,
		Status:      AdviceOK,
		Confidence:  0.55,
		Notes:       fmt.Sprintf("ATR%% %.1f, ROC%% %.1f.", atr, roc),
		Adjustments: []Adjustment{{Source: "gearbox", Delta: sell - curSell}},
	}

	if idle := model.TradingDaysSince(in.LatestTradingDay, in.Now); idle >= idleBreakerDays {
		a.shiftSell(curSell, -1, "idle")
		a.Status = AdviceIdle
		a.note(fmt.Sprintf("Idle %d trading days -> sell -1.", idle))
	}

	ratio := in.DeploymentRatio
	if math.IsNaN(ratio) {
		ratio = 0
	}
	switch {
	case ratio >= deploymentLimitRatio:
		a.shiftSell(curSell, -2, "size")
		a.Status = AdviceWarning
		a.note(fmt.Sprintf("Deployment %.0f%% -> sell -2.", ratio*100))
	case ratio >= deploymentWarnRatio:
		a.shiftSell(curSell, -1, "size")
		a.Status = AdviceWarning
		a.note(fmt.Sprintf("Deployment %.0f%% -> sell -1.", ratio*100))
	}
	return a
}

// shiftSell adds delta on top of the deltas already applied.
func (a *Advice) shiftSell(current, delta int, source string) {
	proposed := current + a.DeltaSell + delta
	clamped := clampGear(proposed)
	a.SellGear = clamped
	a.DeltaSell = clamped - current
	a.Adjustments = append(a.Adjustments, Adjustment{Source: source, Delta: delta})
	if clamped != proposed {
		a.Clamped = true
	}
}

func (a *Advice) note(s string) {
	a.Notes = strings.TrimSpace(a.Notes + " " + s)
}

func snapshotSellGear(atr, roc float64) int {
	g := rocSellGear(roc)
	if atr > 4 {
		g--
	}
	return clampGear(g)
}

func snapshotBuyGear(atr, roc float64) int {
	var base int
	switch {
	case atr < 2.5:
		base = 2
	case atr < 4.5:
		base = 3
	default:
		base = 4
	}

	var adj int
	switch {
	case roc > 12:
		adj = -2
	case roc > 6:
		adj = -1
	case roc < -12:
		adj = 2
	case roc < -6:
		adj = 1
	}
	return clampGear(base + adj)
}
