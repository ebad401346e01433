package trigger

import (
	"math"

	"Seesaw/internal/gear"
	"Seesaw/internal/model"
	"Seesaw/internal/portfolio"
)

// Rescue is the averaging-down trigger while shares are held.
type Rescue struct {
	Mode      model.RescueMode  `json:"mode"`
	Params    gear.RescueParams `json:"params"`
	UnitsHeld float64           `json:"units_held"`
	Price     float64           `json:"price"`
	// Wanted is units_held x r before any capacity cap.
	Wanted     float64    `json:"wanted"`
	Units      float64    `json:"units"`
	Shares     int64      `json:"shares"`
	Capped     bool       `json:"capped"`
	Projection Projection `json:"projection"`
	Status     Status     `json:"status"`
}

// ComputeRescue evaluates the RESCUE trigger. It references avg cost, never a market high.
func ComputeRescue(p *model.Position, pc portfolio.Context, dep portfolio.Deployment, opt Options) Rescue {
	mode := p.RescueMode
	if mode == "" {
		mode = model.RescueAuto
	}
	r := Rescue{Mode: mode, UnitsHeld: pc.UnitsHeld(p)}
	if p.SharesHeld <= 0 || r.UnitsHeld <= 0 {
		r.Status = StatusNotApplicable
		return r
	}

	r.Params = gear.Rescue(mode, r.UnitsHeld, pc.CapacityUnits, opt.RescueSaturation)
	avg := p.EffectiveAvgCost()
	r.Price = avg * (1 - r.Params.DropPct/100)
	r.Wanted = r.UnitsHeld * r.Params.Ratio

	switch {
	case dep.Remaining <= 0:
		r.Status = StatusBlockedFull
		return r
	case dep.Remaining < 1:
		r.Status = StatusBlockedCapacity
		return r
	}

	r.Units = math.Min(r.Wanted, dep.Remaining)
	r.Capped = r.Units < r.Wanted

	unitLocal := pc.UnitSizeLocal(p)
	if unitLocal <= 0 {
		r.Units = 0
		r.Status = StatusNoUnitSize
		return r
	}
	shares, capped, ok := sharesFor(r.Units*unitLocal, r.Price, dep.Remaining*unitLocal)
	if !ok {
		r.Units = 0
		r.Status = StatusBlockedCapacity
		return r
	}
	r.Shares = shares
	r.Capped = r.Capped || capped
	r.Projection = Projection{
		AvgCost: weightedAvg(avg, p.SharesHeld, r.Price, shares),
		Shares:  p.SharesHeld + shares,
		Units:   r.UnitsHeld + fillUnits(pc, p, r.Price, shares),
	}

	if c := checkPrice(p.Snapshot.LowToday, p.Snapshot.Current); c > 0 && c <= r.Price {
		r.Status = StatusActive
	} else {
		r.Status = StatusWatching
	}
	return r
}
