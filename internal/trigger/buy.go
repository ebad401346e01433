package trigger

import (
	"Seesaw/internal/gear"
	"Seesaw/internal/model"
	"Seesaw/internal/portfolio"
)

// Buy is the LOAD/RELOAD entry trigger. It always authorises exactly one unit.
type Buy struct {
	Mode           model.BuyMode `json:"mode"`
	Reference      float64       `json:"reference"`
	ReferenceLabel string        `json:"reference_label"`
	DropPct        float64       `json:"drop_pct"`
	Price          float64       `json:"price"`
	Units          float64       `json:"units"`
	Shares         int64         `json:"shares"`
	Capped         bool          `json:"capped"`
	Projection     Projection    `json:"projection"`
	Status         Status        `json:"status"`
}

// ResolveBuyMode uses the stored mode when set, otherwise LOAD for an empty position.
func ResolveBuyMode(p *model.Position) model.BuyMode {
	if p.BuyMode != model.BuyUnset {
		return p.BuyMode
	}
	if p.SharesHeld <= 0 {
		return model.BuyLoad
	}
	return model.BuyReload
}

// SelectReference picks the recent high: LOAD prefers 10 days, RELOAD 5 days.
// A zero result means no high is available.
func SelectReference(snap model.Snapshot, mode model.BuyMode) (float64, string) {
	if mode == model.BuyLoad {
		if snap.High10d > 0 {
			return snap.High10d, "High 10d"
		}
		if snap.High5d > 0 {
			return snap.High5d, "High 5d"
		}
		return 0, "High 10d"
	}
	if snap.High5d > 0 {
		return snap.High5d, "High 5d"
	}
	if snap.High10d > 0 {
		return snap.High10d, "High 10d"
	}
	return 0, "High 5d"
}

// ComputeBuy evaluates the entry trigger for p against the portfolio deployment.
func ComputeBuy(p *model.Position, pc portfolio.Context, dep portfolio.Deployment, opt Options) Buy {
	b := Buy{Mode: ResolveBuyMode(p)}
	b.Reference, b.ReferenceLabel = SelectReference(p.Snapshot, b.Mode)

	if b.Mode == model.BuyLoad && opt.LoadForm == LoadTrend {
		b.DropPct = gear.LoadTrendDropPct(p.TrendLocal, p.TrendGlobal, p.Volatility)
	} else {
		b.DropPct = gear.StaticDropPct(p.BuyGear)
	}
	if b.Reference > 0 {
		b.Price = b.Reference * (1 - b.DropPct/100)
	}

	switch {
	case b.Reference <= 0:
		b.Status = StatusWaiting
	case b.Mode == model.BuyLoad && p.SharesHeld > 0:
		b.Status = StatusBlockedShares
	case b.Mode == model.BuyReload && p.SharesHeld <= 0:
		b.Status = StatusBlockedNoShares
	case dep.Remaining <= 0:
		b.Status = StatusBlockedFull
	case dep.Remaining < 1:
		b.Status = StatusBlockedCapacity
	}
	if b.Status != "" {
		return b
	}

	unitLocal := pc.UnitSizeLocal(p)
	if unitLocal <= 0 {
		b.Status = StatusNoUnitSize
		return b
	}
	shares, capped, ok := sharesFor(unitLocal, b.Price, dep.Remaining*unitLocal)
	if !ok {
		b.Status = StatusBlockedCapacity
		return b
	}
	b.Units, b.Shares, b.Capped = 1, shares, capped

	held := p.SharesHeld
	if held < 0 {
		held = 0
	}
	b.Projection = Projection{
		AvgCost: weightedAvg(p.EffectiveAvgCost(), held, b.Price, shares),
		Shares:  held + shares,
		Units:   pc.UnitsHeld(p) + fillUnits(pc, p, b.Price, shares),
	}

	if c := checkPrice(p.Snapshot.LowToday, p.Snapshot.Current); c > 0 && c <= b.Price {
		b.Status = StatusActive
	} else {
		b.Status = StatusWatching
	}
	return b
}

// fillUnits converts a simulated fill into units of capacity.
func fillUnits(pc portfolio.Context, p *model.Position, price float64, shares int64) float64 {
	unit := pc.UnitSize()
	if unit == 0 {
		return 0
	}
	return price * float64(shares) * pc.RateFor(p) / unit
}
