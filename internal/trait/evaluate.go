package trait

import "Seesaw/internal/gear"

// Toggles are the user's manual trait switches, keyed by trait id.
type Toggles map[string]bool

// Suppression records a trait dropped by exclusive-group resolution.
type Suppression struct {
	Trait *Trait
	Group string
	By    *Trait
}

// Result is the outcome of one evaluation.
type Result struct {
	BuyPoints  float64
	SellPoints float64
	BuyShift   float64
	SellShift  float64
	RawBuy     float64
	RawSell    float64
	BuyGear    float64
	SellGear   float64
	System     System

	ActiveAuto   []*Trait
	ActiveManual []*Trait
	Suppressed   []Suppression
	BlackSwan    bool
}

// Active returns auto then manual traits that contributed points.
func (r Result) Active() []*Trait {
	out := make([]*Trait, 0, len(r.ActiveAuto)+len(r.ActiveManual))
	out = append(out, r.ActiveAuto...)
	return append(out, r.ActiveManual...)
}

// Evaluate is a pure function of the library, metrics and toggles.
//
// FX traits only apply to the currency pseudo-position and every other trait
// only to regular positions. Manual traits never apply to the currency position.
// Within an exclusive group the first active trait wins, auto traits first.
func (l *Library) Evaluate(m Metrics, toggles Toggles) Result {
	isFX := truthy(m["is_fx"])
	res := Result{System: l.System}

	seen := map[string]*Trait{}
	admit := func(t *Trait) bool {
		if t.ExclusiveGroup == "" {
			return true
		}
		if first, ok := seen[t.ExclusiveGroup]; ok {
			res.Suppressed = append(res.Suppressed, Suppression{Trait: t, Group: t.ExclusiveGroup, By: first})
			return false
		}
		seen[t.ExclusiveGroup] = t
		return true
	}

	for _, t := range l.Auto {
		if t.IsFX() != isFX {
			continue
		}
		if t.pred.Eval(m) && admit(t) {
			res.ActiveAuto = append(res.ActiveAuto, t)
		}
	}
	if !isFX {
		// Manual toggles share the group table, so two opposing manual
		// traits in one group never stack.
		for _, t := range l.Manual {
			if toggles[t.ID] && admit(t) {
				res.ActiveManual = append(res.ActiveManual, t)
			}
		}
	}

	for _, t := range res.Active() {
		res.BuyPoints += t.BuyPoints
		res.SellPoints += t.SellPoints
	}

	sys := l.System
	if sys.BuyRatio != 0 {
		res.BuyShift = res.BuyPoints / sys.BuyRatio
	}
	if sys.SellRatio != 0 {
		res.SellShift = res.SellPoints / sys.SellRatio
	}
	res.RawBuy = sys.BaseBuyGear + res.BuyShift
	res.RawSell = sys.BaseSellGear + res.SellShift
	res.BuyGear = gear.Clamp(res.RawBuy, sys.GearMin, sys.GearMax)
	res.SellGear = gear.Clamp(res.RawSell, sys.GearMin, sys.GearMax)

	if toggles[BlackSwanID] {
		res.BlackSwan = true
		res.SellGear = 0
	}
	return res
}
