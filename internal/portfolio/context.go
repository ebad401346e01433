// Package portfolio holds the capacity budget and computes how much of it is deployed.
package portfolio

import "Seesaw/internal/model"

// DefaultCapacityUnits is the number of units the book is split into.
const DefaultCapacityUnits = 25

// Context is the portfolio-wide input to every engine call.
type Context struct {
	CapacityUnits int     // N
	MaxVolume     float64 // total capacity, base currency
	FXRate        float64 // base currency per unit of foreign currency
	FXAvgRate     float64 // average cost of held foreign currency
}

// UnitSize is max_volume / N in the base currency. 0 when either is unset.
func (c Context) UnitSize() float64 {
	if c.CapacityUnits <= 0 || c.MaxVolume <= 0 {
		return 0
	}
	return c.MaxVolume / float64(c.CapacityUnits)
}

// RateFor returns the conversion rate for p. Domestic positions use 1.
func (c Context) RateFor(p *model.Position) float64 {
	if !p.IsForeign() {
		return 1
	}
	if p.FXRate > 0 {
		return p.FXRate
	}
	return c.FXRate
}

// Notional is avg_cost x shares in the base currency.
func (c Context) Notional(p *model.Position) float64 {
	if p.SharesHeld <= 0 || p.AvgCost <= 0 {
		return 0
	}
	return p.AvgCost * float64(p.SharesHeld) * c.RateFor(p)
}

// UnitsHeld re-derives the units of capacity p occupies.
func (c Context) UnitsHeld(p *model.Position) float64 {
	if p.IsCurrency() {
		return 0
	}
	unit := c.UnitSize()
	if unit == 0 {
		return 0
	}
	return c.Notional(p) / unit
}

// UnitSizeLocal is one unit expressed in p's trading currency.
func (c Context) UnitSizeLocal(p *model.Position) float64 {
	rate := c.RateFor(p)
	if rate <= 0 {
		return 0
	}
	return c.UnitSize() / rate
}
