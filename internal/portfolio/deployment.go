package portfolio

import (
	"math"

	"Seesaw/internal/model"
)

// Deployment is the portfolio-wide capacity usage seen from one position.
type Deployment struct {
	Units     float64 `json:"units"`     // total deployed units
	Capacity  float64 `json:"capacity"`  // N
	Fraction  float64 `json:"fraction"`  // Units / Capacity, 0 when capacity is unknown
	Remaining float64 `json:"remaining"` // max(0, N - Units)
}

// CanBuy reports whether at least one whole unit of capacity remains.
func (d Deployment) CanBuy() bool { return d.Remaining >= 1 }

// Deploy sums every non-currency position against capacity. current replaces the
// stored record with the same name, so unsaved edits are reflected.
func (c Context) Deploy(current *model.Position, all []model.Position) Deployment {
	total := 0.0
	if current != nil && !current.IsCurrency() {
		total += c.Notional(current)
	}
	for i := range all {
		p := &all[i]
		if p.IsCurrency() || p.SharesHeld <= 0 {
			continue
		}
		if current != nil && p.Name == current.Name {
			continue
		}
		total += c.Notional(p)
	}

	d := Deployment{Capacity: float64(c.CapacityUnits)}
	if c.MaxVolume > 0 && c.CapacityUnits > 0 {
		d.Fraction = total / c.MaxVolume
		d.Units = d.Fraction * float64(c.CapacityUnits)
	}
	if c.CapacityUnits > 0 {
		d.Remaining = math.Max(0, d.Capacity-d.Units)
	}
	return d
}

// After returns the deployment once extra units are filled.
func (d Deployment) After(units float64) Deployment {
	out := d
	out.Units += units
	if out.Capacity > 0 {
		out.Fraction = out.Units / out.Capacity
	}
	out.Remaining = math.Max(0, out.Capacity-out.Units)
	return out
}
