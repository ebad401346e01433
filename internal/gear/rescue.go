package gear

import "Seesaw/internal/model"

// DefaultSaturation is the unit count at which the rescue ramp tops out.
const DefaultSaturation = 10.0

// RescueParams drive the averaging-down trigger.
type RescueParams struct {
	DropPct float64 // discount below avg cost
	Ratio   float64 // fraction of held units to add
	Gear    float64
}

var presets = map[model.RescueMode]RescueParams{
	model.RescueLight:   {DropPct: 4.0, Ratio: 0.5, Gear: 1},
	model.RescueDefault: {DropPct: 5.0, Ratio: 0.6, Gear: 2},
	model.RescueHeavy:   {DropPct: 6.0, Ratio: 0.7, Gear: 3},
}

// RescueRamp interpolates between the light and heavy ends as units held grows.
// The saturation point is min(saturation, capacity).
func RescueRamp(unitsHeld float64, capacity int, saturation float64) RescueParams {
	if saturation <= 0 {
		saturation = DefaultSaturation
	}
	uSat := saturation
	if capacity > 0 && float64(capacity) < uSat {
		uSat = float64(capacity)
	}

	t := 1.0
	if uSat > 1 {
		t = (finiteOr(unitsHeld, 0) - 1) / (uSat - 1)
	}
	t = Clamp(t, 0, 1)

	return RescueParams{
		DropPct: 4.0 + 2.0*t,
		Ratio:   0.5 + 0.2*t,
		Gear:    1.0 + 2.0*t,
	}
}

// Rescue returns the preset for a manual mode, or the ramp for AUTO.
func Rescue(mode model.RescueMode, unitsHeld float64, capacity int, saturation float64) RescueParams {
	if p, ok := presets[mode]; ok {
		return p
	}
	return RescueRamp(unitsHeld, capacity, saturation)
}
