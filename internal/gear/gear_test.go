package gear

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"Seesaw/internal/model"
)

func TestRescueRamp_Endpoints(t *testing.T) {
	tests := []struct {
		name  string
		units float64
		want  RescueParams
	}{
		{"one unit", 1, RescueParams{DropPct: 4.0, Ratio: 0.5, Gear: 1.0}},
		{"saturated", 10, RescueParams{DropPct: 6.0, Ratio: 0.7, Gear: 3.0}},
		{"beyond saturation", 18, RescueParams{DropPct: 6.0, Ratio: 0.7, Gear: 3.0}},
		{"below one", 0.3, RescueParams{DropPct: 4.0, Ratio: 0.5, Gear: 1.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RescueRamp(tt.units, 25, DefaultSaturation)
			assert.InDelta(t, tt.want.DropPct, got.DropPct, 1e-9)
			assert.InDelta(t, tt.want.Ratio, got.Ratio, 1e-9)
			assert.InDelta(t, tt.want.Gear, got.Gear, 1e-9)
		})
	}
}

func TestRescueRamp_Monotonic(t *testing.T) {
	prev := RescueRamp(1, 25, DefaultSaturation)
	for u := 1.25; u <= 10; u += 0.25 {
		cur := RescueRamp(u, 25, DefaultSaturation)
		assert.GreaterOrEqual(t, cur.DropPct, prev.DropPct)
		assert.GreaterOrEqual(t, cur.Ratio, prev.Ratio)
		assert.GreaterOrEqual(t, cur.Gear, prev.Gear)
		prev = cur
	}
}

func TestRescueRamp_SmallCapacity(t *testing.T) {
	// saturation follows capacity when it is smaller
	got := RescueRamp(3, 5, DefaultSaturation)
	assert.InDelta(t, 5.0, got.DropPct, 1e-9)

	// a one-unit book saturates immediately
	got = RescueRamp(0.5, 1, DefaultSaturation)
	assert.InDelta(t, 6.0, got.DropPct, 1e-9)
}

func TestRescue_Presets(t *testing.T) {
	assert.Equal(t, RescueParams{4.0, 0.5, 1}, Rescue(model.RescueLight, 7, 25, 10))
	assert.Equal(t, RescueParams{5.0, 0.6, 2}, Rescue(model.RescueDefault, 7, 25, 10))
	assert.Equal(t, RescueParams{6.0, 0.7, 3}, Rescue(model.RescueHeavy, 1, 25, 10))
	assert.InDelta(t, 4.0, Rescue(model.RescueAuto, 1, 25, 10).DropPct, 1e-9)
}

func TestStaticDropPct(t *testing.T) {
	assert.Equal(t, 5.0, StaticDropPct(3))
	assert.Equal(t, 3.0, StaticDropPct(0))
	assert.Equal(t, 7.0, StaticDropPct(9))
	assert.Equal(t, 5.0, StaticDropPct(math.NaN()))
}

func TestLoadTrendDropPct(t *testing.T) {
	assert.InDelta(t, 6.5, LoadTrendDropPct(0, 0, 1), 1e-9)
	assert.InDelta(t, 3.0, LoadTrendDropPct(5, 5, 0), 1e-9)
	assert.InDelta(t, 7.0, LoadTrendDropPct(0, 0, 99), 1e-9)
	assert.InDelta(t, 6.5, LoadTrendDropPct(math.NaN(), 0, math.NaN()), 1e-9)
}

func TestAuto(t *testing.T) {
	assert.Equal(t, 0.0, DeploymentPenalty(0.4))
	assert.InDelta(t, -3.0, DeploymentPenalty(1.0), 1e-9)
	assert.InDelta(t, 3.0, Auto(3, 3, 0.2, true), 1e-9)
	assert.InDelta(t, 1.5, Auto(3, 3, 0.7, true), 1e-9)
	assert.Equal(t, 0.0, Auto(0, 0, 1, true))
	assert.Equal(t, 5.0, Auto(9, 9, 0, true))
	assert.InDelta(t, 2.3, Auto(2.34, 2.34, 0, true), 1e-9)
}

func TestSellLadder(t *testing.T) {
	three := SellLadder(ThreeTier, 3)
	assert.Equal(t, []Tier{{4, 0.5}, {6, 0.25}, {8, 0.25}}, three)

	swan := SellLadder(ThreeTier, 0)
	assert.Equal(t, []Tier{{1, 0.5}, {2, 0.25}, {3, 0.25}}, swan)

	two := SellLadder(TwoTier, 2)
	assert.Equal(t, []Tier{{3, 0.5}, {6, 0.5}}, two)

	nan := SellLadder(ThreeTier, math.NaN())
	assert.Equal(t, 4.0, nan[0].OffsetPct)
}

func TestClampNeverNaN(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -3, 0, 2.5, 42} {
		g := Sanitize(v)
		assert.False(t, math.IsNaN(g))
		assert.GreaterOrEqual(t, g, Min)
		assert.LessOrEqual(t, g, Max)
	}
}

func TestParseLadderVariant(t *testing.T) {
	v, err := ParseLadderVariant("")
	assert.NoError(t, err)
	assert.Equal(t, ThreeTier, v)
	_, err = ParseLadderVariant("four")
	assert.Error(t, err)
}
