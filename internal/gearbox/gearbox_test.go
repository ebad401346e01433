package gearbox

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Seesaw/internal/model"
)

func flatBars(n int, price float64) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		bars[i] = model.OHLCV{Open: price, High: price, Low: price, Close: price}
	}
	return bars
}

// risingBars climbs 2 per bar from 100 with a one-point wick on each side.
func risingBars(n int) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		c := 100 + 2*float64(i)
		bars[i] = model.OHLCV{Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	return bars
}

func TestRegistry(t *testing.T) {
	ids := make([]string, 0)
	for _, m := range Models() {
		ids = append(ids, m.ID())
	}
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, ids)

	m, err := Get("C")
	require.NoError(t, err)
	assert.Equal(t, "Mean Reversion Focus", m.Name())

	_, err = Get("Z")
	assert.True(t, errors.Is(err, ErrUnknownModel))
}

func TestModels_WarmupIsNeutral(t *testing.T) {
	bars := risingBars(3)
	for _, m := range Models() {
		s := m.Score(bars)
		require.Len(t, s.Buy, 3, m.ID())
		for i := range s.Buy {
			assert.Equal(t, neutralGear, s.Buy[i], "%s buy[%d]", m.ID(), i)
			assert.Equal(t, neutralGear, s.Sell[i], "%s sell[%d]", m.ID(), i)
		}
	}
}

func TestModels_UndefinedMomentumIgnoresVolatility(t *testing.T) {
	// Wide ranges define ATR% and the high/low range on bar 4, but 5-day ROC
	// needs a sixth bar.
	bars := make([]model.OHLCV, 5)
	for i := range bars {
		bars[i] = model.OHLCV{Open: 100, High: 106, Low: 94, Close: 100}
	}
	for _, id := range []string{"A", "D"} {
		m, err := Get(id)
		require.NoError(t, err)
		s := m.Score(bars)
		for i, g := range s.Sell {
			assert.Equal(t, neutralGear, g, "%s sell[%d]", id, i)
		}
		r, err := Latest(m, bars)
		require.NoError(t, err)
		assert.Equal(t, neutralGear, r.SellGear, id)
		assert.Equal(t, 5, r.BuyGear, id)
	}
}

func TestModels_FlatMarket(t *testing.T) {
	want := map[string][2]int{
		"A": {1, 2},
		"B": {1, 2},
		"C": {1, 3}, // flat RSI is undefined
		"D": {1, 2},
		"E": {1, 3},
	}
	bars := flatBars(30, 100)
	for _, m := range Models() {
		r, err := Latest(m, bars)
		require.NoError(t, err)
		assert.Equal(t, want[m.ID()][0], r.BuyGear, "buy %s", m.ID())
		assert.Equal(t, want[m.ID()][1], r.SellGear, "sell %s", m.ID())
	}
}

func TestModels_RisingMarket(t *testing.T) {
	want := map[string][2]int{
		"A": {1, 4},
		"B": {1, 3}, // wide bands dampen the slope gear
		"C": {1, 4},
		"D": {3, 4},
		"E": {2, 4},
	}
	bars := risingBars(30)
	for _, m := range Models() {
		r, err := Latest(m, bars)
		require.NoError(t, err)
		assert.Equal(t, want[m.ID()][0], r.BuyGear, "buy %s", m.ID())
		assert.Equal(t, want[m.ID()][1], r.SellGear, "sell %s", m.ID())
	}
}

func TestLatest_Indicators(t *testing.T) {
	m, _ := Get("A")
	r, err := Latest(m, risingBars(30))
	require.NoError(t, err)
	assert.InDelta(t, 6.7568, r.Indicators["roc_5"], 1e-3)
	assert.InDelta(t, 300.0/158, r.Indicators["atr_pct_5"], 1e-9)

	_, err = Latest(m, nil)
	assert.Error(t, err)
}

func TestLatest_DropsUndefined(t *testing.T) {
	m, _ := Get("C")
	r, err := Latest(m, flatBars(30, 50))
	require.NoError(t, err)
	_, ok := r.Indicators["rsi_7"]
	assert.False(t, ok)
	assert.Contains(t, r.Indicators, "dist_ma_5")
}

func TestReversionGear(t *testing.T) {
	tests := []struct {
		rsi, dist float64
		want      int
	}{
		{75, 4, 5},
		{25, -4, 1},
		{65, 0, 4},
		{50, 2.5, 4},
		{50, 0.5, 3},
		{35, 0, 2},
		{50, -2.5, 2},
		{50, -1.5, 3},
		{math.NaN(), 0, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reversionGear(tt.rsi, tt.dist), "rsi=%v dist=%v", tt.rsi, tt.dist)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 0.0, normalize(-20, -10, 15))
	assert.Equal(t, 1.0, normalize(30, -10, 15))
	assert.InDelta(t, 0.5, normalize(2.5, -10, 15), 1e-9)
	assert.True(t, math.IsNaN(normalize(math.NaN(), 0, 1)))
}

func TestAdvise_Basic(t *testing.T) {
	in := Input{
		BuyGear:  3,
		SellGear: 3,
		Snapshot: model.Snapshot{Current: 100, High5d: 110, LowToday: 98},
		Now:      time.Date(2025, 1, 13, 9, 0, 0, 0, time.Local),
	}
	a := Advise(DefaultModel, in)
	assert.Equal(t, "Model A", a.Model)
	assert.Equal(t, 5, a.BuyGear)
	assert.Equal(t, 1, a.SellGear)
	assert.Equal(t, 2, a.DeltaBuy)
	assert.Equal(t, -2, a.DeltaSell)
	assert.Equal(t, AdviceOK, a.Status)
	assert.Equal(t, 0.55, a.Confidence)
	assert.Equal(t, "ATR% 12.0, ROC% -9.1.", a.Notes)
	assert.Equal(t, []Adjustment{{Source: "gearbox", Delta: -2}}, a.Adjustments)
	assert.False(t, a.Clamped)
}

func TestAdvise_NoData(t *testing.T) {
	a := Advise(DefaultModel, Input{})
	assert.Equal(t, 2, a.BuyGear)
	assert.Equal(t, 2, a.SellGear)
	assert.Equal(t, -1, a.DeltaBuy, "unset gears read as neutral")
	assert.Equal(t, -1, a.DeltaSell)
}

func TestAdvise_DeploymentBreaker(t *testing.T) {
	in := Input{
		BuyGear:         3,
		SellGear:        3,
		Snapshot:        model.Snapshot{Current: 100, High5d: 99, LowToday: 98},
		DeploymentRatio: 0.75,
	}
	a := Advise(DefaultModel, in)
	assert.Equal(t, AdviceWarning, a.Status)
	assert.Equal(t, 1, a.SellGear)
	assert.Equal(t, -2, a.DeltaSell)
	assert.False(t, a.Clamped)
	assert.Contains(t, a.Notes, "Deployment 75% -> sell -2.")

	in.DeploymentRatio = 0.45
	a = Advise(DefaultModel, in)
	assert.Equal(t, 2, a.SellGear)
	assert.Equal(t, []Adjustment{{"gearbox", 0}, {"size", -1}}, a.Adjustments)
}

func TestAdvise_BreakersStackAndClamp(t *testing.T) {
	now := time.Date(2025, 1, 31, 9, 0, 0, 0, time.Local)
	in := Input{
		BuyGear:          3,
		SellGear:         3,
		Snapshot:         model.Snapshot{Current: 100, High5d: 99, LowToday: 98},
		LatestTradingDay: "250106",
		DeploymentRatio:  0.8,
		Now:              now,
	}
	a := Advise(DefaultModel, in)
	assert.Equal(t, 1, a.SellGear)
	assert.Equal(t, -2, a.DeltaSell)
	assert.True(t, a.Clamped)
	assert.Equal(t, AdviceWarning, a.Status)
	assert.Equal(t, []Adjustment{{"gearbox", 0}, {"idle", -1}, {"size", -2}}, a.Adjustments)
	assert.Contains(t, a.Notes, "Idle 19 trading days -> sell -1.")
}

func TestAdvise_UnknownFallsBack(t *testing.T) {
	a := Advise("nope", Input{BuyGear: 2, SellGear: 4})
	assert.Equal(t, "Model A", a.Model)
	assert.Equal(t, []string{"A"}, Advisors())
}
