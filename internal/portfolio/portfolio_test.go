package portfolio

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Seesaw/internal/model"
)

func testContext() Context {
	return Context{CapacityUnits: 25, MaxVolume: 25_000_000, FXRate: 1300}
}

func TestUnitsHeld(t *testing.T) {
	ctx := testContext()
	kr := &model.Position{Name: "A", Market: model.MarketDomestic, AvgCost: 50_000, SharesHeld: 40}
	us := &model.Position{Name: "B", Market: model.MarketForeign, AvgCost: 100, SharesHeld: 20}
	fx := &model.Position{Name: "USD", Market: model.MarketCurrency, AvgCost: 1300, SharesHeld: 5000}

	assert.InDelta(t, 1_000_000, ctx.UnitSize(), 1e-9)
	assert.InDelta(t, 2.0, ctx.UnitsHeld(kr), 1e-9)
	assert.InDelta(t, 2.6, ctx.UnitsHeld(us), 1e-9)
	assert.Equal(t, 0.0, ctx.UnitsHeld(fx))

	us.FXRate = 1000
	assert.InDelta(t, 2.0, ctx.UnitsHeld(us), 1e-9)
	assert.InDelta(t, 1000, ctx.UnitSizeLocal(us), 1e-9)
}

func TestDeploy(t *testing.T) {
	ctx := testContext()
	stored := []model.Position{
		{Name: "A", Market: model.MarketDomestic, AvgCost: 100_000, SharesHeld: 100},
		{Name: "B", Market: model.MarketDomestic, AvgCost: 50_000, SharesHeld: 20},
		{Name: "C", Market: model.MarketDomestic, AvgCost: 10_000, SharesHeld: 0},
		{Name: "USD", Market: model.MarketCurrency, AvgCost: 1300, SharesHeld: 100_000},
	}

	// edited A now holds 5 units instead of the stored 10
	cur := &model.Position{Name: "A", Market: model.MarketDomestic, AvgCost: 100_000, SharesHeld: 50}
	d := ctx.Deploy(cur, stored)
	assert.InDelta(t, 6.0, d.Units, 1e-9)
	assert.InDelta(t, 0.24, d.Fraction, 1e-9)
	assert.InDelta(t, 19.0, d.Remaining, 1e-9)
	assert.True(t, d.CanBuy())

	after := d.After(2)
	assert.InDelta(t, 8.0, after.Units, 1e-9)
	assert.InDelta(t, 17.0, after.Remaining, 1e-9)
}

func TestDeploy_ZeroCapacity(t *testing.T) {
	ctx := Context{}
	d := ctx.Deploy(&model.Position{Name: "A", AvgCost: 10, SharesHeld: 1}, nil)
	assert.Equal(t, 0.0, d.Fraction)
	assert.Equal(t, 0.0, d.Units)
	assert.False(t, d.CanBuy())
}

func TestDeploy_NearlyFull(t *testing.T) {
	ctx := testContext()
	d := ctx.Deploy(&model.Position{Name: "A", AvgCost: 24_500_000, SharesHeld: 1}, nil)
	assert.InDelta(t, 24.5, d.Units, 1e-9)
	assert.InDelta(t, 0.5, d.Remaining, 1e-9)
	assert.False(t, d.CanBuy())
}

type memSaver struct {
	saved [][]model.Position
	err   error
}

func (m *memSaver) Save(p []model.Position) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, p)
	return nil
}

func TestBook_UpdateSwapsSnapshot(t *testing.T) {
	saver := &memSaver{}
	b := NewBook([]model.Position{{Name: "B"}, {Name: "A"}}, saver)
	first := b.Snapshot()
	assert.Equal(t, "A", first.Positions()[0].Name)

	_, err := b.Put(model.Position{Name: "A", SharesHeld: 7})
	require.NoError(t, err)

	p, ok := first.Get("A")
	require.True(t, ok)
	assert.Equal(t, int64(0), p.SharesHeld, "old snapshot must not change")

	p, ok = b.Snapshot().Get("A")
	require.True(t, ok)
	assert.Equal(t, int64(7), p.SharesHeld)
	assert.Equal(t, first.Version+1, b.Snapshot().Version)
	assert.Len(t, saver.saved, 1)
}

func TestBook_SaveFailureKeepsSnapshot(t *testing.T) {
	saver := &memSaver{err: errors.New("disk full")}
	b := NewBook([]model.Position{{Name: "A"}}, saver)
	_, err := b.Put(model.Position{Name: "Z"})
	require.Error(t, err)
	assert.Equal(t, 1, b.Snapshot().Len())
}

func TestBook_ConcurrentPuts(t *testing.T) {
	b := NewBook(nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = b.Put(model.Position{Name: string(rune('a' + i))})
			_ = b.Snapshot().Len()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, b.Snapshot().Len())
}

func TestState_RoundTripAndApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	st, err := LoadState(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, st.FX.Rate)

	st.FX.Rate = 1400
	st.FXAvgRate = 1350
	require.NoError(t, SaveState(path, st))

	loaded, err := LoadState(path)
	require.NoError(t, err)
	ctx := loaded.Apply(testContext())
	assert.Equal(t, 1400.0, ctx.FXRate)
	assert.Equal(t, 1350.0, ctx.FXAvgRate)
}
