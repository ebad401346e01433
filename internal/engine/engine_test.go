package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Seesaw/internal/model"
	"Seesaw/internal/portfolio"
	"Seesaw/internal/recorder"
	"Seesaw/internal/trait"
	"Seesaw/internal/trigger"
)

const testLibrary = `
system_config:
  point_to_gear_ratio: 10
  base_buy_gear: 3
  base_sell_gear: 3
traits:
  - id: dip_hunter
    auto: false
    buy_points: 15
    sell_points: -5
  - id: black_swan
    auto: false
  - id: fx_watch
    category: fx
    auto: true
    auto_trigger: "is_fx == 1 and fx_vs_avg > 2"
    buy_points: 5
`

type memSaver struct {
	mu    sync.Mutex
	saves int
}

func (m *memSaver) Save(_ []model.Position) error {
	m.mu.Lock()
	m.saves++
	m.mu.Unlock()
	return nil
}

type memRecorder struct {
	passes    []recorder.PassEvent
	positions []recorder.PositionEvent
	applies   []recorder.ApplyEvent
}

func (m *memRecorder) RecordPass(evt *recorder.PassEvent, positions []recorder.PositionEvent) error {
	m.passes = append(m.passes, *evt)
	m.positions = append(m.positions, positions...)
	return nil
}

func (m *memRecorder) RecordApply(evt *recorder.ApplyEvent) error {
	m.applies = append(m.applies, *evt)
	return nil
}

func (m *memRecorder) Close() error { return nil }

func testPositions() []model.Position {
	return []model.Position{
		{
			Name: "AAA", Market: model.MarketDomestic, AvgCost: 10000, SharesHeld: 10,
			BuyGear: 3, SellGear: 3,
			Snapshot: model.Snapshot{Current: 9500, High5d: 10000, High10d: 10500, LowToday: 9400},
		},
		{
			Name: "BBB", Market: model.MarketDomestic, BuyGear: 3, SellGear: 3,
			Snapshot: model.Snapshot{Current: 21000, High10d: 20000},
		},
		{
			Name: "USD", Market: model.MarketCurrency, AvgCost: 1250, SharesHeld: 1000,
			Snapshot: model.Snapshot{Current: 1300},
		},
	}
}

func newTestEngine(t *testing.T) (*Engine, *memSaver, *memRecorder) {
	t.Helper()
	lib, err := trait.Parse([]byte(testLibrary))
	require.NoError(t, err)

	saver := &memSaver{}
	rec := &memRecorder{}
	e := New(portfolio.NewBook(testPositions(), saver), lib, rec, Config{
		Portfolio: portfolio.Context{CapacityUnits: 25, MaxVolume: 2500000, FXRate: 1300},
		Options:   trigger.DefaultOptions(),
	})
	e.now = func() time.Time { return time.Date(2025, 1, 13, 9, 30, 0, 0, time.Local) }
	return e, saver, rec
}

func TestRecompute(t *testing.T) {
	e, _, rec := newTestEngine(t)

	st, err := e.Recompute(nil)
	require.NoError(t, err)
	require.Len(t, st.Views, 3)
	assert.NotEmpty(t, st.PassID)
	assert.InDelta(t, 1.0, st.Deployment.Units, 1e-9)
	assert.InDelta(t, 0.04, st.Deployment.Fraction, 1e-9)

	aaa, ok := st.Get("AAA")
	require.True(t, ok)
	assert.InDelta(t, 1.0, aaa.UnitsHeld, 1e-9)
	assert.Equal(t, model.BuyReload, aaa.Buy.Mode)
	assert.InDelta(t, 9500, aaa.Buy.Price, 1e-9)
	assert.Equal(t, trigger.StatusActive, aaa.Buy.Status)
	assert.InDelta(t, 9600, aaa.Rescue.Price, 1e-9)
	assert.Equal(t, trigger.StatusWatching, aaa.Sell.Status)
	require.NotNil(t, aaa.Recommendation)
	assert.Equal(t, 3.0, aaa.Recommendation.BuyGear)
	assert.Nil(t, aaa.Currency)

	bbb, _ := st.Get("BBB")
	assert.Equal(t, model.BuyLoad, bbb.Buy.Mode)
	assert.InDelta(t, 19000, bbb.Buy.Price, 1e-9)
	assert.Equal(t, trigger.StatusWatching, bbb.Buy.Status)
	assert.Equal(t, trigger.StatusNotApplicable, bbb.Rescue.Status)

	usd, _ := st.Get("USD")
	require.NotNil(t, usd.Currency)
	assert.Nil(t, usd.Buy)
	assert.Nil(t, usd.Recommendation)
	assert.Equal(t, []string{"fx_watch"}, traitIDs(usd.Traits.Active()))

	require.Len(t, rec.passes, 1)
	assert.Equal(t, st.PassID, rec.passes[0].PassID)
	assert.Len(t, rec.positions, 3)
	assert.Equal(t, "ACTIVE", rec.positions[0].BuyStatus)
}

func TestRecompute_UsesOneSnapshot(t *testing.T) {
	e, _, _ := newTestEngine(t)
	before := e.Book().Snapshot()

	_, err := e.Apply("AAA", trait.Toggles{"dip_hunter": true})
	require.NoError(t, err)

	st, err := e.Recompute(nil)
	require.NoError(t, err)
	assert.Equal(t, before.Version+1, st.Version)
	old, _ := before.Get("AAA")
	assert.Equal(t, 3.0, old.BuyGear, "earlier snapshot is untouched")
}

func TestApply_ManualTraitShiftsAndPersists(t *testing.T) {
	e, saver, rec := newTestEngine(t)

	c, err := e.Apply("AAA", trait.Toggles{"dip_hunter": true})
	require.NoError(t, err)
	assert.Equal(t, "applied", c.Action)
	assert.Equal(t, 4.5, c.BuyGear)
	assert.Equal(t, 2.5, c.SellGear)
	assert.Equal(t, 15.0, c.BuyPoints)
	assert.Equal(t, 1.5, c.BuyShift)
	assert.Equal(t, "250113 09:30", c.Timestamp)

	p, _ := e.Book().Snapshot().Get("AAA")
	assert.Equal(t, 4.5, p.BuyGear)
	assert.Equal(t, 2.5, p.SellGear)
	assert.Equal(t, c, p.Applied)
	assert.Equal(t, 1, saver.saves)

	again, err := e.Apply("AAA", trait.Toggles{"dip_hunter": true})
	require.NoError(t, err)
	assert.Equal(t, "no_change", again.Action)
	assert.Equal(t, 2, saver.saves, "bookkeeping is still persisted")

	require.Len(t, rec.applies, 2)
	assert.Equal(t, "dip_hunter", rec.applies[0].Traits)
}

func TestApply_BlackSwan(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c, err := e.Apply("AAA", trait.Toggles{"black_swan": true, "dip_hunter": true})
	require.NoError(t, err)
	assert.Equal(t, "applied", c.Action)
	assert.Equal(t, 4.5, c.BuyGear)
	assert.Equal(t, 0.0, c.SellGear)

	v, err := e.Show("AAA", nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.Position.SellGear)
	assert.Equal(t, 1.0, v.Sell.Tiers[0].OffsetPct, "black swan collapses the ladder")
}

func TestCancel(t *testing.T) {
	e, _, rec := newTestEngine(t)
	_, err := e.Apply("AAA", trait.Toggles{"dip_hunter": true})
	require.NoError(t, err)

	c, err := e.Cancel("AAA")
	require.NoError(t, err)
	assert.Equal(t, "canceled", c.Action)
	assert.Equal(t, 3.0, c.BuyGear)
	assert.Equal(t, 3.0, c.SellGear)

	p, _ := e.Book().Snapshot().Get("AAA")
	assert.Equal(t, 3.0, p.BuyGear)
	assert.Equal(t, "canceled", p.Applied.Action)
	assert.Equal(t, 15.0, p.Applied.BuyPoints, "applied points are kept for reference")
	assert.Equal(t, "canceled", rec.applies[len(rec.applies)-1].Action)
}

func TestErrors(t *testing.T) {
	e, saver, _ := newTestEngine(t)

	_, err := e.Show("nope", nil)
	assert.True(t, errors.Is(err, ErrUnknownPosition))
	_, err = e.Apply("nope", nil)
	assert.True(t, errors.Is(err, ErrUnknownPosition))
	_, err = e.Cancel("nope")
	assert.True(t, errors.Is(err, ErrUnknownPosition))

	_, _, err = e.Recommend("USD", nil)
	assert.True(t, errors.Is(err, ErrCurrencyPosition))
	_, err = e.Apply("USD", nil)
	assert.True(t, errors.Is(err, ErrCurrencyPosition))
	_, err = e.Cancel("USD")
	assert.True(t, errors.Is(err, ErrCurrencyPosition))

	assert.Equal(t, 0, saver.saves)
}

func TestSetContext(t *testing.T) {
	e, _, _ := newTestEngine(t)
	pc := e.Context()
	pc.MaxVolume = 5000000
	e.SetContext(pc)

	v, err := e.Show("AAA", nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v.UnitsHeld, 1e-9)
}

func traitIDs(ts []*trait.Trait) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}
