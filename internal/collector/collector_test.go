package collector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Seesaw/internal/model"
)

var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// stepBars closes at 100+i with a one-point wick; the last bar is replaced by today.
func stepBars() []model.OHLCV {
	bars := make([]model.OHLCV, 12)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = model.OHLCV{Time: day0.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	bars[11] = model.OHLCV{Time: day0.AddDate(0, 0, 11), Open: 110, High: 115, Low: 105, Close: 108}
	return bars
}

func TestBuildSnapshot(t *testing.T) {
	now := time.Date(2025, 1, 13, 10, 0, 0, 0, time.UTC)
	s, err := BuildSnapshot(stepBars(), now)
	require.NoError(t, err)

	assert.Equal(t, 108.0, s.Current)
	assert.Equal(t, 105.0, s.LowToday)
	assert.Equal(t, 115.0, s.HighToday)
	assert.Equal(t, 111.0, s.High5d, "completed sessions only")
	assert.Equal(t, 115.0, s.High10d, "today included")
	assert.InDelta(t, -1.8182, s.ROC1d, 1e-3)
	assert.InDelta(t, 1.8868, s.ROC5d, 1e-3)
	assert.InDelta(t, 14.0/3/108*100, s.ATR3dPct, 1e-9)
	assert.Greater(t, s.RSI14, 0.0)
	assert.Equal(t, now, s.UpdatedAt)

	_, err = BuildSnapshot(nil, now)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestBuildSnapshot_SingleBar(t *testing.T) {
	s, err := BuildSnapshot(stepBars()[:1], time.Now())
	require.NoError(t, err)
	assert.Equal(t, 101.0, s.High5d)
	assert.Equal(t, 0.0, s.ROC1d)
	assert.Equal(t, 0.0, s.ATR3dPct)
}

func TestBuildFXQuote(t *testing.T) {
	bars := make([]model.OHLCV, 30)
	for i := range bars {
		bars[i] = model.OHLCV{Close: 1300 + float64(i)}
	}
	q, err := BuildFXQuote(bars, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1329.0, q.Rate)
	assert.InDelta(t, 1319.5, q.Avg20d, 1e-9)
	assert.InDelta(t, 1324.5, q.Avg10d, 1e-9)
	assert.InDelta(t, 9.0/1320*100, q.Slope10d, 1e-9)
}

const chartJSON = `{"chart":{"result":[{"timestamp":[1736812800,1736640000,1736726400],
"indicators":{"quote":[{"open":[103,101,null],"high":[104,102,null],"low":[102,100,null],
"close":[103.5,101.5,null],"volume":[10,20,null]}]}}],"error":null}}`

func TestYahooFetcher(t *testing.T) {
	var gotPath, gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRange = r.URL.Query().Get("range")
		switch r.URL.Path {
		case "/v8/finance/chart/005930.KS":
			w.Write([]byte(chartJSON))
		case "/v8/finance/chart/EMPTY":
			w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
		case "/v8/finance/chart/BAD":
			w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewYahooFetcher(YahooOptions{
		BaseURL:           srv.URL,
		RequestsPerSecond: 100,
		SymbolMap:         map[string]string{"Samsung": "005930.KS"},
	})
	ctx := context.Background()

	bars, err := f.FetchDailyBars(ctx, "Samsung", 30)
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/005930.KS", gotPath)
	assert.Equal(t, "1mo", gotRange)
	require.Len(t, bars, 2, "null bar skipped")
	assert.Equal(t, 101.5, bars[0].Close, "sorted oldest first")
	assert.Equal(t, 103.5, bars[1].Close)

	bars, err = f.FetchDailyBars(ctx, "005930.KS", 1)
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, "5d", gotRange)

	_, err = f.FetchDailyBars(ctx, "EMPTY", 30)
	assert.True(t, errors.Is(err, ErrNoData))

	_, err = f.FetchDailyBars(ctx, "BAD", 30)
	assert.ErrorContains(t, err, "No data found")

	_, err = f.FetchDailyBars(ctx, "MISSING", 30)
	assert.ErrorContains(t, err, "status 404")
}

func TestCachedFetcher(t *testing.T) {
	db, mock := redismock.NewClientMock()
	bars := stepBars()[:3]
	next := &MockFetcher{Bars: map[string][]model.OHLCV{"AAA": bars}}
	c := NewCachedFetcher(next, db, time.Minute)
	ctx := context.Background()

	data, err := json.Marshal(bars)
	require.NoError(t, err)
	key := cacheKey("AAA", 30)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, data, time.Minute).SetVal("OK")
	got, err := c.FetchDailyBars(ctx, "AAA", 30)
	require.NoError(t, err)
	assert.Equal(t, bars, got)
	assert.Equal(t, 1, next.Calls)

	mock.ExpectGet(key).SetVal(string(data))
	got, err = c.FetchDailyBars(ctx, "AAA", 30)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, 1, next.Calls, "served from cache")

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "mock+redis", c.Name())
}

func TestCachedFetcher_RedisDown(t *testing.T) {
	db, mock := redismock.NewClientMock()
	bars := stepBars()
	next := &MockFetcher{Bars: map[string][]model.OHLCV{"AAA": bars}}
	c := NewCachedFetcher(next, db, time.Minute)
	key := cacheKey("AAA", 30)
	data, err := json.Marshal(bars)
	require.NoError(t, err)

	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	mock.ExpectSet(key, data, time.Minute).SetErr(errors.New("connection refused"))

	got, err := c.FetchDailyBars(context.Background(), "AAA", 30)
	require.NoError(t, err)
	assert.Len(t, got, 12)
}

func TestCollector_Refresh(t *testing.T) {
	fx := make([]model.OHLCV, 30)
	for i := range fx {
		fx[i] = model.OHLCV{Close: 1300 + float64(i)}
	}
	f := &MockFetcher{Bars: map[string][]model.OHLCV{
		"KRW=X":  fx,
		"AAA.KS": stepBars(),
	}}
	c := NewCollector(f, "", map[string]string{"Beta": "BBB.KS"})

	positions := []model.Position{
		{Name: "Alpha", Ticker: "AAA.KS"},
		{Name: "Beta", Snapshot: model.Snapshot{Current: 77}},
		{Name: "Gamma"},
		{Name: "USD", Market: model.MarketCurrency},
	}
	res := c.Refresh(context.Background(), positions)

	require.NotNil(t, res.FX)
	assert.Equal(t, 1329.0, res.FX.Rate)
	assert.Equal(t, []string{"Alpha", "USD"}, res.Updated)
	assert.Contains(t, res.Failed, "Beta")
	assert.True(t, errors.Is(res.Failed["Beta"], ErrNoData))

	assert.Equal(t, 108.0, res.Positions[0].Snapshot.Current)
	assert.Equal(t, 77.0, res.Positions[1].Snapshot.Current, "failed refresh keeps the old snapshot")
	assert.Equal(t, 1329.0, res.Positions[3].Snapshot.Current)
	assert.Equal(t, 0.0, positions[0].Snapshot.Current, "input is not modified")
}

func TestCollector_FXFailure(t *testing.T) {
	c := NewCollector(&MockFetcher{Err: errors.New("down")}, "KRW=X", nil)
	res := c.Refresh(context.Background(), []model.Position{{Name: "USD", Market: model.MarketCurrency}})
	assert.Nil(t, res.FX)
	assert.Contains(t, res.Failed, "KRW=X")
	assert.Empty(t, res.Updated)
}
