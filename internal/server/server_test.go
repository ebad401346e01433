package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Seesaw/internal/engine"
	"Seesaw/internal/model"
	"Seesaw/internal/portfolio"
	"Seesaw/internal/trait"
	"Seesaw/internal/trigger"
)

const testLibrary = `
system_config:
  point_to_gear_ratio: 10
traits:
  - id: dip_hunter
    category: manual
    auto: false
    buy_points: 15
    sell_points: -5
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	lib, err := trait.Parse([]byte(testLibrary))
	require.NoError(t, err)
	positions := []model.Position{
		{
			Name: "AAA", Market: model.MarketDomestic, AvgCost: 10000, SharesHeld: 10, BuyGear: 3, SellGear: 3,
			Snapshot: model.Snapshot{Current: 9500, High5d: 10000, High10d: 10500, LowToday: 9400},
		},
		{Name: "USD", Market: model.MarketCurrency, AvgCost: 1250, SharesHeld: 1000},
	}
	eng := engine.New(portfolio.NewBook(positions, nil), lib, nil, engine.Config{
		Portfolio: portfolio.Context{CapacityUnits: 25, MaxVolume: 2500000, FXRate: 1300},
		Options:   trigger.DefaultOptions(),
	})
	srv := httptest.NewServer(New(":0", eng).Routes())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPositions(t *testing.T) {
	srv := newTestServer(t)

	var st struct {
		PassID     string `json:"pass_id"`
		Deployment struct {
			Units float64 `json:"units"`
		} `json:"deployment"`
		Views []struct {
			Position struct {
				Name string `json:"name"`
			} `json:"position"`
		} `json:"views"`
	}
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/positions", &st))
	assert.NotEmpty(t, st.PassID)
	assert.InDelta(t, 1.0, st.Deployment.Units, 1e-9)
	require.Len(t, st.Views, 2)
	assert.Equal(t, "AAA", st.Views[0].Position.Name)
}

func TestShowPosition(t *testing.T) {
	srv := newTestServer(t)

	var v struct {
		Buy struct {
			Price  float64 `json:"price"`
			Status string  `json:"status"`
		} `json:"buy"`
		Recommendation struct {
			BuyGear  float64  `json:"buy_gear"`
			SellGear float64  `json:"sell_gear"`
			Traits   []string `json:"traits"`
		} `json:"recommendation"`
	}
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/positions/AAA?toggle=dip_hunter", &v))
	assert.InDelta(t, 9500, v.Buy.Price, 1e-9)
	assert.Equal(t, "ACTIVE", v.Buy.Status)
	assert.Equal(t, 4.5, v.Recommendation.BuyGear)
	assert.Equal(t, 2.5, v.Recommendation.SellGear)
	assert.Equal(t, []string{"dip_hunter"}, v.Recommendation.Traits)

	var e map[string]string
	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/positions/ZZZ", &e))
	assert.Contains(t, e["error"], "unknown position")
}

func TestRecommendation(t *testing.T) {
	srv := newTestServer(t)

	var rec model.Recommendation
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/positions/AAA/recommendation", &rec))
	assert.Equal(t, 3.0, rec.BuyGear)

	var e map[string]string
	assert.Equal(t, http.StatusUnprocessableEntity, get(t, srv.URL+"/positions/USD/recommendation", &e))
}

func TestModelsAndTraits(t *testing.T) {
	srv := newTestServer(t)

	var models []modelInfo
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/models", &models))
	require.Len(t, models, 5)
	assert.Equal(t, "A", models[0].ID)

	var traits map[string][]map[string]any
	require.Equal(t, http.StatusOK, get(t, srv.URL+"/traits", &traits))
	require.Len(t, traits["manual"], 1)
	assert.Equal(t, "dip_hunter", traits["manual"][0]["id"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
}
