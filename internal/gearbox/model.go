// Package gearbox holds the bank of bar-driven gear models and the
// snapshot advisor that proposes gear changes for a single position.
package gearbox

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"Seesaw/internal/calculator"
	"Seesaw/internal/model"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "A"

// neutralGear is returned whenever an indicator is undefined.
const neutralGear = 3

var ErrUnknownModel = errors.New("unknown gear model")

// Model maps a daily bar history to per-bar buy and sell gears.
type Model interface {
	ID() string
	Name() string
	Score(bars []model.OHLCV) Series
}

// Series is the per-bar output of a model. Diagnostics carry the
// indicator series each side was derived from, keyed by indicator name.
type Series struct {
	Buy         []int
	Sell        []int
	Diagnostics map[string][]float64
}

// Reading is the latest bar of a Series.
type Reading struct {
	Model      string             `json:"model"`
	Name       string             `json:"name"`
	BuyGear    int                `json:"buy_gear"`
	SellGear   int                `json:"sell_gear"`
	Indicators map[string]float64 `json:"indicators"`
}

// Latest scores bars with m and keeps only the final bar. Undefined
// indicators are left out of the reading.
func Latest(m Model, bars []model.OHLCV) (Reading, error) {
	if len(bars) == 0 {
		return Reading{}, fmt.Errorf("model %s: no bars", m.ID())
	}
	s := m.Score(bars)
	r := Reading{
		Model:      m.ID(),
		Name:       m.Name(),
		BuyGear:    s.Buy[len(s.Buy)-1],
		SellGear:   s.Sell[len(s.Sell)-1],
		Indicators: make(map[string]float64, len(s.Diagnostics)),
	}
	for name, series := range s.Diagnostics {
		if v := calculator.Last(series); !math.IsNaN(v) {
			r.Indicators[name] = v
		}
	}
	return r, nil
}

var registry = map[string]Model{}

func register(m Model) { registry[m.ID()] = m }

// Get returns the model registered under id.
func Get(id string) (Model, error) {
	m, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, id)
	}
	return m, nil
}

// Models returns every registered model ordered by ID.
func Models() []Model {
	out := make([]Model, 0, len(registry))
	for _, m := range registry {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// band is an ascending threshold table: the first bound v is below wins.
type band struct {
	below float64
	gear  int
}

func fromBands(v float64, bands []band, top int) int {
	if math.IsNaN(v) {
		return neutralGear
	}
	for _, b := range bands {
		if v < b.below {
			return b.gear
		}
	}
	return top
}

func mapSeries(values []float64, f func(float64) int) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = f(v)
	}
	return out
}

func clampGear(g int) int {
	if g < 1 {
		return 1
	}
	if g > 5 {
		return 5
	}
	return g
}

// normalize scales v onto [0, 1] between lo and hi.
func normalize(v, lo, hi float64) float64 {
	return math.Max(0, math.Min(1, (v-lo)/(hi-lo)))
}
