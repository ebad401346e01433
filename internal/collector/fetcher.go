package collector

import (
	"context"
	"errors"
	"time"

	"Seesaw/internal/model"
)

// ErrNoData means the upstream answered but had no usable bars.
var ErrNoData = errors.New("no market data")

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error)
	Name() string
}

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  map[string][]model.OHLCV
	Err   error
	Calls int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string, days int) ([]model.OHLCV, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if bars, ok := m.Bars[symbol]; ok {
		return bars, nil
	}
	if m.Price <= 0 {
		return nil, ErrNoData
	}
	return generateMockBars(m.Price, days), nil
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   time.Now().AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
