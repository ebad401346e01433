package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTradingDaysSince(t *testing.T) {
	now := time.Date(2025, 1, 13, 9, 0, 0, 0, time.Local) // Monday
	assert.Equal(t, 5, TradingDaysSince("250106", now))
	assert.Equal(t, 5, TradingDaysSince("2025-01-06", now))
	assert.Equal(t, 1, TradingDaysSince("250110", now))
	assert.Equal(t, 0, TradingDaysSince("250113", now))
	assert.Equal(t, 0, TradingDaysSince("250120", now))
	assert.Equal(t, 0, TradingDaysSince("", now))
	assert.Equal(t, 0, TradingDaysSince("251399", now))
}

func TestNormalizeYYMMDD(t *testing.T) {
	assert.Equal(t, "250106", NormalizeYYMMDD("2025-01-06"))
	assert.Equal(t, "250106", NormalizeYYMMDD(" 250106 "))
	assert.Equal(t, "soon", NormalizeYYMMDD("soon"))
}

func TestSnapshotDerived(t *testing.T) {
	s := Snapshot{Current: 100, High5d: 110, High10d: 120, LowToday: 98}
	assert.InDelta(t, 12.0, s.RangePct(), 1e-9)
	assert.InDelta(t, -9.0909, s.ROCFromHigh(), 1e-3)

	s.High5d = 0
	assert.Equal(t, 0.0, s.RangePct())
	assert.InDelta(t, -16.6667, s.ROCFromHigh(), 1e-3)

	assert.Equal(t, 0.0, Snapshot{}.ROCFromHigh())
}

func TestParseMarket(t *testing.T) {
	m, ok := ParseMarket("us")
	assert.True(t, ok)
	assert.Equal(t, MarketForeign, m)
	_, ok = ParseMarket("JP")
	assert.False(t, ok)
}

func TestEffectiveAvgCost(t *testing.T) {
	p := Position{AvgCost: 100}
	assert.Equal(t, 0.0, p.EffectiveAvgCost())
	p.SharesHeld = 3
	assert.Equal(t, 100.0, p.EffectiveAvgCost())
}
