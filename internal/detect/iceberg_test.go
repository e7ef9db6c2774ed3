package detect

import (
	"testing"

	"main/internal/model"
	"main/internal/model/enum"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplenished(t *testing.T) {
	assert.True(t, replenished([]float64{50, 10, 40}))
	assert.True(t, replenished([]float64{5, 50, 10, 40, 3}))
	assert.False(t, replenished([]float64{50, 40, 30}))
	assert.False(t, replenished([]float64{10, 20, 30}))
	// Recovery to zero is not a refill.
	assert.False(t, replenished([]float64{50, 10, 0}))
	assert.False(t, replenished([]float64{50, 10}))
}

func TestDetectIcebergsVPattern(t *testing.T) {
	now := int64(100_000)
	// Nine small trades and three large buys at 100.0 within the window.
	trades := []model.Trade{
		{Price: 100.5, Size: 1, Side: enum.SideSell, Ts: now - 9000},
		{Price: 99.5, Size: 1, Side: enum.SideBuy, Ts: now - 8500},
		{Price: 100.5, Size: 1, Side: enum.SideSell, Ts: now - 8000},
		{Price: 99.5, Size: 1, Side: enum.SideBuy, Ts: now - 7500},
		{Price: 100.5, Size: 1, Side: enum.SideSell, Ts: now - 7000},
		{Price: 100, Size: 10, Side: enum.SideBuy, Ts: now - 6000},
		{Price: 100, Size: 10, Side: enum.SideBuy, Ts: now - 4000},
		{Price: 100, Size: 10, Side: enum.SideBuy, Ts: now - 2000},
	}
	// Displayed size at 100.0 collapses and refills: the V pattern.
	snapshots := []model.DOMSnapshot{
		{Ts: now - 6000, Bids: []model.PriceLevel{{Price: 100, Size: 50}}},
		{Ts: now - 4000, Bids: []model.PriceLevel{{Price: 100, Size: 10}}},
		{Ts: now - 2000, Bids: []model.PriceLevel{{Price: 100, Size: 40}}},
	}

	events := DetectIcebergs(trades, snapshots, now)
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, enum.EventIcebergDetected, ev.Type)
	assert.Equal(t, enum.SideBuy, ev.Side)
	assert.InDelta(t, 100.0, ev.Price, 0.02)
	assert.InDelta(t, 30.0, ev.VolumeEstimate, 1e-9)
	assert.Equal(t, now, ev.Ts)
	assert.Equal(t, now-IcebergWindow.Milliseconds(), ev.TsStart)
}

func TestDetectIcebergsTooFewTrades(t *testing.T) {
	now := int64(50_000)
	trades := []model.Trade{
		{Price: 100, Size: 10, Side: enum.SideBuy, Ts: now - 1000},
		{Price: 100, Size: 10, Side: enum.SideBuy, Ts: now - 500},
	}
	snapshots := []model.DOMSnapshot{{Ts: now - 500, Bids: []model.PriceLevel{{Price: 100, Size: 5}}}}
	assert.Empty(t, DetectIcebergs(trades, snapshots, now))
}

func TestDetectIcebergsNoRefillNoMassiveVolume(t *testing.T) {
	now := int64(100_000)
	// Volume at 100.0 is over threshold but not over 2x, and the DOM never
	// refills, so nothing fires.
	trades := []model.Trade{
		{Price: 101, Size: 2, Side: enum.SideSell, Ts: now - 9000},
		{Price: 99, Size: 2, Side: enum.SideBuy, Ts: now - 8000},
		{Price: 101, Size: 2, Side: enum.SideSell, Ts: now - 7000},
		{Price: 99, Size: 2, Side: enum.SideBuy, Ts: now - 6000},
		{Price: 100, Size: 9, Side: enum.SideBuy, Ts: now - 3000},
	}
	snapshots := []model.DOMSnapshot{
		{Ts: now - 4000, Bids: []model.PriceLevel{{Price: 100, Size: 50}}},
		{Ts: now - 2000, Bids: []model.PriceLevel{{Price: 100, Size: 40}}},
	}
	assert.Empty(t, DetectIcebergs(trades, snapshots, now))
}
