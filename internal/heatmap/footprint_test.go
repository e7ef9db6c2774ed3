package heatmap

import (
	"context"
	"encoding/json"
	"testing"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/model/enum"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildFootprint(t *testing.T) {
	trades := []model.Trade{
		{Price: 100, Size: 6, Side: enum.SideBuy},
		{Price: 100, Size: 1, Side: enum.SideSell},
		{Price: 99, Size: 2, Side: enum.SideSell},
		{Price: 99, Size: 1, Side: enum.SideBuy},
		{Price: 101, Size: 9, Side: enum.SideBuy},
	}

	bar, ok := BuildFootprint(trades, 60_000, 120_000, 1)
	require.True(t, ok)
	assert.Equal(t, int64(60_000), bar.Start)
	assert.Equal(t, int64(120_000), bar.End)
	require.Len(t, bar.Levels, 3)

	// Buy volume lands in the bid column, sell volume in the ask column.
	assert.Equal(t, 99.0, bar.Levels[0].Price)
	assert.InDelta(t, 1.0, bar.Levels[0].VolBid, 1e-9)
	assert.InDelta(t, 2.0, bar.Levels[0].VolAsk, 1e-9)
	assert.InDelta(t, -1.0, bar.Levels[0].Delta, 1e-9)

	assert.Equal(t, 100.0, bar.Levels[1].Price)
	assert.InDelta(t, 5.0, bar.Levels[1].Delta, 1e-9)

	assert.Equal(t, 101.0, bar.Levels[2].Price)
	assert.InDelta(t, 9.0, bar.Levels[2].Delta, 1e-9)

	// 101 carries the highest total volume.
	assert.Equal(t, 101.0, bar.POCPrice)

	// Buy aggression dominates the asks one bin below at 100 and 101.
	require.Len(t, bar.ImbalanceLevels, 2)
	assert.Equal(t, 100.0, bar.ImbalanceLevels[0].Price)
	assert.Equal(t, string(enum.SideBuy), bar.ImbalanceLevels[0].Side)
	assert.InDelta(t, 3.0, bar.ImbalanceLevels[0].Ratio, 1e-9)
	assert.Equal(t, 101.0, bar.ImbalanceLevels[1].Price)
	assert.InDelta(t, 9.0, bar.ImbalanceLevels[1].Ratio, 1e-9)
}

func TestBuildFootprintPOCTieBreak(t *testing.T) {
	trades := []model.Trade{
		{Price: 101, Size: 5, Side: enum.SideBuy},
		{Price: 100, Size: 5, Side: enum.SideSell},
	}
	bar, ok := BuildFootprint(trades, 0, 60_000, 1)
	require.True(t, ok)
	assert.Equal(t, 100.0, bar.POCPrice)
}

func TestBuildFootprintNoImbalanceAgainstEmptyBin(t *testing.T) {
	// The bin below has no ask volume, so buy dominance cannot fire.
	trades := []model.Trade{
		{Price: 99, Size: 4, Side: enum.SideBuy},
		{Price: 100, Size: 30, Side: enum.SideBuy},
	}
	bar, ok := BuildFootprint(trades, 0, 60_000, 1)
	require.True(t, ok)
	assert.Empty(t, bar.ImbalanceLevels)
}

func TestBuildFootprintEmpty(t *testing.T) {
	_, ok := BuildFootprint(nil, 0, 60_000, 1)
	assert.False(t, ok)
	_, ok = BuildFootprint([]model.Trade{{Price: 1, Size: 1}}, 0, 60_000, 0)
	assert.False(t, ok)
}

func TestFootprintEngineTick(t *testing.T) {
	ctx := context.Background()
	b := bus.NewMemory()
	defer b.Close()

	e := NewFootprintEngine(b, nil, "bybit", "BTCUSDT")
	push := func(tr model.Trade) {
		payload, err := json.Marshal(tr)
		require.NoError(t, err)
		require.NoError(t, b.Push(ctx, bus.KeyTrades("bybit", "BTCUSDT"), payload, bus.TradesMaxLen))
	}

	// Two trades in the completed bar, one in the still-open bar.
	push(model.Trade{Price: 100, Size: 2, Side: enum.SideBuy, Ts: 60_500})
	push(model.Trade{Price: 100, Size: 1, Side: enum.SideSell, Ts: 61_000})
	push(model.Trade{Price: 100, Size: 1, Side: enum.SideBuy, Ts: 120_100})

	e.tick(ctx)

	raw, err := b.Range(ctx, bus.KeyFootprint("bybit", "BTCUSDT"), -1, -1)
	require.NoError(t, err)
	require.Len(t, raw, 1)

	var bar model.FootprintBar
	require.NoError(t, json.Unmarshal(raw[0], &bar))
	assert.Equal(t, "bybit", bar.Exchange)
	assert.Equal(t, int64(60_000), bar.Start)
	assert.Equal(t, int64(120_000), bar.End)
	require.Len(t, bar.Levels, 1)
	assert.InDelta(t, 2.0, bar.Levels[0].VolBid, 1e-9)
	assert.InDelta(t, 1.0, bar.Levels[0].VolAsk, 1e-9)

	// The same bar is not published twice.
	e.tick(ctx)
	raw, err = b.Range(ctx, bus.KeyFootprint("bybit", "BTCUSDT"), -10, -1)
	require.NoError(t, err)
	assert.Len(t, raw, 1)
}
