package tape

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

func TestSummarizeWindows(t *testing.T) {
	now := int64(120_000)
	trades := []model.Trade{
		{Side: enum.SideBuy, Size: 7, Ts: now - 59_000},  // 1m only
		{Side: enum.SideSell, Size: 5, Ts: now - 4_000},  // 5s and 1m
		{Side: enum.SideBuy, Size: 2, Ts: now - 500},     // every window
		{Side: enum.SideBuy, Size: 1, Ts: now},           // the newest trade
		{Side: enum.SideSell, Size: 9, Ts: now - 61_000}, // too old for any
	}
	last := trades[3]

	s := Summarize(trades, last)
	assert.Equal(t, now, s.Ts)

	oneSec := s.Aggregates["1s"]
	assert.InDelta(t, 3.0, oneSec.BuyVol, 1e-9)
	assert.InDelta(t, 0.0, oneSec.SellVol, 1e-9)
	assert.InDelta(t, 3.0, oneSec.Delta, 1e-9)

	fiveSec := s.Aggregates["5s"]
	assert.InDelta(t, 3.0, fiveSec.BuyVol, 1e-9)
	assert.InDelta(t, 5.0, fiveSec.SellVol, 1e-9)
	assert.InDelta(t, -2.0, fiveSec.Delta, 1e-9)

	oneMin := s.Aggregates["1m"]
	assert.InDelta(t, 10.0, oneMin.BuyVol, 1e-9)
	assert.InDelta(t, 5.0, oneMin.SellVol, 1e-9)
	assert.InDelta(t, 5.0, oneMin.Delta, 1e-9)
}

func TestSummarizeLargeFlag(t *testing.T) {
	trades := []model.Trade{
		{Side: enum.SideBuy, Size: 1, Ts: 1000},
		{Side: enum.SideBuy, Size: 1, Ts: 1100},
		{Side: enum.SideSell, Size: 1, Ts: 1200},
		{Side: enum.SideBuy, Size: 9, Ts: 1300},
	}
	// Average size is 3, so a 9-size print is exactly 3x: large.
	s := Summarize(trades, trades[3])
	assert.True(t, s.LastTrade.Large)
	assert.Equal(t, 9.0, s.LastTrade.Size)
	assert.Equal(t, enum.SideBuy, s.LastTrade.Side)

	// Same trade against a heavier tape is not large.
	heavy := []model.Trade{
		{Side: enum.SideBuy, Size: 10, Ts: 1000},
		{Side: enum.SideSell, Size: 10, Ts: 1100},
		{Side: enum.SideBuy, Size: 9, Ts: 1300},
	}
	s = Summarize(heavy, heavy[2])
	assert.False(t, s.LastTrade.Large)
}

func TestHandlePublishes(t *testing.T) {
	ctx := context.Background()
	b := bus.NewMemory()
	defer b.Close()

	a := NewAggregator(b, nil)
	trade := model.Trade{Exchange: "bybit", Symbol: "BTCUSDT", Side: enum.SideBuy, Size: 2, Price: 100, Ts: 5000}
	payload, err := json.Marshal(trade)
	require.NoError(t, err)

	a.Handle(ctx, payload, trade)

	ring, err := b.Range(ctx, bus.KeyTrades("bybit", "BTCUSDT"), -1, -1)
	require.NoError(t, err)
	require.Len(t, ring, 1)

	point, ok, err := b.Get(ctx, bus.KeyTape("bybit", "BTCUSDT"))
	require.NoError(t, err)
	require.True(t, ok)

	var s model.TapeSummary
	require.NoError(t, json.Unmarshal(point, &s))
	assert.Equal(t, int64(5000), s.Ts)
	assert.InDelta(t, 2.0, s.Aggregates["1s"].BuyVol, 1e-9)
}

func TestHandleIgnoresAnonymousTrades(t *testing.T) {
	ctx := context.Background()
	b := bus.NewMemory()
	defer b.Close()

	a := NewAggregator(b, nil)
	a.Handle(ctx, []byte(`{}`), model.Trade{Side: enum.SideBuy, Size: 1})

	_, ok, err := b.Get(ctx, bus.KeyTape("", ""))
	require.NoError(t, err)
	assert.False(t, ok)
}
