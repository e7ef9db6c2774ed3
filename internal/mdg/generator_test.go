package mdg

import (
	"testing"
	"time"

	"main/internal/model/enum"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorDeterministic(t *testing.T) {
	build := func() *Generator {
		g, err := NewGenerator(Config{Symbol: "BTCUSDT", Seed: 42})
		require.NoError(t, err)
		return g
	}
	now := time.UnixMilli(1_700_000_000_000)

	a, b := build(), build()
	snapA, snapB := a.Snapshot(now), b.Snapshot(now)
	assert.Equal(t, snapA, snapB)

	for i := 0; i < 10; i++ {
		tick := now.Add(time.Duration(i) * 100 * time.Millisecond)
		deltaA, tradeA := a.Tick(tick)
		deltaB, tradeB := b.Tick(tick)
		assert.Equal(t, deltaA, deltaB)
		assert.Equal(t, tradeA, tradeB)
	}
}

func TestGeneratorSnapshot(t *testing.T) {
	g, err := NewGenerator(Config{Symbol: "BTCUSDT", BasePrice: 50_000, Depth: 10})
	require.NoError(t, err)

	snap := g.Snapshot(time.UnixMilli(1000))
	assert.Equal(t, Exchange, snap.Exchange)
	assert.Equal(t, enum.UpdateSnapshot, snap.Kind)
	assert.Equal(t, int64(1000), snap.Ts)
	require.Len(t, snap.Bids, 10)
	require.Len(t, snap.Asks, 10)

	// Bids descend from the mid, asks ascend, all sized positive.
	for i, lvl := range snap.Bids {
		assert.Less(t, lvl.Price, 50_000.0)
		assert.Greater(t, lvl.Size, 0.0)
		if i > 0 {
			assert.Less(t, lvl.Price, snap.Bids[i-1].Price)
		}
	}
	for i, lvl := range snap.Asks {
		assert.Greater(t, lvl.Price, 50_000.0)
		if i > 0 {
			assert.Greater(t, lvl.Price, snap.Asks[i-1].Price)
		}
	}
}

func TestGeneratorBar(t *testing.T) {
	g, err := NewGenerator(Config{Symbol: "BTCUSDT"})
	require.NoError(t, err)

	// No trades yet: no bar.
	_, ok := g.Bar(time.UnixMilli(60_000))
	assert.False(t, ok)

	_, trade := g.Tick(time.UnixMilli(1_000))
	bar, ok := g.Bar(time.UnixMilli(60_000))
	require.True(t, ok)
	assert.Equal(t, trade.Ts, bar.Start)
	assert.True(t, bar.Confirm)
	assert.InDelta(t, trade.Size, bar.Volume, 1e-9)
	assert.LessOrEqual(t, bar.Low, bar.High)

	// The bar resets after closing.
	_, ok = g.Bar(time.UnixMilli(120_000))
	assert.False(t, ok)
}

func TestGeneratorRejectsEmptySymbol(t *testing.T) {
	_, err := NewGenerator(Config{})
	assert.Error(t, err)
}
