package reversal

import (
	"context"
	"encoding/json"
	"testing"

	"main/internal/bus"
	"main/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecelerating(t *testing.T) {
	assert.True(t, Decelerating([]float64{-1, -2, 5}))
	assert.True(t, Decelerating([]float64{-1, -2, -3}))
	assert.True(t, Decelerating([]float64{-1, -2}))
	assert.False(t, Decelerating([]float64{-1, 2, 3}))
	assert.False(t, Decelerating([]float64{-1}))
	assert.False(t, Decelerating(nil))

	// Only the last 3 deltas count.
	assert.False(t, Decelerating([]float64{-5, -5, 1, 2, -3}))
}

func TestProbability(t *testing.T) {
	// Weak trend or no deceleration stays at the base rung.
	assert.Equal(t, 0.05, Probability(100, true, 90, 90))
	assert.Equal(t, 0.05, Probability(300, false, 90, 90))

	assert.Equal(t, 0.4, Probability(300, true, 0, 0))
	assert.Equal(t, 0.4, Probability(-300, true, 59.9, 59.9))

	// Either exhaustion or absorption lifts to 0.65.
	assert.Equal(t, 0.65, Probability(300, true, 60, 0))
	assert.Equal(t, 0.65, Probability(300, true, 0, 90))

	// Both together lift to 0.8.
	assert.Equal(t, 0.8, Probability(300, true, 60, 60))
}

func TestExpectedMoveRange(t *testing.T) {
	r := ExpectedMoveRange(300)
	assert.InDelta(t, 1.5, r[0], 1e-9)
	assert.InDelta(t, 3.0, r[1], 1e-9)

	// Floored at 0.1% for weak trends.
	r = ExpectedMoveRange(5)
	assert.InDelta(t, 0.05, r[0], 1e-9)
	assert.InDelta(t, 0.1, r[1], 1e-9)

	r = ExpectedMoveRange(-300)
	assert.InDelta(t, 3.0, r[1], 1e-9)
}

func TestEngineTick(t *testing.T) {
	ctx := context.Background()
	b := bus.NewMemory()
	defer b.Close()

	e := NewEngine(b, nil, "bybit", "BTCUSDT")

	pushTrend := func(power, delta float64) {
		payload, err := json.Marshal(model.TrendRecord{TrendPower: power, TrendPowerDelta: delta})
		require.NoError(t, err)
		require.NoError(t, b.Push(ctx, bus.KeyScoresTrend("bybit", "BTCUSDT"), payload, bus.ScoresMaxLen))
	}

	// No trend history: no signal.
	e.tick(ctx, 1000)
	raw, err := b.Range(ctx, bus.KeySignalsReversal("bybit", "BTCUSDT"), -1, -1)
	require.NoError(t, err)
	assert.Empty(t, raw)

	// Strong decelerating trend with fresh exhaustion.
	pushTrend(320, -5)
	pushTrend(310, -10)
	pushTrend(300, -10)
	exPayload, err := json.Marshal(model.ExhaustionRecord{ExhaustionScore: 70})
	require.NoError(t, err)
	require.NoError(t, b.Push(ctx, bus.KeyScoresExhaustion("bybit", "BTCUSDT"), exPayload, bus.ScoresMaxLen))

	e.tick(ctx, 2000)
	raw, err = b.Range(ctx, bus.KeySignalsReversal("bybit", "BTCUSDT"), -1, -1)
	require.NoError(t, err)
	require.Len(t, raw, 1)

	var sig model.ReversalSignal
	require.NoError(t, json.Unmarshal(raw[0], &sig))
	assert.Equal(t, int64(2000), sig.Ts)
	assert.Equal(t, 0.65, sig.Probability)
	assert.Equal(t, HorizonBars, sig.HorizonBars)
	assert.InDelta(t, 1.5, sig.ExpectedMoveRange[0], 1e-9)
	assert.InDelta(t, 3.0, sig.ExpectedMoveRange[1], 1e-9)
}
