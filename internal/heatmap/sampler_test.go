package heatmap

import (
	"testing"

	"main/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinStep(t *testing.T) {
	assert.InDelta(t, 5.0, BinStep(50_000), 1e-9)
	assert.InDelta(t, 0.01, BinStep(50), 1e-9)
	assert.InDelta(t, 0.01, BinStep(0), 1e-9)
}

func TestBinLiquidity(t *testing.T) {
	snap := model.DOMSnapshot{
		Bids: []model.PriceLevel{
			{Price: 10.0, Size: 5},
			{Price: 10.001, Size: 3}, // same bin as 10.0
			{Price: 9.99, Size: 2},
			{Price: 9.98, Size: 0},
		},
		Asks: []model.PriceLevel{
			{Price: 10.01, Size: 4},
			{Price: 10.02, Size: 0},
		},
	}

	rows := BinLiquidity(snap)
	require.Len(t, rows, 3)

	assert.InDelta(t, 9.99, rows[0].Price, 1e-6)
	assert.InDelta(t, 2.0, rows[0].VolBid, 1e-9)

	assert.InDelta(t, 10.0, rows[1].Price, 1e-6)
	assert.InDelta(t, 8.0, rows[1].VolBid, 1e-9)
	assert.InDelta(t, 0.0, rows[1].VolAsk, 1e-9)

	assert.InDelta(t, 10.01, rows[2].Price, 1e-6)
	assert.InDelta(t, 4.0, rows[2].VolAsk, 1e-9)
}

func TestBinLiquidityEmptyBook(t *testing.T) {
	assert.Nil(t, BinLiquidity(model.DOMSnapshot{}))
}
