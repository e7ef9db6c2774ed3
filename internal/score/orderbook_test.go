package score

import (
	"testing"

	"main/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestScoreRatio(t *testing.T) {
	assert.Equal(t, 0.0, ScoreRatio(1.9))
	assert.Equal(t, 2.0, ScoreRatio(2))
	assert.Equal(t, 2.0, ScoreRatio(2.9))
	assert.Equal(t, 4.0, ScoreRatio(3))
	assert.Equal(t, 4.0, ScoreRatio(4.9))
	assert.Equal(t, 6.0, ScoreRatio(5))
	assert.Equal(t, 6.0, ScoreRatio(50))
}

func TestShapeOf(t *testing.T) {
	snap := model.DOMSnapshot{
		Bids: []model.PriceLevel{
			{Price: 100, Size: 10},
			{Price: 99, Size: 2},
		},
		Asks: []model.PriceLevel{
			{Price: 101, Size: 2},
			{Price: 102, Size: 2},
		},
	}
	shape := ShapeOf(snap)
	assert.InDelta(t, 12.0, shape.SumBid, 1e-9)
	assert.InDelta(t, 4.0, shape.SumAsk, 1e-9)
	// Sizes [10 2 2 2]: median 2, max 10.
	assert.InDelta(t, 5.0, shape.MaxSizeRatio, 1e-9)
	assert.InDelta(t, 50.0, shape.ImbalancePct, 1e-9)
}

func TestShapeOfEmptyBook(t *testing.T) {
	shape := ShapeOf(model.DOMSnapshot{})
	assert.Equal(t, 0.0, shape.MaxSizeRatio)
	assert.Equal(t, 0.0, shape.ImbalancePct)
}
