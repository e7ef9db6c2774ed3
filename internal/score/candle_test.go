package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreCandle(t *testing.T) {
	testCases := []struct {
		desc     string
		open     float64
		high     float64
		low      float64
		close    float64
		avgRange float64
		score    float64
		dir      int
	}{
		{
			// range == avg -> rangeFactor 1, raw 2; full body doubles nothing
			// beyond the 0.5+0.5 weighting.
			"full body average range",
			100, 110, 100, 110, 10,
			2, 1,
		},
		{
			// Doji: body ratio 0 halves the raw score.
			"doji average range",
			105, 110, 100, 105, 10,
			1, 0,
		},
		{
			"bearish full body",
			110, 110, 100, 100, 10,
			2, -1,
		},
		{
			// Range far above average clamps at 6 before body weighting.
			"huge range full body",
			100, 200, 100, 200, 10,
			6, 1,
		},
		{
			// Range at half the average scores zero.
			"small range",
			100, 105, 100, 105, 10,
			0, 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			s, dir := ScoreCandle(tc.open, tc.high, tc.low, tc.close, tc.avgRange)
			assert.InDelta(t, tc.score, s, 1e-9)
			assert.Equal(t, tc.dir, dir)
		})
	}
}

func TestScoreCandleClampBounds(t *testing.T) {
	s, _ := ScoreCandle(100, 1000, 100, 1000, 1)
	assert.LessOrEqual(t, s, 6.0)
	s, _ = ScoreCandle(100, 100, 100, 100, 10)
	assert.GreaterOrEqual(t, s, 0.0)
}
