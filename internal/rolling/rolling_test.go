package rolling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowEviction(t *testing.T) {
	w := NewWindow[int](3)
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, 3, w.Cap())

	w.Push(1)
	w.Push(2)
	w.Push(3)
	assert.Equal(t, []int{1, 2, 3}, w.Values())

	w.Push(4)
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, []int{2, 3, 4}, w.Values())
	assert.Equal(t, 2, w.At(0))

	last, ok := w.Last()
	assert.True(t, ok)
	assert.Equal(t, 4, last)
}

func TestWindowLastEmpty(t *testing.T) {
	w := NewWindow[float64](5)
	_, ok := w.Last()
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	testCases := []struct {
		desc     string
		values   []float64
		mean     float64
		median   float64
		max      float64
	}{
		{"odd count", []float64{3, 1, 2}, 2, 2, 3},
		{"even count", []float64{1, 2, 3, 4}, 2.5, 3, 4},
		{"single", []float64{7}, 7, 7, 7},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			assert.InDelta(t, tc.mean, Mean(tc.values), 1e-9)
			assert.InDelta(t, tc.median, Median(tc.values), 1e-9)
			assert.InDelta(t, tc.max, Max(tc.values), 1e-9)
		})
	}
}

func TestZScoreZeroStd(t *testing.T) {
	// Constant history has no spread; the z-score must collapse to 0
	// instead of exploding.
	assert.Equal(t, 0.0, ZScore([]float64{10, 10, 10, 10}, 25))
	assert.Equal(t, 0.0, ZScore(nil, 5))
}

func TestZScore(t *testing.T) {
	// History 1..5: mean 3, population std sqrt(2).
	z := ZScore([]float64{1, 2, 3, 4, 5}, 5)
	assert.InDelta(t, 1.4142, z, 1e-3)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1, 0, 6))
	assert.Equal(t, 6.0, Clamp(7, 0, 6))
	assert.Equal(t, 3.5, Clamp(3.5, 0, 6))
}
