package rolling

import (
	"math"
	"sort"
)

const epsilon = 1e-9

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Sum returns the total of the slice.
func Sum(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}

// Std returns the population standard deviation, 0 for an empty slice.
func Std(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// ZScore returns (x - mean) / std against history.
// Zero history or near-zero deviation yields 0 rather than exploding.
func ZScore(history []float64, x float64) float64 {
	if len(history) == 0 {
		return 0
	}
	std := Std(history)
	if std <= epsilon {
		return 0
	}
	return (x - Mean(history)) / std
}

// Median returns the upper median (s[n/2] of the sorted slice), matching the
// wall-ratio computation everywhere in the analytics bank. 0 when empty.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	return s[len(s)/2]
}

// Max returns the largest value, 0 for an empty slice.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
