package detect

import (
	"testing"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/model/enum"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wallLevels(size float64) []model.PriceLevel {
	return []model.PriceLevel{
		{Price: 100, Size: size},
		{Price: 99, Size: 5},
		{Price: 98, Size: 4},
		{Price: 97, Size: 6},
		{Price: 96, Size: 5},
	}
}

func TestScanWallsFiresOnce(t *testing.T) {
	d := NewWallSpoofDetector(bus.NewMemory(), nil, "bybit", "BTCUSDT")

	events := d.ScanWalls(enum.SideBuy, wallLevels(50), 1000)
	require.Len(t, events, 1)
	assert.Equal(t, enum.EventWallCreated, events[0].Type)
	assert.Equal(t, enum.SideBuy, events[0].Side)
	assert.Equal(t, 100.0, events[0].Price)
	assert.Equal(t, 50.0, events[0].Size)
	assert.Equal(t, int64(1000), events[0].Ts)

	// An unchanged wall does not re-fire.
	assert.Empty(t, d.ScanWalls(enum.SideBuy, wallLevels(50), 2000))

	// Once the level stops qualifying it is forgotten and may fire again.
	assert.Empty(t, d.ScanWalls(enum.SideBuy, wallLevels(10), 3000))
	events = d.ScanWalls(enum.SideBuy, wallLevels(50), 4000)
	require.Len(t, events, 1)
	assert.Equal(t, int64(4000), events[0].Ts)
}

func TestScanWallsSidesIndependent(t *testing.T) {
	d := NewWallSpoofDetector(bus.NewMemory(), nil, "bybit", "BTCUSDT")

	require.Len(t, d.ScanWalls(enum.SideBuy, wallLevels(50), 1000), 1)
	events := d.ScanWalls(enum.SideSell, wallLevels(50), 1000)
	require.Len(t, events, 1)
	assert.Equal(t, enum.SideSell, events[0].Side)
}

func TestScanWallsShallowBook(t *testing.T) {
	d := NewWallSpoofDetector(bus.NewMemory(), nil, "bybit", "BTCUSDT")
	assert.Empty(t, d.ScanWalls(enum.SideBuy, wallLevels(50)[:4], 1000))
}

func TestDetectSpoofs(t *testing.T) {
	prev := []model.PriceLevel{
		{Price: 100, Size: 40},
		{Price: 99, Size: 5},
		{Price: 98, Size: 5},
	}
	curr := []model.PriceLevel{
		{Price: 100, Size: 10},
		{Price: 99, Size: 5},
		{Price: 98, Size: 5},
	}

	events := DetectSpoofs(enum.SideBuy, prev, curr, 5000)
	require.Len(t, events, 1)
	assert.Equal(t, enum.EventSpoofSignal, events[0].Type)
	assert.Equal(t, 100.0, events[0].Price)
	assert.Equal(t, 40.0, events[0].Size)

	// Shrinking but keeping over half the size is not a pull.
	kept := []model.PriceLevel{
		{Price: 100, Size: 25},
		{Price: 99, Size: 5},
		{Price: 98, Size: 5},
	}
	assert.Empty(t, DetectSpoofs(enum.SideBuy, prev, kept, 5000))

	assert.Empty(t, DetectSpoofs(enum.SideBuy, nil, curr, 5000))
}
