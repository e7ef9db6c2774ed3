package binance

import (
	"encoding/json"
	"testing"

	"main/internal/model/enum"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDepth(t *testing.T) {
	raw := []byte(`{
		"e": "depthUpdate", "E": 1700000000123, "s": "BTCUSDT",
		"U": 157, "u": 160,
		"b": [["64000.10", "1.5"], ["63999.90", "0"]],
		"a": [["64000.50", "0.8"]]
	}`)
	var d DepthUpdate
	require.NoError(t, json.Unmarshal(raw, &d))

	update, err := NormalizeDepth("BTCUSDT", d)
	require.NoError(t, err)
	assert.Equal(t, Exchange, update.Exchange)
	assert.Equal(t, enum.UpdateDelta, update.Kind)
	assert.Equal(t, int64(1700000000123), update.Ts)
	assert.Equal(t, int64(160), update.UpdateID)
	require.Len(t, update.Bids, 2)
	assert.Equal(t, 64000.10, update.Bids[0].Price)
	assert.Equal(t, 1.5, update.Bids[0].Size)
	// Zero quantity passes through as a removal.
	assert.Equal(t, 0.0, update.Bids[1].Size)
	require.Len(t, update.Asks, 1)
}

func TestNormalizeDepthBadLevel(t *testing.T) {
	d := DepthUpdate{Bids: [][2]string{{"not-a-price", "1"}}}
	_, err := NormalizeDepth("BTCUSDT", d)
	assert.Error(t, err)
}

func TestNormalizeSnapshot(t *testing.T) {
	raw := []byte(`{
		"lastUpdateId": 1027024,
		"E": 1700000000500,
		"bids": [["64000.00", "10.0"]],
		"asks": [["64001.00", "5.0"]]
	}`)
	var s DepthSnapshot
	require.NoError(t, json.Unmarshal(raw, &s))

	update, err := NormalizeSnapshot("BTCUSDT", s)
	require.NoError(t, err)
	assert.Equal(t, enum.UpdateSnapshot, update.Kind)
	assert.Equal(t, int64(1700000000500), update.Ts)
	assert.Equal(t, int64(1027024), update.UpdateID)

	// Without an event time the update id stands in for the timestamp.
	s.EventTime = 0
	update, err = NormalizeSnapshot("BTCUSDT", s)
	require.NoError(t, err)
	assert.Equal(t, int64(1027024), update.Ts)
}

func TestNormalizeAggTrade(t *testing.T) {
	raw := []byte(`{
		"e": "aggTrade", "E": 1700000001000, "s": "BTCUSDT",
		"a": 26129, "p": "64000.50", "q": "0.25",
		"T": 1700000000999, "m": false
	}`)
	var a AggTrade
	require.NoError(t, json.Unmarshal(raw, &a))

	trade, err := NormalizeAggTrade("BTCUSDT", a)
	require.NoError(t, err)
	assert.Equal(t, Exchange, trade.Exchange)
	// Buyer was not the maker: the aggressor bought.
	assert.Equal(t, enum.SideBuy, trade.Side)
	assert.Equal(t, 64000.50, trade.Price)
	assert.Equal(t, 0.25, trade.Size)
	assert.Equal(t, int64(1700000000999), trade.Ts)
	assert.Equal(t, "26129", trade.TradeID)

	a.BuyerIsMaker = true
	trade, err = NormalizeAggTrade("BTCUSDT", a)
	require.NoError(t, err)
	assert.Equal(t, enum.SideSell, trade.Side)

	a.Price = "bad"
	_, err = NormalizeAggTrade("BTCUSDT", a)
	assert.Error(t, err)
}
