package ingest

import (
	"context"
	"encoding/json"
	"testing"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readTopic(t *testing.T, b bus.Bus, topic bus.Topic) []bus.Entry {
	t.Helper()
	cursors := map[bus.Topic]string{topic: "0"}
	entries, err := b.Read(context.Background(), cursors, 100, 0)
	require.NoError(t, err)
	return entries
}

func TestPublishTrade(t *testing.T) {
	ctx := context.Background()
	b := bus.NewMemory()
	defer b.Close()
	metrics := obs.NewMetrics()
	p := NewPublisher(b, metrics)

	require.NoError(t, p.PublishTrade(ctx, model.Trade{
		Exchange: "bybit", Symbol: "BTCUSDT", Side: enum.SideBuy, Price: 64000, Size: 0.5, Ts: 1,
	}))

	// Zero size and unknown side are dropped without error.
	require.NoError(t, p.PublishTrade(ctx, model.Trade{Side: enum.SideBuy, Size: 0}))
	require.NoError(t, p.PublishTrade(ctx, model.Trade{Side: enum.Side("hold"), Size: 1}))

	entries := readTopic(t, b, bus.TopicTrades)
	require.Len(t, entries, 1)
	var trade model.Trade
	require.NoError(t, json.Unmarshal(entries[0].Payload, &trade))
	assert.Equal(t, 0.5, trade.Size)

	snap := metrics.Snapshot()
	assert.Equal(t, uint64(1), snap.Published[bus.TopicTrades])
	assert.Equal(t, uint64(2), snap.Dropped[bus.TopicTrades])
	assert.Equal(t, uint64(1), snap.PublishLatency.Count)
}

func TestPublishBookUpdate(t *testing.T) {
	ctx := context.Background()
	b := bus.NewMemory()
	defer b.Close()
	p := NewPublisher(b, nil)

	require.NoError(t, p.PublishBookUpdate(ctx, model.BookUpdate{
		Exchange: "bybit", Symbol: "BTCUSDT", Kind: enum.UpdateSnapshot, Ts: 1,
	}))
	assert.Error(t, p.PublishBookUpdate(ctx, model.BookUpdate{Kind: enum.UpdateKind("merge")}))

	entries := readTopic(t, b, bus.TopicOrderbookUpdates)
	assert.Len(t, entries, 1)
}

func TestPublishAuxiliaryTopics(t *testing.T) {
	ctx := context.Background()
	b := bus.NewMemory()
	defer b.Close()
	p := NewPublisher(b, nil)

	require.NoError(t, p.PublishCandle(ctx, model.Candle{Exchange: "bybit", Symbol: "BTCUSDT", Confirm: true}))
	require.NoError(t, p.PublishOpenInterest(ctx, model.OpenInterest{Exchange: "bybit", Symbol: "BTCUSDT"}))
	require.NoError(t, p.PublishLiquidation(ctx, model.Liquidation{Exchange: "bybit", Symbol: "BTCUSDT", Side: enum.SideSell}))

	assert.Len(t, readTopic(t, b, bus.TopicKline), 1)
	assert.Len(t, readTopic(t, b, bus.TopicOpenInterest), 1)
	assert.Len(t, readTopic(t, b, bus.TopicLiquidations), 1)
}
