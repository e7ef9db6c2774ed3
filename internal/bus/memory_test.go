package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAppendRead(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	require.NoError(t, m.Append(ctx, TopicTrades, []byte(`{"n":1}`)))
	require.NoError(t, m.Append(ctx, TopicTrades, []byte(`{"n":2}`)))

	// "0" reads from the beginning.
	cursors := map[Topic]string{TopicTrades: "0"}
	entries, err := m.Read(ctx, cursors, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, []byte(`{"n":1}`), entries[0].Payload)
	assert.Equal(t, []byte(`{"n":2}`), entries[1].Payload)

	// Cursors advanced in place; nothing new to read.
	entries, err = m.Read(ctx, cursors, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, m.Append(ctx, TopicTrades, []byte(`{"n":3}`)))
	entries, err = m.Read(ctx, cursors, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []byte(`{"n":3}`), entries[0].Payload)
}

func TestMemoryLiveCursorSkipsBacklog(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	require.NoError(t, m.Append(ctx, TopicTrades, []byte(`old`)))

	cursors := map[Topic]string{TopicTrades: CursorLive}
	entries, err := m.Read(ctx, cursors, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, m.Append(ctx, TopicTrades, []byte(`new`)))
	entries, err = m.Read(ctx, cursors, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []byte(`new`), entries[0].Payload)
}

func TestMemoryReadMergesTopicsInOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	require.NoError(t, m.Append(ctx, TopicTrades, []byte(`t1`)))
	require.NoError(t, m.Append(ctx, TopicKline, []byte(`k1`)))
	require.NoError(t, m.Append(ctx, TopicTrades, []byte(`t2`)))

	cursors := map[Topic]string{TopicTrades: "0", TopicKline: "0"}
	entries, err := m.Read(ctx, cursors, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []byte(`t1`), entries[0].Payload)
	assert.Equal(t, []byte(`k1`), entries[1].Payload)
	assert.Equal(t, []byte(`t2`), entries[2].Payload)
}

func TestMemoryReadBlocksUntilAppend(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = m.Append(ctx, TopicTrades, []byte(`late`))
	}()

	cursors := map[Topic]string{TopicTrades: CursorLive}
	entries, err := m.Read(ctx, cursors, 10, time.Second)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []byte(`late`), entries[0].Payload)
}

func TestMemoryPointTTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	require.NoError(t, m.Set(ctx, "k", []byte(`v`), 10*time.Millisecond))
	payload, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`v`), payload)

	time.Sleep(20 * time.Millisecond)
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// ttl <= 0 never expires.
	require.NoError(t, m.Set(ctx, "p", []byte(`v`), 0))
	_, ok, err = m.Get(ctx, "p")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryRingTrimAndRange(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	defer m.Close()

	for i := byte('a'); i <= 'e'; i++ {
		require.NoError(t, m.Push(ctx, "ring", []byte{i}, 3))
	}

	all, err := m.Range(ctx, "ring", 0, -1)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []byte(`c`), all[0])
	assert.Equal(t, []byte(`e`), all[2])

	last, err := m.Range(ctx, "ring", -1, -1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, []byte(`e`), last[0])

	// Out-of-range start clips to the head.
	clipped, err := m.Range(ctx, "ring", -100, -1)
	require.NoError(t, err)
	assert.Len(t, clipped, 3)

	empty, err := m.Range(ctx, "missing", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryClosed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Close())

	assert.ErrorIs(t, m.Append(ctx, TopicTrades, []byte(`x`)), ErrBusClosed)
	_, err := m.Read(ctx, map[Topic]string{TopicTrades: "0"}, 10, 0)
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestKeyBuilders(t *testing.T) {
	assert.Equal(t, "dom:bybit:BTCUSDT", KeyDOM("bybit", "BTCUSDT"))
	assert.Equal(t, "orderbook_slices:bybit:BTCUSDT", KeySlices("bybit", "BTCUSDT"))
	assert.Equal(t, "trades:okx:ETHUSDT", KeyTrades("okx", "ETHUSDT"))
	assert.Equal(t, "scores.trend:binance:BTCUSDT", KeyScoresTrend("binance", "BTCUSDT"))
	assert.Equal(t, "signals.rule_reversal:binance:BTCUSDT", KeySignalsReversal("binance", "BTCUSDT"))
}
