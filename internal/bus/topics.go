package bus

import "fmt"

// Topic is an append-only, multi-consumer stream name.
type Topic string

const (
	TopicOrderbookUpdates Topic = "orderbook_updates"
	TopicTrades           Topic = "trades"
	TopicKline            Topic = "kline"
	TopicOpenInterest     Topic = "open_interest"
	TopicLiquidations     Topic = "liquidations"
	TopicEvents           Topic = "events"
	TopicHeatmapSlices    Topic = "heatmap_slices"
	TopicFootprintBars    Topic = "footprint_bars"
	TopicScoresTrend      Topic = "scores.trend"
	TopicScoresExhaustion Topic = "scores.exhaustion"
	TopicSignalsReversal  Topic = "signals.rule_reversal"
)

// Retained lengths for ring-buffer keys.
const (
	SlicesMaxLen    = 500
	TradesMaxLen    = 2000
	EventsMaxLen    = 200
	ScoresMaxLen    = 500
	SignalsMaxLen   = 200
	HeatmapMaxLen   = 500
	FootprintMaxLen = 200
)

// StreamMaxLen bounds every topic stream.
const StreamMaxLen = 10000

func instrumentKey(prefix, exchange, symbol string) string {
	return fmt.Sprintf("%s:%s:%s", prefix, exchange, symbol)
}

// KeyDOM is the latest DOM snapshot point key.
func KeyDOM(exchange, symbol string) string {
	return instrumentKey("dom", exchange, symbol)
}

// KeySlices is the rolling DOM snapshot history ring.
func KeySlices(exchange, symbol string) string {
	return instrumentKey("orderbook_slices", exchange, symbol)
}

// KeyTrades is the rolling raw trade ring.
func KeyTrades(exchange, symbol string) string {
	return instrumentKey("trades", exchange, symbol)
}

// KeyEvents is the rolling detected-event ring.
func KeyEvents(exchange, symbol string) string {
	return instrumentKey("events", exchange, symbol)
}

// KeyTape is the latest tape aggregate point key.
func KeyTape(exchange, symbol string) string {
	return instrumentKey("tape", exchange, symbol)
}

// KeyHeatmap is the rolling heatmap slice ring.
func KeyHeatmap(exchange, symbol string) string {
	return instrumentKey("heatmap", exchange, symbol)
}

// KeyFootprint is the rolling footprint bar ring.
func KeyFootprint(exchange, symbol string) string {
	return instrumentKey("footprint", exchange, symbol)
}

// KeyScoreCandle is the latest candle score point key.
func KeyScoreCandle(exchange, symbol string) string {
	return instrumentKey("scores.candle", exchange, symbol)
}

// KeyScoreVolume is the latest volume score point key.
func KeyScoreVolume(exchange, symbol string) string {
	return instrumentKey("scores.volume", exchange, symbol)
}

// KeyScoreOrderbook is the latest orderbook score point key.
func KeyScoreOrderbook(exchange, symbol string) string {
	return instrumentKey("scores.orderbook", exchange, symbol)
}

// KeyScoresTrend is the rolling trend record ring.
func KeyScoresTrend(exchange, symbol string) string {
	return instrumentKey("scores.trend", exchange, symbol)
}

// KeyScoresExhaustion is the rolling exhaustion record ring.
func KeyScoresExhaustion(exchange, symbol string) string {
	return instrumentKey("scores.exhaustion", exchange, symbol)
}

// KeySignalsReversal is the rolling reversal signal ring.
func KeySignalsReversal(exchange, symbol string) string {
	return instrumentKey("signals.rule_reversal", exchange, symbol)
}
