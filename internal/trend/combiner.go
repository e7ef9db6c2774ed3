package trend

import (
	"context"
	"encoding/json"
	"time"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/rolling"

	"github.com/yanun0323/logs"
)

const (
	// DefaultWindow is the trend power accumulation window.
	DefaultWindow = 50
	// DefaultTick drives the combiner; it is time-based, not event-driven.
	DefaultTick = 500 * time.Millisecond
)

// Weights scale the three sub-scores inside the impulse.
type Weights struct {
	Candle    float64
	Volume    float64
	Orderbook float64
}

// DefaultWeights weigh the sub-scores equally.
func DefaultWeights() Weights {
	return Weights{Candle: 1, Volume: 1, Orderbook: 1}
}

// Impulse folds the sub-scores into a signed percentage: the weighted score
// sum normalized by its maximum, scaled by the candle direction.
func Impulse(w Weights, candle, volume, orderbook float64, dir int) float64 {
	total := w.Candle*candle + w.Volume*volume + w.Orderbook*orderbook
	maxTotal := (w.Candle + w.Volume + w.Orderbook) * 6.0
	if maxTotal == 0 {
		maxTotal = 1
	}
	return total / maxTotal * 100.0 * float64(dir)
}

// Combiner reads the three latest sub-scores on a fixed tick and maintains
// the accumulated trend power over a rolling window. Ticks with any
// sub-score missing are skipped; the combiner waits rather than guessing.
type Combiner struct {
	bus      bus.Bus
	metrics  *obs.Metrics
	exchange string
	symbol   string
	weights  Weights
	tick     time.Duration

	history   *rolling.Window[float64]
	lastPower float64
}

// NewCombiner wires a trend combiner for one instrument. metrics may be nil.
func NewCombiner(b bus.Bus, metrics *obs.Metrics, exchange, symbol string, window int, weights Weights) *Combiner {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Combiner{
		bus:      b,
		metrics:  metrics,
		exchange: exchange,
		symbol:   symbol,
		weights:  weights,
		tick:     DefaultTick,
		history:  rolling.NewWindow[float64](window),
	}
}

// Run ticks until the context is done.
func (c *Combiner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick(ctx, time.Now().UnixMilli())
		}
	}
}

// Tick combines the latest sub-scores once. It is a no-op while any of the
// three is absent or expired.
func (c *Combiner) Tick(ctx context.Context, nowMs int64) {
	candle, ok := readPoint[model.CandleScore](ctx, c.bus, bus.KeyScoreCandle(c.exchange, c.symbol))
	if !ok {
		return
	}
	volume, ok := readPoint[model.VolumeScore](ctx, c.bus, bus.KeyScoreVolume(c.exchange, c.symbol))
	if !ok {
		return
	}
	orderbook, ok := readPoint[model.OrderbookScore](ctx, c.bus, bus.KeyScoreOrderbook(c.exchange, c.symbol))
	if !ok {
		return
	}

	impulse := Impulse(c.weights, candle.Score, volume.Score, orderbook.Score, candle.Dir)
	c.history.Push(impulse)
	power := rolling.Sum(c.history.Values())
	delta := power - c.lastPower
	c.lastPower = power

	ts := nowMs
	for _, candidate := range []int64{candle.Ts, volume.Ts, orderbook.Ts} {
		if candidate > ts {
			ts = candidate
		}
	}
	out := model.TrendRecord{
		Exchange:        c.exchange,
		Symbol:          c.symbol,
		Ts:              ts,
		ScoreCandle:     candle.Score,
		ScoreVolume:     volume.Score,
		ScoreOrderbook:  orderbook.Score,
		ScoreImpulse:    impulse,
		TrendPower:      power,
		TrendPowerDelta: delta,
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := c.bus.Append(ctx, bus.TopicScoresTrend, payload); err != nil {
		logs.Errorf("append trend record, err: %+v", err)
		return
	}
	if err := c.bus.Push(ctx, bus.KeyScoresTrend(c.exchange, c.symbol), payload, bus.ScoresMaxLen); err != nil {
		logs.Errorf("push trend record, err: %+v", err)
		return
	}
	c.metrics.IncPublished(bus.TopicScoresTrend)
}

func readPoint[T any](ctx context.Context, b bus.Bus, key string) (T, bool) {
	var out T
	payload, ok, err := b.Get(ctx, key)
	if err != nil || !ok {
		return out, false
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		return out, false
	}
	return out, true
}
