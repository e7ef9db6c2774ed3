package tape

import (
	"context"
	"encoding/json"
	"time"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"
	"main/internal/rolling"

	"github.com/yanun0323/logs"
)

const (
	// MaxRecentTrades bounds the per-instrument deque.
	MaxRecentTrades = 500
	// LargeTradeMult flags a trade against the recent average size.
	LargeTradeMult = 3.0
	// largeTradeLookback is how many trades back the average looks.
	largeTradeLookback = 100
	// KeyTTL expires the tape point key.
	KeyTTL = time.Minute
)

// Windows are the fixed aggregation spans, label -> duration.
var Windows = map[string]time.Duration{
	"1s": time.Second,
	"5s": 5 * time.Second,
	"1m": time.Minute,
}

// Aggregator consumes the trades topic, maintains the raw trade ring, and
// publishes a multi-window buy/sell/delta aggregate as an overwritten point
// key per instrument.
type Aggregator struct {
	bus     bus.Bus
	metrics *obs.Metrics
	recent  map[string]*rolling.Window[model.Trade]
}

// NewAggregator wires a tape aggregator to a bus. metrics may be nil.
func NewAggregator(b bus.Bus, metrics *obs.Metrics) *Aggregator {
	return &Aggregator{
		bus:     b,
		metrics: metrics,
		recent:  make(map[string]*rolling.Window[model.Trade]),
	}
}

// Run consumes the trades topic until the context is done.
func (a *Aggregator) Run(ctx context.Context) {
	cursors := map[bus.Topic]string{bus.TopicTrades: bus.CursorLive}
	for {
		entries, err := a.bus.Read(ctx, cursors, 100, time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logs.Errorf("tape read, err: %+v", err)
			time.Sleep(time.Second)
			continue
		}
		for _, entry := range entries {
			a.metrics.IncConsumed(bus.TopicTrades)
			var t model.Trade
			if err := json.Unmarshal(entry.Payload, &t); err != nil {
				a.metrics.IncDropped(bus.TopicTrades)
				continue
			}
			a.Handle(ctx, entry.Payload, t)
		}
	}
}

// Handle folds one trade into the deque and republishes the aggregate.
// The raw payload also lands in the per-instrument trade ring used by the
// bar-based engines.
func (a *Aggregator) Handle(ctx context.Context, payload []byte, t model.Trade) {
	if t.Exchange == "" || t.Symbol == "" {
		return
	}
	if err := a.bus.Push(ctx, bus.KeyTrades(t.Exchange, t.Symbol), payload, bus.TradesMaxLen); err != nil {
		logs.Errorf("push trade, err: %+v", err)
	}

	key := t.Exchange + ":" + t.Symbol
	deque, ok := a.recent[key]
	if !ok {
		deque = rolling.NewWindow[model.Trade](MaxRecentTrades)
		a.recent[key] = deque
	}
	deque.Push(t)

	summary := Summarize(deque.Values(), t)
	out, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := a.bus.Set(ctx, bus.KeyTape(t.Exchange, t.Symbol), out, KeyTTL); err != nil {
		logs.Errorf("publish tape, err: %+v", err)
		return
	}
	a.metrics.IncPublished(bus.TopicTrades)
}

// Summarize recomputes the window aggregates and the large-trade flag for
// the newest trade against the deque contents (oldest first).
func Summarize(trades []model.Trade, last model.Trade) model.TapeSummary {
	now := last.Ts
	aggregates := make(map[string]model.WindowAggregate, len(Windows))
	for label, span := range Windows {
		spanMs := span.Milliseconds()
		var agg model.WindowAggregate
		for _, t := range trades {
			if now-t.Ts > spanMs {
				continue
			}
			if t.Side == enum.SideBuy {
				agg.BuyVol += t.Size
			} else {
				agg.SellVol += t.Size
			}
		}
		agg.Delta = agg.BuyVol - agg.SellVol
		aggregates[label] = agg
	}

	lookback := trades
	if len(lookback) > largeTradeLookback {
		lookback = lookback[len(lookback)-largeTradeLookback:]
	}
	var sum float64
	for _, t := range lookback {
		sum += t.Size
	}
	avg := last.Size
	if len(lookback) > 0 {
		avg = sum / float64(len(lookback))
	}
	large := avg > 0 && last.Size >= avg*LargeTradeMult

	return model.TapeSummary{
		Ts:         now,
		Aggregates: aggregates,
		LastTrade: model.TapeTrade{
			Price: last.Price,
			Size:  last.Size,
			Side:  last.Side,
			Large: large,
		},
	}
}
