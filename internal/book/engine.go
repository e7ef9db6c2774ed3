package book

import (
	"context"
	"encoding/json"
	"time"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/obs"

	"github.com/yanun0323/logs"
)

const (
	// DefaultThrottle bounds DOM publish frequency between full snapshots.
	DefaultThrottle = 80 * time.Millisecond
	// DefaultDepth truncates published DOM projections.
	DefaultDepth = 200
)

type instrument struct {
	exchange string
	symbol   string
}

type bookState struct {
	book        *Book
	lastPublish time.Time
}

// Engine consumes the orderbook_updates topic and maintains one Book per
// (venue, instrument), publishing throttled DOM snapshots plus a bounded
// snapshot history ring.
type Engine struct {
	bus      bus.Bus
	metrics  *obs.Metrics
	throttle time.Duration
	depth    int
	books    map[instrument]*bookState
}

// NewEngine wires an engine to a bus. metrics may be nil.
func NewEngine(b bus.Bus, metrics *obs.Metrics) *Engine {
	return &Engine{
		bus:      b,
		metrics:  metrics,
		throttle: DefaultThrottle,
		depth:    DefaultDepth,
		books:    make(map[instrument]*bookState),
	}
}

// WithThrottle overrides the delta publish throttle.
func (e *Engine) WithThrottle(d time.Duration) *Engine {
	if d > 0 {
		e.throttle = d
	}
	return e
}

// WithDepth overrides the published snapshot depth.
func (e *Engine) WithDepth(depth int) *Engine {
	if depth > 0 {
		e.depth = depth
	}
	return e
}

// Run consumes updates until the context is done. Transport errors are
// logged and retried; a single bad payload never stops the loop.
func (e *Engine) Run(ctx context.Context) {
	cursors := map[bus.Topic]string{bus.TopicOrderbookUpdates: bus.CursorLive}
	for {
		entries, err := e.bus.Read(ctx, cursors, 100, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logs.Errorf("book engine read, err: %+v", err)
			time.Sleep(time.Second)
			continue
		}
		for _, entry := range entries {
			e.metrics.IncConsumed(entry.Topic)
			var update model.BookUpdate
			if err := json.Unmarshal(entry.Payload, &update); err != nil {
				e.metrics.IncDropped(entry.Topic)
				continue
			}
			e.apply(ctx, update)
		}
	}
}

func (e *Engine) apply(ctx context.Context, update model.BookUpdate) {
	if update.Exchange == "" || update.Symbol == "" || !update.Kind.IsAvailable() {
		e.metrics.IncDropped(bus.TopicOrderbookUpdates)
		return
	}
	key := instrument{exchange: update.Exchange, symbol: update.Symbol}
	state, ok := e.books[key]
	if !ok {
		state = &bookState{book: New()}
		e.books[key] = state
	}
	if !state.book.Apply(update) {
		return
	}

	now := time.Now()
	if update.Kind == enum.UpdateSnapshot {
		// A full snapshot always publishes and resets the throttle clock,
		// so the delta that follows it publishes immediately as well.
		e.publish(ctx, key, update.Ts)
		state.lastPublish = time.Time{}
		return
	}
	if now.Sub(state.lastPublish) < e.throttle {
		return
	}
	if e.publish(ctx, key, update.Ts) {
		state.lastPublish = now
	}
}

func (e *Engine) publish(ctx context.Context, key instrument, ts int64) bool {
	state := e.books[key]
	snap := state.book.Snapshot(ts, e.depth)
	payload, err := json.Marshal(snap)
	if err != nil {
		return false
	}
	if err := e.bus.Set(ctx, bus.KeyDOM(key.exchange, key.symbol), payload, 0); err != nil {
		logs.Errorf("publish dom, err: %+v", err)
		return false
	}
	if err := e.bus.Push(ctx, bus.KeySlices(key.exchange, key.symbol), payload, bus.SlicesMaxLen); err != nil {
		logs.Errorf("push dom slice, err: %+v", err)
		return false
	}
	e.metrics.IncPublished(bus.TopicOrderbookUpdates)
	return true
}
