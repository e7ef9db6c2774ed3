package score

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/rolling"

	"github.com/yanun0323/logs"
)

const (
	// LevelsLook caps how many levels per side feed the wall ratio.
	LevelsLook = 20
	// EventLookback bounds the iceberg/wall score boost window.
	EventLookback = 5 * time.Minute
)

// ScoreRatio maps the max/median size ratio onto the discrete 0..6 scale.
func ScoreRatio(ratio float64) float64 {
	switch {
	case ratio >= 5:
		return 6
	case ratio >= 3:
		return 4
	case ratio >= 2:
		return 2
	default:
		return 0
	}
}

// BookShape summarizes the top levels of a DOM snapshot.
type BookShape struct {
	MaxSizeRatio float64
	ImbalancePct float64
	SumBid       float64
	SumAsk       float64
}

// ShapeOf computes the wall ratio and bid/ask imbalance over the top
// LevelsLook levels per side. Degenerate books yield zero values.
func ShapeOf(snap model.DOMSnapshot) BookShape {
	bids := snap.Bids
	if len(bids) > LevelsLook {
		bids = bids[:LevelsLook]
	}
	asks := snap.Asks
	if len(asks) > LevelsLook {
		asks = asks[:LevelsLook]
	}
	sizes := make([]float64, 0, len(bids)+len(asks))
	var sumBid, sumAsk float64
	for _, lvl := range bids {
		sizes = append(sizes, lvl.Size)
		sumBid += lvl.Size
	}
	for _, lvl := range asks {
		sizes = append(sizes, lvl.Size)
		sumAsk += lvl.Size
	}

	var shape BookShape
	shape.SumBid, shape.SumAsk = sumBid, sumAsk
	if med := rolling.Median(sizes); med > 0 {
		shape.MaxSizeRatio = rolling.Max(sizes) / med
	}
	if total := sumBid + sumAsk; total > 0 {
		shape.ImbalancePct = (sumBid - sumAsk) / total * 100
	}
	return shape
}

// OrderbookEngine polls the DOM slice ring for one instrument and keeps the
// latest orderbook score on the bus. A recent iceberg/wall event boosts the
// score by one point, capped at 6.
type OrderbookEngine struct {
	bus      bus.Bus
	metrics  *obs.Metrics
	exchange string
	symbol   string
	interval time.Duration
}

// NewOrderbookEngine wires an orderbook score engine for one instrument.
func NewOrderbookEngine(b bus.Bus, metrics *obs.Metrics, exchange, symbol string) *OrderbookEngine {
	return &OrderbookEngine{
		bus:      b,
		metrics:  metrics,
		exchange: exchange,
		symbol:   symbol,
		interval: time.Second,
	}
}

// Run polls until the context is done.
func (e *OrderbookEngine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(ctx, time.Now().UnixMilli())
		}
	}
}

func (e *OrderbookEngine) tick(ctx context.Context, nowMs int64) {
	raw, err := e.bus.Range(ctx, bus.KeySlices(e.exchange, e.symbol), -1, -1)
	if err != nil {
		logs.Errorf("orderbook score read slice, err: %+v", err)
		return
	}
	if len(raw) == 0 {
		return
	}
	var snap model.DOMSnapshot
	if err := json.Unmarshal(raw[0], &snap); err != nil {
		return
	}

	shape := ShapeOf(snap)
	s := ScoreRatio(shape.MaxSizeRatio)
	if e.recentLiquidityEvent(ctx, nowMs) {
		s = rolling.Clamp(s+1, 0, 6)
	}

	ts := snap.Ts
	if ts == 0 {
		ts = nowMs
	}
	out := model.OrderbookScore{
		Exchange:     e.exchange,
		Symbol:       e.symbol,
		Ts:           ts,
		Score:        s,
		MaxSizeRatio: shape.MaxSizeRatio,
		ImbalancePct: shape.ImbalancePct,
		SumBid:       shape.SumBid,
		SumAsk:       shape.SumAsk,
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := e.bus.Set(ctx, bus.KeyScoreOrderbook(e.exchange, e.symbol), payload, KeyTTL); err != nil {
		logs.Errorf("publish orderbook score, err: %+v", err)
		return
	}
	e.metrics.IncPublished(bus.TopicOrderbookUpdates)
}

func (e *OrderbookEngine) recentLiquidityEvent(ctx context.Context, nowMs int64) bool {
	raw, err := e.bus.Range(ctx, bus.KeyEvents(e.exchange, e.symbol), -50, -1)
	if err != nil {
		return false
	}
	lookbackMs := EventLookback.Milliseconds()
	for _, item := range raw {
		var ev model.DetectedEvent
		if err := json.Unmarshal(item, &ev); err != nil {
			continue
		}
		ts := ev.Ts
		if ts == 0 {
			ts = ev.TsStart
		}
		if nowMs-ts > lookbackMs {
			continue
		}
		kind := string(ev.Type)
		if strings.Contains(kind, "ICEBERG") || strings.Contains(kind, "WALL") {
			return true
		}
	}
	return false
}
