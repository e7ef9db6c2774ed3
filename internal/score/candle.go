package score

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
	// RangeWindow is how many confirmed bar ranges back the average looks.
	RangeWindow = 50
	// KeyTTL expires stale score point keys.
	KeyTTL = 5 * time.Minute
)

// ScoreCandle rates one confirmed bar against the average range: wide bars
// with full bodies score high. The result is clamped to [0, 6]; direction
// is the sign of close-open.
func ScoreCandle(open, high, low, close, avgRange float64) (float64, int) {
	rng := high - low
	if rng < 1e-9 {
		rng = 1e-9
	}
	bodyRatio := (close - open) / rng
	if bodyRatio < 0 {
		bodyRatio = -bodyRatio
	}
	if avgRange < 1e-9 {
		avgRange = 1e-9
	}
	rangeFactor := rng / avgRange
	raw := (rangeFactor - 0.5) / 1.5 * 6.0
	s := rolling.Clamp(raw, 0, 6)
	s *= 0.5 + 0.5*bodyRatio
	s = rolling.Clamp(s, 0, 6)

	dir := 0
	switch {
	case close > open:
		dir = 1
	case close < open:
		dir = -1
	}
	return s, dir
}

// CandleEngine consumes confirmed candles and keeps the latest candle score
// per instrument on the bus.
type CandleEngine struct {
	bus     bus.Bus
	metrics *obs.Metrics
	ranges  map[string]*rolling.Window[float64]
}

// NewCandleEngine wires a candle score engine to a bus. metrics may be nil.
func NewCandleEngine(b bus.Bus, metrics *obs.Metrics) *CandleEngine {
	return &CandleEngine{
		bus:     b,
		metrics: metrics,
		ranges:  make(map[string]*rolling.Window[float64]),
	}
}

// Run consumes the kline topic until the context is done.
func (e *CandleEngine) Run(ctx context.Context) {
	cursors := map[bus.Topic]string{bus.TopicKline: bus.CursorLive}
	for {
		entries, err := e.bus.Read(ctx, cursors, 200, time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logs.Errorf("candle score read, err: %+v", err)
			time.Sleep(time.Second)
			continue
		}
		for _, entry := range entries {
			e.metrics.IncConsumed(bus.TopicKline)
			var k model.Candle
			if err := json.Unmarshal(entry.Payload, &k); err != nil {
				e.metrics.IncDropped(bus.TopicKline)
				continue
			}
			e.handle(ctx, k)
		}
	}
}

func (e *CandleEngine) handle(ctx context.Context, k model.Candle) {
	if !k.Confirm || k.Exchange == "" || k.Symbol == "" {
		return
	}
	key := k.Exchange + ":" + k.Symbol
	window, ok := e.ranges[key]
	if !ok {
		window = rolling.NewWindow[float64](RangeWindow)
		e.ranges[key] = window
	}
	rng := k.High - k.Low
	if rng < 0 {
		rng = 0
	}
	window.Push(rng)
	avgRange := rolling.Mean(window.Values())
	s, dir := ScoreCandle(k.Open, k.High, k.Low, k.Close, avgRange)

	out := model.CandleScore{
		Exchange: k.Exchange,
		Symbol:   k.Symbol,
		Ts:       k.Start,
		Score:    s,
		Dir:      dir,
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := e.bus.Set(ctx, bus.KeyScoreCandle(k.Exchange, k.Symbol), payload, KeyTTL); err != nil {
		logs.Errorf("publish candle score, err: %+v", err)
		return
	}
	e.metrics.IncPublished(bus.TopicKline)
}
