package reversal

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/obs"

	"github.com/yanun0323/logs"
)

const (
	// TrendStrong is the |trend power| gate for an established trend.
	TrendStrong = 250.0
	// ExhaustionThreshold gates the exhaustion probability step.
	ExhaustionThreshold = 60.0
	// AbsorptionThreshold gates the absorption probability step.
	AbsorptionThreshold = 60.0
	// HorizonBars is the fixed signal horizon.
	HorizonBars = 8
	// trendLookback is how many trend records feed the deceleration check.
	trendLookback = 5
)

// Probability ladder, lowest to highest qualifying rung.
const (
	probBase       = 0.05
	probDecel      = 0.4
	probExhaustion = 0.65
	probAbsorption = 0.8
)

// Decelerating reports whether at least 2 of the last 3 trend power deltas
// are negative.
func Decelerating(deltas []float64) bool {
	if len(deltas) > 3 {
		deltas = deltas[len(deltas)-3:]
	}
	var negative int
	for _, d := range deltas {
		if d < 0 {
			negative++
		}
	}
	return negative >= 2
}

// Probability walks the rule ladder: a strong decelerating trend is the
// entry condition, either exhaustion or absorption raises the rung, both
// together raise it again.
func Probability(trendPower float64, decel bool, exhaustion, absorption float64) float64 {
	if math.Abs(trendPower) < TrendStrong || !decel {
		return probBase
	}
	prob := probDecel
	if exhaustion >= ExhaustionThreshold || absorption >= AbsorptionThreshold {
		prob = probExhaustion
	}
	if exhaustion >= ExhaustionThreshold && absorption >= AbsorptionThreshold {
		prob = probAbsorption
	}
	return prob
}

// ExpectedMoveRange derives the [low, high] expected move (in percent) from
// the trend power.
func ExpectedMoveRange(trendPower float64) [2]float64 {
	move := math.Abs(trendPower) / 100.0
	if move < 0.1 {
		move = 0.1
	}
	return [2]float64{move * 0.5, move}
}

// Engine evaluates the rule-based reversal signal for one instrument on a
// fixed tick from the trend and exhaustion rings.
type Engine struct {
	bus      bus.Bus
	metrics  *obs.Metrics
	exchange string
	symbol   string
	interval time.Duration
}

// NewEngine wires a reversal engine for one instrument. metrics may be nil.
func NewEngine(b bus.Bus, metrics *obs.Metrics, exchange, symbol string) *Engine {
	return &Engine{
		bus:      b,
		metrics:  metrics,
		exchange: exchange,
		symbol:   symbol,
		interval: time.Second,
	}
}

// Run polls until the context is done.
func (e *Engine) Run(ctx context.Context) {
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

func (e *Engine) tick(ctx context.Context, nowMs int64) {
	raw, err := e.bus.Range(ctx, bus.KeyScoresTrend(e.exchange, e.symbol), -trendLookback, -1)
	if err != nil {
		logs.Errorf("reversal read trend, err: %+v", err)
		return
	}
	trends := make([]model.TrendRecord, 0, len(raw))
	for _, item := range raw {
		var t model.TrendRecord
		if err := json.Unmarshal(item, &t); err != nil {
			continue
		}
		trends = append(trends, t)
	}
	if len(trends) == 0 {
		return
	}
	latest := trends[len(trends)-1]

	deltas := make([]float64, 0, len(trends))
	for _, t := range trends {
		deltas = append(deltas, t.TrendPowerDelta)
	}

	var exhaustion model.ExhaustionRecord
	if rawEx, err := e.bus.Range(ctx, bus.KeyScoresExhaustion(e.exchange, e.symbol), -1, -1); err == nil && len(rawEx) > 0 {
		if err := json.Unmarshal(rawEx[0], &exhaustion); err != nil {
			exhaustion = model.ExhaustionRecord{}
		}
	}

	prob := Probability(latest.TrendPower, Decelerating(deltas), exhaustion.ExhaustionScore, exhaustion.AbsorptionScore)

	out := model.ReversalSignal{
		Exchange:          e.exchange,
		Symbol:            e.symbol,
		Ts:                nowMs,
		Probability:       prob,
		HorizonBars:       HorizonBars,
		ExpectedMoveRange: ExpectedMoveRange(latest.TrendPower),
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := e.bus.Append(ctx, bus.TopicSignalsReversal, payload); err != nil {
		logs.Errorf("append reversal signal, err: %+v", err)
		return
	}
	if err := e.bus.Push(ctx, bus.KeySignalsReversal(e.exchange, e.symbol), payload, bus.SignalsMaxLen); err != nil {
		logs.Errorf("push reversal signal, err: %+v", err)
		return
	}
	e.metrics.IncPublished(bus.TopicSignalsReversal)
}
