package exhaustion

import (
	"context"
	"encoding/json"
	"time"

	"main/internal/bus"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/score"

	"github.com/yanun0323/logs"
)

const (
	// BarDuration is the comparison bar size.
	BarDuration = time.Minute
	// WallRatioThreshold gates the absorption score.
	WallRatioThreshold = 3.0
	// MinTrades is the minimum ring depth before scoring.
	MinTrades = 10
)

// Bar is an OHLC + order-flow delta aggregation of trades.
type Bar struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
	Delta float64
}

// ComputeBar folds trades (in arrival order) into a bar.
// ok is false for an empty slice.
func ComputeBar(trades []model.Trade) (Bar, bool) {
	if len(trades) == 0 {
		return Bar{}, false
	}
	bar := Bar{
		Open:  trades[0].Price,
		High:  trades[0].Price,
		Low:   trades[0].Price,
		Close: trades[len(trades)-1].Price,
	}
	for _, t := range trades {
		if t.Price > bar.High {
			bar.High = t.Price
		}
		if t.Price < bar.Low {
			bar.Low = t.Price
		}
		bar.Delta += t.Size * float64(t.Side.Sign())
	}
	return bar, true
}

// Scores compares the current bar against the previous one plus the latest
// wall ratio. Exhaustion flags price extension on fading delta; absorption
// flags a compressed range against outsized passive liquidity.
func Scores(curr, prev Bar, wallRatio float64) (exhaustion, absorption float64) {
	absDelta := func(v float64) float64 {
		if v < 0 {
			return -v
		}
		return v
	}

	if curr.High > prev.High && absDelta(curr.Delta) < absDelta(prev.Delta)*0.5 {
		exhaustion = 70
	}
	if curr.Low < prev.Low && absDelta(curr.Delta) < absDelta(prev.Delta)*0.5 {
		if exhaustion < 70 {
			exhaustion = 70
		}
	}
	bearishDivergence := curr.Close > prev.Close && curr.Delta < prev.Delta*0.5
	bullishDivergence := curr.Close < prev.Close && curr.Delta > prev.Delta*0.5
	if (bearishDivergence || bullishDivergence) && exhaustion < 60 {
		exhaustion = 60
	}

	currRange := curr.High - curr.Low
	prevRange := prev.High - prev.Low
	if wallRatio >= WallRatioThreshold && currRange < prevRange*0.5 {
		absorption = 70
	}
	if wallRatio >= WallRatioThreshold*1.5 {
		if absorption < 85 {
			absorption = 85
		}
	}
	return exhaustion, absorption
}

// Engine scores one instrument from the trade ring and the latest DOM slice.
type Engine struct {
	bus      bus.Bus
	metrics  *obs.Metrics
	exchange string
	symbol   string
	interval time.Duration
}

// NewEngine wires an exhaustion engine for one instrument. metrics may be nil.
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
			e.tick(ctx)
		}
	}
}

func (e *Engine) tick(ctx context.Context) {
	raw, err := e.bus.Range(ctx, bus.KeyTrades(e.exchange, e.symbol), -int64(bus.TradesMaxLen), -1)
	if err != nil {
		logs.Errorf("exhaustion read trades, err: %+v", err)
		return
	}
	trades := make([]model.Trade, 0, len(raw))
	for _, item := range raw {
		var t model.Trade
		if err := json.Unmarshal(item, &t); err != nil {
			continue
		}
		trades = append(trades, t)
	}
	if len(trades) < MinTrades {
		return
	}

	barMs := BarDuration.Milliseconds()
	var latest int64
	for _, t := range trades {
		if t.Ts > latest {
			latest = t.Ts
		}
	}
	currStart := latest / barMs * barMs
	prevStart := currStart - barMs
	curr, currOK := ComputeBar(filterBar(trades, currStart, barMs))
	prev, prevOK := ComputeBar(filterBar(trades, prevStart, barMs))
	if !currOK || !prevOK {
		return
	}

	exhaustionScore, absorptionScore := Scores(curr, prev, e.latestWallRatio(ctx))

	out := model.ExhaustionRecord{
		Exchange:        e.exchange,
		Symbol:          e.symbol,
		Ts:              currStart,
		ExhaustionScore: exhaustionScore,
		AbsorptionScore: absorptionScore,
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return
	}
	if err := e.bus.Append(ctx, bus.TopicScoresExhaustion, payload); err != nil {
		logs.Errorf("append exhaustion record, err: %+v", err)
		return
	}
	if err := e.bus.Push(ctx, bus.KeyScoresExhaustion(e.exchange, e.symbol), payload, bus.ScoresMaxLen); err != nil {
		logs.Errorf("push exhaustion record, err: %+v", err)
		return
	}
	e.metrics.IncPublished(bus.TopicScoresExhaustion)
}

func (e *Engine) latestWallRatio(ctx context.Context) float64 {
	raw, err := e.bus.Range(ctx, bus.KeySlices(e.exchange, e.symbol), -1, -1)
	if err != nil || len(raw) == 0 {
		return 0
	}
	var snap model.DOMSnapshot
	if err := json.Unmarshal(raw[0], &snap); err != nil {
		return 0
	}
	return score.ShapeOf(snap).MaxSizeRatio
}

func filterBar(trades []model.Trade, start, barMs int64) []model.Trade {
	out := make([]model.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Ts >= start && t.Ts < start+barMs {
			out = append(out, t)
		}
	}
	return out
}
